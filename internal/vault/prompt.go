package vault

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/term"
)

// isTerminal reports whether f is attached to an interactive terminal,
// gating EnsureUnlocked's final interactive-prompt fallback (spec.md §4.3).
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// promptPassword reads a master password from the controlling terminal
// without echoing it, respecting ctx cancellation.
func promptPassword(ctx context.Context) (string, error) {
	fmt.Fprint(os.Stderr, "TimeLocker master password: ")

	type result struct {
		pw  string
		err error
	}
	done := make(chan result, 1)
	go func() {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			done <- result{err: err}
			return
		}
		done <- result{pw: string(raw)}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.pw, r.err
	}
}
