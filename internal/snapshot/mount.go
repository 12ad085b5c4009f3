package snapshot

import (
	"context"
	"os/exec"
	"runtime"
	"sync"

	"github.com/auriora/timelocker/internal/errs"
)

// mountRegistry tracks active FUSE mounts for this process. It is
// process-local and non-persistent; it is cleared on shutdown (spec.md
// §4.7).
type mountRegistry struct {
	mu    sync.Mutex
	byID  map[string]string // snapshot ID -> mountpoint
}

func newMountRegistry() *mountRegistry {
	return &mountRegistry{byID: make(map[string]string)}
}

func (m *mountRegistry) add(id, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id] = path
}

func (m *mountRegistry) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
}

func (m *mountRegistry) isMounted(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byID[id]
	return ok
}

func (m *mountRegistry) pathOf(id string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	return p, ok
}

// platformUnmount invokes the platform's standard FUSE unmount command: fusermount
// on Linux (falling back to umount), umount elsewhere (spec.md §4.7).
func platformUnmount(ctx context.Context, path string) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "linux" {
		cmd = exec.CommandContext(ctx, "fusermount", "-u", path)
		if err := cmd.Run(); err == nil {
			return nil
		}
	}
	cmd = exec.CommandContext(ctx, "umount", path)
	if err := cmd.Run(); err != nil {
		return &errs.RepositoryError{Kind: errs.RepoEngineError, Detail: "unmount failed: " + err.Error()}
	}
	return nil
}
