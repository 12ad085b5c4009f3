package backup

import (
	"errors"
	"os"
)

// errsAs is a thin wrapper around errors.As so call sites read naturally
// next to the error-kind checks in orchestrator.go.
func errsAs(err error, target any) bool {
	return errors.As(err, target)
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
