//go:build !windows

package platform

import "os"

// isElevated reports whether the process is running as root, per spec.md
// §4.1 ("POSIX euid == 0").
func (r *Resolver) isElevated() bool {
	return os.Geteuid() == 0
}
