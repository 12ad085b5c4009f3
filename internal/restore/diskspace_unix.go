//go:build !windows

package restore

import "golang.org/x/sys/unix"

// availableBytes returns the free space at path, or an error if it cannot
// be determined (treated as a warning by the preflight chain, spec.md
// §4.9).
func availableBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
