//go:build windows

package restore

import "golang.org/x/sys/windows"

// availableBytes returns the free space at path via GetDiskFreeSpaceEx.
func availableBytes(path string) (uint64, error) {
	var freeBytesAvailable uint64
	ptr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	if err := windows.GetDiskFreeSpaceEx(ptr, &freeBytesAvailable, nil, nil); err != nil {
		return 0, err
	}
	return freeBytesAvailable, nil
}
