//go:build windows

package diskfree

import "golang.org/x/sys/windows"

// Bytes returns the free space available to the current user on the
// filesystem containing path, in bytes.
func Bytes(path string) (uint64, error) {
	var freeBytesAvailable uint64

	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}

	if err := windows.GetDiskFreeSpaceEx(pathPtr, &freeBytesAvailable, nil, nil); err != nil {
		return 0, err
	}

	return freeBytesAvailable, nil
}
