//go:build linux || darwin

package diskfree

import "golang.org/x/sys/unix"

// Bytes returns the free space available to an unprivileged user on the
// filesystem containing path, in bytes.
func Bytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
