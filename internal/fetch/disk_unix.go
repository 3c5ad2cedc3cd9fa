//go:build !windows
// +build !windows

package fetch

import (
	"fmt"
	"syscall"
)

// DiskFree returns the bytes available to the process on the filesystem
// holding dir.
func DiskFree(dir string) (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		return 0, fmt.Errorf("failed to get disk stats: %w", err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
