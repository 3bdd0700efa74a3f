// Package disk reports filesystem capacity for the directory being swept.
package disk

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Usage is a point-in-time capacity reading of the filesystem holding a path
type Usage struct {
	TotalBytes  int64
	FreeBytes   int64
	UsedPercent float64
}

// GetUsage returns the capacity of the filesystem containing path
func GetUsage(path string) (Usage, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Usage{}, fmt.Errorf("statfs %s: %w", path, err)
	}

	u := Usage{
		TotalBytes: int64(stat.Blocks) * int64(stat.Bsize),
		FreeBytes:  int64(stat.Bavail) * int64(stat.Bsize),
	}
	if u.TotalBytes > 0 {
		u.UsedPercent = float64(u.TotalBytes-u.FreeBytes) / float64(u.TotalBytes) * 100.0
	}
	return u, nil
}
