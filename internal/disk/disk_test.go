package disk

import (
	"path/filepath"
	"testing"
)

func TestGetUsage(t *testing.T) {
	u, err := GetUsage(t.TempDir())
	if err != nil {
		t.Fatalf("GetUsage: %v", err)
	}
	if u.TotalBytes <= 0 {
		t.Errorf("TotalBytes = %d", u.TotalBytes)
	}
	if u.FreeBytes < 0 || u.FreeBytes > u.TotalBytes {
		t.Errorf("FreeBytes = %d of %d", u.FreeBytes, u.TotalBytes)
	}
	if u.UsedPercent < 0 || u.UsedPercent > 100 {
		t.Errorf("UsedPercent = %f", u.UsedPercent)
	}
}

func TestGetUsageMissingPath(t *testing.T) {
	if _, err := GetUsage(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing path")
	}
}
