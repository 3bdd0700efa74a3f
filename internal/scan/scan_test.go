package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type suffixMatcher string

func (s suffixMatcher) Match(name string) bool {
	return strings.HasSuffix(name, string(s))
}

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(f), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func paths(root string, cands []Candidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		rel, _ := filepath.Rel(root, c.Path)
		out = append(out, rel)
	}
	return out
}

func TestScanSelectsMatchingRegularFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"a.idl",
		"b.idl",
		"c.txt",
		"pkg/msg/Twist.idl",
		"pkg/msg/Twist.msg",
		".hidden/d.idl",
	)
	// a directory whose name matches must not be selected
	if err := os.MkdirAll(filepath.Join(root, "dir.idl"), 0o755); err != nil {
		t.Fatal(err)
	}
	// nor a symlink whose name matches
	if err := os.Symlink(filepath.Join(root, "c.txt"), filepath.Join(root, "link.idl")); err != nil {
		t.Fatal(err)
	}

	res, err := NewScanner(nil, Options{}).Scan(context.Background(), root, suffixMatcher(".idl"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	got := strings.Join(paths(root, res.Candidates), ",")
	want := ".hidden/d.idl,a.idl,b.idl,pkg/msg/Twist.idl"
	if got != want {
		t.Errorf("candidates = %s, want %s", got, want)
	}
	if res.FilesSeen != 6 {
		t.Errorf("FilesSeen = %d, want 6", res.FilesSeen)
	}
	if res.TotalBytes() != int64(len("a.idl")+len("b.idl")+len("pkg/msg/Twist.idl")+len(".hidden/d.idl")) {
		t.Errorf("TotalBytes = %d", res.TotalBytes())
	}
	if len(res.Failures) != 0 {
		t.Errorf("Failures = %v", res.Failures)
	}
}

func TestScanDoesNotFollowDirSymlinks(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	writeTree(t, outside, "x.idl")
	if err := os.Symlink(outside, filepath.Join(root, "ext")); err != nil {
		t.Fatal(err)
	}

	res, err := NewScanner(nil, Options{}).Scan(context.Background(), root, suffixMatcher(".idl"))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Candidates) != 0 {
		t.Errorf("walk escaped through symlink: %v", res.Candidates)
	}
}

func TestScanMaxDepth(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "top.idl", "l1/mid.idl", "l1/l2/deep.idl")

	tests := []struct {
		depth int
		want  string
	}{
		{0, "l1/l2/deep.idl,l1/mid.idl,top.idl"},
		{1, "top.idl"},
		{2, "l1/mid.idl,top.idl"},
	}
	for _, tt := range tests {
		res, err := NewScanner(nil, Options{MaxDepth: tt.depth}).Scan(context.Background(), root, suffixMatcher(".idl"))
		if err != nil {
			t.Fatal(err)
		}
		if got := strings.Join(paths(root, res.Candidates), ","); got != tt.want {
			t.Errorf("MaxDepth=%d: got %s, want %s", tt.depth, got, tt.want)
		}
	}
}

func TestScanDeepTree(t *testing.T) {
	root := t.TempDir()
	p := root
	for i := 0; i < 200; i++ {
		p = filepath.Join(p, "d")
	}
	if err := os.MkdirAll(p, 0o755); err != nil {
		t.Skipf("cannot build deep tree: %v", err)
	}
	if err := os.WriteFile(filepath.Join(p, "leaf.idl"), nil, 0o644); err != nil {
		t.Skipf("cannot write deep leaf: %v", err)
	}

	res, err := NewScanner(nil, Options{}).Scan(context.Background(), root, suffixMatcher(".idl"))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Candidates) != 1 {
		t.Errorf("expected the deep leaf, got %d candidates", len(res.Candidates))
	}
}

func TestScanUnreadableSubdirContinues(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	root := t.TempDir()
	writeTree(t, root, "locked/x.idl", "open/y.idl")
	locked := filepath.Join(root, "locked")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	res, err := NewScanner(nil, Options{}).Scan(context.Background(), root, suffixMatcher(".idl"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if got := strings.Join(paths(root, res.Candidates), ","); got != "open/y.idl" {
		t.Errorf("candidates = %s", got)
	}
	if len(res.Failures) != 1 || res.Failures[0].Path != locked || res.Failures[0].Reason != "permission_denied" {
		t.Errorf("Failures = %+v", res.Failures)
	}
}

func TestScanMissingRoot(t *testing.T) {
	_, err := NewScanner(nil, Options{}).Scan(context.Background(), filepath.Join(t.TempDir(), "nope"), suffixMatcher(".idl"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestScanCanceled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.idl")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewScanner(nil, Options{}).Scan(ctx, root, suffixMatcher(".idl"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if res == nil || len(res.Candidates) != 0 {
		t.Errorf("expected empty partial result, got %+v", res)
	}
}
