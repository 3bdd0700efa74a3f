package safety

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidPath    = errors.New("invalid path")
	ErrProtectedPath  = errors.New("protected path")
	ErrOutsideAllowed = errors.New("outside root")
	ErrTraversal      = errors.New("path traversal detected")
	ErrSymlinkEscape  = errors.New("symlink escape detected")
	ErrNotRegular     = errors.New("not a regular file")
)

// Validator enforces the safety contract for all delete operations
type Validator struct {
	Root           string
	resolvedRoot   string
	ProtectedPaths []string
}

// NewValidator creates a validator confined to root with optional additional protected paths.
// Protected entries that enclose the root are dropped: the operator chose a
// root below them, so only the root itself and entries inside it stay guarded.
func NewValidator(root string, extraProtected []string) (*Validator, error) {
	r, err := NormalizePath(root)
	if err != nil {
		return nil, err
	}
	resolved, err := filepath.EvalSymlinks(r)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	resolved = filepath.Clean(resolved)

	var protected []string
	for _, prot := range defaultProtected(extraProtected) {
		prot = filepath.Clean(prot)
		if encloses(prot, r) || encloses(prot, resolved) {
			continue
		}
		protected = append(protected, prot)
	}
	return &Validator{
		Root:           r,
		resolvedRoot:   resolved,
		ProtectedPaths: protected,
	}, nil
}

// ValidateRoot refuses roots that are exactly "/" or a protected path
func (v *Validator) ValidateRoot() error {
	for _, r := range []string{v.Root, v.resolvedRoot} {
		if r == string(os.PathSeparator) {
			return ErrProtectedPath
		}
		for _, prot := range v.ProtectedPaths {
			if r == prot {
				return ErrProtectedPath
			}
		}
	}
	return nil
}

// ValidateDeleteTarget is the single-source-of-truth for delete authorization
// Returns typed error on safety violation
func (v *Validator) ValidateDeleteTarget(path string) error {
	// 1. Detect path traversal in raw input
	if DetectTraversal(path) {
		return ErrTraversal
	}

	// 2. Normalize path to absolute, cleaned form
	p, err := NormalizePath(path)
	if err != nil {
		return err
	}

	// 3. Block protected paths (system-critical)
	if IsProtectedPath(p, v.ProtectedPaths) {
		return ErrProtectedPath
	}

	// 4. Ensure strictly inside the root
	if p == v.Root || !IsWithinAllowedRoots(p, []string{v.Root}) {
		return ErrOutsideAllowed
	}

	// 5. Only regular files, never symlinks or directories
	info, err := os.Lstat(p)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return ErrNotRegular
	}

	// 6. Parent directory must still resolve inside the root
	escaped, err := DetectSymlinkEscape(filepath.Dir(p), []string{v.resolvedRoot})
	if err != nil {
		return err
	}
	if escaped {
		return ErrSymlinkEscape
	}

	return nil
}

// IsViolation reports whether err came from a safety rule rather than the filesystem
func IsViolation(err error) bool {
	return errors.Is(err, ErrInvalidPath) ||
		errors.Is(err, ErrProtectedPath) ||
		errors.Is(err, ErrOutsideAllowed) ||
		errors.Is(err, ErrTraversal) ||
		errors.Is(err, ErrSymlinkEscape) ||
		errors.Is(err, ErrNotRegular)
}

// NormalizePath converts path to absolute, cleaned form
func NormalizePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrInvalidPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", ErrInvalidPath
	}
	return filepath.Clean(abs), nil
}

// DetectTraversal blocks any ".." segment in raw input
func DetectTraversal(raw string) bool {
	parts := strings.Split(filepath.ToSlash(raw), "/")
	for _, p := range parts {
		if p == ".." {
			return true
		}
	}
	return false
}

// IsWithinAllowedRoots checks if path is within any allowed root
func IsWithinAllowedRoots(path string, allowedRoots []string) bool {
	p := filepath.Clean(path)
	for _, r := range allowedRoots {
		if hasPathPrefix(p, r) {
			return true
		}
	}
	return false
}

// DetectSymlinkEscape resolves symlinks and checks if resolved path escapes allowed roots
func DetectSymlinkEscape(cleanAbs string, allowedRoots []string) (bool, error) {
	resolved, err := filepath.EvalSymlinks(cleanAbs)
	if err != nil {
		return false, err
	}
	resolvedAbs, err := filepath.Abs(resolved)
	if err != nil {
		return false, err
	}
	return !IsWithinAllowedRoots(filepath.Clean(resolvedAbs), allowedRoots), nil
}

// IsProtectedPath checks if path matches protected system paths
func IsProtectedPath(path string, protected []string) bool {
	p := filepath.Clean(path)

	// Hard block: "/" exact
	if p == string(os.PathSeparator) {
		return true
	}

	for _, prot := range protected {
		prot = filepath.Clean(prot)
		if p == prot || hasPathPrefix(p, prot) {
			return true
		}
	}
	return false
}

// hasPathPrefix checks if path has the given prefix
func hasPathPrefix(path, prefix string) bool {
	path = filepath.Clean(path)
	prefix = filepath.Clean(prefix)

	if prefix == string(os.PathSeparator) {
		return path == "/"
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+string(os.PathSeparator))
}

// encloses reports whether dir is a strict ancestor of path
func encloses(dir, path string) bool {
	return dir != path && hasPathPrefix(path, dir)
}

// defaultProtected returns the base set of protected paths plus any extras
func defaultProtected(extra []string) []string {
	base := []string{
		"/",
		"/etc",
		"/bin",
		"/usr",
		"/boot",
		"/lib",
		"/lib64",
		"/sbin",
		"/proc",
		"/sys",
		"/dev",
	}
	return append(base, extra...)
}
