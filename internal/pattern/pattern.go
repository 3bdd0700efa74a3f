// Package pattern decides which file names are deletion candidates.
package pattern

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	ErrEmpty    = errors.New("empty pattern")
	ErrInvalid  = errors.New("invalid pattern")
	ErrHasSlash = errors.New("pattern must match a file name, not a path")
)

// Matcher matches base names against a compiled glob
type Matcher struct {
	raw  string
	glob string
}

// Compile accepts either a bare suffix such as ".idl" or a doublestar glob
// such as "*.{idl,msg}" evaluated against the file's base name.
func Compile(raw string) (*Matcher, error) {
	p := strings.TrimSpace(raw)
	if p == "" {
		return nil, ErrEmpty
	}
	if strings.ContainsRune(p, '/') {
		return nil, fmt.Errorf("%w: %q", ErrHasSlash, raw)
	}

	glob := p
	if strings.HasPrefix(p, ".") && !hasMeta(p) {
		glob = "*" + p
	}

	if !doublestar.ValidatePattern(glob) {
		return nil, fmt.Errorf("%w: %q", ErrInvalid, raw)
	}
	return &Matcher{raw: p, glob: glob}, nil
}

// Match reports whether name (a base name) is selected
func (m *Matcher) Match(name string) bool {
	ok, err := doublestar.Match(m.glob, name)
	// err is only ErrBadPattern, which Compile already ruled out
	return err == nil && ok
}

// String returns the effective glob
func (m *Matcher) String() string {
	return m.glob
}

func hasMeta(p string) bool {
	return strings.ContainsAny(p, `*?[{\`)
}
