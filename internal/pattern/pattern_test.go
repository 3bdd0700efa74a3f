package pattern

import (
	"errors"
	"testing"
)

func TestCompileAndMatch(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		file    string
		want    bool
	}{
		{"bare suffix", ".idl", "a.idl", true},
		{"bare suffix no match", ".idl", "a.idl.bak", false},
		{"bare suffix dotfile", ".idl", ".idl", true},
		{"glob", "*.idl", "b.idl", true},
		{"glob other ext", "*.idl", "c.txt", false},
		{"alternation", "*.{idl,msg}", "Twist.msg", true},
		{"alternation miss", "*.{idl,msg}", "Twist.srv", false},
		{"zone identifier", "*:Zone.Identifier", "setup.py:Zone.Identifier", true},
		{"case sensitive", "*.idl", "A.IDL", false},
		{"question mark", "?.idl", "a.idl", true},
		{"question mark long", "?.idl", "ab.idl", false},
		{"exact name", "Makefile", "Makefile", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Compile(tt.pattern)
			if err != nil {
				t.Fatalf("Compile(%q): %v", tt.pattern, err)
			}
			if got := m.Match(tt.file); got != tt.want {
				t.Errorf("Match(%q) with %q = %v, want %v", tt.file, m, got, tt.want)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		pattern string
		want    error
	}{
		{"", ErrEmpty},
		{"   ", ErrEmpty},
		{"src/*.idl", ErrHasSlash},
		{"*.[idl", ErrInvalid},
		{"*.{idl", ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			_, err := Compile(tt.pattern)
			if !errors.Is(err, tt.want) {
				t.Errorf("Compile(%q) error = %v, want %v", tt.pattern, err, tt.want)
			}
		})
	}
}

func TestStringShowsEffectiveGlob(t *testing.T) {
	m, err := Compile(".idl")
	if err != nil {
		t.Fatal(err)
	}
	if m.String() != "*.idl" {
		t.Errorf("String() = %q, want *.idl", m.String())
	}
}
