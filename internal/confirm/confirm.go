// Package confirm gates destructive actions behind an explicit operator answer.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInterrupted is returned when the operator presses Ctrl+C at the prompt.
var ErrInterrupted = errors.New("interrupted at confirmation prompt")

// Request describes the action awaiting approval.
type Request struct {
	Root    string
	Pattern string
}

// Prompt renders the question shown to the operator.
func (r Request) Prompt() string {
	return fmt.Sprintf("Recursively delete every file matching %q under %s? [y/N] ", r.Pattern, r.Root)
}

// Confirmer yields a single yes/no answer for a request.
type Confirmer interface {
	Confirm(ctx context.Context, req Request) (bool, error)
}

// Static answers every request the same way. It backs -yes and test doubles.
type Static struct {
	Answer bool
	Asked  []Request
}

func (s *Static) Confirm(ctx context.Context, req Request) (bool, error) {
	s.Asked = append(s.Asked, req)
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.Answer, nil
}

// IsAffirmative reports whether a raw response means yes. Only a single y
// or Y counts, optionally followed by the line terminator; everything else,
// including empty input, "yes" and padded answers, is a decline.
func IsAffirmative(response string) bool {
	r := strings.TrimSuffix(response, "\n")
	r = strings.TrimSuffix(r, "\r")
	return r == "y" || r == "Y"
}
