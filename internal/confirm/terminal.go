package confirm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

const ctrlC = 0x03

// Terminal prompts on out and reads the answer from in. When in is an
// interactive terminal a single keypress is read in raw mode; otherwise one
// line is consumed.
type Terminal struct {
	in     io.Reader
	out    io.Writer
	fd     int
	raw    bool
	reader *bufio.Reader

	makeRaw func(fd int) (*term.State, error)
	restore func(fd int, state *term.State) error

	// Style decorates the prompt text. Optional.
	Style func(string) string
}

// NewTerminal creates a confirmer reading from in and writing to out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	t := &Terminal{in: in, out: out, fd: -1, makeRaw: term.MakeRaw, restore: term.Restore}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		t.fd = int(f.Fd())
		t.raw = true
	}
	t.reader = bufio.NewReader(in)
	return t
}

// Confirm blocks until the operator answers or ctx is canceled. There is no timeout.
func (t *Terminal) Confirm(ctx context.Context, req Request) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	prompt := req.Prompt()
	if t.Style != nil {
		prompt = t.Style(prompt)
	}
	if _, err := io.WriteString(t.out, prompt); err != nil {
		return false, fmt.Errorf("write prompt: %w", err)
	}

	keyMode := false
	if t.raw {
		oldState, err := t.makeRaw(t.fd)
		if err == nil {
			// Restored on every return, including cancellation with a read still pending.
			defer t.restore(t.fd, oldState)
			keyMode = true
		}
		// Otherwise fall back to line input when the tty refuses raw mode.
	}

	type answer struct {
		ok  bool
		err error
	}
	done := make(chan answer, 1)
	go func() {
		var a answer
		if keyMode {
			a.ok, a.err = t.readKey()
		} else {
			a.ok, a.err = t.readLine()
		}
		done <- a
	}()

	var a answer
	select {
	case a = <-done:
	case <-ctx.Done():
		// The pending read is abandoned; the process is about to exit.
		a = answer{err: ErrInterrupted}
	}
	if keyMode {
		// Raw mode swallows the echo and newline.
		fmt.Fprint(t.out, "\r\n")
	} else if errors.Is(a.err, ErrInterrupted) {
		fmt.Fprintln(t.out)
	}
	return a.ok, a.err
}

// readKey reads one keypress; the terminal must already be in raw mode.
func (t *Terminal) readKey() (bool, error) {
	var buf [1]byte
	if _, err := t.in.Read(buf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, fmt.Errorf("read response: %w", err)
	}
	if buf[0] == ctrlC {
		return false, ErrInterrupted
	}
	return IsAffirmative(string(buf[:])), nil
}

func (t *Terminal) readLine() (bool, error) {
	line, err := t.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read response: %w", err)
	}
	return IsAffirmative(line), nil
}
