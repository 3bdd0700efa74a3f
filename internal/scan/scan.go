package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"sweeper/internal/fsops"
	"sweeper/internal/logging"
)

// Matcher selects file names
type Matcher interface {
	Match(name string) bool
}

// Candidate is a regular file selected for deletion
type Candidate struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// WalkFailure records a directory the walk could not read
type WalkFailure struct {
	Path   string
	Reason string
	Err    error
}

// Result is the frozen candidate set of one walk
type Result struct {
	Root        string
	Candidates  []Candidate
	Failures    []WalkFailure
	DirsVisited int
	FilesSeen   int
}

// TotalBytes sums candidate sizes
func (r *Result) TotalBytes() int64 {
	var n int64
	for _, c := range r.Candidates {
		n += c.Size
	}
	return n
}

// Options tune the traversal
type Options struct {
	// MaxDepth limits how many directory levels are read; 1 means only the
	// root's own entries. 0 means unlimited.
	MaxDepth int
}

var errNoRoot = errors.New("no root to scan")

type pendingDir struct {
	path  string
	depth int
}

// Scanner walks a tree with an explicit stack, never recursing and never
// following symlinks
type Scanner struct {
	logger *logging.Logger
	opts   Options
}

// NewScanner creates a new Scanner with the given logger
func NewScanner(logger *logging.Logger, opts Options) *Scanner {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scanner{logger: logger, opts: opts}
}

// Scan enumerates the whole tree under root before returning, so the
// candidate set is fixed before any deletion happens. A canceled ctx returns
// the partial result together with ctx.Err().
func (s *Scanner) Scan(ctx context.Context, root string, m Matcher) (*Result, error) {
	if root == "" {
		return nil, errNoRoot
	}
	root = filepath.Clean(root)

	res := &Result{Root: root}
	stack := []pendingDir{{path: root, depth: 0}}

	s.logger.Info("Starting scan", "root", root, "max_depth", s.opts.MaxDepth)

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir.path)
		if err != nil {
			if dir.path == root {
				return nil, fmt.Errorf("read root %s: %w", root, err)
			}
			if fsops.IsNotExist(err) {
				s.logger.Debug("Directory vanished during scan", "path", dir.path)
				continue
			}
			reason := fsops.Classify(err)
			s.logger.Warn("Cannot read directory", "path", dir.path, "reason", reason, "error", err)
			res.Failures = append(res.Failures, WalkFailure{Path: dir.path, Reason: reason, Err: err})
			// os.ReadDir may still return the entries read before the error
		}
		res.DirsVisited++

		descend := s.opts.MaxDepth == 0 || dir.depth+1 < s.opts.MaxDepth

		// push in reverse so subdirectories pop in lexical order
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			path := filepath.Join(dir.path, e.Name())
			typ := e.Type()

			switch {
			case typ.IsDir():
				if descend {
					stack = append(stack, pendingDir{path: path, depth: dir.depth + 1})
				}
			case typ.IsRegular():
				res.FilesSeen++
				if !m.Match(e.Name()) {
					continue
				}
				cand, ok := s.candidate(path, e)
				if ok {
					res.Candidates = append(res.Candidates, cand)
				}
			default:
				// symlinks, sockets, devices, fifos are never candidates
			}
		}
	}

	sort.Slice(res.Candidates, func(i, j int) bool {
		return res.Candidates[i].Path < res.Candidates[j].Path
	})

	s.logger.Info("Scan complete",
		"root", root,
		"dirs", res.DirsVisited,
		"files", res.FilesSeen,
		"candidates", len(res.Candidates),
		"unreadable_dirs", len(res.Failures),
	)

	return res, nil
}

func (s *Scanner) candidate(path string, e fs.DirEntry) (Candidate, bool) {
	info, err := e.Info()
	if err != nil {
		if fsops.IsNotExist(err) {
			s.logger.Debug("File vanished during scan", "path", path)
			return Candidate{}, false
		}
		// keep it; the delete step reports the real error
		s.logger.Warn("Cannot stat candidate", "path", path, "error", err)
		return Candidate{Path: path}, true
	}
	s.logger.Debug("File selected for deletion", "path", path, "size", info.Size())
	return Candidate{Path: path, Size: info.Size(), ModTime: info.ModTime()}, true
}
