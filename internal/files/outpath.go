package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsafePath marks an output path that resolves through a link.
	ErrUnsafePath = errors.New("unsafe output path")
	// ErrTargetExists is returned when an exclusive write finds its final
	// name already taken.
	ErrTargetExists = errors.New("output file already exists")
)

// UnsafePathError names the link that made an output path unsafe.
type UnsafePathError struct {
	Path string
	At   string
	Kind string // "symlink" or "reparse point"
}

func (e *UnsafePathError) Error() string {
	if e.At == e.Path {
		return fmt.Sprintf("refusing to write %s: it is a %s", e.Path, e.Kind)
	}
	return fmt.Sprintf("refusing to write %s: %s at %s", e.Path, e.Kind, e.At)
}

func (e *UnsafePathError) Unwrap() error { return ErrUnsafePath }

// CheckOutputPath rejects a path when it, or any directory above it, is a
// symlink or reparse point. Components that do not exist yet are fine.
func CheckOutputPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("output path is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve output path: %w", err)
	}

	for _, p := range ancestry(abs) {
		info, err := os.Lstat(p)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to inspect %s: %w", p, err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return &UnsafePathError{Path: abs, At: p, Kind: "symlink"}
		}
		reparse, err := isReparsePoint(p)
		if err != nil {
			return fmt.Errorf("failed to inspect %s: %w", p, err)
		}
		if reparse {
			return &UnsafePathError{Path: abs, At: p, Kind: "reparse point"}
		}
	}
	return nil
}

// ancestry lists abs and its parents from the root down, root excluded.
func ancestry(abs string) []string {
	var chain []string
	for p := abs; ; {
		parent := filepath.Dir(p)
		if parent == p {
			break
		}
		chain = append(chain, p)
		p = parent
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}
