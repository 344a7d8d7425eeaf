package files

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/oukeidos/lapsectl/internal/logger"
)

// maxPublishAttempts bounds how often CreateAtomic picks a new name when the
// chosen one is taken while the data is still streaming.
const maxPublishAttempts = 3

// AtomicWrite replaces path with data. Readers see either the old file or
// the new one, never a partial write.
func AtomicWrite(path string, data []byte, perms os.FileMode) error {
	if err := CheckOutputPath(path); err != nil {
		return err
	}
	tmpPath, _, err := writeTemp(filepath.Dir(path), bytes.NewReader(data), perms)
	if err != nil {
		return err
	}
	if err := publish(tmpPath, path, true); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move %s into place: %w", filepath.Base(path), err)
	}
	syncDir(filepath.Dir(path))
	return nil
}

// CreateAtomic streams r to a new file at path and returns the name it was
// saved under. An existing file is never replaced: if path is taken by the
// time the stream ends, a free name is chosen with SafePath. Nothing appears
// under the final name until the data is complete and synced.
func CreateAtomic(path string, r io.Reader, perms os.FileMode) (string, int64, error) {
	if err := CheckOutputPath(path); err != nil {
		return "", 0, err
	}
	tmpPath, n, err := writeTemp(filepath.Dir(path), r, perms)
	if err != nil {
		return "", n, err
	}

	target := path
	for attempt := 1; ; attempt++ {
		err = publish(tmpPath, target, false)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrTargetExists) || attempt == maxPublishAttempts {
			os.Remove(tmpPath)
			return "", n, err
		}
		next, _, serr := SafePath(path)
		if serr != nil {
			os.Remove(tmpPath)
			return "", n, serr
		}
		if err := CheckOutputPath(next); err != nil {
			os.Remove(tmpPath)
			return "", n, err
		}
		logger.Info("Output name taken during download; saving under a new name", "path", next)
		target = next
	}
	syncDir(filepath.Dir(target))
	return target, n, nil
}

// writeTemp copies r into a synced, closed temp file in dir. On error the
// temp file is already gone.
func writeTemp(dir string, r io.Reader, perms os.FileMode) (string, int64, error) {
	f, err := os.CreateTemp(dir, ".lapsectl-*.tmp")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := f.Name()
	fail := func(n int64, err error) (string, int64, error) {
		f.Close()
		os.Remove(tmpPath)
		return "", n, err
	}

	if err := f.Chmod(perms); err != nil {
		return fail(0, fmt.Errorf("failed to set temp file permissions: %w", err))
	}
	n, err := io.Copy(f, r)
	if err != nil {
		return fail(n, fmt.Errorf("failed after %d bytes: %w", n, err))
	}
	if err := f.Sync(); err != nil {
		return fail(n, fmt.Errorf("failed to sync temp file: %w", err))
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", n, fmt.Errorf("failed to close temp file: %w", err)
	}
	return tmpPath, n, nil
}

// syncDir makes the new directory entry durable. Failure is logged only;
// the file itself is already synced.
func syncDir(dir string) {
	if runtime.GOOS == "windows" {
		return
	}
	d, err := os.Open(dir)
	if err == nil {
		err = d.Sync()
		d.Close()
	}
	if err != nil {
		logger.Warn("Directory fsync failed (safe to ignore on some platforms)", "path", dir, "error", err)
	}
}
