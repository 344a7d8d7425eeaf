//go:build !windows

package files

import (
	"errors"
	"fmt"
	"os"

	"github.com/oukeidos/lapsectl/internal/logger"
)

// publish moves the finished temp file to its final name. Without replace
// the final name is claimed with a hard link, which fails if it exists.
func publish(tmpPath, path string, replace bool) error {
	if replace {
		return os.Rename(tmpPath, path)
	}

	err := os.Link(tmpPath, path)
	switch {
	case err == nil:
		if err := os.Remove(tmpPath); err != nil {
			logger.Debug("Temp file left after publish", "path", tmpPath, "error", err)
		}
		return nil
	case errors.Is(err, os.ErrExist):
		return fmt.Errorf("%w: %s", ErrTargetExists, path)
	}

	// Some filesystems (FAT, SMB mounts) refuse hard links.
	logger.Debug("Hard link unavailable; falling back to checked rename", "path", path, "error", err)
	if _, statErr := os.Lstat(path); statErr == nil {
		return fmt.Errorf("%w: %s", ErrTargetExists, path)
	}
	return os.Rename(tmpPath, path)
}
