//go:build windows

package files

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
)

// publish moves the finished temp file to its final name. MoveFileEx only
// replaces an existing file when asked to.
func publish(tmpPath, path string, replace bool) error {
	from, err := windows.UTF16PtrFromString(tmpPath)
	if err != nil {
		return fmt.Errorf("invalid temp path: %w", err)
	}
	to, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}

	flags := uint32(windows.MOVEFILE_WRITE_THROUGH)
	if replace {
		flags |= windows.MOVEFILE_REPLACE_EXISTING
	}
	err = windows.MoveFileEx(from, to, flags)
	if errors.Is(err, windows.ERROR_ALREADY_EXISTS) || errors.Is(err, windows.ERROR_FILE_EXISTS) {
		return fmt.Errorf("%w: %s", ErrTargetExists, path)
	}
	return err
}
