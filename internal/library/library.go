package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/oukeidos/lapsectl/internal/files"
	"github.com/oukeidos/lapsectl/internal/logger"
	"github.com/oukeidos/lapsectl/internal/remote"
)

// API is the part of the remote client the library needs.
type API interface {
	Timelapses(ctx context.Context) ([]remote.Timelapse, error)
	Download(ctx context.Context, id string, w io.Writer) (int64, error)
	Delete(ctx context.Context, id string) error
}

// Library caches the list of completed timelapses.
type Library struct {
	api API

	mu    sync.Mutex
	items []remote.Timelapse
}

func New(api API) *Library {
	return &Library{api: api}
}

// ValidateID rejects anything that is not a UUID. The service names jobs
// with UUIDs, and the id ends up in a URL path and a file name.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid timelapse id %q", id)
	}
	return nil
}

// List fetches the library. The cached list is replaced only on success.
func (l *Library) List(ctx context.Context) ([]remote.Timelapse, error) {
	items, err := l.api.Timelapses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get the list of timelapses: %w", err)
	}
	l.mu.Lock()
	l.items = append([]remote.Timelapse(nil), items...)
	l.mu.Unlock()
	logger.Debug("Library loaded", "count", len(items))
	return items, nil
}

// Items returns the cached list from the last successful List.
func (l *Library) Items() []remote.Timelapse {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]remote.Timelapse(nil), l.items...)
}

// Lookup finds a cached entry by id.
func (l *Library) Lookup(id string) (remote.Timelapse, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range l.items {
		if t.ID == id {
			return t, true
		}
	}
	return remote.Timelapse{}, false
}

// Delete removes a timelapse on the service, then from the cached list.
func (l *Library) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := l.api.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete timelapse: %w", err)
	}

	l.mu.Lock()
	kept := l.items[:0]
	for _, t := range l.items {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	l.items = kept
	l.mu.Unlock()

	logger.Info("Timelapse deleted", "id", id)
	return nil
}

// Download saves the rendered video for id under dir and returns the path
// written. An existing file is never overwritten, including one that shows
// up while the video is still streaming.
func (l *Library) Download(ctx context.Context, id, dir string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}
	path, renamed, err := files.SafePath(filepath.Join(dir, id+".mp4"))
	if err != nil {
		return "", err
	}
	if renamed {
		logger.Info("Output exists; saving under a new name", "path", path)
	}

	pr, pw := io.Pipe()
	go func() {
		_, err := l.api.Download(ctx, id, pw)
		pw.CloseWithError(err)
	}()

	saved, n, err := files.CreateAtomic(path, pr, 0o644)
	pr.Close()
	switch {
	case errors.Is(err, files.ErrUnsafePath):
		return "", fmt.Errorf("refusing to save timelapse: %w", err)
	case errors.Is(err, files.ErrTargetExists):
		return "", fmt.Errorf("failed to save timelapse: no free file name next to %s: %w", path, err)
	case err != nil:
		return "", fmt.Errorf("failed to download timelapse: %w", err)
	}
	logger.Info("Timelapse downloaded", "id", id, "path", saved, "bytes", n)
	return saved, nil
}
