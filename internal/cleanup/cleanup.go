package cleanup

import (
	"errors"
	"fmt"
	"sync"
)

var (
	mu    sync.Mutex
	hooks []func() error
)

// Register adds a hook run by RunAll. Hooks run in LIFO order, so a log file
// opened first is closed last.
func Register(hook func() error) {
	if hook == nil {
		return
	}
	mu.Lock()
	hooks = append(hooks, hook)
	mu.Unlock()
}

// RunAll executes and forgets every registered hook.
func RunAll() error {
	mu.Lock()
	local := hooks
	hooks = nil
	mu.Unlock()

	var errs []error
	for i := len(local) - 1; i >= 0; i-- {
		if err := local[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("cleanup failed: %w", errors.Join(errs...))
}
