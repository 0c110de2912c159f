// Package lock provides cross-process mutual exclusion for snapshot
// refreshes using advisory file locks.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const retryDelay = 100 * time.Millisecond

// Files locks names as <Dir>/<name>.lock.
type Files struct {
	Dir string

	// Timeout bounds the wait for a held lock. Zero waits until ctx is done.
	Timeout time.Duration
}

// Lock blocks until the named lock is held, ctx is done or Timeout elapses.
func (f Files) Lock(ctx context.Context, name string) (func() error, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("lock: name is required")
	}
	if strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("lock: invalid name %q", name)
	}

	dir := f.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("lock: create dir: %w", err)
	}

	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	fl := flock.New(filepath.Join(dir, name+".lock"))
	locked, err := fl.TryLockContext(ctx, retryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", fl.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("lock %s: not acquired", fl.Path())
	}

	return fl.Unlock, nil
}
