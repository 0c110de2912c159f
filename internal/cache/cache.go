// Package cache decides whether posts come from a local snapshot or from the
// remote provider, and persists fresh fetches.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/postcache/internal/record"
	"github.com/ppiankov/postcache/internal/source"
)

// Snapshot is one persisted record set.
type Snapshot interface {
	Exists(ctx context.Context) (bool, error)
	Load(ctx context.Context) ([]record.Record, error)
	Save(ctx context.Context, records []record.Record) error
	Clear(ctx context.Context) error
}

// Layout maps request keys to snapshots.
type Layout interface {
	// For returns the snapshot holding records for key.
	For(key Key) Snapshot

	// LockName names the mutual-exclusion domain of key. Keys sharing a
	// snapshot must share a lock name.
	LockName(key Key) string
}

// Locker serializes the check-fetch-save sequence across processes.
type Locker interface {
	Lock(ctx context.Context, name string) (unlock func() error, err error)
}

// Result is the outcome of Get.
type Result struct {
	Records []record.Record

	// FromSnapshot is true when records were loaded instead of fetched.
	FromSnapshot bool

	// SaveErr is set when fresh records were fetched but could not be
	// persisted. Records are still valid; the next Get will fetch again.
	SaveErr error
}

// Cache is the fetch-or-load orchestrator.
type Cache struct {
	provider source.Provider
	layout   Layout
	locker   Locker
}

// Option configures a Cache.
type Option func(*Cache)

// WithLocker sets the locker held around each Get. The default does not lock.
func WithLocker(l Locker) Option {
	return func(c *Cache) {
		if l != nil {
			c.locker = l
		}
	}
}

// New creates a cache reading from provider and persisting through layout.
func New(provider source.Provider, layout Layout, opts ...Option) (*Cache, error) {
	if provider == nil {
		return nil, errors.New("cache: provider is required")
	}
	if layout == nil {
		return nil, errors.New("cache: layout is required")
	}

	c := &Cache{provider: provider, layout: layout, locker: noLock{}}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Key returns the cache key for a request.
func (c *Cache) Key(account string, maxCount int) Key {
	return Key{Provider: c.provider.Name(), Account: account, MaxCount: maxCount}
}

// Get returns the records for account. When a snapshot exists for the
// request it is loaded and the provider is not called. Otherwise up to
// maxCount posts are fetched, reduced to records and saved. A failed save is
// reported in Result.SaveErr, not as an error.
func (c *Cache) Get(ctx context.Context, account string, maxCount int) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(account) == "" {
		return Result{}, fmt.Errorf("%w: account is required", ErrInvalidArgument)
	}
	if maxCount < 0 {
		return Result{}, fmt.Errorf("%w: max count %d is negative", ErrInvalidArgument, maxCount)
	}

	key := c.Key(account, maxCount)

	unlock, err := c.locker.Lock(ctx, c.layout.LockName(key))
	if err != nil {
		return Result{}, fmt.Errorf("lock %s: %w", key, err)
	}
	defer func() { _ = unlock() }()

	snap := c.layout.For(key)

	exists, err := snap.Exists(ctx)
	if err != nil {
		return Result{}, err
	}
	if exists {
		records, err := snap.Load(ctx)
		if err != nil {
			return Result{}, err
		}
		return Result{Records: records, FromSnapshot: true}, nil
	}

	posts, err := c.provider.Fetch(ctx, account, maxCount)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %w", ErrFetch, c.provider.Name(), err)
	}

	res := Result{Records: toRecords(posts, maxCount)}
	if err := snap.Save(ctx, res.Records); err != nil {
		res.SaveErr = fmt.Errorf("save snapshot for %s: %w", key, err)
	}
	return res, nil
}

// Clear removes the snapshot for a request, if any.
func (c *Cache) Clear(ctx context.Context, account string, maxCount int) error {
	return Evict(ctx, c.layout, c.locker, c.Key(account, maxCount))
}

// Evict removes the snapshot for key while holding its lock. Unlike Clear it
// needs no provider, only the provider name inside key.
func Evict(ctx context.Context, layout Layout, locker Locker, key Key) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if locker == nil {
		locker = noLock{}
	}

	unlock, err := locker.Lock(ctx, layout.LockName(key))
	if err != nil {
		return fmt.Errorf("lock %s: %w", key, err)
	}
	defer func() { _ = unlock() }()

	return layout.For(key).Clear(ctx)
}

func toRecords(posts []source.Post, maxCount int) []record.Record {
	if len(posts) > maxCount {
		posts = posts[:maxCount]
	}
	records := make([]record.Record, 0, len(posts))
	for _, p := range posts {
		records = append(records, record.Record{ID: p.ID, Text: p.Text})
	}
	return records
}

type noLock struct{}

func (noLock) Lock(context.Context, string) (func() error, error) {
	return func() error { return nil }, nil
}
