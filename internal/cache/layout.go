package cache

import (
	"path/filepath"

	"github.com/ppiankov/postcache/internal/snapshot"
	"github.com/ppiankov/postcache/internal/store"
)

// FileLayout keeps one CSV snapshot per key under Dir.
type FileLayout struct {
	Dir string
}

func (l FileLayout) For(key Key) Snapshot {
	return snapshot.New(filepath.Join(l.Dir, key.FileName(".csv")))
}

func (l FileLayout) LockName(key Key) string {
	return key.Fingerprint()
}

// FixedLayout maps every key to the same CSV file. A snapshot saved for one
// account is returned for any other account until it is cleared.
type FixedLayout struct {
	Path string
}

func (l FixedLayout) For(Key) Snapshot {
	return snapshot.New(l.Path)
}

func (l FixedLayout) LockName(Key) string {
	return filepath.Base(snapshot.New(l.Path).Path())
}

// StoreLayout keeps keyed snapshots in a SQLite store.
type StoreLayout struct {
	Store *store.Store
}

func (l StoreLayout) For(key Key) Snapshot {
	return l.Store.Entry(store.SnapshotKey{
		CacheKey: key.Fingerprint(),
		Provider: key.Provider,
		Account:  key.Account,
		MaxCount: key.MaxCount,
	})
}

func (l StoreLayout) LockName(key Key) string {
	return key.Fingerprint()
}
