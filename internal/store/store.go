// Package store keeps keyed record snapshots in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/postcache/internal/record"
	"github.com/ppiankov/postcache/internal/snapshot"

	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// SnapshotKey identifies one stored snapshot. CacheKey is the primary key;
// the remaining fields are kept for listing.
type SnapshotKey struct {
	CacheKey string
	Provider string
	Account  string
	MaxCount int
}

// SnapshotInfo describes a stored snapshot.
type SnapshotInfo struct {
	SnapshotKey
	Records   int
	CreatedAt time.Time
}

func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("path is required")
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 10000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Entry returns the snapshot stored under key. The entry is a handle; nothing
// is read or written until one of its methods is called.
func (s *Store) Entry(key SnapshotKey) *Entry {
	return &Entry{st: s, key: key}
}

// List returns all stored snapshots ordered by provider and account.
func (s *Store) List(ctx context.Context) ([]SnapshotInfo, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.cache_key, s.provider, s.account, s.max_count, s.created_at, COUNT(r.position)
		FROM snapshots s
		LEFT JOIN snapshot_records r ON r.cache_key = s.cache_key
		GROUP BY s.cache_key
		ORDER BY s.provider, s.account, s.max_count
	`)
	if err != nil {
		return nil, ioError("list snapshots", err)
	}
	defer func() { _ = rows.Close() }()

	var infos []SnapshotInfo
	for rows.Next() {
		var (
			info      SnapshotInfo
			createdAt string
		)
		if err := rows.Scan(&info.CacheKey, &info.Provider, &info.Account, &info.MaxCount, &createdAt, &info.Records); err != nil {
			return nil, ioError("scan snapshot", err)
		}
		info.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, ioError("iterate snapshots", err)
	}

	return infos, nil
}

// ClearAll deletes every snapshot and returns how many were removed.
func (s *Store) ClearAll(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, ioError("begin clear", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshot_records"); err != nil {
		return 0, ioError("clear records", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM snapshots")
	if err != nil {
		return 0, ioError("clear snapshots", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, ioError("commit clear", err)
	}

	n, _ := res.RowsAffected()
	return n, nil
}

// Entry is one keyed snapshot in the store.
type Entry struct {
	st  *Store
	key SnapshotKey
}

// Exists reports whether a snapshot was saved under the entry's key.
func (e *Entry) Exists(ctx context.Context) (bool, error) {
	if err := e.check(); err != nil {
		return false, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var one int
	err := e.st.db.QueryRowContext(ctx, "SELECT 1 FROM snapshots WHERE cache_key = ?", e.key.CacheKey).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, ioError("lookup snapshot", err)
	}
	return true, nil
}

// Load returns the stored records in saved order.
func (e *Entry) Load(ctx context.Context) ([]record.Record, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	exists, err := e.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ioError("load snapshot", fmt.Errorf("no snapshot for %s/%s", e.key.Provider, e.key.Account))
	}

	rows, err := e.st.db.QueryContext(ctx, `
		SELECT record_id, text
		FROM snapshot_records
		WHERE cache_key = ?
		ORDER BY position ASC
	`, e.key.CacheKey)
	if err != nil {
		return nil, ioError("load snapshot", err)
	}
	defer func() { _ = rows.Close() }()

	records := []record.Record{}
	for rows.Next() {
		var r record.Record
		if err := rows.Scan(&r.ID, &r.Text); err != nil {
			return nil, ioError("scan record", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, ioError("iterate records", err)
	}

	return records, nil
}

// Save replaces the snapshot in a single transaction.
func (e *Entry) Save(ctx context.Context, records []record.Record) error {
	if err := e.check(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	tx, err := e.st.db.BeginTx(ctx, nil)
	if err != nil {
		return ioError("begin save", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteEntry(ctx, tx, e.key.CacheKey); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (cache_key, provider, account, max_count, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.key.CacheKey, e.key.Provider, e.key.Account, e.key.MaxCount, formatTime(e.st.now())); err != nil {
		return ioError("insert snapshot", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_records (cache_key, position, record_id, text)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return ioError("prepare insert", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, e.key.CacheKey, i, r.ID, r.Text); err != nil {
			return ioError("insert record", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ioError("commit save", err)
	}
	return nil
}

// Clear deletes the snapshot. A missing snapshot is not an error.
func (e *Entry) Clear(ctx context.Context) error {
	if err := e.check(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	tx, err := e.st.db.BeginTx(ctx, nil)
	if err != nil {
		return ioError("begin clear", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteEntry(ctx, tx, e.key.CacheKey); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return ioError("commit clear", err)
	}
	return nil
}

func (e *Entry) check() error {
	if e == nil || e.st == nil || e.st.db == nil {
		return errors.New("store is not initialized")
	}
	if strings.TrimSpace(e.key.CacheKey) == "" {
		return errors.New("cache key is required")
	}
	return nil
}

func deleteEntry(ctx context.Context, tx *sql.Tx, cacheKey string) error {
	// Records first: foreign_keys is per connection and not relied on here.
	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshot_records WHERE cache_key = ?", cacheKey); err != nil {
		return ioError("delete records", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshots WHERE cache_key = ?", cacheKey); err != nil {
		return ioError("delete snapshot", err)
	}
	return nil
}

func ioError(op string, err error) error {
	return fmt.Errorf("%w: store: %s: %w", snapshot.ErrIO, op, err)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return time.Time{}.UTC().Format(time.RFC3339Nano)
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, value)
}
