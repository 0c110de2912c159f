package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/ppiankov/postcache/internal/record"
	"github.com/ppiankov/postcache/internal/snapshot"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "postcache.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st, path
}

func testKey(account string, maxCount int) SnapshotKey {
	return SnapshotKey{
		CacheKey: "key-" + account,
		Provider: "twitter",
		Account:  account,
		MaxCount: maxCount,
	}
}

func TestOpenAndMigrate(t *testing.T) {
	st, path := openTestStore(t)

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file not created: %v", err)
	}

	var version string
	if err := st.db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&version); err != nil {
		t.Fatalf("read schema version: %v", err)
	}
	if version != "1" {
		t.Fatalf("unexpected schema version: %s", version)
	}
}

func TestOpen_Reopen(t *testing.T) {
	st, path := openTestStore(t)
	ctx := context.Background()

	if err := st.Entry(testKey("acct", 10)).Save(ctx, []record.Record{{ID: 1, Text: "kept"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	_ = st.Close()

	st2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = st2.Close() }()

	got, err := st2.Entry(testKey("acct", 10)).Load(ctx)
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if len(got) != 1 || got[0].Text != "kept" {
		t.Errorf("got %v", got)
	}
}

func TestOpen_NewerSchemaRejected(t *testing.T) {
	st, path := openTestStore(t)
	if _, err := st.db.Exec("UPDATE metadata SET value = '99' WHERE key = 'schema_version'"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = st.Close()

	if _, err := Open(path); err == nil {
		t.Fatal("expected error for newer schema version")
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestEntry_SaveLoadRoundTrip(t *testing.T) {
	st, _ := openTestStore(t)
	ctx := context.Background()
	entry := st.Entry(testKey("acct", 200))

	records := []record.Record{
		{ID: 1, Text: "hello world"},
		{ID: 2, Text: "a, b"},
		{ID: 3, Text: "multi\r\nline \"quoted\""},
		{ID: 3, Text: "duplicate id"},
		{ID: 4, Text: ""},
	}
	if err := entry.Save(ctx, records); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := entry.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, records) {
		t.Fatalf("got %v, want %v", got, records)
	}
}

func TestEntry_SaveReplaces(t *testing.T) {
	st, _ := openTestStore(t)
	ctx := context.Background()
	entry := st.Entry(testKey("acct", 200))

	if err := entry.Save(ctx, []record.Record{{ID: 1, Text: "a"}, {ID: 2, Text: "b"}}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := entry.Save(ctx, []record.Record{{ID: 3, Text: "c"}}); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := entry.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []record.Record{{ID: 3, Text: "c"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEntry_KeysAreIsolated(t *testing.T) {
	st, _ := openTestStore(t)
	ctx := context.Background()

	a := st.Entry(testKey("alice", 10))
	b := st.Entry(testKey("bob", 10))

	if err := a.Save(ctx, []record.Record{{ID: 1, Text: "alice post"}}); err != nil {
		t.Fatalf("save alice: %v", err)
	}

	exists, err := b.Exists(ctx)
	if err != nil {
		t.Fatalf("exists bob: %v", err)
	}
	if exists {
		t.Fatal("bob snapshot should not exist")
	}

	if err := b.Clear(ctx); err != nil {
		t.Fatalf("clear bob: %v", err)
	}
	if exists, _ := a.Exists(ctx); !exists {
		t.Fatal("clearing bob removed alice")
	}
}

func TestEntry_EmptySnapshotExists(t *testing.T) {
	st, _ := openTestStore(t)
	ctx := context.Background()
	entry := st.Entry(testKey("quiet", 0))

	if err := entry.Save(ctx, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	exists, err := entry.Exists(ctx)
	if err != nil || !exists {
		t.Fatalf("exists = %v, %v; want true", exists, err)
	}
	got, err := entry.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty non-nil slice", got)
	}
}

func TestEntry_LoadMissing(t *testing.T) {
	st, _ := openTestStore(t)
	_, err := st.Entry(testKey("nobody", 5)).Load(context.Background())
	if !errors.Is(err, snapshot.ErrIO) {
		t.Fatalf("err = %v, want snapshot.ErrIO", err)
	}
}

func TestEntry_Clear(t *testing.T) {
	st, _ := openTestStore(t)
	ctx := context.Background()
	entry := st.Entry(testKey("acct", 1))

	if err := entry.Clear(ctx); err != nil {
		t.Fatalf("clear missing: %v", err)
	}
	if err := entry.Save(ctx, []record.Record{{ID: 1, Text: "x"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := entry.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if exists, _ := entry.Exists(ctx); exists {
		t.Fatal("snapshot still exists after clear")
	}

	var n int
	if err := st.db.QueryRow("SELECT COUNT(*) FROM snapshot_records").Scan(&n); err != nil {
		t.Fatalf("count records: %v", err)
	}
	if n != 0 {
		t.Errorf("orphan records = %d, want 0", n)
	}
}

func TestEntry_ClosedStore(t *testing.T) {
	st, _ := openTestStore(t)
	_ = st.Close()

	err := st.Entry(testKey("acct", 1)).Save(context.Background(), []record.Record{{ID: 1, Text: "x"}})
	if !errors.Is(err, snapshot.ErrIO) {
		t.Fatalf("err = %v, want snapshot.ErrIO", err)
	}
}

func TestEntry_RequiresCacheKey(t *testing.T) {
	st, _ := openTestStore(t)
	if _, err := st.Entry(SnapshotKey{}).Exists(context.Background()); err == nil {
		t.Fatal("expected error for empty cache key")
	}
}

func TestListAndClearAll(t *testing.T) {
	st, _ := openTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return created }

	if err := st.Entry(testKey("bob", 5)).Save(ctx, []record.Record{{ID: 1, Text: "a"}}); err != nil {
		t.Fatalf("save bob: %v", err)
	}
	if err := st.Entry(testKey("alice", 10)).Save(ctx, []record.Record{{ID: 1, Text: "a"}, {ID: 2, Text: "b"}}); err != nil {
		t.Fatalf("save alice: %v", err)
	}

	infos, err := st.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("list = %d entries, want 2", len(infos))
	}
	if infos[0].Account != "alice" || infos[0].Records != 2 || infos[0].MaxCount != 10 {
		t.Errorf("first entry = %+v", infos[0])
	}
	if infos[1].Account != "bob" || infos[1].Records != 1 {
		t.Errorf("second entry = %+v", infos[1])
	}
	if !infos[0].CreatedAt.Equal(created) {
		t.Errorf("created_at = %v, want %v", infos[0].CreatedAt, created)
	}

	n, err := st.ClearAll(ctx)
	if err != nil {
		t.Fatalf("clear all: %v", err)
	}
	if n != 2 {
		t.Errorf("cleared = %d, want 2", n)
	}
	infos, err = st.List(ctx)
	if err != nil {
		t.Fatalf("list after clear: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("list after clear = %v", infos)
	}
}
