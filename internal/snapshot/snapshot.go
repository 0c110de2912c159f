// Package snapshot persists a record set as a two-column CSV file.
//
// A snapshot file is the cache: its presence alone means the records were
// fetched before. Save replaces the file through a temp file and rename, so a
// reader sees either the old records or the new ones.
package snapshot

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ppiankov/postcache/internal/record"
)

// DefaultPath is the snapshot location used when none is configured.
const DefaultPath = "./tweets.csv"

// File is a snapshot stored at a single path.
type File struct {
	path string
}

// New returns a snapshot backed by the file at path. An empty path selects
// DefaultPath.
func New(path string) *File {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}
	return &File{path: path}
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

// Exists reports whether the snapshot file is present.
func (f *File) Exists(_ context.Context) (bool, error) {
	info, err := os.Stat(f.path)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
		return false, nil
	}
	if err != nil {
		return false, ioError("stat", f.path, err)
	}
	return info.Mode().IsRegular(), nil
}

// Load reads every record in file order.
func (f *File) Load(ctx context.Context) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(f.path)
	if err != nil {
		return nil, ioError("open", f.path, err)
	}
	defer func() { _ = file.Close() }()

	records, err := readRecords(file)
	if err != nil {
		if errors.Is(err, ErrParse) {
			return nil, fmt.Errorf("load %s: %w", f.path, err)
		}
		return nil, ioError("read", f.path, err)
	}
	return records, nil
}

// Save replaces the snapshot with records.
func (f *File) Save(ctx context.Context, records []record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ioError("create dir", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return ioError("create", f.path, err)
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err := writeRecords(bw, records); err != nil {
		return ioError("write", tmpPath, err)
	}
	if err := bw.Flush(); err != nil {
		return ioError("flush", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		return ioError("sync", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return ioError("close", tmpPath, err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		_ = os.Remove(tmpPath)
		committed = true
		return ioError("rename", f.path, err)
	}
	committed = true

	return nil
}

// Clear removes the snapshot file. A missing file is not an error.
func (f *File) Clear(_ context.Context) error {
	err := os.Remove(f.path)
	if err == nil || errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
		return nil
	}
	return ioError("remove", f.path, err)
}
