// Package file resolves local, file-backed inputs: desktop database files
// used as export sources and the SQL scripts run against finished exports.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNotRegular is returned when a path exists but is not a regular file.
var ErrNotRegular = errors.New("not a regular file")

// Local is a file on the local disk.
type Local struct{ path string }

// NewLocal returns a Local bound to path. Nothing is touched until a method
// is called.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the bound path.
func (l *Local) Path() string { return l.path }

// Check verifies that the path names an existing regular file. Errors keep
// os.ErrNotExist visible to errors.Is.
func (l *Local) Check(ctx context.Context) (os.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.path == "" {
		return nil, fmt.Errorf("empty path: %w", os.ErrNotExist)
	}
	fi, err := os.Stat(l.path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", l.path, err)
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: %w", l.path, ErrNotRegular)
	}
	return fi, nil
}

// Open opens the file for reading.
//
// Behavior:
//   - If the context is already done, Open returns its error without
//     touching the filesystem.
//   - Filesystem errors are wrapped with the path and remain matchable with
//     errors.Is (e.g. os.ErrNotExist).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

// ReadString returns the whole file as text.
func (l *Local) ReadString(ctx context.Context) (string, error) {
	rc, err := l.Open(ctx)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", l.path, err)
	}
	return string(b), nil
}
