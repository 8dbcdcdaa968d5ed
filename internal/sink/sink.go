// Package sink persists one materialized table into both destinations of an
// export: the table store and the file sink.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log"

	"tkexport/internal/tabular"
)

var (
	// ErrTableStoreWrite marks failures writing or verifying the table store.
	ErrTableStoreWrite = errors.New("table store write failed")
	// ErrFileSinkWrite marks failures writing a file artifact.
	ErrFileSinkWrite = errors.New("file sink write failed")
)

// WriteError reports which sink failed for which table.
type WriteError struct {
	Table string
	// Kind is ErrTableStoreWrite or ErrFileSinkWrite.
	Kind error
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%v: table=%s: %v", e.Kind, e.Table, e.Err)
}

func (e *WriteError) Unwrap() []error { return []error{e.Kind, e.Err} }

// TableStore is the table-store half of a load. storage.Repository
// satisfies it.
type TableStore interface {
	ReplaceTable(ctx context.Context, table string, buf *tabular.Buffer) (int64, error)
	CountRows(ctx context.Context, table string) (int64, error)
}

// FileSink is the file half of a load. *filesink.Sink satisfies it.
type FileSink interface {
	Write(ctx context.Context, table string, buf *tabular.Buffer) (string, error)
}

// Result describes one completed load.
type Result struct {
	Table    string
	Rows     int
	Stored   int64
	Artifact string
}

// Loader writes every table to Files then Store. Either may be nil to skip
// that sink.
type Loader struct {
	Store TableStore
	Files FileSink
	// SkipVerify disables the post-load row count.
	SkipVerify bool
}

// Load writes buf under table into both sinks. buf is shared, not copied;
// Buffers are immutable so both sinks see the same snapshot. There is no
// rollback of the first sink when the second fails.
func (l *Loader) Load(ctx context.Context, table string, buf *tabular.Buffer) (Result, error) {
	res := Result{Table: table, Rows: buf.Len()}

	if l.Files != nil {
		path, err := l.Files.Write(ctx, table, buf)
		if err != nil {
			return res, &WriteError{Table: table, Kind: ErrFileSinkWrite, Err: err}
		}
		res.Artifact = path
	}

	if l.Store != nil {
		n, err := l.Store.ReplaceTable(ctx, table, buf)
		if err != nil {
			return res, &WriteError{Table: table, Kind: ErrTableStoreWrite, Err: err}
		}
		res.Stored = n
		if !l.SkipVerify && buf.NumColumns() > 0 {
			got, err := l.Store.CountRows(ctx, table)
			if err != nil {
				return res, &WriteError{Table: table, Kind: ErrTableStoreWrite, Err: fmt.Errorf("verify: %w", err)}
			}
			if got != int64(buf.Len()) {
				return res, &WriteError{Table: table, Kind: ErrTableStoreWrite,
					Err: fmt.Errorf("verify: stored %d rows, expected %d", got, buf.Len())}
			}
			res.Stored = got
		}
	}

	log.Printf("sink: table=%s rows=%d stored=%d artifact=%s", table, res.Rows, res.Stored, res.Artifact)
	return res, nil
}
