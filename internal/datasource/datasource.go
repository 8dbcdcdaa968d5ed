// Package datasource reads tables out of a relational source database into
// materialized tabular.Buffers.
//
// Concrete source kinds (sqlite, mssql, postgres, mysql) live in subpackages
// and register an Opener from init; import datasource/all to link them all.
// A Reader is single-threaded and strictly sequential: one query at a time,
// no pooling, no retries.
package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	// ErrSourceUnavailable reports that the source could not be opened or
	// reached. It is fatal and surfaces before any sink is touched.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrQueryExecution reports that the source rejected or failed a query.
	ErrQueryExecution = errors.New("query execution failed")

	// ErrCursorConsumed is yielded when a Cursor is iterated a second time.
	ErrCursorConsumed = errors.New("cursor already consumed")
)

// QueryError carries the table and filter of a failed source query. It
// matches ErrQueryExecution under errors.Is.
type QueryError struct {
	Table  string
	Filter string
	Err    error
}

func (e *QueryError) Error() string {
	if e.Filter == "" {
		return fmt.Sprintf("query %s: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("query %s (%s): %v", e.Table, e.Filter, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

func (e *QueryError) Is(target error) bool { return target == ErrQueryExecution }

// FieldReadError describes one field that could not be read or converted.
// It is recovered locally: the field becomes nil and the row survives.
type FieldReadError struct {
	Table  string
	Column string
	Row    int
	Err    error
}

func (e FieldReadError) Error() string {
	return fmt.Sprintf("read %s.%s row %d: %v", e.Table, e.Column, e.Row, e.Err)
}

// Config selects and parameterizes a source kind.
type Config struct {
	Kind string
	// Path is used by file-backed kinds (sqlite).
	Path string
	// DSN is used by server kinds.
	DSN string
	// ChunkSize bounds the number of keys per IN query. 0 sends one query.
	ChunkSize int
	// SkipSchemaProbe makes empty key sets yield an empty column list instead
	// of a zero-row probe query.
	SkipSchemaProbe bool
	// ConnectTimeout bounds the initial ping. 0 means 10s.
	ConnectTimeout time.Duration
	// ProgressEvery logs a progress line every N rows during long reads.
	ProgressEvery int
}

// Opener opens a *sql.DB for one source kind and reports its dialect. It
// should not ping; Open does that uniformly.
type Opener func(ctx context.Context, cfg Config) (*sql.DB, Dialect, error)

var (
	mu      sync.RWMutex
	openers = map[string]Opener{}
)

// Register makes an Opener available under kind. Registering the same kind
// twice replaces the previous opener.
func Register(kind string, o Opener) {
	mu.Lock()
	defer mu.Unlock()
	openers[kind] = o
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(openers))
	for k := range openers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Open connects to the configured source and returns a ready Reader. Every
// failure wraps ErrSourceUnavailable.
func Open(ctx context.Context, cfg Config) (*Reader, error) {
	mu.RLock()
	o, ok := openers[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unsupported source.kind=%s", ErrSourceUnavailable, cfg.Kind)
	}

	db, d, err := o(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", ErrSourceUnavailable, cfg.Kind, err)
	}
	if cfg.SkipSchemaProbe {
		d.NoSchemaProbe = true
	}

	r := NewReader(db, d, cfg.ChunkSize)
	r.ProgressEvery = cfg.ProgressEvery
	r.owned = true
	return r, nil
}
