package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync/atomic"

	"tkexport/internal/tabular"
)

// Reader runs the read and subset queries of an export against one source.
type Reader struct {
	db        *sql.DB
	dialect   Dialect
	chunkSize int
	owned     bool

	// ProgressEvery logs a progress line every N rows. 0 disables.
	ProgressEvery int

	fieldErrors atomic.Int64
	queries     atomic.Int64
}

// NewReader wraps an open database. chunkSize <= 0 sends every key set in a
// single IN query.
func NewReader(db *sql.DB, d Dialect, chunkSize int) *Reader {
	return &Reader{db: db, dialect: d, chunkSize: chunkSize}
}

// Dialect reports the reader's SQL dialect.
func (r *Reader) Dialect() Dialect { return r.dialect }

// FieldErrors reports how many fields degraded to nil so far.
func (r *Reader) FieldErrors() int64 { return r.fieldErrors.Load() }

// Queries reports how many queries were sent to the source so far.
func (r *Reader) Queries() int64 { return r.queries.Load() }

// Close closes the database when the Reader was created by Open.
func (r *Reader) Close() error {
	if !r.owned {
		return nil
	}
	return r.db.Close()
}

// Read materializes table, optionally restricted to an inclusive range on
// column. With no bounds the whole table is read.
func (r *Reader) Read(ctx context.Context, table, column string, rng Range) (*tabular.Buffer, error) {
	if rng.Bounded() && column == "" {
		return nil, &QueryError{Table: table, Filter: rng.String(), Err: fmt.Errorf("range filter without a column")}
	}
	q, args := rangeQuery(r.dialect, table, column, rng)
	filter := ""
	if rng.Bounded() {
		filter = fmt.Sprintf("%s in %s", column, rng)
	}
	return r.query(ctx, table, filter, q, args)
}

// Extract reads the subset of table whose filterKey is in keys.
//
// A nil keys reads the whole table. An empty keys never queries rows: the
// result is a zero-row buffer whose columns come from a zero-row probe, or
// no columns when the dialect cannot probe. Non-empty keys are split into
// batches of ChunkSize and the batch results are concatenated.
func (r *Reader) Extract(ctx context.Context, table, filterKey string, keys *tabular.KeySet) (*tabular.Buffer, error) {
	if keys == nil {
		return r.query(ctx, table, "", selectAll(r.dialect, table), nil)
	}
	filter := fmt.Sprintf("%s IN %d keys", filterKey, keys.Len())
	if keys.Empty() {
		cols, err := r.ProbeSchema(ctx, table)
		if err != nil {
			return nil, err
		}
		return tabular.NewBuffer(cols, nil)
	}

	var out *tabular.Buffer
	for _, batch := range keys.Chunks(r.chunkSize) {
		q, args := inQuery(r.dialect, table, filterKey, batch)
		buf, err := r.query(ctx, table, filter, q, args)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = buf
			continue
		}
		if out, err = out.Concat(buf); err != nil {
			return nil, &QueryError{Table: table, Filter: filter, Err: err}
		}
	}
	return out, nil
}

// ProbeSchema returns table's columns without reading rows.
func (r *Reader) ProbeSchema(ctx context.Context, table string) ([]string, error) {
	if r.dialect.NoSchemaProbe {
		return []string{}, nil
	}
	r.queries.Add(1)
	rows, err := r.db.QueryContext(ctx, probeQuery(r.dialect, table))
	if err != nil {
		return nil, &QueryError{Table: table, Filter: "schema probe", Err: err}
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, &QueryError{Table: table, Filter: "schema probe", Err: err}
	}
	return cols, nil
}

// Query runs an arbitrary read statement and materializes its result. table
// only labels errors and logs.
func (r *Reader) Query(ctx context.Context, table, q string, args ...any) (*tabular.Buffer, error) {
	return r.query(ctx, table, "", q, args)
}

// Cursor runs q and returns a lazy cursor over its rows.
func (r *Reader) Cursor(ctx context.Context, table, q string, args ...any) (*Cursor, error) {
	r.queries.Add(1)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return newCursor(rows, table, r.fieldError)
}

func (r *Reader) fieldError(e FieldReadError) {
	r.fieldErrors.Add(1)
	log.Printf("datasource: field_error table=%s column=%s row=%d err=%v", e.Table, e.Column, e.Row, e.Err)
}

func (r *Reader) query(ctx context.Context, table, filter, q string, args []any) (*tabular.Buffer, error) {
	cur, err := r.Cursor(ctx, table, q, args...)
	if err != nil {
		return nil, &QueryError{Table: table, Filter: filter, Err: err}
	}
	var rows [][]any
	for row, err := range cur.All() {
		if err != nil {
			return nil, &QueryError{Table: table, Filter: filter, Err: err}
		}
		rows = append(rows, row)
		if r.ProgressEvery > 0 && len(rows)%r.ProgressEvery == 0 {
			log.Printf("datasource: table=%s rows_read=%d", table, len(rows))
		}
	}
	buf, err := tabular.NewBuffer(cur.Columns(), rows)
	if err != nil {
		return nil, &QueryError{Table: table, Filter: filter, Err: err}
	}
	return buf, nil
}
