package datasource

import (
	"database/sql"
	"fmt"
	"iter"
	"unicode/utf8"

	"tkexport/internal/tabular"
)

// Cursor is a lazy, single-pass view over a query result. It owns the
// underlying *sql.Rows and closes them when iteration ends.
type Cursor struct {
	rows     *sql.Rows
	cols     []string
	table    string
	consumed bool
	onField  func(FieldReadError)
}

func newCursor(rows *sql.Rows, table string, onField func(FieldReadError)) (*Cursor, error) {
	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, err
	}
	return &Cursor{rows: rows, cols: cols, table: table, onField: onField}, nil
}

// Columns returns the result's column names in native order.
func (c *Cursor) Columns() []string { return c.cols }

// All yields rows until the result is exhausted or the consumer stops. A
// second call yields ErrCursorConsumed once.
func (c *Cursor) All() iter.Seq2[[]any, error] {
	return func(yield func([]any, error) bool) {
		if c.consumed {
			yield(nil, ErrCursorConsumed)
			return
		}
		c.consumed = true
		defer c.rows.Close()

		scanners := make([]fieldScanner, len(c.cols))
		dest := make([]any, len(c.cols))
		for i := range scanners {
			dest[i] = &scanners[i]
		}

		n := 0
		for c.rows.Next() {
			for i := range scanners {
				scanners[i] = fieldScanner{}
			}
			row := make([]any, len(c.cols))
			if err := c.rows.Scan(dest...); err != nil {
				// Whole-row scan failure: every field degrades to nil.
				for i := range row {
					c.report(n, i, err)
				}
			} else {
				for i := range scanners {
					row[i] = scanners[i].val
					if scanners[i].err != nil {
						c.report(n, i, scanners[i].err)
					}
				}
			}
			n++
			if !yield(row, nil) {
				return
			}
		}
		if err := c.rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Close releases the result set. Safe after iteration.
func (c *Cursor) Close() error { return c.rows.Close() }

func (c *Cursor) report(row, col int, err error) {
	if c.onField == nil {
		return
	}
	c.onField(FieldReadError{Table: c.table, Column: c.cols[col], Row: row, Err: err})
}

// fieldScanner accepts any driver value and never fails the scan. Values
// that cannot be represented are stored as nil with err set.
type fieldScanner struct {
	val any
	err error
}

func (f *fieldScanner) Scan(src any) (ret error) {
	defer func() {
		if r := recover(); r != nil {
			f.val = nil
			f.err = fmt.Errorf("panic converting %T: %v", src, r)
			ret = nil
		}
	}()

	if out, temporal, ok := tabular.NormalizeTemporal(src); temporal {
		if !ok {
			f.err = fmt.Errorf("unrepresentable temporal value %v", src)
			return nil
		}
		f.val = out
		return nil
	}

	switch x := src.(type) {
	case nil:
		f.val = nil
	case []byte:
		if utf8.Valid(x) {
			f.val = string(x)
		} else {
			f.val = append([]byte(nil), x...)
		}
	case int:
		f.val = int64(x)
	case int32:
		f.val = int64(x)
	case int16:
		f.val = int64(x)
	case int8:
		f.val = int64(x)
	case uint8:
		f.val = int64(x)
	case uint16:
		f.val = int64(x)
	case uint32:
		f.val = int64(x)
	case float32:
		f.val = float64(x)
	case int64, float64, bool, string:
		f.val = x
	case fmt.Stringer:
		f.val = x.String()
	default:
		f.err = fmt.Errorf("unsupported field type %T", src)
	}
	return nil
}
