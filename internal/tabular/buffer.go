// Package tabular holds the in-memory table snapshot that flows between the
// extraction steps and the sinks, plus the key sets derived from it.
//
// A Buffer is schema-tagged (ordered, unique column names) and immutable once
// built: every operation that changes shape or content returns a new Buffer.
// Callers may read Rows() but must not write through it.
package tabular

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
)

// ErrColumnNotFound is returned when a requested column is absent from a
// buffer. It usually signals drift between configuration and source schema.
var ErrColumnNotFound = errors.New("column not found")

// Buffer is a materialized table snapshot.
type Buffer struct {
	columns []string
	index   map[string]int
	rows    [][]any
}

// NewBuffer validates columns and rows and returns a Buffer that owns copies
// of both slices' headers. Column names must be non-empty and unique; every
// row must have exactly len(columns) values.
func NewBuffer(columns []string, rows [][]any) (*Buffer, error) {
	cols := make([]string, len(columns))
	copy(cols, columns)

	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		if c == "" {
			return nil, fmt.Errorf("tabular: column %d has empty name", i)
		}
		if _, dup := idx[c]; dup {
			return nil, fmt.Errorf("tabular: duplicate column %q", c)
		}
		idx[c] = i
	}

	out := make([][]any, len(rows))
	for i, r := range rows {
		if len(r) != len(cols) {
			return nil, fmt.Errorf("tabular: row %d has %d values, want %d", i, len(r), len(cols))
		}
		out[i] = r
	}
	return &Buffer{columns: cols, index: idx, rows: out}, nil
}

// Empty returns a zero-row buffer with the given columns. It panics on
// duplicate or empty column names, which are programming errors here.
func Empty(columns []string) *Buffer {
	b, err := NewBuffer(columns, nil)
	if err != nil {
		panic(err)
	}
	return b
}

// Columns returns a copy of the ordered column names.
func (b *Buffer) Columns() []string {
	out := make([]string, len(b.columns))
	copy(out, b.columns)
	return out
}

// NumColumns reports the number of declared columns.
func (b *Buffer) NumColumns() int { return len(b.columns) }

// Rows returns the row slice. It is shared, not copied.
func (b *Buffer) Rows() [][]any { return b.rows }

// Len reports the number of rows.
func (b *Buffer) Len() int { return len(b.rows) }

// ColumnIndex resolves a column name. An exact match wins; otherwise a single
// case-insensitive match is accepted, since desktop sources treat identifiers
// case-insensitively.
func (b *Buffer) ColumnIndex(name string) (int, bool) {
	if i, ok := b.index[name]; ok {
		return i, true
	}
	found := -1
	for i, c := range b.columns {
		if strings.EqualFold(c, name) {
			if found >= 0 {
				return -1, false
			}
			found = i
		}
	}
	return found, found >= 0
}

// Concat returns a new buffer holding b's rows followed by other's rows. The
// column lists must be identical (same names, same order).
func (b *Buffer) Concat(other *Buffer) (*Buffer, error) {
	if other == nil {
		return b, nil
	}
	if len(b.columns) != len(other.columns) {
		return nil, fmt.Errorf("tabular: concat column count %d != %d", len(b.columns), len(other.columns))
	}
	for i := range b.columns {
		if b.columns[i] != other.columns[i] {
			return nil, fmt.Errorf("tabular: concat column %d is %q, want %q", i, other.columns[i], b.columns[i])
		}
	}
	rows := make([][]any, 0, len(b.rows)+len(other.rows))
	rows = append(rows, b.rows...)
	rows = append(rows, other.rows...)
	return &Buffer{columns: b.columns, index: b.index, rows: rows}, nil
}

// Fingerprint returns an xxh3 hash over the column names and every value in
// row order. Two buffers with equal columns and equal values hash equally,
// which makes re-runs against an unchanged source easy to compare.
func (b *Buffer) Fingerprint() uint64 {
	h := xxh3.New()
	var num [8]byte
	for _, c := range b.columns {
		_, _ = h.WriteString(c)
		_, _ = h.Write([]byte{0})
	}
	_, _ = h.Write([]byte{0xff})
	for _, r := range b.rows {
		for _, v := range r {
			switch x := v.(type) {
			case nil:
				_, _ = h.Write([]byte{'n'})
			case int64:
				binary.LittleEndian.PutUint64(num[:], uint64(x))
				_, _ = h.Write([]byte{'i'})
				_, _ = h.Write(num[:])
			case float64:
				binary.LittleEndian.PutUint64(num[:], math.Float64bits(x))
				_, _ = h.Write([]byte{'f'})
				_, _ = h.Write(num[:])
			case time.Time:
				binary.LittleEndian.PutUint64(num[:], uint64(x.Unix()))
				_, _ = h.Write([]byte{'t'})
				_, _ = h.Write(num[:])
			case []byte:
				_, _ = h.Write([]byte{'b'})
				_, _ = h.Write(x)
			default:
				_, _ = h.Write([]byte{'s'})
				_, _ = h.WriteString(FormatValue(v))
			}
			_, _ = h.Write([]byte{0})
		}
		_, _ = h.Write([]byte{'\n'})
	}
	return h.Sum64()
}

// TimeLayout is the canonical text rendering of normalized temporal values.
const TimeLayout = "2006-01-02 15:04:05"

// FormatValue renders a buffer value as text for flat-file and display use.
// nil renders as the empty string.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(TimeLayout)
	default:
		return fmt.Sprint(x)
	}
}
