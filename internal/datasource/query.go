package datasource

import (
	"fmt"
	"strings"
	"time"
)

// Range is an inclusive date window. A zero bound is open.
type Range struct {
	Start time.Time
	End   time.Time
}

// Bounded reports whether either bound is set.
func (r Range) Bounded() bool { return !r.Start.IsZero() || !r.End.IsZero() }

func (r Range) String() string {
	if !r.Bounded() {
		return "all"
	}
	s, e := "-inf", "+inf"
	if !r.Start.IsZero() {
		s = r.Start.Format("2006-01-02")
	}
	if !r.End.IsZero() {
		e = r.End.Format("2006-01-02")
	}
	return s + ".." + e
}

func selectAll(d Dialect, table string) string {
	return "SELECT * FROM " + d.Quote(table)
}

func probeQuery(d Dialect, table string) string {
	return selectAll(d, table) + " WHERE 1=0"
}

// rangeQuery builds the main-table read. With no bounds it is a plain
// full-table select.
func rangeQuery(d Dialect, table, column string, r Range) (string, []any) {
	q := selectAll(d, table)
	if !r.Bounded() {
		return q, nil
	}
	col := d.timeExpr(d.Quote(column))
	var (
		conds []string
		args  []any
	)
	if !r.Start.IsZero() {
		args = append(args, d.bindTime(r.Start))
		conds = append(conds, fmt.Sprintf("%s >= %s", col, d.timeExpr(d.Placeholder(len(args)))))
	}
	if !r.End.IsZero() {
		args = append(args, d.bindTime(r.End))
		conds = append(conds, fmt.Sprintf("%s <= %s", col, d.timeExpr(d.Placeholder(len(args)))))
	}
	return q + " WHERE " + strings.Join(conds, " AND "), args
}

// inQuery builds a parameterized membership select. keys must be non-empty;
// callers handle the empty case without touching the source.
func inQuery(d Dialect, table, column string, keys []any) (string, []any) {
	if len(keys) == 0 {
		panic("datasource: inQuery with no keys")
	}
	var sb strings.Builder
	sb.WriteString(selectAll(d, table))
	sb.WriteString(" WHERE ")
	sb.WriteString(d.Quote(column))
	sb.WriteString(" IN (")
	for i := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(d.Placeholder(i + 1))
	}
	sb.WriteByte(')')
	args := make([]any, len(keys))
	copy(args, keys)
	return sb.String(), args
}
