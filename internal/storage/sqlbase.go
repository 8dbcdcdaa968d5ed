package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"tkexport/internal/datasource"
	"tkexport/internal/ddl"
	"tkexport/internal/tabular"
)

// SQLDialect carries the per-backend pieces of the shared database/sql path.
type SQLDialect struct {
	Name        string
	Quote       ddl.Quoter
	Placeholder func(int) string
	MapType     func(ddl.Kind) string
	// Value adapts an already coerced value to what the driver should store.
	// nil keeps values as they are.
	Value func(ddl.Kind, any) any
	// Sample renders a "first n rows" select for an already quoted table.
	Sample func(quoted string, n int) string
	// ListTablesSQL returns one table name per row.
	ListTablesSQL string
	// DescribeSQL returns (name, type) rows for the table bound to its
	// single placeholder, in column order.
	DescribeSQL string
}

// BulkFn writes one batch of rows into td's table inside tx.
type BulkFn func(ctx context.Context, tx *sql.Tx, td ddl.TableDef, rows [][]any) (int64, error)

// SQLBackend implements Repository and Inspector on top of database/sql.
// Backends embed it and override Bulk when the driver has a faster path.
type SQLBackend struct {
	DB        *sql.DB
	Dialect   SQLDialect
	BatchSize int
	Bulk      BulkFn
}

// ReplaceTable implements Repository.
func (b *SQLBackend) ReplaceTable(ctx context.Context, table string, buf *tabular.Buffer) (int64, error) {
	d := b.Dialect
	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin tx: %w", d.Name, err)
	}
	rollback := func() { _ = tx.Rollback() }

	if _, err := tx.ExecContext(ctx, ddl.BuildDropTableSQL(d.Quote, table)); err != nil {
		rollback()
		return 0, fmt.Errorf("%s: drop %s: %w", d.Name, table, err)
	}
	if buf.NumColumns() == 0 {
		if err := tx.Commit(); err != nil {
			return 0, fmt.Errorf("%s: commit: %w", d.Name, err)
		}
		return 0, nil
	}

	td := ddl.FromBuffer(table, buf, d.MapType)
	create, err := ddl.BuildCreateTableSQL(d.Quote, td)
	if err != nil {
		rollback()
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, create); err != nil {
		rollback()
		return 0, fmt.Errorf("%s: create %s: %w", d.Name, table, err)
	}

	bulk := b.Bulk
	if bulk == nil {
		bulk = InsertBulk(d)
	}
	batch := b.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	rows := PrepareRows(td, buf, d.Value)
	n, err := LoadBatches(ctx, table, buf.Columns(), rows, batch,
		func(ctx context.Context, _ []string, rows [][]any) (int64, error) {
			return bulk(ctx, tx, td, rows)
		})
	if err != nil {
		rollback()
		return n, fmt.Errorf("%s: load %s: %w", d.Name, table, err)
	}
	if err := tx.Commit(); err != nil {
		return n, fmt.Errorf("%s: commit: %w", d.Name, err)
	}
	return n, nil
}

// InsertBulk returns a BulkFn that runs a prepared single-row INSERT per row.
func InsertBulk(d SQLDialect) BulkFn {
	return func(ctx context.Context, tx *sql.Tx, td ddl.TableDef, rows [][]any) (int64, error) {
		cols := make([]string, len(td.Columns))
		for i, c := range td.Columns {
			cols[i] = c.Name
		}
		stmt, err := tx.PrepareContext(ctx, ddl.BuildInsertSQL(d.Quote, td.FQN, cols, d.Placeholder))
		if err != nil {
			return 0, fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		var n int64
		for i, row := range rows {
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				return n, fmt.Errorf("insert row %d: %w", i, err)
			}
			n++
		}
		return n, nil
	}
}

// PrepareRows returns copies of buf's rows with each value coerced to its
// column kind and passed through value (when non-nil). buf is not modified.
func PrepareRows(td ddl.TableDef, buf *tabular.Buffer, value func(ddl.Kind, any) any) [][]any {
	src := buf.Rows()
	out := make([][]any, len(src))
	for i, r := range src {
		row := make([]any, len(r))
		for j, v := range r {
			k := td.Columns[j].Kind
			v = Coerce(k, v)
			if value != nil && v != nil {
				v = value(k, v)
			}
			row[j] = v
		}
		out[i] = row
	}
	return out
}

// Coerce makes v fit a column of kind k: text columns receive the text
// rendering of non-string values, float columns receive float64 for ints.
func Coerce(k ddl.Kind, v any) any {
	if v == nil {
		return nil
	}
	switch k {
	case ddl.KindText:
		if s, ok := v.(string); ok {
			return s
		}
		return tabular.FormatValue(v)
	case ddl.KindFloat:
		switch x := v.(type) {
		case int64:
			return float64(x)
		case int:
			return float64(x)
		}
	}
	return v
}

// CountRows implements Repository.
func (b *SQLBackend) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	q := "SELECT COUNT(*) FROM " + ddl.QuoteFQN(b.Dialect.Quote, table)
	if err := b.DB.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: count %s: %w", b.Dialect.Name, table, err)
	}
	return n, nil
}

// Exec implements Repository. Blank statements are ignored.
func (b *SQLBackend) Exec(ctx context.Context, stmt string) error {
	if strings.TrimSpace(stmt) == "" {
		return nil
	}
	if _, err := b.DB.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("%s: exec: %w", b.Dialect.Name, err)
	}
	return nil
}

// ListTables implements Inspector.
func (b *SQLBackend) ListTables(ctx context.Context) ([]string, error) {
	rows, err := b.DB.QueryContext(ctx, b.Dialect.ListTablesSQL)
	if err != nil {
		return nil, fmt.Errorf("%s: list tables: %w", b.Dialect.Name, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Describe implements Inspector.
func (b *SQLBackend) Describe(ctx context.Context, table string) ([]ddl.ColumnDef, error) {
	rows, err := b.DB.QueryContext(ctx, b.Dialect.DescribeSQL, table)
	if err != nil {
		return nil, fmt.Errorf("%s: describe %s: %w", b.Dialect.Name, table, err)
	}
	defer rows.Close()
	var out []ddl.ColumnDef
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return nil, err
		}
		out = append(out, ddl.ColumnDef{Name: name, SQLType: typ, Nullable: true})
	}
	return out, rows.Err()
}

// Sample implements Inspector.
func (b *SQLBackend) Sample(ctx context.Context, table string, n int) (*tabular.Buffer, error) {
	r := datasource.NewReader(b.DB, datasource.Dialect{Name: b.Dialect.Name}, 0)
	return r.Query(ctx, table, b.Dialect.Sample(ddl.QuoteFQN(b.Dialect.Quote, table), n))
}

// LimitSample renders "SELECT * FROM t LIMIT n".
func LimitSample(quoted string, n int) string {
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoted, n)
}
