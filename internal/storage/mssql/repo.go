// Package mssql implements a SQL Server table store. Rows are loaded with
// the go-mssqldb bulk copy API inside the transaction that recreates the
// table.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	gddl "tkexport/internal/ddl"
	"tkexport/internal/storage"
	msddl "tkexport/internal/storage/mssql/ddl"
)

// Config holds MSSQL repository configuration.
type Config struct {
	DSN       string
	BatchSize int
}

// Dialect is the SQL Server flavor of the shared database/sql path.
var Dialect = storage.SQLDialect{
	Name:        "mssql",
	Quote:       msddl.QuoteIdent,
	Placeholder: func(n int) string { return "@p" + strconv.Itoa(n) },
	MapType:     msddl.MapType,
	Sample: func(quoted string, n int) string {
		return fmt.Sprintf("SELECT TOP (%d) * FROM %s", n, quoted)
	},
	ListTablesSQL: `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME`,
	DescribeSQL:   `SELECT COLUMN_NAME, DATA_TYPE FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_NAME = @p1 ORDER BY ORDINAL_POSITION`,
}

// Repository is an MSSQL-backed storage.Repository.
type Repository struct {
	storage.SQLBackend
	cfg Config
}

// NewRepository constructs a Repository and returns a close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	r := &Repository{
		SQLBackend: storage.SQLBackend{DB: db, Dialect: Dialect, BatchSize: cfg.BatchSize, Bulk: bulkCopy},
		cfg:        cfg,
	}
	return r, func() { _ = db.Close() }, nil
}

// bulkCopy streams one batch through mssql.CopyIn on tx.
func bulkCopy(ctx context.Context, tx *sql.Tx, td gddl.TableDef, rows [][]any) (int64, error) {
	cols := make([]string, len(td.Columns))
	for i, c := range td.Columns {
		cols[i] = c.Name
	}
	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(td.FQN, mssql.BulkOptions{}, cols...))
	if err != nil {
		return 0, fmt.Errorf("prepare bulk: %w", err)
	}
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("bulk finalize: %w", err)
	}
	return res.RowsAffected()
}
