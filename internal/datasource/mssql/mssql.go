// Package mssql registers the "mssql" source kind for SQL Server and other
// bracket-quoted, @pN-parameterized sources.
package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"tkexport/internal/datasource"
)

func init() { datasource.Register("mssql", Open) }

// Open validates the DSN and opens a sqlserver handle.
func Open(_ context.Context, cfg datasource.Config) (*sql.DB, datasource.Dialect, error) {
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, datasource.Dialect{}, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, datasource.Dialect{}, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, datasource.MSSQL, nil
}
