// Package sqlite registers the "sqlite" source kind: a local SQLite file
// opened read-only through modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"tkexport/internal/datasource"
	"tkexport/internal/datasource/file"
)

func init() { datasource.Register("sqlite", Open) }

// Open checks that cfg.Path exists and opens it with query_only set.
func Open(ctx context.Context, cfg datasource.Config) (*sql.DB, datasource.Dialect, error) {
	if _, err := file.NewLocal(cfg.Path).Check(ctx); err != nil {
		return nil, datasource.Dialect{}, fmt.Errorf("sqlite source: %w", err)
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, datasource.Dialect{}, fmt.Errorf("sql.Open: %w", err)
	}
	// One connection so the pragma below covers every query.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		_ = db.Close()
		return nil, datasource.Dialect{}, fmt.Errorf("pragma query_only: %w", err)
	}
	return db, datasource.SQLite, nil
}
