// Package duckdb implements a DuckDB table store backed by a local database
// file (or ":memory:").
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"tkexport/internal/storage"
	duckddl "tkexport/internal/storage/duckdb/ddl"
)

// Config holds DuckDB repository configuration.
type Config struct {
	// Path is the database file; empty or ":memory:" opens an in-memory db.
	Path      string
	BatchSize int
}

// Dialect is the DuckDB flavor of the shared database/sql path.
var Dialect = storage.SQLDialect{
	Name:          "duckdb",
	Quote:         duckddl.QuoteIdent,
	Placeholder:   func(int) string { return "?" },
	MapType:       duckddl.MapType,
	Sample:        storage.LimitSample,
	ListTablesSQL: `SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' AND table_type = 'BASE TABLE' ORDER BY table_name`,
	DescribeSQL:   `SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = 'main' AND table_name = ? ORDER BY ordinal_position`,
}

// Repository is a DuckDB-backed storage.Repository.
type Repository struct {
	storage.SQLBackend
	cfg Config
}

// NewRepository opens the database and returns a Repository plus a close
// function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = ":memory:"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("duckdb: mkdir: %w", err)
		}
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, nil, fmt.Errorf("duckdb: open: %w", err)
	}
	// One connection: an in-memory database lives and dies with it.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("duckdb: ping: %w", err)
	}
	r := &Repository{
		SQLBackend: storage.SQLBackend{DB: db, Dialect: Dialect, BatchSize: cfg.BatchSize},
		cfg:        cfg,
	}
	return r, func() { _ = db.Close() }, nil
}
