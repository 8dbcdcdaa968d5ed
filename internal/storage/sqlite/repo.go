// Package sqlite implements the SQLite table store, the default sink of an
// export (timekeeping_export.db in the run folder).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	gddl "tkexport/internal/ddl"
	"tkexport/internal/storage"
	sqliteddl "tkexport/internal/storage/sqlite/ddl"
	"tkexport/internal/tabular"
)

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// Path is the database file. Its directory is created when missing.
	Path      string
	BatchSize int
}

// Dialect is the SQLite flavor of the shared database/sql path.
var Dialect = storage.SQLDialect{
	Name:          "sqlite",
	Quote:         sqliteddl.QuoteIdent,
	Placeholder:   func(int) string { return "?" },
	MapType:       sqliteddl.MapType,
	Value:         value,
	Sample:        storage.LimitSample,
	ListTablesSQL: `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`,
	DescribeSQL:   `SELECT name, type FROM pragma_table_info(?) ORDER BY cid`,
}

// value stores datetimes as sortable text and bools as 0/1.
func value(_ gddl.Kind, v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.Format(tabular.TimeLayout)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	}
	return v
}

// Repository is a SQLite-backed storage.Repository.
type Repository struct {
	storage.SQLBackend
	cfg Config
}

// NewRepository opens (creating if needed) the database file and returns a
// Repository plus a close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, nil, fmt.Errorf("sqlite: path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("sqlite: mkdir: %w", err)
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// A single connection keeps the replace tx and the count query serialized.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	closeFn := func() { _ = db.Close() }
	r := &Repository{
		SQLBackend: storage.SQLBackend{DB: db, Dialect: Dialect, BatchSize: cfg.BatchSize},
		cfg:        cfg,
	}
	return r, closeFn, nil
}

// Path returns the database file.
func (r *Repository) Path() string { return r.cfg.Path }
