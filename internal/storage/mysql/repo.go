// Package mysql implements a MySQL table store.
//
// MySQL commits DDL implicitly, so the drop/create pair is not rolled back
// when the insert phase fails; the row inserts themselves are transactional.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"tkexport/internal/storage"
	myddl "tkexport/internal/storage/mysql/ddl"
)

// Config holds MySQL repository configuration.
type Config struct {
	DSN       string
	BatchSize int
}

// Dialect is the MySQL flavor of the shared database/sql path.
var Dialect = storage.SQLDialect{
	Name:          "mysql",
	Quote:         myddl.QuoteIdent,
	Placeholder:   func(int) string { return "?" },
	MapType:       myddl.MapType,
	Sample:        storage.LimitSample,
	ListTablesSQL: `SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE' ORDER BY table_name`,
	DescribeSQL:   `SELECT column_name, column_type FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ? ORDER BY ordinal_position`,
}

// Repository is a MySQL-backed storage.Repository.
type Repository struct {
	storage.SQLBackend
	cfg Config
}

// NewRepository parses the DSN (forcing parseTime), connects and pings.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	mc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	mc.ParseTime = true
	conn, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(conn)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("mysql ping: %w", err)
	}
	r := &Repository{
		SQLBackend: storage.SQLBackend{DB: db, Dialect: Dialect, BatchSize: cfg.BatchSize},
		cfg:        cfg,
	}
	return r, func() { _ = db.Close() }, nil
}
