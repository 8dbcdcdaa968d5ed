// Package postgres registers the "postgres" source kind using pgx through
// database/sql.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"tkexport/internal/datasource"
)

func init() { datasource.Register("postgres", Open) }

// Open parses the DSN with pgx and opens a database/sql handle on it.
func Open(_ context.Context, cfg datasource.Config) (*sql.DB, datasource.Dialect, error) {
	cc, err := pgx.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, datasource.Dialect{}, fmt.Errorf("postgres dsn: %w", err)
	}
	db := stdlib.OpenDB(*cc)
	db.SetMaxOpenConns(1)
	return db, datasource.Postgres, nil
}
