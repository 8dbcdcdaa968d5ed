// Package mysql registers the "mysql" source kind.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"tkexport/internal/datasource"
)

func init() { datasource.Register("mysql", Open) }

// Open forces parseTime so DATE/DATETIME columns arrive as time.Time.
func Open(_ context.Context, cfg datasource.Config) (*sql.DB, datasource.Dialect, error) {
	mc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, datasource.Dialect{}, fmt.Errorf("mysql dsn: %w", err)
	}
	mc.ParseTime = true
	conn, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, datasource.Dialect{}, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(conn)
	db.SetMaxOpenConns(1)
	return db, datasource.MySQL, nil
}
