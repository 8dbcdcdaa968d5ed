// Package postgres implements a Postgres table store on pgxpool. Rows are
// loaded with COPY inside the same transaction that recreates the table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	gddl "tkexport/internal/ddl"
	"tkexport/internal/storage"
	pgddl "tkexport/internal/storage/postgres/ddl"
	"tkexport/internal/tabular"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN       string
	BatchSize int
}

// Repository is a Postgres-backed storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// NewRepository opens a pool and returns a Repository plus a close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres ping: %w", err)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = storage.DefaultBatchSize
	}
	return &Repository{pool: pool, cfg: cfg}, pool.Close, nil
}

func pgFQN(table string) string { return gddl.QuoteFQN(pgddl.QuoteIdent, table) }

func pgIdentifier(table string) pgx.Identifier { return pgx.Identifier(strings.Split(table, ".")) }

// ReplaceTable drops and recreates table, then COPYs buf's rows in batches,
// all in one transaction.
func (r *Repository) ReplaceTable(ctx context.Context, table string, buf *tabular.Buffer) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, gddl.BuildDropTableSQL(pgddl.QuoteIdent, table)); err != nil {
		return 0, fmt.Errorf("postgres: drop %s: %w", table, err)
	}
	var n int64
	if buf.NumColumns() > 0 {
		td := gddl.FromBuffer(table, buf, pgddl.MapType)
		create, err := gddl.BuildCreateTableSQL(pgddl.QuoteIdent, td)
		if err != nil {
			return 0, err
		}
		if _, err := tx.Exec(ctx, create); err != nil {
			return 0, fmt.Errorf("postgres: create %s: %w", table, err)
		}
		rows := storage.PrepareRows(td, buf, nil)
		n, err = storage.LoadBatches(ctx, table, buf.Columns(), rows, r.cfg.BatchSize,
			func(ctx context.Context, cols []string, batch [][]any) (int64, error) {
				return tx.CopyFrom(ctx, pgIdentifier(table), cols, pgx.CopyFromRows(batch))
			})
		if err != nil {
			return n, describe(fmt.Sprintf("postgres: copy %s", table), err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return n, fmt.Errorf("postgres: commit: %w", err)
	}
	return n, nil
}

// describe surfaces server detail and SQLSTATE when available.
func describe(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%s: %s (%s): %w", op, pgErr.Detail, pgErr.SQLState(), err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// CountRows implements storage.Repository.
func (r *Repository) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+pgFQN(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count %s: %w", table, err)
	}
	return n, nil
}

// Exec implements storage.Repository.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return describe("postgres: exec", err)
	}
	return nil
}

// ListTables implements storage.Inspector for the current schema.
func (r *Repository) ListTables(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		 ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list tables: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Describe implements storage.Inspector.
func (r *Repository) Describe(ctx context.Context, table string) ([]gddl.ColumnDef, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT column_name, data_type, is_nullable = 'YES' FROM information_schema.columns
		 WHERE table_schema = current_schema() AND table_name = $1
		 ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("postgres: describe %s: %w", table, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (gddl.ColumnDef, error) {
		var c gddl.ColumnDef
		err := row.Scan(&c.Name, &c.SQLType, &c.Nullable)
		return c, err
	})
}

// Sample implements storage.Inspector.
func (r *Repository) Sample(ctx context.Context, table string, n int) (*tabular.Buffer, error) {
	rows, err := r.pool.Query(ctx, storage.LimitSample(pgFQN(table), n))
	if err != nil {
		return nil, fmt.Errorf("postgres: sample %s: %w", table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}
	var out [][]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		for i, v := range vals {
			if t, temporal, ok := tabular.NormalizeTemporal(v); temporal {
				if !ok {
					t = nil
				}
				vals[i] = t
			}
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tabular.NewBuffer(cols, out)
}
