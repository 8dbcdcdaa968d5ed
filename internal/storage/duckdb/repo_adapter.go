package duckdb

import (
	"context"

	"tkexport/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

type wrappedRepo struct {
	*Repository
	closeFn func()
}

// Close closes the database.
func (w *wrappedRepo) Close() { w.closeFn() }

var (
	_ storage.Repository = (*wrappedRepo)(nil)
	_ storage.Inspector  = (*wrappedRepo)(nil)
)

func init() {
	storage.Register("duckdb", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{Path: cfg.DSN, BatchSize: cfg.BatchSize})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
}
