// Package storage defines the table-store contract an export loads into and
// a registry of backends. Concrete backends live in subpackages and register
// themselves from init; import storage/all to link every backend.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tkexport/internal/ddl"
	"tkexport/internal/tabular"
)

// Config selects and parameterizes a backend.
type Config struct {
	Kind string
	// DSN is a connection string, or a file path for file-backed kinds.
	DSN string
	// BatchSize bounds rows per bulk call. 0 uses DefaultBatchSize.
	BatchSize int
}

// DefaultBatchSize is used when Config.BatchSize is unset.
const DefaultBatchSize = 1000

func (c Config) batchSize() int {
	if c.BatchSize > 0 {
		return c.BatchSize
	}
	return DefaultBatchSize
}

// Repository is a table store holding exactly one version of each table.
type Repository interface {
	// ReplaceTable drops table if present, creates it from buf's schema and
	// inserts buf's rows, all in one transaction where the backend allows.
	// A buffer without columns only drops the table.
	ReplaceTable(ctx context.Context, table string, buf *tabular.Buffer) (int64, error)
	// CountRows returns the number of rows currently stored in table.
	CountRows(ctx context.Context, table string) (int64, error)
	// Exec runs a single statement.
	Exec(ctx context.Context, sql string) error
	Close()
}

// Inspector is implemented by backends that can describe their contents.
type Inspector interface {
	ListTables(ctx context.Context) ([]string, error)
	Describe(ctx context.Context, table string) ([]ddl.ColumnDef, error)
	Sample(ctx context.Context, table string, n int) (*tabular.Buffer, error)
}

// Factory opens a Repository for one backend kind.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind, replacing any previous one.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns a sorted snapshot of registered kinds.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
