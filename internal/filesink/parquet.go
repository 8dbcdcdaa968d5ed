package filesink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	gddl "tkexport/internal/ddl"
	"tkexport/internal/storage/duckdb"
	"tkexport/internal/tabular"
)

// writeParquet stages buf in an in-memory DuckDB, COPYs it to a temp file
// next to path and then replaces path with it.
func writeParquet(ctx context.Context, path, table string, buf *tabular.Buffer) error {
	if buf.NumColumns() == 0 {
		return atomic.WriteFile(path, strings.NewReader(""))
	}
	repo, closeFn, err := duckdb.NewRepository(ctx, duckdb.Config{})
	if err != nil {
		return fmt.Errorf("parquet stage: %w", err)
	}
	defer closeFn()

	const stage = "stage"
	if _, err := repo.ReplaceTable(ctx, stage, buf); err != nil {
		return fmt.Errorf("parquet stage %s: %w", table, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+SafeName(table)+"-*.parquet")
	if err != nil {
		return fmt.Errorf("parquet temp: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpPath)

	copySQL := fmt.Sprintf("COPY %s TO '%s' (FORMAT PARQUET)",
		gddl.QuoteFQN(duckdb.Dialect.Quote, stage), strings.ReplaceAll(tmpPath, "'", "''"))
	if err := repo.Exec(ctx, copySQL); err != nil {
		return fmt.Errorf("parquet copy %s: %w", table, err)
	}
	if err := atomic.ReplaceFile(tmpPath, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
