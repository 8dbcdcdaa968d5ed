package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tkexport/internal/config"
	"tkexport/internal/ddl"
	"tkexport/internal/storage"
	"tkexport/internal/tabular"
)

const sampleRows = 5

func newDumpCmd() *cobra.Command {
	var latest bool
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "List the tables, columns, row counts and first rows of an export's table store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDump(cmd.Context(), cmd, getConfig(cmd), latest)
		},
	}
	cmd.Flags().String("database", "", "SQLite export database to inspect")
	cmd.Flags().BoolVar(&latest, "latest", false, "use the most recent export under the output directory")
	cmd.Flags().String("store", "", "table store kind")
	cmd.Flags().String("store-dsn", "", "table store connection string")
	cmd.Flags().String("output-dir", "", "output directory searched by --latest")
	return cmd
}

// tableDump is what dump learned about one stored table.
type tableDump struct {
	Name    string
	Columns []ddl.ColumnDef
	Rows    int64
	Sample  *tabular.Buffer
}

func runDump(ctx context.Context, cmd *cobra.Command, cfg *config.Config, latest bool) error {
	sc := storage.Config{Kind: cfg.Store.Kind, DSN: cfg.Store.DSN, BatchSize: cfg.Store.BatchSize}
	if cfg.Database != "" && !latest {
		sc.Kind, sc.DSN = "sqlite", cfg.Database
	}
	if sc.DSN == "" || latest {
		name := config.StoreFileName
		db, err := config.LatestExport(cfg.Output.Dir, name)
		if err != nil {
			return err
		}
		sc.DSN = db
	}

	repo, err := newStore(ctx, sc)
	if err != nil {
		return fmt.Errorf("open table store: %w", err)
	}
	defer repo.Close()
	insp, ok := repo.(storage.Inspector)
	if !ok {
		return fmt.Errorf("dump: %s store cannot list its tables", sc.Kind)
	}

	dumps, err := inspect(ctx, repo, insp)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "store: %s %s\n", sc.Kind, sc.DSN)
	renderDump(cmd.OutOrStdout(), dumps)
	return nil
}

// inspect describes every table. Tables are inspected concurrently; the
// backends serialize on their own connection limits.
func inspect(ctx context.Context, repo storage.Repository, insp storage.Inspector) ([]tableDump, error) {
	names, err := insp.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]tableDump, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, name := range names {
		g.Go(func() error {
			cols, err := insp.Describe(ctx, name)
			if err != nil {
				return err
			}
			n, err := repo.CountRows(ctx, name)
			if err != nil {
				return err
			}
			sample, err := insp.Sample(ctx, name, sampleRows)
			if err != nil {
				return err
			}
			out[i] = tableDump{Name: name, Columns: cols, Rows: n, Sample: sample}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// storeConfig resolves the table-store settings of an export into dir.
func storeConfig(s config.Store, dir string) storage.Config {
	return storage.Config{Kind: s.Kind, DSN: s.StoreDSN(dir), BatchSize: s.BatchSize}
}
