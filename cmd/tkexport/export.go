package main

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"tkexport/internal/config"
	"tkexport/internal/datasource"
	"tkexport/internal/filesink"
	"tkexport/internal/metrics"
	"tkexport/internal/metrics/datadog"
	"tkexport/internal/metrics/prompush"
	"tkexport/internal/pipeline"
	"tkexport/internal/sink"
	"tkexport/internal/watchdog"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Extract the billing rows of a date range and their related tables",
		Example: `  # January, projects and clients limited to the billed ones
  tkexport export --source tk.db --start-date 2024-01-01 --end-date 2024-01-31 --cascade

  # Parquet files and a DuckDB store
  tkexport export --source tk.db --format parquet --store duckdb`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd.Context(), cmd, getConfig(cmd))
		},
	}
	f := cmd.Flags()
	f.String("source", "", "source database file")
	f.String("source-kind", "", "source kind: sqlite, mssql, postgres, mysql")
	f.String("source-dsn", "", "source connection string for server kinds")
	f.Int("chunk-size", 0, "max keys per IN query (0: one query per table)")
	f.String("start-date", "", "first day of the range (MM-DD-YYYY, YYYY-MM-DD, ...)")
	f.String("end-date", "", "last day of the range")
	f.String("date-field", "", "date column of the billing table")
	f.Bool("cascade", false, "limit projects and clients to the ones the billing rows reference")
	f.Bool("filter-project", false, "alias of --cascade")
	_ = f.MarkHidden("filter-project")
	f.String("output-dir", "", "output directory")
	f.String("format", "", "file format: csv or parquet")
	f.String("store", "", "table store kind: sqlite, duckdb, postgres, mssql, mysql")
	f.String("store-dsn", "", "table store connection string (default: the export folder's database file)")
	f.String("metrics", "", "metrics backend: none, prometheus, datadog")
	f.Duration("watchdog", 0, "report a hang when connecting takes longer than this")
	return cmd
}

func runExport(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	if err := reportIssues(cmd.ErrOrStderr(), config.Validate(cfg)); err != nil {
		return err
	}
	rng, err := cfg.Export.Range()
	if err != nil {
		return err
	}
	plan, err := cfg.Export.Plan()
	if err != nil {
		return err
	}
	format, err := filesink.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	flush := setupMetrics(cfg.Metrics)
	defer flush()

	dir := cfg.Output.ExportDir(time.Now())
	rd, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer rd.Close()

	store, err := newStore(ctx, storeConfig(cfg.Store, dir))
	if err != nil {
		return fmt.Errorf("open table store: %w", err)
	}
	defer store.Close()

	files, err := filesink.New(filepath.Join(dir, cfg.Output.FilesDir), format)
	if err != nil {
		return err
	}

	orch, err := pipeline.New(rd, &sink.Loader{Store: store, Files: files}, pipeline.Options{
		Plan:       plan,
		DateColumn: cfg.Export.DateColumn,
		Range:      rng,
		Cascade:    cfg.Export.Cascade,
		Job:        cfg.Metrics.Job,
	})
	if err != nil {
		return err
	}
	stats, err := orch.Run(ctx)
	metrics.RecordFieldErrors(cfg.Metrics.Job, rd.FieldErrors())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	renderStats(out, stats)
	fmt.Fprintf(out, "export folder: %s\nqueries: %d  field errors: %d\n", dir, rd.Queries(), rd.FieldErrors())
	return nil
}

// connect opens the source, under the watchdog when one is configured. A
// connection that completes after the watchdog fired is closed.
func connect(ctx context.Context, cfg *config.Config) (*datasource.Reader, error) {
	ch := make(chan *datasource.Reader, 1)
	err := watchdog.Run(ctx, cfg.Watchdog, "source connect", func(ctx context.Context) error {
		r, err := openSource(ctx, sourceConfig(cfg.Source))
		ch <- r
		return err
	})
	if err != nil {
		go func() {
			if r := <-ch; r != nil {
				_ = r.Close()
			}
		}()
		return nil, err
	}
	return <-ch, nil
}

// setupMetrics installs the configured backend and returns its flush.
func setupMetrics(m config.Metrics) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch m.Backend {
	case "prometheus":
		b, err = prompush.NewBackend(m.Job, m.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       m.DatadogAddr,
			Namespace:  "tkexport.",
			GlobalTags: []string{"job:" + m.Job},
		})
	default:
		return func() {}
	}
	if err != nil {
		log.Printf("metrics: failed to init %s backend: %v; using nop", m.Backend, err)
		return func() {}
	}
	log.Printf("metrics: backend=%s job=%s", m.Backend, m.Job)
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}
}
