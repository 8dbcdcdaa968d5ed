package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"github.com/spf13/cobra"

	"tkexport/internal/config"
	"tkexport/internal/datasource/file"
	"tkexport/internal/metrics"
	"tkexport/internal/storage/sqlite"
	"tkexport/internal/transform"
)

func newTransformCmd() *cobra.Command {
	var (
		latest bool
		list   string
	)
	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Run the configured SQL transformation scripts against an exported database",
		Example: `  # Scripts from config.yaml against the most recent export
  tkexport transform --latest

  # An explicit database and a list file of scripts
  tkexport transform --database output/export_20240201_093000/timekeeping_export.db --list scripts.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTransform(cmd.Context(), cmd, getConfig(cmd), latest, list)
		},
	}
	cmd.Flags().String("database", "", "SQLite database to transform")
	cmd.Flags().BoolVar(&latest, "latest", false, "use the most recent export under the output directory")
	cmd.Flags().StringVar(&list, "list", "", "file listing script paths, one per line (replaces the configured scripts)")
	cmd.Flags().String("output-dir", "", "output directory searched by --latest")
	return cmd
}

func runTransform(ctx context.Context, cmd *cobra.Command, cfg *config.Config, latest bool, list string) error {
	scripts, baseDir, err := transformScripts(cmd.ErrOrStderr(), cfg, list)
	if err != nil {
		return err
	}

	db := cfg.Database
	if latest || db == "" {
		if db, err = config.LatestExport(cfg.Output.Dir, config.StoreFileName); err != nil {
			return err
		}
	}
	if _, err := file.NewLocal(db).Check(ctx); err != nil {
		return fmt.Errorf("transform: database: %w", err)
	}

	repo, closeFn, err := sqlite.NewRepository(ctx, sqlite.Config{Path: db})
	if err != nil {
		return err
	}
	defer closeFn()
	if err := repo.Exec(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return err
	}

	r := &transform.Runner{DB: repo.DB, Database: db, BaseDir: baseDir}
	sum, err := r.Run(ctx, scripts)
	if err != nil {
		return err
	}
	for _, s := range sum.Scripts {
		var serr error
		if s.Failed() {
			serr = errors.New("failed")
		}
		metrics.RecordStep(cfg.Metrics.Job, "transform", s.Script.Name, serr, s.Duration)
	}

	logPath := transform.LogPath(db, sum.Started)
	if err := transform.WriteLog(logPath, sum); err != nil {
		return err
	}
	log.Printf("transform: log=%s", logPath)

	renderTransform(cmd.OutOrStdout(), sum)
	if sum.Failed() {
		return fmt.Errorf("transform: %d script(s) and %d command(s) failed; see %s",
			sum.ScriptsFailed, sum.CommandsFailed, logPath)
	}
	return nil
}

// transformScripts returns the enabled scripts and the directory their
// relative paths resolve against.
func transformScripts(w io.Writer, cfg *config.Config, list string) ([]transform.Script, string, error) {
	if list != "" {
		paths, err := file.ReadList(list)
		if err != nil {
			return nil, "", fmt.Errorf("read script list: %w", err)
		}
		if len(paths) == 0 {
			return nil, "", fmt.Errorf("script list %s is empty", list)
		}
		out := make([]transform.Script, len(paths))
		for i, p := range paths {
			out[i] = transform.Script{Name: filepath.Base(p), Path: p}
		}
		return out, "", nil
	}

	if err := reportIssues(w, config.ValidateScripts(cfg.Transformations)); err != nil {
		return nil, "", err
	}
	var out []transform.Script
	for _, s := range cfg.Transformations {
		if !s.On() {
			continue
		}
		name := s.Name
		if name == "" {
			name = filepath.Base(s.Path)
		}
		out = append(out, transform.Script{Name: name, Path: s.Path})
	}
	base := "."
	if cfg.File != "" {
		base = filepath.Dir(cfg.File)
	}
	return out, base, nil
}
