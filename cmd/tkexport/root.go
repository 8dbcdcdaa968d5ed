package main

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"tkexport/internal/config"
	"tkexport/internal/datasource"
	"tkexport/internal/storage"

	// link every source kind and table-store backend; config picks one.
	_ "tkexport/internal/datasource/all"
	_ "tkexport/internal/storage/all"
)

// Test seams.
var (
	openSource = datasource.Open
	newStore   = storage.New
)

type configKey struct{}

// newRootCmd builds the command tree. Config is loaded once per invocation
// from defaults, the config file, TKEXPORT_* env and the flags the user set.
func newRootCmd() *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:   "tkexport",
		Short: "Export a date range of timekeeping data with its related rows",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			log.SetOutput(cmd.ErrOrStderr())
			if cfg.Verbose && cfg.File != "" {
				log.Printf("config: file=%s", cfg.File)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml when present)")
	root.PersistentFlags().BoolP("verbose", "v", false, "verbose logs")

	root.AddCommand(
		newExportCmd(),
		newTransformCmd(),
		newValidateCmd(),
		newDumpCmd(),
		newDiagnoseCmd(),
	)
	return root
}

func getConfig(cmd *cobra.Command) *config.Config {
	if c, ok := cmd.Context().Value(configKey{}).(*config.Config); ok {
		return c
	}
	c, _ := config.Load("", nil)
	return c
}

// reportIssues prints issues and fails when any is an error.
func reportIssues(w io.Writer, issues []config.Issue) error {
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return fmt.Errorf("configuration is invalid")
	}
	return nil
}

func sourceConfig(s config.Source) datasource.Config {
	return datasource.Config{
		Kind:            s.Kind,
		Path:            s.Path,
		DSN:             s.DSN,
		ChunkSize:       s.ChunkSize,
		SkipSchemaProbe: s.NoSchemaProbe,
		ConnectTimeout:  s.ConnectTimeout,
		ProgressEvery:   s.ProgressEvery,
	}
}
