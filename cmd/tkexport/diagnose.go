package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tkexport/internal/config"
	"tkexport/internal/watchdog"
)

func newDiagnoseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Connect to the source and probe every table of the plan under a watchdog",
		Long: `Connect to the source and read the column list of every table of the
export plan. Each step runs under the watchdog (default 30s) so a hanging
driver shows up as a timed-out step instead of a stuck process.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDiagnose(cmd.Context(), cmd, getConfig(cmd))
		},
	}
	f := cmd.Flags()
	f.String("source", "", "source database file")
	f.String("source-kind", "", "source kind")
	f.String("source-dsn", "", "source connection string for server kinds")
	f.Duration("watchdog", 0, "per-step hang threshold")
	return cmd
}

// probeResult is one diagnose step.
type probeResult struct {
	Step     string
	Columns  int
	Duration time.Duration
	Err      error
}

func runDiagnose(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	if cfg.Watchdog <= 0 {
		cfg.Watchdog = 30 * time.Second
	}
	plan, err := cfg.Export.Plan()
	if err != nil {
		return err
	}

	var results []probeResult
	start := time.Now()
	rd, err := connect(ctx, cfg)
	results = append(results, probeResult{Step: "connect " + cfg.Source.Kind, Duration: time.Since(start), Err: err})
	if err != nil {
		renderDiagnose(cmd.OutOrStdout(), results)
		return err
	}
	defer rd.Close()

	failed := 0
	for _, spec := range plan.Tables {
		ch := make(chan int, 1)
		start := time.Now()
		err := watchdog.Run(ctx, cfg.Watchdog, "probe "+spec.Name, func(ctx context.Context) error {
			cols, err := rd.ProbeSchema(ctx, spec.Name)
			ch <- len(cols)
			return err
		})
		res := probeResult{Step: "probe " + spec.Name, Duration: time.Since(start), Err: err}
		if err == nil {
			res.Columns = <-ch
		} else {
			failed++
		}
		results = append(results, res)
		if errors.Is(err, watchdog.ErrTimeout) {
			// the driver is stuck; later probes would queue behind it
			break
		}
	}
	renderDiagnose(cmd.OutOrStdout(), results)
	if failed > 0 {
		return fmt.Errorf("diagnose: %d step(s) failed", failed)
	}
	return nil
}
