package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tkexport/internal/config"
	"tkexport/internal/validate"
)

func newValidateCmd() *cobra.Command {
	var (
		show int
		jobs int
	)
	cmd := &cobra.Command{
		Use:   "validate [file.csv ...]",
		Short: "Check CSV files against the configured validation rules",
		Long: `Check every row of the given CSV files against csv_validation_rules.
Without arguments the most recent CSV under the output directory is checked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), cmd, getConfig(cmd), args, show, jobs)
		},
	}
	cmd.Flags().IntVar(&show, "show", 20, "violations to print")
	cmd.Flags().IntVar(&jobs, "jobs", 4, "files validated at once")
	cmd.Flags().String("output-dir", "", "output directory searched when no file is given")
	return cmd
}

func runValidate(ctx context.Context, cmd *cobra.Command, cfg *config.Config, paths []string, show, jobs int) error {
	if err := reportIssues(cmd.ErrOrStderr(), config.ValidateRules(cfg.Rules)); err != nil {
		return err
	}
	var rules []validate.Rule
	for _, r := range cfg.Rules {
		if r.On() {
			rules = append(rules, validate.Rule{Name: r.Name, Column: r.Column, Pattern: r.Pattern, Description: r.Description})
		}
	}
	if len(rules) == 0 {
		return fmt.Errorf("validate: no enabled csv_validation_rules")
	}

	if len(paths) == 0 {
		p, err := validate.LatestCSV(cfg.Output.Dir)
		if err != nil {
			return err
		}
		paths = []string{p}
	}

	v := validate.New(rules)
	for _, w := range v.Warnings() {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}
	reports, err := v.Files(ctx, paths, jobs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	renderValidation(out, reports, show)
	bad := 0
	for _, r := range reports {
		for _, w := range r.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
		}
		bad += len(r.Violations)
	}
	if bad > 0 {
		return fmt.Errorf("validate: %d violation(s)", bad)
	}
	return nil
}
