package config

import (
	"fmt"
	"regexp"
	"strings"

	"tkexport/internal/datasource"
	"tkexport/internal/storage"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks a run.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is reported but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single finding of Validate. Path is a dotted path into the
// config, e.g. "export.start_date".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate checks what an export run needs. It does not touch the network
// or the source database; kinds are checked against the registered ones, so
// callers should link datasource/all and storage/all first.
func Validate(c *Config) []Issue {
	var issues []Issue
	issues = append(issues, validateSource(c.Source)...)
	issues = append(issues, validateExport(c.Export)...)
	issues = append(issues, validateOutput(c.Output)...)
	issues = append(issues, validateStore(c.Store)...)
	issues = append(issues, validateMetrics(c.Metrics)...)
	if c.Watchdog < 0 {
		issues = append(issues, Issue{SeverityError, "watchdog", "watchdog must not be negative"})
	}
	return issues
}

func known(kind string, kinds []string) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func validateSource(s Source) []Issue {
	var issues []Issue
	if strings.TrimSpace(s.Kind) == "" {
		return append(issues, Issue{SeverityError, "source.kind", "source.kind must not be empty"})
	}
	if kinds := datasource.ListKinds(); !known(s.Kind, kinds) {
		issues = append(issues, Issue{SeverityError, "source.kind",
			fmt.Sprintf("unknown source kind %q (registered: %s)", s.Kind, strings.Join(kinds, ", "))})
	}
	if s.Kind == "sqlite" && strings.TrimSpace(s.Path) == "" {
		issues = append(issues, Issue{SeverityError, "source.path", "sqlite source requires a path"})
	}
	if s.Kind != "sqlite" && strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{SeverityError, "source.dsn", fmt.Sprintf("%s source requires a dsn", s.Kind)})
	}
	if s.ChunkSize < 0 {
		issues = append(issues, Issue{SeverityError, "source.chunk_size", "chunk_size must not be negative"})
	}
	if s.ProgressEvery < 0 {
		issues = append(issues, Issue{SeverityError, "source.progress_every", "progress_every must not be negative"})
	}
	return issues
}

func validateExport(e Export) []Issue {
	var issues []Issue
	rng, err := e.Range()
	switch {
	case err != nil:
		path := "export.start_date"
		if _, serr := ParseDate(e.StartDate); serr == nil {
			path = "export.end_date"
		}
		issues = append(issues, Issue{SeverityError, path, err.Error()})
	case !rng.Start.IsZero() && !rng.End.IsZero() && rng.End.Before(rng.Start):
		issues = append(issues, Issue{SeverityError, "export.end_date", "end date is before start date"})
	}
	if err == nil && rng.Bounded() && strings.TrimSpace(e.DateColumn) == "" {
		issues = append(issues, Issue{SeverityError, "export.date_column", "a date range needs export.date_column"})
	}
	if _, err := e.Plan(); err != nil {
		issues = append(issues, Issue{SeverityError, "export.tables", err.Error()})
	}
	if !e.Cascade && len(e.Tables) == 0 {
		issues = append(issues, Issue{SeverityWarning, "export.cascade",
			"cascade is off: projects and clients are exported in full while pay items stay filtered by billing"})
	}
	return issues
}

func validateOutput(o Output) []Issue {
	var issues []Issue
	if strings.TrimSpace(o.Dir) == "" {
		issues = append(issues, Issue{SeverityError, "output.dir", "output.dir must not be empty"})
	}
	switch strings.ToLower(o.Format) {
	case "", "csv", "parquet":
	default:
		issues = append(issues, Issue{SeverityError, "output.format", fmt.Sprintf("unknown format %q; use csv or parquet", o.Format)})
	}
	return issues
}

func validateStore(s Store) []Issue {
	var issues []Issue
	if strings.TrimSpace(s.Kind) == "" {
		return append(issues, Issue{SeverityError, "store.kind", "store.kind must not be empty"})
	}
	if kinds := storage.ListKinds(); !known(s.Kind, kinds) {
		issues = append(issues, Issue{SeverityError, "store.kind",
			fmt.Sprintf("unknown store kind %q (registered: %s)", s.Kind, strings.Join(kinds, ", "))})
	}
	if s.StoreDSN("") == "" {
		issues = append(issues, Issue{SeverityError, "store.dsn", fmt.Sprintf("%s store requires a dsn", s.Kind)})
	}
	if s.BatchSize <= 0 {
		issues = append(issues, Issue{SeverityWarning, "store.batch_size",
			fmt.Sprintf("batch_size=%d; the default of %d is used", s.BatchSize, storage.DefaultBatchSize)})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	switch m.Backend {
	case "", "none":
	case "prometheus":
		if m.PushgatewayURL == "" {
			return []Issue{{SeverityError, "metrics.pushgateway_url", "prometheus backend requires pushgateway_url"}}
		}
	case "datadog":
		if m.DatadogAddr == "" {
			return []Issue{{SeverityError, "metrics.datadog_addr", "datadog backend requires datadog_addr"}}
		}
	default:
		return []Issue{{SeverityError, "metrics.backend", fmt.Sprintf("unknown metrics backend %q", m.Backend)}}
	}
	return nil
}

// ValidateRules checks CSV validation rules. Broken rules are warnings: the
// validator skips them.
func ValidateRules(rules []Rule) []Issue {
	var issues []Issue
	for i, r := range rules {
		path := fmt.Sprintf("csv_validation_rules[%d]", i)
		if strings.TrimSpace(r.Column) == "" {
			issues = append(issues, Issue{SeverityWarning, path + ".column", "rule has no column"})
		}
		if _, err := regexp.Compile(r.Pattern); err != nil {
			issues = append(issues, Issue{SeverityWarning, path + ".pattern", fmt.Sprintf("invalid regex: %v", err)})
		}
	}
	return issues
}

// ValidateScripts checks the transformation script list.
func ValidateScripts(scripts []Script) []Issue {
	var issues []Issue
	enabled := 0
	for i, s := range scripts {
		if strings.TrimSpace(s.Path) == "" {
			issues = append(issues, Issue{SeverityError, fmt.Sprintf("transformation_scripts[%d].path", i), "script path must not be empty"})
		}
		if s.On() {
			enabled++
		}
	}
	if enabled == 0 {
		issues = append(issues, Issue{SeverityError, "transformation_scripts", "no enabled transformation scripts"})
	}
	return issues
}
