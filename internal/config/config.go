// Package config holds the typed configuration of tkexport and loads it with
// koanf from, in increasing precedence: built-in defaults, a YAML file,
// TKEXPORT_* environment variables and explicitly set command-line flags.
//
// Example config.yaml (trimmed):
//
//	source:
//	  kind: sqlite
//	  path: C:/data/timekeeping.db
//	export:
//	  date_column: date
//	  start_date: 01-01-2024
//	  end_date: 2024-12-31
//	  cascade: true
//	store:
//	  kind: sqlite
//	transformation_scripts:
//	  - name: cleanup
//	    path: sql/cleanup.sql
//	csv_validation_rules:
//	  - name: hours
//	    column: hours
//	    pattern: '^\d+(\.\d+)?$'
package config

import (
	"time"
)

// Config is the full tkexport configuration.
type Config struct {
	Source  Source  `koanf:"source"`
	Export  Export  `koanf:"export"`
	Output  Output  `koanf:"output"`
	Store   Store   `koanf:"store"`
	Metrics Metrics `koanf:"metrics"`

	// Transformations are run in order by the transform command.
	Transformations []Script `koanf:"transformation_scripts"`
	// Database is the SQLite store the transform command targets.
	Database string `koanf:"sqlite_database_path"`

	Rules []Rule `koanf:"csv_validation_rules"`

	// Watchdog bounds the source connect and diagnostic probes. 0 disables.
	Watchdog time.Duration `koanf:"watchdog"`
	Verbose  bool          `koanf:"verbose"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

// Source selects the database the export reads from.
type Source struct {
	Kind string `koanf:"kind"`
	// Path is the database file for file-backed kinds.
	Path string `koanf:"path"`
	// DSN is the connection string for server kinds.
	DSN string `koanf:"dsn"`
	// ChunkSize bounds keys per IN query. 0 sends one query per table.
	ChunkSize      int           `koanf:"chunk_size"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	ProgressEvery  int           `koanf:"progress_every"`
	// NoSchemaProbe exports tables skipped by an empty key set without
	// columns instead of probing the source.
	NoSchemaProbe bool `koanf:"no_schema_probe"`
}

// Export describes what a run extracts.
type Export struct {
	DateColumn string `koanf:"date_column"`
	StartDate  string `koanf:"start_date"`
	EndDate    string `koanf:"end_date"`
	// Cascade filters projects and clients by the keys of their parents.
	Cascade bool `koanf:"cascade"`
	// Tables overrides the default table plan.
	Tables []Table `koanf:"tables"`
}

// Table is one entry of a custom table plan. The first entry is the main
// table.
type Table struct {
	Name      string `koanf:"name"`
	Parent    string `koanf:"parent"`
	FilterKey string `koanf:"filter_key"`
	ParentKey string `koanf:"parent_key"`
	// Mode is cascade, always or never.
	Mode string `koanf:"mode"`
}

// Output locates the export artifacts.
type Output struct {
	Dir string `koanf:"dir"`
	// Timestamped places each run in <dir>/export_YYYYMMDD_HHMMSS.
	Timestamped bool `koanf:"timestamped"`
	// Format of the file sink: csv or parquet.
	Format string `koanf:"format"`
	// FilesDir is the file sink's subdirectory of the export folder.
	FilesDir string `koanf:"files_dir"`
}

// Store selects the table-store sink.
type Store struct {
	Kind string `koanf:"kind"`
	// DSN defaults to <export dir>/timekeeping_export.db for file kinds.
	DSN       string `koanf:"dsn"`
	BatchSize int    `koanf:"batch_size"`
}

// Metrics selects a metrics backend: none, prometheus or datadog.
type Metrics struct {
	Backend        string `koanf:"backend"`
	Job            string `koanf:"job"`
	PushgatewayURL string `koanf:"pushgateway_url"`
	DatadogAddr    string `koanf:"datadog_addr"`
}

// Script is one SQL transformation file.
type Script struct {
	Name    string `koanf:"name"`
	Path    string `koanf:"path"`
	Enabled *bool  `koanf:"enabled"`
}

// On reports whether the script should run; unset means enabled.
func (s Script) On() bool { return s.Enabled == nil || *s.Enabled }

// Rule is one CSV validation rule.
type Rule struct {
	Name        string `koanf:"name"`
	Column      string `koanf:"column"`
	Pattern     string `koanf:"pattern"`
	Description string `koanf:"description"`
	Enabled     *bool  `koanf:"enabled"`
}

// On reports whether the rule applies; unset means enabled.
func (r Rule) On() bool { return r.Enabled == nil || *r.Enabled }

// Export database file name inside an export folder.
const StoreFileName = "timekeeping_export.db"

// Defaults are the values every key starts from.
func Defaults() map[string]any {
	return map[string]any{
		"source.kind":            "sqlite",
		"source.chunk_size":      0,
		"source.connect_timeout": "10s",
		"source.progress_every":  1000,
		"export.date_column":     "date",
		"export.cascade":         false,
		"output.dir":             "output",
		"output.timestamped":     true,
		"output.format":          "csv",
		"output.files_dir":       "files",
		"store.kind":             "sqlite",
		"store.batch_size":       1000,
		"metrics.backend":        "none",
		"metrics.job":            "tkexport",
		"watchdog":               "0s",
		"verbose":                false,
	}
}
