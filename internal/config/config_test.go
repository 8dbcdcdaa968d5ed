package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tkexport/internal/cascade"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

/* Load */

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err, "an explicit missing file is an error")
	assert.Nil(t, cfg)

	t.Chdir(t.TempDir())
	cfg, err = Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Source.Kind)
	assert.Equal(t, "date", cfg.Export.DateColumn)
	assert.Equal(t, 10*time.Second, cfg.Source.ConnectTimeout)
	assert.Equal(t, 1000, cfg.Store.BatchSize)
	assert.True(t, cfg.Output.Timestamped)
	assert.Empty(t, cfg.File)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
source:
  path: from-file.db
  chunk_size: 50
export:
  start_date: 01-01-2024
  end_date: 2024-01-31
  cascade: true
transformation_scripts:
  - name: a
    path: a.sql
  - name: b
    path: b.sql
    enabled: false
csv_validation_rules:
  - name: hours
    column: hours
    pattern: '^\d+$'
watchdog: 30s
`)
	t.Setenv("TKEXPORT_SOURCE__CHUNK_SIZE", "75")
	t.Setenv("TKEXPORT_STORE__KIND", "duckdb")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("source", "", "")
	fs.String("start-date", "", "")
	fs.Bool("filter-project", false, "")
	require.NoError(t, fs.Parse([]string{"--source", "from-flag.db"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "from-flag.db", cfg.Source.Path, "flag beats file")
	assert.Equal(t, 75, cfg.Source.ChunkSize, "env beats file")
	assert.Equal(t, "duckdb", cfg.Store.Kind)
	assert.Equal(t, "01-01-2024", cfg.Export.StartDate, "unset flags do not override")
	assert.Equal(t, "2024-01-31", cfg.Export.EndDate, "unquoted YAML dates stay text")
	assert.True(t, cfg.Export.Cascade)
	assert.Equal(t, 30*time.Second, cfg.Watchdog)
	require.Len(t, cfg.Transformations, 2)
	assert.True(t, cfg.Transformations[0].On())
	assert.False(t, cfg.Transformations[1].On())
	require.Len(t, cfg.Rules, 1)
	assert.Equal(t, `^\d+$`, cfg.Rules[0].Pattern)
}

/* Dates */

func TestParseDate(t *testing.T) {
	t.Parallel()
	jan31 := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"", time.Time{}, false},
		{"01-31-2024", jan31, false},
		{"2024-01-31", jan31, false},
		{"01/31/2024", jan31, false},
		{"31/01/2024", jan31, false},
		{"31-01-2024", jan31, false},
		{"03/04/2024", time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), false},
		{"2024/01/31", time.Time{}, true},
		{"yesterday", time.Time{}, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseDate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) err = %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestExportRangeOpenEnded(t *testing.T) {
	t.Parallel()
	rng, err := Export{StartDate: "2024-01-01"}.Range()
	require.NoError(t, err)
	assert.True(t, rng.Bounded())
	assert.True(t, rng.End.IsZero())
}

/* Plan and paths */

func TestExportPlan(t *testing.T) {
	t.Parallel()
	p, err := Export{}.Plan()
	require.NoError(t, err)
	assert.Equal(t, cascade.DefaultPlan(), p)

	p, err = Export{Tables: []Table{
		{Name: "orders"},
		{Name: "lines", Parent: "orders", FilterKey: "orderid", Mode: "always"},
	}}.Plan()
	require.NoError(t, err)
	assert.Equal(t, cascade.RoleMain, p.Tables[0].Role)
	assert.Equal(t, cascade.ModeAlways, p.Tables[1].Mode)

	_, err = Export{Tables: []Table{{Name: "orders"}, {Name: "lines", Parent: "nope", FilterKey: "k"}}}.Plan()
	assert.Error(t, err)
}

func TestExportDirAndStoreDSN(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	assert.Equal(t, filepath.Join("output", "export_20240203_040506"), Output{Dir: "output", Timestamped: true}.ExportDir(now))
	assert.Equal(t, "output", Output{Dir: "output"}.ExportDir(now))

	assert.Equal(t, filepath.Join("x", StoreFileName), Store{Kind: "sqlite"}.StoreDSN("x"))
	assert.Equal(t, "postgres://h/db", Store{Kind: "postgres", DSN: "postgres://h/db"}.StoreDSN("x"))
	assert.Empty(t, Store{Kind: "postgres"}.StoreDSN("x"))
}

func TestLatestExport(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	_, err := LatestExport(dir, StoreFileName)
	assert.ErrorIs(t, err, ErrNoExport)

	old := filepath.Join(dir, "export_20240101_000000")
	newer := filepath.Join(dir, "export_20240201_000000")
	empty := filepath.Join(dir, "export_20240301_000000")
	for _, d := range []string{old, newer, empty} {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}
	writeFile(t, old, StoreFileName, "")
	writeFile(t, newer, StoreFileName, "")
	base := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, base, base))
	require.NoError(t, os.Chtimes(newer, base.Add(time.Minute), base.Add(time.Minute)))

	got, err := LatestExport(dir, StoreFileName)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(newer, StoreFileName), got)

	_, err = LatestExport(filepath.Join(dir, "missing"), StoreFileName)
	assert.ErrorIs(t, err, ErrNoExport)
}
