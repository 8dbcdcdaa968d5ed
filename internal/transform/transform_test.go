package transform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "  \n ", nil},
		{"two", "UPDATE a SET x=1; DELETE FROM b;", []string{"UPDATE a SET x=1", "DELETE FROM b"}},
		{"no trailing semicolon", "SELECT 1", []string{"SELECT 1"}},
		{"semicolon in literal", "UPDATE a SET s='x;y'; SELECT 2", []string{"UPDATE a SET s='x;y'", "SELECT 2"}},
		{"escaped quote", "UPDATE a SET s='it''s;'", []string{"UPDATE a SET s='it''s;'"}},
		{"quoted identifier", `SELECT "a;b" FROM [c;d]`, []string{`SELECT "a;b" FROM [c;d]`}},
		{"line comment", "-- drop; nothing\nSELECT 1;", []string{"-- drop; nothing\nSELECT 1"}},
		{"block comment", "/* a; b */ SELECT 1; /* only */ ;", []string{"/* a; b */ SELECT 1"}},
		{"comment only", "-- nothing here;\n", nil},
		{
			"trigger body",
			"CREATE TRIGGER t AFTER INSERT ON a BEGIN UPDATE b SET n=n+1; DELETE FROM c; END; SELECT 1;",
			[]string{"CREATE TRIGGER t AFTER INSERT ON a BEGIN UPDATE b SET n=n+1; DELETE FROM c; END", "SELECT 1"},
		},
		{"unterminated literal", "SELECT 'abc", []string{"SELECT 'abc"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SplitStatements(tt.in))
		})
	}
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestRunContinuesAfterFailedCommand(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeScript(t, dir, "01_clean.sql", "UPDATE tblProject SET name=trim(name);\nDELETE FROM nope;\nUPDATE tblClient SET x=1;")
	writeScript(t, dir, "02_empty.sql", "-- nothing\n")

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectExec("UPDATE tblProject SET name=trim(name)").WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("DELETE FROM nope").WillReturnError(errors.New("no such table: nope"))
	mock.ExpectExec("UPDATE tblClient SET x=1").WillReturnResult(sqlmock.NewResult(0, 3))

	clock := time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC)
	r := &Runner{DB: db, Database: "x.db", BaseDir: dir, Now: func() time.Time { return clock }}
	s, err := r.Run(context.Background(), []Script{
		{Name: "clean", Path: "01_clean.sql"},
		{Name: "empty", Path: "02_empty.sql"},
		{Name: "missing", Path: filepath.Join(dir, "03_missing.sql")},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, 1, s.ScriptsOK, "only the empty script has nothing failing")
	assert.Equal(t, 2, s.ScriptsFailed)
	assert.Equal(t, 2, s.CommandsOK)
	assert.Equal(t, 1, s.CommandsFailed)
	assert.True(t, s.Failed())
	assert.Equal(t, int64(4), s.Scripts[0].Commands[0].Rows)
	assert.True(t, s.Scripts[1].Empty)
	assert.ErrorIs(t, s.Scripts[2].Err, os.ErrNotExist)

	logPath := LogPath(filepath.Join(dir, "timekeeping_export.db"), clock)
	assert.Equal(t, filepath.Join(dir, "transformation_log_20240201_093000.txt"), logPath)
	require.NoError(t, WriteLog(logPath, s))
	body, err := os.ReadFile(logPath)
	require.NoError(t, err)
	text := string(body)
	for _, want := range []string{
		"SQL TRANSFORMATION EXECUTION LOG",
		"Started: 2024-02-01 09:30:00",
		"[1/3] EXECUTING: 01_clean.sql",
		"[OK] Status: SUCCESS (Rows affected: 4)",
		"Error: no such table: nope",
		"WARNING: Script file is empty",
		"Failed scripts: 2",
		"Failed commands: 1",
	} {
		assert.Contains(t, text, want)
	}
}

func TestRunAllSucceed(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	p := writeScript(t, dir, "a.sql", "DELETE FROM a; DELETE FROM b")

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectExec("DELETE FROM a").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM b").WillReturnResult(sqlmock.NewResult(0, 0))

	s, err := (&Runner{DB: db}).Run(context.Background(), []Script{{Path: p}})
	require.NoError(t, err)
	assert.False(t, s.Failed())
	assert.Equal(t, 2, s.CommandsOK)
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	t.Parallel()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, err := (&Runner{DB: db}).Run(ctx, []Script{{Path: "x.sql"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.Scripts)
}

func TestRunNilDB(t *testing.T) {
	t.Parallel()
	_, err := (&Runner{}).Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "SELECT 1 FROM a", truncate("SELECT 1\n  FROM a", 80))
	assert.Equal(t, "abc...", truncate(strings.Repeat("abc", 10), 3))
}
