package filesink

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tkexport/internal/tabular"
)

func TestParseFormat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatCSV, false},
		{"CSV", FormatCSV, false},
		{"parquet", FormatParquet, false},
		{"xlsx", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestSafeName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "dbo_tbl_x", SafeName("dbo/tbl:x"))
	// Decomposed e + combining acute folds to the precomposed form.
	assert.Equal(t, "café", SafeName("café"))
}

func TestWriteCSVColumnOrderNullsAndOverwrite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, err := New(filepath.Join(t.TempDir(), "excel"), FormatCSV)
	require.NoError(t, err)

	ts := time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC)
	buf, _ := tabular.NewBuffer([]string{"projectid", "name", "date"}, [][]any{
		{int64(10), "a,b", ts},
		{int64(20), nil, nil},
	})
	path, err := s.Write(ctx, "tblProject", buf)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(), "tblProject.csv"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "projectid,name,date\n10,\"a,b\",2024-01-05 09:30:00\n20,,\n", string(got))

	smaller, _ := tabular.NewBuffer([]string{"projectid"}, [][]any{{int64(1)}})
	_, err = s.Write(ctx, "tblProject", smaller)
	require.NoError(t, err)
	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "projectid\n1\n", string(got))
}

func TestWriteEmptyBuffers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, err := New(t.TempDir(), FormatCSV)
	require.NoError(t, err)

	path, err := s.Write(ctx, "tblClient", tabular.Empty([]string{"clientid", "name"}))
	require.NoError(t, err)
	got, _ := os.ReadFile(path)
	assert.Equal(t, "clientid,name\n", string(got))

	path, err = s.Write(ctx, "tblPayItem", tabular.Empty(nil))
	require.NoError(t, err)
	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, fi.Size())
}

func TestWriteParquet(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("duckdb engine start-up in -short mode")
	}
	s, err := New(t.TempDir(), FormatParquet)
	require.NoError(t, err)
	buf, _ := tabular.NewBuffer([]string{"id", "name"}, [][]any{{int64(1), "a"}})

	path, err := s.Write(context.Background(), "tblClient", buf)
	require.NoError(t, err)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(b), 4)
	assert.Equal(t, "PAR1", string(b[:4]))
}
