package ddl

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"tkexport/internal/tabular"
)

func dq(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` }

// TestBuildCreateTableSQL checks rendering and the input validation errors.
func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		def         TableDef
		wantSQL     string
		errContains string
	}{
		{
			name:        "empty FQN",
			def:         TableDef{Columns: []ColumnDef{{Name: "id", SQLType: "INT"}}},
			errContains: "table FQN must not be empty",
		},
		{
			name:        "no columns",
			def:         TableDef{FQN: "t"},
			errContains: "at least one column is required",
		},
		{
			name:        "missing type",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: "id"}}},
			errContains: "missing SQLType",
		},
		{
			name: "schema qualified with pk",
			def: TableDef{FQN: "main.tblProject", Columns: []ColumnDef{
				{Name: "projectid", SQLType: "INTEGER", PrimaryKey: true, Nullable: true},
				{Name: "name", SQLType: "TEXT", Nullable: true},
			}},
			wantSQL: "CREATE TABLE \"main\".\"tblProject\" (\n  \"projectid\" INTEGER NOT NULL,\n  \"name\" TEXT,\n  PRIMARY KEY (\"projectid\")\n)",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := BuildCreateTableSQL(dq, tt.def)
			if tt.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("err = %v, want containing %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildCreateTableSQL: %v", err)
			}
			if got != tt.wantSQL {
				t.Fatalf("SQL =\n%s\nwant\n%s", got, tt.wantSQL)
			}
		})
	}
}

func TestBuildDropAndInsert(t *testing.T) {
	t.Parallel()
	if got := BuildDropTableSQL(dq, "tblClient"); got != `DROP TABLE IF EXISTS "tblClient"` {
		t.Fatalf("drop = %q", got)
	}
	ph := func(n int) string { return "$" + strconv.Itoa(n) }
	got := BuildInsertSQL(dq, "tblClient", []string{"clientid", "name"}, ph)
	if want := `INSERT INTO "tblClient" ("clientid", "name") VALUES ($1, $2)`; got != want {
		t.Fatalf("insert = %q, want %q", got, want)
	}
}

func TestInferKinds(t *testing.T) {
	t.Parallel()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	buf, err := tabular.NewBuffer(
		[]string{"i", "f", "mixnum", "b", "d", "s", "nul", "mixed", "raw"},
		[][]any{
			{int64(1), 1.5, int64(1), true, ts, "x", nil, int64(1), []byte{1}},
			{nil, 2.5, 2.5, false, nil, "y", nil, "a", []byte{2}},
		})
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	got := InferKinds(buf)
	want := []Kind{KindInt, KindFloat, KindFloat, KindBool, KindDateTime, KindText, KindText, KindText, KindBytes}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("kind[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFromBuffer(t *testing.T) {
	t.Parallel()
	buf, _ := tabular.NewBuffer([]string{"id", "name"}, [][]any{{int64(1), "a"}})
	td := FromBuffer("tblClient", buf, func(k Kind) string { return strings.ToUpper(string(k)) })
	if td.FQN != "tblClient" || len(td.Columns) != 2 {
		t.Fatalf("TableDef = %+v", td)
	}
	if c := td.Columns[0]; c.SQLType != "INT" || !c.Nullable || c.Kind != KindInt {
		t.Fatalf("col0 = %+v", c)
	}
}
