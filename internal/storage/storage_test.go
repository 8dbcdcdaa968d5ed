package storage

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tkexport/internal/ddl"
	"tkexport/internal/tabular"
)

// fakeRepo is a minimal Repository implementation for tests.
type fakeRepo struct {
	closed bool
}

func (f *fakeRepo) ReplaceTable(context.Context, string, *tabular.Buffer) (int64, error) {
	return 0, nil
}
func (f *fakeRepo) CountRows(context.Context, string) (int64, error) { return 0, nil }
func (f *fakeRepo) Exec(context.Context, string) error               { return nil }
func (f *fakeRepo) Close()                                           { f.closed = true }

/* Registry */

// TestRegisterAndNew verifies that registering a backend enables New() and
// that ListKinds reports it.
func TestRegisterAndNew(t *testing.T) {
	t.Parallel()

	Register("fake", func(ctx context.Context, cfg Config) (Repository, error) {
		return &fakeRepo{}, nil
	})
	repo, err := New(context.Background(), Config{Kind: "fake"})
	if err != nil || repo == nil {
		t.Fatalf("New = %v, %v", repo, err)
	}
	found := false
	for _, k := range ListKinds() {
		found = found || k == "fake"
	}
	if !found {
		t.Fatalf("fake not in ListKinds: %v", ListKinds())
	}
}

func TestNewUnsupported(t *testing.T) {
	t.Parallel()
	_, err := New(context.Background(), Config{Kind: "does-not-exist"})
	if err == nil {
		t.Fatalf("expected error for unsupported kind")
	}
	if got, want := err.Error(), "unsupported storage.kind=does-not-exist"; got != want {
		t.Fatalf("error = %q, want %q", got, want)
	}
}

// TestRegisterOverride verifies that re-registering a kind replaces the
// previous factory.
func TestRegisterOverride(t *testing.T) {
	t.Parallel()
	calls := 0
	Register("override", func(context.Context, Config) (Repository, error) { calls++; return &fakeRepo{}, nil })
	Register("override", func(context.Context, Config) (Repository, error) { calls += 10; return &fakeRepo{}, nil })

	if _, err := New(context.Background(), Config{Kind: "override"}); err != nil {
		t.Fatalf("New error: %v", err)
	}
	if calls != 10 {
		t.Fatalf("factory call count = %d, want 10", calls)
	}
}

func TestListKindsSnapshot(t *testing.T) {
	t.Parallel()
	Register("snap", func(context.Context, Config) (Repository, error) { return &fakeRepo{}, nil })
	a := ListKinds()
	a[0] = "mutated"
	if reflect.DeepEqual(a, ListKinds()) {
		t.Fatalf("ListKinds returned shared slice")
	}
}

func TestFactoryErrorsBubbleUp(t *testing.T) {
	t.Parallel()
	want := errors.New("boom")
	Register("errkind", func(context.Context, Config) (Repository, error) { return nil, want })
	if _, err := New(context.Background(), Config{Kind: "errkind"}); !errors.Is(err, want) {
		t.Fatalf("want %v, got %v", want, err)
	}
}

/* LoadBatches */

func TestLoadBatches(t *testing.T) {
	t.Parallel()
	rows := make([][]any, 7)
	for i := range rows {
		rows[i] = []any{int64(i)}
	}

	var sizes []int
	total, err := LoadBatches(context.Background(), "t", []string{"c"}, rows, 3,
		func(_ context.Context, _ []string, b [][]any) (int64, error) {
			sizes = append(sizes, len(b))
			return int64(len(b)), nil
		})
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	assert.Equal(t, []int{3, 3, 1}, sizes)

	_, err = LoadBatches(context.Background(), "t", nil, rows, 0, nil)
	assert.Error(t, err)
}

func TestLoadBatchesStopsOnError(t *testing.T) {
	t.Parallel()
	rows := [][]any{{1}, {2}, {3}, {4}, {5}}
	want := errors.New("copy failed")
	calls := 0
	total, err := LoadBatches(context.Background(), "t", []string{"c"}, rows, 2,
		func(_ context.Context, _ []string, b [][]any) (int64, error) {
			calls++
			if calls == 2 {
				return 0, want
			}
			return int64(len(b)), nil
		})
	assert.ErrorIs(t, err, want)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, 2, calls)
}

func TestLoadBatchesHonorsCanceledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := LoadBatches(ctx, "t", []string{"c"}, [][]any{{1}}, 1,
		func(context.Context, []string, [][]any) (int64, error) { t.Fatal("copyFn called"); return 0, nil })
	assert.ErrorIs(t, err, context.Canceled)
}

/* SQLBackend */

func dq(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` }

func testDialect() SQLDialect {
	return SQLDialect{
		Name:        "test",
		Quote:       dq,
		Placeholder: func(int) string { return "?" },
		MapType:     func(k ddl.Kind) string { return strings.ToUpper(string(k)) },
		Sample:      LimitSample,
	}
}

func newMockBackend(t *testing.T) (*SQLBackend, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &SQLBackend{DB: db, Dialect: testDialect(), BatchSize: 2}, mock
}

func TestReplaceTableDropsCreatesInserts(t *testing.T) {
	t.Parallel()
	b, mock := newMockBackend(t)
	buf, _ := tabular.NewBuffer([]string{"id", "name"}, [][]any{{int64(1), "a"}, {int64(2), nil}})

	mock.ExpectBegin()
	mock.ExpectExec(`DROP TABLE IF EXISTS "tblClient"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE \"tblClient\" (\n  \"id\" INT,\n  \"name\" TEXT\n)").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare(`INSERT INTO "tblClient" ("id", "name") VALUES (?, ?)`)
	mock.ExpectExec(`INSERT INTO "tblClient" ("id", "name") VALUES (?, ?)`).WithArgs(int64(1), "a").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO "tblClient" ("id", "name") VALUES (?, ?)`).WithArgs(int64(2), nil).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	n, err := b.ReplaceTable(context.Background(), "tblClient", buf)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceTableWithoutColumnsOnlyDrops(t *testing.T) {
	t.Parallel()
	b, mock := newMockBackend(t)
	mock.ExpectBegin()
	mock.ExpectExec(`DROP TABLE IF EXISTS "tblClient"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	n, err := b.ReplaceTable(context.Background(), "tblClient", tabular.Empty(nil))
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceTableRollsBackOnCreateFailure(t *testing.T) {
	t.Parallel()
	b, mock := newMockBackend(t)
	buf, _ := tabular.NewBuffer([]string{"id"}, [][]any{{int64(1)}})
	mock.ExpectBegin()
	mock.ExpectExec(`DROP TABLE IF EXISTS "t"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE \"t\" (\n  \"id\" INT\n)").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := b.ReplaceTable(context.Background(), "t", buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountRows(t *testing.T) {
	t.Parallel()
	b, mock := newMockBackend(t)
	mock.ExpectQuery(`SELECT COUNT(*) FROM "tblProject"`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(3)))
	n, err := b.CountRows(context.Background(), "tblProject")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestPrepareRowsCoercesWithoutMutating(t *testing.T) {
	t.Parallel()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	buf, _ := tabular.NewBuffer([]string{"f", "s", "d"}, [][]any{{int64(1), int64(7), ts}, {2.5, "x", nil}})
	td := ddl.FromBuffer("t", buf, func(ddl.Kind) string { return "X" })

	got := PrepareRows(td, buf, func(k ddl.Kind, v any) any {
		if k == ddl.KindDateTime {
			return v.(time.Time).Format(tabular.TimeLayout)
		}
		return v
	})
	assert.Equal(t, []any{1.0, "7", "2024-01-01 00:00:00"}, got[0])
	assert.Equal(t, []any{2.5, "x", nil}, got[1])
	assert.Equal(t, int64(1), buf.Rows()[0][0])
}
