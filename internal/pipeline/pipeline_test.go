package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tkexport/internal/cascade"
	"tkexport/internal/datasource"
	_ "tkexport/internal/datasource/sqlite"
	"tkexport/internal/filesink"
	"tkexport/internal/sink"
	"tkexport/internal/storage/sqlite"
	"tkexport/internal/tabular"
)

// seedSource writes a small timekeeping database: three January billing
// rows on projects {10, 10, 20} plus one February row on project 30.
func seedSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "timekeeping.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	for _, stmt := range []string{
		`CREATE TABLE tblClientBilling (billingid INTEGER, projectid INTEGER, payitemid INTEGER, date TEXT, hours REAL)`,
		`INSERT INTO tblClientBilling VALUES
			(1, 10, 100, '2024-01-02 08:00:00', 1.5),
			(2, 10, NULL, '2024-01-10 09:00:00', 2),
			(3, 20, 200, '2024-01-31 00:00:00', 3),
			(4, 30, 300, '2024-02-01 10:00:00', 4)`,
		`CREATE TABLE tblProject (projectid INTEGER, clientid INTEGER, name TEXT)`,
		`INSERT INTO tblProject VALUES (10, 1, 'alpha'), (20, 2, 'beta'), (30, 3, 'gamma'), (40, 1, 'delta')`,
		`CREATE TABLE tblClient (clientid INTEGER, name TEXT)`,
		`INSERT INTO tblClient VALUES (1, 'acme'), (2, 'globex'), (3, 'initech')`,
		`CREATE TABLE tblPayItem (payitemid INTEGER, code TEXT)`,
		`INSERT INTO tblPayItem VALUES (100, 'REG'), (200, 'OT'), (300, 'HOL'), (400, 'SICK')`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return path
}

type harness struct {
	reader *datasource.Reader
	store  *sqlite.Repository
	files  *filesink.Sink
}

func newHarness(t *testing.T, src, out string) *harness {
	t.Helper()
	ctx := context.Background()
	r, err := datasource.Open(ctx, datasource.Config{Kind: "sqlite", Path: src})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	repo, closeFn, err := sqlite.NewRepository(ctx, sqlite.Config{Path: filepath.Join(out, "timekeeping_export.db")})
	require.NoError(t, err)
	t.Cleanup(closeFn)
	files, err := filesink.New(filepath.Join(out, "files"), filesink.FormatCSV)
	require.NoError(t, err)
	return &harness{reader: r, store: repo, files: files}
}

func (h *harness) run(t *testing.T, opts Options) (*Stats, error) {
	t.Helper()
	o, err := New(h.reader, &sink.Loader{Store: h.store, Files: h.files}, opts)
	require.NoError(t, err)
	return o.Run(context.Background())
}

func january() datasource.Range {
	return datasource.Range{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}
}

func keysOf(t *testing.T, buf *tabular.Buffer, col string) []any {
	t.Helper()
	ks, err := tabular.ExtractKeys(buf, col)
	require.NoError(t, err)
	return ks.Values()
}

/* Scenarios */

func TestRunCascadesProjectKeys(t *testing.T) {
	t.Parallel()
	h := newHarness(t, seedSource(t), t.TempDir())

	stats, err := h.run(t, Options{DateColumn: "date", Range: january(), Cascade: true})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		cascade.TableClientBilling: 3,
		cascade.TableProject:       2,
		cascade.TableClient:        2,
		cascade.TablePayItem:       2,
	}, stats.Counts())

	ctx := context.Background()
	proj, err := h.store.Sample(ctx, cascade.TableProject, 100)
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{int64(10), int64(20)}, keysOf(t, proj, "projectid"))

	e, ok := stats.Get(cascade.TableProject)
	require.True(t, ok)
	assert.Equal(t, "filtered", e.Action)
	assert.Equal(t, 2, e.Keys)
	assert.Equal(t, filepath.Join(h.files.Dir(), "tblProject.csv"), e.Artifact)
}

func TestRunZeroRowMainTable(t *testing.T) {
	t.Parallel()
	h := newHarness(t, seedSource(t), t.TempDir())
	rng := datasource.Range{Start: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}

	before := h.reader.Queries()
	stats, err := h.run(t, Options{DateColumn: "date", Range: rng, Cascade: true})
	require.NoError(t, err)
	for _, table := range []string{cascade.TableClientBilling, cascade.TableProject, cascade.TableClient, cascade.TablePayItem} {
		e, ok := stats.Get(table)
		require.True(t, ok, table)
		assert.Zero(t, e.Rows, table)
	}
	// One range read plus one schema probe per dependent table.
	assert.Equal(t, int64(4), h.reader.Queries()-before)

	cols, err := h.store.Describe(context.Background(), cascade.TableClient)
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "clientid", cols[0].Name)

	csv, err := os.ReadFile(filepath.Join(h.files.Dir(), "tblPayItem.csv"))
	require.NoError(t, err)
	assert.Equal(t, "payitemid,code\n", string(csv))
}

func TestRunWithoutCascadeKeepsPayItemFilter(t *testing.T) {
	t.Parallel()
	h := newHarness(t, seedSource(t), t.TempDir())

	stats, err := h.run(t, Options{DateColumn: "date", Range: january(), Cascade: false})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		cascade.TableClientBilling: 3,
		cascade.TableProject:       4,
		cascade.TableClient:        3,
		cascade.TablePayItem:       2,
	}, stats.Counts())
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()
	src, out := seedSource(t), t.TempDir()
	opts := Options{DateColumn: "date", Range: january(), Cascade: true}

	h1 := newHarness(t, src, out)
	first, err := h1.run(t, opts)
	require.NoError(t, err)
	csv1, err := os.ReadFile(filepath.Join(h1.files.Dir(), "tblClient.csv"))
	require.NoError(t, err)

	h2 := newHarness(t, src, out)
	second, err := h2.run(t, opts)
	require.NoError(t, err)
	csv2, err := os.ReadFile(filepath.Join(h2.files.Dir(), "tblClient.csv"))
	require.NoError(t, err)

	ignore := cmpopts.IgnoreFields(TableStats{}, "Duration")
	if diff := cmp.Diff(first.Tables(), second.Tables(), ignore); diff != "" {
		t.Fatalf("stats differ (-first +second):\n%s", diff)
	}
	assert.Equal(t, string(csv1), string(csv2))

	n, err := h2.store.CountRows(context.Background(), cascade.TableClient)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

/* Failure paths */

type fakeSource struct {
	bufs      map[string]*tabular.Buffer
	err       map[string]error
	extracted map[string]*tabular.KeySet
}

func (f *fakeSource) Read(_ context.Context, table, _ string, _ datasource.Range) (*tabular.Buffer, error) {
	return f.bufs[table], f.err[table]
}

func (f *fakeSource) Extract(_ context.Context, table, _ string, keys *tabular.KeySet) (*tabular.Buffer, error) {
	if f.extracted == nil {
		f.extracted = map[string]*tabular.KeySet{}
	}
	f.extracted[table] = keys
	if err := f.err[table]; err != nil {
		return nil, err
	}
	if b, ok := f.bufs[table]; ok {
		return b, nil
	}
	return tabular.Empty(nil), nil
}

type nopLoader struct{ err error }

func (l nopLoader) Load(_ context.Context, table string, buf *tabular.Buffer) (sink.Result, error) {
	return sink.Result{Table: table, Rows: buf.Len()}, l.err
}

func mustBuf(t *testing.T, cols []string, rows ...[]any) *tabular.Buffer {
	t.Helper()
	b, err := tabular.NewBuffer(cols, rows)
	require.NoError(t, err)
	return b
}

func TestRunFailureCarriesContext(t *testing.T) {
	t.Parallel()
	boom := &datasource.QueryError{Table: cascade.TableProject, Err: errors.New("syntax")}
	src := &fakeSource{
		bufs: map[string]*tabular.Buffer{
			cascade.TableClientBilling: mustBuf(t, []string{"projectid", "payitemid"}, []any{int64(10), nil}),
		},
		err: map[string]error{cascade.TableProject: boom},
	}
	o, err := New(src, nopLoader{}, Options{Cascade: true})
	require.NoError(t, err)

	stats, err := o.Run(context.Background())
	require.Error(t, err)
	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, cascade.TableProject, se.Table)
	assert.Equal(t, StateDependentCascade, se.State)
	assert.Contains(t, se.Filter, "projectid IN 1 keys")
	assert.ErrorIs(t, err, datasource.ErrQueryExecution)
	assert.Equal(t, StateFailed, o.State())
	assert.Len(t, stats.Tables(), 1)
}

func TestRunLoadFailure(t *testing.T) {
	t.Parallel()
	src := &fakeSource{bufs: map[string]*tabular.Buffer{
		cascade.TableClientBilling: mustBuf(t, []string{"projectid", "payitemid"}),
	}}
	o, err := New(src, nopLoader{err: &sink.WriteError{Table: "x", Kind: sink.ErrFileSinkWrite, Err: errors.New("disk")}}, Options{})
	require.NoError(t, err)

	_, err = o.Run(context.Background())
	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StateLoad, se.State)
	assert.ErrorIs(t, err, sink.ErrFileSinkWrite)
}

func TestRunNullKeysAreNotPropagated(t *testing.T) {
	t.Parallel()
	src := &fakeSource{bufs: map[string]*tabular.Buffer{
		cascade.TableClientBilling: mustBuf(t, []string{"projectid", "payitemid"},
			[]any{nil, nil}, []any{int64(20), nil}),
	}}
	o, err := New(src, nopLoader{}, Options{Cascade: true})
	require.NoError(t, err)
	_, err = o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []any{int64(20)}, src.extracted[cascade.TableProject].Values())
	assert.True(t, src.extracted[cascade.TablePayItem].Empty(), "all-null parent column gives an empty key set")
}

func TestRunStopsBetweenTablesOnCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o, err := New(&fakeSource{}, nopLoader{}, Options{})
	require.NoError(t, err)
	_, err = o.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewValidates(t *testing.T) {
	t.Parallel()
	_, err := New(nil, nopLoader{}, Options{})
	assert.Error(t, err)
	_, err = New(&fakeSource{}, nopLoader{}, Options{Range: january()})
	assert.Error(t, err, "range without column")
	_, err = New(&fakeSource{}, nopLoader{}, Options{Plan: &cascade.Plan{}})
	assert.Error(t, err)
}

func TestStatsRejectsDuplicates(t *testing.T) {
	t.Parallel()
	s := newStats("run", time.Now())
	require.NoError(t, s.Record(TableStats{Table: "a", Rows: 2}))
	assert.ErrorIs(t, s.Record(TableStats{Table: "a", Rows: 3}), ErrDuplicateEntry)
	assert.Equal(t, 2, s.Total())
}
