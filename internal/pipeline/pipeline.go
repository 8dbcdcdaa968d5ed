// Package pipeline runs one export: the date-filtered main table is read
// first, every dependent table is then extracted with the keys of its
// parent's result, and each table is loaded into the sinks as soon as it is
// materialized.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"tkexport/internal/cascade"
	"tkexport/internal/datasource"
	"tkexport/internal/metrics"
	"tkexport/internal/sink"
	"tkexport/internal/tabular"
)

// State is the orchestrator's position in a run.
type State int

const (
	StateIdle State = iota
	StateMainRead
	StateDependentCascade
	StateLoad
	StateSummarize
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMainRead:
		return "main-read"
	case StateDependentCascade:
		return "dependent-cascade"
	case StateLoad:
		return "load"
	case StateSummarize:
		return "summarize"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// StepError wraps every fatal error of a run with the table, state and
// filter that were active when it happened.
type StepError struct {
	Table  string
	State  State
	Filter string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("pipeline: state=%s table=%s filter=%q: %v", e.State, e.Table, e.Filter, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Source is the read side of a run. *datasource.Reader satisfies it.
type Source interface {
	Read(ctx context.Context, table, column string, rng datasource.Range) (*tabular.Buffer, error)
	Extract(ctx context.Context, table, filterKey string, keys *tabular.KeySet) (*tabular.Buffer, error)
}

// Loader is the write side of a run. *sink.Loader satisfies it.
type Loader interface {
	Load(ctx context.Context, table string, buf *tabular.Buffer) (sink.Result, error)
}

// Options configure one run.
type Options struct {
	// Plan defaults to cascade.DefaultPlan().
	Plan *cascade.Plan
	// DateColumn is the main table's range column.
	DateColumn string
	Range      datasource.Range
	// Cascade enables key filtering for tables in cascade mode.
	Cascade bool
	// Job labels metrics; defaults to "export".
	Job string
}

// Orchestrator sequences the tables of a plan. It is single-use per Run
// call and not safe for concurrent use.
type Orchestrator struct {
	src    Source
	loader Loader
	opts   Options
	state  State
	runID  string
}

// New validates opts and returns an idle Orchestrator.
func New(src Source, loader Loader, opts Options) (*Orchestrator, error) {
	if src == nil || loader == nil {
		return nil, fmt.Errorf("pipeline: source and loader are required")
	}
	if opts.Plan == nil {
		opts.Plan = cascade.DefaultPlan()
	}
	if len(opts.Plan.Tables) == 0 {
		return nil, fmt.Errorf("pipeline: empty plan")
	}
	if opts.Range.Bounded() && opts.DateColumn == "" {
		return nil, fmt.Errorf("pipeline: a date range needs a date column")
	}
	if opts.Job == "" {
		opts.Job = "export"
	}
	return &Orchestrator{src: src, loader: loader, opts: opts}, nil
}

// State reports where the last (or current) run is.
func (o *Orchestrator) State() State { return o.state }

// RunID is the id of the last run, empty before the first.
func (o *Orchestrator) RunID() string { return o.runID }

// Run processes every table of the plan in order and returns the stats
// collected so far together with the first error, which is always a
// *StepError. The context is only consulted between tables: once a table's
// read starts, its load runs to completion.
func (o *Orchestrator) Run(ctx context.Context) (*Stats, error) {
	o.runID = uuid.NewString()
	o.state = StateIdle
	started := time.Now()
	stats := newStats(o.runID, started)
	planner := cascade.Planner{Cascade: o.opts.Cascade}
	results := make(map[string]*tabular.Buffer, len(o.opts.Plan.Tables))

	log.Printf("pipeline: run=%s start tables=%d range=%s cascade=%t",
		o.runID, len(o.opts.Plan.Tables), o.opts.Range, o.opts.Cascade)

	for _, spec := range o.opts.Plan.Tables {
		if err := ctx.Err(); err != nil {
			return stats, o.fail(spec.Name, "", err)
		}
		ts, buf, err := o.step(ctx, planner, spec, results)
		if err != nil {
			return stats, err
		}
		results[spec.Name] = buf
		if err := stats.Record(ts); err != nil {
			return stats, o.fail(spec.Name, ts.Filter, err)
		}
		metrics.RecordRows(o.opts.Job, spec.Name, int64(ts.Rows))
	}

	o.state = StateSummarize
	stats.Elapsed = time.Since(started)
	log.Printf("pipeline: run=%s done tables=%d rows=%d elapsed=%s",
		o.runID, len(stats.entries), stats.Total(), stats.Elapsed.Round(time.Millisecond))
	o.state = StateDone
	return stats, nil
}

func (o *Orchestrator) step(ctx context.Context, planner cascade.Planner, spec cascade.TableSpec, results map[string]*tabular.Buffer) (TableStats, *tabular.Buffer, error) {
	o.state = StateDependentCascade
	if spec.Role == cascade.RoleMain {
		o.state = StateMainRead
	}
	start := time.Now()

	d, err := planner.Decide(spec, results)
	if err != nil {
		return TableStats{}, nil, o.fail(spec.Name, "", err)
	}
	filter := o.describe(spec, d)

	var buf *tabular.Buffer
	switch d.Action {
	case cascade.ActionReadRange:
		buf, err = o.src.Read(ctx, spec.Name, o.opts.DateColumn, o.opts.Range)
	case cascade.ActionReadAll:
		buf, err = o.src.Extract(ctx, spec.Name, spec.FilterKey, nil)
	default:
		// Short-circuit passes the empty key set; the extractor then only
		// probes the schema.
		buf, err = o.src.Extract(ctx, spec.Name, spec.FilterKey, d.Keys)
	}
	metrics.RecordStep(o.opts.Job, "extract", spec.Name, err, time.Since(start))
	if err != nil {
		return TableStats{}, nil, o.fail(spec.Name, filter, err)
	}
	log.Printf("pipeline: run=%s table=%s action=%s filter=%q rows=%d",
		o.runID, spec.Name, d.Action, filter, buf.Len())

	o.state = StateLoad
	loadStart := time.Now()
	res, err := o.loader.Load(ctx, spec.Name, buf)
	metrics.RecordStep(o.opts.Job, "load", spec.Name, err, time.Since(loadStart))
	if err != nil {
		return TableStats{}, nil, o.fail(spec.Name, filter, err)
	}

	return TableStats{
		Table:       spec.Name,
		Rows:        buf.Len(),
		Action:      d.Action.String(),
		Filter:      filter,
		Keys:        d.Keys.Len(),
		Artifact:    res.Artifact,
		Duration:    time.Since(start),
		Fingerprint: buf.Fingerprint(),
	}, buf, nil
}

func (o *Orchestrator) describe(spec cascade.TableSpec, d cascade.Decision) string {
	switch d.Action {
	case cascade.ActionReadRange:
		if !o.opts.Range.Bounded() {
			return "all"
		}
		return fmt.Sprintf("%s in %s", o.opts.DateColumn, o.opts.Range)
	case cascade.ActionReadAll:
		return "all"
	default:
		return fmt.Sprintf("%s IN %d keys from %s", spec.FilterKey, d.Keys.Len(), spec.Parent)
	}
}

func (o *Orchestrator) fail(table, filter string, err error) error {
	se := &StepError{Table: table, State: o.state, Filter: filter, Err: err}
	o.state = StateFailed
	log.Printf("pipeline: run=%s failed %v", o.runID, se)
	return se
}
