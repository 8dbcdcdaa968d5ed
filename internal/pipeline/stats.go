package pipeline

import (
	"errors"
	"fmt"
	"time"
)

// ErrDuplicateEntry is returned when a table is recorded twice in one run.
var ErrDuplicateEntry = errors.New("table already recorded")

// TableStats is what one run learned about one table.
type TableStats struct {
	Table  string
	Rows   int
	Action string
	// Filter describes the predicate applied, e.g. "projectid IN 2 keys".
	Filter   string
	Keys     int
	Artifact string
	Duration time.Duration
	// Fingerprint is a content hash of the exported buffer.
	Fingerprint uint64
}

// Stats is the append-only per-table summary of a run, in processing order.
type Stats struct {
	RunID   string
	Started time.Time
	Elapsed time.Duration

	entries []TableStats
	index   map[string]int
}

func newStats(runID string, started time.Time) *Stats {
	return &Stats{RunID: runID, Started: started, index: map[string]int{}}
}

// Record appends ts. Each table may be recorded only once.
func (s *Stats) Record(ts TableStats) error {
	if _, ok := s.index[ts.Table]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateEntry, ts.Table)
	}
	s.index[ts.Table] = len(s.entries)
	s.entries = append(s.entries, ts)
	return nil
}

// Get returns the entry of table.
func (s *Stats) Get(table string) (TableStats, bool) {
	i, ok := s.index[table]
	if !ok {
		return TableStats{}, false
	}
	return s.entries[i], true
}

// Tables returns a copy of every entry in processing order.
func (s *Stats) Tables() []TableStats {
	return append([]TableStats(nil), s.entries...)
}

// Counts maps table name to row count.
func (s *Stats) Counts() map[string]int {
	out := make(map[string]int, len(s.entries))
	for _, e := range s.entries {
		out[e.Table] = e.Rows
	}
	return out
}

// Total sums the row counts of every table.
func (s *Stats) Total() int {
	n := 0
	for _, e := range s.entries {
		n += e.Rows
	}
	return n
}
