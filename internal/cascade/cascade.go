// Package cascade decides, table by table, how much of each related table an
// export must read so that the exported subset stays referentially closed
// around the date-filtered main table.
package cascade

import (
	"errors"
	"fmt"
	"strings"

	"tkexport/internal/tabular"
)

// Role distinguishes the date-filtered main table from tables derived from it.
type Role int

const (
	RoleMain Role = iota
	RoleDependent
)

func (r Role) String() string {
	if r == RoleMain {
		return "main"
	}
	return "dependent"
}

// Mode controls whether a dependent table is filtered by its parent's keys.
type Mode string

const (
	// ModeCascade filters only when the run's cascade flag is on.
	ModeCascade Mode = "cascade"
	// ModeAlways filters regardless of the flag.
	ModeAlways Mode = "always"
	// ModeNever reads the whole table.
	ModeNever Mode = "never"
)

// ErrParentNotLoaded is returned when a dependent table is planned before
// its parent has a materialized result.
var ErrParentNotLoaded = errors.New("parent not loaded")

// TableSpec describes one table of the export.
type TableSpec struct {
	Name string
	Role Role
	// FilterKey is the column of this table matched against the key set.
	FilterKey string
	// ParentKey is the column of the parent's result the keys come from.
	// Empty means same as FilterKey.
	ParentKey string
	Parent    string
	Mode      Mode
}

func (s TableSpec) parentKey() string {
	if s.ParentKey != "" {
		return s.ParentKey
	}
	return s.FilterKey
}

// Plan is the ordered table list of one run. Parents always precede their
// children.
type Plan struct {
	Tables []TableSpec
}

// Default table names of the timekeeping export.
const (
	TableClientBilling = "tblClientBilling"
	TableProject       = "tblProject"
	TableClient        = "tblClient"
	TablePayItem       = "tblPayItem"
)

// DefaultPlan is billing → project → client, plus billing → pay item. Pay
// items are filtered from billing's own key column even when the cascade
// flag is off. Setting the pay-item table to ModeCascade instead makes it
// follow the flag like projects and clients, so a run without the flag
// reads the whole pay-item table.
func DefaultPlan() *Plan {
	return &Plan{Tables: []TableSpec{
		{Name: TableClientBilling, Role: RoleMain},
		{Name: TableProject, Role: RoleDependent, Parent: TableClientBilling, FilterKey: "projectid", Mode: ModeCascade},
		{Name: TableClient, Role: RoleDependent, Parent: TableProject, FilterKey: "clientid", Mode: ModeCascade},
		{Name: TablePayItem, Role: RoleDependent, Parent: TableClientBilling, FilterKey: "payitemid", Mode: ModeAlways},
	}}
}

// NewPlan validates specs and returns a Plan. Names must be unique; every
// dependent needs a filter key and a parent that appears earlier; the first
// table must be a main table.
func NewPlan(specs []TableSpec) (*Plan, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("cascade: empty plan")
	}
	if specs[0].Role != RoleMain {
		return nil, fmt.Errorf("cascade: first table %q must be main", specs[0].Name)
	}
	seen := make(map[string]bool, len(specs))
	out := make([]TableSpec, 0, len(specs))
	for i, s := range specs {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			return nil, fmt.Errorf("cascade: table %d has no name", i)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("cascade: duplicate table %q", s.Name)
		}
		switch s.Role {
		case RoleMain:
			if s.Parent != "" {
				return nil, fmt.Errorf("cascade: main table %q cannot have a parent", s.Name)
			}
		case RoleDependent:
			if s.Parent == "" || !seen[s.Parent] {
				return nil, fmt.Errorf("cascade: table %q: parent %q must precede it", s.Name, s.Parent)
			}
			if s.FilterKey == "" {
				return nil, fmt.Errorf("cascade: table %q has no filter key", s.Name)
			}
			if s.Mode == "" {
				s.Mode = ModeCascade
			}
			switch s.Mode {
			case ModeCascade, ModeAlways, ModeNever:
			default:
				return nil, fmt.Errorf("cascade: table %q: unknown mode %q", s.Name, s.Mode)
			}
		default:
			return nil, fmt.Errorf("cascade: table %q: unknown role %d", s.Name, s.Role)
		}
		seen[s.Name] = true
		out = append(out, s)
	}
	return &Plan{Tables: out}, nil
}

// Action is what the extractor should do for one table.
type Action int

const (
	ActionReadRange Action = iota
	ActionReadAll
	ActionReadFiltered
	ActionShortCircuit
)

func (a Action) String() string {
	switch a {
	case ActionReadRange:
		return "range"
	case ActionReadAll:
		return "all"
	case ActionReadFiltered:
		return "filtered"
	case ActionShortCircuit:
		return "short-circuit"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Decision is the planner's verdict for one table. Keys is set for
// ActionReadFiltered (non-empty) and ActionShortCircuit (empty).
type Decision struct {
	Action Action
	Keys   *tabular.KeySet
}

// Planner applies the run-wide cascade flag to table specs.
type Planner struct {
	Cascade bool
}

// Filtered reports whether spec is filtered by its parent's keys in this run.
func (p Planner) Filtered(spec TableSpec) bool {
	switch spec.Mode {
	case ModeAlways:
		return true
	case ModeNever:
		return false
	default:
		return p.Cascade
	}
}

// Decide picks the action for spec given the results materialized so far.
//
// A parent result with neither rows nor columns (an empty probe) yields an
// empty key set rather than ErrColumnNotFound: there is nothing to match.
func (p Planner) Decide(spec TableSpec, results map[string]*tabular.Buffer) (Decision, error) {
	if spec.Role == RoleMain {
		return Decision{Action: ActionReadRange}, nil
	}
	if !p.Filtered(spec) {
		return Decision{Action: ActionReadAll}, nil
	}
	parent, ok := results[spec.Parent]
	if !ok || parent == nil {
		return Decision{}, fmt.Errorf("%w: %s (needed by %s)", ErrParentNotLoaded, spec.Parent, spec.Name)
	}
	if parent.Len() == 0 && parent.NumColumns() == 0 {
		return Decision{Action: ActionShortCircuit, Keys: tabular.NewKeySet(spec.parentKey())}, nil
	}
	keys, err := tabular.ExtractKeys(parent, spec.parentKey())
	if err != nil {
		return Decision{}, fmt.Errorf("%s keys from %s: %w", spec.Name, spec.Parent, err)
	}
	if keys.Empty() {
		return Decision{Action: ActionShortCircuit, Keys: keys}, nil
	}
	return Decision{Action: ActionReadFiltered, Keys: keys}, nil
}
