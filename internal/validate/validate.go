// Package validate checks exported CSV files against per-column regular
// expression rules.
package validate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"
)

// ErrNoCSV is returned by LatestCSV when the directory holds no CSV file.
var ErrNoCSV = errors.New("no csv file found")

// Rule requires every value of Column to match Pattern somewhere.
type Rule struct {
	Name        string
	Column      string
	Pattern     string
	Description string
}

// Violation is one value that failed a rule. Row counts the header as 1.
type Violation struct {
	File        string
	Row         int
	Column      string
	Value       string
	Rule        string
	Pattern     string
	Description string
}

// Warning is a configuration or parse problem that did not stop validation.
type Warning struct {
	File    string
	Rule    string
	Message string
}

func (w Warning) String() string {
	var b strings.Builder
	if w.File != "" {
		b.WriteString(w.File + ": ")
	}
	if w.Rule != "" {
		b.WriteString("rule " + w.Rule + ": ")
	}
	b.WriteString(w.Message)
	return b.String()
}

// Report is the outcome for one file.
type Report struct {
	Path       string
	Encoding   string
	Rows       int
	Columns    int
	Violations []Violation
	Warnings   []Warning
}

// Valid reports whether no rule was violated.
func (r *Report) Valid() bool { return len(r.Violations) == 0 }

type compiled struct {
	Rule
	re *regexp.Regexp
}

// Validator holds compiled rules. It is safe for concurrent use.
type Validator struct {
	rules    []compiled
	warnings []Warning
}

// New compiles rules. A rule whose pattern does not compile is dropped and
// reported by Warnings.
func New(rules []Rule) *Validator {
	v := &Validator{}
	for _, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			v.warnings = append(v.warnings, Warning{Rule: r.Name, Message: fmt.Sprintf("invalid pattern %q: %v", r.Pattern, err)})
			continue
		}
		v.rules = append(v.rules, compiled{Rule: r, re: re})
	}
	return v
}

// Warnings returns the rule compilation warnings.
func (v *Validator) Warnings() []Warning { return append([]Warning(nil), v.warnings...) }

// Rules reports how many rules are active.
func (v *Validator) Rules() int { return len(v.rules) }

// File validates one CSV file. Values are trimmed and NFC-normalized before
// matching. A rule naming a column the file lacks yields one warning.
func (v *Validator) File(ctx context.Context, path string) (*Report, error) {
	rep := &Report{Path: path}
	var (
		active []compiled
		index  []int
	)
	onRow := func(row int, rec []string) {
		rep.Rows++
		for i, r := range active {
			val := norm.NFC.String(strings.TrimSpace(rec[index[i]]))
			if !r.re.MatchString(val) {
				rep.Violations = append(rep.Violations, Violation{
					File: path, Row: row, Column: r.Column, Value: val,
					Rule: r.Name, Pattern: r.Pattern, Description: r.Description,
				})
			}
		}
	}
	onError := func(row int, err error) {
		rep.Warnings = append(rep.Warnings, Warning{File: path, Message: fmt.Sprintf("row %d: %v", row, err)})
	}

	onHeader := func(header []string) {
		rep.Columns = len(header)
		pos := make(map[string]int, len(header))
		for i, h := range header {
			pos[norm.NFC.String(h)] = i
		}
		for _, r := range v.rules {
			ix, ok := pos[norm.NFC.String(r.Column)]
			if !ok {
				rep.Warnings = append(rep.Warnings, Warning{
					File: path, Rule: r.Name,
					Message: fmt.Sprintf("column %q not found in csv", r.Column),
				})
				continue
			}
			active = append(active, r)
			index = append(index, ix)
		}
	}

	enc, err := readCSV(ctx, path, onHeader, onRow, onError)
	if err != nil {
		return nil, err
	}
	rep.Encoding = enc
	log.Printf("validate: file=%s rows=%d violations=%d warnings=%d", path, rep.Rows, len(rep.Violations), len(rep.Warnings))
	return rep, nil
}

// Files validates paths concurrently, at most limit at a time (limit <= 0
// means one per path). Reports come back in the order of paths.
func (v *Validator) Files(ctx context.Context, paths []string, limit int) ([]*Report, error) {
	out := make([]*Report, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, p := range paths {
		g.Go(func() error {
			rep, err := v.File(ctx, p)
			if err != nil {
				return err
			}
			out[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// LatestCSV returns the most recently modified .csv file under dir.
func LatestCSV(dir string) (string, error) {
	var (
		best    string
		bestMod int64
	)
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(p), ".csv") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if m := info.ModTime().UnixNano(); best == "" || m > bestMod {
			best, bestMod = p, m
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("validate: scan %s: %w", dir, err)
	}
	if best == "" {
		return "", fmt.Errorf("%w in %s", ErrNoCSV, dir)
	}
	return best, nil
}
