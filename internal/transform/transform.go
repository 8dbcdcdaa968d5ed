// Package transform runs SQL transformation scripts against an exported
// table store and keeps a plain-text execution log of what ran.
package transform

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"tkexport/internal/datasource/file"
)

// Execer is the part of *sql.DB the runner needs.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Script is one .sql file of the transformation list.
type Script struct {
	Name string
	Path string
}

// CommandResult is the outcome of one statement.
type CommandResult struct {
	SQL  string
	Rows int64
	Err  error
}

// ScriptResult is the outcome of one script. Err is set when the file could
// not be read; failing statements are reported per command.
type ScriptResult struct {
	Script   Script
	Path     string
	Empty    bool
	Err      error
	Commands []CommandResult
	Duration time.Duration
}

// Failed reports whether the file could not be read or any statement failed.
func (r ScriptResult) Failed() bool {
	if r.Err != nil {
		return true
	}
	for _, c := range r.Commands {
		if c.Err != nil {
			return true
		}
	}
	return false
}

// Summary aggregates a run.
type Summary struct {
	Database       string
	Started        time.Time
	Finished       time.Time
	Scripts        []ScriptResult
	ScriptsOK      int
	ScriptsFailed  int
	CommandsOK     int
	CommandsFailed int
}

// Failed reports whether anything in the run failed.
func (s *Summary) Failed() bool { return s.ScriptsFailed > 0 || s.CommandsFailed > 0 }

// Runner executes scripts one statement at a time.
type Runner struct {
	DB Execer
	// Database labels the target in logs.
	Database string
	// BaseDir resolves relative script paths.
	BaseDir string
	Now     func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Run executes scripts in order. A failing statement is recorded and the
// run moves on to the next one; an unreadable script counts as a failed
// script. Run only returns an error when ctx is done.
func (r *Runner) Run(ctx context.Context, scripts []Script) (*Summary, error) {
	if r.DB == nil {
		return nil, errors.New("transform: nil database")
	}
	s := &Summary{Database: r.Database, Started: r.now()}
	for i, sc := range scripts {
		if err := ctx.Err(); err != nil {
			s.Finished = r.now()
			return s, err
		}
		t0 := time.Now()
		res := r.runScript(ctx, sc)
		res.Duration = time.Since(t0)
		log.Printf("transform: script=%d/%d path=%s commands=%d failed=%t",
			i+1, len(scripts), res.Path, len(res.Commands), res.Failed())
		s.Scripts = append(s.Scripts, res)
		if res.Failed() {
			s.ScriptsFailed++
		} else {
			s.ScriptsOK++
		}
		for _, c := range res.Commands {
			if c.Err != nil {
				s.CommandsFailed++
			} else {
				s.CommandsOK++
			}
		}
	}
	s.Finished = r.now()
	return s, nil
}

func (r *Runner) runScript(ctx context.Context, sc Script) ScriptResult {
	res := ScriptResult{Script: sc, Path: r.resolve(sc.Path)}
	body, err := file.NewLocal(res.Path).ReadString(ctx)
	if err != nil {
		res.Err = fmt.Errorf("read script: %w", err)
		return res
	}
	stmts := SplitStatements(body)
	if len(stmts) == 0 {
		res.Empty = true
		log.Printf("transform: warning: script %s is empty", res.Path)
		return res
	}
	for _, q := range stmts {
		cr := CommandResult{SQL: q}
		out, err := r.DB.ExecContext(ctx, q)
		if err != nil {
			cr.Err = err
			log.Printf("transform: command failed path=%s err=%v", res.Path, err)
		} else if n, err := out.RowsAffected(); err == nil {
			cr.Rows = n
		}
		res.Commands = append(res.Commands, cr)
	}
	return res
}

func (r *Runner) resolve(p string) string {
	if filepath.IsAbs(p) || r.BaseDir == "" {
		return p
	}
	return filepath.Join(r.BaseDir, p)
}

// truncate shortens a statement to one log line.
func truncate(q string, n int) string {
	q = strings.Join(strings.Fields(q), " ")
	if len([]rune(q)) <= n {
		return q
	}
	return string([]rune(q)[:n]) + "..."
}
