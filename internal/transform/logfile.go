package transform

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
)

const stamp = "2006-01-02 15:04:05"

// LogPath is transformation_log_<YYYYMMDD_HHMMSS>.txt next to the database.
func LogPath(database string, t time.Time) string {
	return filepath.Join(filepath.Dir(database), "transformation_log_"+t.Format("20060102_150405")+".txt")
}

// WriteLog renders s into path, replacing any previous file.
func WriteLog(path string, s *Summary) error {
	var buf bytes.Buffer
	s.Render(&buf)
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("transform: write log: %w", err)
	}
	return nil
}

// Render writes the execution log.
func (s *Summary) Render(w io.Writer) {
	rule := strings.Repeat("=", 80)
	dash := strings.Repeat("-", 80)
	p := func(format string, a ...any) { fmt.Fprintf(w, format+"\n", a...) }

	p(rule)
	p("SQL TRANSFORMATION EXECUTION LOG")
	p("Started: %s", s.Started.Format(stamp))
	p(rule)
	p("")
	p("Database: %s", s.Database)
	p("Number of transformation scripts: %d", len(s.Scripts))
	p("")
	p(dash)

	for i, sr := range s.Scripts {
		p("[%d/%d] EXECUTING: %s", i+1, len(s.Scripts), sr.Script.Path)
		p("File path: %s", sr.Path)
		switch {
		case sr.Err != nil:
			p("ERROR: %v", sr.Err)
		case sr.Empty:
			p("WARNING: Script file is empty")
		default:
			p("Number of SQL commands found: %d", len(sr.Commands))
			for j, c := range sr.Commands {
				p("  Command %d: %s", j+1, truncate(c.SQL, 80))
				if c.Err != nil {
					p("  [X] Status: FAILED")
					p("  Error: %v", c.Err)
				} else {
					p("  [OK] Status: SUCCESS (Rows affected: %d)", c.Rows)
				}
			}
		}
		if sr.Failed() {
			p("Script result: [X] FAILED")
		} else {
			p("Script result: [OK] COMPLETED SUCCESSFULLY")
		}
		p(dash)
	}

	p(rule)
	p("EXECUTION SUMMARY")
	p(rule)
	p("Total scripts: %d", len(s.Scripts))
	p("Successful scripts: %d", s.ScriptsOK)
	p("Failed scripts: %d", s.ScriptsFailed)
	p("Successful commands: %d", s.CommandsOK)
	p("Failed commands: %d", s.CommandsFailed)
	p("Completed: %s", s.Finished.Format(stamp))
	p(rule)
}
