package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"tkexport/internal/pipeline"
	"tkexport/internal/tabular"
	"tkexport/internal/transform"
	"tkexport/internal/validate"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderStats(w io.Writer, s *pipeline.Stats) {
	t := newTable(w)
	t.SetTitle("run " + s.RunID)
	t.AppendHeader(table.Row{"Table", "Action", "Filter", "Rows", "Artifact", "Time"})
	for _, ts := range s.Tables() {
		t.AppendRow(table.Row{ts.Table, ts.Action, ts.Filter, ts.Rows, ts.Artifact, ts.Duration.Round(time.Millisecond)})
	}
	t.AppendFooter(table.Row{"", "", "total", s.Total(), "", s.Elapsed.Round(time.Millisecond)})
	t.Render()
}

func renderTransform(w io.Writer, s *transform.Summary) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Script", "Commands", "Failed", "Rows affected", "Result"})
	for _, sr := range s.Scripts {
		var failed int
		var rows int64
		for _, c := range sr.Commands {
			if c.Err != nil {
				failed++
			}
			rows += c.Rows
		}
		result := "ok"
		switch {
		case sr.Err != nil:
			result = sr.Err.Error()
		case sr.Empty:
			result = "empty"
		case failed > 0:
			result = "failed"
		}
		t.AppendRow(table.Row{sr.Script.Name, len(sr.Commands), failed, rows, result})
	}
	t.AppendFooter(table.Row{
		fmt.Sprintf("%d ok / %d failed", s.ScriptsOK, s.ScriptsFailed),
		s.CommandsOK + s.CommandsFailed, s.CommandsFailed, "", "",
	})
	t.Render()
}

func renderValidation(w io.Writer, reports []*validate.Report, show int) {
	t := newTable(w)
	t.AppendHeader(table.Row{"File", "Encoding", "Rows", "Columns", "Violations"})
	var all []validate.Violation
	for _, r := range reports {
		t.AppendRow(table.Row{r.Path, r.Encoding, r.Rows, r.Columns, len(r.Violations)})
		all = append(all, r.Violations...)
	}
	t.Render()
	if len(all) == 0 || show <= 0 {
		return
	}

	v := newTable(w)
	v.AppendHeader(table.Row{"File", "Row", "Column", "Value", "Rule"})
	for _, x := range all[:min(show, len(all))] {
		v.AppendRow(table.Row{x.File, x.Row, x.Column, x.Value, x.Rule})
	}
	if len(all) > show {
		v.AppendFooter(table.Row{fmt.Sprintf("%d more", len(all)-show)})
	}
	v.Render()
}

func renderDump(w io.Writer, dumps []tableDump) {
	for _, d := range dumps {
		cols := make([]string, len(d.Columns))
		for i, c := range d.Columns {
			cols[i] = c.Name + " " + c.SQLType
		}
		fmt.Fprintf(w, "\n%s (%d rows)\n  %s\n", d.Name, d.Rows, strings.Join(cols, ", "))
		if d.Sample == nil || d.Sample.NumColumns() == 0 {
			continue
		}
		renderBuffer(w, d.Sample)
	}
}

func renderBuffer(w io.Writer, b *tabular.Buffer) {
	t := newTable(w)
	header := make(table.Row, b.NumColumns())
	for i, c := range b.Columns() {
		header[i] = c
	}
	t.AppendHeader(header)
	for _, r := range b.Rows() {
		row := make(table.Row, len(r))
		for i, v := range r {
			row[i] = tabular.FormatValue(v)
		}
		t.AppendRow(row)
	}
	t.Render()
}

func renderDiagnose(w io.Writer, results []probeResult) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Step", "Columns", "Time", "Result"})
	for _, r := range results {
		result := "ok"
		if r.Err != nil {
			result = r.Err.Error()
		}
		t.AppendRow(table.Row{r.Step, r.Columns, r.Duration.Round(time.Millisecond), result})
	}
	t.Render()
}
