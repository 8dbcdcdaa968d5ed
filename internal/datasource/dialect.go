package datasource

import (
	"strconv"
	"strings"
	"time"
)

// Dialect captures the few SQL text differences between source kinds.
type Dialect struct {
	Name string
	// QuoteIdent quotes one identifier part.
	QuoteIdent func(string) string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// BindTime converts a range bound to the value bound for the driver.
	// nil passes time.Time through.
	BindTime func(time.Time) any
	// TimeExpr wraps both sides of a range comparison, column and bound.
	// nil compares them as they are.
	TimeExpr func(expr string) string
	// NoSchemaProbe declares that zero-row probes are impractical.
	NoSchemaProbe bool
}

// Quote quotes a possibly schema-qualified name (schema.table).
func (d Dialect) Quote(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = d.QuoteIdent(p)
	}
	return strings.Join(parts, ".")
}

func (d Dialect) bindTime(t time.Time) any {
	if d.BindTime == nil {
		return t
	}
	return d.BindTime(t)
}

func (d Dialect) timeExpr(expr string) string {
	if d.TimeExpr == nil {
		return expr
	}
	return d.TimeExpr(expr)
}

// Bracket quoting, as used by SQL Server and Access.
func Bracket(s string) string { return "[" + strings.ReplaceAll(s, "]", "]]") + "]" }

// DoubleQuote is ANSI identifier quoting.
func DoubleQuote(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` }

// Backtick is MySQL identifier quoting.
func Backtick(s string) string { return "`" + strings.ReplaceAll(s, "`", "``") + "`" }

// QuestionMark renders positional '?' placeholders.
func QuestionMark(int) string { return "?" }

// AtP renders SQL Server style @p1, @p2, ... placeholders.
func AtP(n int) string { return "@p" + strconv.Itoa(n) }

// Dollar renders Postgres style $1, $2, ... placeholders.
func Dollar(n int) string { return "$" + strconv.Itoa(n) }

// Built-in dialects.
var (
	SQLite = Dialect{
		Name:        "sqlite",
		QuoteIdent:  DoubleQuote,
		Placeholder: QuestionMark,
		// SQLite has no datetime type. Stored text comes as date-only,
		// "YYYY-MM-DD HH:MM:SS" or with a zone suffix, so both sides go
		// through datetime() and compare as UTC.
		BindTime: func(t time.Time) any { return t.UTC().Format("2006-01-02 15:04:05") },
		TimeExpr: func(expr string) string { return "datetime(" + expr + ")" },
	}
	MSSQL    = Dialect{Name: "mssql", QuoteIdent: Bracket, Placeholder: AtP}
	Postgres = Dialect{Name: "postgres", QuoteIdent: DoubleQuote, Placeholder: Dollar}
	MySQL    = Dialect{Name: "mysql", QuoteIdent: Backtick, Placeholder: QuestionMark}
)
