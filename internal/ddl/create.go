// Package ddl defines a small, backend-agnostic model for the tables an
// export creates, infers it from a materialized buffer, and renders it.
//
// Backend packages (internal/storage/<kind>/ddl) supply identifier quoting
// and the Kind → SQL type mapping; rendering rules live here once.
package ddl

import (
	"fmt"
	"strings"
)

// Quoter quotes a single identifier part.
type Quoter func(string) string

// QuoteFQN quotes each dot-separated segment of fqn.
func QuoteFQN(q Quoter, fqn string) string {
	parts := strings.Split(fqn, ".")
	for i, p := range parts {
		parts[i] = q(p)
	}
	return strings.Join(parts, ".")
}

// BuildCreateTableSQL renders a CREATE TABLE statement:
//
//	CREATE TABLE <fqn> (
//	  <col> <type> [NOT NULL],
//	  ...,
//	  [PRIMARY KEY (<pk-cols>)]
//	)
//
// t.FQN must be non-empty and every column needs a Name and SQLType.
// Primary-key columns are always NOT NULL.
func BuildCreateTableSQL(q Quoter, t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+1)
	var pks []string
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}
		def := q(name) + " " + typ
		if !c.Nullable || c.PrimaryKey {
			def += " NOT NULL"
		}
		cols = append(cols, def)
		if c.PrimaryKey {
			pks = append(pks, q(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", QuoteFQN(q, fqn), strings.Join(cols, ",\n  ")), nil
}

// BuildDropTableSQL renders DROP TABLE IF EXISTS for fqn.
func BuildDropTableSQL(q Quoter, fqn string) string {
	return "DROP TABLE IF EXISTS " + QuoteFQN(q, fqn)
}

// BuildInsertSQL renders a single-row INSERT with the given placeholder style
// (ph receives 1-based positions).
func BuildInsertSQL(q Quoter, fqn string, columns []string, ph func(int) string) string {
	names := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		names[i] = q(c)
		marks[i] = ph(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		QuoteFQN(q, fqn), strings.Join(names, ", "), strings.Join(marks, ", "))
}
