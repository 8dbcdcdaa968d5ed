// Package ddl holds the SQLite column type mapping and identifier quoting.
package ddl

import (
	"strings"

	gddl "tkexport/internal/ddl"
)

// MapType maps a logical kind to a SQLite declared type.
//
// SQLite is dynamically typed, so this picks affinities:
//   - int, bool  -> INTEGER (bools stored as 0/1)
//   - float      -> REAL
//   - datetime   -> TIMESTAMP (values stored as "YYYY-MM-DD HH:MM:SS" text)
//   - bytes      -> BLOB
//   - others     -> TEXT
func MapType(k gddl.Kind) string {
	switch k {
	case gddl.KindInt, gddl.KindBool:
		return "INTEGER"
	case gddl.KindFloat:
		return "REAL"
	case gddl.KindDateTime:
		return "TIMESTAMP"
	case gddl.KindBytes:
		return "BLOB"
	default:
		return "TEXT"
	}
}

// QuoteIdent double-quotes one identifier.
func QuoteIdent(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` }
