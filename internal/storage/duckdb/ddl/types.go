// Package ddl contains DuckDB type mapping and identifier quoting.
package ddl

import (
	"strings"

	gddl "tkexport/internal/ddl"
)

// MapType maps a logical kind into a DuckDB column type.
func MapType(k gddl.Kind) string {
	switch k {
	case gddl.KindInt:
		return "BIGINT"
	case gddl.KindFloat:
		return "DOUBLE"
	case gddl.KindBool:
		return "BOOLEAN"
	case gddl.KindDateTime:
		return "TIMESTAMP"
	case gddl.KindBytes:
		return "BLOB"
	default:
		return "VARCHAR"
	}
}

// QuoteIdent double-quotes one identifier.
func QuoteIdent(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` }
