// Package ddl contains SQL Server type mapping and identifier quoting.
//
// The mapping is conservative and biased toward safe, widely supported
// choices.
package ddl

import (
	"strings"

	gddl "tkexport/internal/ddl"
)

// MapType maps a logical kind into a SQL Server column type. Unknown kinds
// fall back to NVARCHAR(MAX).
func MapType(k gddl.Kind) string {
	switch k {
	case gddl.KindInt:
		return "BIGINT"
	case gddl.KindFloat:
		return "FLOAT"
	case gddl.KindBool:
		return "BIT"
	case gddl.KindDateTime:
		return "DATETIME2(0)"
	case gddl.KindBytes:
		return "VARBINARY(MAX)"
	default:
		return "NVARCHAR(MAX)"
	}
}

// QuoteIdent brackets one identifier, doubling closing brackets.
func QuoteIdent(s string) string { return "[" + strings.ReplaceAll(s, "]", "]]") + "]" }
