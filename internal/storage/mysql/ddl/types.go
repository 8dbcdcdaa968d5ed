// Package ddl contains MySQL type mapping and identifier quoting.
package ddl

import (
	"strings"

	gddl "tkexport/internal/ddl"
)

// MapType maps a logical kind into a MySQL column type.
func MapType(k gddl.Kind) string {
	switch k {
	case gddl.KindInt:
		return "BIGINT"
	case gddl.KindFloat:
		return "DOUBLE"
	case gddl.KindBool:
		return "BOOLEAN"
	case gddl.KindDateTime:
		return "DATETIME"
	case gddl.KindBytes:
		return "LONGBLOB"
	default:
		return "LONGTEXT"
	}
}

// QuoteIdent backtick-quotes one identifier.
func QuoteIdent(s string) string { return "`" + strings.ReplaceAll(s, "`", "``") + "`" }
