// Package ddl contains Postgres type mapping and identifier quoting.
package ddl

import (
	"strings"

	gddl "tkexport/internal/ddl"
)

// MapType maps a logical kind to a Postgres column type.
//
//	int      -> BIGINT
//	float    -> DOUBLE PRECISION
//	bool     -> BOOLEAN
//	datetime -> TIMESTAMP (source values carry no zone)
//	bytes    -> BYTEA
//	else     -> TEXT
func MapType(k gddl.Kind) string {
	switch k {
	case gddl.KindInt:
		return "BIGINT"
	case gddl.KindFloat:
		return "DOUBLE PRECISION"
	case gddl.KindBool:
		return "BOOLEAN"
	case gddl.KindDateTime:
		return "TIMESTAMP"
	case gddl.KindBytes:
		return "BYTEA"
	default:
		return "TEXT"
	}
}

// QuoteIdent double-quotes one identifier, escaping embedded quotes.
func QuoteIdent(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` }
