package ddl

import (
	"time"

	"tkexport/internal/tabular"
)

// InferKinds scans every value of buf and returns one Kind per column.
//
// Rules:
//   - nil values are ignored; an all-nil column is text.
//   - int and float mixed in one column widen to float.
//   - any other mix falls back to text.
func InferKinds(buf *tabular.Buffer) []Kind {
	kinds := make([]Kind, buf.NumColumns())
	for _, row := range buf.Rows() {
		for i, v := range row {
			k, ok := kindOf(v)
			if !ok {
				continue
			}
			kinds[i] = widen(kinds[i], k)
		}
	}
	for i := range kinds {
		if kinds[i] == "" {
			kinds[i] = KindText
		}
	}
	return kinds
}

func kindOf(v any) (Kind, bool) {
	switch v.(type) {
	case nil:
		return "", false
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return KindInt, true
	case float32, float64:
		return KindFloat, true
	case bool:
		return KindBool, true
	case time.Time:
		return KindDateTime, true
	case []byte:
		return KindBytes, true
	default:
		return KindText, true
	}
}

func widen(have, next Kind) Kind {
	switch {
	case have == "" || have == next:
		return next
	case (have == KindInt && next == KindFloat) || (have == KindFloat && next == KindInt):
		return KindFloat
	default:
		return KindText
	}
}

// FromBuffer builds a TableDef for buf using mapType to turn kinds into
// backend types. Every column is nullable; exported subsets carry no keys.
func FromBuffer(fqn string, buf *tabular.Buffer, mapType func(Kind) string) TableDef {
	kinds := InferKinds(buf)
	cols := buf.Columns()
	defs := make([]ColumnDef, len(cols))
	for i, name := range cols {
		defs[i] = ColumnDef{Name: name, Kind: kinds[i], SQLType: mapType(kinds[i]), Nullable: true}
	}
	return TableDef{FQN: fqn, Columns: defs}
}
