package tabular

import (
	"time"

	"github.com/golang-sql/civil"
)

// NormalizeTemporal converts native temporal values to time.Time truncated to
// whole seconds. ok is false when v is temporal but cannot be represented;
// callers store nil in that case. Non-temporal values pass through with
// isTemporal=false.
func NormalizeTemporal(v any) (out any, isTemporal, ok bool) {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return nil, true, false
		}
		return x.Truncate(time.Second), true, true
	case *time.Time:
		if x == nil {
			return nil, true, true
		}
		return NormalizeTemporal(*x)
	case civil.Date:
		if !x.IsValid() {
			return nil, true, false
		}
		return x.In(time.UTC), true, true
	case civil.DateTime:
		if !x.IsValid() {
			return nil, true, false
		}
		return x.In(time.UTC).Truncate(time.Second), true, true
	case civil.Time:
		if !x.IsValid() {
			return nil, true, false
		}
		t := time.Date(0, 1, 1, x.Hour, x.Minute, x.Second, 0, time.UTC)
		return t, true, true
	}
	return v, false, true
}
