package tabular

import (
	"fmt"
	"math"
	"time"
)

// KeySet is a deduplicated, order-irrelevant set of non-null scalar values
// taken from one column. Values keep first-seen order so that generated SQL
// text is stable between runs, but nothing may depend on that order.
type KeySet struct {
	column string
	seen   map[any]struct{}
	values []any
}

// NewKeySet builds a KeySet from raw values, dropping nils and duplicates.
func NewKeySet(column string, values ...any) *KeySet {
	ks := &KeySet{column: column, seen: make(map[any]struct{}, len(values))}
	for _, v := range values {
		ks.add(v)
	}
	return ks
}

func (k *KeySet) add(v any) {
	c, ok := canonicalKey(v)
	if !ok {
		return
	}
	if _, dup := k.seen[c]; dup {
		return
	}
	k.seen[c] = struct{}{}
	k.values = append(k.values, c)
}

// Column is the buffer column the keys were taken from.
func (k *KeySet) Column() string { return k.column }

// Len reports the number of distinct keys.
func (k *KeySet) Len() int {
	if k == nil {
		return 0
	}
	return len(k.values)
}

// Empty reports whether the set holds no keys. An empty set means "the filter
// matches nothing"; it never means "no filter".
func (k *KeySet) Empty() bool { return k.Len() == 0 }

// Values returns a copy of the keys.
func (k *KeySet) Values() []any {
	if k == nil {
		return nil
	}
	out := make([]any, len(k.values))
	copy(out, k.values)
	return out
}

// Contains reports whether v (after canonicalization) is in the set.
func (k *KeySet) Contains(v any) bool {
	if k == nil {
		return false
	}
	c, ok := canonicalKey(v)
	if !ok {
		return false
	}
	_, in := k.seen[c]
	return in
}

// Chunks splits the keys into batches of at most size values. size <= 0
// yields a single batch. An empty set yields no batches.
func (k *KeySet) Chunks(size int) [][]any {
	vals := k.Values()
	if len(vals) == 0 {
		return nil
	}
	if size <= 0 || size >= len(vals) {
		return [][]any{vals}
	}
	out := make([][]any, 0, (len(vals)+size-1)/size)
	for start := 0; start < len(vals); start += size {
		end := min(start+size, len(vals))
		out = append(out, vals[start:end])
	}
	return out
}

// ExtractKeys collects the distinct non-null values of column from buf.
func ExtractKeys(buf *Buffer, column string) (*KeySet, error) {
	i, ok := buf.ColumnIndex(column)
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrColumnNotFound, column, buf.columns)
	}
	ks := &KeySet{column: buf.columns[i], seen: make(map[any]struct{})}
	for _, r := range buf.rows {
		ks.add(r[i])
	}
	return ks, nil
}

// canonicalKey folds equivalent scalar representations onto one comparable
// value: every integer width becomes int64, integral floats become int64,
// byte slices become strings, times become UTC at whole seconds.
// Non-comparable or null values are rejected.
func canonicalKey(v any) (any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return canonicalUint(uint64(x))
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return canonicalUint(x)
	case float32:
		return canonicalFloat(float64(x))
	case float64:
		return canonicalFloat(x)
	case []byte:
		return string(x), true
	case string:
		return x, true
	case bool:
		return x, true
	case time.Time:
		return x.UTC().Truncate(time.Second), true
	default:
		return nil, false
	}
}

func canonicalUint(u uint64) (any, bool) {
	if u > math.MaxInt64 {
		return u, true
	}
	return int64(u), true
}

func canonicalFloat(f float64) (any, bool) {
	if math.IsNaN(f) {
		return nil, false
	}
	if f == math.Trunc(f) && f >= math.MinInt64 && f <= math.MaxInt64 {
		return int64(f), true
	}
	return f, true
}
