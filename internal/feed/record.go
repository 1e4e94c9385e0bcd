package feed

import (
	"sort"
	"time"
)

// Record is one delivered document: a flat mapping of named fields plus the
// store-assigned unique key.
type Record struct {
	Key    string
	Fields map[string]any
}

// String returns the named field as a string, or "" when absent or not a
// string.
func (r Record) String(field string) string {
	s, _ := r.Fields[field].(string)
	return s
}

// Float returns the named field as a float64, accepting the numeric types a
// JSON round-trip can produce.
func (r Record) Float(field string) float64 {
	switch v := r.Fields[field].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// Bool returns the named field as a bool, or fallback when absent or not a
// bool.
func (r Record) Bool(field string, fallback bool) bool {
	if v, ok := r.Fields[field].(bool); ok {
		return v
	}
	return fallback
}

// Time returns the named field as a time.Time. Backends that round-trip
// through JSON deliver RFC 3339 strings; the memory backend holds time.Time
// directly. Absent or unparseable values yield the zero time.
func (r Record) Time(field string) time.Time {
	switch v := r.Fields[field].(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}
		}
		return t
	}
	return time.Time{}
}

// Clone returns a deep-enough copy of the record for handing to subscribers:
// the field map is copied so later mutations in the backend cannot leak into
// a delivered snapshot.
func (r Record) Clone() Record {
	fields := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return Record{Key: r.Key, Fields: fields}
}

// Order sorts records by the query's order key and direction and applies its
// limit, returning a new slice. Ties fall back to the record key so snapshot
// order is deterministic across backends.
func Order(records []Record, q Query) []Record {
	out := make([]Record, len(records))
	copy(out, records)

	sort.SliceStable(out, func(i, j int) bool {
		less, equal := compareField(out[i], out[j], q.OrderBy)
		if equal {
			less = out[i].Key < out[j].Key
		}
		if q.Descending && !equal {
			return !less
		}
		return less
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func compareField(a, b Record, field string) (less, equal bool) {
	// Timestamps first: the common order key for live views.
	at, bt := a.Time(field), b.Time(field)
	if !at.IsZero() || !bt.IsZero() {
		if at.Equal(bt) {
			return false, true
		}
		return at.Before(bt), false
	}

	if _, ok := a.Fields[field].(string); ok {
		as, bs := a.String(field), b.String(field)
		return as < bs, as == bs
	}

	af, bf := a.Float(field), b.Float(field)
	return af < bf, af == bf
}
