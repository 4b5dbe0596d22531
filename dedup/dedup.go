// Package dedup collapses a batch of records sharing a composite natural key
// down to one winning record per key.
package dedup

import "strings"

// Sentinel stands in for a missing order value.
const Sentinel = "-"

// DefaultOrderBy is the order field used when Options.OrderBy is empty.
const DefaultOrderBy = "job_id"

// keySep joins key parts; it cannot appear in scraped text.
const keySep = "\x1f"

// Record exposes named string fields. ok is false when the field is absent,
// which is different from present-but-empty.
type Record interface {
	Field(name string) (value string, ok bool)
}

// Options selects the natural key and the winner within each key group.
type Options struct {
	Keys       []string
	OrderBy    string
	Descending bool
}

// Latest keeps the record with the greatest job_id per key.
func Latest(keys ...string) Options {
	return Options{Keys: keys, OrderBy: DefaultOrderBy, Descending: true}
}

// Report is the outcome of ResolveReport.
type Report[T Record] struct {
	Records []T
	Input   int
	// Unkeyed records lacked at least one key field. They are never merged
	// with each other and are returned as-is.
	Unkeyed int
}

// Dropped is the number of records that lost to a winner.
func (r Report[T]) Dropped() int { return r.Input - len(r.Records) }

// Resolve returns one record per distinct key, in order of each key's first
// appearance. Within a group the record with the max (Descending) or min
// OrderBy value wins; on ties the earliest record wins. Resolve is
// deterministic for a fixed input order and idempotent.
func Resolve[T Record](records []T, opts Options) []T {
	return ResolveReport(records, opts).Records
}

// ResolveReport is Resolve plus counts for run summaries.
func ResolveReport[T Record](records []T, opts Options) Report[T] {
	rep := Report[T]{Input: len(records)}
	if len(records) == 0 {
		return rep
	}
	if len(opts.Keys) == 0 {
		rep.Records = append([]T(nil), records...)
		return rep
	}
	orderBy := opts.OrderBy
	if orderBy == "" {
		orderBy = DefaultOrderBy
	}

	// slot per key, or per record for unkeyed ones
	out := make([]T, 0, len(records))
	orders := make([]string, 0, len(records))
	index := make(map[string]int, len(records))

	for _, rec := range records {
		order := orderValue(rec, orderBy)
		key, ok := compositeKey(rec, opts.Keys)
		if !ok {
			rep.Unkeyed++
			out = append(out, rec)
			orders = append(orders, order)
			continue
		}

		slot, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, rec)
			orders = append(orders, order)
			continue
		}
		if beats(order, orders[slot], opts.Descending) {
			out[slot] = rec
			orders[slot] = order
		}
	}

	rep.Records = out
	return rep
}

// beats reports whether candidate strictly outranks current.
func beats(candidate, current string, descending bool) bool {
	if descending {
		return candidate > current
	}
	return candidate < current
}

func orderValue(rec Record, field string) string {
	if v, ok := rec.Field(field); ok {
		return v
	}
	return Sentinel
}

func compositeKey(rec Record, keys []string) (string, bool) {
	if len(keys) == 1 {
		return rec.Field(keys[0])
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		v, ok := rec.Field(k)
		if !ok {
			return "", false
		}
		parts[i] = v
	}
	return strings.Join(parts, keySep), true
}

// Fields is a Record backed by a map.
type Fields map[string]string

// Field implements Record.
func (f Fields) Field(name string) (string, bool) {
	v, ok := f[name]
	return v, ok
}
