package domain

import (
	"maps"
	"slices"
)

// Record is one row of field values keyed by column name. CSV sources
// produce strings; in-memory sources may hold any scalar. A nil value is SQL
// NULL.
type Record map[string]any

// Keys returns the field names in sorted order.
func (r Record) Keys() []string {
	return slices.Sorted(maps.Keys(r))
}

// Clone returns a shallow copy of r. Cloning a nil record yields an empty one.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	maps.Copy(out, r)
	return out
}

// Merge returns a new record holding r's fields overlaid with other's.
func (r Record) Merge(other Record) Record {
	out := r.Clone()
	maps.Copy(out, other)
	return out
}

// Partition splits r into the fields named in keys and the rest. Names r does
// not hold are skipped, so the two halves never share a field.
func (r Record) Partition(keys []string) (picked, rest Record) {
	picked = make(Record, len(keys))
	rest = r.Clone()
	for _, k := range keys {
		if v, ok := rest[k]; ok {
			picked[k] = v
			delete(rest, k)
		}
	}
	return picked, rest
}
