// Package transform rewrites individual record fields before they are
// written. A transformation takes zero, one or two arguments:
//
//	Nullary  ignores the current value and produces a fresh one
//	Unary    maps the current value to a new one
//	Binary   sees the current value and the whole record
package transform

import (
	"fmt"
	"maps"
	"slices"

	"github.com/johnwards/seeder/internal/domain"
)

// Func is a field transformation of any arity.
type Func interface {
	apply(old any, rec domain.Record) (any, error)
}

// Nullary produces a value without looking at the record.
type Nullary func() (any, error)

// Unary maps the field's current value.
type Unary func(old any) (any, error)

// Binary maps the field's current value with the whole record in view.
type Binary func(old any, rec domain.Record) (any, error)

func (f Nullary) apply(any, domain.Record) (any, error) { return f() }

func (f Unary) apply(old any, _ domain.Record) (any, error) { return f(old) }

func (f Binary) apply(old any, rec domain.Record) (any, error) { return f(old, rec) }

// Value is a Nullary that always yields v.
func Value(v any) Nullary {
	return func() (any, error) { return v, nil }
}

// Map lifts an infallible func into a Unary.
func Map(f func(any) any) Unary {
	return func(old any) (any, error) { return f(old), nil }
}

// Apply runs fns against rec in sorted field order, replacing each field with
// the transformation's result. A field the record lacks is passed as nil and
// then set. Binary transformations observe earlier fields already rewritten.
func Apply(rec domain.Record, fns map[string]Func) error {
	for _, field := range slices.Sorted(maps.Keys(fns)) {
		fn := fns[field]
		if fn == nil {
			continue
		}
		v, err := fn.apply(rec[field], rec)
		if err != nil {
			return fmt.Errorf("transform %s: %w", field, err)
		}
		rec[field] = v
	}
	return nil
}
