package seed

import (
	"context"

	"github.com/johnwards/seeder/internal/domain"
	"github.com/johnwards/seeder/internal/transform"
)

// WriteOp is one find-or-create request built from a source record.
type WriteOp struct {
	// Lookup identifies an existing row; Create is only used on insert.
	Lookup domain.Record
	Create domain.Record
	// Parent is the owning row when the spec fans out over a parent model.
	Parent domain.Record
}

// Fields is the full row content of the op.
func (op WriteOp) Fields() domain.Record { return op.Lookup.Merge(op.Create) }

// Plan applies the spec's transformations to a copy of rec and splits the
// result on the unique fields. With no unique fields the whole record is the
// lookup. rec itself is not modified.
func (s *Spec) Plan(rec domain.Record) (WriteOp, error) {
	r := rec.Clone()
	if err := transform.Apply(r, s.Transformations); err != nil {
		return WriteOp{}, err
	}
	if len(s.UniqueFields) == 0 {
		return WriteOp{Lookup: r, Create: domain.Record{}}, nil
	}
	lookup, create := r.Partition(s.UniqueFields)
	return WriteOp{Lookup: lookup, Create: create}, nil
}

type tally struct {
	attempts int
	created  int
	updated  int
}

func (e *Engine) materializeAll(ctx context.Context, spec *Spec, records []domain.Record, t *tally) error {
	if spec.Parent == nil {
		for _, rec := range records {
			if err := e.materialize(ctx, spec, rec, nil, t); err != nil {
				return err
			}
		}
		return nil
	}
	return e.fanOut(ctx, spec, records, t)
}

// materialize writes RecordsPerSourceRecord ops for rec. Transformations are
// re-evaluated for each repetition.
func (e *Engine) materialize(ctx context.Context, spec *Spec, rec, parent domain.Record, t *tally) error {
	for range spec.RecordsPerSourceRecord {
		op, err := spec.Plan(rec)
		if err != nil {
			return &DataError{Seeder: spec.Name, Err: err}
		}
		op.Parent = parent
		if err := e.write(ctx, spec, op, t); err != nil {
			return &WriteError{Seeder: spec.Name, Err: err}
		}
	}
	return nil
}

func (e *Engine) write(ctx context.Context, spec *Spec, op WriteOp, t *tally) error {
	t.attempts++

	if op.Parent == nil {
		_, created, err := e.store.FindOrCreate(ctx, spec.Model, op.Lookup, op.Create)
		if err != nil {
			return err
		}
		if created {
			t.created++
		}
		return nil
	}

	if spec.Association.Kind == domain.ToOne {
		return e.writeToOne(ctx, spec, op, t)
	}

	_, created, err := e.store.FindOrCreateIn(ctx, spec.Model, *spec.Association, op.Parent, op.Lookup, op.Create)
	if err != nil {
		return err
	}
	if created {
		t.created++
	}
	return nil
}
