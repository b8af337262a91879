package seed

import (
	"context"

	"github.com/johnwards/seeder/internal/domain"
)

// fanOut writes every record once per existing parent row. Parents are read
// once, before any child is written.
func (e *Engine) fanOut(ctx context.Context, spec *Spec, records []domain.Record, t *tally) error {
	parents, err := e.store.QueryAll(ctx, spec.Parent)
	if err != nil {
		return &WriteError{Seeder: spec.Name, Err: err}
	}
	e.logger.Debug("fanning out",
		"seeder", spec.Name,
		"parent", spec.Parent.Name,
		"association", spec.Association.Name,
		"parents", len(parents),
	)

	for _, parent := range parents {
		for _, rec := range records {
			if err := e.materialize(ctx, spec, rec, parent, t); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeToOne keeps a single child per parent: an existing child is updated
// with the op's fields, otherwise one is created.
func (e *Engine) writeToOne(ctx context.Context, spec *Spec, op WriteOp, t *tally) error {
	a := *spec.Association
	existing, found, err := e.store.FindAssociated(ctx, spec.Model, a, op.Parent)
	if err != nil {
		return err
	}
	if found {
		if _, err := e.store.UpdateRecord(ctx, spec.Model, existing, op.Fields()); err != nil {
			return err
		}
		t.updated++
		return nil
	}
	if _, err := e.store.CreateAssociated(ctx, spec.Model, a, op.Parent, op.Fields()); err != nil {
		return err
	}
	t.created++
	return nil
}
