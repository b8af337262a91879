package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/johnwards/seeder/internal/domain"
)

// FindOrCreate returns the first row of m matching lookup. When none exists it
// inserts lookup ∪ create and reports created=true. Create fields never take
// part in the match.
func (s *Store) FindOrCreate(ctx context.Context, m *domain.Model, lookup, create domain.Record) (domain.Record, bool, error) {
	return s.findOrInsert(ctx, m.Table, lookup, lookup.Merge(create))
}

// FindOrCreateIn is FindOrCreate confined to the children of parent reached
// through a. The association's foreign key (and owner type, when
// polymorphic) joins the lookup and wins over same-named fields on insert.
func (s *Store) FindOrCreateIn(ctx context.Context, child *domain.Model, a domain.Association, parent, lookup, create domain.Record) (domain.Record, bool, error) {
	scope, err := a.Scope(parent)
	if err != nil {
		return nil, false, err
	}
	return s.findOrInsert(ctx, child.Table, lookup.Merge(scope), lookup.Merge(create).Merge(scope))
}

// findOrInsert returns the first row of table matching lookup, or inserts
// fields when there is none.
func (s *Store) findOrInsert(ctx context.Context, table string, lookup, fields domain.Record) (domain.Record, bool, error) {
	row, err := s.findOne(ctx, table, lookup)
	if err == nil {
		return row, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	row, err = s.insert(ctx, table, fields)
	if err != nil {
		return nil, false, err
	}
	return row, true, nil
}

// QueryAll returns every row of m in the database's natural order.
func (s *Store) QueryAll(ctx context.Context, m *domain.Model) ([]domain.Record, error) {
	rows, err := s.query(ctx, "SELECT * FROM "+s.dialect.Quote(m.Table))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", m.Table, err)
	}
	return rows, nil
}

// FindAssociated returns the child of parent reached through a, if any. For
// to-many associations it returns the first child.
func (s *Store) FindAssociated(ctx context.Context, child *domain.Model, a domain.Association, parent domain.Record) (domain.Record, bool, error) {
	scope, err := a.Scope(parent)
	if err != nil {
		return nil, false, err
	}
	row, err := s.findOne(ctx, child.Table, scope)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return row, true, nil
}

// UpdateRecord overwrites fields on row, located by m's primary key, and
// returns the updated row.
func (s *Store) UpdateRecord(ctx context.Context, m *domain.Model, row, fields domain.Record) (domain.Record, error) {
	id, ok := row[m.PrimaryKey]
	if !ok || id == nil {
		return nil, fmt.Errorf("update %s: row has no %s", m.Table, m.PrimaryKey)
	}
	return s.update(ctx, m.Table, domain.Record{m.PrimaryKey: id}, fields)
}

// CreateAssociated inserts a child of parent through a. Scope fields win over
// same-named entries in fields.
func (s *Store) CreateAssociated(ctx context.Context, child *domain.Model, a domain.Association, parent, fields domain.Record) (domain.Record, error) {
	scope, err := a.Scope(parent)
	if err != nil {
		return nil, err
	}
	return s.insert(ctx, child.Table, fields.Merge(scope))
}
