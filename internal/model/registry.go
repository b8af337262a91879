// Package model holds the explicit registry of seedable models and their
// associations. Seeders name models by string; the registry is the only place
// those names are resolved.
package model

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ettle/strcase"
	"github.com/jinzhu/inflection"

	"github.com/johnwards/seeder/internal/domain"
)

var (
	ErrUnknownModel       = errors.New("unknown model")
	ErrUnknownAssociation = errors.New("unknown association")
	ErrDuplicateModel     = errors.New("model already registered")
)

// Registry maps model names to their table metadata.
type Registry struct {
	models map[string]*domain.Model
	order  []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]*domain.Model)}
}

// Register adds m, filling in conventional defaults: the table is the plural
// snake_case model name, the primary key is "id", and each association points
// at the singular PascalCase of its name through "<owner>_id".
func (r *Registry) Register(m domain.Model) (*domain.Model, error) {
	if m.Name == "" {
		return nil, errors.New("register model: name is required")
	}
	if _, ok := r.models[m.Name]; ok {
		return nil, fmt.Errorf("register model %s: %w", m.Name, ErrDuplicateModel)
	}
	if m.Table == "" {
		m.Table = TableName(m.Name)
	}
	if m.PrimaryKey == "" {
		m.PrimaryKey = "id"
	}

	assocs := make([]domain.Association, 0, len(m.Associations))
	for _, a := range m.Associations {
		if a.Name == "" {
			return nil, fmt.Errorf("register model %s: association name is required", m.Name)
		}
		if _, dup := (&domain.Model{Associations: assocs}).Association(a.Name); dup {
			return nil, fmt.Errorf("register model %s: association %s declared twice", m.Name, a.Name)
		}
		if a.Model == "" {
			a.Model = ModelName(a.Name)
		}
		if a.ForeignKey == "" {
			a.ForeignKey = strcase.ToSnake(m.Name) + "_id"
		}
		if a.PrimaryKey == "" {
			a.PrimaryKey = m.PrimaryKey
		}
		if a.ForeignType != "" && a.ParentType == "" {
			a.ParentType = m.Name
		}
		assocs = append(assocs, a)
	}
	m.Associations = assocs

	r.models[m.Name] = &m
	r.order = append(r.order, m.Name)
	return &m, nil
}

// Lookup returns the model registered under name.
func (r *Registry) Lookup(name string) (*domain.Model, error) {
	m, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	return m, nil
}

// Models returns every registered model in registration order.
func (r *Registry) Models() []*domain.Model {
	out := make([]*domain.Model, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.models[name])
	}
	return out
}

// Reflect returns the association name declared on the parent model.
func (r *Registry) Reflect(parent, name string) (domain.Association, error) {
	m, err := r.Lookup(parent)
	if err != nil {
		return domain.Association{}, err
	}
	a, ok := m.Association(name)
	if !ok {
		return domain.Association{}, fmt.Errorf("%w: %s.%s", ErrUnknownAssociation, parent, name)
	}
	return a, nil
}

// Derive finds the association on parent that holds rows of table, matching
// the table's plural form first and its singular form second.
func (r *Registry) Derive(parent, table string) (domain.Association, error) {
	m, err := r.Lookup(parent)
	if err != nil {
		return domain.Association{}, err
	}
	candidates := []string{inflection.Plural(table), inflection.Singular(table)}
	for _, name := range slices.Compact(candidates) {
		if a, ok := m.Association(name); ok {
			return a, nil
		}
	}
	return domain.Association{}, fmt.Errorf("%w: %s has no association named %s",
		ErrUnknownAssociation, parent, joinOr(slices.Compact(candidates)))
}

func joinOr(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return names[0] + " or " + names[1]
}
