package domain

import "fmt"

// Kind is the cardinality of an association as seen from its owner.
type Kind int

const (
	// ToMany owners hold a collection of children (has_many).
	ToMany Kind = iota
	// ToOne owners hold at most one child (has_one).
	ToOne
)

func (k Kind) String() string {
	switch k {
	case ToOne:
		return "has_one"
	default:
		return "has_many"
	}
}

// ParseKind accepts "has_many"/"to_many"/"many" and "has_one"/"to_one"/"one".
// An empty string is ToMany.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "has_many", "to_many", "many":
		return ToMany, nil
	case "has_one", "to_one", "one":
		return ToOne, nil
	}
	return ToMany, fmt.Errorf("unknown association kind %q", s)
}

// Association describes how rows of a child model point back at an owner.
type Association struct {
	Name       string
	Kind       Kind
	Model      string // child model name
	ForeignKey string // column on the child table
	PrimaryKey string // column on the owner table ForeignKey refers to

	// ForeignType and ParentType are set for polymorphic owners: the child
	// stores ParentType in its ForeignType column next to ForeignKey.
	ForeignType string
	ParentType  string
}

// Polymorphic reports whether children also record their owner's type.
func (a Association) Polymorphic() bool {
	return a.ForeignType != ""
}

// Scope returns the child fields that tie a row to parent. It fails when
// parent has no value for the association's primary key.
func (a Association) Scope(parent Record) (Record, error) {
	id, ok := parent[a.PrimaryKey]
	if !ok || id == nil {
		return nil, fmt.Errorf("association %s: parent has no %s", a.Name, a.PrimaryKey)
	}
	scope := Record{a.ForeignKey: id}
	if a.Polymorphic() {
		scope[a.ForeignType] = a.ParentType
	}
	return scope, nil
}
