package domain

// Model is a seedable table as registered with the model registry.
type Model struct {
	Name         string
	Table        string
	PrimaryKey   string
	Associations []Association
}

// Association returns the declared association with the given name.
func (m *Model) Association(name string) (Association, bool) {
	for _, a := range m.Associations {
		if a.Name == name {
			return a, true
		}
	}
	return Association{}, false
}
