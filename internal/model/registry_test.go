package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnwards/seeder/internal/domain"
	"github.com/johnwards/seeder/internal/model"
)

func newRegistry(t *testing.T) *model.Registry {
	t.Helper()
	reg := model.NewRegistry()
	_, err := reg.Register(domain.Model{
		Name: "User",
		Associations: []domain.Association{
			{Name: "addresses"},
			{Name: "profile", Kind: domain.ToOne},
			{Name: "comments", ForeignKey: "commentable_id", ForeignType: "commentable_type"},
		},
	})
	require.NoError(t, err)
	_, err = reg.Register(domain.Model{Name: "Address"})
	require.NoError(t, err)
	_, err = reg.Register(domain.Model{Name: "Profile", Table: "user_profiles", PrimaryKey: "profile_id"})
	require.NoError(t, err)
	return reg
}

func TestRegisterDefaults(t *testing.T) {
	reg := newRegistry(t)

	user, err := reg.Lookup("User")
	require.NoError(t, err)
	assert.Equal(t, "users", user.Table)
	assert.Equal(t, "id", user.PrimaryKey)

	addresses, ok := user.Association("addresses")
	require.True(t, ok)
	assert.Equal(t, "Address", addresses.Model)
	assert.Equal(t, "user_id", addresses.ForeignKey)
	assert.Equal(t, "id", addresses.PrimaryKey)
	assert.Equal(t, domain.ToMany, addresses.Kind)
	assert.False(t, addresses.Polymorphic())

	comments, ok := user.Association("comments")
	require.True(t, ok)
	assert.Equal(t, "commentable_id", comments.ForeignKey)
	assert.Equal(t, "User", comments.ParentType)
	assert.True(t, comments.Polymorphic())

	profile, err := reg.Lookup("Profile")
	require.NoError(t, err)
	assert.Equal(t, "user_profiles", profile.Table)
	assert.Equal(t, "profile_id", profile.PrimaryKey)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	reg := newRegistry(t)

	_, err := reg.Register(domain.Model{Name: "User"})
	assert.ErrorIs(t, err, model.ErrDuplicateModel)

	_, err = reg.Register(domain.Model{
		Name:         "Post",
		Associations: []domain.Association{{Name: "tags"}, {Name: "tags"}},
	})
	assert.Error(t, err)

	_, err = reg.Register(domain.Model{})
	assert.Error(t, err)
}

func TestLookupUnknown(t *testing.T) {
	reg := newRegistry(t)

	_, err := reg.Lookup("Nope")
	assert.ErrorIs(t, err, model.ErrUnknownModel)
}

func TestModelsKeepsRegistrationOrder(t *testing.T) {
	reg := newRegistry(t)

	var names []string
	for _, m := range reg.Models() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"User", "Address", "Profile"}, names)
}

func TestReflect(t *testing.T) {
	reg := newRegistry(t)

	a, err := reg.Reflect("User", "profile")
	require.NoError(t, err)
	assert.Equal(t, domain.ToOne, a.Kind)

	_, err = reg.Reflect("User", "orders")
	assert.ErrorIs(t, err, model.ErrUnknownAssociation)

	_, err = reg.Reflect("Ghost", "orders")
	assert.ErrorIs(t, err, model.ErrUnknownModel)
}

func TestDeriveMatchesPluralThenSingular(t *testing.T) {
	reg := newRegistry(t)

	a, err := reg.Derive("User", "addresses")
	require.NoError(t, err)
	assert.Equal(t, "addresses", a.Name)

	// Singular association name from a plural table.
	a, err = reg.Derive("User", "profiles")
	require.NoError(t, err)
	assert.Equal(t, "profile", a.Name)

	_, err = reg.Derive("User", "invoices")
	assert.ErrorIs(t, err, model.ErrUnknownAssociation)
}

func TestNaming(t *testing.T) {
	assert.Equal(t, "users", model.TableName("User"))
	assert.Equal(t, "user_profiles", model.TableName("UserProfile"))
	assert.Equal(t, "user_profile", model.FileName("UserProfile"))
	assert.Equal(t, "UserProfile", model.ModelName("user_profiles"))
	assert.Equal(t, "Address", model.ModelName("addresses"))
}
