package testhelpers

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	"github.com/johnwards/seeder/internal/database"
	"github.com/johnwards/seeder/internal/domain"
	"github.com/johnwards/seeder/internal/model"
)

// NewTestDB returns an in-memory SQLite database configured the same way as
// production. The database is automatically closed when the test completes.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// FixtureSchema creates the tables used across package tests: users own
// addresses (to-many), a profile (to-one) and polymorphic comments.
var FixtureSchema = fstest.MapFS{
	"001_users.sql": {Data: []byte(`
CREATE TABLE users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	email TEXT UNIQUE,
	age INTEGER
);
`)},
	"002_children.sql": {Data: []byte(`
CREATE TABLE addresses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER REFERENCES users(id),
	city TEXT,
	street TEXT
);
CREATE TABLE profiles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER UNIQUE REFERENCES users(id),
	bio TEXT,
	handle TEXT
);
CREATE TABLE comments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	commentable_id INTEGER,
	commentable_type TEXT,
	body TEXT
);
CREATE TABLE tags (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	a TEXT,
	b TEXT,
	label TEXT
);
`)},
}

// NewFixtureDB returns an in-memory database with FixtureSchema applied.
func NewFixtureDB(t *testing.T) *sql.DB {
	t.Helper()

	db := NewTestDB(t)
	if err := database.Migrate(context.Background(), db, database.SQLite, FixtureSchema); err != nil {
		t.Fatalf("migrate fixtures: %v", err)
	}
	return db
}

// FixtureModels returns a registry describing FixtureSchema.
func FixtureModels(t *testing.T) *model.Registry {
	t.Helper()

	reg := model.NewRegistry()
	models := []domain.Model{
		{
			Name: "User",
			Associations: []domain.Association{
				{Name: "addresses"},
				{Name: "profile", Kind: domain.ToOne},
				{Name: "comments", ForeignType: "commentable_type", ForeignKey: "commentable_id"},
			},
		},
		{Name: "Address"},
		{Name: "Profile"},
		{Name: "Comment"},
		{Name: "Tag"},
	}
	for _, m := range models {
		if _, err := reg.Register(m); err != nil {
			t.Fatalf("register %s: %v", m.Name, err)
		}
	}
	return reg
}

// Count returns the number of rows in table.
func Count(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM "` + table + `"`).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
