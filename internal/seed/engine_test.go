package seed_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnwards/seeder/internal/database"
	"github.com/johnwards/seeder/internal/domain"
	"github.com/johnwards/seeder/internal/seed"
	"github.com/johnwards/seeder/internal/store"
	"github.com/johnwards/seeder/internal/testhelpers"
	"github.com/johnwards/seeder/internal/transform"
)

type env struct {
	t      *testing.T
	db     *sql.DB
	store  *store.Store
	engine *seed.Engine
	dir    string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testhelpers.NewFixtureDB(t)
	st := store.New(db, database.SQLite)
	dir := t.TempDir()
	return &env{
		t:     t,
		db:    db,
		store: st,
		dir:   dir,
		engine: seed.NewEngine(st, testhelpers.FixtureModels(t),
			seed.WithCSVDir(dir),
			seed.WithLogger(slog.New(slog.DiscardHandler)),
		),
	}
}

func (e *env) count(table string) int {
	e.t.Helper()
	return testhelpers.Count(e.t, e.db, table)
}

func (e *env) writeFile(name, body string) {
	e.t.Helper()
	require.NoError(e.t, os.WriteFile(filepath.Join(e.dir, name), []byte(body), 0o644))
}

func (e *env) run(s seed.Seeder) seed.Result {
	e.t.Helper()
	res, err := e.engine.Run(context.Background(), s)
	require.NoError(e.t, err)
	assert.Equal(e.t, seed.StateDone, res.State)
	return res
}

func (e *env) seedUsers(names ...string) {
	e.t.Helper()
	rows := make([]domain.Record, 0, len(names))
	for _, n := range names {
		rows = append(rows, domain.Record{"name": n})
	}
	e.run(&seed.Static{
		ID:   "users",
		Decl: seed.Declaration{Strategy: seed.StrategyData, UniqueFields: []string{"name"}},
		Rows: rows,
	})
}

func TestDataSeederIsIdempotent(t *testing.T) {
	e := newEnv(t)
	s := &seed.Static{
		ID: "tags",
		Decl: seed.Declaration{
			Strategy:     seed.StrategyData,
			UniqueFields: []string{"a", "b"},
		},
		Rows: []domain.Record{{"a": "1", "b": "2", "label": "x"}},
	}

	first := e.run(s)
	assert.Equal(t, 1, first.Created)
	assert.Equal(t, 1, e.count("tags"))

	// Non-unique fields differ on the second run; the row is found, not touched.
	s.Rows = []domain.Record{{"a": "1", "b": "2", "label": "changed"}}
	second := e.run(s)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.Existing())
	assert.Equal(t, 1, e.count("tags"))

	var label string
	require.NoError(t, e.db.QueryRow(`SELECT label FROM tags`).Scan(&label))
	assert.Equal(t, "x", label)
}

func TestNoUniqueFieldsMatchesWholeRecord(t *testing.T) {
	e := newEnv(t)
	s := &seed.Static{
		ID:   "tags",
		Decl: seed.Declaration{Strategy: seed.StrategyData},
		Rows: []domain.Record{
			{"a": "1", "b": "2", "label": "x"},
			{"a": "1", "b": "2", "label": "y"},
		},
	}

	e.run(s)
	e.run(s)
	assert.Equal(t, 2, e.count("tags"))
}

func TestCSVSeeder(t *testing.T) {
	e := newEnv(t)
	e.writeFile("user.csv", "name,age\nAlice,30\nBob,25\n")
	s := &seed.Static{ID: "users", Decl: seed.Declaration{Strategy: seed.StrategyCSV}}

	res := e.run(s)
	assert.Equal(t, 2, res.Sources)
	assert.Equal(t, 2, res.Created)

	res = e.run(s)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 2, e.count("users"))

	var age int
	require.NoError(t, e.db.QueryRow(`SELECT age FROM users WHERE name = 'Bob'`).Scan(&age))
	assert.Equal(t, 25, age)
}

func TestCSVHeadersAreNormalized(t *testing.T) {
	e := newEnv(t)
	e.writeFile("people.csv", "\ufeff Name ,Émail\nAlice,alice@example.com\n")
	e.run(&seed.Static{
		ID: "people",
		Decl: seed.Declaration{
			Strategy:     seed.StrategyCSV,
			Model:        "User",
			CSVName:      "people",
			UniqueFields: []string{"email"},
		},
	})

	var name string
	require.NoError(t, e.db.QueryRow(`SELECT name FROM users WHERE email = 'alice@example.com'`).Scan(&name))
	assert.Equal(t, "Alice", name)
}

func TestTemplatedCSV(t *testing.T) {
	e := newEnv(t)
	e.writeFile("user.csv.tmpl", "name,age\n{{ .ID }},{{ add 1 1 }}\n")

	e.run(&seed.Static{ID: "users", Decl: seed.Declaration{Strategy: seed.StrategyCSV}})

	var name string
	var age int
	require.NoError(t, e.db.QueryRow(`SELECT name, age FROM users`).Scan(&name, &age))
	assert.Equal(t, "users", name)
	assert.Equal(t, 2, age)
}

func TestTemplatedCSVTrimMode(t *testing.T) {
	e := newEnv(t)
	e.writeFile("user.tmpl.csv", "name\n{{ range $i := until 3 }}\nuser{{ $i }}\n{{ end }}\n")

	e.run(&seed.Static{
		ID:   "users",
		Decl: seed.Declaration{Strategy: seed.StrategyCSV, TrimMode: "<>"},
	})
	assert.Equal(t, 3, e.count("users"))
}

func TestTransformationArities(t *testing.T) {
	e := newEnv(t)
	var calls int
	s := &seed.Static{
		ID:   "users",
		Decl: seed.Declaration{Strategy: seed.StrategyData, UniqueFields: []string{"email"}},
		Rows: []domain.Record{{"name": "alice", "email": "placeholder"}},
		Transforms: map[string]transform.Func{
			"age": transform.Nullary(func() (any, error) {
				calls++
				return 41, nil
			}),
			"name": transform.Unary(func(old any) (any, error) {
				return old.(string) + " smith", nil
			}),
			"email": transform.Binary(func(_ any, r domain.Record) (any, error) {
				return fmt.Sprintf("%v@example.com", r["age"]), nil
			}),
		},
	}

	e.run(s)
	assert.Equal(t, 1, calls)

	var name, email string
	var age int
	require.NoError(t, e.db.QueryRow(`SELECT name, email, age FROM users`).Scan(&name, &email, &age))
	assert.Equal(t, "alice smith", name)
	assert.Equal(t, "41@example.com", email)
	assert.Equal(t, 41, age)
}

func TestBuiltinTransformsAndOverride(t *testing.T) {
	e := newEnv(t)
	e.run(&seed.Static{
		ID: "users",
		Decl: seed.Declaration{
			Strategy:   seed.StrategyData,
			Transforms: map[string]string{"email": "downcase", "name": "upcase", "age": "null"},
		},
		Rows: []domain.Record{{"name": "ann", "email": "ANN@EXAMPLE.COM", "age": "NULL"}},
		// Code-supplied transformations replace builtins on the same field.
		Transforms: map[string]transform.Func{"name": transform.Value("Ann")},
	})

	var name, email string
	var age sql.NullInt64
	require.NoError(t, e.db.QueryRow(`SELECT name, email, age FROM users`).Scan(&name, &email, &age))
	assert.Equal(t, "Ann", name)
	assert.Equal(t, "ann@example.com", email)
	assert.False(t, age.Valid)
}

func TestSourceRecordsAreNotMutated(t *testing.T) {
	e := newEnv(t)
	row := domain.Record{"name": "ann"}
	e.run(&seed.Static{
		ID:         "users",
		Decl:       seed.Declaration{Strategy: seed.StrategyData, RecordsPerSourceRecord: 2},
		Rows:       []domain.Record{row},
		Transforms: map[string]transform.Func{"name": transform.Map(func(v any) any { return v.(string) + "!" })},
	})
	assert.Equal(t, domain.Record{"name": "ann"}, row)
	// Both repetitions see the original value, so they collapse to one row.
	assert.Equal(t, 1, e.count("users"))
}

func TestFanOutToMany(t *testing.T) {
	e := newEnv(t)
	e.seedUsers("Ann", "Bob", "Cat")

	s := &seed.Static{
		ID: "addresses",
		Decl: seed.Declaration{
			Strategy:               seed.StrategyData,
			Parent:                 "User",
			RecordsPerSourceRecord: 2,
		},
		Rows: []domain.Record{{"city": "Springfield"}},
	}

	res := e.run(s)
	// parents x records x repetitions
	assert.Equal(t, 6, res.Attempts)
	assert.Equal(t, 3, res.Created)
	assert.Equal(t, 3, e.count("addresses"))

	var orphans int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM addresses WHERE user_id IS NULL`).Scan(&orphans))
	assert.Zero(t, orphans)

	res = e.run(s)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 3, e.count("addresses"))
}

func TestFanOutRepetitionsWithFreshValues(t *testing.T) {
	e := newEnv(t)
	e.seedUsers("Ann", "Bob", "Cat")

	res := e.run(&seed.Static{
		ID: "addresses",
		Decl: seed.Declaration{
			Strategy:               seed.StrategyData,
			Parent:                 "User",
			Association:            "addresses",
			RecordsPerSourceRecord: 2,
			Transforms:             map[string]string{"street": "uuid"},
		},
		Rows: []domain.Record{{"city": "Springfield"}},
	})
	assert.Equal(t, 6, res.Created)
	assert.Equal(t, 6, e.count("addresses"))
}

func TestFanOutWithoutParents(t *testing.T) {
	e := newEnv(t)
	res := e.run(&seed.Static{
		ID:   "addresses",
		Decl: seed.Declaration{Strategy: seed.StrategyData, Parent: "User"},
		Rows: []domain.Record{{"city": "Springfield"}},
	})
	assert.Zero(t, res.Attempts)
	assert.Zero(t, e.count("addresses"))
}

func TestFanOutPolymorphic(t *testing.T) {
	e := newEnv(t)
	e.seedUsers("Ann", "Bob")

	e.run(&seed.Static{
		ID:   "comments",
		Decl: seed.Declaration{Strategy: seed.StrategyData, Parent: "User", Association: "comments"},
		Rows: []domain.Record{{"body": "first!"}},
	})

	var n int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM comments WHERE commentable_type = 'User'`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestFanOutToOneUpdatesExisting(t *testing.T) {
	e := newEnv(t)
	e.seedUsers("Ann", "Bob")

	s := &seed.Static{
		ID:   "profiles",
		Decl: seed.Declaration{Strategy: seed.StrategyData, Parent: "User", Association: "profile"},
		Rows: []domain.Record{{"bio": "hello"}},
	}
	res := e.run(s)
	assert.Equal(t, 2, res.Created)
	assert.Zero(t, res.Updated)

	s.Rows = []domain.Record{{"bio": "updated", "handle": "h"}}
	res = e.run(s)
	assert.Zero(t, res.Created)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, 2, e.count("profiles"))

	var n int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM profiles WHERE bio = 'updated' AND handle = 'h'`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		decl seed.Declaration
	}{
		{"unknown strategy", seed.Declaration{Strategy: "yaml"}},
		{"unknown model", seed.Declaration{Strategy: seed.StrategyData, Model: "Invoice"}},
		{"missing csv", seed.Declaration{Strategy: seed.StrategyCSV}},
		{"association without parent", seed.Declaration{Strategy: seed.StrategyData, Association: "addresses"}},
		{"unknown parent", seed.Declaration{Strategy: seed.StrategyData, Parent: "Ghost"}},
		{"unknown association", seed.Declaration{Strategy: seed.StrategyData, Parent: "User", Association: "orders"}},
		{"no derivable association", seed.Declaration{Strategy: seed.StrategyData, Model: "Tag", Parent: "User"}},
		{"association targets another model", seed.Declaration{Strategy: seed.StrategyData, Model: "Address", Parent: "User", Association: "profile"}},
		{"negative repetitions", seed.Declaration{Strategy: seed.StrategyData, RecordsPerSourceRecord: -1}},
		{"bad trim mode", seed.Declaration{Strategy: seed.StrategyData, TrimMode: "%"}},
		{"unknown builtin", seed.Declaration{Strategy: seed.StrategyData, Transforms: map[string]string{"name": "rot13"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			res, err := e.engine.Run(context.Background(), &seed.Static{
				ID:   "users",
				Decl: tt.decl,
				Rows: []domain.Record{{"name": "x"}},
			})

			var ce *seed.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, "users", ce.Seeder)
			assert.Equal(t, seed.StateFailed, res.State)
			assert.Zero(t, res.Attempts)
			assert.Zero(t, e.count("users"))
		})
	}
}

func TestResolveDefaultsAndCaching(t *testing.T) {
	e := newEnv(t)
	e.writeFile("address.tmpl.csv", "city\n")
	s := &seed.Static{ID: "addresses", Decl: seed.Declaration{Strategy: seed.StrategyCSV, Parent: "User"}}

	spec, err := e.engine.Resolve(s)
	require.NoError(t, err)
	assert.Equal(t, "Address", spec.Model.Name)
	assert.Equal(t, "addresses", spec.Association.Name)
	assert.Equal(t, 1, spec.RecordsPerSourceRecord)
	assert.Equal(t, "-", spec.TrimMode)
	assert.True(t, spec.Templated())

	again, err := e.engine.Resolve(s)
	require.NoError(t, err)
	assert.Same(t, spec, again)
}

func TestPlanPartitionsOnUniqueFields(t *testing.T) {
	spec := &seed.Spec{UniqueFields: []string{"email", "missing"}}
	op, err := spec.Plan(domain.Record{"email": "a@example.com", "name": "A"})
	require.NoError(t, err)
	assert.Equal(t, domain.Record{"email": "a@example.com"}, op.Lookup)
	assert.Equal(t, domain.Record{"name": "A"}, op.Create)
	assert.Equal(t, domain.Record{"email": "a@example.com", "name": "A"}, op.Fields())
}

func TestDataErrors(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name   string
		seeder seed.Seeder
		setup  func(*env)
	}{
		{
			name:   "nil records",
			seeder: &seed.Static{ID: "users", Decl: seed.Declaration{Strategy: seed.StrategyData}},
		},
		{
			name:   "producer error",
			seeder: failingProducer{err: boom},
		},
		{
			name:   "template error",
			seeder: &seed.Static{ID: "users", Decl: seed.Declaration{Strategy: seed.StrategyCSV}},
			setup:  func(e *env) {
				e.writeFile("user.csv.tmpl", "name\n{{ .Nope }}\n")
			},
		},
		{
			name:   "malformed csv",
			seeder: &seed.Static{ID: "users", Decl: seed.Declaration{Strategy: seed.StrategyCSV}},
			setup:  func(e *env) {
				e.writeFile("user.csv", "name\n\"unterminated\n")
			},
		},
		{
			name:   "transform error",
			seeder: &seed.Static{
				ID:         "users",
				Decl:       seed.Declaration{Strategy: seed.StrategyData},
				Rows:       []domain.Record{{"name": "x"}},
				Transforms: map[string]transform.Func{"name": transform.Nullary(func() (any, error) { return nil, boom })},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			if tt.setup != nil {
				tt.setup(e)
			}
			res, err := e.engine.Run(context.Background(), tt.seeder)

			var de *seed.DataError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, seed.StateFailed, res.State)
			assert.Zero(t, e.count("users"))
		})
	}
}

func TestWriteErrorAbortsRun(t *testing.T) {
	e := newEnv(t)
	res, err := e.engine.Run(context.Background(), &seed.Static{
		ID:   "users",
		Decl: seed.Declaration{Strategy: seed.StrategyData},
		Rows: []domain.Record{
			{"name": "Ann"},
			{"email": "no-name@example.com"}, // violates NOT NULL
			{"name": "Cat"},
		},
	})

	var we *seed.WriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, seed.StateFailed, res.State)
	assert.Equal(t, 2, res.Attempts)
	// Earlier writes are kept.
	assert.Equal(t, 1, e.count("users"))
}

func TestParentQueryFailureIsWriteError(t *testing.T) {
	e := newEnv(t)
	engine := seed.NewEngine(brokenQueryStore{e.store}, testhelpers.FixtureModels(t),
		seed.WithLogger(slog.New(slog.DiscardHandler)))

	_, err := engine.Run(context.Background(), &seed.Static{
		ID:   "addresses",
		Decl: seed.Declaration{Strategy: seed.StrategyData, Parent: "User"},
		Rows: []domain.Record{{"city": "x"}},
	})
	var we *seed.WriteError
	require.ErrorAs(t, err, &we)
}

func TestCustomRunner(t *testing.T) {
	e := newEnv(t)
	c := &customSeeder{}

	res := e.run(c)
	assert.True(t, c.ran)
	assert.Equal(t, "admins", res.Seeder)
	assert.Equal(t, 1, e.count("users"))

	c.fail = true
	res, err := e.engine.Run(context.Background(), c)
	var we *seed.WriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, seed.StateFailed, res.State)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "materializing", seed.StateMaterializing.String())
	assert.Equal(t, "unknown", seed.State(42).String())
}

type failingProducer struct{ err error }

func (f failingProducer) Name() string { return "users" }

func (f failingProducer) Declaration() seed.Declaration {
	return seed.Declaration{Strategy: seed.StrategyData}
}

func (f failingProducer) Records(context.Context) ([]domain.Record, error) { return nil, f.err }

type brokenQueryStore struct{ seed.Store }

func (brokenQueryStore) QueryAll(context.Context, *domain.Model) ([]domain.Record, error) {
	return nil, errors.New("connection reset")
}

type customSeeder struct {
	ran  bool
	fail bool
}

func (c *customSeeder) Name() string { return "admins" }

// The declaration is never resolved for custom seeders.
func (c *customSeeder) Declaration() seed.Declaration { return seed.Declaration{Strategy: "custom"} }

func (c *customSeeder) Run(ctx context.Context, e *seed.Engine) error {
	c.ran = true
	if c.fail {
		return errors.New("admin api unavailable")
	}
	users, err := e.Models().Lookup("User")
	if err != nil {
		return err
	}
	_, _, err = e.Store().FindOrCreate(ctx, users, domain.Record{"email": "root@example.com"}, domain.Record{"name": "root"})
	return err
}
