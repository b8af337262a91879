package seed

import (
	"context"
	"errors"
	"log/slog"

	"github.com/johnwards/seeder/internal/domain"
	"github.com/johnwards/seeder/internal/model"
)

// Store is the persistence the engine writes through.
type Store interface {
	FindOrCreate(ctx context.Context, m *domain.Model, lookup, create domain.Record) (domain.Record, bool, error)
	FindOrCreateIn(ctx context.Context, child *domain.Model, a domain.Association, parent, lookup, create domain.Record) (domain.Record, bool, error)
	QueryAll(ctx context.Context, m *domain.Model) ([]domain.Record, error)
	FindAssociated(ctx context.Context, child *domain.Model, a domain.Association, parent domain.Record) (domain.Record, bool, error)
	UpdateRecord(ctx context.Context, m *domain.Model, row, fields domain.Record) (domain.Record, error)
	CreateAssociated(ctx context.Context, child *domain.Model, a domain.Association, parent, fields domain.Record) (domain.Record, error)
}

// State is a seeder's position in a run.
type State int

const (
	StateUnvalidated State = iota
	StateValidated
	StateExtracting
	StateMaterializing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnvalidated:
		return "unvalidated"
	case StateValidated:
		return "validated"
	case StateExtracting:
		return "extracting"
	case StateMaterializing:
		return "materializing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Result summarizes one seeder run. Attempts counts find-or-create calls;
// rows that were neither created nor updated already existed.
type Result struct {
	Seeder   string
	State    State
	Sources  int
	Attempts int
	Created  int
	Updated  int
}

// Existing is the number of attempts that matched a row already present.
func (r Result) Existing() int { return r.Attempts - r.Created - r.Updated }

// Engine runs seeders against a Store.
type Engine struct {
	store  Store
	models *model.Registry
	csvDir string
	logger *slog.Logger
	specs  map[string]*Spec
}

// Option configures an Engine.
type Option func(*Engine)

// WithCSVDir sets the directory CSV sources are read from. The default is
// the working directory.
func WithCSVDir(dir string) Option {
	return func(e *Engine) { e.csvDir = dir }
}

// WithLogger sets the engine's logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine returns an engine writing to st and resolving models in models.
func NewEngine(st Store, models *model.Registry, opts ...Option) *Engine {
	e := &Engine{
		store:  st,
		models: models,
		csvDir: ".",
		logger: slog.Default(),
		specs:  make(map[string]*Spec),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the store the engine writes through. Custom seeders use it.
func (e *Engine) Store() Store { return e.store }

// Models returns the engine's model registry.
func (e *Engine) Models() *model.Registry { return e.models }

// Run executes one seeder: resolve, extract, then materialize. Custom seeders
// implementing Runner skip resolution and run their own logic. Writes
// completed before a failure are not rolled back.
func (e *Engine) Run(ctx context.Context, s Seeder) (Result, error) {
	res := Result{Seeder: s.Name(), State: StateUnvalidated}
	log := e.logger.With("seeder", res.Seeder)

	fail := func(err error) (Result, error) {
		res.State = StateFailed
		log.Error("seeder failed", "error", err)
		return res, err
	}

	if r, ok := s.(Runner); ok {
		log.Info("seeding", "strategy", "custom")
		res.State = StateMaterializing
		if err := r.Run(ctx, e); err != nil {
			return fail(classify(res.Seeder, err))
		}
		res.State = StateDone
		log.Info("seeded")
		return res, nil
	}

	spec, err := e.Resolve(s)
	if err != nil {
		return fail(err)
	}
	res.State = StateValidated
	log.Info("seeding", "model", spec.Model.Name, "strategy", string(spec.Strategy))

	res.State = StateExtracting
	records, err := e.Extract(ctx, s, spec)
	if err != nil {
		return fail(err)
	}
	res.Sources = len(records)
	log.Debug("extracted records", "count", len(records))

	res.State = StateMaterializing
	t := &tally{}
	err = e.materializeAll(ctx, spec, records, t)
	res.Attempts, res.Created, res.Updated = t.attempts, t.created, t.updated
	if err != nil {
		return fail(err)
	}

	res.State = StateDone
	log.Info("seeded",
		"attempts", res.Attempts,
		"created", res.Created,
		"updated", res.Updated,
		"existing", res.Existing(),
	)
	return res, nil
}

// classify wraps errors from custom seeders that are not already one of the
// engine's error kinds.
func classify(seeder string, err error) error {
	var (
		ce *ConfigError
		de *DataError
		we *WriteError
	)
	if errors.As(err, &ce) || errors.As(err, &de) || errors.As(err, &we) {
		return err
	}
	return &WriteError{Seeder: seeder, Err: err}
}
