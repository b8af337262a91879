package seed

import (
	"context"

	"github.com/johnwards/seeder/internal/domain"
	"github.com/johnwards/seeder/internal/transform"
)

// Strategy is where a seeder's records come from.
type Strategy string

const (
	// StrategyCSV reads records from a (possibly templated) CSV file.
	StrategyCSV Strategy = "csv"
	// StrategyData takes records from the seeder's RecordProducer.
	StrategyData Strategy = "data"
)

// Declaration is what a seeder author states about a seeder. The engine
// resolves it into a Spec once per seeder.
type Declaration struct {
	Strategy Strategy

	// Model names the target model in the registry. Empty means the
	// singular form of the seeder name ("users" -> "User").
	Model string

	// Parent, when set, repeats seeding once per existing parent row.
	// Association defaults to the parent's association matching the
	// target table.
	Parent      string
	Association string

	// CSVName overrides the CSV base name (default: snake_case model name).
	CSVName string

	// UniqueFields is the lookup key for find-or-create. Empty means the
	// whole record is the key.
	UniqueFields []string

	// RecordsPerSourceRecord repeats each source record; 0 means 1.
	RecordsPerSourceRecord int

	// TrimMode is passed to the CSV template renderer.
	TrimMode string

	// Transforms maps fields to builtin transformation names.
	Transforms map[string]string
}

// Seeder is one unit of seeding work.
type Seeder interface {
	Name() string
	Declaration() Declaration
}

// RecordProducer supplies records for StrategyData seeders.
type RecordProducer interface {
	Records(ctx context.Context) ([]domain.Record, error)
}

// Transformer supplies per-field transformations. They take precedence over
// same-field entries in Declaration.Transforms.
type Transformer interface {
	Transformations() map[string]transform.Func
}

// Runner is implemented by custom seeders that replace the standard
// resolve/extract/materialize pipeline entirely.
type Runner interface {
	Run(ctx context.Context, e *Engine) error
}

// Static is a seeder assembled from values rather than code.
type Static struct {
	ID         string
	Decl       Declaration
	Rows       []domain.Record
	Transforms map[string]transform.Func
}

func (s *Static) Name() string { return s.ID }

func (s *Static) Declaration() Declaration { return s.Decl }

// Records returns the configured rows. A nil Rows slice is reported by the
// engine as missing data.
func (s *Static) Records(context.Context) ([]domain.Record, error) { return s.Rows, nil }

func (s *Static) Transformations() map[string]transform.Func { return s.Transforms }
