package seed

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/johnwards/seeder/internal/domain"
	"github.com/johnwards/seeder/internal/model"
	"github.com/johnwards/seeder/internal/render"
	"github.com/johnwards/seeder/internal/transform"
)

const templateExt = ".tmpl"

// csvSuffixes are probed in order when locating a seeder's CSV file.
var csvSuffixes = []string{".csv", ".csv" + templateExt, templateExt + ".csv"}

// Spec is a resolved, validated seeder declaration. It is never modified
// after Resolve returns it.
type Spec struct {
	Name     string
	Strategy Strategy
	Model    *domain.Model

	// CSVPath is set for StrategyCSV and points at an existing file.
	CSVPath string

	// Parent and Association are both set or both nil.
	Parent      *domain.Model
	Association *domain.Association

	RecordsPerSourceRecord int
	UniqueFields           []string
	TrimMode               string
	Transformations        map[string]transform.Func
}

// Templated reports whether the CSV file is rendered as a template first.
func (s *Spec) Templated() bool {
	base := filepath.Base(s.CSVPath)
	return strings.HasSuffix(base, ".csv"+templateExt) || strings.HasSuffix(base, templateExt+".csv")
}

// Resolve validates s's declaration against the model registry and the CSV
// directory. The result is cached by seeder name, so each seeder is
// validated once per engine. Resolve performs no writes.
func (e *Engine) Resolve(s Seeder) (*Spec, error) {
	name := s.Name()
	if spec, ok := e.specs[name]; ok {
		return spec, nil
	}
	if name == "" {
		return nil, configErrorf(name, "seeder name is required")
	}

	d := s.Declaration()
	spec := &Spec{Name: name, Strategy: d.Strategy}

	switch d.Strategy {
	case StrategyCSV, StrategyData:
	default:
		return nil, configErrorf(name, "unknown seeding strategy %q", d.Strategy)
	}

	modelName := d.Model
	if modelName == "" {
		modelName = model.ModelName(name)
	}
	m, err := e.models.Lookup(modelName)
	if err != nil {
		return nil, &ConfigError{Seeder: name, Err: err}
	}
	spec.Model = m

	if err := e.resolveParent(spec, d); err != nil {
		return nil, err
	}

	switch {
	case d.RecordsPerSourceRecord < 0:
		return nil, configErrorf(name, "records per source record must be at least 1, got %d", d.RecordsPerSourceRecord)
	case d.RecordsPerSourceRecord == 0:
		spec.RecordsPerSourceRecord = 1
	default:
		spec.RecordsPerSourceRecord = d.RecordsPerSourceRecord
	}

	if err := render.ValidTrimMode(d.TrimMode); err != nil {
		return nil, &ConfigError{Seeder: name, Err: err}
	}
	spec.TrimMode = d.TrimMode
	if spec.TrimMode == "" {
		spec.TrimMode = render.TrimMarkers
	}

	for _, f := range d.UniqueFields {
		if f == "" {
			return nil, configErrorf(name, "unique field names must not be empty")
		}
		if !slices.Contains(spec.UniqueFields, f) {
			spec.UniqueFields = append(spec.UniqueFields, f)
		}
	}

	spec.Transformations, err = transformations(s, d)
	if err != nil {
		return nil, &ConfigError{Seeder: name, Err: err}
	}

	if spec.Strategy == StrategyCSV {
		base := d.CSVName
		if base == "" {
			base = model.FileName(m.Name)
		}
		spec.CSVPath, err = e.findCSV(base)
		if err != nil {
			return nil, &ConfigError{Seeder: name, Err: err}
		}
	}

	e.specs[name] = spec
	return spec, nil
}

func (e *Engine) resolveParent(spec *Spec, d Declaration) error {
	if d.Parent == "" {
		if d.Association != "" {
			return configErrorf(spec.Name, "association %q requires a parent model", d.Association)
		}
		return nil
	}

	parent, err := e.models.Lookup(d.Parent)
	if err != nil {
		return &ConfigError{Seeder: spec.Name, Err: err}
	}

	var a domain.Association
	if d.Association == "" {
		a, err = e.models.Derive(d.Parent, spec.Model.Table)
	} else {
		a, err = e.models.Reflect(d.Parent, d.Association)
	}
	if err != nil {
		return &ConfigError{Seeder: spec.Name, Err: err}
	}
	if a.Model != spec.Model.Name {
		return configErrorf(spec.Name, "association %s.%s targets %s, not %s", parent.Name, a.Name, a.Model, spec.Model.Name)
	}

	spec.Parent = parent
	spec.Association = &a
	return nil
}

// transformations merges builtin-named transforms with code-supplied ones.
func transformations(s Seeder, d Declaration) (map[string]transform.Func, error) {
	out := make(map[string]transform.Func, len(d.Transforms))
	for field, name := range d.Transforms {
		fn, err := transform.Builtin(name)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field, err)
		}
		out[field] = fn
	}
	if t, ok := s.(Transformer); ok {
		for field, fn := range t.Transformations() {
			out[field] = fn
		}
	}
	return out, nil
}

func (e *Engine) findCSV(base string) (string, error) {
	tried := make([]string, 0, len(csvSuffixes))
	for _, suffix := range csvSuffixes {
		path := filepath.Join(e.csvDir, base+suffix)
		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return path, nil
		}
		tried = append(tried, path)
	}
	return "", fmt.Errorf("no CSV file found, tried %s", strings.Join(tried, ", "))
}
