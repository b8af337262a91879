package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/johnwards/seeder/internal/domain"
	"github.com/johnwards/seeder/internal/model"
	"github.com/johnwards/seeder/internal/seed"
)

// File is a seed declaration file: the models seeders may target and the
// seeders themselves, in run order.
type File struct {
	CSVDir  string       `toml:"csv_dir" yaml:"csv_dir"`
	Models  []ModelDecl  `toml:"models" yaml:"models"`
	Seeders []SeederDecl `toml:"seeders" yaml:"seeders"`

	// dir is the directory of the file; relative paths resolve against it.
	dir string
}

// ModelDecl declares a table. Table defaults to the plural snake_case name and
// PrimaryKey to "id".
type ModelDecl struct {
	Name         string            `toml:"name" yaml:"name"`
	Table        string            `toml:"table" yaml:"table"`
	PrimaryKey   string            `toml:"primary_key" yaml:"primary_key"`
	Associations []AssociationDecl `toml:"associations" yaml:"associations"`
}

// AssociationDecl declares a parent-to-child association. As names a
// polymorphic owner: the child table then carries <as>_id and <as>_type.
type AssociationDecl struct {
	Name       string `toml:"name" yaml:"name"`
	Kind       string `toml:"kind" yaml:"kind"`
	Model      string `toml:"model" yaml:"model"`
	ForeignKey string `toml:"foreign_key" yaml:"foreign_key"`
	PrimaryKey string `toml:"primary_key" yaml:"primary_key"`
	As         string `toml:"as" yaml:"as"`
}

// SeederDecl declares one seeder. Data holds inline records; DataFile names
// a JSON array of objects read when the seeder runs.
type SeederDecl struct {
	Name                   string            `toml:"name" yaml:"name"`
	Strategy               string            `toml:"strategy" yaml:"strategy"`
	Model                  string            `toml:"model" yaml:"model"`
	Parent                 string            `toml:"parent" yaml:"parent"`
	Association            string            `toml:"association" yaml:"association"`
	CSVName                string            `toml:"csv_name" yaml:"csv_name"`
	UniqueFields           FieldList         `toml:"unique_fields" yaml:"unique_fields"`
	TrimMode               string            `toml:"trim_mode" yaml:"trim_mode"`
	RecordsPerSourceRecord int               `toml:"records_per_source_record" yaml:"records_per_source_record"`
	Transforms             map[string]string `toml:"transforms" yaml:"transforms"`
	Data                   []map[string]any  `toml:"data" yaml:"data"`
	DataFile               string            `toml:"data_file" yaml:"data_file"`
}

// FieldList is a list of field names that may also be written as a single
// string.
type FieldList []string

func (f *FieldList) UnmarshalTOML(v any) error {
	switch v := v.(type) {
	case string:
		*f = FieldList{v}
	case []any:
		out := make(FieldList, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("field name must be a string, got %T", item)
			}
			out = append(out, s)
		}
		*f = out
	default:
		return fmt.Errorf("field list must be a string or array, got %T", v)
	}
	return nil
}

func (f *FieldList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*f = FieldList{s}
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return err
	}
	*f = list
	return nil
}

// LoadFile reads a seed declaration file. The format follows the extension:
// .toml, .yaml or .yml. Unknown keys are rejected.
func LoadFile(path string) (*File, error) {
	f := &File{dir: filepath.Dir(path)}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.DecodeFile(path, f)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("decode %s: unknown key %s", path, undecoded[0])
		}
	case ".yaml", ".yml":
		r, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer func() { _ = r.Close() }()

		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported seed file format %q", ext)
	}
	return f, nil
}

// ResolveCSVDir returns override when set, else the file's csv_dir, relative
// to the file's own directory.
func (f *File) ResolveCSVDir(override string) string {
	if override != "" {
		return override
	}
	if filepath.IsAbs(f.CSVDir) {
		return f.CSVDir
	}
	return filepath.Join(f.dir, f.CSVDir)
}

// Registry registers every declared model.
func (f *File) Registry() (*model.Registry, error) {
	reg := model.NewRegistry()
	for _, md := range f.Models {
		m := domain.Model{
			Name:       md.Name,
			Table:      md.Table,
			PrimaryKey: md.PrimaryKey,
		}
		for _, ad := range md.Associations {
			a, err := ad.association()
			if err != nil {
				return nil, fmt.Errorf("model %s: %w", md.Name, err)
			}
			m.Associations = append(m.Associations, a)
		}
		if _, err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (ad AssociationDecl) association() (domain.Association, error) {
	kind, err := domain.ParseKind(ad.Kind)
	if err != nil {
		return domain.Association{}, fmt.Errorf("association %s: %w", ad.Name, err)
	}
	a := domain.Association{
		Name:       ad.Name,
		Kind:       kind,
		Model:      ad.Model,
		ForeignKey: ad.ForeignKey,
		PrimaryKey: ad.PrimaryKey,
	}
	if ad.As != "" {
		a.ForeignType = ad.As + "_type"
		if a.ForeignKey == "" {
			a.ForeignKey = ad.As + "_id"
		}
	}
	return a, nil
}

// Build returns the model registry and the declared seeders in file order.
func (f *File) Build() (*model.Registry, []seed.Seeder, error) {
	reg, err := f.Registry()
	if err != nil {
		return nil, nil, err
	}
	return reg, f.seeders(), nil
}

func (f *File) seeders() []seed.Seeder {
	out := make([]seed.Seeder, 0, len(f.Seeders))
	for _, sd := range f.Seeders {
		s := &seed.Static{
			ID: sd.Name,
			Decl: seed.Declaration{
				Strategy:               seed.Strategy(sd.Strategy),
				Model:                  sd.Model,
				Parent:                 sd.Parent,
				Association:            sd.Association,
				CSVName:                sd.CSVName,
				UniqueFields:           sd.UniqueFields,
				RecordsPerSourceRecord: sd.RecordsPerSourceRecord,
				TrimMode:               sd.TrimMode,
				Transforms:             sd.Transforms,
			},
		}
		if sd.Data != nil {
			s.Rows = make([]domain.Record, len(sd.Data))
			for i, row := range sd.Data {
				s.Rows[i] = domain.Record(row)
			}
		}

		if sd.DataFile != "" {
			path := sd.DataFile
			if !filepath.IsAbs(path) {
				path = filepath.Join(f.dir, path)
			}
			out = append(out, &jsonSeeder{Static: s, path: path})
			continue
		}
		out = append(out, s)
	}
	return out
}

// jsonSeeder reads its records from a JSON file each time it runs.
type jsonSeeder struct {
	*seed.Static
	path string
}

func (j *jsonSeeder) Records(ctx context.Context) ([]domain.Record, error) {
	r, err := os.Open(j.path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer func() { _ = r.Close() }()

	dec := json.NewDecoder(r)
	dec.UseNumber()

	var rows []map[string]any
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(j.path), err)
	}
	if rows == nil {
		return nil, nil
	}

	records := make([]domain.Record, len(rows))
	for i, row := range rows {
		rec := make(domain.Record, len(row))
		for k, v := range row {
			rec[k] = number(v)
		}
		records[i] = rec
	}
	return records, nil
}

// number converts JSON numbers to int64 when integral, float64 otherwise.
func number(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
