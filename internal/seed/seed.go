// Package seed populates relational tables from declarative seeders.
//
// A seeder names a target model, a data source (a CSV file, optionally
// templated, or records built in code) and how source records map to rows.
// Every write is a find-or-create keyed on the seeder's unique fields, so
// running the same seeders twice leaves the database unchanged. Seeders with
// a parent model repeat their records once per existing parent row.
package seed

import (
	"context"
	"fmt"
	"strings"
)

// Suite is an ordered set of seeders. Order matters: seeders with a parent
// must run after the seeder that creates the parent rows.
type Suite struct {
	Engine  *Engine
	Seeders []Seeder
}

// Names returns the seeder names in suite order.
func (s *Suite) Names() []string {
	names := make([]string, 0, len(s.Seeders))
	for _, sd := range s.Seeders {
		names = append(names, sd.Name())
	}
	return names
}

// Select returns the seeders named in only, in the order only lists them;
// the list replaces the suite order. Repeated names run once. An empty only
// selects every seeder in suite order. Unknown names are a *ConfigError
// wrapping ErrUnknownSeeder.
func (s *Suite) Select(only []string) ([]Seeder, error) {
	byName := make(map[string]Seeder, len(s.Seeders))
	for _, sd := range s.Seeders {
		if _, dup := byName[sd.Name()]; dup {
			return nil, configErrorf(sd.Name(), "seeder registered twice")
		}
		byName[sd.Name()] = sd
	}
	if len(only) == 0 {
		return s.Seeders, nil
	}

	selected := make([]Seeder, 0, len(only))
	seen := make(map[string]bool, len(only))
	for _, name := range only {
		sd, ok := byName[name]
		if !ok {
			return nil, &ConfigError{Seeder: name, Err: ErrUnknownSeeder}
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		selected = append(selected, sd)
	}
	return selected, nil
}

// Run executes the selected seeders in order and stops at the first failure.
// The returned results include the failed seeder.
func (s *Suite) Run(ctx context.Context, only []string) ([]Result, error) {
	seeders, err := s.Select(only)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(seeders))
	for _, sd := range seeders {
		res, err := s.Engine.Run(ctx, sd)
		results = append(results, res)
		if err != nil {
			return results, fmt.Errorf("run %s: %w", sd.Name(), err)
		}
	}
	return results, nil
}

// ParseSelection splits a comma-separated list of seeder names, as given in
// the SEEDS environment variable. Blank entries are ignored.
func ParseSelection(raw string) []string {
	var names []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}
