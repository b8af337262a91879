package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/johnwards/seeder/internal/csvdata"
	"github.com/johnwards/seeder/internal/domain"
	"github.com/johnwards/seeder/internal/render"
)

var errNoRecords = errors.New("data source returned no record list")

// Extract produces the source records for spec, in source order. It performs
// no writes. Every failure is a *DataError.
func (e *Engine) Extract(ctx context.Context, s Seeder, spec *Spec) ([]domain.Record, error) {
	var (
		records []domain.Record
		err     error
	)
	switch spec.Strategy {
	case StrategyData:
		records, err = extractData(ctx, s)
	default:
		records, err = extractCSV(s, spec)
	}
	if err != nil {
		return nil, &DataError{Seeder: spec.Name, Err: err}
	}
	return records, nil
}

func extractData(ctx context.Context, s Seeder) ([]domain.Record, error) {
	p, ok := s.(RecordProducer)
	if !ok {
		return nil, fmt.Errorf("%T does not produce records", s)
	}
	records, err := p.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("produce records: %w", err)
	}
	if records == nil {
		return nil, errNoRecords
	}
	return records, nil
}

func extractCSV(s Seeder, spec *Spec) ([]domain.Record, error) {
	f, err := os.Open(spec.CSVPath)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer func() { _ = f.Close() }()

	var src io.Reader = f
	if spec.Templated() {
		raw, err := io.ReadAll(csvdata.NewReader(f))
		if err != nil {
			return nil, fmt.Errorf("read template: %w", err)
		}
		text, err := render.Render(filepath.Base(spec.CSVPath), string(raw), s, spec.TrimMode)
		if err != nil {
			return nil, err
		}
		src = strings.NewReader(text)
	}

	records, err := csvdata.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(spec.CSVPath), err)
	}
	return records, nil
}
