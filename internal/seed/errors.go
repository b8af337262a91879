package seed

import (
	"errors"
	"fmt"
)

// ErrUnknownSeeder is wrapped by the ConfigError returned when a selection
// names a seeder that is not registered.
var ErrUnknownSeeder = errors.New("unknown seeder")

// ConfigError reports a seeder declaration that cannot be resolved: bad
// strategy, missing CSV file, unknown model or association.
type ConfigError struct {
	Seeder string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("seeder %s: invalid configuration: %v", e.Seeder, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// DataError reports a source that could not produce records.
type DataError struct {
	Seeder string
	Err    error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("seeder %s: bad data: %v", e.Seeder, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

// WriteError reports a store failure while materializing records.
type WriteError struct {
	Seeder string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("seeder %s: write failed: %v", e.Seeder, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func configErrorf(seeder, format string, args ...any) error {
	return &ConfigError{Seeder: seeder, Err: fmt.Errorf(format, args...)}
}
