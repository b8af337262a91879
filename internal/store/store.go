package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/johnwards/seeder/internal/database"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("record not found")

// DBTX is the query surface shared by *sql.DB and *sql.Tx, so a whole seeding
// run can be wrapped in a caller-owned transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Store reads and writes model rows with generated SQL. It performs no
// locking of its own: find-or-create is a read followed by a write, so
// concurrent writers need unique indexes to stay duplicate-free.
type Store struct {
	db      DBTX
	dialect database.Dialect
}

// New creates a Store speaking dialect d over db.
func New(db DBTX, d database.Dialect) *Store {
	return &Store{db: db, dialect: d}
}

// Dialect returns the SQL dialect the store generates.
func (s *Store) Dialect() database.Dialect {
	return s.dialect
}
