package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/johnwards/seeder/internal/domain"
)

// where renders an AND-ed equality filter over fields in sorted key order.
// Nil values compare with IS NULL.
func (s *Store) where(fields domain.Record, args []any) (string, []any) {
	if len(fields) == 0 {
		return "", args
	}
	conds := make([]string, 0, len(fields))
	for _, k := range fields.Keys() {
		v := fields[k]
		if v == nil {
			conds = append(conds, s.dialect.Quote(k)+" IS NULL")
			continue
		}
		args = append(args, v)
		conds = append(conds, s.dialect.Quote(k)+" = "+s.dialect.Placeholder(len(args)))
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// findOne returns the first row of table matching fields.
func (s *Store) findOne(ctx context.Context, table string, fields domain.Record) (domain.Record, error) {
	clause, args := s.where(fields, nil)
	query := "SELECT * FROM " + s.dialect.Quote(table) + clause + " LIMIT 1"

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", table, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// insert writes fields into table and returns the stored row.
func (s *Store) insert(ctx context.Context, table string, fields domain.Record) (domain.Record, error) {
	q := s.dialect.Quote(table)
	var query string
	var args []any
	if len(fields) == 0 {
		query = "INSERT INTO " + q + " DEFAULT VALUES RETURNING *"
	} else {
		keys := fields.Keys()
		cols := make([]string, len(keys))
		marks := make([]string, len(keys))
		for i, k := range keys {
			cols[i] = s.dialect.Quote(k)
			args = append(args, fields[k])
			marks[i] = s.dialect.Placeholder(i + 1)
		}
		query = "INSERT INTO " + q + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ") RETURNING *"
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert %s: no row returned", table)
	}
	return rows[0], nil
}

// update overwrites fields on the rows of table matching key.
func (s *Store) update(ctx context.Context, table string, key, fields domain.Record) (domain.Record, error) {
	if len(fields) == 0 {
		return s.findOne(ctx, table, key)
	}
	keys := fields.Keys()
	sets := make([]string, len(keys))
	args := make([]any, 0, len(keys)+len(key))
	for i, k := range keys {
		args = append(args, fields[k])
		sets[i] = s.dialect.Quote(k) + " = " + s.dialect.Placeholder(len(args))
	}
	clause, args := s.where(key, args)
	query := "UPDATE " + s.dialect.Quote(table) + " SET " + strings.Join(sets, ", ") + clause + " RETURNING *"

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", table, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// query runs a statement and scans every returned row into a Record.
func (s *Store) query(ctx context.Context, query string, args ...any) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	var out []domain.Record
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		rec := make(domain.Record, len(cols))
		for i, c := range cols {
			rec[c] = vals[i]
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}
