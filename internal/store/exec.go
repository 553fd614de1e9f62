package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/strtpl/internal/querysql"
)

// Query executes a query and returns the resulting rows.
// Callers are responsible for closing the returned rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// QueryTemplate runs a query produced by the SQL template processor.
// Callers are responsible for closing the returned rows.
func (s *Store) QueryTemplate(ctx context.Context, q querysql.Query) (*sql.Rows, error) {
	rows, err := s.db.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("query template: %w", err)
	}
	return rows, nil
}

// ExecTemplate executes a statement produced by the SQL template processor.
func (s *Store) ExecTemplate(ctx context.Context, q querysql.Query) (sql.Result, error) {
	res, err := s.db.ExecContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("exec template: %w", err)
	}
	return res, nil
}

// Table is a fully materialized query result.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// QueryTable runs a templated query and materializes every row.
// []byte cells are converted to strings for display.
func (s *Store) QueryTable(ctx context.Context, q querysql.Query) (*Table, error) {
	rows, err := s.QueryTemplate(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query table: columns: %w", err)
	}

	table := &Table{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		cells := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("query table: scan: %w", err)
		}
		for i, c := range cells {
			if b, ok := c.([]byte); ok {
				cells[i] = string(b)
			}
		}
		table.Rows = append(table.Rows, cells)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query table: iterate: %w", err)
	}

	return table, nil
}
