// Package postgres implements the CRM row store against PostgreSQL. It
// mirrors the spreadsheet's row-and-column shape so the repository logic
// stays backend-agnostic: rows live as text arrays keyed by insertion
// order.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/ignite/lead-automation/internal/crm"
)

// Store is a Postgres-backed crm.RowStore.
type Store struct {
	db    *sql.DB
	table string
}

// NewStore wraps an open database handle. table defaults to lead_rows.
func NewStore(db *sql.DB, table string) *Store {
	if table == "" {
		table = "lead_rows"
	}
	return &Store{db: db, table: table}
}

// Open connects with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn, table string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewStore(db, table), nil
}

// Migrate creates the backing table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	q := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id    BIGSERIAL PRIMARY KEY,
			cells TEXT[] NOT NULL
		)
	`, s.table)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("migrate %s: %w", s.table, err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ReadAllRows(ctx context.Context) ([][]string, error) {
	q := fmt.Sprintf(`SELECT cells FROM %s ORDER BY id`, s.table)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var cells pq.StringArray
		if err := rows.Scan(&cells); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, []string(cells))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return out, nil
}

// FindCell resolves the match in one query. Postgres arrays are 1-based,
// so the 0-based column shifts by one.
func (s *Store) FindCell(ctx context.Context, value string, col int) (int, error) {
	q := fmt.Sprintf(`
		SELECT idx FROM (
			SELECT ROW_NUMBER() OVER (ORDER BY id) - 1 AS idx, cells
			FROM %s
		) t
		WHERE lower(COALESCE(t.cells[$1], '')) = lower($2)
		ORDER BY idx
		LIMIT 1
	`, s.table)

	var idx int
	err := s.db.QueryRowContext(ctx, q, col+1, value).Scan(&idx)
	if err == sql.ErrNoRows {
		return 0, crm.ErrCellNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("find cell: %w", err)
	}
	return idx, nil
}

func (s *Store) FindCells(ctx context.Context, value string, col int) ([]int, error) {
	q := fmt.Sprintf(`
		SELECT idx FROM (
			SELECT ROW_NUMBER() OVER (ORDER BY id) - 1 AS idx, cells
			FROM %s
		) t
		WHERE lower(COALESCE(t.cells[$1], '')) = lower($2)
		ORDER BY idx
	`, s.table)

	rows, err := s.db.QueryContext(ctx, q, col+1, value)
	if err != nil {
		return nil, fmt.Errorf("find cells: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}
		out = append(out, idx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find cells: %w", err)
	}
	if len(out) == 0 {
		return nil, crm.ErrCellNotFound
	}
	return out, nil
}

func (s *Store) ReadRow(ctx context.Context, row int) ([]string, error) {
	q := fmt.Sprintf(`SELECT cells FROM %s ORDER BY id OFFSET $1 LIMIT 1`, s.table)

	var cells pq.StringArray
	err := s.db.QueryRowContext(ctx, q, row).Scan(&cells)
	if err == sql.ErrNoRows {
		return nil, crm.ErrCellNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read row %d: %w", row, err)
	}
	return []string(cells), nil
}

// UpdateCell rewrites the whole array inside a transaction so a write
// past the row's current width grows it, matching sheet behavior.
func (s *Store) UpdateCell(ctx context.Context, row, col int, value string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	selectQ := fmt.Sprintf(`SELECT id, cells FROM %s ORDER BY id OFFSET $1 LIMIT 1 FOR UPDATE`, s.table)

	var id int64
	var cells pq.StringArray
	err = tx.QueryRowContext(ctx, selectQ, row).Scan(&id, &cells)
	if err == sql.ErrNoRows {
		return crm.ErrCellNotFound
	}
	if err != nil {
		return fmt.Errorf("lock row %d: %w", row, err)
	}

	for col >= len(cells) {
		cells = append(cells, "")
	}
	cells[col] = value

	updateQ := fmt.Sprintf(`UPDATE %s SET cells = $1 WHERE id = $2`, s.table)
	if _, err := tx.ExecContext(ctx, updateQ, cells, id); err != nil {
		return fmt.Errorf("update row %d: %w", row, err)
	}
	return tx.Commit()
}

func (s *Store) AppendRow(ctx context.Context, values []string) error {
	q := fmt.Sprintf(`INSERT INTO %s (cells) VALUES ($1)`, s.table)
	if _, err := s.db.ExecContext(ctx, q, pq.StringArray(values)); err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return nil
}

func (s *Store) ColumnValues(ctx context.Context, col int) ([]string, error) {
	q := fmt.Sprintf(`SELECT COALESCE(cells[$1], '') FROM %s ORDER BY id`, s.table)

	rows, err := s.db.QueryContext(ctx, q, col+1)
	if err != nil {
		return nil, fmt.Errorf("column values: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan cell: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("column values: %w", err)
	}
	return out, nil
}
