package crm

import (
	"context"
	"strings"
	"sync"
)

// MemStore is an in-memory RowStore. It backs unit tests and local dry
// runs where no spreadsheet or database is available.
type MemStore struct {
	mu   sync.RWMutex
	rows [][]string
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// NewMemStoreWithRows creates a store pre-seeded with data rows.
func NewMemStoreWithRows(rows [][]string) *MemStore {
	s := &MemStore{}
	for _, r := range rows {
		cp := make([]string, len(r))
		copy(cp, r)
		s.rows = append(s.rows, cp)
	}
	return s
}

func (s *MemStore) ReadAllRows(ctx context.Context) ([][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		cp := make([]string, len(r))
		copy(cp, r)
		out[i] = cp
	}
	return out, nil
}

func (s *MemStore) FindCell(ctx context.Context, value string, col int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, r := range s.rows {
		if col < len(r) && strings.EqualFold(r[col], value) {
			return i, nil
		}
	}
	return 0, ErrCellNotFound
}

func (s *MemStore) FindCells(ctx context.Context, value string, col int) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []int
	for i, r := range s.rows {
		if col < len(r) && strings.EqualFold(r[col], value) {
			out = append(out, i)
		}
	}
	if len(out) == 0 {
		return nil, ErrCellNotFound
	}
	return out, nil
}

func (s *MemStore) ReadRow(ctx context.Context, row int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if row < 0 || row >= len(s.rows) {
		return nil, ErrCellNotFound
	}
	cp := make([]string, len(s.rows[row]))
	copy(cp, s.rows[row])
	return cp, nil
}

func (s *MemStore) UpdateCell(ctx context.Context, row, col int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row < 0 || row >= len(s.rows) {
		return ErrCellNotFound
	}
	// Grow the row when writing past its current width, the way a sheet does
	for col >= len(s.rows[row]) {
		s.rows[row] = append(s.rows[row], "")
	}
	s.rows[row][col] = value
	return nil
}

func (s *MemStore) AppendRow(ctx context.Context, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]string, len(values))
	copy(cp, values)
	s.rows = append(s.rows, cp)
	return nil
}

func (s *MemStore) ColumnValues(ctx context.Context, col int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.rows))
	for _, r := range s.rows {
		if col < len(r) {
			out = append(out, r[col])
		} else {
			out = append(out, "")
		}
	}
	return out, nil
}
