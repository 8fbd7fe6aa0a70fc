package crm

import (
	"context"
	"errors"
)

// Sentinel errors for the CRM layer.
var (
	// ErrCellNotFound is returned by RowStore.FindCell when no cell in the
	// column matches the value. Expected during lookups; never escalated.
	ErrCellNotFound = errors.New("cell not found")

	// ErrNotFound is returned by repository lookups that miss.
	ErrNotFound = errors.New("lead not found")

	// ErrDuplicate is returned by Insert when a dedup check matches an
	// existing lead. Duplicate candidates are routine, not failures.
	ErrDuplicate = errors.New("duplicate lead")
)

// RowStore is the capability the repository needs from a backing store.
// Row indices are 0-based over data rows; the header row, where the backend
// has one, is the backend's concern. Implementations must perform FindCell
// as a single indexed lookup, not a client-side scan: the repository calls
// it on every sync-engine match and the store is remote.
type RowStore interface {
	// ReadAllRows returns every data row. Rows may be shorter than the
	// schema's column count.
	ReadAllRows(ctx context.Context) ([][]string, error)

	// FindCell returns the index of the first data row whose cell in the
	// given column matches value (case-insensitive). Returns ErrCellNotFound
	// on a miss.
	FindCell(ctx context.Context, value string, col int) (int, error)

	// FindCells returns the indices of all data rows matching value in the
	// given column, in store iteration order.
	FindCells(ctx context.Context, value string, col int) ([]int, error)

	// ReadRow returns a single data row.
	ReadRow(ctx context.Context, row int) ([]string, error)

	// UpdateCell writes one cell.
	UpdateCell(ctx context.Context, row, col int, value string) error

	// AppendRow appends a data row.
	AppendRow(ctx context.Context, values []string) error

	// ColumnValues returns every data cell in one column, in row order.
	ColumnValues(ctx context.Context, col int) ([]string, error)
}
