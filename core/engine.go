package core

import (
	"context"
	"errors"
)

var (
	// ErrDeleted is returned by handles that have already been released.
	ErrDeleted = errors.New("handle has been deleted")
	// ErrUnknownColumn is returned when a view references a column the table lacks.
	ErrUnknownColumn = errors.New("unknown column")
)

// TableOptions configures table construction.
type TableOptions struct {
	// Index names the key column. Updates with an existing key replace the row.
	Index string
}

// Engine builds tables from raw data.
type Engine interface {
	Table(ctx context.Context, data *Data, opts TableOptions) (TableHandle, error)
}

// TableHandle is a loaded dataset.
type TableHandle interface {
	// Columns returns column names in table order.
	Columns(ctx context.Context) ([]string, error)
	// Schema returns the type of every column.
	Schema(ctx context.Context) (map[string]ColumnType, error)
	// View builds a derived view. Construction may be expensive.
	View(ctx context.Context, spec ViewSpecification) (ViewHandle, error)
	// Update appends rows, or replaces rows by key when the table has an index.
	Update(ctx context.Context, data *Data) error
	// Delete releases the table. Calling it more than once is a no-op.
	Delete() error
}

// ViewHandle is a derived, pivoted view over a table.
type ViewHandle interface {
	// OnUpdate registers fn to be called after the underlying table changes.
	// The returned function removes the listener.
	OnUpdate(fn func()) (cancel func())
	// Columns returns the header of the computed frame.
	Columns(ctx context.Context) ([]string, error)
	// Rows returns the computed frame.
	Rows(ctx context.Context) ([][]any, error)
	// Delete releases the view. Calling it more than once is a no-op.
	Delete() error
}
