package db

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/nickyhof/CommitView/core"
)

// Table is a DuckDB table created from a dataset.
type Table struct {
	engine *Engine
	name   string

	mu      sync.RWMutex
	columns []string
	schema  map[string]core.ColumnType
	index   string
	version uint64
	views   map[*View]struct{}
	deleted bool
}

// Name returns the DuckDB table name.
func (t *Table) Name() string {
	return t.name
}

func (t *Table) Columns(ctx context.Context) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.deleted {
		return nil, core.ErrDeleted
	}
	return slices.Clone(t.columns), nil
}

func (t *Table) Schema(ctx context.Context) (map[string]core.ColumnType, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.deleted {
		return nil, core.ErrDeleted
	}
	schema := make(map[string]core.ColumnType, len(t.schema))
	for k, v := range t.schema {
		schema[k] = v
	}
	return schema, nil
}

// storedValue converts a parsed value to what the column accepts.
func storedValue(v any, typ core.ColumnType) any {
	switch x := v.(type) {
	case nil:
		return nil
	case core.Date:
		if typ == core.StringType {
			return x.String()
		}
		return x.Time()
	}
	if typ == core.StringType {
		if _, ok := v.(string); !ok {
			return core.FormatValue(v)
		}
	}
	return v
}

// keyedRows keeps the last row of every key, in first-seen order.
func keyedRows(rows [][]any, keyCol int) [][]any {
	at := map[string]int{}
	out := make([][]any, 0, len(rows))
	for _, row := range rows {
		k := core.FormatValue(row[keyCol])
		if i, ok := at[k]; ok {
			out[i] = row
			continue
		}
		at[k] = len(out)
		out = append(out, row)
	}
	return out
}

// insert writes data in one transaction. Indexed tables replace rows with
// an existing key.
func (t *Table) insert(ctx context.Context, data *core.Data) error {
	positions := make([]int, len(t.columns))
	for i, c := range t.columns {
		positions[i] = slices.Index(data.Columns, c)
	}
	rows := make([][]any, 0, len(data.Rows))
	for _, src := range data.Rows {
		row := make([]any, len(t.columns))
		for i, p := range positions {
			if p >= 0 && p < len(src) {
				row[i] = storedValue(src[p], t.schema[t.columns[i]])
			}
		}
		rows = append(rows, row)
	}
	verb := "INSERT INTO"
	if t.index != "" {
		verb = "INSERT OR REPLACE INTO"
		rows = keyedRows(rows, slices.Index(t.columns, t.index))
	}
	if len(rows) == 0 {
		return nil
	}

	cols := make([]string, len(t.columns))
	for i, c := range t.columns {
		cols[i] = quoteIdent(c)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("%s %s (%s) VALUES (%s)", verb, quoteIdent(t.name), strings.Join(cols, ", "), placeholders)

	tx, err := t.engine.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin insert: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit insert: %w", err)
	}
	return nil
}

func (t *Table) Update(ctx context.Context, data *core.Data) error {
	t.mu.Lock()
	if t.deleted {
		t.mu.Unlock()
		return core.ErrDeleted
	}
	if err := t.insert(ctx, data); err != nil {
		t.mu.Unlock()
		return err
	}
	t.version++
	views := make([]*View, 0, len(t.views))
	for v := range t.views {
		views = append(views, v)
	}
	t.mu.Unlock()

	for _, v := range views {
		v.notify()
	}
	return nil
}

func (t *Table) View(ctx context.Context, spec core.ViewSpecification) (core.ViewHandle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.deleted {
		return nil, core.ErrDeleted
	}

	v := &View{
		table:     t,
		spec:      spec.Clone(),
		listeners: map[int]func(){},
	}
	if err := v.build(ctx, t.version); err != nil {
		return nil, fmt.Errorf("failed to build view: %w", err)
	}
	t.views[v] = struct{}{}
	return v, nil
}

// Delete drops the table. Views still open on it fail on their next read.
func (t *Table) Delete() error {
	t.mu.Lock()
	if t.deleted {
		t.mu.Unlock()
		return nil
	}
	t.deleted = true
	t.views = map[*View]struct{}{}
	t.mu.Unlock()

	t.engine.tables.Add(-1)
	if _, err := t.engine.db.Exec("DROP TABLE IF EXISTS " + quoteIdent(t.name)); err != nil {
		return fmt.Errorf("failed to drop table: %w", err)
	}
	return nil
}

func (t *Table) detach(v *View) {
	t.mu.Lock()
	delete(t.views, v)
	t.mu.Unlock()
}
