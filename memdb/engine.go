package memdb

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/nickyhof/CommitView/core"
	"github.com/nickyhof/CommitView/op"
)

// Stats counts handle transitions.
type Stats struct {
	TablesCreated int64
	TablesDeleted int64
	ViewsCreated  int64
	ViewsDeleted  int64
}

// LiveViews returns the number of views created and not yet deleted.
func (s Stats) LiveViews() int64 { return s.ViewsCreated - s.ViewsDeleted }

// LiveTables returns the number of tables created and not yet deleted.
func (s Stats) LiveTables() int64 { return s.TablesCreated - s.TablesDeleted }

type Engine struct {
	tablesCreated atomic.Int64
	tablesDeleted atomic.Int64
	viewsCreated  atomic.Int64
	viewsDeleted  atomic.Int64
}

func New() *Engine {
	return &Engine{}
}

func (e *Engine) Stats() Stats {
	return Stats{
		TablesCreated: e.tablesCreated.Load(),
		TablesDeleted: e.tablesDeleted.Load(),
		ViewsCreated:  e.viewsCreated.Load(),
		ViewsDeleted:  e.viewsDeleted.Load(),
	}
}

func (e *Engine) Table(ctx context.Context, data *core.Data, opts core.TableOptions) (core.TableHandle, error) {
	if data == nil || len(data.Columns) == 0 {
		return nil, core.ErrEmptyData
	}
	if opts.Index != "" && !slices.Contains(data.Columns, opts.Index) {
		return nil, fmt.Errorf("%w: index %s", core.ErrUnknownColumn, opts.Index)
	}

	t := &Table{
		engine:  e,
		columns: slices.Clone(data.Columns),
		schema:  core.InferSchema(data),
		index:   opts.Index,
		keys:    map[string]int{},
		views:   map[*View]struct{}{},
	}
	t.insert(data)
	e.tablesCreated.Add(1)
	core.Debugf(ctx, "memdb: created table with %d columns, %d rows", len(t.columns), len(t.rows))
	return t, nil
}

type Table struct {
	engine *Engine

	mu      sync.RWMutex
	columns []string
	schema  map[string]core.ColumnType
	rows    [][]any
	index   string
	keys    map[string]int
	version uint64
	views   map[*View]struct{}
	deleted bool
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

// Size returns the number of rows.
func (t *Table) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// insert appends rows, replacing rows with an existing key when the table
// is indexed. Callers hold the write lock or own t exclusively.
func (t *Table) insert(data *core.Data) {
	positions := make([]int, len(t.columns))
	for i, c := range t.columns {
		positions[i] = slices.Index(data.Columns, c)
	}
	keyCol := slices.Index(t.columns, t.index)

	for _, src := range data.Rows {
		row := make([]any, len(t.columns))
		for i, p := range positions {
			if p >= 0 && p < len(src) {
				row[i] = src[p]
			}
		}
		if keyCol >= 0 {
			k := core.FormatValue(row[keyCol])
			if at, ok := t.keys[k]; ok {
				t.rows[at] = row
				continue
			}
			t.keys[k] = len(t.rows)
		}
		t.rows = append(t.rows, row)
	}
	t.version++
}

func (t *Table) Update(ctx context.Context, data *core.Data) error {
	t.mu.Lock()
	if t.deleted {
		t.mu.Unlock()
		return core.ErrDeleted
	}
	t.insert(data)
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

	frame, err := op.Compute(&core.Data{Columns: t.columns, Rows: t.rows}, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to build view: %w", err)
	}
	v := &View{
		table:     t,
		spec:      spec.Clone(),
		frame:     frame,
		version:   t.version,
		listeners: map[int]func(){},
	}
	t.views[v] = struct{}{}
	t.engine.viewsCreated.Add(1)
	return v, nil
}

// Delete releases the table and every view still open on it.
func (t *Table) Delete() error {
	t.mu.Lock()
	if t.deleted {
		t.mu.Unlock()
		return nil
	}
	t.deleted = true
	t.rows = nil
	t.keys = nil
	t.mu.Unlock()
	t.engine.tablesDeleted.Add(1)
	return nil
}

func (t *Table) detach(v *View) {
	t.mu.Lock()
	delete(t.views, v)
	t.mu.Unlock()
}
