package db

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/nickyhof/CommitView/core"
)

// View is a generated query over a Table. Column pivot tuples are
// recomputed after every table update.
type View struct {
	table *Table
	spec  core.ViewSpecification

	mu        sync.Mutex
	query     Query
	version   uint64
	listeners map[int]func()
	nextID    int
	deleted   bool
}

// build regenerates the query. Callers hold the table lock.
func (v *View) build(ctx context.Context, version uint64) error {
	var tuples [][]any
	if len(v.spec.ColumnPivots) > 0 {
		if err := checkColumns(v.table.schema, v.spec); err != nil {
			return err
		}
		sql, err := TuplesQuery(v.table.name, v.table.schema, v.spec)
		if err != nil {
			return err
		}
		tuples, err = v.table.engine.query(ctx, sql)
		if err != nil {
			return err
		}
	}
	q, err := BuildQuery(v.table.name, v.table.schema, v.spec, tuples)
	if err != nil {
		return err
	}
	if err := v.table.engine.prepare(ctx, q.SQL); err != nil {
		return err
	}
	v.query = q
	v.version = version
	return nil
}

func (v *View) OnUpdate(fn func()) (cancel func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := v.nextID
	v.nextID++
	v.listeners[id] = fn
	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.listeners, id)
	}
}

func (v *View) notify() {
	v.mu.Lock()
	if v.deleted {
		v.mu.Unlock()
		return
	}
	fns := make([]func(), 0, len(v.listeners))
	for _, fn := range v.listeners {
		fns = append(fns, fn)
	}
	v.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// current returns the query for the latest table version.
func (v *View) current(ctx context.Context) (Query, error) {
	v.table.mu.RLock()
	defer v.table.mu.RUnlock()
	if v.table.deleted {
		return Query{}, core.ErrDeleted
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.deleted {
		return Query{}, core.ErrDeleted
	}
	if v.version != v.table.version {
		if err := v.build(ctx, v.table.version); err != nil {
			return Query{}, err
		}
	}
	return v.query, nil
}

func (v *View) Columns(ctx context.Context) ([]string, error) {
	q, err := v.current(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(q.Columns), nil
}

func (v *View) Rows(ctx context.Context) ([][]any, error) {
	q, err := v.current(ctx)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := v.table.engine.query(ctx, q.SQL)
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		row = row[:min(len(row), len(q.Columns))]
		for j := range row {
			row[j] = v.outputValue(q.Columns[j], row[j])
		}
		rows[i] = row
	}
	core.Debugf(ctx, "duckdb: view over %s returned %d rows in %v", v.table.name, len(rows), time.Since(start))
	return rows, nil
}

// outputValue restores date values for columns whose source is a date.
func (v *View) outputValue(column string, value any) any {
	t, ok := value.(time.Time)
	if !ok {
		return value
	}
	source := column
	if i := strings.LastIndex(column, PivotSeparator); i >= 0 && len(v.spec.ColumnPivots) > 0 {
		source = column[i+len(PivotSeparator):]
	}
	if v.table.schema[source] == core.DateType {
		return core.Date(t)
	}
	return t
}

// Spec returns the specification the view was built from.
func (v *View) Spec() core.ViewSpecification {
	return v.spec.Clone()
}

// SQL returns the generated query.
func (v *View) SQL(ctx context.Context) (string, error) {
	q, err := v.current(ctx)
	return q.SQL, err
}

func (v *View) Delete() error {
	v.mu.Lock()
	if v.deleted {
		v.mu.Unlock()
		return nil
	}
	v.deleted = true
	v.listeners = nil
	v.mu.Unlock()
	v.table.detach(v)
	return nil
}

// prepare binds sql without running it, reporting invalid queries.
func (e *Engine) prepare(ctx context.Context, sql string) error {
	stmt, err := e.db.PrepareContext(ctx, sql)
	if err != nil {
		return fmt.Errorf("invalid view query: %w", err)
	}
	return stmt.Close()
}

// query runs sql and returns every row.
func (e *Engine) query(ctx context.Context, sql string) ([][]any, error) {
	rows, err := e.db.QueryContext(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out [][]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, values)
	}
	return out, rows.Err()
}
