package memdb

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/nickyhof/CommitView/core"
	"github.com/nickyhof/CommitView/op"
)

type View struct {
	table *Table
	spec  core.ViewSpecification

	mu        sync.Mutex
	frame     op.Frame
	version   uint64
	listeners map[int]func()
	nextID    int
	deleted   bool
}

func (v *View) OnUpdate(fn func()) (cancel func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := v.nextID
	v.nextID++
	v.listeners[id] = fn
	return func() {
		v.mu.Lock()
		delete(v.listeners, id)
		v.mu.Unlock()
	}
}

func (v *View) notify() {
	v.mu.Lock()
	if v.deleted {
		v.mu.Unlock()
		return
	}
	ids := slices.Sorted(maps.Keys(v.listeners))
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, v.listeners[id])
	}
	v.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// current returns the frame, recomputing it when the table has changed.
func (v *View) current() (op.Frame, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.deleted {
		return op.Frame{}, core.ErrDeleted
	}

	v.table.mu.RLock()
	defer v.table.mu.RUnlock()
	if v.table.deleted {
		return op.Frame{}, core.ErrDeleted
	}
	if v.table.version != v.version {
		frame, err := op.Compute(&core.Data{Columns: v.table.columns, Rows: v.table.rows}, v.spec)
		if err != nil {
			return op.Frame{}, err
		}
		v.frame, v.version = frame, v.table.version
	}
	return v.frame, nil
}

func (v *View) Columns(ctx context.Context) ([]string, error) {
	frame, err := v.current()
	if err != nil {
		return nil, err
	}
	return slices.Clone(frame.Columns), nil
}

func (v *View) Rows(ctx context.Context) ([][]any, error) {
	frame, err := v.current()
	if err != nil {
		return nil, err
	}
	return slices.Clone(frame.Rows), nil
}

// Spec returns the specification the view was built from.
func (v *View) Spec() core.ViewSpecification {
	return v.spec.Clone()
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
	v.table.engine.viewsDeleted.Add(1)
	return nil
}
