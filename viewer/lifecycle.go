package viewer

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/nickyhof/CommitView/core"
)

// tableRef shares one table between a primary viewer and its slaves. The
// table is deleted when the last reference is released.
type tableRef struct {
	handle core.TableHandle

	mu   sync.Mutex
	refs int
}

func newTableRef(handle core.TableHandle) *tableRef {
	return &tableRef{handle: handle, refs: 1}
}

func (r *tableRef) acquire() *tableRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs++
	return r
}

func (r *tableRef) release() error {
	r.mu.Lock()
	r.refs--
	last := r.refs == 0
	r.mu.Unlock()
	if last {
		return r.handle.Delete()
	}
	return nil
}

// lifecycle owns the single live view of a viewer. It is only touched while
// the viewer's cycle lock is held.
type lifecycle struct {
	view   core.ViewHandle
	cancel func()
	table  *tableRef
	spec   core.ViewSpecification
	hidden []string
	gen    uint64
	// live is the generation of the installed view, zero when none. It is
	// read by update listeners without the cycle lock.
	live atomic.Uint64
}

// isLive reports whether gen identifies the installed view.
func (l *lifecycle) isLive(gen uint64) bool {
	return gen != 0 && l.live.Load() == gen
}

// current reports whether a view built from spec on table is installed.
func (l *lifecycle) current(table *tableRef, spec core.ViewSpecification) bool {
	return l.view != nil && l.table == table && l.spec.Equal(spec)
}

// install requests a view for spec and, once the engine has produced it,
// releases the previous view. When the engine fails the previous view stays
// installed. onUpdate is subscribed with the generation of the new view.
func (l *lifecycle) install(ctx context.Context, table *tableRef, spec core.ViewSpecification, hidden []string, onUpdate func(gen uint64)) error {
	next, err := table.handle.View(ctx, spec)
	if err != nil {
		installs.WithLabelValues("error").Inc()
		return &EngineError{Op: "view", Err: err}
	}
	releaseErr := l.release()

	l.gen++
	gen := l.gen
	l.view = next
	l.table = table
	l.spec = spec.Clone()
	l.hidden = hidden
	l.live.Store(gen)
	l.cancel = next.OnUpdate(func() { onUpdate(gen) })

	installs.WithLabelValues("ok").Inc()
	liveViews.Inc()
	return releaseErr
}

// release unsubscribes and deletes the installed view, if any.
func (l *lifecycle) release() error {
	if l.view == nil {
		return nil
	}
	l.live.Store(0)
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	err := l.view.Delete()
	l.view = nil
	l.table = nil
	liveViews.Dec()
	return err
}
