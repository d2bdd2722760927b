package viewer

import "sync"

// Document is the set of live viewers sharing a render budget.
type Document struct {
	mu      sync.Mutex
	viewers map[*Viewer]struct{}
}

func NewDocument() *Document {
	return &Document{viewers: map[*Viewer]struct{}{}}
}

var defaultDocument = NewDocument()

// DefaultDocument returns the document viewers join unless told otherwise.
func DefaultDocument() *Document {
	return defaultDocument
}

func (d *Document) add(v *Viewer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.viewers[v]; !ok {
		d.viewers[v] = struct{}{}
		liveViewers.Inc()
	}
}

func (d *Document) remove(v *Viewer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.viewers[v]; ok {
		delete(d.viewers, v)
		liveViewers.Dec()
	}
}

// LiveViewerCount returns the number of viewers not yet deleted.
func (d *Document) LiveViewerCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.viewers)
}
