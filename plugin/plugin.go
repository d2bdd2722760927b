package plugin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/nickyhof/CommitView/core"
)

var ErrUnknownPlugin = errors.New("unknown plugin")

// Plugin renders a view.
type Plugin interface {
	Name() string
	SelectMode() core.SelectMode
	// Create renders view to target, leaving out hidden columns. force is
	// set when the view itself was replaced rather than its data updated.
	Create(ctx context.Context, target io.Writer, view core.ViewHandle, hidden []string, force bool) error
	Delete() error
}

// Resizer is implemented by plugins that react to container size changes.
type Resizer interface {
	Resize(ctx context.Context, target io.Writer) error
}

// FailureReporter is implemented by plugins that can display an engine
// failure in place of a view.
type FailureReporter interface {
	ReportFailure(target io.Writer, err error)
}

// Registry maps plugin names to plugins. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{plugins: map[string]Plugin{}}
}

// NewDefaultRegistry returns a registry holding the built-in plugins, with
// grid as the default.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewGrid())
	r.Register(NewJSON())
	r.Register(NewBars())
	return r
}

// Register adds p under its name, replacing any plugin of the same name.
func (r *Registry) Register(p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Name()
	if _, exists := r.plugins[name]; !exists {
		r.order = append(r.order, name)
	}
	r.plugins[name] = p
}

func (r *Registry) Get(name string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlugin, name)
	}
	return p, nil
}

// Names returns plugin names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Default returns the first registered plugin, or nil.
func (r *Registry) Default() Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.order) == 0 {
		return nil
	}
	return r.plugins[r.order[0]]
}

// Lookup returns the named plugin, falling back to the default.
func (r *Registry) Lookup(name string) Plugin {
	if p, err := r.Get(name); err == nil {
		return p
	}
	return r.Default()
}

// Mode returns the select mode of the named plugin.
func (r *Registry) Mode(name string) core.SelectMode {
	if p := r.Lookup(name); p != nil {
		return p.SelectMode()
	}
	return core.ToggleMode
}
