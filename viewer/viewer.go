package viewer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nickyhof/CommitView/attrs"
	"github.com/nickyhof/CommitView/core"
	"github.com/nickyhof/CommitView/filter"
	"github.com/nickyhof/CommitView/plugin"
	"github.com/nickyhof/CommitView/resolve"
	"github.com/nickyhof/CommitView/scheduler"
)

// configAttributes are the attributes whose changes trigger a cycle.
var configAttributes = map[string]bool{
	attrs.Columns:      true,
	attrs.Aggregates:   true,
	attrs.Filters:      true,
	attrs.Sort:         true,
	attrs.RowPivots:    true,
	attrs.ColumnPivots: true,
	attrs.View:         true,
	attrs.FilterText:   true,
}

type Option func(*Viewer)

func WithRegistry(r *plugin.Registry) Option { return func(v *Viewer) { v.registry = r } }
func WithDocument(d *Document) Option        { return func(v *Viewer) { v.doc = d } }
func WithClock(c scheduler.Clock) Option     { return func(v *Viewer) { v.clock = c } }
func WithOutput(w io.Writer) Option          { return func(v *Viewer) { v.out = w } }
func WithID(id string) Option                { return func(v *Viewer) { v.id = id } }

// WithLogger sets the logger. The viewer logs under the name "viewer".
func WithLogger(l *zap.Logger) Option { return func(v *Viewer) { v.logger = l } }

// WithThrottleInterval changes the minimum spacing of configuration cycles.
func WithThrottleInterval(d time.Duration) Option {
	return func(v *Viewer) { v.throttleInterval = d }
}

type Viewer struct {
	id               string
	engine           core.Engine
	registry         *plugin.Registry
	doc              *Document
	clock            scheduler.Clock
	logger           *zap.Logger
	out              io.Writer
	throttleInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	store     *attrs.Store
	debouncer *scheduler.Debouncer
	throttle  *scheduler.Throttle
	unwatch   func()

	// cycleMu serializes resolve, install and render.
	cycleMu sync.Mutex
	life    lifecycle
	table   *tableRef
	catalog *core.Catalog
	active  plugin.Plugin
	result  resolve.Result

	mu      sync.Mutex
	err     error
	primary *Viewer
	slaves  []*Viewer
	deleted bool
}

// New creates a viewer that builds tables with engine.
func New(engine core.Engine, opts ...Option) *Viewer {
	v := &Viewer{engine: engine}
	for _, opt := range opts {
		opt(v)
	}
	if v.id == "" {
		v.id = uuid.NewString()
	}
	if v.registry == nil {
		v.registry = plugin.NewDefaultRegistry()
	}
	if v.doc == nil {
		v.doc = DefaultDocument()
	}
	if v.clock == nil {
		v.clock = scheduler.RealClock()
	}
	if v.logger == nil {
		v.logger = core.DefaultLogger()
	}
	v.logger = v.logger.Named("viewer").With(zap.String("viewer", v.id))
	if v.out == nil {
		v.out = io.Discard
	}

	v.ctx, v.cancel = context.WithCancel(core.WithLogger(context.Background(), v.logger, v.id))
	v.store = attrs.NewStore(attrs.WithModes(v.registry.Mode))
	v.store.Set(attrs.ID, v.id)
	v.store.Set(attrs.Settings, "true")
	v.store.Set(attrs.RowPivots, "[]")
	v.store.Set(attrs.ColumnPivots, "[]")
	v.debouncer = scheduler.NewDebouncer(v.clock)
	v.throttle = scheduler.NewThrottle(v.clock, v.throttleInterval, v.onThrottle)
	v.unwatch = v.store.Subscribe(v.onChanges)
	v.doc.add(v)
	return v
}

func (v *Viewer) ID() string { return v.id }

// Store returns the attribute store.
func (v *Viewer) Store() *attrs.Store { return v.store }

// Registry returns the plugin registry.
func (v *Viewer) Registry() *plugin.Registry { return v.registry }

// Err returns the error of the last failed cycle, or nil.
func (v *Viewer) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

func (v *Viewer) setErr(err error) {
	v.mu.Lock()
	v.err = err
	v.mu.Unlock()
}

func (v *Viewer) isDeleted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.deleted
}

// Catalog returns the catalog of the loaded table, or nil.
func (v *Viewer) Catalog() *core.Catalog {
	v.cycleMu.Lock()
	defer v.cycleMu.Unlock()
	return v.catalog
}

// Result returns the outcome of the last resolve.
func (v *Viewer) Result() resolve.Result {
	v.cycleMu.Lock()
	defer v.cycleMu.Unlock()
	return v.result
}

// Spec returns the specification of the installed view.
func (v *Viewer) Spec() (core.ViewSpecification, bool) {
	v.cycleMu.Lock()
	defer v.cycleMu.Unlock()
	if v.life.view == nil {
		return core.ViewSpecification{}, false
	}
	return v.life.spec.Clone(), true
}

// View returns the installed view handle, or nil.
func (v *Viewer) View() core.ViewHandle {
	v.cycleMu.Lock()
	defer v.cycleMu.Unlock()
	return v.life.view
}

func (v *Viewer) onChanges(changes []attrs.Change) {
	// loadTable runs its own cycle after installing a catalog.
	if changes[0].Name == attrs.CatalogLoaded {
		return
	}
	for _, c := range changes {
		if configAttributes[c.Name] {
			v.throttle.Call()
			return
		}
	}
}

func (v *Viewer) onThrottle() {
	if err := v.refresh(v.ctx, true); err != nil {
		core.Warnf(v.ctx, "configuration cycle failed: %v", err)
	}
}

// SetAttribute sets an attribute, applying its cascade.
func (v *Viewer) SetAttribute(name, value string) {
	v.store.Set(name, value)
}

// GetAttribute returns the raw value of an attribute.
func (v *Viewer) GetAttribute(name string) (string, bool) {
	return v.store.Get(name)
}

// RemoveAttribute deletes an attribute.
func (v *Viewer) RemoveAttribute(name string) {
	v.store.Remove(name)
}

// SetFilter applies filter text typed by the user. Valid text is stored in
// the filters attribute; invalid text leaves the view unfiltered and is
// reported through Result().FilterInvalid.
func (v *Viewer) SetFilter(text string) error {
	clauses, err := filter.Parse(text, v.Catalog().Names())
	if err != nil {
		v.store.SetFilterText(text)
		return err
	}
	v.store.Set(attrs.Filters, attrs.EncodeFilters(clauses))
	return nil
}

// ToggleColumn shows or hides a column according to the plugin's select mode.
func (v *Viewer) ToggleColumn(name string, shift bool) error {
	return v.store.ToggleColumn(name, shift)
}

// DropColumn appends a column to row-pivots, column-pivots or sort.
func (v *Viewer) DropColumn(attr, name string) error {
	return v.store.DropColumn(attr, name)
}

// RemoveAt removes an entry from row-pivots, column-pivots or sort.
func (v *Viewer) RemoveAt(attr string, idx int) error {
	return v.store.RemoveAt(attr, idx)
}

// SetAggregate selects the aggregate operator of a column.
func (v *Viewer) SetAggregate(column, op string) error {
	return v.store.SetAggregate(column, op)
}

// Save returns every attribute except the identity.
func (v *Viewer) Save() map[string]string {
	return v.store.Save()
}

// Restore applies saved attributes in canonical order.
func (v *Viewer) Restore(saved map[string]string) {
	v.store.Restore(saved)
}

// ToggleSettings shows or hides the settings panel and lets the plugin
// adapt to the new size.
func (v *Viewer) ToggleSettings(ctx context.Context) error {
	if v.store.Has(attrs.Settings) {
		v.store.Remove(attrs.Settings)
	} else {
		v.store.Set(attrs.Settings, "true")
	}
	return v.NotifyResize(ctx)
}

// Load builds a table from data and loads it into this viewer and every
// slave.
func (v *Viewer) Load(ctx context.Context, data *core.Data) error {
	if v.isDeleted() {
		return ErrViewerDeleted
	}
	index, _ := v.store.Get(attrs.Index)
	handle, err := v.engine.Table(ctx, data, core.TableOptions{Index: index})
	if err != nil {
		engineErr := &EngineError{Op: "table", Err: err}
		v.fail(engineErr)
		return engineErr
	}
	ref := newTableRef(handle)

	v.mu.Lock()
	slaves := slices.Clone(v.slaves)
	v.mu.Unlock()

	var errs error
	for _, slave := range slaves {
		// A slave deleted since the snapshot has released its reference.
		if err := slave.loadTable(ctx, ref.acquire()); !errors.Is(err, ErrViewerDeleted) {
			errs = multierr.Append(errs, err)
		}
	}
	return multierr.Append(v.loadTable(ctx, ref), errs)
}

// Update adds data to the loaded table, or loads it when there is none.
func (v *Viewer) Update(ctx context.Context, data *core.Data) error {
	v.cycleMu.Lock()
	table := v.table
	v.cycleMu.Unlock()
	if table == nil {
		return v.Load(ctx, data)
	}
	if err := table.handle.Update(ctx, data); err != nil {
		return &EngineError{Op: "update", Err: err}
	}
	return nil
}

// loadTable makes ref the viewer's table, taking ownership of the reference.
func (v *Viewer) loadTable(ctx context.Context, ref *tableRef) error {
	if v.isDeleted() {
		return multierr.Append(ErrViewerDeleted, ref.release())
	}

	var (
		columns []string
		schema  map[string]core.ColumnType
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		columns, err = ref.handle.Columns(gctx)
		return err
	})
	g.Go(func() (err error) {
		schema, err = ref.handle.Schema(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		// The installed view, table and catalog stay as they were.
		engineErr := &EngineError{Op: "schema", Err: err}
		v.fail(engineErr)
		return multierr.Append(engineErr, ref.release())
	}
	catalog := core.NewCatalog(columns, schema)

	v.cycleMu.Lock()
	errs := v.life.release()
	if v.table != nil {
		errs = multierr.Append(errs, v.table.release())
	}
	v.table = ref
	v.catalog = catalog
	v.cycleMu.Unlock()

	v.store.Load(catalog)

	core.Infof(v.ctx, "loaded table with %d columns", catalog.Len())
	return multierr.Append(v.refresh(ctx, true), errs)
}

// Copy makes v a slave of primary: it takes the primary's index, shares its
// table and follows every later Load of the primary.
func (v *Viewer) Copy(ctx context.Context, primary *Viewer) error {
	if primary == v {
		return errors.New("viewer cannot copy itself")
	}
	if v.isDeleted() {
		return ErrViewerDeleted
	}
	if index, ok := primary.store.Get(attrs.Index); ok {
		v.store.Set(attrs.Index, index)
	}

	primary.mu.Lock()
	if primary.deleted {
		primary.mu.Unlock()
		return ErrViewerDeleted
	}
	primary.slaves = append(primary.slaves, v)
	primary.mu.Unlock()

	v.mu.Lock()
	v.primary = primary
	v.mu.Unlock()

	primary.cycleMu.Lock()
	table := primary.table
	if table != nil {
		table.acquire()
	}
	primary.cycleMu.Unlock()
	if table == nil {
		return nil
	}
	return v.loadTable(ctx, table)
}

func (v *Viewer) removeSlave(slave *Viewer) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.slaves = slices.DeleteFunc(v.slaves, func(s *Viewer) bool { return s == slave })
}

// Slaves returns the viewers following this one.
func (v *Viewer) Slaves() []*Viewer {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.slaves)
}

// Render runs a cycle now and repaints the view.
func (v *Viewer) Render(ctx context.Context) error {
	return v.refresh(ctx, true)
}

// refresh resolves the attributes, installs a view for the result and
// renders it. Without a table it does nothing.
func (v *Viewer) refresh(ctx context.Context, force bool) error {
	v.cycleMu.Lock()
	defer v.cycleMu.Unlock()

	if v.isDeleted() {
		return ErrViewerDeleted
	}
	if v.table == nil {
		return nil
	}

	result := resolve.Resolve(v.store.Snapshot(), v.catalog)
	v.result = result
	if len(result.Problems) > 0 {
		core.Warnf(ctx, "ignoring malformed attributes: %v", result.Problems)
	}
	if result.FilterInvalid {
		core.Debugf(ctx, "filter rejected: %v", result.FilterError)
	}

	if !v.life.current(v.table, result.Spec) {
		err := v.life.install(ctx, v.table, result.Spec, result.Hidden, v.onViewUpdate)
		var engineErr *EngineError
		if errors.As(err, &engineErr) {
			v.failLocked(ctx, engineErr)
			return engineErr
		}
		if err != nil {
			core.Warnf(ctx, "releasing previous view: %v", err)
		}
	}
	v.setErr(nil)
	renders.WithLabelValues("config").Inc()
	return v.renderLocked(ctx, force)
}

// fail records err and lets the plugin display it.
func (v *Viewer) fail(err error) {
	v.cycleMu.Lock()
	defer v.cycleMu.Unlock()
	v.failLocked(v.ctx, err)
}

func (v *Viewer) failLocked(ctx context.Context, err error) {
	v.setErr(err)
	core.Errorf(ctx, "%v", err)
	if reporter, ok := v.plugin().(plugin.FailureReporter); ok {
		reporter.ReportFailure(v.out, err)
	}
}

// onViewUpdate is called by the engine when the data under the installed
// view changes.
func (v *Viewer) onViewUpdate(gen uint64) {
	if !v.life.isLive(gen) {
		droppedNotifications.Inc()
		return
	}
	renderTime := v.store.Snapshot().RenderTime()
	delay := scheduler.Delay(renderTime, v.doc.LiveViewerCount())
	if !v.debouncer.Trigger(delay, func() { v.renderUpdate(gen) }) {
		droppedNotifications.Inc()
		return
	}
	debounceDelay.Observe(delay.Seconds())
}

func (v *Viewer) renderUpdate(gen uint64) {
	v.cycleMu.Lock()
	defer v.cycleMu.Unlock()
	if v.isDeleted() || v.life.view == nil {
		return
	}
	if !v.life.isLive(gen) {
		droppedNotifications.Inc()
		return
	}
	renders.WithLabelValues("update").Inc()
	if err := v.renderLocked(v.ctx, false); err != nil {
		core.Warnf(v.ctx, "render failed: %v", err)
	}
}

// plugin returns the plugin selected by the view attribute.
func (v *Viewer) plugin() plugin.Plugin {
	name, _ := v.store.Get(attrs.View)
	return v.registry.Lookup(name)
}

func (v *Viewer) renderLocked(ctx context.Context, force bool) error {
	p := v.plugin()
	if p == nil {
		return fmt.Errorf("%w: no plugins registered", plugin.ErrUnknownPlugin)
	}
	if v.active != nil && v.active != p {
		if err := v.active.Delete(); err != nil {
			core.Warnf(ctx, "deleting plugin %s: %v", v.active.Name(), err)
		}
	}
	v.active = p

	start := v.clock.Now()
	if err := p.Create(ctx, v.out, v.life.view, v.life.hidden, force); err != nil {
		return fmt.Errorf("plugin %s: %w", p.Name(), err)
	}
	elapsed := v.clock.Now().Sub(start)
	v.store.Set(attrs.RenderTime, fmt.Sprintf("%.3f", float64(elapsed)/float64(time.Millisecond)))
	return nil
}

// NotifyResize lets a plugin that implements plugin.Resizer adapt to a new
// container size.
func (v *Viewer) NotifyResize(ctx context.Context) error {
	v.cycleMu.Lock()
	defer v.cycleMu.Unlock()
	if v.life.view == nil {
		return nil
	}
	if r, ok := v.plugin().(plugin.Resizer); ok {
		return r.Resize(ctx, v.out)
	}
	return nil
}

// Delete releases the view, this viewer's reference to the table and the
// plugin. Slaves of this viewer keep working; a slave detaches from its
// primary. Calling Delete more than once is a no-op.
func (v *Viewer) Delete() error {
	v.mu.Lock()
	if v.deleted {
		v.mu.Unlock()
		return nil
	}
	v.deleted = true
	primary := v.primary
	v.primary = nil
	v.mu.Unlock()

	if primary != nil {
		primary.removeSlave(v)
	}

	v.throttle.Stop()
	v.debouncer.Cancel()
	v.unwatch()
	v.doc.remove(v)

	v.cycleMu.Lock()
	defer v.cycleMu.Unlock()
	errs := v.life.release()
	if v.table != nil {
		errs = multierr.Append(errs, v.table.release())
		v.table = nil
	}
	if v.active != nil {
		errs = multierr.Append(errs, v.active.Delete())
		v.active = nil
	}
	v.cancel()
	core.Debugf(v.ctx, "viewer deleted")
	return errs
}
