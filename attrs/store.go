package attrs

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/nickyhof/CommitView/core"
	"github.com/nickyhof/CommitView/filter"
)

// Change names that are not attributes and are never saved.
const (
	// FilterText is emitted when the filter text is edited.
	FilterText = "filter-text"
	// CatalogLoaded opens the changes made by Load.
	CatalogLoaded = "catalog"
)

var (
	ErrNotList    = errors.New("attribute is not a column list")
	ErrIndexRange = errors.New("index out of range")
	ErrInvalidOp  = errors.New("invalid aggregate operator")
)

// Change describes one mutation of the store.
type Change struct {
	Name    string
	Value   string
	Removed bool
}

// ModeFunc returns the select mode of the named view.
type ModeFunc func(view string) core.SelectMode

type Option func(*Store)

// WithModes sets the lookup used to find the select mode of a view.
func WithModes(fn ModeFunc) Option {
	return func(s *Store) { s.modes = fn }
}

// Store is the attribute store of one viewer. It is safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	values     map[string]string
	filterText string
	textSet    bool
	catalog    *core.Catalog
	modes      ModeFunc

	listenerMu sync.Mutex
	listeners  map[int]func([]Change)
	nextID     int
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		values:    map[string]string{},
		listeners: map[int]func([]Change){},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn for every mutation. fn receives the changes of one
// mutation, cascades included, in the order they were made. The returned
// function removes it.
func (s *Store) Subscribe(fn func([]Change)) (cancel func()) {
	s.listenerMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenerMu.Unlock()

	return func() {
		s.listenerMu.Lock()
		delete(s.listeners, id)
		s.listenerMu.Unlock()
	}
}

func (s *Store) notify(changes []Change) {
	if len(changes) == 0 {
		return
	}
	s.listenerMu.Lock()
	ids := slices.Sorted(maps.Keys(s.listeners))
	fns := make([]func([]Change), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.listenerMu.Unlock()

	for _, fn := range fns {
		fn(slices.Clone(changes))
	}
}

// tx collects the changes made while the store lock is held.
type tx struct {
	s       *Store
	changes []Change
}

func (s *Store) begin() *tx {
	s.mu.Lock()
	return &tx{s: s}
}

func (t *tx) commit() {
	t.s.mu.Unlock()
	t.s.notify(t.changes)
}

func (t *tx) set(name, value string) {
	t.s.values[name] = value
	t.changes = append(t.changes, Change{Name: name, Value: value})
	t.cascade(name, value)
}

func (t *tx) remove(name string) {
	if _, ok := t.s.values[name]; !ok {
		return
	}
	delete(t.s.values, name)
	t.changes = append(t.changes, Change{Name: name, Removed: true})
}

func (t *tx) cascade(name, value string) {
	s := t.s
	switch name {
	case View:
		if s.catalog.Len() == 0 {
			return
		}
		names := s.catalog.Names()
		if s.modeLocked(value) == core.SelectOneMode {
			names = names[:1]
		}
		t.set(Columns, EncodeList(names))
	case Filters:
		// The attribute supersedes any typed text. The formatted text is
		// for display only and never resolved in place of the clauses.
		s.textSet = false
		clauses, err := NewSnapshot(map[string]string{Filters: value}).FilterList()
		if err != nil {
			return
		}
		s.filterText = filter.Format(clauses)
		t.changes = append(t.changes, Change{Name: FilterText, Value: s.filterText})
	}
}

// Get returns the raw value of an attribute.
func (s *Store) Get(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[name]
	return v, ok
}

func (s *Store) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Set stores an attribute and applies its cascade.
func (s *Store) Set(name, value string) {
	t := s.begin()
	t.set(name, value)
	t.commit()
}

// Remove deletes an attribute.
func (s *Store) Remove(name string) {
	t := s.begin()
	t.remove(name)
	t.commit()
}

// SetFilterText records the filter text typed by the user.
func (s *Store) SetFilterText(text string) {
	t := s.begin()
	s.filterText = text
	s.textSet = true
	t.changes = append(t.changes, Change{Name: FilterText, Value: text})
	t.commit()
}

// FilterText returns the current filter text, typed or formatted from the
// filters attribute.
func (s *Store) FilterText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterText
}

// Snapshot returns an immutable copy of the store.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := NewSnapshot(s.values)
	if s.textSet {
		snap = snap.WithFilterText(s.filterText)
	}
	return snap
}

// Catalog returns the catalog of the loaded table, or nil.
func (s *Store) Catalog() *core.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog
}

// Mode returns the select mode of the current view.
func (s *Store) Mode() core.SelectMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modeLocked(s.values[View])
}

func (s *Store) modeLocked(view string) core.SelectMode {
	if s.modes == nil {
		return core.ToggleMode
	}
	if mode := s.modes(view); mode != "" {
		return mode
	}
	return core.ToggleMode
}

// Load installs the catalog of a newly loaded table. Missing columns default
// to every catalog column and missing aggregates to the catalog defaults.
// Persisted aggregates are normalized against the catalog and written back.
func (s *Store) Load(catalog *core.Catalog) {
	t := s.begin()
	defer t.commit()

	s.catalog = catalog
	t.changes = append(t.changes, Change{Name: CatalogLoaded})
	if _, ok := s.values[Columns]; !ok {
		t.set(Columns, EncodeList(catalog.Names()))
	}

	aggregates := catalog.DefaultAggregates()
	if raw, ok := s.values[Aggregates]; ok {
		if persisted, err := DecodeAggregates(raw); err == nil {
			aggregates = persisted
			for i, agg := range aggregates {
				if typ, known := catalog.Type(agg.Column); known {
					aggregates[i].Op = core.NormalizeAggregate(typ, agg.Op)
				}
			}
		}
	}
	t.set(Aggregates, EncodeAggregates(aggregates))
}

func (s *Store) listLocked(name string) []string {
	list, err := NewSnapshot(map[string]string{name: s.values[name]}).StringList(name)
	if err != nil {
		return nil
	}
	return list
}

// VisibleCount returns the number of visible columns.
func (s *Store) VisibleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listLocked(Columns))
}

// ToggleColumn changes the visibility of a column. In select mode the
// column becomes the only visible one; in toggle mode it is shown or
// hidden. shift inverts the mode for this click.
func (s *Store) ToggleColumn(name string, shift bool) error {
	t := s.begin()
	defer t.commit()

	if s.catalog.Len() > 0 && !s.catalog.Has(name) {
		return fmt.Errorf("%w: %s", core.ErrUnknownColumn, name)
	}
	selectOne := s.modeLocked(s.values[View]) == core.SelectOneMode
	visible := s.listLocked(Columns)

	switch {
	case selectOne != shift:
		visible = []string{name}
	case slices.Contains(visible, name):
		visible = slices.DeleteFunc(visible, func(c string) bool { return c == name })
	default:
		visible = append(visible, name)
	}
	t.set(Columns, EncodeList(visible))
	return nil
}

func isPivotList(attr string) bool {
	return attr == RowPivots || attr == ColumnPivots || attr == Sort
}

// DropColumn moves a column to the end of a pivot or sort list. In toggle
// mode a column dropped onto a pivot list is also hidden, as long as another
// column stays visible.
func (s *Store) DropColumn(attr, name string) error {
	if !isPivotList(attr) {
		return fmt.Errorf("%w: %s", ErrNotList, attr)
	}
	t := s.begin()
	defer t.commit()

	if s.catalog.Len() > 0 && !s.catalog.Has(name) {
		return fmt.Errorf("%w: %s", core.ErrUnknownColumn, name)
	}
	list := slices.DeleteFunc(s.listLocked(attr), func(c string) bool { return c == name })
	t.set(attr, EncodeList(append(list, name)))

	visible := s.listLocked(Columns)
	if s.modeLocked(s.values[View]) == core.ToggleMode && len(visible) > 1 && attr != Sort {
		if slices.Contains(visible, name) {
			visible = slices.DeleteFunc(visible, func(c string) bool { return c == name })
			t.set(Columns, EncodeList(visible))
		}
	}
	return nil
}

// RemoveAt removes the idx-th entry of a pivot or sort list.
func (s *Store) RemoveAt(attr string, idx int) error {
	if !isPivotList(attr) {
		return fmt.Errorf("%w: %s", ErrNotList, attr)
	}
	t := s.begin()
	defer t.commit()

	list := s.listLocked(attr)
	if idx < 0 || idx >= len(list) {
		return fmt.Errorf("%w: %d", ErrIndexRange, idx)
	}
	t.set(attr, EncodeList(slices.Delete(list, idx, idx+1)))
	return nil
}

// SetAggregate selects the aggregate operator of a column.
func (s *Store) SetAggregate(column, op string) error {
	t := s.begin()
	defer t.commit()

	if s.catalog.Len() > 0 {
		typ, ok := s.catalog.Type(column)
		if !ok {
			return fmt.Errorf("%w: %s", core.ErrUnknownColumn, column)
		}
		if !core.ValidAggregate(typ, op) {
			return fmt.Errorf("%w: %q for %s column %s", ErrInvalidOp, op, typ, column)
		}
	}

	aggregates, _ := DecodeAggregates(s.values[Aggregates])
	found := false
	for i := range aggregates {
		if aggregates[i].Column == column {
			aggregates[i].Op = op
			found = true
		}
	}
	if !found {
		aggregates = append(aggregates, core.AggregateSpec{Column: column, Op: op})
	}
	t.set(Aggregates, EncodeAggregates(aggregates))
	return nil
}

// Save returns every attribute except the identity.
func (s *Store) Save() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := maps.Clone(s.values)
	delete(saved, ID)
	return saved
}

// Restore applies saved attributes in RestoreOrder with the same cascades
// as Set, as a single mutation. The identity is never restored.
func (s *Store) Restore(saved map[string]string) {
	t := s.begin()
	defer t.commit()
	for _, name := range orderNames(slices.Collect(maps.Keys(saved))) {
		if name == ID {
			continue
		}
		t.set(name, saved[name])
	}
}
