package attrs

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/nickyhof/CommitView/core"
)

// Attribute names.
const (
	Columns      = "columns"
	Aggregates   = "aggregates"
	Filters      = "filters"
	Sort         = "sort"
	RowPivots    = "row-pivots"
	ColumnPivots = "column-pivots"
	View         = "view"
	Index        = "index"
	Settings     = "settings"
	RenderTime   = "render_time"
	ID           = "id"
)

// RestoreOrder is the order in which known attributes are applied by a
// restore. Unknown attributes follow, sorted by name.
var RestoreOrder = []string{
	View, Index, Columns, Aggregates, RowPivots, ColumnPivots, Sort, Filters, Settings, RenderTime,
}

// Snapshot is an immutable copy of a store's attributes together with the
// filter text typed by the user.
type Snapshot struct {
	values     map[string]string
	filterText string
	textSet    bool
}

// NewSnapshot builds a snapshot from raw attribute values.
func NewSnapshot(values map[string]string) Snapshot {
	return Snapshot{values: maps.Clone(values)}
}

// WithFilterText returns a copy of s carrying the given filter text.
func (s Snapshot) WithFilterText(text string) Snapshot {
	s.filterText = text
	s.textSet = true
	return s
}

func (s Snapshot) Get(name string) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

func (s Snapshot) Has(name string) bool {
	_, ok := s.values[name]
	return ok
}

// Names returns the attribute names in restore order.
func (s Snapshot) Names() []string {
	return orderNames(slices.Collect(maps.Keys(s.values)))
}

// Values returns a copy of the raw attributes.
func (s Snapshot) Values() map[string]string {
	return maps.Clone(s.values)
}

// FilterText returns the filter text and whether one has been set.
func (s Snapshot) FilterText() (string, bool) {
	return s.filterText, s.textSet
}

// StringList decodes a JSON array of names. A missing attribute is an
// empty list.
func (s Snapshot) StringList(name string) ([]string, error) {
	raw, ok := s.values[name]
	if !ok || raw == "" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("invalid %s attribute: %w", name, err)
	}
	return list, nil
}

// AggregateList decodes the aggregates attribute. Besides the array form it
// accepts an object mapping column names to operators.
func (s Snapshot) AggregateList() ([]core.AggregateSpec, error) {
	raw, ok := s.values[Aggregates]
	if !ok || raw == "" {
		return nil, nil
	}
	return DecodeAggregates(raw)
}

// DecodeAggregates decodes aggregates in array or object form.
func DecodeAggregates(raw string) ([]core.AggregateSpec, error) {
	var list []core.AggregateSpec
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return list, nil
	}
	var byColumn map[string]string
	if err := json.Unmarshal([]byte(raw), &byColumn); err != nil {
		return nil, fmt.Errorf("invalid %s attribute: %w", Aggregates, err)
	}
	for _, column := range slices.Sorted(maps.Keys(byColumn)) {
		list = append(list, core.AggregateSpec{Column: column, Op: byColumn[column]})
	}
	return list, nil
}

// FilterList decodes the filters attribute.
func (s Snapshot) FilterList() ([]core.FilterClause, error) {
	raw, ok := s.values[Filters]
	if !ok || raw == "" {
		return nil, nil
	}
	var clauses []core.FilterClause
	if err := json.Unmarshal([]byte(raw), &clauses); err != nil {
		return nil, fmt.Errorf("invalid %s attribute: %w", Filters, err)
	}
	return clauses, nil
}

func (s Snapshot) View() string  { return s.values[View] }
func (s Snapshot) Index() string { return s.values[Index] }
func (s Snapshot) ID() string    { return s.values[ID] }

// Settings reports whether the settings panel is shown.
func (s Snapshot) Settings() bool {
	return s.Has(Settings)
}

// RenderTime returns the render time estimate in milliseconds. Missing or
// malformed values count as zero.
func (s Snapshot) RenderTime() float64 {
	raw, ok := s.values[RenderTime]
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return f
}

func orderNames(names []string) []string {
	rank := make(map[string]int, len(RestoreOrder))
	for i, n := range RestoreOrder {
		rank[n] = i
	}
	slices.SortFunc(names, func(a, b string) int {
		ra, aKnown := rank[a]
		rb, bKnown := rank[b]
		switch {
		case aKnown && bKnown:
			return ra - rb
		case aKnown:
			return -1
		case bKnown:
			return 1
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	})
	return names
}

// EncodeList renders a name list as an attribute value.
func EncodeList(list []string) string {
	if list == nil {
		list = []string{}
	}
	raw, _ := json.Marshal(list)
	return string(raw)
}

// EncodeAggregates renders aggregates as an attribute value.
func EncodeAggregates(list []core.AggregateSpec) string {
	if list == nil {
		list = []core.AggregateSpec{}
	}
	raw, _ := json.Marshal(list)
	return string(raw)
}

// EncodeFilters renders filter clauses as an attribute value.
func EncodeFilters(clauses []core.FilterClause) string {
	if clauses == nil {
		clauses = []core.FilterClause{}
	}
	raw, _ := json.Marshal(clauses)
	return string(raw)
}
