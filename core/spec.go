package core

import "slices"

// PivotList is an ordered list of column names used as grouping keys.
type PivotList []string

// Contains reports whether name is one of the pivots.
func (p PivotList) Contains(name string) bool {
	return slices.Contains(p, name)
}

// ViewSpecification is the fully resolved description handed to an engine
// when a view is built. It is derived from attributes and never persisted.
type ViewSpecification struct {
	RowPivots    PivotList       `json:"row_pivots"`
	ColumnPivots PivotList       `json:"column_pivots"`
	Aggregates   []AggregateSpec `json:"aggregates"`
	Filters      []FilterClause  `json:"filter"`
	Sort         PivotList       `json:"sort"`
}

// Aggregate returns the aggregate for column, if present.
func (s ViewSpecification) Aggregate(column string) (AggregateSpec, bool) {
	for _, a := range s.Aggregates {
		if a.Column == column {
			return a, true
		}
	}
	return AggregateSpec{}, false
}

// Columns returns the aggregate column names in order.
func (s ViewSpecification) Columns() []string {
	names := make([]string, len(s.Aggregates))
	for i, a := range s.Aggregates {
		names[i] = a.Column
	}
	return names
}

// Pivoted reports whether the view groups rows.
func (s ViewSpecification) Pivoted() bool {
	return len(s.RowPivots) > 0 || len(s.ColumnPivots) > 0
}

// Clone returns a deep copy.
func (s ViewSpecification) Clone() ViewSpecification {
	return ViewSpecification{
		RowPivots:    slices.Clone(s.RowPivots),
		ColumnPivots: slices.Clone(s.ColumnPivots),
		Aggregates:   slices.Clone(s.Aggregates),
		Filters:      slices.Clone(s.Filters),
		Sort:         slices.Clone(s.Sort),
	}
}

// Equal reports whether two specifications describe the same view.
func (s ViewSpecification) Equal(o ViewSpecification) bool {
	return slices.Equal(s.RowPivots, o.RowPivots) &&
		slices.Equal(s.ColumnPivots, o.ColumnPivots) &&
		slices.Equal(s.Aggregates, o.Aggregates) &&
		slices.Equal(s.Filters, o.Filters) &&
		slices.Equal(s.Sort, o.Sort)
}

// SelectMode controls how clicking a column changes the visible set.
type SelectMode string

const (
	// ToggleMode flips the clicked column in and out of the visible set.
	ToggleMode SelectMode = "toggle"
	// SelectOneMode shows only the clicked column.
	SelectOneMode SelectMode = "select"
)
