package resolve

import (
	"fmt"

	"github.com/nickyhof/CommitView/attrs"
	"github.com/nickyhof/CommitView/core"
	"github.com/nickyhof/CommitView/filter"
)

// Result is the outcome of resolving a snapshot.
type Result struct {
	Spec core.ViewSpecification
	// Hidden lists aggregate columns present only for sorting.
	Hidden []string
	// FilterInvalid is set when the filter expression was rejected.
	FilterInvalid bool
	// FilterError describes why the filter expression was rejected.
	FilterError error
	// Problems lists the attributes whose values could not be decoded.
	Problems []string
}

// Resolve computes the view specification for a snapshot. Identical inputs
// always produce identical results.
func Resolve(snap attrs.Snapshot, catalog *core.Catalog) Result {
	var r Result

	rowPivots := r.pivots(snap, attrs.RowPivots, catalog)
	columnPivots := r.pivots(snap, attrs.ColumnPivots, catalog)
	if len(rowPivots) == 0 && len(columnPivots) > 0 {
		rowPivots, columnPivots = columnPivots, nil
	}
	r.Spec.RowPivots = rowPivots
	r.Spec.ColumnPivots = columnPivots

	r.Spec.Aggregates = r.visibleAggregates(snap, catalog)

	sort := r.pivots(snap, attrs.Sort, catalog)
	r.Spec.Sort = sort
	for _, name := range sort {
		if _, ok := r.Spec.Aggregate(name); ok {
			continue
		}
		op, _ := catalog.DefaultAggregate(name)
		r.Spec.Aggregates = append(r.Spec.Aggregates, core.AggregateSpec{Column: name, Op: op})
		r.Hidden = append(r.Hidden, name)
	}

	r.Spec.Filters = r.filters(snap, catalog)
	return r
}

func (r *Result) problem(name string) {
	r.Problems = append(r.Problems, name)
}

// pivots decodes a column list, dropping names the catalog does not know
// and repeated names.
func (r *Result) pivots(snap attrs.Snapshot, name string, catalog *core.Catalog) core.PivotList {
	list, err := snap.StringList(name)
	if err != nil {
		r.problem(name)
		return core.PivotList{}
	}
	pivots := make(core.PivotList, 0, len(list))
	for _, col := range list {
		if !catalog.Has(col) || pivots.Contains(col) {
			continue
		}
		pivots = append(pivots, col)
	}
	return pivots
}

// visibleAggregates returns one aggregate per visible column, in display
// order, with its persisted operator when valid for the column type.
func (r *Result) visibleAggregates(snap attrs.Snapshot, catalog *core.Catalog) []core.AggregateSpec {
	visible := r.pivots(snap, attrs.Columns, catalog)

	persisted, err := snap.AggregateList()
	if err != nil {
		r.problem(attrs.Aggregates)
	}
	ops := make(map[string]string, len(persisted))
	for _, agg := range persisted {
		if _, seen := ops[agg.Column]; !seen {
			ops[agg.Column] = agg.Op
		}
	}

	aggregates := make([]core.AggregateSpec, 0, len(visible))
	for _, name := range visible {
		typ, _ := catalog.Type(name)
		aggregates = append(aggregates, core.AggregateSpec{
			Column: name,
			Op:     core.NormalizeAggregate(typ, ops[name]),
		})
	}
	return aggregates
}

func (r *Result) filters(snap attrs.Snapshot, catalog *core.Catalog) []core.FilterClause {
	if text, ok := snap.FilterText(); ok {
		clauses, err := filter.Parse(text, catalog.Names())
		if err != nil {
			r.FilterInvalid = true
			r.FilterError = err
			return []core.FilterClause{}
		}
		return clauses
	}

	clauses, err := snap.FilterList()
	if err != nil {
		r.problem(attrs.Filters)
		r.FilterInvalid = true
		r.FilterError = err
		return []core.FilterClause{}
	}
	valid := make([]core.FilterClause, 0, len(clauses))
	for _, c := range clauses {
		var err error
		switch {
		case !catalog.Has(c.Column):
			err = fmt.Errorf("%w: %s", filter.ErrUnknownColumn, c.Column)
		case !core.IsFilterOperator(c.Operator):
			err = fmt.Errorf("%w: %q", filter.ErrUnknownOperator, c.Operator)
		}
		if err != nil {
			r.FilterInvalid = true
			r.FilterError = err
			return []core.FilterClause{}
		}
		valid = append(valid, c)
	}
	return valid
}
