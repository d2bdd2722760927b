package op

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nickyhof/CommitView/core"
)

// Separator joins column pivot values and the aggregate column name.
const Separator = "|"

// Frame is the computed result of a view.
type Frame struct {
	Columns []string
	Rows    [][]any
}

// Compute applies spec to data.
func Compute(data *core.Data, spec core.ViewSpecification) (Frame, error) {
	index := make(map[string]int, len(data.Columns))
	for i, c := range data.Columns {
		index[c] = i
	}
	if err := checkColumns(index, spec); err != nil {
		return Frame{}, err
	}

	rows := Filter(data.Rows, index, spec.Filters)
	if !spec.Pivoted() {
		return project(rows, index, spec), nil
	}
	return pivot(rows, index, spec)
}

func checkColumns(index map[string]int, spec core.ViewSpecification) error {
	names := slices.Concat([]string(spec.RowPivots), []string(spec.ColumnPivots), spec.Columns(), []string(spec.Sort))
	for _, c := range spec.Filters {
		names = append(names, c.Column)
	}
	for _, name := range names {
		if _, ok := index[name]; !ok {
			return fmt.Errorf("%w: %s", core.ErrUnknownColumn, name)
		}
	}
	return nil
}

func project(rows [][]any, index map[string]int, spec core.ViewSpecification) Frame {
	sorted := slices.Clone(rows)
	sortRows(sorted, func(row []any, col string) any { return cell(row, index[col]) }, spec.Sort)

	frame := Frame{Columns: spec.Columns(), Rows: make([][]any, len(sorted))}
	for r, row := range sorted {
		out := make([]any, len(spec.Aggregates))
		for j, agg := range spec.Aggregates {
			out[j] = cell(row, index[agg.Column])
		}
		frame.Rows[r] = out
	}
	return frame
}

type group struct {
	pivots []any
	rows   [][]any
	sortBy map[string]any
}

func pivot(rows [][]any, index map[string]int, spec core.ViewSpecification) (Frame, error) {
	groups := groupBy(rows, index, spec.RowPivots)
	colTuples := distinctTuples(rows, index, spec.ColumnPivots)

	for _, g := range groups {
		g.sortBy = map[string]any{}
		for _, col := range spec.Sort {
			if i := slices.Index(spec.RowPivots, col); i >= 0 {
				g.sortBy[col] = g.pivots[i]
				continue
			}
			agg, ok := spec.Aggregate(col)
			if !ok {
				agg.Op = core.AggAny
			}
			v, err := Aggregate(columnValues(g.rows, index[col]), agg.Op)
			if err != nil {
				return Frame{}, err
			}
			g.sortBy[col] = v
		}
	}
	slices.SortStableFunc(groups, func(a, b *group) int {
		for _, col := range spec.Sort {
			if c := Compare(a.sortBy[col], b.sortBy[col]); c != 0 {
				return c
			}
		}
		return 0
	})

	frame := Frame{Columns: slices.Clone([]string(spec.RowPivots))}
	if len(colTuples) == 0 {
		frame.Columns = append(frame.Columns, spec.Columns()...)
	} else {
		for _, tuple := range colTuples {
			for _, agg := range spec.Aggregates {
				frame.Columns = append(frame.Columns, pivotName(tuple, agg.Column))
			}
		}
	}

	for _, g := range groups {
		out := slices.Clone(g.pivots)
		if len(colTuples) == 0 {
			for _, agg := range spec.Aggregates {
				v, err := Aggregate(columnValues(g.rows, index[agg.Column]), agg.Op)
				if err != nil {
					return Frame{}, err
				}
				out = append(out, v)
			}
		} else {
			byTuple := groupBy(g.rows, index, spec.ColumnPivots)
			members := make(map[string][][]any, len(byTuple))
			for _, sub := range byTuple {
				members[key(sub.pivots)] = sub.rows
			}
			for _, tuple := range colTuples {
				subset := members[key(tuple)]
				for _, agg := range spec.Aggregates {
					if len(subset) == 0 {
						out = append(out, nil)
						continue
					}
					v, err := Aggregate(columnValues(subset, index[agg.Column]), agg.Op)
					if err != nil {
						return Frame{}, err
					}
					out = append(out, v)
				}
			}
		}
		frame.Rows = append(frame.Rows, out)
	}
	return frame, nil
}

// groupBy partitions rows by the values of the pivot columns, in the order
// each tuple first appears. No pivots yields a single group of all rows.
func groupBy(rows [][]any, index map[string]int, pivots core.PivotList) []*group {
	var groups []*group
	byKey := map[string]*group{}
	for _, row := range rows {
		tuple := make([]any, len(pivots))
		for i, p := range pivots {
			tuple[i] = cell(row, index[p])
		}
		k := key(tuple)
		g, ok := byKey[k]
		if !ok {
			g = &group{pivots: tuple}
			byKey[k] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, row)
	}
	if len(groups) == 0 && len(pivots) == 0 {
		groups = append(groups, &group{})
	}
	return groups
}

func distinctTuples(rows [][]any, index map[string]int, pivots core.PivotList) [][]any {
	if len(pivots) == 0 {
		return nil
	}
	var tuples [][]any
	for _, g := range groupBy(rows, index, pivots) {
		tuples = append(tuples, g.pivots)
	}
	return tuples
}

func pivotName(tuple []any, column string) string {
	parts := make([]string, 0, len(tuple)+1)
	for _, v := range tuple {
		parts = append(parts, core.FormatValue(v))
	}
	return strings.Join(append(parts, column), Separator)
}

func columnValues(rows [][]any, i int) []any {
	values := make([]any, len(rows))
	for r, row := range rows {
		values[r] = cell(row, i)
	}
	return values
}

func cell(row []any, i int) any {
	if i < len(row) {
		return row[i]
	}
	return nil
}

// sortRows stably sorts rows ascending by each sort column in turn.
func sortRows(rows [][]any, get func(row []any, col string) any, sort core.PivotList) {
	if len(sort) == 0 {
		return
	}
	slices.SortStableFunc(rows, func(a, b []any) int {
		for _, col := range sort {
			if c := Compare(get(a, col), get(b, col)); c != 0 {
				return c
			}
		}
		return 0
	})
}
