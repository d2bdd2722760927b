package op

import (
	"strings"

	"github.com/nickyhof/CommitView/core"
)

// Match reports whether a value satisfies a filter clause.
func Match(v any, clause core.FilterClause) bool {
	if v == nil {
		return false
	}

	var target any = clause.Value.Str
	if clause.Value.IsNum {
		target = clause.Value.Num
	}

	switch clause.Operator {
	case core.FilterEquals:
		return Compare(v, target) == 0
	case core.FilterNotEquals:
		return Compare(v, target) != 0
	case core.FilterLessThan:
		return Compare(v, target) < 0
	case core.FilterGreaterThan:
		return Compare(v, target) > 0
	case core.FilterLessOrEqual:
		return Compare(v, target) <= 0
	case core.FilterGreaterOrEqual:
		return Compare(v, target) >= 0
	case core.FilterContains:
		return strings.Contains(core.FormatValue(v), clause.Value.String())
	case core.FilterStartsWith:
		return strings.HasPrefix(core.FormatValue(v), clause.Value.String())
	case core.FilterEndsWith:
		return strings.HasSuffix(core.FormatValue(v), clause.Value.String())
	default:
		return false
	}
}

// Filter returns the rows matching every clause. columns maps a column name
// to its index within a row.
func Filter(rows [][]any, columns map[string]int, clauses []core.FilterClause) [][]any {
	if len(clauses) == 0 {
		return rows
	}
	out := make([][]any, 0, len(rows))
	for _, row := range rows {
		keep := true
		for _, c := range clauses {
			i, ok := columns[c.Column]
			if !ok || i >= len(row) || !Match(row[i], c) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, row)
		}
	}
	return out
}
