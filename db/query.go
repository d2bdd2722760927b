package db

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nickyhof/CommitView/core"
)

// PivotSeparator joins column pivot values and the aggregate column name in
// generated column names.
const PivotSeparator = "|"

// rowOrder is DuckDB's insertion order pseudo-column.
const rowOrder = "rowid"

// Query is generated SQL for a view together with its output header.
type Query struct {
	SQL     string
	Columns []string
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// literal renders v as a SQL constant.
func literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case core.Date:
		return "DATE '" + x.String() + "'"
	case time.Time:
		return "TIMESTAMP '" + x.Format("2006-01-02 15:04:05.999999") + "'"
	default:
		return literal(fmt.Sprint(x))
	}
}

func sqlType(t core.ColumnType) string {
	switch t {
	case core.IntegerType:
		return "BIGINT"
	case core.FloatType:
		return "DOUBLE"
	case core.BooleanType:
		return "BOOLEAN"
	case core.DateType:
		return "DATE"
	case core.DatetimeType:
		return "TIMESTAMP"
	default:
		return "VARCHAR"
	}
}

// equals matches a column against a value, treating NULL as a value.
func equals(column string, v any) string {
	if v == nil {
		return quoteIdent(column) + " IS NULL"
	}
	return quoteIdent(column) + " = " + literal(v)
}

// timeLayouts are the layouts a filter value may use on temporal columns.
var timeLayouts = []string{core.DateLayout, time.RFC3339, core.DatetimeLayout}

// filterOperands returns the column expression and constant a comparison
// uses for a column of type typ. A value that does not fit the type is
// compared with the column's text, so no value can fail a cast.
func filterOperands(c core.FilterClause, typ core.ColumnType) (col, value string) {
	col = quoteIdent(c.Column)
	switch typ {
	case core.StringType:
		return col, literal(c.Value.String())
	case core.IntegerType, core.FloatType:
		if c.Value.IsNum {
			return col, literal(c.Value.Num)
		}
	case core.DateType, core.DatetimeType:
		if !c.Value.IsNum {
			for _, layout := range timeLayouts {
				if t, err := time.Parse(layout, c.Value.Str); err == nil {
					return col, literal(t.UTC())
				}
			}
		}
	}
	return "CAST(" + col + " AS VARCHAR)", literal(c.Value.String())
}

func filterCondition(c core.FilterClause, typ core.ColumnType) (string, error) {
	col, value := filterOperands(c, typ)
	text := "CAST(" + quoteIdent(c.Column) + " AS VARCHAR)"
	switch c.Operator {
	case core.FilterEquals:
		return col + " = " + value, nil
	case core.FilterNotEquals:
		return col + " <> " + value, nil
	case core.FilterLessThan, core.FilterGreaterThan, core.FilterLessOrEqual, core.FilterGreaterOrEqual:
		return col + " " + c.Operator + " " + value, nil
	case core.FilterContains:
		return "contains(" + text + ", " + literal(c.Value.String()) + ")", nil
	case core.FilterStartsWith:
		return "starts_with(" + text + ", " + literal(c.Value.String()) + ")", nil
	case core.FilterEndsWith:
		return "suffix(" + text + ", " + literal(c.Value.String()) + ")", nil
	default:
		return "", fmt.Errorf("unsupported filter operator %q", c.Operator)
	}
}

// whereClause combines the filters; the column must be non-null for a
// clause to match.
func whereClause(schema map[string]core.ColumnType, filters []core.FilterClause) (string, error) {
	if len(filters) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		cond, err := filterCondition(f, schema[f.Column])
		if err != nil {
			return "", err
		}
		parts = append(parts, "("+quoteIdent(f.Column)+" IS NOT NULL AND "+cond+")")
	}
	return " WHERE " + strings.Join(parts, " AND "), nil
}

// aggregateExpr renders op over column, restricted to rows matching cond
// when cond is not empty.
func aggregateExpr(column, op string, typ core.ColumnType, cond string) (string, error) {
	col := quoteIdent(column)
	filter := func(extra string) string {
		conds := slices.DeleteFunc([]string{cond, extra}, func(s string) bool { return s == "" })
		if len(conds) == 0 {
			return ""
		}
		return " FILTER (WHERE " + strings.Join(conds, " AND ") + ")"
	}
	notNull := col + " IS NOT NULL"

	switch op {
	case core.AggCount:
		return "count(*)" + filter(""), nil
	case core.AggDistinctCount:
		return "count(DISTINCT " + col + ")" + filter(""), nil
	case core.AggAny, core.AggFirst:
		return "first(" + col + " ORDER BY " + rowOrder + ")" + filter(notNull), nil
	case core.AggLast:
		return "last(" + col + " ORDER BY " + rowOrder + ")" + filter(notNull), nil
	case core.AggUnique:
		return "CASE WHEN count(DISTINCT " + col + ")" + filter("") + " = 1 THEN min(" + col + ")" + filter("") + " END", nil
	case core.AggDominant:
		return "mode(" + col + ")" + filter(""), nil
	case core.AggSum:
		cast := "DOUBLE"
		if typ == core.IntegerType {
			cast = "BIGINT"
		}
		return "CAST(coalesce(sum(" + col + ")" + filter("") + ", 0) AS " + cast + ")", nil
	case core.AggAvg, core.AggMean:
		return "avg(" + col + ")" + filter(""), nil
	case core.AggMedian:
		return "CAST(median(" + col + ")" + filter("") + " AS DOUBLE)", nil
	case core.AggHigh:
		return "max(" + col + ")" + filter(""), nil
	case core.AggLow:
		return "min(" + col + ")" + filter(""), nil
	case core.AggAnd:
		return "coalesce(bool_and(" + col + ")" + filter("") + ", TRUE)", nil
	case core.AggOr:
		return "coalesce(bool_or(" + col + ")" + filter("") + ", FALSE)", nil
	default:
		return "", fmt.Errorf("unknown aggregate %q", op)
	}
}

func pivotName(tuple []any, column string) string {
	parts := make([]string, 0, len(tuple)+1)
	for _, v := range tuple {
		parts = append(parts, core.FormatValue(v))
	}
	return strings.Join(append(parts, column), PivotSeparator)
}

func checkColumns(schema map[string]core.ColumnType, spec core.ViewSpecification) error {
	names := slices.Concat([]string(spec.RowPivots), []string(spec.ColumnPivots), spec.Columns(), []string(spec.Sort))
	for _, c := range spec.Filters {
		names = append(names, c.Column)
	}
	for _, name := range names {
		if _, ok := schema[name]; !ok {
			return fmt.Errorf("%w: %s", core.ErrUnknownColumn, name)
		}
	}
	return nil
}

// TuplesQuery returns the SQL listing the distinct column pivot tuples of
// the filtered table in first-seen order.
func TuplesQuery(table string, schema map[string]core.ColumnType, spec core.ViewSpecification) (string, error) {
	where, err := whereClause(schema, spec.Filters)
	if err != nil {
		return "", err
	}
	cols := make([]string, len(spec.ColumnPivots))
	for i, c := range spec.ColumnPivots {
		cols[i] = quoteIdent(c)
	}
	list := strings.Join(cols, ", ")
	return fmt.Sprintf("SELECT %s FROM %s%s GROUP BY %s ORDER BY min(%s)",
		list, quoteIdent(table), where, list, rowOrder), nil
}

// BuildQuery generates the SQL of a view over table. Result rows may carry
// trailing columns beyond Query.Columns, which readers drop. tuples are the
// distinct column pivot tuples, as returned by TuplesQuery.
//
// Without pivots the query returns the filtered rows restricted to the
// aggregate columns, sorted by the sort columns and then by insertion
// order. With pivots it returns one row per row-pivot tuple; column pivots
// expand every aggregate into one column per tuple, named v1|v2|column.
func BuildQuery(table string, schema map[string]core.ColumnType, spec core.ViewSpecification, tuples [][]any) (Query, error) {
	if err := checkColumns(schema, spec); err != nil {
		return Query{}, err
	}
	where, err := whereClause(schema, spec.Filters)
	if err != nil {
		return Query{}, err
	}
	from := " FROM " + quoteIdent(table) + where

	if !spec.Pivoted() {
		cols := spec.Columns()
		selects := make([]string, len(cols))
		for i, c := range cols {
			selects[i] = quoteIdent(c)
		}
		order := make([]string, 0, len(spec.Sort)+1)
		for _, c := range spec.Sort {
			order = append(order, quoteIdent(c)+" ASC NULLS FIRST")
		}
		order = append(order, rowOrder)
		if len(selects) == 0 {
			selects = []string{rowOrder}
		}
		sql := "SELECT " + strings.Join(selects, ", ") + from + " ORDER BY " + strings.Join(order, ", ")
		return Query{SQL: sql, Columns: cols}, nil
	}

	var (
		selects []string
		header  = slices.Clone([]string(spec.RowPivots))
	)
	for _, p := range spec.RowPivots {
		selects = append(selects, quoteIdent(p))
	}
	if len(spec.ColumnPivots) == 0 || len(tuples) == 0 {
		for _, agg := range spec.Aggregates {
			expr, err := aggregateExpr(agg.Column, agg.Op, schema[agg.Column], "")
			if err != nil {
				return Query{}, err
			}
			selects = append(selects, expr+" AS "+quoteIdent(agg.Column))
			header = append(header, agg.Column)
		}
	} else {
		for _, tuple := range tuples {
			conds := make([]string, len(spec.ColumnPivots))
			for i, p := range spec.ColumnPivots {
				conds[i] = equals(p, tuple[i])
			}
			cond := strings.Join(conds, " AND ")
			for _, agg := range spec.Aggregates {
				expr, err := aggregateExpr(agg.Column, agg.Op, schema[agg.Column], cond)
				if err != nil {
					return Query{}, err
				}
				name := pivotName(tuple, agg.Column)
				// A tuple absent from a group leaves its cells empty.
				selects = append(selects, "CASE WHEN count(*) FILTER (WHERE "+cond+") = 0 THEN NULL ELSE "+expr+" END AS "+quoteIdent(name))
				header = append(header, name)
			}
		}
	}
	if len(selects) == 0 {
		selects = []string{"count(*)"}
	}

	sql := "SELECT " + strings.Join(selects, ", ") + from
	if len(spec.RowPivots) == 0 {
		return Query{SQL: sql, Columns: header}, nil
	}

	groups := make([]string, len(spec.RowPivots))
	for i, p := range spec.RowPivots {
		groups[i] = quoteIdent(p)
	}
	order := make([]string, 0, len(spec.Sort)+1)
	for _, c := range spec.Sort {
		if spec.RowPivots.Contains(c) {
			order = append(order, quoteIdent(c)+" ASC NULLS FIRST")
			continue
		}
		op := core.AggAny
		if agg, ok := spec.Aggregate(c); ok {
			op = agg.Op
		}
		expr, err := aggregateExpr(c, op, schema[c], "")
		if err != nil {
			return Query{}, err
		}
		order = append(order, expr+" ASC NULLS FIRST")
	}
	order = append(order, "min("+rowOrder+")")
	sql += " GROUP BY " + strings.Join(groups, ", ") + " ORDER BY " + strings.Join(order, ", ")
	return Query{SQL: sql, Columns: header}, nil
}
