package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickyhof/CommitView/core"
)

var querySchema = map[string]core.ColumnType{
	"region": core.StringType,
	"qty":    core.IntegerType,
	"price":  core.FloatType,
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{"o'neil", "'o''neil'"},
		{int64(3), "3"},
		{2.5, "2.5"},
		{true, "TRUE"},
		{core.Date(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)), "DATE '2024-01-02'"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, literal(tt.in), "literal(%v)", tt.in)
	}
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"a""b"`, quoteIdent(`a"b`))
}

func TestBuildQueryProjection(t *testing.T) {
	spec := core.ViewSpecification{
		Aggregates: []core.AggregateSpec{{Column: "region", Op: core.AggCount}, {Column: "qty", Op: core.AggSum}},
		Filters:    []core.FilterClause{{Column: "qty", Operator: core.FilterGreaterThan, Value: core.NumberValue(2)}},
		Sort:       core.PivotList{"qty"},
	}
	q, err := BuildQuery("t", querySchema, spec, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "qty"}, q.Columns)
	assert.Equal(t,
		`SELECT "region", "qty" FROM "t" WHERE ("qty" IS NOT NULL AND "qty" > 2) ORDER BY "qty" ASC NULLS FIRST, rowid`,
		q.SQL)
}

func TestBuildQueryRowPivot(t *testing.T) {
	spec := core.ViewSpecification{
		RowPivots:  core.PivotList{"region"},
		Aggregates: []core.AggregateSpec{{Column: "qty", Op: core.AggSum}},
		Sort:       core.PivotList{"qty"},
	}
	q, err := BuildQuery("t", querySchema, spec, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "qty"}, q.Columns)
	assert.Equal(t,
		`SELECT "region", CAST(coalesce(sum("qty"), 0) AS BIGINT) AS "qty" FROM "t" GROUP BY "region" `+
			`ORDER BY CAST(coalesce(sum("qty"), 0) AS BIGINT) ASC NULLS FIRST, min(rowid)`,
		q.SQL)
}

func TestBuildQueryColumnPivotHeader(t *testing.T) {
	spec := core.ViewSpecification{
		RowPivots:    core.PivotList{"region"},
		ColumnPivots: core.PivotList{"qty"},
		Aggregates:   []core.AggregateSpec{{Column: "price", Op: core.AggHigh}},
	}
	q, err := BuildQuery("t", querySchema, spec, [][]any{{int64(1)}, {nil}})
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "1|price", "|price"}, q.Columns)
	assert.Contains(t, q.SQL, `max("price") FILTER (WHERE "qty" = 1)`)
	assert.Contains(t, q.SQL, `FILTER (WHERE "qty" IS NULL)`)
}

func TestBuildQueryUnknownColumn(t *testing.T) {
	spec := core.ViewSpecification{Aggregates: []core.AggregateSpec{{Column: "missing", Op: core.AggCount}}}
	_, err := BuildQuery("t", querySchema, spec, nil)
	assert.ErrorIs(t, err, core.ErrUnknownColumn)
}

func TestFilterConditions(t *testing.T) {
	tests := []struct {
		clause core.FilterClause
		want   string
	}{
		{core.FilterClause{Column: "region", Operator: core.FilterEquals, Value: core.StringValue("north")}, `"region" = 'north'`},
		{core.FilterClause{Column: "region", Operator: core.FilterNotEquals, Value: core.StringValue("north")}, `"region" <> 'north'`},
		{core.FilterClause{Column: "region", Operator: core.FilterContains, Value: core.StringValue("or")}, `contains(CAST("region" AS VARCHAR), 'or')`},
		{core.FilterClause{Column: "region", Operator: core.FilterStartsWith, Value: core.StringValue("n")}, `starts_with(CAST("region" AS VARCHAR), 'n')`},
		{core.FilterClause{Column: "region", Operator: core.FilterEndsWith, Value: core.StringValue("h")}, `suffix(CAST("region" AS VARCHAR), 'h')`},
	}
	for _, tt := range tests {
		got, err := filterCondition(tt.clause, core.StringType)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestFilterConditionsFollowColumnType(t *testing.T) {
	tests := []struct {
		name   string
		clause core.FilterClause
		typ    core.ColumnType
		want   string
	}{
		{"number on string", core.FilterClause{Column: "zip", Operator: core.FilterEquals, Value: core.NumberValue(10)}, core.StringType, `"zip" = '10'`},
		{"number on integer", core.FilterClause{Column: "qty", Operator: core.FilterGreaterThan, Value: core.NumberValue(2)}, core.IntegerType, `"qty" > 2`},
		{"text on integer", core.FilterClause{Column: "qty", Operator: core.FilterEquals, Value: core.StringValue("many")}, core.IntegerType, `CAST("qty" AS VARCHAR) = 'many'`},
		{"date text on date", core.FilterClause{Column: "day", Operator: core.FilterLessThan, Value: core.StringValue("2024-03-01")}, core.DateType, `"day" < TIMESTAMP '2024-03-01 00:00:00'`},
		{"number on boolean", core.FilterClause{Column: "ok", Operator: core.FilterNotEquals, Value: core.NumberValue(1)}, core.BooleanType, `CAST("ok" AS VARCHAR) <> '1'`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := filterCondition(tt.clause, tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
