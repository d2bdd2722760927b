package core

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAggregate(t *testing.T) {
	tests := []struct {
		typ  ColumnType
		want string
	}{
		{StringType, "count"},
		{IntegerType, "sum"},
		{FloatType, "sum"},
		{BooleanType, "count"},
		{DateType, "count"},
		{DatetimeType, "count"},
	}
	for _, tt := range tests {
		if got := DefaultAggregate(tt.typ); got != tt.want {
			t.Errorf("DefaultAggregate(%s) = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestNormalizeAggregate(t *testing.T) {
	assert.Equal(t, "count", NormalizeAggregate(StringType, "sum"))
	assert.Equal(t, "dominant", NormalizeAggregate(StringType, "dominant"))
	assert.Equal(t, "sum", NormalizeAggregate(FloatType, ""))
	assert.Equal(t, "median", NormalizeAggregate(IntegerType, "median"))
	assert.Equal(t, "or", NormalizeAggregate(BooleanType, "or"))
	assert.Equal(t, "count", NormalizeAggregate(DateType, "median"))
}

func TestParseColumnType(t *testing.T) {
	for name, want := range map[string]ColumnType{
		"string": StringType, "int": IntegerType, "FLOAT": FloatType,
		"bool": BooleanType, "date": DateType, "timestamp": DatetimeType,
	} {
		got, err := ParseColumnType(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := ParseColumnType("blob")
	assert.Error(t, err)
}

func TestFilterClauseJSON(t *testing.T) {
	clauses := []FilterClause{
		{Column: "price", Operator: ">", Value: NumberValue(10)},
		{Column: "name", Operator: "contains", Value: StringValue("ab")},
	}
	raw, err := json.Marshal(clauses)
	require.NoError(t, err)
	assert.JSONEq(t, `[["price",">",10],["name","contains","ab"]]`, string(raw))

	var decoded []FilterClause
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, clauses, decoded)

	var bad FilterClause
	assert.Error(t, json.Unmarshal([]byte(`["price",">"]`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`["price",">",true]`), &bad))
}

func TestCatalog(t *testing.T) {
	cat := NewCatalog([]string{"name", "qty", "price", "qty"}, map[string]ColumnType{
		"qty":   IntegerType,
		"price": FloatType,
	})
	assert.Equal(t, []string{"name", "qty", "price"}, cat.Names())
	typ, ok := cat.Type("name")
	assert.True(t, ok)
	assert.Equal(t, StringType, typ)

	op, ok := cat.DefaultAggregate("price")
	assert.True(t, ok)
	assert.Equal(t, "sum", op)

	_, ok = cat.DefaultAggregate("missing")
	assert.False(t, ok)

	assert.Equal(t, []AggregateSpec{
		{Column: "name", Op: "count"},
		{Column: "qty", Op: "sum"},
		{Column: "price", Op: "sum"},
	}, cat.DefaultAggregates())

	var empty *Catalog
	assert.Equal(t, 0, empty.Len())
	assert.False(t, empty.Has("name"))
}

func TestViewSpecificationEqual(t *testing.T) {
	a := ViewSpecification{
		RowPivots:  PivotList{"region"},
		Aggregates: []AggregateSpec{{Column: "sales", Op: "sum"}},
		Filters:    []FilterClause{{Column: "sales", Operator: ">", Value: NumberValue(1)}},
		Sort:       PivotList{"sales"},
	}
	b := a.Clone()
	assert.True(t, a.Equal(b))
	b.Aggregates[0].Op = "avg"
	assert.False(t, a.Equal(b))
	assert.Equal(t, "sum", a.Aggregates[0].Op)
}

func TestParseDataJSONRows(t *testing.T) {
	d, err := ParseData(FormatJSON, strings.NewReader(`[
		{"name": "a", "qty": 1, "price": 1.5, "day": "2024-01-02"},
		{"name": "b", "qty": 2, "price": 2, "ok": true}
	]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "qty", "price", "day", "ok"}, d.Columns)
	assert.Equal(t, 2, d.Len())

	schema := InferSchema(d)
	assert.Equal(t, StringType, schema["name"])
	assert.Equal(t, IntegerType, schema["qty"])
	assert.Equal(t, FloatType, schema["price"])
	assert.Equal(t, DateType, schema["day"])
	assert.Equal(t, BooleanType, schema["ok"])
}

func TestParseDataJSONColumns(t *testing.T) {
	d, err := ParseData(FormatJSON, strings.NewReader(`{"z": [1, 2], "a": ["x", "y"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a"}, d.Columns)
	assert.Equal(t, [][]any{{int64(1), "x"}, {int64(2), "y"}}, d.Rows)

	_, err = ParseData(FormatJSON, strings.NewReader(`{"z": [1, 2], "a": ["x"]}`))
	assert.Error(t, err)
}

func TestParseDataCSV(t *testing.T) {
	d, err := ParseData(FormatCSV, strings.NewReader("name,qty,when\na,1,2024-01-02 10:00:00\nb,,2024-01-03 11:30:00\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "qty", "when"}, d.Columns)
	assert.Nil(t, d.Rows[1][1])
	assert.IsType(t, time.Time{}, d.Rows[0][2])

	schema := InferSchema(d)
	assert.Equal(t, IntegerType, schema["qty"])
	assert.Equal(t, DatetimeType, schema["when"])

	_, err = ParseData(FormatCSV, strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyData)
}

func TestInferSchemaWidening(t *testing.T) {
	d := &Data{Columns: []string{"n", "mixed"}, Rows: [][]any{{int64(1), "x"}, {2.5, int64(3)}}}
	schema := InferSchema(d)
	assert.Equal(t, FloatType, schema["n"])
	assert.Equal(t, StringType, schema["mixed"])
}
