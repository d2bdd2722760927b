package memdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickyhof/CommitView/core"
)

func data() *core.Data {
	return &core.Data{
		Columns: []string{"id", "name", "qty"},
		Rows: [][]any{
			{int64(1), "a", int64(10)},
			{int64(2), "b", int64(20)},
		},
	}
}

var qtySpec = core.ViewSpecification{
	Aggregates: []core.AggregateSpec{{Column: "name", Op: "count"}, {Column: "qty", Op: "sum"}},
}

func TestTableSchema(t *testing.T) {
	ctx := context.Background()
	table, err := New().Table(ctx, data(), core.TableOptions{})
	require.NoError(t, err)

	cols, err := table.Columns(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "qty"}, cols)

	schema, err := table.Schema(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.IntegerType, schema["id"])
	assert.Equal(t, core.StringType, schema["name"])
}

func TestTableRejectsUnknownIndex(t *testing.T) {
	_, err := New().Table(context.Background(), data(), core.TableOptions{Index: "nope"})
	assert.ErrorIs(t, err, core.ErrUnknownColumn)

	_, err = New().Table(context.Background(), &core.Data{}, core.TableOptions{})
	assert.ErrorIs(t, err, core.ErrEmptyData)
}

func TestUpdateAppendsAndNotifies(t *testing.T) {
	ctx := context.Background()
	table, err := New().Table(ctx, data(), core.TableOptions{})
	require.NoError(t, err)

	view, err := table.View(ctx, qtySpec)
	require.NoError(t, err)

	calls := 0
	cancel := view.OnUpdate(func() { calls++ })

	err = table.Update(ctx, &core.Data{Columns: []string{"qty", "name"}, Rows: [][]any{{int64(5), "c"}}})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	rows, err := view.Rows(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"a", int64(10)}, {"b", int64(20)}, {"c", int64(5)}}, rows)

	cancel()
	require.NoError(t, table.Update(ctx, data()))
	assert.Equal(t, 1, calls)
}

func TestUpdateUpsertsByIndex(t *testing.T) {
	ctx := context.Background()
	table, err := New().Table(ctx, data(), core.TableOptions{Index: "id"})
	require.NoError(t, err)

	err = table.Update(ctx, &core.Data{
		Columns: []string{"id", "name", "qty"},
		Rows:    [][]any{{int64(2), "b", int64(99)}, {int64(3), "c", int64(1)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, table.(*Table).Size())

	view, err := table.View(ctx, core.ViewSpecification{
		Aggregates: []core.AggregateSpec{{Column: "qty", Op: "sum"}},
		Sort:       core.PivotList{"qty"},
	})
	require.NoError(t, err)
	rows, err := view.Rows(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(1)}, {int64(10)}, {int64(99)}}, rows)
}

func TestViewErrors(t *testing.T) {
	ctx := context.Background()
	engine := New()
	table, err := engine.Table(ctx, data(), core.TableOptions{})
	require.NoError(t, err)

	_, err = table.View(ctx, core.ViewSpecification{RowPivots: core.PivotList{"ghost"}})
	assert.ErrorIs(t, err, core.ErrUnknownColumn)
	assert.Equal(t, int64(0), engine.Stats().ViewsCreated)
}

func TestDeleteIsIdempotentAndCounted(t *testing.T) {
	ctx := context.Background()
	engine := New()
	table, err := engine.Table(ctx, data(), core.TableOptions{})
	require.NoError(t, err)

	view, err := table.View(ctx, qtySpec)
	require.NoError(t, err)
	assert.Equal(t, int64(1), engine.Stats().LiveViews())

	require.NoError(t, view.Delete())
	require.NoError(t, view.Delete())
	assert.Equal(t, int64(0), engine.Stats().LiveViews())
	assert.Equal(t, int64(1), engine.Stats().ViewsDeleted)

	_, err = view.Rows(ctx)
	assert.ErrorIs(t, err, core.ErrDeleted)

	require.NoError(t, table.Delete())
	require.NoError(t, table.Delete())
	assert.Equal(t, int64(1), engine.Stats().TablesDeleted)

	_, err = table.Columns(ctx)
	assert.ErrorIs(t, err, core.ErrDeleted)
	assert.ErrorIs(t, table.Update(ctx, data()), core.ErrDeleted)
}
