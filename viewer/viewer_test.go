package viewer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickyhof/CommitView/attrs"
	"github.com/nickyhof/CommitView/core"
	"github.com/nickyhof/CommitView/memdb"
	"github.com/nickyhof/CommitView/plugin"
	"github.com/nickyhof/CommitView/scheduler"
)

func sales() *core.Data {
	return &core.Data{
		Columns: []string{"region", "product", "qty", "price"},
		Rows: [][]any{
			{"north", "apple", int64(3), 1.5},
			{"south", "apple", int64(5), 1.25},
			{"north", "pear", int64(2), 2.0},
		},
	}
}

type fixture struct {
	engine *memdb.Engine
	clock  *scheduler.ManualClock
	doc    *Document
}

func newFixture() *fixture {
	return &fixture{
		engine: memdb.New(),
		clock:  scheduler.NewManualClock(time.Unix(0, 0)),
		doc:    NewDocument(),
	}
}

func (f *fixture) viewer(out *bytes.Buffer, opts ...Option) *Viewer {
	base := []Option{WithClock(f.clock), WithDocument(f.doc)}
	if out != nil {
		base = append(base, WithOutput(out))
	}
	return New(f.engine, append(base, opts...)...)
}

func messages(t *testing.T, out *bytes.Buffer) []plugin.Message {
	t.Helper()
	var msgs []plugin.Message
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var msg plugin.Message
		require.NoError(t, json.Unmarshal([]byte(line), &msg))
		msgs = append(msgs, msg)
	}
	return msgs
}

func TestLoadInstallsDefaultView(t *testing.T) {
	f := newFixture()
	v := f.viewer(nil)
	defer v.Delete()

	require.NoError(t, v.Load(context.Background(), sales()))
	require.NoError(t, v.Err())

	spec, ok := v.Spec()
	require.True(t, ok)
	assert.Equal(t, []core.AggregateSpec{
		{Column: "region", Op: core.AggCount},
		{Column: "product", Op: core.AggCount},
		{Column: "qty", Op: core.AggSum},
		{Column: "price", Op: core.AggSum},
	}, spec.Aggregates)
	assert.Equal(t, int64(1), f.engine.Stats().LiveViews())

	columns, _ := v.GetAttribute(attrs.Columns)
	assert.Equal(t, `["region","product","qty","price"]`, columns)
}

func TestOneLiveViewAcrossInstalls(t *testing.T) {
	f := newFixture()
	v := f.viewer(nil)
	ctx := context.Background()
	require.NoError(t, v.Load(ctx, sales()))

	for _, col := range []string{"qty", "price", "region", "product"} {
		v.SetAttribute(attrs.Sort, attrs.EncodeList([]string{col}))
		require.NoError(t, v.Render(ctx))
		assert.Equal(t, int64(1), f.engine.Stats().LiveViews())
	}
	stats := f.engine.Stats()
	assert.Equal(t, int64(5), stats.ViewsCreated)
	assert.Equal(t, int64(4), stats.ViewsDeleted)

	// An unchanged specification keeps the installed view.
	require.NoError(t, v.Render(ctx))
	assert.Equal(t, int64(5), f.engine.Stats().ViewsCreated)

	require.NoError(t, v.Delete())
	require.NoError(t, v.Delete())
	stats = f.engine.Stats()
	assert.Equal(t, int64(0), stats.LiveViews())
	assert.Equal(t, int64(0), stats.LiveTables())
	assert.Equal(t, 0, f.doc.LiveViewerCount())
}

func TestThrottledConfigCycle(t *testing.T) {
	f := newFixture()
	v := f.viewer(nil)
	defer v.Delete()
	require.NoError(t, v.Load(context.Background(), sales()))

	v.SetAttribute(attrs.RowPivots, `["region"]`)
	v.SetAttribute(attrs.RowPivots, `["product"]`)
	f.clock.Advance(scheduler.DefaultInterval)

	spec, ok := v.Spec()
	require.True(t, ok)
	assert.Equal(t, core.PivotList{"product"}, spec.RowPivots)
}

type failingEngine struct {
	*memdb.Engine
	fail       *atomic.Bool
	failSchema *atomic.Bool
}

func (e failingEngine) Table(ctx context.Context, data *core.Data, opts core.TableOptions) (core.TableHandle, error) {
	table, err := e.Engine.Table(ctx, data, opts)
	if err != nil {
		return nil, err
	}
	return failingTable{TableHandle: table, fail: e.fail, failSchema: e.failSchema}, nil
}

type failingTable struct {
	core.TableHandle
	fail       *atomic.Bool
	failSchema *atomic.Bool
}

func (t failingTable) Schema(ctx context.Context) (map[string]core.ColumnType, error) {
	if t.failSchema != nil && t.failSchema.Load() {
		return nil, errors.New("schema unavailable")
	}
	return t.TableHandle.Schema(ctx)
}

func (t failingTable) View(ctx context.Context, spec core.ViewSpecification) (core.ViewHandle, error) {
	if t.fail.Load() {
		return nil, errors.New("engine unavailable")
	}
	return t.TableHandle.View(ctx, spec)
}

func TestEngineFailureKeepsPreviousView(t *testing.T) {
	f := newFixture()
	fail := &atomic.Bool{}
	out := &bytes.Buffer{}
	v := New(failingEngine{Engine: f.engine, fail: fail},
		WithClock(f.clock), WithDocument(f.doc), WithOutput(out))
	defer v.Delete()
	ctx := context.Background()

	v.SetAttribute(attrs.View, "json")
	require.NoError(t, v.Load(ctx, sales()))
	before := v.View()
	require.NotNil(t, before)

	fail.Store(true)
	v.SetAttribute(attrs.Sort, `["qty"]`)
	err := v.Render(ctx)
	var engineErr *EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, "view", engineErr.Op)
	assert.Same(t, before, v.View())
	assert.Error(t, v.Err())
	assert.Equal(t, int64(1), f.engine.Stats().LiveViews())

	msgs := messages(t, out)
	assert.False(t, msgs[len(msgs)-1].Success)

	fail.Store(false)
	require.NoError(t, v.Render(ctx))
	assert.NoError(t, v.Err())
	spec, _ := v.Spec()
	assert.Equal(t, core.PivotList{"qty"}, spec.Sort)
}

func TestSchemaFailureKeepsPreviousTable(t *testing.T) {
	f := newFixture()
	failSchema := &atomic.Bool{}
	v := New(failingEngine{Engine: f.engine, fail: &atomic.Bool{}, failSchema: failSchema},
		WithClock(f.clock), WithDocument(f.doc))
	defer v.Delete()
	ctx := context.Background()

	require.NoError(t, v.Load(ctx, sales()))
	before := v.View()
	require.NotNil(t, before)

	failSchema.Store(true)
	err := v.Load(ctx, &core.Data{
		Columns: []string{"product", "stock"},
		Rows:    [][]any{{"apple", int64(7)}},
	})
	var engineErr *EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, "schema", engineErr.Op)
	assert.Same(t, before, v.View())
	assert.Equal(t, []string{"region", "product", "qty", "price"}, v.Catalog().Names())
	assert.Equal(t, int64(1), f.engine.Stats().LiveTables())
	assert.Equal(t, int64(1), f.engine.Stats().LiveViews())

	// later cycles still resolve against the table that is installed
	failSchema.Store(false)
	v.SetAttribute(attrs.Sort, `["qty"]`)
	require.NoError(t, v.Render(ctx))
	spec, _ := v.Spec()
	assert.Equal(t, core.PivotList{"qty"}, spec.Sort)
}

func TestConfigEditDuringRenderRunsCycle(t *testing.T) {
	f := newFixture()
	v := f.viewer(nil)
	defer v.Delete()
	require.NoError(t, v.Load(context.Background(), sales()))

	var once atomic.Bool
	cancel := v.Store().Subscribe(func(changes []attrs.Change) {
		if changes[0].Name != attrs.RenderTime || !once.CompareAndSwap(false, true) {
			return
		}
		done := make(chan struct{})
		go func() {
			defer close(done)
			v.SetAttribute(attrs.Sort, `["qty"]`)
		}()
		<-done
	})
	defer cancel()

	v.SetAttribute(attrs.RowPivots, `["region"]`)
	require.True(t, once.Load())
	sort, _ := v.GetAttribute(attrs.Sort)
	assert.Equal(t, `["qty"]`, sort)

	f.clock.Advance(scheduler.DefaultInterval)
	spec, ok := v.Spec()
	require.True(t, ok)
	assert.Equal(t, core.PivotList{"region"}, spec.RowPivots)
	assert.Equal(t, core.PivotList{"qty"}, spec.Sort)
}

func TestSlaveIsolation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	primary := f.viewer(nil)
	primary.SetAttribute(attrs.Index, "product")
	require.NoError(t, primary.Load(ctx, sales()))

	slave := f.viewer(nil)
	require.NoError(t, slave.Copy(ctx, primary))
	index, _ := slave.GetAttribute(attrs.Index)
	assert.Equal(t, "product", index)
	assert.Len(t, primary.Slaves(), 1)

	slave.SetAttribute(attrs.RowPivots, `["region"]`)
	require.NoError(t, slave.Render(ctx))

	pspec, _ := primary.Spec()
	sspec, _ := slave.Spec()
	assert.Empty(t, pspec.RowPivots)
	assert.Equal(t, core.PivotList{"region"}, sspec.RowPivots)
	assert.Equal(t, int64(2), f.engine.Stats().LiveViews())

	// A new load on the primary reaches the slave.
	require.NoError(t, primary.Load(ctx, &core.Data{
		Columns: []string{"product", "stock"},
		Rows:    [][]any{{"apple", int64(7)}},
	}))
	assert.Equal(t, []string{"product", "stock"}, slave.Catalog().Names())
	assert.Equal(t, int64(1), f.engine.Stats().LiveTables())

	require.NoError(t, slave.Delete())
	assert.Empty(t, primary.Slaves())
	assert.Equal(t, int64(1), f.engine.Stats().LiveTables())

	require.NoError(t, primary.Delete())
	assert.Equal(t, int64(0), f.engine.Stats().LiveTables())
}

func TestDeletingPrimaryKeepsSlave(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	primary := f.viewer(nil)
	require.NoError(t, primary.Load(ctx, sales()))
	slave := f.viewer(nil)
	require.NoError(t, slave.Copy(ctx, primary))

	require.NoError(t, primary.Delete())
	assert.Equal(t, int64(1), f.engine.Stats().LiveTables())
	require.NoError(t, slave.Render(ctx))
	require.NoError(t, slave.Delete())
	assert.Equal(t, int64(0), f.engine.Stats().LiveTables())
}

func TestDebouncedDataUpdate(t *testing.T) {
	f := newFixture()
	out := &bytes.Buffer{}
	v := f.viewer(out)
	defer v.Delete()
	ctx := context.Background()

	v.SetAttribute(attrs.View, "json")
	require.NoError(t, v.Load(ctx, sales()))
	require.Len(t, messages(t, out), 1)

	v.SetAttribute(attrs.RenderTime, "300")
	more := &core.Data{Columns: []string{"region", "product", "qty", "price"}, Rows: [][]any{{"east", "fig", int64(1), 3.0}}}
	require.NoError(t, v.Update(ctx, more))
	require.NoError(t, v.Update(ctx, more))
	assert.Equal(t, 1, f.clock.Pending())

	f.clock.Advance(599 * time.Millisecond)
	assert.Len(t, messages(t, out), 1)

	f.clock.Advance(time.Millisecond)
	msgs := messages(t, out)
	require.Len(t, msgs, 2)
	result := msgs[1].Result.(map[string]any)
	assert.Equal(t, false, result["force"])
}

func TestUpdateFromReplacedViewIsDropped(t *testing.T) {
	f := newFixture()
	out := &bytes.Buffer{}
	v := f.viewer(out)
	defer v.Delete()
	ctx := context.Background()

	v.SetAttribute(attrs.View, "json")
	require.NoError(t, v.Load(ctx, sales()))
	v.SetAttribute(attrs.RenderTime, "100")
	require.NoError(t, v.Update(ctx, sales()))

	v.SetAttribute(attrs.Sort, `["qty"]`)
	require.NoError(t, v.Render(ctx))
	f.clock.Advance(scheduler.DefaultInterval)
	count := len(messages(t, out))

	f.clock.Advance(scheduler.MaxDelay)
	assert.Len(t, messages(t, out), count)
}

func TestSaveRestore(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	v := f.viewer(nil)
	defer v.Delete()
	require.NoError(t, v.Load(ctx, sales()))

	require.NoError(t, v.DropColumn(attrs.RowPivots, "region"))
	require.NoError(t, v.SetAggregate("price", core.AggAvg))
	require.NoError(t, v.SetFilter("qty > 2"))
	saved := v.Save()
	assert.NotContains(t, saved, attrs.ID)

	other := f.viewer(nil)
	defer other.Delete()
	require.NoError(t, other.Load(ctx, sales()))
	other.Restore(saved)
	require.NoError(t, other.Render(ctx))

	spec, _ := other.Spec()
	assert.Equal(t, core.PivotList{"region"}, spec.RowPivots)
	price, ok := spec.Aggregate("price")
	require.True(t, ok)
	assert.Equal(t, core.AggAvg, price.Op)
	require.Len(t, spec.Filters, 1)
	assert.Equal(t, "qty", spec.Filters[0].Column)
	assert.NotEqual(t, v.ID(), other.ID())
}

func TestInvalidFilterIsReported(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	v := f.viewer(nil)
	defer v.Delete()
	require.NoError(t, v.Load(ctx, sales()))

	err := v.SetFilter("qty 5")
	assert.Error(t, err)
	require.NoError(t, v.Render(ctx))
	assert.True(t, v.Result().FilterInvalid)
	spec, _ := v.Spec()
	assert.Empty(t, spec.Filters)
}

func TestDeletedViewerRejectsLoad(t *testing.T) {
	f := newFixture()
	v := f.viewer(nil)
	require.NoError(t, v.Delete())
	assert.ErrorIs(t, v.Load(context.Background(), sales()), ErrViewerDeleted)
}
