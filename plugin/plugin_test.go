package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickyhof/CommitView/core"
)

type staticView struct {
	columns []string
	rows    [][]any
	err     error
}

func (v *staticView) OnUpdate(fn func()) func() { return func() {} }
func (v *staticView) Columns(ctx context.Context) ([]string, error) {
	return v.columns, v.err
}
func (v *staticView) Rows(ctx context.Context) ([][]any, error) { return v.rows, v.err }
func (v *staticView) Delete() error                             { return nil }

func salesView() *staticView {
	return &staticView{
		columns: []string{"region", "sales", "qty"},
		rows: [][]any{
			{"east", 12.5, int64(3)},
			{"west", 50.0, int64(1)},
		},
	}
}

func TestRegistry(t *testing.T) {
	r := NewDefaultRegistry()
	assert.Equal(t, []string{"grid", "json", "bars"}, r.Names())
	assert.Equal(t, "grid", r.Default().Name())

	p, err := r.Get("json")
	require.NoError(t, err)
	assert.Equal(t, "json", p.Name())

	_, err = r.Get("nope")
	assert.True(t, errors.Is(err, ErrUnknownPlugin))

	assert.Equal(t, core.SelectOneMode, r.Mode("bars"))
	assert.Equal(t, core.ToggleMode, r.Mode("nope"))

	r.Register(NewGrid())
	assert.Len(t, r.Names(), 3)
}

func TestEmptyRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Default())
	assert.Nil(t, r.Lookup("grid"))
	assert.Equal(t, core.ToggleMode, r.Mode("grid"))
}

func TestMaterializeDropsHidden(t *testing.T) {
	view := &staticView{
		columns: []string{"a|sales", "a|qty", "b|sales", "b|qty"},
		rows:    [][]any{{1, 2, 3, 4}},
	}
	frame, err := Materialize(context.Background(), view, []string{"qty"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a|sales", "b|sales"}, frame.Columns)
	assert.Equal(t, [][]any{{1, 3}}, frame.Rows)
}

func TestMaterializeError(t *testing.T) {
	_, err := Materialize(context.Background(), &staticView{err: core.ErrDeleted}, nil)
	assert.ErrorIs(t, err, core.ErrDeleted)
}

func TestGridCreate(t *testing.T) {
	var buf bytes.Buffer
	err := NewGrid().Create(context.Background(), &buf, salesView(), []string{"qty"}, true)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "+--------+-------+", lines[0])
	assert.Equal(t, "| region | sales |", lines[1])
	assert.Equal(t, "| east   |  12.5 |", lines[3])
	assert.Equal(t, "| west   |    50 |", lines[4])
	assert.True(t, strings.HasPrefix(lines[6], "2 rows ("))
}

func TestJSONCreate(t *testing.T) {
	var buf bytes.Buffer
	err := NewJSON().Create(context.Background(), &buf, salesView(), nil, false)
	require.NoError(t, err)

	var msg struct {
		Success bool   `json:"success"`
		Type    string `json:"type"`
		Result  struct {
			Columns []string `json:"columns"`
			Rows    [][]any  `json:"rows"`
			Force   bool     `json:"force"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &msg))
	assert.True(t, msg.Success)
	assert.Equal(t, "view", msg.Type)
	assert.Equal(t, []string{"region", "sales", "qty"}, msg.Result.Columns)
	assert.Len(t, msg.Result.Rows, 2)
	assert.False(t, msg.Result.Force)
}

func TestJSONReportFailure(t *testing.T) {
	var buf bytes.Buffer
	NewJSON().ReportFailure(&buf, errors.New("boom"))
	assert.JSONEq(t, `{"success":false,"type":"view","error":"boom"}`, buf.String())
}

func TestBarsCreate(t *testing.T) {
	var buf bytes.Buffer
	err := NewBars().Create(context.Background(), &buf, salesView(), []string{"qty"}, true)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "sales", lines[0])
	assert.Equal(t, "east | "+strings.Repeat("#", 10)+" 12.5", lines[1])
	assert.Equal(t, "west | "+strings.Repeat("#", 40)+" 50", lines[2])
}

func TestFormatDuration(t *testing.T) {
	tests := map[float64]string{
		0.0001: "<1ms",
		0.005:  "5.0ms",
		0.25:   "250ms",
		2.5:    "2.5s",
		42:     "42s",
		120:    "2m",
		125:    "2m5s",
	}
	for secs, want := range tests {
		assert.Equal(t, want, FormatDuration(secs), "secs=%v", secs)
	}
}
