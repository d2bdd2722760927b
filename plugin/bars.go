package plugin

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/nickyhof/CommitView/core"
)

const barWidth = 40

// Bars draws a horizontal bar per row for the first numeric column. Rows
// are labelled by the first non-numeric column. It charts one series, so
// selecting a column shows only that column.
type Bars struct{}

func NewBars() *Bars { return &Bars{} }

func (b *Bars) Name() string                { return "bars" }
func (b *Bars) SelectMode() core.SelectMode { return core.SelectOneMode }
func (b *Bars) Delete() error               { return nil }

func (b *Bars) Create(ctx context.Context, target io.Writer, view core.ViewHandle, hidden []string, force bool) error {
	frame, err := Materialize(ctx, view, hidden)
	if err != nil {
		return err
	}

	value, label := -1, -1
	for i := range frame.Columns {
		numeric := columnIsNumeric(frame, i)
		if numeric && value < 0 {
			value = i
		} else if !numeric && label < 0 {
			label = i
		}
	}
	if value < 0 {
		_, err := fmt.Fprintln(target, "no numeric column to chart")
		return err
	}

	labels := make([]string, len(frame.Rows))
	values := make([]float64, len(frame.Rows))
	labelWidth, peak := 0, 0.0
	for r, row := range frame.Rows {
		if label >= 0 {
			labels[r] = core.FormatValue(row[label])
		} else {
			labels[r] = fmt.Sprint(r + 1)
		}
		values[r], _ = toFloat(row[value])
		labelWidth = max(labelWidth, utf8.RuneCountInString(labels[r]))
		peak = max(peak, math.Abs(values[r]))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", frame.Columns[value])
	for r := range frame.Rows {
		n := 0
		if peak > 0 {
			n = int(math.Round(math.Abs(values[r]) / peak * barWidth))
		}
		pad := strings.Repeat(" ", labelWidth-utf8.RuneCountInString(labels[r]))
		fmt.Fprintf(&sb, "%s%s | %s %s\n", labels[r], pad, strings.Repeat("#", n), core.FormatValue(frame.Rows[r][value]))
	}
	_, err = io.WriteString(target, sb.String())
	return err
}

func columnIsNumeric(frame Frame, col int) bool {
	seen := false
	for _, row := range frame.Rows {
		if row[col] == nil {
			continue
		}
		if _, ok := toFloat(row[col]); !ok {
			return false
		}
		seen = true
	}
	return seen
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}
