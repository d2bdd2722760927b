package plugin

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/nickyhof/CommitView/core"
)

// PivotSeparator joins column pivot values and the aggregate column name in
// the header of a column-pivoted view.
const PivotSeparator = "|"

// Frame is a materialized view with hidden columns removed.
type Frame struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Materialize reads a view and drops hidden columns.
func Materialize(ctx context.Context, view core.ViewHandle, hidden []string) (Frame, error) {
	columns, err := view.Columns(ctx)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to read view columns: %w", err)
	}
	rows, err := view.Rows(ctx)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to read view rows: %w", err)
	}

	keep := make([]int, 0, len(columns))
	frame := Frame{Columns: make([]string, 0, len(columns))}
	for i, c := range columns {
		if isHidden(c, hidden) {
			continue
		}
		keep = append(keep, i)
		frame.Columns = append(frame.Columns, c)
	}
	frame.Rows = make([][]any, len(rows))
	for r, row := range rows {
		out := make([]any, len(keep))
		for j, i := range keep {
			if i < len(row) {
				out[j] = row[i]
			}
		}
		frame.Rows[r] = out
	}
	return frame, nil
}

// isHidden matches plain names and the trailing segment of column pivot
// headers.
func isHidden(column string, hidden []string) bool {
	if slices.Contains(hidden, column) {
		return true
	}
	if i := strings.LastIndex(column, PivotSeparator); i >= 0 {
		return slices.Contains(hidden, column[i+len(PivotSeparator):])
	}
	return false
}

// FormatDuration formats a duration in seconds in human-readable form.
func FormatDuration(secs float64) string {
	if secs < 0.001 {
		return "<1ms"
	} else if secs < 1 {
		ms := secs * 1000
		if ms < 10 {
			return fmt.Sprintf("%.1fms", ms)
		}
		return fmt.Sprintf("%dms", int(ms))
	} else if secs < 60 {
		if secs < 10 {
			return fmt.Sprintf("%.1fs", secs)
		}
		return fmt.Sprintf("%ds", int(secs))
	}
	mins := int(secs / 60)
	remainSecs := int(secs) % 60
	if remainSecs == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dm%ds", mins, remainSecs)
}
