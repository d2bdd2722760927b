package plugin

import (
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/nickyhof/CommitView/core"
)

// textTable lays out cells as a boxed ASCII table.
type textTable struct {
	header []string
	rows   [][]string
}

func newTextTable(frame Frame) *textTable {
	t := &textTable{header: frame.Columns, rows: make([][]string, len(frame.Rows))}
	for i, row := range frame.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = core.FormatValue(v)
		}
		t.rows[i] = cells
	}
	return t
}

func (t *textTable) widths() []int {
	n := len(t.header)
	for _, row := range t.rows {
		n = max(n, len(row))
	}
	widths := make([]int, n)
	measure := func(cells []string) {
		for i, c := range cells {
			widths[i] = max(widths[i], utf8.RuneCountInString(c))
		}
	}
	measure(t.header)
	for _, row := range t.rows {
		measure(row)
	}
	for i := range widths {
		widths[i] = max(widths[i], 1)
	}
	return widths
}

// render writes the table; numbers are right aligned.
func (t *textTable) render(w io.Writer) error {
	if len(t.header) == 0 && len(t.rows) == 0 {
		return nil
	}
	widths := t.widths()

	parts := make([]string, len(widths))
	for i, width := range widths {
		parts[i] = strings.Repeat("-", width+2)
	}
	separator := "+" + strings.Join(parts, "+") + "+"

	var b strings.Builder
	b.WriteString(separator + "\n")
	if len(t.header) > 0 {
		b.WriteString(formatCells(t.header, widths, false) + "\n")
		b.WriteString(separator + "\n")
	}
	for _, row := range t.rows {
		b.WriteString(formatCells(row, widths, true) + "\n")
	}
	b.WriteString(separator + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func formatCells(cells []string, widths []int, alignNumbers bool) string {
	parts := make([]string, len(widths))
	for i, width := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		pad := strings.Repeat(" ", width-utf8.RuneCountInString(cell))
		if alignNumbers && looksNumeric(cell) {
			parts[i] = " " + pad + cell + " "
		} else {
			parts[i] = " " + cell + pad + " "
		}
	}
	return "|" + strings.Join(parts, "|") + "|"
}

func looksNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
