package plugin

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/nickyhof/CommitView/core"
)

// Grid renders views as ASCII tables followed by a row count line. It
// repaints on every render, so force has no effect.
type Grid struct{}

func NewGrid() *Grid { return &Grid{} }

func (g *Grid) Name() string                { return "grid" }
func (g *Grid) SelectMode() core.SelectMode { return core.ToggleMode }
func (g *Grid) Delete() error               { return nil }

func (g *Grid) Create(ctx context.Context, target io.Writer, view core.ViewHandle, hidden []string, force bool) error {
	start := time.Now()
	frame, err := Materialize(ctx, view, hidden)
	if err != nil {
		return err
	}
	if err := newTextTable(frame).render(target); err != nil {
		return err
	}
	_, err = fmt.Fprintf(target, "%d rows (%s)\n", len(frame.Rows), FormatDuration(time.Since(start).Seconds()))
	return err
}

func (g *Grid) ReportFailure(target io.Writer, err error) {
	fmt.Fprintf(target, "error: %v\n", err)
}
