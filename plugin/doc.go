// Package plugin renders views.
//
// A Plugin paints a ViewHandle onto an io.Writer. Plugins are registered by
// name in a Registry; the viewer's "view" attribute selects one. Each plugin
// declares a select mode that decides how clicking a column changes the
// visible set.
//
// Three plugins are built in:
//   - grid: an ASCII table, for terminals
//   - json: one JSON object per render, for network clients
//   - bars: a horizontal bar chart of one numeric column
//
// # Usage
//
//	registry := plugin.NewDefaultRegistry()
//	p, err := registry.Get("grid")
//	if err != nil {
//	    return err
//	}
//	err = p.Create(ctx, os.Stdout, view, hidden, true)
//
// Plugins may also implement Resizer, to react to container size changes,
// and FailureReporter, to show engine errors in place of a view.
package plugin
