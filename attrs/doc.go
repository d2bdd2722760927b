// Package attrs holds the persisted configuration of a viewer.
//
// Every attribute is a string, usually JSON, exactly as it is saved and
// restored. The Store keeps overlapping attributes consistent: setting
// "view" resets the visible columns, setting "filters" rewrites the filter
// text, loading a table fills in missing columns and aggregates. Each
// mutation, including the ones a cascade performs, is delivered to
// subscribers as one batch of Changes after the store lock is released.
//
// # Attributes
//
//	columns        JSON array of visible column names, in display order
//	aggregates     JSON array of {"column", "op"} objects
//	filters        JSON array of [column, operator, value] triples
//	sort           JSON array of column names
//	row-pivots     JSON array of column names
//	column-pivots  JSON array of column names
//	view           plugin name
//	index          key column of the loaded table
//	settings       present while the settings panel is shown
//	render_time    render time estimate in milliseconds
//	id             viewer identity, never saved
//
// # Usage
//
//	store := attrs.NewStore()
//	cancel := store.Subscribe(func(changes []attrs.Change) {
//	    for _, c := range changes {
//	        fmt.Println(c.Name, c.Value)
//	    }
//	})
//	defer cancel()
//	store.Set(attrs.RowPivots, `["region"]`)
//	pivots, err := store.Snapshot().StringList(attrs.RowPivots)
package attrs
