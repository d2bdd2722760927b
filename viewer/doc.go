// Package viewer keeps a pivoted view of a table in sync with a set of
// configuration attributes.
//
// A Viewer owns an attribute store, the table it has loaded, and exactly one
// live view of that table. Every configuration change runs one cycle:
// the attributes are resolved into a ViewSpecification, a new view is
// requested from the engine, the previous view is released, and the
// selected plugin renders the result. Cycles of one viewer never overlap.
//
// # Scheduling
//
// Configuration changes are throttled to one cycle per 10ms; the first
// change in a quiet period runs immediately. Data updates on the engine
// side arm a single debounce timer whose delay grows with the last render
// time and the number of live viewers in the Document; notifications that
// arrive while it is pending are dropped.
//
// # Slaves
//
// A viewer can mirror another one with Copy. The slave shares the primary's
// table and follows every later Load, while keeping its own attributes and
// view. Tables are reference counted, so whichever of them is deleted last
// releases the table.
//
// # Usage
//
//	v := viewer.New(memdb.New(), viewer.WithOutput(os.Stdout))
//	defer v.Delete()
//	if err := v.Load(ctx, data); err != nil {
//	    return err
//	}
//	v.SetAttribute(attrs.RowPivots, `["region"]`)
package viewer
