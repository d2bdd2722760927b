// Package memdb is an in-memory implementation of core.Engine.
//
// Tables hold rows in memory with a schema inferred from the loaded data.
// Views are computed with package op when read and recomputed after the
// table changes. Updating a table notifies the listeners of every live view
// of that table, synchronously, on the updating goroutine.
//
//	engine := memdb.New()
//	table, err := engine.Table(ctx, data, core.TableOptions{Index: "id"})
//	view, err := table.View(ctx, spec)
//	cancel := view.OnUpdate(func() { fmt.Println("changed") })
//
// The engine counts created and deleted handles in Stats.
package memdb
