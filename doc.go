// Package CommitView keeps pivoted, filtered and sorted views over tabular
// datasets in sync with a string attribute configuration.
//
// A viewer owns a set of attributes (columns, aggregates, filters, sort,
// row-pivots, column-pivots, view). Every change is resolved into a view
// specification, a view is built by the data engine, and the active plugin
// renders it. Data updates re-render after a debounce proportional to the
// last render time. Layouts are saved to a Git-backed store, so every saved
// configuration has history.
//
// # Quick Start
//
//	instance := CommitView.Open(memdb.New(), nil)
//	v := instance.NewViewer(viewer.WithOutput(os.Stdout))
//	defer v.Delete()
//
//	data, _ := instance.LoadData(ctx, "sales.csv")
//	v.Load(ctx, data)
//	v.SetAttribute("row-pivots", `["region"]`)
//	v.SetFilter("qty > 10")
//
// # Engines
//
// Two engines implement core.Engine:
//   - memdb: in-memory tables computed with the op row operators
//   - db: DuckDB tables queried with generated SQL
//
// # Layouts
//
//	txn, _ := instance.SaveLayout(v, "by-region")
//	instance.RestoreLayout(ctx, other, "by-region", txn.Id)
package CommitView
