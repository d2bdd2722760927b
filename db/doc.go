// Package db implements core.Engine on DuckDB.
//
// Tables are DuckDB tables created from parsed datasets. Views are SQL
// queries generated from a view specification by BuildQuery and evaluated
// on every read, so they always reflect the latest update.
//
// # Engine Usage
//
//	engine, err := db.Open("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//
//	table, _ := engine.Table(ctx, data, core.TableOptions{Index: "id"})
//	view, _ := table.View(ctx, spec)
//	rows, _ := view.Rows(ctx)
//
// # Sources
//
// OpenSource and LoadData read datasets from local paths (through an
// afero filesystem), file://, http(s):// and s3:// URLs.
package db
