// Package op implements view computation over in-memory rows.
//
// The operators here are pure functions. Compute applies a
// ViewSpecification to a dataset: rows are filtered, then either projected
// onto the aggregate columns and sorted, or grouped by the row pivots and
// reduced with each column's aggregate operator.
//
// # Pivoting
//
// With row pivots the frame has one row per distinct pivot tuple, in the
// order the tuples first appear, then stably sorted by the sort columns.
// The header starts with the row pivot names followed by the aggregate
// columns. With column pivots every aggregate column is repeated once per
// distinct column pivot tuple and named by joining the tuple values and the
// column name with "|":
//
//	region | 2023|sales | 2024|sales
//
// # Comparison
//
// Values compare numerically when both are numbers, chronologically when
// both are dates or timestamps, and by their text otherwise. nil sorts
// first and never matches a filter.
package op
