// Package resolve derives a ViewSpecification from a viewer's attributes.
//
// Resolve is a pure function of an attribute snapshot and the column
// catalog of the loaded table. It never fails: malformed attributes fall
// back to safe values and are reported in Result.Problems, and an invalid
// filter expression produces no filters and sets Result.FilterInvalid.
//
//	result := resolve.Resolve(store.Snapshot(), catalog)
//	view, err := table.View(ctx, result.Spec)
//
// Columns added only so the engine can sort by them are listed in
// Result.Hidden and must not be rendered.
package resolve
