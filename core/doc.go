// Package core provides core types used throughout CommitView.
//
// The package defines the column model (Column, ColumnType, Catalog), the
// view model (AggregateSpec, FilterClause, PivotList, ViewSpecification),
// the data engine contract (Engine, TableHandle, ViewHandle) and the
// Identity used to author saved layouts.
//
// # Column Types
//
// Supported column types:
//   - StringType: text values
//   - IntegerType: whole numbers
//   - FloatType: floating point numbers
//   - BooleanType: true/false values
//   - DateType: calendar dates
//   - DatetimeType: timestamps
//
// # Aggregates
//
// Every column type has a set of valid aggregate operators and a default:
//
//	core.DefaultAggregate(core.FloatType)            // "sum"
//	core.ValidAggregate(core.StringType, "sum")      // false
//
// # View Specification
//
// A ViewSpecification is derived from a viewer's attributes and handed to a
// TableHandle to obtain a ViewHandle:
//
//	spec := core.ViewSpecification{
//	    RowPivots:  core.PivotList{"region"},
//	    Aggregates: []core.AggregateSpec{{Column: "sales", Op: "sum"}},
//	    Sort:       core.PivotList{"sales"},
//	}
//	view, err := table.View(ctx, spec)
package core
