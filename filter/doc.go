// Package filter parses and formats the free-text filter expression a user
// types into a viewer.
//
// An expression is a list of clauses joined by '&'. Each clause names a
// column in backticks, an operator and a value:
//
//	`price` > 10 & `name` startswith Ac
//
// Operators are ==, !=, <, >, <=, >=, contains, startswith and endswith. The
// value is the rest of the clause; it becomes a number when the whole of it
// parses as one.
//
// # Parsing
//
//	clauses, err := filter.Parse("`price` > 10 & `qty` == 5", catalog.Names())
//	if err != nil {
//	    // the whole expression is rejected, clauses is empty
//	}
//
// # Formatting
//
// Format renders clauses back into the same grammar, so
// Parse(Format(c)) yields c for any valid clause list.
package filter
