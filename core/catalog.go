package core

import "slices"

// Catalog is the ordered column list of a loaded table with each column's
// type. It is rebuilt whenever a table is loaded.
type Catalog struct {
	columns []Column
	index   map[string]int
}

// NewCatalog builds a catalog from column names in table order and the
// table schema. Names missing from the schema are typed as strings.
func NewCatalog(names []string, schema map[string]ColumnType) *Catalog {
	c := &Catalog{
		columns: make([]Column, 0, len(names)),
		index:   make(map[string]int, len(names)),
	}
	for _, name := range names {
		if _, dup := c.index[name]; dup {
			continue
		}
		c.index[name] = len(c.columns)
		c.columns = append(c.columns, Column{Name: name, Type: schema[name]})
	}
	return c
}

// Columns returns the columns in table order.
func (c *Catalog) Columns() []Column {
	if c == nil {
		return nil
	}
	return slices.Clone(c.columns)
}

// Names returns the column names in table order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, len(c.columns))
	for i, col := range c.columns {
		names[i] = col.Name
	}
	return names
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.columns)
}

func (c *Catalog) Has(name string) bool {
	if c == nil {
		return false
	}
	_, ok := c.index[name]
	return ok
}

// Type returns the type of the named column.
func (c *Catalog) Type(name string) (ColumnType, bool) {
	if c == nil {
		return StringType, false
	}
	i, ok := c.index[name]
	if !ok {
		return StringType, false
	}
	return c.columns[i].Type, true
}

// DefaultAggregate returns the default operator for the named column.
func (c *Catalog) DefaultAggregate(name string) (string, bool) {
	t, ok := c.Type(name)
	if !ok {
		return "", false
	}
	return DefaultAggregate(t), true
}

// DefaultAggregates returns one default aggregate per column in table order.
func (c *Catalog) DefaultAggregates() []AggregateSpec {
	if c == nil {
		return nil
	}
	aggs := make([]AggregateSpec, len(c.columns))
	for i, col := range c.columns {
		aggs[i] = AggregateSpec{Column: col.Name, Op: DefaultAggregate(col.Type)}
	}
	return aggs
}
