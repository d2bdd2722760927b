package core

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Filter operators accepted by the filter grammar and the engines.
const (
	FilterEquals         = "=="
	FilterNotEquals      = "!="
	FilterLessThan       = "<"
	FilterGreaterThan    = ">"
	FilterLessOrEqual    = "<="
	FilterGreaterOrEqual = ">="
	FilterContains       = "contains"
	FilterStartsWith     = "startswith"
	FilterEndsWith       = "endswith"
)

var filterOperators = map[string]bool{
	FilterEquals:         true,
	FilterNotEquals:      true,
	FilterLessThan:       true,
	FilterGreaterThan:    true,
	FilterLessOrEqual:    true,
	FilterGreaterOrEqual: true,
	FilterContains:       true,
	FilterStartsWith:     true,
	FilterEndsWith:       true,
}

// IsFilterOperator reports whether op is a known filter operator.
func IsFilterOperator(op string) bool {
	return filterOperators[op]
}

// FilterValue is either a number or a string.
type FilterValue struct {
	Num   float64
	Str   string
	IsNum bool
}

func NumberValue(f float64) FilterValue { return FilterValue{Num: f, IsNum: true} }
func StringValue(s string) FilterValue  { return FilterValue{Str: s} }

// String returns the value as it appears in filter text.
func (v FilterValue) String() string {
	if v.IsNum {
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	}
	return v.Str
}

func (v FilterValue) MarshalJSON() ([]byte, error) {
	if v.IsNum {
		return json.Marshal(v.Num)
	}
	return json.Marshal(v.Str)
}

func (v *FilterValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case float64:
		*v = NumberValue(x)
	case string:
		*v = StringValue(x)
	default:
		return fmt.Errorf("filter value must be a string or number, got %s", string(data))
	}
	return nil
}

// FilterClause restricts a view to rows where Column Operator Value holds.
// Its JSON form is the array [column, operator, value].
type FilterClause struct {
	Column   string
	Operator string
	Value    FilterValue
}

func (c FilterClause) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.Column, c.Operator, c.Value})
}

func (c *FilterClause) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 3 {
		return fmt.Errorf("filter clause must have 3 elements, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], &c.Column); err != nil {
		return fmt.Errorf("filter column: %w", err)
	}
	if err := json.Unmarshal(parts[1], &c.Operator); err != nil {
		return fmt.Errorf("filter operator: %w", err)
	}
	if err := json.Unmarshal(parts[2], &c.Value); err != nil {
		return err
	}
	return nil
}
