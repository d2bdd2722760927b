package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

type ColumnType int

const (
	StringType ColumnType = iota
	IntegerType
	FloatType
	BooleanType
	DateType
	DatetimeType
)

var columnTypeNames = map[ColumnType]string{
	StringType:   "string",
	IntegerType:  "integer",
	FloatType:    "float",
	BooleanType:  "boolean",
	DateType:     "date",
	DatetimeType: "datetime",
}

func (t ColumnType) String() string {
	if name, ok := columnTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ColumnType(%d)", int(t))
}

// IsNumeric reports whether values of the type are compared as numbers.
func (t ColumnType) IsNumeric() bool {
	return t == IntegerType || t == FloatType
}

// ParseColumnType maps a type name to a ColumnType.
func ParseColumnType(name string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "string", "str", "text":
		return StringType, nil
	case "integer", "int":
		return IntegerType, nil
	case "float", "double", "number":
		return FloatType, nil
	case "boolean", "bool":
		return BooleanType, nil
	case "date":
		return DateType, nil
	case "datetime", "timestamp":
		return DatetimeType, nil
	default:
		return StringType, fmt.Errorf("unknown column type: %q", name)
	}
}

func (t ColumnType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *ColumnType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseColumnType(name)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}
