package core

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Data is a rectangular dataset in column order.
type Data struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (d *Data) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Column returns the values of the named column.
func (d *Data) Column(name string) ([]any, bool) {
	idx := -1
	for i, c := range d.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	values := make([]any, len(d.Rows))
	for i, row := range d.Rows {
		if idx < len(row) {
			values[i] = row[idx]
		}
	}
	return values, true
}

// Records returns the rows as maps keyed by column name.
func (d *Data) Records() []map[string]any {
	out := make([]map[string]any, len(d.Rows))
	for i, row := range d.Rows {
		rec := make(map[string]any, len(d.Columns))
		for j, c := range d.Columns {
			if j < len(row) {
				rec[c] = row[j]
			}
		}
		out[i] = rec
	}
	return out
}

// Formats accepted by ParseData.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// ErrEmptyData is returned when a source contains no columns.
var ErrEmptyData = errors.New("data has no columns")

// ParseData decodes a dataset. JSON input is either an array of objects
// (row oriented) or an object of arrays (column oriented). CSV input must
// carry a header row; cell values are converted with InferType.
func ParseData(format string, r io.Reader) (*Data, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	switch strings.ToLower(format) {
	case FormatJSON, "":
		return parseJSON(raw)
	case FormatCSV:
		return parseCSV(raw)
	default:
		return nil, fmt.Errorf("unsupported data format %q", format)
	}
}

// FormatForPath guesses the data format from a file name.
func FormatForPath(path string) string {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".csv") {
		return FormatCSV
	}
	return FormatJSON
}

func parseJSON(raw []byte) (*Data, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrEmptyData
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode json data: %w", err)
	}

	switch v := decoded.(type) {
	case []any:
		return rowsFromJSON(raw, v)
	case map[string]any:
		return columnsFromJSON(raw, v)
	default:
		return nil, fmt.Errorf("json data must be an array of rows or an object of columns")
	}
}

func rowsFromJSON(raw []byte, items []any) (*Data, error) {
	var rawRows []json.RawMessage
	if err := json.Unmarshal(raw, &rawRows); err != nil {
		return nil, fmt.Errorf("failed to decode json rows: %w", err)
	}
	d := &Data{}
	seen := map[string]int{}
	records := make([]map[string]any, 0, len(items))
	for i, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("row %d is not an object", i)
		}
		records = append(records, rec)
		// map decoding loses key order, so columns follow the document
		for _, k := range objectKeyOrder(rawRows[i]) {
			if _, ok := seen[k]; !ok {
				seen[k] = len(d.Columns)
				d.Columns = append(d.Columns, k)
			}
		}
	}
	if len(d.Columns) == 0 {
		return nil, ErrEmptyData
	}
	for _, rec := range records {
		row := make([]any, len(d.Columns))
		for k, v := range rec {
			row[seen[k]] = jsonValue(v)
		}
		d.Rows = append(d.Rows, row)
	}
	return d, nil
}

func columnsFromJSON(raw []byte, cols map[string]any) (*Data, error) {
	d := &Data{Columns: objectKeyOrder(raw)}
	if len(d.Columns) == 0 {
		return nil, ErrEmptyData
	}
	n := -1
	for _, name := range d.Columns {
		values, ok := cols[name].([]any)
		if !ok {
			return nil, fmt.Errorf("column %q is not an array", name)
		}
		if n >= 0 && len(values) != n {
			return nil, fmt.Errorf("column %q has %d values, expected %d", name, len(values), n)
		}
		n = len(values)
	}
	d.Rows = make([][]any, n)
	for i := range d.Rows {
		row := make([]any, len(d.Columns))
		for j, name := range d.Columns {
			row[j] = jsonValue(cols[name].([]any)[i])
		}
		d.Rows[i] = row
	}
	return d, nil
}

// objectKeyOrder returns the top-level keys of a JSON object in document order.
func objectKeyOrder(raw []byte) []string {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return keys
		}
		key, _ := tok.(string)
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return keys
		}
	}
	return keys
}

func jsonValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case string:
		// json strings keep their type unless they hold a date or timestamp
		if t, ok := parseTemporal(x); ok {
			return t
		}
		return x
	default:
		return x
	}
}

func parseCSV(raw []byte) (*Data, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to decode csv data: %w", err)
	}
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, ErrEmptyData
	}
	d := &Data{Columns: records[0]}
	for _, rec := range records[1:] {
		row := make([]any, len(d.Columns))
		for j := range d.Columns {
			if j < len(rec) {
				row[j] = InferValue(rec[j])
			}
		}
		d.Rows = append(d.Rows, row)
	}
	return d, nil
}

// Layouts accepted for date and datetime text.
const (
	DateLayout     = "2006-01-02"
	DatetimeLayout = "2006-01-02 15:04:05"
)

// InferValue converts text into the most specific Go value it represents.
// Empty text becomes nil.
func InferValue(s string) any {
	if s == "" {
		return nil
	}
	switch s {
	case "true", "TRUE", "True":
		return true
	case "false", "FALSE", "False":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if t, ok := parseTemporal(s); ok {
		return t
	}
	return s
}

func parseTemporal(s string) (any, bool) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date(t), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(DatetimeLayout, s); err == nil {
		return t, true
	}
	return nil, false
}

// Date is a calendar day, distinguished from a timestamp for type inference.
type Date time.Time

func (d Date) Time() time.Time    { return time.Time(d) }
func (d Date) String() string     { return time.Time(d).Format(DateLayout) }
func (d Date) Before(o Date) bool { return time.Time(d).Before(time.Time(o)) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// TypeOf returns the column type of a single value.
func TypeOf(v any) (ColumnType, bool) {
	switch v.(type) {
	case nil:
		return StringType, false
	case bool:
		return BooleanType, true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return IntegerType, true
	case float32, float64:
		return FloatType, true
	case Date:
		return DateType, true
	case time.Time:
		return DatetimeType, true
	default:
		return StringType, true
	}
}

// InferSchema derives a type for every column. Integers widen to float when
// a column mixes them; any other mix falls back to string.
func InferSchema(d *Data) map[string]ColumnType {
	schema := make(map[string]ColumnType, len(d.Columns))
	for j, name := range d.Columns {
		var (
			t     ColumnType
			found bool
		)
		for _, row := range d.Rows {
			if j >= len(row) {
				continue
			}
			vt, ok := TypeOf(row[j])
			if !ok {
				continue
			}
			switch {
			case !found:
				t, found = vt, true
			case t == vt:
			case t.IsNumeric() && vt.IsNumeric():
				t = FloatType
			default:
				t = StringType
			}
		}
		schema[name] = t
	}
	return schema
}

// FormatValue renders a cell value as text.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case Date:
		return x.String()
	case time.Time:
		return x.Format(DatetimeLayout)
	default:
		return fmt.Sprint(x)
	}
}
