package op

import (
	"strings"
	"time"

	"github.com/nickyhof/CommitView/core"
)

// ToFloat converts numeric values to float64.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

func toTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case core.Date:
		return x.Time(), true
	case string:
		if t, err := time.Parse(core.DateLayout, x); err == nil {
			return t, true
		}
		if t, err := time.Parse(time.RFC3339, x); err == nil {
			return t, true
		}
		if t, err := time.Parse(core.DatetimeLayout, x); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func isTemporal(v any) bool {
	switch v.(type) {
	case time.Time, core.Date:
		return true
	}
	return false
}

// Compare orders two values. nil sorts before everything else.
func Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	if af, ok := ToFloat(a); ok {
		if bf, ok := ToFloat(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ab == bb:
				return 0
			case !ab:
				return -1
			}
			return 1
		}
	}
	if isTemporal(a) || isTemporal(b) {
		if at, ok := toTime(a); ok {
			if bt, ok := toTime(b); ok {
				return at.Compare(bt)
			}
		}
	}
	return strings.Compare(core.FormatValue(a), core.FormatValue(b))
}

// key builds a map key for a tuple of values.
func key(values []any) string {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte(0)
		}
		if v == nil {
			b.WriteByte(1)
			continue
		}
		b.WriteString(core.FormatValue(v))
	}
	return b.String()
}
