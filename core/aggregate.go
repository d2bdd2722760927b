package core

// Aggregate operator names.
const (
	AggSum           = "sum"
	AggAvg           = "avg"
	AggMean          = "mean"
	AggCount         = "count"
	AggDistinctCount = "distinct count"
	AggAny           = "any"
	AggUnique        = "unique"
	AggDominant      = "dominant"
	AggHigh          = "high"
	AggLow           = "low"
	AggMedian        = "median"
	AggFirst         = "first"
	AggLast          = "last"
	AggAnd           = "and"
	AggOr            = "or"
)

// TypeAggregates lists the valid aggregate operators for each column type.
// The first entry is the type's default.
var TypeAggregates = map[ColumnType][]string{
	StringType: {
		AggCount, AggDistinctCount, AggAny, AggUnique, AggDominant, AggFirst, AggLast,
	},
	IntegerType: {
		AggSum, AggAvg, AggMean, AggCount, AggDistinctCount, AggAny, AggHigh, AggLow,
		AggMedian, AggFirst, AggLast, AggUnique, AggDominant,
	},
	FloatType: {
		AggSum, AggAvg, AggMean, AggCount, AggDistinctCount, AggAny, AggHigh, AggLow,
		AggMedian, AggFirst, AggLast, AggUnique, AggDominant,
	},
	BooleanType: {
		AggCount, AggDistinctCount, AggAny, AggUnique, AggAnd, AggOr,
	},
	DateType: {
		AggCount, AggDistinctCount, AggAny, AggHigh, AggLow, AggFirst, AggLast, AggUnique,
	},
	DatetimeType: {
		AggCount, AggDistinctCount, AggAny, AggHigh, AggLow, AggFirst, AggLast, AggUnique,
	},
}

// AggregateSpec selects the reduction applied to a column within a pivot group.
type AggregateSpec struct {
	Column string `json:"column"`
	Op     string `json:"op"`
}

// DefaultAggregate returns the default operator for a column type.
func DefaultAggregate(t ColumnType) string {
	ops := TypeAggregates[t]
	if len(ops) == 0 {
		return AggCount
	}
	return ops[0]
}

// ValidAggregate reports whether op may be applied to columns of type t.
func ValidAggregate(t ColumnType, op string) bool {
	if op == "" {
		return false
	}
	for _, valid := range TypeAggregates[t] {
		if valid == op {
			return true
		}
	}
	return false
}

// NormalizeAggregate returns op when it is valid for t and the type default otherwise.
func NormalizeAggregate(t ColumnType, op string) string {
	if ValidAggregate(t, op) {
		return op
	}
	return DefaultAggregate(t)
}
