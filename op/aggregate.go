package op

import (
	"errors"
	"fmt"
	"slices"

	"github.com/nickyhof/CommitView/core"
)

var ErrUnknownAggregate = errors.New("unknown aggregate")

// Aggregate reduces the values of one column within a group.
func Aggregate(values []any, op string) (any, error) {
	present := make([]any, 0, len(values))
	for _, v := range values {
		if v != nil {
			present = append(present, v)
		}
	}

	switch op {
	case core.AggCount:
		return int64(len(values)), nil
	case core.AggDistinctCount:
		seen := map[string]bool{}
		for _, v := range present {
			seen[key([]any{v})] = true
		}
		return int64(len(seen)), nil
	case core.AggAny, core.AggFirst:
		if len(present) == 0 {
			return nil, nil
		}
		return present[0], nil
	case core.AggLast:
		if len(present) == 0 {
			return nil, nil
		}
		return present[len(present)-1], nil
	case core.AggUnique:
		if len(present) == 0 {
			return nil, nil
		}
		for _, v := range present[1:] {
			if Compare(v, present[0]) != 0 {
				return nil, nil
			}
		}
		return present[0], nil
	case core.AggDominant:
		return dominant(present), nil
	case core.AggSum:
		return sum(present), nil
	case core.AggAvg, core.AggMean:
		nums := numbers(present)
		if len(nums) == 0 {
			return nil, nil
		}
		total := 0.0
		for _, n := range nums {
			total += n
		}
		return total / float64(len(nums)), nil
	case core.AggHigh, core.AggLow:
		if len(present) == 0 {
			return nil, nil
		}
		best := present[0]
		for _, v := range present[1:] {
			c := Compare(v, best)
			if (op == core.AggHigh && c > 0) || (op == core.AggLow && c < 0) {
				best = v
			}
		}
		return best, nil
	case core.AggMedian:
		nums := numbers(present)
		if len(nums) == 0 {
			return nil, nil
		}
		slices.Sort(nums)
		mid := len(nums) / 2
		if len(nums)%2 == 1 {
			return nums[mid], nil
		}
		return (nums[mid-1] + nums[mid]) / 2, nil
	case core.AggAnd, core.AggOr:
		result := op == core.AggAnd
		for _, v := range present {
			b, ok := v.(bool)
			if !ok {
				continue
			}
			if op == core.AggAnd {
				result = result && b
			} else {
				result = result || b
			}
		}
		return result, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAggregate, op)
	}
}

func numbers(values []any) []float64 {
	nums := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := ToFloat(v); ok {
			nums = append(nums, f)
		}
	}
	return nums
}

// sum keeps integer sums integral.
func sum(values []any) any {
	var (
		ints    int64
		floats  float64
		isFloat bool
	)
	for _, v := range values {
		switch x := v.(type) {
		case int64:
			ints += x
		case int:
			ints += int64(x)
		case int32:
			ints += int64(x)
		default:
			if f, ok := ToFloat(v); ok {
				floats += f
				isFloat = true
			}
		}
	}
	if isFloat {
		return floats + float64(ints)
	}
	return ints
}

// dominant returns the most frequent value; ties go to the value that
// reached the count first.
func dominant(values []any) any {
	counts := map[string]int{}
	var (
		best      any
		bestCount int
	)
	for _, v := range values {
		k := key([]any{v})
		counts[k]++
		if counts[k] > bestCount {
			best, bestCount = v, counts[k]
		}
	}
	return best
}
