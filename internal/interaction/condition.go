package interaction

import (
	"fmt"
	"strconv"
	"strings"
)

// ExpressionEvaluator evaluates expression conditions against the
// triggering value. Implemented by expr.Evaluator.
type ExpressionEvaluator interface {
	EvalBool(expression string, value any) (bool, error)
}

// EvaluateCondition reports whether the condition admits the triggering
// value. A nil condition always admits. The evaluator is only consulted
// for expression conditions and may be nil otherwise.
func EvaluateCondition(cond *Condition, value any, eval ExpressionEvaluator) (bool, error) {
	if cond == nil {
		return true, nil
	}
	switch cond.Type {
	case ConditionComparison:
		return evaluateComparison(cond.Operator, value, cond.Value)
	case ConditionRange:
		return evaluateRange(cond.Value, value)
	case ConditionExpression:
		src, ok := cond.Value.(string)
		if !ok {
			return false, fmt.Errorf("expression condition value must be a string, got %T", cond.Value)
		}
		if eval == nil {
			return false, fmt.Errorf("expression condition without evaluator")
		}
		return eval.EvalBool(src, value)
	default:
		return false, fmt.Errorf("unknown condition type %q", cond.Type)
	}
}

func evaluateComparison(op Operator, value, comparand any) (bool, error) {
	switch op {
	case OpEquals:
		return asString(value) == asString(comparand), nil
	case OpNotEquals:
		return asString(value) != asString(comparand), nil
	case OpGreaterThan:
		a, b, err := asNumbers(value, comparand)
		if err != nil {
			return false, err
		}
		return a > b, nil
	case OpLessThan:
		a, b, err := asNumbers(value, comparand)
		if err != nil {
			return false, err
		}
		return a < b, nil
	case OpContains:
		return strings.Contains(asString(value), asString(comparand)), nil
	default:
		return false, fmt.Errorf("unknown comparison operator %q", op)
	}
}

// evaluateRange treats the condition value as a "min-max" string and
// checks numeric membership, bounds inclusive.
func evaluateRange(spec, value any) (bool, error) {
	raw, ok := spec.(string)
	if !ok {
		return false, fmt.Errorf("%w: range value must be a string, got %T", ErrInvalidRange, spec)
	}
	min, max, err := parseRange(raw)
	if err != nil {
		return false, err
	}
	n, err := asNumber(value)
	if err != nil {
		return false, err
	}
	return n >= min && n <= max, nil
}

// parseRange splits "min-max". The separator is the last hyphen that
// leaves a valid number on each side, so negative bounds like "-10--5"
// still parse.
func parseRange(raw string) (float64, float64, error) {
	for i := len(raw) - 1; i > 0; i-- {
		if raw[i] != '-' {
			continue
		}
		min, errA := strconv.ParseFloat(strings.TrimSpace(raw[:i]), 64)
		max, errB := strconv.ParseFloat(strings.TrimSpace(raw[i+1:]), 64)
		if errA == nil && errB == nil {
			if min > max {
				return 0, 0, fmt.Errorf("%w: min %v exceeds max %v", ErrInvalidRange, min, max)
			}
			return min, max, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRange, raw)
}

func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func asNumber(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", val)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("value of type %T is not numeric", v)
	}
}

func asNumbers(a, b any) (float64, float64, error) {
	x, err := asNumber(a)
	if err != nil {
		return 0, 0, err
	}
	y, err := asNumber(b)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}
