package interaction

import (
	"errors"
	"testing"
)

type stubEvaluator struct {
	result bool
	err    error
	calls  int
	last   string
}

func (s *stubEvaluator) EvalBool(expression string, value any) (bool, error) {
	s.calls++
	s.last = expression
	return s.result, s.err
}

func TestEvaluateConditionNil(t *testing.T) {
	ok, err := EvaluateCondition(nil, 42, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("nil condition should always admit")
	}
}

func TestEvaluateComparison(t *testing.T) {
	tests := []struct {
		name      string
		op        Operator
		value     any
		comparand any
		want      bool
	}{
		{"equals string coerced", OpEquals, 30, "30", true},
		{"equals mismatch", OpEquals, "on", "off", false},
		{"notEquals", OpNotEquals, "on", "off", true},
		{"greaterThan numeric", OpGreaterThan, 35.5, 30, true},
		{"greaterThan string value", OpGreaterThan, "40", 30, true},
		{"lessThan", OpLessThan, 10, 30, true},
		{"lessThan false", OpLessThan, 31, 30, false},
		{"contains", OpContains, "temperature-high", "high", true},
		{"contains miss", OpContains, "temperature-low", "high", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := &Condition{Type: ConditionComparison, Operator: tt.op, Value: tt.comparand}
			got, err := EvaluateCondition(cond, tt.value, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateComparisonNonNumeric(t *testing.T) {
	cond := &Condition{Type: ConditionComparison, Operator: OpGreaterThan, Value: 30}
	if _, err := EvaluateCondition(cond, "warm", nil); err == nil {
		t.Error("expected error ordering a non-numeric value")
	}
}

func TestEvaluateRange(t *testing.T) {
	tests := []struct {
		name  string
		spec  string
		value any
		want  bool
	}{
		{"inside", "10-20", 15, true},
		{"lower bound inclusive", "10-20", 10, true},
		{"upper bound inclusive", "10-20", 20, true},
		{"below", "10-20", 9.9, false},
		{"above", "10-20", 20.1, false},
		{"negative bounds", "-10--5", -7, true},
		{"negative outside", "-10--5", 0, false},
		{"string value", "0-100", "42", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := &Condition{Type: ConditionRange, Value: tt.spec}
			got, err := EvaluateCondition(cond, tt.value, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("range %q value %v: got %v, want %v", tt.spec, tt.value, got, tt.want)
			}
		})
	}
}

func TestEvaluateRangeInvalid(t *testing.T) {
	for _, spec := range []string{"", "abc", "20-10", "10"} {
		cond := &Condition{Type: ConditionRange, Value: spec}
		if _, err := EvaluateCondition(cond, 5, nil); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("spec %q: expected ErrInvalidRange, got %v", spec, err)
		}
	}

	cond := &Condition{Type: ConditionRange, Value: 12}
	if _, err := EvaluateCondition(cond, 5, nil); !errors.Is(err, ErrInvalidRange) {
		t.Error("non-string range value should be rejected")
	}
}

func TestEvaluateExpression(t *testing.T) {
	eval := &stubEvaluator{result: true}
	cond := &Condition{Type: ConditionExpression, Value: "value > 10"}

	ok, err := EvaluateCondition(cond, 15, eval)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected expression result to pass through")
	}
	if eval.calls != 1 || eval.last != "value > 10" {
		t.Errorf("evaluator saw calls=%d expr=%q", eval.calls, eval.last)
	}

	if _, err := EvaluateCondition(cond, 15, nil); err == nil {
		t.Error("expected error without an evaluator")
	}
	bad := &Condition{Type: ConditionExpression, Value: 7}
	if _, err := EvaluateCondition(bad, 15, eval); err == nil {
		t.Error("expected error for non-string expression value")
	}
}

func TestEvaluateConditionUnknownType(t *testing.T) {
	cond := &Condition{Type: "magic"}
	if _, err := EvaluateCondition(cond, 1, nil); err == nil {
		t.Error("expected error for unknown condition type")
	}
}
