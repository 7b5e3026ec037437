// Package expr evaluates interaction condition expressions in a sandbox.
//
// Expressions are small Lua snippets restricted to arithmetic, comparison,
// and logic: the interpreter state is created with no standard libraries,
// so there is no io, os, load, or require to escape through. The
// triggering value is bound as the global "value"; the legacy ${value}
// placeholder form is rewritten to that global before evaluation. Each
// evaluation runs under a deadline so a pathological expression cannot
// stall the interaction pipeline.
package expr

import (
	"context"
	"fmt"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

const defaultTimeout = 50 * time.Millisecond

// Evaluator evaluates condition expressions.
type Evaluator struct {
	timeout time.Duration
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithTimeout sets the per-evaluation deadline.
func WithTimeout(d time.Duration) Option {
	return func(e *Evaluator) {
		e.timeout = d
	}
}

// New creates an Evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EvalBool evaluates an expression against the triggering value and
// returns its truthiness: false for nil/false results, true otherwise,
// matching Lua semantics.
func (e *Evaluator) EvalBool(expression string, value any) (bool, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return false, fmt.Errorf("empty expression")
	}
	expression = strings.ReplaceAll(expression, "${value}", "value")

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	L.SetContext(ctx)

	L.SetGlobal("value", toLValue(L, value))

	if err := L.DoString("return " + expression); err != nil {
		return false, fmt.Errorf("expression %q: %w", expression, err)
	}

	result := L.Get(-1)
	L.Pop(1)

	switch result.Type() {
	case lua.LTNil:
		return false, nil
	case lua.LTBool:
		return bool(result.(lua.LBool)), nil
	default:
		return true, nil
	}
}

// toLValue converts a Go value to its Lua representation.
func toLValue(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case map[string]any:
		tbl := L.NewTable()
		for k, item := range val {
			tbl.RawSetString(k, toLValue(L, item))
		}
		return tbl
	case []any:
		tbl := L.NewTable()
		for i, item := range val {
			tbl.RawSetInt(i+1, toLValue(L, item))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}
