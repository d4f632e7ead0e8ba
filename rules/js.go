package rules

import (
	"context"
	"fmt"

	"github.com/dop251/goja"

	formstate "github.com/reoring/formstate"
)

// JS compiles a JavaScript expression into a refinement. Each check runs on a
// fresh goja runtime with top-level values and "values" bound as globals, and
// is interrupted when ctx is cancelled.
//
//	rules.JS(`values.items.every(i => i.qty > 0)`, "Quantities must be positive")
func JS(expression, message string, path ...string) (formstate.Refinement, error) {
	if expression == "" {
		return nil, fmt.Errorf("rules: js: expression must not be empty")
	}
	program, err := goja.Compile("", fmt.Sprintf("(function(){ return (%s); })()", expression), true)
	if err != nil {
		return nil, fmt.Errorf("rules: js %q: %w", expression, err)
	}
	return &jsRule{program: program, expression: expression, message: message, path: first(path)}, nil
}

// MustJS is like JS but panics on error.
func MustJS(expression, message string, path ...string) formstate.Refinement {
	r, err := JS(expression, message, path...)
	if err != nil {
		panic(err)
	}
	return r
}

type jsRule struct {
	program    *goja.Program
	expression string
	message    string
	path       string
}

func (r *jsRule) Check(ctx context.Context, values map[string]any) (*formstate.Failure, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vm := goja.New()
	stop := context.AfterFunc(ctx, func() { vm.Interrupt(ctx.Err()) })
	defer stop()
	for k, v := range environment(values) {
		if err := vm.Set(k, v); err != nil {
			return nil, fmt.Errorf("rules: js %q: bind %s: %w", r.expression, k, err)
		}
	}
	out, err := vm.RunProgram(r.program)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("rules: js %q: %w", r.expression, err)
	}
	ok, isBool := out.Export().(bool)
	if !isBool {
		return nil, fmt.Errorf("rules: js %q: %w", r.expression, ErrNotBoolean)
	}
	if ok {
		return nil, nil
	}
	return &formstate.Failure{Path: r.path, Code: formstate.CodeBusinessRule, Message: r.message}, nil
}
