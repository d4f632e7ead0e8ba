package rules

import (
	"context"
	"errors"
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	formstate "github.com/reoring/formstate"
)

// ErrNotBoolean is returned when a rule expression does not yield a bool.
var ErrNotBoolean = errors.New("rules: expression must evaluate to a boolean")

// Expr compiles an expr-lang expression into a refinement. Top-level form
// values are bound as variables, and the whole values map is bound as
// "values". The refinement fails at path when the expression is false.
//
//	rules.Expr(`endDate >= startDate`, "End must not precede start", "endDate")
func Expr(expression, message string, path ...string) (formstate.Refinement, error) {
	if expression == "" {
		return nil, fmt.Errorf("rules: expr: expression must not be empty")
	}
	program, err := exprlang.Compile(expression,
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
		exprlang.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("rules: expr %q: %w", expression, err)
	}
	return &exprRule{program: program, expression: expression, message: message, path: first(path)}, nil
}

// MustExpr is like Expr but panics on error.
func MustExpr(expression, message string, path ...string) formstate.Refinement {
	r, err := Expr(expression, message, path...)
	if err != nil {
		panic(err)
	}
	return r
}

type exprRule struct {
	program    *exprvm.Program
	expression string
	message    string
	path       string
}

func (r *exprRule) Check(ctx context.Context, values map[string]any) (*formstate.Failure, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := exprlang.Run(r.program, environment(values))
	if err != nil {
		return nil, fmt.Errorf("rules: expr %q: %w", r.expression, err)
	}
	ok, isBool := out.(bool)
	if !isBool {
		return nil, fmt.Errorf("rules: expr %q: %w", r.expression, ErrNotBoolean)
	}
	if ok {
		return nil, nil
	}
	return &formstate.Failure{Path: r.path, Code: formstate.CodeBusinessRule, Message: r.message}, nil
}

// environment binds top-level values plus the full map as "values".
func environment(values map[string]any) map[string]any {
	env := make(map[string]any, len(values)+1)
	for k, v := range values {
		env[k] = v
	}
	env["values"] = values
	return env
}

func first(path []string) string {
	if len(path) == 0 {
		return ""
	}
	return path[0]
}
