package rules

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	formstate "github.com/reoring/formstate"
)

// CEL compiles a Common Expression Language rule into a refinement. Top-level
// form values are declared as dynamic variables when the rule first sees a
// given set of keys, and "values" holds the whole map.
//
//	rules.CEL(`size(items) <= 10`, "Too many items", "items")
func CEL(expression, message string, path ...string) (formstate.Refinement, error) {
	if expression == "" {
		return nil, fmt.Errorf("rules: cel: expression must not be empty")
	}
	env, err := celgo.NewEnv()
	if err != nil {
		return nil, err
	}
	if _, issues := env.Parse(expression); issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("rules: cel %q: %w", expression, issues.Err())
	}
	return &celRule{
		expression: expression,
		message:    message,
		path:       first(path),
		programs:   map[string]celgo.Program{},
	}, nil
}

// MustCEL is like CEL but panics on error.
func MustCEL(expression, message string, path ...string) formstate.Refinement {
	r, err := CEL(expression, message, path...)
	if err != nil {
		panic(err)
	}
	return r
}

type celRule struct {
	expression string
	message    string
	path       string

	mu       sync.Mutex
	programs map[string]celgo.Program // keyed by the sorted variable names
}

func (r *celRule) Check(ctx context.Context, values map[string]any) (*formstate.Failure, error) {
	prg, err := r.program(values)
	if err != nil {
		return nil, err
	}
	out, _, err := prg.ContextEval(ctx, environment(values))
	if err != nil {
		return nil, fmt.Errorf("rules: cel %q: %w", r.expression, err)
	}
	if types.IsError(out) {
		return nil, fmt.Errorf("rules: cel %q: %v", r.expression, out)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return nil, fmt.Errorf("rules: cel %q: %w", r.expression, ErrNotBoolean)
	}
	if ok {
		return nil, nil
	}
	return &formstate.Failure{Path: r.path, Code: formstate.CodeBusinessRule, Message: r.message}, nil
}

func (r *celRule) program(values map[string]any) (celgo.Program, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "values" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	sig := strings.Join(keys, "\x00")

	r.mu.Lock()
	defer r.mu.Unlock()
	if prg, ok := r.programs[sig]; ok {
		return prg, nil
	}
	opts := []celgo.EnvOption{
		celgo.CrossTypeNumericComparisons(true),
		celgo.Variable("values", celgo.DynType),
	}
	for _, k := range keys {
		opts = append(opts, celgo.Variable(k, celgo.DynType))
	}
	env, err := celgo.NewEnv(opts...)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(r.expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("rules: cel %q: %w", r.expression, issues.Err())
	}
	prg, err := env.Program(ast, celgo.InterruptCheckFrequency(100))
	if err != nil {
		return nil, fmt.Errorf("rules: cel %q: %w", r.expression, err)
	}
	r.programs[sig] = prg
	return prg, nil
}
