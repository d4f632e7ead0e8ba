package rules

import (
	"context"
	"fmt"
	"reflect"

	formstate "github.com/reoring/formstate"
	"github.com/reoring/formstate/i18n"
)

// Op defines simple comparison operators for If(...).Then(...)
type Op int

const (
	Eq Op = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// Conditional composes conditional execution of rules.
type Conditional struct {
	path string
	op   Op
	want any
	all  []Conditional // composite AND
	any  []Conditional // composite OR
}

// If builds a conditional that evaluates the value at path against want.
// Paths use the form syntax, e.g. "shipping.country" or "items[0].qty".
func If(path string, op Op, want any) Conditional {
	return Conditional{path: path, op: op, want: want}
}

// IfAll builds a conditional that requires all conditions to hold.
func IfAll(conds ...Conditional) Conditional { return Conditional{all: conds} }

// IfAny builds a conditional that requires any condition to hold.
func IfAny(conds ...Conditional) Conditional { return Conditional{any: conds} }

// And combines the receiver with additional conditions using logical AND.
func (c Conditional) And(others ...Conditional) Conditional {
	conds := append([]Conditional{c}, others...)
	return IfAll(conds...)
}

// Or combines the receiver with additional conditions using logical OR.
func (c Conditional) Or(others ...Conditional) Conditional {
	conds := append([]Conditional{c}, others...)
	return IfAny(conds...)
}

// Holds reports whether the condition is satisfied by values.
func (c Conditional) Holds(values map[string]any) bool { return evalConditional(values, c) }

// Then runs rules in order when the condition holds and reports the first
// failure.
func (c Conditional) Then(rules ...formstate.Refinement) formstate.Refinement {
	return formstate.RefinementFunc(func(ctx context.Context, values map[string]any) (*formstate.Failure, error) {
		if !evalConditional(values, c) {
			return nil, nil
		}
		return All(rules...).Check(ctx, values)
	})
}

// All runs rules in order and reports the first failure or error.
func All(rules ...formstate.Refinement) formstate.Refinement {
	return formstate.RefinementFunc(func(ctx context.Context, values map[string]any) (*formstate.Failure, error) {
		for _, r := range rules {
			if r == nil {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			fail, err := r.Check(ctx, values)
			if err != nil || fail != nil {
				return fail, err
			}
		}
		return nil, nil
	})
}

// Required fails at path when the value there is missing, nil, "" or an
// empty collection. It is mostly useful under If(...).Then(...).
func Required(path string, message ...string) formstate.Refinement {
	return formstate.RefinementFunc(func(_ context.Context, values map[string]any) (*formstate.Failure, error) {
		v, ok := formstate.GetPath(values, path)
		if ok && !isEmpty(v) {
			return nil, nil
		}
		return &formstate.Failure{Path: path, Code: formstate.CodeRequired, Message: pick(message, formstate.CodeRequired, nil)}, nil
	})
}

// Matches fails at path when its value differs from the value at other,
// e.g. Matches("confirm", "password", "Passwords do not match").
func Matches(path, other, message string) formstate.Refinement {
	return formstate.RefinementFunc(func(_ context.Context, values map[string]any) (*formstate.Failure, error) {
		a, _ := formstate.GetPath(values, path)
		b, _ := formstate.GetPath(values, other)
		if formstate.Equal(a, b) {
			return nil, nil
		}
		return &formstate.Failure{Path: path, Code: formstate.CodeBusinessRule, Message: message}, nil
	})
}

// AtLeastOne ensures the collection at collectionPath has at least 1 element.
func AtLeastOne(collectionPath string, message ...string) formstate.Refinement {
	return formstate.RefinementFunc(func(_ context.Context, values map[string]any) (*formstate.Failure, error) {
		val, ok := formstate.GetPath(values, collectionPath)
		if !ok {
			return nil, nil
		}
		rv := reflect.ValueOf(val)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			if rv.Len() == 0 {
				return &formstate.Failure{
					Path:    collectionPath,
					Code:    formstate.CodeTooShort,
					Message: pick(message, formstate.CodeTooShort, nil),
				}, nil
			}
		default:
			// Not a collection; do not issue error here to avoid noise
		}
		return nil, nil
	})
}

// UniqueBy ensures elements in a collection have unique key values and blames
// the key of the first duplicate, e.g. "items[2].sku".
// Note: Prefer a stable, comparable key type (e.g., string). Mixed-type keys may stringify
// to identical values and cause false positives.
func UniqueBy(collectionPath, keyPath string, message ...string) formstate.Refinement {
	return formstate.RefinementFunc(func(_ context.Context, values map[string]any) (*formstate.Failure, error) {
		val, ok := formstate.GetPath(values, collectionPath)
		if !ok {
			return nil, nil
		}
		items, ok := val.([]any)
		if !ok {
			return nil, nil
		}
		seen := map[string]int{}
		for i, elem := range items {
			kv, ok := formstate.GetPath(elem, keyPath)
			if !ok || kv == nil {
				continue
			}
			key := fmt.Sprint(kv)
			if _, dup := seen[key]; dup {
				p := formstate.Path(collectionPath, i)
				if keyPath != "" {
					p += "." + keyPath
				}
				return &formstate.Failure{
					Path:    p,
					Code:    formstate.CodeUniqueness,
					Message: pick(message, formstate.CodeUniqueness, nil),
				}, nil
			}
			seen[key] = i
		}
		return nil, nil
	})
}

// ------- helpers -------

func pick(message []string, code string, data map[string]string) string {
	if len(message) > 0 && message[0] != "" {
		return message[0]
	}
	return i18n.T(code, data)
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

func evalConditional(values map[string]any, c Conditional) bool {
	// composite AND
	if len(c.all) > 0 {
		for _, it := range c.all {
			if !evalConditional(values, it) {
				return false
			}
		}
		return true
	}
	// composite OR
	if len(c.any) > 0 {
		for _, it := range c.any {
			if evalConditional(values, it) {
				return true
			}
		}
		return false
	}
	// simple predicate
	cur, ok := formstate.GetPath(values, c.path)
	if !ok {
		return false
	}
	return compare(cur, c.op, c.want)
}

func compare(a any, op Op, b any) bool {
	switch op {
	case Eq:
		return formstate.Equal(a, b)
	case Ne:
		return !formstate.Equal(a, b)
	}
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return false
		}
		return ordered(cmpFloat(fa, fb), op)
	}
	sa, ok1 := a.(string)
	sb, ok2 := b.(string)
	if !ok1 || !ok2 {
		return false
	}
	c := 0
	switch {
	case sa < sb:
		c = -1
	case sa > sb:
		c = 1
	}
	return ordered(c, op)
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func ordered(c int, op Op) bool {
	switch op {
	case Lt:
		return c < 0
	case Le:
		return c <= 0
	case Gt:
		return c > 0
	case Ge:
		return c >= 0
	}
	return false
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
