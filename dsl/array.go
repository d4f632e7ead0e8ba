package dsl

import (
	"context"

	formstate "github.com/reoring/formstate"
)

// ArraySchema decodes []any values item by item.
type ArraySchema struct {
	elem   formstate.Validator
	minLen int
	maxLen int
	msgMin []string
	msgMax []string
}

// Array returns an array schema with the given element validator. A nil
// input decodes as an empty array.
func Array(elem formstate.Validator) *ArraySchema {
	if elem == nil {
		panic("dsl: Array requires an element validator")
	}
	return &ArraySchema{elem: elem, minLen: -1, maxLen: -1}
}

// Min sets the minimum length.
func (a *ArraySchema) Min(n int, msg ...string) *ArraySchema { a.minLen = n; a.msgMin = msg; return a }

// Max sets the maximum length.
func (a *ArraySchema) Max(n int, msg ...string) *ArraySchema { a.maxLen = n; a.msgMax = msg; return a }

// Elem returns the element validator.
func (a *ArraySchema) Elem() formstate.Validator { return a.elem }

func (a *ArraySchema) Decode(ctx context.Context, v any) (any, error) {
	var src []any
	switch t := v.(type) {
	case nil:
	case []any:
		src = t
	case []map[string]any:
		src = make([]any, len(t))
		for i := range t {
			src[i] = t[i]
		}
	default:
		return nil, leaf(formstate.CodeInvalidType, nil, "expected", "array")
	}
	if a.minLen >= 0 && len(src) < a.minLen {
		return nil, leaf(formstate.CodeTooShort, a.msgMin, "min", a.minLen)
	}
	if a.maxLen >= 0 && len(src) > a.maxLen {
		return nil, leaf(formstate.CodeTooLong, a.msgMax, "max", a.maxLen)
	}
	out := make([]any, 0, len(src))
	var issues []*formstate.Issue
	for i, item := range src {
		dv, err := a.elem.Decode(ctx, item)
		if err != nil {
			issues = append(issues, formstate.PointerIssue(i, formstate.IssueFromError(err)))
			if formstate.IsFailFast(ctx) {
				break
			}
			continue
		}
		out = append(out, dv)
	}
	if len(issues) > 0 {
		return nil, formstate.CompositeIssue(issues...)
	}
	return out, nil
}

func (a *ArraySchema) Default() any { return []any{} }

func (a *ArraySchema) Container() bool { return true }

func (a *ArraySchema) Child(key any) (formstate.Validator, bool) {
	if i, ok := key.(int); ok && i >= 0 {
		return a.elem, true
	}
	return nil, false
}
