package dsl

import (
	"context"

	formstate "github.com/reoring/formstate"
)

// ObjectSchema decodes map[string]any values member by member.
type ObjectSchema struct {
	keys     []string
	fields   map[string]formstate.Validator
	required map[string]struct{}
	refines  []formstate.Refinement
}

func (o *ObjectSchema) Decode(ctx context.Context, v any) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		if v == nil {
			return nil, leaf(formstate.CodeRequired, nil)
		}
		return nil, leaf(formstate.CodeInvalidType, nil, "expected", "object")
	}
	out := make(map[string]any, len(o.keys))
	var issues []*formstate.Issue
	for _, k := range o.keys {
		fv, present := m[k]
		if !present || fv == nil {
			if _, req := o.required[k]; !req {
				continue
			}
		}
		dv, err := o.fields[k].Decode(ctx, fv)
		if err != nil {
			issues = append(issues, formstate.PointerIssue(k, formstate.IssueFromError(err)))
			if formstate.IsFailFast(ctx) {
				break
			}
			continue
		}
		out[k] = dv
	}
	if len(issues) > 0 {
		return nil, formstate.CompositeIssue(issues...)
	}
	for _, r := range o.refines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fail, err := r.Check(ctx, out)
		if err != nil {
			is := leaf(formstate.CodeDependencyUnavailable, nil)
			is.Cause = err
			return nil, formstate.RefinementIssue(formstate.RefinePredicate, true, is)
		}
		if fail != nil {
			code := fail.Code
			if code == "" {
				code = formstate.CodeCustom
			}
			is := formstate.LeafIssue(code, fail.Message)
			return nil, formstate.RefinementIssue(formstate.RefinePredicate, true, formstate.IssueAtPath(fail.Path, is))
		}
	}
	return out, nil
}

// Default derives a member map from the member defaults. Optional members
// are included too so that form inputs have a value to bind to.
func (o *ObjectSchema) Default() any {
	out := make(map[string]any, len(o.keys))
	for _, k := range o.keys {
		out[k] = o.fields[k].Default()
	}
	return out
}

func (o *ObjectSchema) Container() bool { return true }

func (o *ObjectSchema) Keys() []string { return append([]string(nil), o.keys...) }

func (o *ObjectSchema) Child(key any) (formstate.Validator, bool) {
	k, ok := key.(string)
	if !ok {
		return nil, false
	}
	v, ok := o.fields[k]
	return v, ok
}
