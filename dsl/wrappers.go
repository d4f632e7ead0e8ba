package dsl

import (
	"context"
	"sync"

	formstate "github.com/reoring/formstate"
)

// refined wraps a validator with a predicate over its decoded output.
type refined struct {
	inner formstate.Validator
	pred  func(ctx context.Context, v any) (bool, error)
	code  string
	msg   string
	path  string
}

// Refine adds a predicate to v. When v is a container (object or array) the
// failure is a predicate refinement blamed on the container; otherwise it is
// a value-level refinement reported on the field itself.
func Refine(v formstate.Validator, pred func(any) bool, message string) formstate.Validator {
	return &refined{inner: v, code: formstate.CodeCustom, msg: message,
		pred: func(_ context.Context, x any) (bool, error) { return pred(x), nil }}
}

// RefineAt is Refine for containers that blames a member path instead of the
// container itself.
func RefineAt(v formstate.Validator, path string, pred func(any) bool, message string) formstate.Validator {
	r := Refine(v, pred, message).(*refined)
	r.path = path
	return r
}

// RefineContext is Refine with a context-aware predicate that may fail.
func RefineContext(v formstate.Validator, pred func(context.Context, any) (bool, error), message string) formstate.Validator {
	return &refined{inner: v, code: formstate.CodeCustom, msg: message, pred: pred}
}

func (r *refined) Decode(ctx context.Context, v any) (any, error) {
	out, err := r.inner.Decode(ctx, v)
	if err != nil {
		return nil, err
	}
	container := formstate.IsContainer(r.inner)
	ok, err := r.pred(ctx, out)
	if err != nil {
		is := leaf(formstate.CodeDependencyUnavailable, nil)
		is.Cause = err
		return nil, formstate.RefinementIssue(formstate.RefinePredicate, container, is)
	}
	if ok {
		return out, nil
	}
	is := formstate.LeafIssue(r.code, r.msg)
	if !container {
		return nil, formstate.RefinementIssue(formstate.RefineFrom, false, is)
	}
	return nil, formstate.RefinementIssue(formstate.RefinePredicate, true, formstate.IssueAtPath(r.path, is))
}

func (r *refined) Default() any                { return r.inner.Default() }
func (r *refined) Unwrap() formstate.Validator { return r.inner }
func (r *refined) Container() bool             { return formstate.IsContainer(r.inner) }

// transformed maps the decoded output of a validator.
type transformed struct {
	inner formstate.Validator
	fn    func(any) (any, error)
}

// Transform post-processes the decoded value. A returned error becomes a
// transformation issue; errors that are already issues are kept as the
// child.
func Transform(v formstate.Validator, fn func(any) (any, error)) formstate.Validator {
	return &transformed{inner: v, fn: fn}
}

func (t *transformed) Decode(ctx context.Context, v any) (any, error) {
	out, err := t.inner.Decode(ctx, v)
	if err != nil {
		return nil, err
	}
	res, err := t.fn(out)
	if err != nil {
		return nil, formstate.TransformationIssue(formstate.IssueFromError(err))
	}
	return res, nil
}

func (t *transformed) Default() any                { return t.inner.Default() }
func (t *transformed) Unwrap() formstate.Validator { return t.inner }

// optional accepts nil in addition to whatever inner accepts.
type optional struct{ inner formstate.Validator }

// Optional lets v accept nil, which decodes to nil.
func Optional(v formstate.Validator) formstate.Validator { return &optional{inner: v} }

func (o *optional) Decode(ctx context.Context, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return o.inner.Decode(ctx, v)
}

func (o *optional) Default() any                { return o.inner.Default() }
func (o *optional) Unwrap() formstate.Validator { return o.inner }

// lazy defers construction of a validator, for recursive structures.
type lazy struct {
	once sync.Once
	fn   func() formstate.Validator
	v    formstate.Validator
}

// Lazy builds the validator on first use. It always reports itself as a
// container.
func Lazy(fn func() formstate.Validator) formstate.Validator { return &lazy{fn: fn} }

func (l *lazy) get() formstate.Validator {
	l.once.Do(func() { l.v = l.fn() })
	return l.v
}

func (l *lazy) Decode(ctx context.Context, v any) (any, error) { return l.get().Decode(ctx, v) }
func (l *lazy) Default() any                                   { return l.get().Default() }
func (l *lazy) Container() bool                                { return true }
func (l *lazy) Unwrap() formstate.Validator                    { return l.get() }
