package formstate

import (
	"context"

	"github.com/reoring/formstate/internal/tree"
)

// Validator decodes one value. A failing Decode returns an error that
// carries an *Issue (see AsIssue); any other error is treated as a
// parse_error leaf.
type Validator interface {
	Decode(ctx context.Context, v any) (any, error)
	// Default returns the value a new, empty instance starts with.
	Default() any
}

// Structured is implemented by validators that may report whether they
// describe a container (object, array, union or lazy schema).
type Structured interface {
	Container() bool
}

// Parent is implemented by validators with addressable children. key is a
// string member or an int index.
type Parent interface {
	Child(key any) (Validator, bool)
}

// Members is implemented by object validators that know their member keys
// in declaration order.
type Members interface {
	Keys() []string
}

// Unwrapper is implemented by wrapper validators (refine, transform, lazy,
// optional) so capability lookups reach the underlying schema.
type Unwrapper interface {
	Unwrap() Validator
}

// IsContainer reports whether v describes a container.
func IsContainer(v Validator) bool {
	for v != nil {
		if s, ok := v.(Structured); ok {
			return s.Container()
		}
		u, ok := v.(Unwrapper)
		if !ok {
			return false
		}
		v = u.Unwrap()
	}
	return false
}

// ChildValidator resolves the validator for a path relative to v.
func ChildValidator(v Validator, path string) (Validator, bool) {
	segs, err := tree.Parse(path)
	if err != nil {
		return nil, false
	}
	cur := v
	for _, seg := range segs {
		next, ok := childOf(cur, seg.Value())
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, cur != nil
}

func childOf(v Validator, key any) (Validator, bool) {
	for v != nil {
		if p, ok := v.(Parent); ok {
			return p.Child(key)
		}
		u, ok := v.(Unwrapper)
		if !ok {
			return nil, false
		}
		v = u.Unwrap()
	}
	return nil, false
}

// MemberKeys returns the member keys of an object validator, or nil.
func MemberKeys(v Validator) []string {
	for v != nil {
		if m, ok := v.(Members); ok {
			return m.Keys()
		}
		u, ok := v.(Unwrapper)
		if !ok {
			return nil
		}
		v = u.Unwrap()
	}
	return nil
}

// ValidatorFunc adapts a decode function and a default value.
func ValidatorFunc(def any, decode func(ctx context.Context, v any) (any, error)) Validator {
	return funcValidator{def: def, decode: decode}
}

type funcValidator struct {
	def    any
	decode func(context.Context, any) (any, error)
}

func (f funcValidator) Decode(ctx context.Context, v any) (any, error) {
	if f.decode == nil {
		return v, nil
	}
	return f.decode(ctx, v)
}

func (f funcValidator) Default() any { return f.def }

// ---- Decode-time context options (exported for subpackages) ----

type contextKey int

const (
	_ctxKeyFailFast contextKey = iota
)

// WithFailFast returns a child context that marks fail-fast decoding.
// Per-field validation uses it; whole-form validation collects all issues.
func WithFailFast(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, _ctxKeyFailFast, enabled)
}

// IsFailFast reports whether the current decode should stop on the first issue.
func IsFailFast(ctx context.Context) bool {
	v := ctx.Value(_ctxKeyFailFast)
	b, _ := v.(bool)
	return b
}
