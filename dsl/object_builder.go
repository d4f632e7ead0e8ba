package dsl

import (
	"context"
	"errors"
	"fmt"

	formstate "github.com/reoring/formstate"
)

type objectBuilder struct {
	keys     []string
	fields   map[string]formstate.Validator
	required map[string]struct{}
	refines  []formstate.Refinement
	err      error
}

type fieldStep struct {
	b    *objectBuilder
	name string
}

// Object creates a new object builder. Fields are required unless marked
// Optional; unknown keys are dropped from the decoded value.
func Object() *objectBuilder {
	return &objectBuilder{
		fields:   map[string]formstate.Validator{},
		required: map[string]struct{}{},
	}
}

// Field registers a field. Declaration order is the decode and issue order.
func (b *objectBuilder) Field(name string, v formstate.Validator) *fieldStep {
	switch {
	case name == "":
		b.err = errors.Join(b.err, errors.New("dsl: empty field name"))
	case v == nil:
		b.err = errors.Join(b.err, fmt.Errorf("dsl: field %q has no validator", name))
	default:
		if _, dup := b.fields[name]; dup {
			b.err = errors.Join(b.err, fmt.Errorf("dsl: duplicate field %q", name))
		} else {
			b.keys = append(b.keys, name)
		}
		b.fields[name] = v
	}
	b.required[name] = struct{}{}
	return &fieldStep{b: b, name: name}
}

// Required marks the field as required (default) and returns the builder.
func (f *fieldStep) Required() *objectBuilder {
	f.b.required[f.name] = struct{}{}
	return f.b
}

// Optional allows the field to be missing or nil and returns the builder.
func (f *fieldStep) Optional() *objectBuilder {
	delete(f.b.required, f.name)
	return f.b
}

func (f *fieldStep) Field(name string, v formstate.Validator) *fieldStep { return f.b.Field(name, v) }
func (f *fieldStep) Refine(message string, pred func(map[string]any) bool, path ...string) *objectBuilder {
	return f.b.Refine(message, pred, path...)
}
func (f *fieldStep) Check(r formstate.Refinement) *objectBuilder { return f.b.Check(r) }
func (f *fieldStep) Build() (*ObjectSchema, error)               { return f.b.Build() }
func (f *fieldStep) MustBuild() *ObjectSchema                    { return f.b.MustBuild() }

// Refine adds an object-level predicate. It runs after every field decoded
// and blames path (relative to the object) when it returns false.
func (b *objectBuilder) Refine(message string, pred func(map[string]any) bool, path ...string) *objectBuilder {
	if pred == nil {
		return b
	}
	return b.RefineContext(message, func(_ context.Context, m map[string]any) (bool, error) {
		return pred(m), nil
	}, path...)
}

// RefineContext adds an object-level predicate that may block on I/O.
func (b *objectBuilder) RefineContext(message string, fn func(context.Context, map[string]any) (bool, error), path ...string) *objectBuilder {
	if fn == nil {
		return b
	}
	return b.Check(formstate.RefineAsync(fn, message, path...))
}

// Check adds an object-level refinement, such as the ones in package rules.
// Failure paths are relative to the object.
func (b *objectBuilder) Check(r formstate.Refinement) *objectBuilder {
	if r != nil {
		b.refines = append(b.refines, r)
	}
	return b
}

// Build validates the builder and returns the schema.
func (b *objectBuilder) Build() (*ObjectSchema, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &ObjectSchema{
		keys:     append([]string(nil), b.keys...),
		fields:   b.fields,
		required: b.required,
		refines:  b.refines,
	}, nil
}

// MustBuild is like Build but panics on error.
func (b *objectBuilder) MustBuild() *ObjectSchema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}
