package dsl

import (
	"context"
	"fmt"
	"slices"

	formstate "github.com/reoring/formstate"
)

// EnumSchema accepts one of a fixed list of strings.
type EnumSchema struct {
	values []string
	msg    []string
}

// Enum returns a schema accepting exactly the given values. The first value
// is the default.
func Enum(values ...string) *EnumSchema {
	if len(values) == 0 {
		panic("dsl: Enum requires at least one value")
	}
	return &EnumSchema{values: slices.Clone(values)}
}

// Message overrides the invalid_enum message.
func (e *EnumSchema) Message(msg string) *EnumSchema { e.msg = []string{msg}; return e }

// Values returns the allowed values.
func (e *EnumSchema) Values() []string { return slices.Clone(e.values) }

func (e *EnumSchema) Decode(ctx context.Context, v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		if v == nil {
			return nil, leaf(formstate.CodeRequired, nil)
		}
		return nil, leaf(formstate.CodeInvalidType, nil, "expected", "string")
	}
	if !slices.Contains(e.values, s) {
		return nil, leaf(formstate.CodeInvalidEnum, e.msg, "allowed", fmt.Sprint(e.values))
	}
	return s, nil
}

func (e *EnumSchema) Default() any { return e.values[0] }

// unionSchema tries each alternative in order and keeps the first that
// decodes. The default comes from the first alternative.
type unionSchema struct {
	alts []formstate.Validator
}

// Union returns a validator accepting any value one of vs accepts.
func Union(vs ...formstate.Validator) formstate.Validator {
	if len(vs) == 0 {
		panic("dsl: Union requires at least one alternative")
	}
	return &unionSchema{alts: slices.Clone(vs)}
}

func (u *unionSchema) Decode(ctx context.Context, v any) (any, error) {
	for _, alt := range u.alts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := alt.Decode(ctx, v)
		if err == nil {
			return out, nil
		}
		if _, ok := formstate.AsIssue(err); !ok {
			return nil, err
		}
	}
	return nil, leaf(formstate.CodeUnionNoMatch, nil)
}

func (u *unionSchema) Default() any { return u.alts[0].Default() }
