// Package validate adapts go-playground/validator tags to formstate
// validators, so field rules can be written as "required,email" or
// "min=1,max=99" and reused from declarative form definitions.
package validate

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	formstate "github.com/reoring/formstate"
	"github.com/reoring/formstate/dsl"
)

var (
	mu       sync.RWMutex
	instance *validator.Validate
)

func init() {
	instance = validator.New(validator.WithRequiredStructEnabled())
	_ = instance.RegisterValidation("notblank", validators.NotBlank)
}

// RegisterValidation adds a custom tag to the shared validator instance.
// Register tags before building validators that use them.
func RegisterValidation(tag string, fn validator.Func) error {
	mu.Lock()
	defer mu.Unlock()
	return instance.RegisterValidation(tag, fn)
}

func shared() *validator.Validate {
	mu.RLock()
	defer mu.RUnlock()
	return instance
}

type tagged struct {
	inner formstate.Validator
	tag   string
	msg   string
}

// Tag runs the validator tag against the decoded output of inner. The tag is
// checked once against inner's default so that unknown tags fail here rather
// than on first use.
func Tag(inner formstate.Validator, tag string, msg ...string) (v formstate.Validator, err error) {
	if inner == nil {
		return nil, errors.New("validate: nil inner validator")
	}
	t := &tagged{inner: inner, tag: tag}
	if len(msg) > 0 {
		t.msg = msg[0]
	}
	if tag == "" {
		return t, nil
	}
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("validate: tag %q: %v", tag, r)
		}
	}()
	_ = shared().Var(inner.Default(), tag)
	return t, nil
}

// MustTag is like Tag but panics on error.
func MustTag(inner formstate.Validator, tag string, msg ...string) formstate.Validator {
	v, err := Tag(inner, tag, msg...)
	if err != nil {
		panic(err)
	}
	return v
}

// String is a string field checked by tag, e.g. String("required,email").
func String(tag string, msg ...string) formstate.Validator {
	return MustTag(dsl.String(), tag, msg...)
}

// Number is a number field checked by tag, e.g. Number("gte=1,lte=99").
// Numeric strings typed into inputs are accepted.
func Number(tag string, msg ...string) formstate.Validator {
	return MustTag(dsl.Number().CoerceFromString(), tag, msg...)
}

// Bool is a boolean field checked by tag.
func Bool(tag string, msg ...string) formstate.Validator {
	return MustTag(dsl.Bool(), tag, msg...)
}

func (t *tagged) Decode(ctx context.Context, v any) (any, error) {
	out, err := t.inner.Decode(ctx, v)
	if err != nil || t.tag == "" {
		return out, err
	}
	if err := shared().VarCtx(ctx, out, t.tag); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) && len(ves) > 0 {
			is := issueFor(ves[0])
			if t.msg != "" {
				is.Message = t.msg
			}
			return nil, is
		}
		return nil, err
	}
	return out, nil
}

func (t *tagged) Default() any                { return t.inner.Default() }
func (t *tagged) Unwrap() formstate.Validator { return t.inner }

// issueFor maps a failed tag to an issue code. Messages are left empty and
// rendered from the i18n dictionary.
func issueFor(fe validator.FieldError) *formstate.Issue {
	text := fe.Kind() == reflect.String || fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map
	var is *formstate.Issue
	switch fe.Tag() {
	case "required", "notblank":
		is = formstate.LeafIssue(formstate.CodeRequired, "")
	case "min", "gte", "gt":
		if text {
			is = formstate.LeafIssue(formstate.CodeTooShort, "").WithParams("min", fe.Param())
		} else {
			is = formstate.LeafIssue(formstate.CodeTooSmall, "").WithParams("min", fe.Param())
		}
	case "max", "lte", "lt", "len":
		if text {
			is = formstate.LeafIssue(formstate.CodeTooLong, "").WithParams("max", fe.Param())
		} else {
			is = formstate.LeafIssue(formstate.CodeTooBig, "").WithParams("max", fe.Param())
		}
	case "oneof":
		is = formstate.LeafIssue(formstate.CodeInvalidEnum, "").WithParams("allowed", fe.Param())
	case "email", "url", "uri", "uuid", "uuid4", "e164", "hostname", "ip", "ipv4", "ipv6", "datetime", "alpha", "alphanum", "numeric":
		is = formstate.LeafIssue(formstate.CodeInvalidFormat, "").WithParams("format", fe.Tag())
	default:
		is = formstate.LeafIssue(formstate.CodeCustom, "").WithParams("tag", fe.Tag(), "param", fe.Param())
	}
	is.Rule = fe.Tag()
	return is
}
