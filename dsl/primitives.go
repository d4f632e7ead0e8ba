package dsl

import (
	"context"
	"encoding/json"
	"math"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	formstate "github.com/reoring/formstate"
	"github.com/reoring/formstate/i18n"
)

// leaf builds a leaf issue with a translated message unless msg overrides it.
func leaf(code string, msg []string, kv ...any) *formstate.Issue {
	is := formstate.LeafIssue(code, "").WithParams(kv...)
	if len(msg) > 0 && msg[0] != "" {
		is.Message = msg[0]
		return is
	}
	data := make(map[string]string, len(is.Params))
	for k, v := range is.Params {
		switch t := v.(type) {
		case string:
			data[k] = t
		case int:
			data[k] = strconv.Itoa(t)
		case float64:
			data[k] = strconv.FormatFloat(t, 'g', -1, 64)
		}
	}
	is.Message = i18n.T(code, data)
	return is
}

type stringCheck func(s string) *formstate.Issue

// StringSchema decodes strings. Checks run in the order they were added and
// stop at the first failure.
type StringSchema struct {
	trim   bool
	checks []stringCheck
	def    string
}

// String returns a string schema. Its default is "".
func String() *StringSchema { return &StringSchema{} }

// Trim trims surrounding white space before the checks run.
func (s *StringSchema) Trim() *StringSchema { s.trim = true; return s }

// WithDefault sets the default value.
func (s *StringSchema) WithDefault(v string) *StringSchema { s.def = v; return s }

// NonEmpty rejects "" with a required issue.
func (s *StringSchema) NonEmpty(msg ...string) *StringSchema {
	s.checks = append(s.checks, func(v string) *formstate.Issue {
		if v == "" {
			return leaf(formstate.CodeRequired, msg)
		}
		return nil
	})
	return s
}

// Min requires at least n characters.
func (s *StringSchema) Min(n int, msg ...string) *StringSchema {
	s.checks = append(s.checks, func(v string) *formstate.Issue {
		if utf8.RuneCountInString(v) < n {
			return leaf(formstate.CodeTooShort, msg, "min", n)
		}
		return nil
	})
	return s
}

// Max allows at most n characters.
func (s *StringSchema) Max(n int, msg ...string) *StringSchema {
	s.checks = append(s.checks, func(v string) *formstate.Issue {
		if utf8.RuneCountInString(v) > n {
			return leaf(formstate.CodeTooLong, msg, "max", n)
		}
		return nil
	})
	return s
}

// Pattern requires a match of expr. It panics when expr does not compile.
func (s *StringSchema) Pattern(expr string, msg ...string) *StringSchema {
	re := regexp.MustCompile(expr)
	s.checks = append(s.checks, func(v string) *formstate.Issue {
		if !re.MatchString(v) {
			return leaf(formstate.CodePattern, msg, "pattern", expr)
		}
		return nil
	})
	return s
}

// Email requires a bare RFC 5322 address.
func (s *StringSchema) Email(msg ...string) *StringSchema {
	s.checks = append(s.checks, func(v string) *formstate.Issue {
		a, err := mail.ParseAddress(v)
		if err != nil || a.Address != v {
			return leaf(formstate.CodeInvalidFormat, msg, "format", "email")
		}
		return nil
	})
	return s
}

func (s *StringSchema) Decode(ctx context.Context, v any) (any, error) {
	str, ok := v.(string)
	if !ok {
		if v == nil {
			return nil, leaf(formstate.CodeRequired, nil)
		}
		return nil, leaf(formstate.CodeInvalidType, nil, "expected", "string")
	}
	if s.trim {
		str = strings.TrimSpace(str)
	}
	for _, c := range s.checks {
		if is := c(str); is != nil {
			return nil, is
		}
	}
	return str, nil
}

func (s *StringSchema) Default() any { return s.def }

type numberCheck func(f float64) *formstate.Issue

// NumberSchema decodes numbers (any Go integer or float kind, or
// json.Number) into float64.
type NumberSchema struct {
	coerceFromString bool
	checks           []numberCheck
	def              float64
}

// Number returns a number schema. Its default is 0.
func Number() *NumberSchema { return &NumberSchema{} }

// CoerceFromString also accepts numeric strings, as typed into text inputs.
func (n *NumberSchema) CoerceFromString() *NumberSchema { n.coerceFromString = true; return n }

// WithDefault sets the default value.
func (n *NumberSchema) WithDefault(v float64) *NumberSchema { n.def = v; return n }

// Min requires v >= lo.
func (n *NumberSchema) Min(lo float64, msg ...string) *NumberSchema {
	n.checks = append(n.checks, func(f float64) *formstate.Issue {
		if f < lo {
			return leaf(formstate.CodeTooSmall, msg, "min", lo)
		}
		return nil
	})
	return n
}

// Max requires v <= hi.
func (n *NumberSchema) Max(hi float64, msg ...string) *NumberSchema {
	n.checks = append(n.checks, func(f float64) *formstate.Issue {
		if f > hi {
			return leaf(formstate.CodeTooBig, msg, "max", hi)
		}
		return nil
	})
	return n
}

// Int requires an integral value.
func (n *NumberSchema) Int(msg ...string) *NumberSchema {
	n.checks = append(n.checks, func(f float64) *formstate.Issue {
		if f != math.Trunc(f) {
			return leaf(formstate.CodeInvalidType, msg, "expected", "integer")
		}
		return nil
	})
	return n
}

func (n *NumberSchema) Decode(ctx context.Context, v any) (any, error) {
	f, ok := toFloat(v, n.coerceFromString)
	if !ok {
		if v == nil {
			return nil, leaf(formstate.CodeRequired, nil)
		}
		return nil, leaf(formstate.CodeInvalidType, nil, "expected", "number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, leaf(formstate.CodeInvalidType, nil, "expected", "number")
	}
	for _, c := range n.checks {
		if is := c(f); is != nil {
			return nil, is
		}
	}
	return f, nil
}

// Default returns the default as an int when it is integral, so fresh
// items hold 0 rather than 0.0.
func (n *NumberSchema) Default() any {
	if n.def == math.Trunc(n.def) && math.Abs(n.def) < 1<<53 {
		return int(n.def)
	}
	return n.def
}

func toFloat(v any, fromString bool) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		if !fromString {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

// BoolSchema decodes booleans.
type BoolSchema struct {
	mustBeTrue bool
	msg        []string
	def        bool
}

// Bool returns a bool schema. Its default is false.
func Bool() *BoolSchema { return &BoolSchema{} }

// True requires the value to be true (for example, accepting terms).
func (b *BoolSchema) True(msg ...string) *BoolSchema { b.mustBeTrue = true; b.msg = msg; return b }

// WithDefault sets the default value.
func (b *BoolSchema) WithDefault(v bool) *BoolSchema { b.def = v; return b }

func (b *BoolSchema) Decode(ctx context.Context, v any) (any, error) {
	x, ok := v.(bool)
	if !ok {
		if v == nil {
			return nil, leaf(formstate.CodeRequired, nil)
		}
		return nil, leaf(formstate.CodeInvalidType, nil, "expected", "boolean")
	}
	if b.mustBeTrue && !x {
		return nil, leaf(formstate.CodeCustom, b.msg)
	}
	return x, nil
}

func (b *BoolSchema) Default() any { return b.def }
