package formdef

import (
	"context"
	"errors"
	"fmt"
	"math"

	formstate "github.com/reoring/formstate"
	"github.com/reoring/formstate/dsl"
	"github.com/reoring/formstate/rules"
	"github.com/reoring/formstate/validate"
)

// Compiled is a definition ready to back forms.
type Compiled struct {
	Name     string
	Schema   *formstate.Schema
	Mode     formstate.Mode
	Defaults map[string]any
}

// Compile builds the schema, mode and defaults of def. All field and rule
// errors are reported together.
func Compile(def *Definition) (*Compiled, error) {
	if def == nil {
		return nil, errors.New("formdef: nil definition")
	}
	if len(def.Fields) == 0 {
		return nil, errors.New("formdef: definition has no fields")
	}
	var errs []error
	fields := make([]formstate.FieldDef, 0, len(def.Fields))
	seen := map[string]struct{}{}
	for i := range def.Fields {
		fs := &def.Fields[i]
		if fs.Key == "" {
			errs = append(errs, fmt.Errorf("fields[%d]: missing key", i))
			continue
		}
		if _, dup := seen[fs.Key]; dup {
			errs = append(errs, fmt.Errorf("fields[%d]: duplicate key %q", i, fs.Key))
			continue
		}
		seen[fs.Key] = struct{}{}
		v, err := compileField(fs, fs.Key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if fs.Optional {
			v = dsl.Optional(v)
		}
		fields = append(fields, formstate.Field(fs.Key, v))
	}
	refs, err := compileRules(def.Refinements, "refinements")
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("formdef: %w", errors.Join(errs...))
	}

	mode := formstate.OnSubmit()
	if def.Mode != nil {
		mode = *def.Mode
	}
	return &Compiled{
		Name:     def.Name,
		Schema:   formstate.NewSchema(fields...).Refine(refs...),
		Mode:     mode,
		Defaults: def.Defaults,
	}, nil
}

// Options returns the form options implied by the definition.
func (c *Compiled) Options() []formstate.Option {
	return []formstate.Option{formstate.WithMode(c.Mode)}
}

// NewForm creates and initializes a form for the definition. opts are
// applied after the definition's own options.
func (c *Compiled) NewForm(opts ...formstate.Option) (*formstate.Form, error) {
	f := formstate.New(c.Schema, append(c.Options(), opts...)...)
	if err := f.Initialize(c.Defaults); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// Check decodes values against the schema and returns the routed errors,
// keyed by path. A nil map means the values are valid.
func (c *Compiled) Check(ctx context.Context, values map[string]any) (map[string]formstate.FieldError, error) {
	_, err := c.Schema.Decode(ctx, values)
	if err == nil {
		return nil, nil
	}
	is, ok := formstate.AsIssue(err)
	if !ok {
		return nil, err
	}
	return formstate.RouteErrors(is), nil
}

func compileField(fs *FieldSpec, at string) (v formstate.Validator, err error) {
	// builders panic on bad patterns or tags
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("%s: %v", at, r)
		}
	}()
	switch fs.Type {
	case "string", "":
		s := dsl.String()
		if fs.Trim {
			s = s.Trim()
		}
		if fs.Min != nil {
			s = s.Min(int(*fs.Min))
		}
		if fs.Max != nil {
			s = s.Max(int(*fs.Max))
		}
		if fs.Pattern != "" {
			s = s.Pattern(fs.Pattern)
		}
		if d, ok := fs.Default.(string); ok {
			s = s.WithDefault(d)
		}
		v = s
	case "number", "integer":
		n := dsl.Number().CoerceFromString()
		if fs.Type == "integer" {
			n = n.Int()
		}
		if fs.Min != nil {
			n = n.Min(*fs.Min)
		}
		if fs.Max != nil {
			n = n.Max(*fs.Max)
		}
		if d, ok := toFloat(fs.Default); ok {
			n = n.WithDefault(d)
		}
		v = n
	case "bool", "boolean":
		b := dsl.Bool()
		if d, ok := fs.Default.(bool); ok {
			b = b.WithDefault(d)
		}
		v = b
	case "enum":
		if len(fs.Values) == 0 {
			return nil, fmt.Errorf("%s: enum needs values", at)
		}
		v = dsl.Enum(fs.Values...)
	case "object":
		v, err = compileObject(fs, at)
		if err != nil {
			return nil, err
		}
	case "array":
		if fs.Item == nil {
			return nil, fmt.Errorf("%s: array needs item", at)
		}
		item, err := compileField(fs.Item, at+"[]")
		if err != nil {
			return nil, err
		}
		if fs.Item.Optional {
			item = dsl.Optional(item)
		}
		a := dsl.Array(item)
		if fs.Min != nil {
			a = a.Min(int(*fs.Min))
		}
		if fs.Max != nil {
			a = a.Max(int(*fs.Max))
		}
		v = a
	default:
		return nil, fmt.Errorf("%s: unknown type %q", at, fs.Type)
	}
	if fs.Tags != "" {
		v, err = validate.Tag(v, fs.Tags, fs.Message)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", at, err)
		}
	}
	return v, nil
}

func compileObject(fs *FieldSpec, at string) (formstate.Validator, error) {
	if len(fs.Fields) == 0 {
		return nil, fmt.Errorf("%s: object needs fields", at)
	}
	b := dsl.Object()
	var errs []error
	for i := range fs.Fields {
		m := &fs.Fields[i]
		mv, err := compileField(m, formstate.Path(at, m.Key))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		step := b.Field(m.Key, mv)
		if m.Optional {
			step.Optional()
		}
	}
	refs, err := compileRules(fs.Rules, at+".rules")
	if err != nil {
		errs = append(errs, err)
	}
	for _, r := range refs {
		b.Check(r)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return b.Build()
}

func compileRules(specs []RuleSpec, at string) ([]formstate.Refinement, error) {
	out := make([]formstate.Refinement, 0, len(specs))
	var errs []error
	for i, rs := range specs {
		r, err := compileRule(rs)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s[%d]: %w", at, i, err))
			continue
		}
		out = append(out, r)
	}
	return out, errors.Join(errs...)
}

func compileRule(rs RuleSpec) (formstate.Refinement, error) {
	var path []string
	if rs.Path != "" {
		if _, err := formstate.ParsePath(rs.Path); err != nil {
			return nil, err
		}
		path = []string{rs.Path}
	}
	msg := rs.Message
	if msg == "" {
		msg = "invalid value"
	}
	switch rs.Kind {
	case "expr":
		return rules.Expr(rs.Expr, msg, path...)
	case "cel":
		return rules.CEL(rs.Expr, msg, path...)
	case "js":
		return rules.JS(rs.Expr, msg, path...)
	case "matches":
		if rs.Path == "" || rs.Other == "" {
			return nil, errors.New("matches needs path and other")
		}
		return rules.Matches(rs.Path, rs.Other, msg), nil
	case "required":
		if rs.Path == "" {
			return nil, errors.New("required needs path")
		}
		return rules.Required(rs.Path, rs.Message), nil
	case "atLeastOne":
		if rs.Path == "" {
			return nil, errors.New("atLeastOne needs path")
		}
		return rules.AtLeastOne(rs.Path, rs.Message), nil
	case "uniqueBy":
		if rs.Path == "" {
			return nil, errors.New("uniqueBy needs path")
		}
		return rules.UniqueBy(rs.Path, rs.Key, rs.Message), nil
	}
	return nil, fmt.Errorf("unknown rule kind %q", rs.Kind)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, !math.IsNaN(t)
	}
	return 0, false
}
