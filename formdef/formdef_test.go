package formdef_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	formstate "github.com/reoring/formstate"
	"github.com/reoring/formstate/formdef"
)

const signupYAML = `
name: signup
mode:
  onChange: {debounce: 150ms}
fields:
  - {key: email, type: string, tags: "required,email", message: Enter a valid email}
  - {key: password, type: string, min: 8}
  - {key: confirm, type: string}
  - {key: plan, type: enum, values: [free, pro]}
  - {key: age, type: integer, min: 18, optional: true}
  - key: items
    type: array
    item:
      type: object
      fields:
        - {key: sku, type: string, tags: required}
        - {key: qty, type: integer, min: 1, default: 1}
refinements:
  - {kind: matches, path: confirm, other: password, message: Passwords do not match}
  - {kind: atLeastOne, path: items, message: Add an item}
  - {kind: uniqueBy, path: items, key: sku}
  - {kind: expr, expr: "plan != 'free' || len(items) <= 2", path: items, message: Free plans allow two items}
defaults:
  plan: pro
`

func compileSignup(t *testing.T) *formdef.Compiled {
	t.Helper()
	def, err := formdef.Parse([]byte(signupYAML), formdef.FormatYAML)
	require.NoError(t, err)
	c, err := formdef.Compile(def)
	require.NoError(t, err)
	return c
}

func TestCompile_ModeAndDefaults(t *testing.T) {
	c := compileSignup(t)
	require.Equal(t, "signup", c.Name)
	require.Equal(t, formstate.OnChange(150*time.Millisecond, false), c.Mode)
	require.Equal(t, []string{"email", "password", "confirm", "plan", "age", "items"}, c.Schema.Keys())

	defaults := c.Schema.Defaults()
	require.Equal(t, "free", defaults["plan"])
	require.Equal(t, []any{}, defaults["items"])

	item, ok := c.Schema.ValidatorAt("items[0]")
	require.True(t, ok)
	require.Equal(t, map[string]any{"sku": "", "qty": 1}, item.Default())
}

func TestCompiled_Check(t *testing.T) {
	c := compileSignup(t)
	ctx := context.Background()

	valid := map[string]any{
		"email": "a@example.com", "password": "secret-pw", "confirm": "secret-pw",
		"plan": "pro", "age": nil,
		"items": []any{map[string]any{"sku": "A", "qty": 2}},
	}
	errs, err := c.Check(ctx, valid)
	require.NoError(t, err)
	require.Nil(t, errs)

	fieldErrs, err := c.Check(ctx, map[string]any{
		"email": "nope", "password": "short", "confirm": "", "plan": "gold",
		"items": []any{map[string]any{"sku": "", "qty": 0}},
	})
	require.NoError(t, err)
	require.Equal(t, "Enter a valid email", fieldErrs["email"].Message)
	require.Contains(t, fieldErrs, "password")
	require.Contains(t, fieldErrs, "plan")
	require.Contains(t, fieldErrs, "items[0].sku")
	require.Contains(t, fieldErrs, "items[0].qty")
	for _, fe := range fieldErrs {
		require.Equal(t, formstate.SourceField, fe.Source)
	}

	refErrs, err := c.Check(ctx, map[string]any{
		"email": "a@example.com", "password": "secret-pw", "confirm": "other-pw",
		"plan": "pro", "items": []any{},
	})
	require.NoError(t, err)
	require.Equal(t, map[string]formstate.FieldError{
		"confirm": {Message: "Passwords do not match", Source: formstate.SourceRefinement},
	}, refErrs)

	dupErrs, err := c.Check(ctx, map[string]any{
		"email": "a@example.com", "password": "secret-pw", "confirm": "secret-pw",
		"plan": "free", "items": []any{
			map[string]any{"sku": "A", "qty": 1},
			map[string]any{"sku": "A", "qty": 1},
		},
	})
	require.NoError(t, err)
	require.Contains(t, dupErrs, "items[1].sku")
	require.Equal(t, formstate.SourceRefinement, dupErrs["items[1].sku"].Source)
}

func TestCompiled_NewForm(t *testing.T) {
	c := compileSignup(t)
	f, err := c.NewForm()
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, "pro", f.Value("plan"))
	require.Equal(t, c.Mode, f.Mode())
	require.False(t, f.IsDirty())
}

func TestParse_JSONAndErrors(t *testing.T) {
	def, err := formdef.Parse([]byte(`{
		"mode": "onSubmit",
		"fields": [{"key": "n", "type": "number", "default": 2}],
		"refinements": [{"kind": "cel", "expr": "n < 10", "path": "n", "message": "too big"}]
	}`), formdef.FormatJSON)
	require.NoError(t, err)
	c, err := formdef.Compile(def)
	require.NoError(t, err)
	require.Equal(t, formstate.OnSubmit(), c.Mode)
	require.Equal(t, 2, c.Schema.Defaults()["n"])

	errs, err := c.Check(context.Background(), map[string]any{"n": 12})
	require.NoError(t, err)
	require.Equal(t, "too big", errs["n"].Message)

	_, err = formdef.Parse([]byte(`{"fields": [], "fields": []}`), formdef.FormatJSON)
	var dup *formdef.DuplicateKeyError
	require.True(t, errors.As(err, &dup))
	require.Equal(t, "fields", dup.Key)

	_, err = formdef.Parse([]byte("fields: []\nfields: []\n"), formdef.FormatYAML)
	require.True(t, errors.As(err, &dup))
	require.Equal(t, 2, dup.Line)

	_, err = formdef.Parse([]byte("fields: []\nbogus: 1\n"), formdef.FormatYAML)
	require.Error(t, err)
}

func TestCompile_ReportsAllErrors(t *testing.T) {
	def := &formdef.Definition{
		Fields: []formdef.FieldSpec{
			{Key: "a", Type: "mystery"},
			{Key: "b", Type: "string", Pattern: "("},
			{Key: "c", Type: "string", Tags: "no_such_tag"},
		},
		Refinements: []formdef.RuleSpec{{Kind: "expr", Expr: "a <"}},
	}
	_, err := formdef.Compile(def)
	require.Error(t, err)
	for _, want := range []string{"mystery", "b:", "no_such_tag", "refinements[0]"} {
		require.Contains(t, err.Error(), want)
	}
}

func TestReadValues(t *testing.T) {
	v, err := formdef.ReadValues([]byte(`{"a": 1, "b": 1.5, "c": [true, null, "x"]}`), formdef.FormatJSON)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"a": int64(1), "b": 1.5, "c": []any{true, nil, "x"}}, v)

	v, err = formdef.ReadValues([]byte("a: 1\nb: 1.5\nc: [true, ~, x]\n"), formdef.FormatYAML)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"a": int64(1), "b": 1.5, "c": []any{true, nil, "x"}}, v)

	_, err = formdef.ReadValues([]byte(`{"a": {"x": 1, "x": 2}}`), formdef.FormatJSON)
	var dup *formdef.DuplicateKeyError
	require.True(t, errors.As(err, &dup))
	require.Equal(t, "a", dup.Path)

	_, err = formdef.ReadValues([]byte(`[1]`), formdef.FormatJSON)
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "signup.yaml")
	require.NoError(t, os.WriteFile(p, []byte(signupYAML), 0o600))
	def, err := formdef.Load(p)
	require.NoError(t, err)
	require.Len(t, def.Fields, 6)
	require.Equal(t, formdef.FormatJSON, formdef.FormatOf("x.JSON"))
}
