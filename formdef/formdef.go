// Package formdef loads declarative form definitions from YAML or JSON and
// compiles them into formstate schemas.
//
// A definition lists fields with a type, optional validator tags
// (go-playground/validator syntax), nested object members or array items,
// whole-form refinements written in expr, CEL or JavaScript, a validation
// mode and default values:
//
//	name: signup
//	mode:
//	  onChange: {debounce: 200ms, autoSubmit: false}
//	fields:
//	  - {key: email, type: string, tags: "required,email"}
//	  - {key: password, type: string, min: 8}
//	  - {key: confirm, type: string}
//	  - key: items
//	    type: array
//	    min: 1
//	    item:
//	      type: object
//	      fields:
//	        - {key: sku, type: string, tags: required}
//	        - {key: qty, type: integer, min: 1}
//	refinements:
//	  - {kind: matches, path: confirm, other: password, message: Passwords do not match}
//	  - {kind: uniqueBy, path: items, key: sku}
//	  - {kind: expr, expr: "len(items) <= 20", path: items, message: Too many items}
package formdef

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	formstate "github.com/reoring/formstate"
)

// Definition is the declarative form document.
type Definition struct {
	Name        string          `json:"name,omitempty" yaml:"name,omitempty"`
	Mode        *formstate.Mode `json:"mode,omitempty" yaml:"mode,omitempty"`
	Fields      []FieldSpec     `json:"fields" yaml:"fields"`
	Refinements []RuleSpec      `json:"refinements,omitempty" yaml:"refinements,omitempty"`
	Defaults    map[string]any  `json:"defaults,omitempty" yaml:"defaults,omitempty"`
}

// FieldSpec declares one field, object member or array item.
type FieldSpec struct {
	Key      string   `json:"key,omitempty" yaml:"key,omitempty"`
	Type     string   `json:"type" yaml:"type"` // string, number, integer, bool, enum, object, array
	Tags     string   `json:"tags,omitempty" yaml:"tags,omitempty"`
	Message  string   `json:"message,omitempty" yaml:"message,omitempty"`
	Optional bool     `json:"optional,omitempty" yaml:"optional,omitempty"`
	Default  any      `json:"default,omitempty" yaml:"default,omitempty"` // scalar types
	Values   []string `json:"values,omitempty" yaml:"values,omitempty"`   // enum
	Pattern  string   `json:"pattern,omitempty" yaml:"pattern,omitempty"` // string
	Trim     bool     `json:"trim,omitempty" yaml:"trim,omitempty"`       // string
	// Min and Max bound string length, number value or array length.
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`

	Fields []FieldSpec `json:"fields,omitempty" yaml:"fields,omitempty"` // object
	Rules  []RuleSpec  `json:"rules,omitempty" yaml:"rules,omitempty"`   // object
	Item   *FieldSpec  `json:"item,omitempty" yaml:"item,omitempty"`     // array
}

// RuleSpec declares a refinement. Paths are relative to the enclosing object
// (the form itself for top-level refinements).
type RuleSpec struct {
	Kind    string `json:"kind" yaml:"kind"` // expr, cel, js, matches, required, atLeastOne, uniqueBy
	Expr    string `json:"expr,omitempty" yaml:"expr,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	Other   string `json:"other,omitempty" yaml:"other,omitempty"` // matches
	Key     string `json:"key,omitempty" yaml:"key,omitempty"`     // uniqueBy
}

// Parse decodes a definition. Duplicate keys are rejected in both formats.
func Parse(data []byte, format Format) (*Definition, error) {
	// reject duplicate keys before binding
	if _, err := readAny(data, format); err != nil {
		return nil, fmt.Errorf("formdef: %w", err)
	}
	def := &Definition{}
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		dec.UseNumber()
		if err := dec.Decode(def); err != nil {
			return nil, fmt.Errorf("formdef: %w", err)
		}
	case FormatYAML, "":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(def); err != nil {
			return nil, fmt.Errorf("formdef: %w", err)
		}
	default:
		return nil, fmt.Errorf("formdef: unknown format %q", format)
	}
	def.Defaults = normalize(def.Defaults)
	normalizeSpecs(def.Fields)
	return def, nil
}

func readAny(data []byte, format Format) (any, error) {
	if format == FormatJSON {
		return readJSON(data)
	}
	return readYAML(data)
}

// FormatOf guesses the format from a file name; anything but .json is YAML.
func FormatOf(name string) Format {
	if strings.EqualFold(filepath.Ext(name), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Load reads and parses a definition file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, FormatOf(path))
}

// LoadValues reads a values file.
func LoadValues(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ReadValues(data, FormatOf(path))
}

func normalizeSpecs(specs []FieldSpec) {
	for i := range specs {
		normalizeSpec(&specs[i])
	}
}

func normalizeSpec(s *FieldSpec) {
	s.Default = normalizeValue(s.Default)
	normalizeSpecs(s.Fields)
	if s.Item != nil {
		normalizeSpec(s.Item)
	}
}

// normalize converts decoded values (which may contain map[any]any or
// json.Number) into form values.
func normalize(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return normalize(t)
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			ks, ok := k.(string)
			if !ok {
				ks = fmt.Sprint(k)
			}
			out[ks] = normalizeValue(vv)
		}
		return out
	case []any:
		arr := make([]any, len(t))
		for i := range t {
			arr[i] = normalizeValue(t[i])
		}
		return arr
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case int:
		return int64(t)
	default:
		return v
	}
}
