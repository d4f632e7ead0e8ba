package formstate

import (
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// ValidationMode selects when per-field validation runs and when errors
// become visible.
type ValidationMode int

const (
	ValidateOnSubmit ValidationMode = iota
	ValidateOnBlur
	ValidateOnChange
)

func (m ValidationMode) String() string {
	switch m {
	case ValidateOnBlur:
		return "onBlur"
	case ValidateOnChange:
		return "onChange"
	default:
		return "onSubmit"
	}
}

// Mode is the validation and auto-submit configuration of a form.
//
// Its serialized forms are
//
//	"onSubmit"
//	{onBlur: {autoSubmit: true}}
//	{onChange: {debounce: "100ms", autoSubmit: true}}
//
// The string forms "onBlur" and "onChange" are accepted as shorthands
// without auto-submit.
type Mode struct {
	Validation ValidationMode
	Debounce   time.Duration // onChange only
	AutoSubmit bool          // onBlur and onChange only
}

// OnSubmit validates only on submit.
func OnSubmit() Mode { return Mode{Validation: ValidateOnSubmit} }

// OnBlur validates on blur and optionally submits on blur.
func OnBlur(autoSubmit bool) Mode {
	return Mode{Validation: ValidateOnBlur, AutoSubmit: autoSubmit}
}

// OnChange validates after every change, debounced, and optionally submits
// once the debounce window elapses.
func OnChange(debounce time.Duration, autoSubmit bool) Mode {
	return Mode{Validation: ValidateOnChange, Debounce: debounce, AutoSubmit: autoSubmit}
}

// ErrInvalidMode is returned when a serialized mode cannot be decoded.
var ErrInvalidMode = errors.New("formstate: invalid mode")

type modeOptions struct {
	Debounce   string `json:"debounce,omitempty" yaml:"debounce,omitempty"`
	AutoSubmit bool   `json:"autoSubmit,omitempty" yaml:"autoSubmit,omitempty"`
}

type modeDoc struct {
	OnBlur   *modeOptions `json:"onBlur,omitempty" yaml:"onBlur,omitempty"`
	OnChange *modeOptions `json:"onChange,omitempty" yaml:"onChange,omitempty"`
	OnSubmit *modeOptions `json:"onSubmit,omitempty" yaml:"onSubmit,omitempty"`
}

func modeFromString(s string) (Mode, error) {
	switch s {
	case "onSubmit", "":
		return OnSubmit(), nil
	case "onBlur":
		return OnBlur(false), nil
	case "onChange":
		return OnChange(0, false), nil
	}
	return Mode{}, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

func modeFromDoc(d modeDoc) (Mode, error) {
	set := 0
	var m Mode
	if d.OnSubmit != nil {
		set++
		m = OnSubmit()
	}
	if d.OnBlur != nil {
		set++
		if d.OnBlur.Debounce != "" {
			return Mode{}, fmt.Errorf("%w: onBlur takes no debounce", ErrInvalidMode)
		}
		m = OnBlur(d.OnBlur.AutoSubmit)
	}
	if d.OnChange != nil {
		set++
		var delay time.Duration
		if d.OnChange.Debounce != "" {
			var err error
			delay, err = time.ParseDuration(d.OnChange.Debounce)
			if err != nil || delay < 0 {
				return Mode{}, fmt.Errorf("%w: debounce %q", ErrInvalidMode, d.OnChange.Debounce)
			}
		}
		m = OnChange(delay, d.OnChange.AutoSubmit)
	}
	if set != 1 {
		return Mode{}, fmt.Errorf("%w: exactly one of onSubmit, onBlur, onChange is required", ErrInvalidMode)
	}
	return m, nil
}

func (m Mode) doc() any {
	switch m.Validation {
	case ValidateOnBlur:
		return modeDoc{OnBlur: &modeOptions{AutoSubmit: m.AutoSubmit}}
	case ValidateOnChange:
		o := &modeOptions{AutoSubmit: m.AutoSubmit}
		if m.Debounce > 0 {
			o.Debounce = m.Debounce.String()
		}
		return modeDoc{OnChange: o}
	default:
		return "onSubmit"
	}
}

func (m Mode) String() string {
	switch m.Validation {
	case ValidateOnChange:
		return fmt.Sprintf("onChange(debounce=%s, autoSubmit=%t)", m.Debounce, m.AutoSubmit)
	case ValidateOnBlur:
		return fmt.Sprintf("onBlur(autoSubmit=%t)", m.AutoSubmit)
	default:
		return "onSubmit"
	}
}

// MarshalJSON implements json.Marshaler.
func (m Mode) MarshalJSON() ([]byte, error) { return json.Marshal(m.doc()) }

// UnmarshalJSON implements json.Unmarshaler.
func (m *Mode) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := modeFromString(s)
		if err != nil {
			return err
		}
		*m = v
		return nil
	}
	var d modeDoc
	if err := json.Unmarshal(b, &d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMode, err)
	}
	v, err := modeFromDoc(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (m Mode) MarshalYAML() (any, error) { return m.doc(), nil }

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *Mode) UnmarshalYAML(n *yaml.Node) error {
	var v Mode
	var err error
	switch n.Kind {
	case yaml.ScalarNode:
		v, err = modeFromString(n.Value)
	case yaml.MappingNode:
		var d modeDoc
		if err = n.Decode(&d); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidMode, err)
		}
		v, err = modeFromDoc(d)
	default:
		err = fmt.Errorf("%w: unexpected yaml node", ErrInvalidMode)
	}
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseMode decodes a mode from YAML or JSON (JSON being a subset of YAML).
func ParseMode(data []byte) (Mode, error) {
	var m Mode
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Mode{}, err
	}
	return m, nil
}
