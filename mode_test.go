package formstate_test

import (
	"errors"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	formstate "github.com/reoring/formstate"
)

func TestParseMode(t *testing.T) {
	cases := []struct {
		in   string
		want formstate.Mode
	}{
		{`onSubmit`, formstate.OnSubmit()},
		{`"onBlur"`, formstate.OnBlur(false)},
		{`{onBlur: {autoSubmit: true}}`, formstate.OnBlur(true)},
		{"onChange:\n  debounce: 250ms\n  autoSubmit: true\n", formstate.OnChange(250*time.Millisecond, true)},
		{`{"onChange": {"debounce": "1s"}}`, formstate.OnChange(time.Second, false)},
		{`{"onSubmit": {}}`, formstate.OnSubmit()},
	}
	for _, tc := range cases {
		got, err := formstate.ParseMode([]byte(tc.in))
		if err != nil {
			t.Fatalf("%s: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseMode_Invalid(t *testing.T) {
	for _, in := range []string{
		`onHover`,
		`{onBlur: {}, onChange: {}}`,
		`{}`,
		`{onChange: {debounce: soon}}`,
		`{onChange: {debounce: -1s}}`,
		`{onBlur: {debounce: 1s}}`,
	} {
		if _, err := formstate.ParseMode([]byte(in)); !errors.Is(err, formstate.ErrInvalidMode) {
			t.Fatalf("%s: expected ErrInvalidMode, got %v", in, err)
		}
	}
}

func TestMode_JSONRoundTrip(t *testing.T) {
	cases := []struct {
		mode formstate.Mode
		json string
	}{
		{formstate.OnSubmit(), `"onSubmit"`},
		{formstate.OnBlur(true), `{"onBlur":{"autoSubmit":true}}`},
		{formstate.OnChange(100*time.Millisecond, true), `{"onChange":{"debounce":"100ms","autoSubmit":true}}`},
	}
	for _, tc := range cases {
		b, err := json.Marshal(tc.mode)
		if err != nil {
			t.Fatalf("marshal %v: %v", tc.mode, err)
		}
		if string(b) != tc.json {
			t.Fatalf("marshal %v = %s, want %s", tc.mode, b, tc.json)
		}
		var back formstate.Mode
		if err := json.Unmarshal(b, &back); err != nil || back != tc.mode {
			t.Fatalf("unmarshal %s = %v (%v)", b, back, err)
		}
	}
}

func TestMode_YAMLField(t *testing.T) {
	var doc struct {
		Mode formstate.Mode `yaml:"mode"`
	}
	if err := yaml.Unmarshal([]byte("mode:\n  onChange: {debounce: 50ms}\n"), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Mode != formstate.OnChange(50*time.Millisecond, false) {
		t.Fatalf("mode = %v", doc.Mode)
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var again struct {
		Mode formstate.Mode `yaml:"mode"`
	}
	if err := yaml.Unmarshal(out, &again); err != nil || again.Mode != doc.Mode {
		t.Fatalf("round trip %s = %v (%v)", out, again.Mode, err)
	}
}
