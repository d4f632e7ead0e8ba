package tree

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sample() map[string]any {
	return map[string]any{
		"name": "Bob",
		"address": map[string]any{
			"city": "Oslo",
			"zip":  "0150",
		},
		"items": []any{
			map[string]any{"sku": "a", "qty": 1},
			map[string]any{"sku": "b", "qty": 2},
		},
	}
}

func TestToPath(t *testing.T) {
	cases := []struct {
		parts []any
		want  string
	}{
		{nil, ""},
		{[]any{"name"}, "name"},
		{[]any{"items", 2, "name"}, "items[2].name"},
		{[]any{0, "a"}, "[0].a"},
		{[]any{"m", 1, 2}, "m[1][2]"},
	}
	for _, tc := range cases {
		if got := ToPath(tc.parts...); got != tc.want {
			t.Fatalf("ToPath(%v) = %q, want %q", tc.parts, got, tc.want)
		}
	}
}

func TestParse_RoundTrip(t *testing.T) {
	for _, p := range []string{"", "a", "a.b", "items[2].name", "[0]", "m[1][2].x"} {
		segs, err := Parse(p)
		if err != nil {
			t.Fatalf("Parse(%q): %v", p, err)
		}
		if got := ToPath(segmentsAsAny(segs)...); got != p {
			t.Fatalf("round trip %q -> %q", p, got)
		}
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, p := range []string{"a..b", "a[", "a[x]", "a[-1]", ".a", "a.", "a[0]b"} {
		if _, err := Parse(p); !errors.Is(err, ErrMalformedPath) {
			t.Fatalf("Parse(%q) err = %v, want ErrMalformedPath", p, err)
		}
	}
}

func TestGet(t *testing.T) {
	tr := sample()
	if v, ok := Get(tr, ""); !ok || !Same(v, tr) {
		t.Fatalf("empty path must return the tree itself")
	}
	if v, ok := Get(tr, "items[1].sku"); !ok || v != "b" {
		t.Fatalf("items[1].sku = %v, %v", v, ok)
	}
	for _, p := range []string{"items[9].sku", "name.first", "address[0]", "missing.deep", "a..b"} {
		if v, ok := Get(tr, p); ok || v != nil {
			t.Fatalf("Get(%q) = %v, %v; want nil,false", p, v, ok)
		}
	}
	if _, ok := Get(nil, "a"); ok {
		t.Fatalf("nil tree must short-circuit")
	}
}

func TestSet_StructuralSharing(t *testing.T) {
	tr := sample()
	out := Set(tr, "items[0].sku", "z").(map[string]any)

	if tr["items"].([]any)[0].(map[string]any)["sku"] != "a" {
		t.Fatalf("input tree was mutated")
	}
	if !Same(out["address"], tr["address"]) {
		t.Fatalf("sibling address must be shared")
	}
	if !Same(out["items"].([]any)[1], tr["items"].([]any)[1]) {
		t.Fatalf("sibling item must be shared")
	}
	if Same(out["items"], tr["items"]) {
		t.Fatalf("items on the path must be copied")
	}
	if v, _ := Get(out, "items[0].sku"); v != "z" {
		t.Fatalf("value not set: %v", v)
	}
}

func TestSet_RoundTrip(t *testing.T) {
	tr := sample()
	for _, p := range []string{"name", "address.city", "items[1]", "items[0].qty", ""} {
		v, _ := Get(tr, p)
		if diff := cmp.Diff(any(tr), Set(tr, p, v)); diff != "" {
			t.Fatalf("set(get) at %q changed the tree (-want +got):\n%s", p, diff)
		}
	}
}

func TestSet_CreatesContainers(t *testing.T) {
	out := Set(map[string]any{"touched": false}, "touched[2].name", true)
	want := map[string]any{"touched": []any{nil, nil, map[string]any{"name": true}}}
	if diff := cmp.Diff(any(want), out); diff != "" {
		t.Fatalf("unexpected tree (-want +got):\n%s", diff)
	}
	if got := Set("leaf", "", 3); got != 3 {
		t.Fatalf("empty path must replace the root, got %v", got)
	}
}

func TestIsAncestorOrSelf(t *testing.T) {
	cases := []struct {
		anc, path string
		want      bool
	}{
		{"", "a", true},
		{"a", "a", true},
		{"a", "a.b", true},
		{"items", "items[0].x", true},
		{"item", "items", false},
		{"a.b", "a", false},
		{"items[1]", "items[10]", false},
	}
	for _, tc := range cases {
		if got := IsAncestorOrSelf(tc.anc, tc.path); got != tc.want {
			t.Fatalf("IsAncestorOrSelf(%q,%q) = %v", tc.anc, tc.path, got)
		}
	}
}

func TestEqual(t *testing.T) {
	if !Equal(map[string]any{"n": 1}, map[string]any{"n": 1.0}) {
		t.Fatalf("numbers must compare by value")
	}
	if !Equal(json.Number("2"), 2) {
		t.Fatalf("json.Number must compare by value")
	}
	if Equal([]any{1, 2}, []any{1}) {
		t.Fatalf("length mismatch must be unequal")
	}
	if Equal(map[string]any{}, []any{}) {
		t.Fatalf("kind mismatch must be unequal")
	}
	if !Equal(nil, nil) || Equal(nil, "") {
		t.Fatalf("nil handling")
	}
}

func TestSame(t *testing.T) {
	m := map[string]any{"a": 1}
	if !Same(m, m) || Same(m, map[string]any{"a": 1}) {
		t.Fatalf("map identity")
	}
	s := []any{1, 2}
	if !Same(s, s) || Same(s, []any{1, 2}) || Same(s, s[:1]) {
		t.Fatalf("slice identity")
	}
	if !Same("x", "x") || Same(1, 1.0) {
		t.Fatalf("leaf identity")
	}
}

func TestFillAndAnyTrue(t *testing.T) {
	shape := map[string]any{"a": "x", "b": []any{"y", "z"}}
	f := Fill(shape, true)
	if diff := cmp.Diff(any(map[string]any{"a": true, "b": []any{true, true}}), f); diff != "" {
		t.Fatalf("fill (-want +got):\n%s", diff)
	}
	if !AnyTrue(f) || AnyTrue(Fill(shape, false)) {
		t.Fatalf("AnyTrue mismatch")
	}
}

func TestParent(t *testing.T) {
	if got := Parent("items[2].name"); got != "items[2]" {
		t.Fatalf("Parent = %q", got)
	}
	if got := Parent("items"); got != "" {
		t.Fatalf("Parent = %q", got)
	}
}
