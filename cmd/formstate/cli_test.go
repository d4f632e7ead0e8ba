package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const orderDef = `
name: order
mode: onSubmit
fields:
  - {key: email, type: string, tags: "required,email", message: Enter a valid email}
  - {key: plan, type: enum, values: [free, pro]}
  - key: items
    type: array
    item:
      type: object
      fields:
        - {key: sku, type: string, tags: required}
        - {key: qty, type: integer, min: 1, default: 1}
refinements:
  - {kind: uniqueBy, path: items, key: sku, message: Duplicate SKU}
defaults:
  plan: pro
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func newTestCmd() (*cobra.Command, *bytes.Buffer) {
	logger = zap.NewNop()
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	return cmd, &out
}

func TestCheckCmd(t *testing.T) {
	dir := t.TempDir()
	def := writeFile(t, dir, "order.yaml", orderDef)
	good := writeFile(t, dir, "good.json", `{"email": "a@example.com", "plan": "free", "items": [{"sku": "A", "qty": 2}]}`)
	bad := writeFile(t, dir, "bad.yaml", "email: nope\nplan: free\nitems:\n  - {sku: A, qty: 1}\n  - {sku: A, qty: 1}\n")

	cmd, out := newTestCmd()
	if err := runCheck(cmd, []string{def, good}); err != nil {
		t.Fatalf("runCheck(good) failed: %v", err)
	}
	if strings.TrimSpace(out.String()) != "ok" {
		t.Errorf("unexpected output %q", out.String())
	}

	cmd, out = newTestCmd()
	err := runCheck(cmd, []string{def, bad})
	if !errors.Is(err, errInvalid) {
		t.Fatalf("expected errInvalid, got %v", err)
	}
	var routed map[string]map[string]string
	if err := json.Unmarshal(out.Bytes(), &routed); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if routed["email"]["message"] != "Enter a valid email" {
		t.Errorf("unexpected email entry: %v", routed["email"])
	}
	// field errors stop refinements, so the duplicate is not reported yet
	if _, ok := routed["items[1].sku"]; ok {
		t.Errorf("refinement ran despite field errors: %v", routed)
	}
}

func TestCheckCmd_MissingFile(t *testing.T) {
	cmd, _ := newTestCmd()
	if err := runCheck(cmd, []string{"/nonexistent/def.yaml", "/nonexistent/v.json"}); err == nil {
		t.Fatal("expected error for missing definition")
	}
}

func TestDefaultsCmd(t *testing.T) {
	dir := t.TempDir()
	def := writeFile(t, dir, "order.yaml", orderDef)

	cmd, out := newTestCmd()
	if err := runDefaults(cmd, []string{def}); err != nil {
		t.Fatalf("runDefaults failed: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got["plan"] != "pro" || got["email"] != "" {
		t.Errorf("unexpected defaults %v", got)
	}
	if items, ok := got["items"].([]any); !ok || len(items) != 0 {
		t.Errorf("items should default to an empty array, got %v", got["items"])
	}
}

func TestDiffCmd(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.yaml", "name: ann\ntags: [x, y]\naddr: {city: Kyoto, zip: '600'}\n")
	b := writeFile(t, dir, "b.json", `{"name": "ann", "tags": ["x", "z", "w"], "addr": {"city": "Osaka", "zip": "600"}}`)

	cmd, out := newTestCmd()
	if err := runDiff(cmd, []string{a, b}); err != nil {
		t.Fatalf("runDiff failed: %v", err)
	}
	want := "addr.city\ntags\ntags[1]\ntags[2]\n"
	if out.String() != want {
		t.Errorf("diff output:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestSubmitCmd(t *testing.T) {
	dir := t.TempDir()
	def := writeFile(t, dir, "order.yaml", orderDef)
	dup := writeFile(t, dir, "dup.json", `{"email": "a@example.com", "items": [{"sku": "A", "qty": 1}, {"sku": "A", "qty": 2}]}`)

	cmd, out := newTestCmd()
	err := runSubmit(cmd, []string{def, dup})
	if !errors.Is(err, errInvalid) {
		t.Fatalf("expected errInvalid, got %v", err)
	}
	var report submitReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if report.Status != "failed" || report.SubmitCount != 1 {
		t.Errorf("unexpected report %+v", report)
	}
	if e := report.Errors["items[1].sku"]; e.Message != "Duplicate SKU" || e.Source != "refinement" {
		t.Errorf("unexpected duplicate entry %+v", e)
	}

	ok := writeFile(t, dir, "ok.json", `{"email": "a@example.com", "items": [{"sku": "A", "qty": 1}]}`)
	cmd, out = newTestCmd()
	if err := runSubmit(cmd, []string{def, ok}); err != nil {
		t.Fatalf("runSubmit(ok) failed: %v", err)
	}
	report = submitReport{}
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if report.Status != "succeeded" || report.Decoded["plan"] != "pro" {
		t.Errorf("unexpected report %+v", report)
	}
}
