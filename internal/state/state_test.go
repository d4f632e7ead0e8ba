package state

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/reoring/formstate/internal/tree"
)

type itemDefault struct{}

func (itemDefault) Default() any { return map[string]any{"sku": "", "qty": 0} }

func defaults() map[string]any {
	return map[string]any{
		"name":  "Bob",
		"email": "",
		"items": []any{
			map[string]any{"sku": "a", "qty": 1},
			map[string]any{"sku": "b", "qty": 2},
		},
	}
}

func TestInitial(t *testing.T) {
	s := Initial(defaults())
	if s.SubmitCount != 0 || s.LastSubmitted != nil || IsDirty(s) {
		t.Fatalf("unexpected initial state: %+v", s)
	}
	want := map[string]any{"name": false, "email": false, "items": false}
	if diff := cmp.Diff(any(want), s.Touched); diff != "" {
		t.Fatalf("touched (-want +got):\n%s", diff)
	}
}

func TestSetFieldValue_DirtyAndCleanup(t *testing.T) {
	s := Initial(defaults())
	s = SetFieldValue(s, "name", "Eve")
	if !s.Dirty.Has("name") {
		t.Fatalf("name should be dirty")
	}
	s = SetFieldValue(s, "name", "Bob")
	if IsDirty(s) {
		t.Fatalf("name back to initial should be clean, got %v", s.Dirty.Sorted())
	}
}

func TestSubmitAndReset(t *testing.T) {
	s := Initial(defaults())
	s = SetFieldValue(s, "name", "Eve")
	s = Submit(s)
	if s.SubmitCount != 1 || !IsTouched(s, "items[1].sku") || !IsTouched(s, "name") {
		t.Fatalf("submit must touch everything and count")
	}
	if s.LastSubmitted != nil {
		t.Fatalf("submit alone must not commit")
	}
	s = Commit(s, s.Values, "decoded")
	s = Reset(s)
	if s.SubmitCount != 0 || s.LastSubmitted != nil || IsDirty(s) || IsTouched(s, "name") {
		t.Fatalf("reset did not clear: %+v", s)
	}
	if v, _ := tree.Get(s.Values, "name"); v != "Bob" {
		t.Fatalf("reset must restore initial values, got %v", v)
	}
}

func TestSetFieldTouched_LazyNesting(t *testing.T) {
	s := Initial(defaults())
	s = SetFieldTouched(s, "items[1].sku", true)
	if !IsTouched(s, "items[1].sku") || !IsTouched(s, "items") {
		t.Fatalf("nested touch not recorded")
	}
	if IsTouched(s, "items[0].sku") || IsTouched(s, "name") {
		t.Fatalf("unrelated paths must stay untouched")
	}

	// expanding a true flag keeps siblings touched
	s = Submit(s)
	s = SetFieldTouched(s, "items[0].qty", false)
	if IsTouched(s, "items[0].qty") || !IsTouched(s, "items[0].sku") || !IsTouched(s, "items[1].qty") {
		t.Fatalf("expanded touched tree lost sibling flags: %#v", s.Touched)
	}
}

func TestArrayOps(t *testing.T) {
	s := Initial(defaults())

	s = AppendArrayItem(s, "items", itemDefault{})
	if v, _ := tree.Get(s.Values, "items[2].sku"); v != "" {
		t.Fatalf("default item not appended: %v", v)
	}
	if !s.Dirty.Has("items") {
		t.Fatalf("length change must mark the array dirty")
	}

	s = AppendArrayItem(s, "items", itemDefault{}, map[string]any{"sku": "c", "qty": 3})
	if v, _ := tree.Get(s.Values, "items[3].sku"); v != "c" {
		t.Fatalf("explicit item not appended: %v", v)
	}

	s = RemoveArrayItem(s, "items", 3)
	s = RemoveArrayItem(s, "items", 2)
	if IsDirty(s) {
		t.Fatalf("back to initial items should be clean: %v", s.Dirty.Sorted())
	}

	same := RemoveArrayItem(s, "items", 99)
	if v, _ := tree.Get(same.Values, "items"); len(v.([]any)) != 2 {
		t.Fatalf("out-of-range remove must keep items")
	}

	s = SwapArrayItems(s, "items", 0, 1)
	if v, _ := tree.Get(s.Values, "items[0].sku"); v != "b" {
		t.Fatalf("swap failed: %v", v)
	}
	s = MoveArrayItem(s, "items", 0, 2)
	if v, _ := tree.Get(s.Values, "items[1].sku"); v != "b" {
		t.Fatalf("move to end failed: %v", v)
	}
	if IsDirty(s) {
		t.Fatalf("swap then move restored order; expected clean, got %v", s.Dirty.Sorted())
	}
}

func TestArrayOps_BoundsNoOp(t *testing.T) {
	s := Initial(defaults())
	cases := []struct {
		name string
		got  *State
	}{
		{"swap equal", SwapArrayItems(s, "items", 1, 1)},
		{"swap negative", SwapArrayItems(s, "items", -1, 0)},
		{"swap high", SwapArrayItems(s, "items", 0, 2)},
		{"move equal", MoveArrayItem(s, "items", 0, 0)},
		{"move from high", MoveArrayItem(s, "items", 2, 0)},
		{"move to beyond end", MoveArrayItem(s, "items", 0, 3)},
		{"missing array", SwapArrayItems(s, "nope", 0, 1)},
	}
	for _, tc := range cases {
		if tc.got != s {
			t.Fatalf("%s: expected identical state pointer", tc.name)
		}
	}
}

func TestArrayOps_NonArrayNoOp(t *testing.T) {
	s := Initial(defaults())
	cases := []struct {
		name string
		got  *State
	}{
		{"remove from scalar", RemoveArrayItem(s, "email", 0)},
		{"remove from missing", RemoveArrayItem(s, "itemz", 5)},
		{"remove out of range", RemoveArrayItem(s, "items", 2)},
		{"remove negative", RemoveArrayItem(s, "items", -1)},
		{"append to scalar", AppendArrayItem(s, "name", itemDefault{})},
		{"swap in scalar", SwapArrayItems(s, "name", 0, 1)},
	}
	for _, tc := range cases {
		if tc.got != s {
			t.Fatalf("%s: expected identical state pointer", tc.name)
		}
	}

	s = AppendArrayItem(s, "tags", nil, "go")
	if diff := cmp.Diff(any([]any{"go"}), s.Values.(map[string]any)["tags"]); diff != "" {
		t.Fatalf("append to an absent path starts an array (-want +got):\n%s", diff)
	}
}

func TestArrayOps_TouchedFollowsItems(t *testing.T) {
	s := Initial(defaults())
	s = SetFieldTouched(s, "items[0].sku", true)

	s = SwapArrayItems(s, "items", 0, 1)
	if IsTouched(s, "items[0].sku") || !IsTouched(s, "items[1].sku") {
		t.Fatalf("touched flag did not follow the swapped item: %#v", s.Touched)
	}
	s = MoveArrayItem(s, "items", 1, 0)
	if !IsTouched(s, "items[0].sku") || IsTouched(s, "items[1].sku") {
		t.Fatalf("touched flag did not follow the moved item: %#v", s.Touched)
	}
	s = RemoveArrayItem(s, "items", 0)
	if IsTouched(s, "items") {
		t.Fatalf("removed item's flags must go with it: %#v", s.Touched)
	}
	s = AppendArrayItem(s, "items", itemDefault{})
	if IsTouched(s, "items[1].sku") {
		t.Fatalf("appended item starts untouched: %#v", s.Touched)
	}
}

func TestRevertToLastSubmit(t *testing.T) {
	s := Initial(defaults())
	if RevertToLastSubmit(s) != s {
		t.Fatalf("revert without submit must be a no-op")
	}

	s = SetFieldValue(s, "name", "Ann")
	s = Commit(Submit(s), s.Values, nil)
	if RevertToLastSubmit(s) != s {
		t.Fatalf("revert with unchanged values must be a no-op")
	}
	s = SetFieldValue(s, "name", "Eve")
	if !HasChangedSinceSubmit(s) {
		t.Fatalf("expected changes since submit")
	}
	s = RevertToLastSubmit(s)
	if v, _ := tree.Get(s.Values, "name"); v != "Ann" {
		t.Fatalf("revert restored %v", v)
	}
	if !s.Dirty.Has("name") {
		t.Fatalf("Ann differs from initial Bob; name must stay dirty")
	}
	if HasChangedSinceSubmit(s) {
		t.Fatalf("no changes expected right after revert")
	}
}

func TestRevertToLastSubmit_CleansWhenSubmittedInitial(t *testing.T) {
	s := Initial(defaults())
	s = Commit(Submit(s), s.Values, nil)
	s = SetFieldValue(s, "name", "Eve")
	s = RevertToLastSubmit(s)
	if IsDirty(s) {
		t.Fatalf("reverting to initial-equal values must clean dirty, got %v", s.Dirty.Sorted())
	}
}

func TestChangedSinceSubmit(t *testing.T) {
	s := Initial(defaults())
	if ChangedSinceSubmit(s).Len() != 0 {
		t.Fatalf("no submit yet")
	}
	s = Commit(Submit(s), s.Values, nil)
	s = SetFieldValue(s, "items[0].qty", 9)
	if diff := cmp.Diff([]string{"items[0].qty"}, ChangedSinceSubmit(s).Sorted()); diff != "" {
		t.Fatalf("changed (-want +got):\n%s", diff)
	}
}

func TestTransitionsDoNotMutateInput(t *testing.T) {
	s := Initial(defaults())
	before := *s
	_ = SetFieldValue(s, "items[0].sku", "x")
	_ = SetFieldTouched(s, "items[0].sku", true)
	_ = Submit(s)
	if !tree.Same(before.Values, s.Values) || !tree.Same(before.Touched, s.Touched) || s.SubmitCount != 0 {
		t.Fatalf("input snapshot changed")
	}
}
