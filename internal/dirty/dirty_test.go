package dirty

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/reoring/formstate/internal/tree"
)

func initialTree() map[string]any {
	return map[string]any{
		"name":  "Bob",
		"email": "bob@example.com",
		"items": []any{
			map[string]any{"sku": "a", "qty": 1},
			map[string]any{"sku": "b", "qty": 2},
		},
	}
}

func TestRecompute_LeafChangeAndCleanup(t *testing.T) {
	init := initialTree()
	cur := tree.Set(init, "name", "Eve")
	s := Recompute(nil, init, cur, "name")
	if diff := cmp.Diff([]string{"name"}, s.Sorted()); diff != "" {
		t.Fatalf("dirty (-want +got):\n%s", diff)
	}
	// setting back to the initial value cleans the path
	cur = tree.Set(cur, "name", "Bob")
	s = Recompute(s, init, cur, "name")
	if s.Len() != 0 {
		t.Fatalf("expected clean set, got %v", s.Sorted())
	}
}

func TestRecompute_DeepEqualityNotReference(t *testing.T) {
	init := initialTree()
	// a fresh but equal item must not be dirty
	cur := tree.Set(init, "items[0]", map[string]any{"sku": "a", "qty": 1.0})
	if s := Recompute(nil, init, cur, "items[0]"); s.Len() != 0 {
		t.Fatalf("expected clean, got %v", s.Sorted())
	}
}

func TestRecompute_ArrayReplacementDropsStaleEntries(t *testing.T) {
	init := initialTree()
	cur := tree.Set(init, "items[1].sku", "z")
	s := Recompute(nil, init, cur, "items[1].sku")
	if !s.Has("items[1].sku") {
		t.Fatalf("expected items[1].sku dirty")
	}
	cur = tree.Set(cur, "items", []any{map[string]any{"sku": "a", "qty": 1}})
	s = Recompute(s, init, cur, "items")
	want := []string{"items", "items[1]"}
	if diff := cmp.Diff(want, s.Sorted()); diff != "" {
		t.Fatalf("dirty (-want +got):\n%s", diff)
	}
}

func TestRecompute_KeepsUnrelatedEntries(t *testing.T) {
	init := initialTree()
	s := Of("email")
	cur := tree.Set(tree.Set(init, "email", "x"), "items[0].qty", 5)
	s = Recompute(s, init, cur, "items")
	want := []string{"email", "items[0].qty"}
	if diff := cmp.Diff(want, s.Sorted()); diff != "" {
		t.Fatalf("dirty (-want +got):\n%s", diff)
	}
}

func TestRecompute_KindAndPresenceMismatch(t *testing.T) {
	init := map[string]any{"a": map[string]any{"b": 1}}
	cur := map[string]any{"a": "flat"}
	if got := Recompute(nil, init, cur, "").Sorted(); !cmp.Equal(got, []string{"a"}) {
		t.Fatalf("kind mismatch: %v", got)
	}
	cur = map[string]any{"a": map[string]any{"b": 1}, "extra": true}
	if got := Recompute(nil, init, cur, "").Sorted(); !cmp.Equal(got, []string{"extra"}) {
		t.Fatalf("presence mismatch: %v", got)
	}
}

func TestRecompute_DoesNotMutateInput(t *testing.T) {
	init := initialTree()
	in := Of("name")
	_ = Recompute(in, init, init, "")
	if !in.Has("name") {
		t.Fatalf("input set mutated")
	}
}

func TestHasAncestorOrSelf(t *testing.T) {
	s := Of("items")
	if !s.HasAncestorOrSelf("items[0].sku") || s.HasAncestorOrSelf("name") {
		t.Fatalf("ancestor predicate mismatch")
	}
}

// TestRecompute_IncrementalMatchesFull applies random edits and checks that
// the incrementally maintained set always equals a full recomputation.
func TestRecompute_IncrementalMatchesFull(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	skus := []any{"a", "b", "c"}
	for round := 0; round < 50; round++ {
		init := initialTree()
		var cur any = init
		set := Set{}
		for step := 0; step < 30; step++ {
			var root string
			switch r.IntN(5) {
			case 0:
				root = "name"
				cur = tree.Set(cur, root, []any{"Bob", "Eve"}[r.IntN(2)])
			case 1:
				items, _ := tree.Get(cur, "items")
				n := len(items.([]any))
				if n == 0 {
					continue
				}
				root = tree.ToPath("items", r.IntN(n), "sku")
				cur = tree.Set(cur, root, skus[r.IntN(len(skus))])
			case 2:
				root = "items"
				items, _ := tree.Get(cur, root)
				next := append([]any{}, items.([]any)...)
				next = append(next, map[string]any{"sku": "a", "qty": 1})
				cur = tree.Set(cur, root, next)
			case 3:
				root = "items"
				items, _ := tree.Get(cur, root)
				old := items.([]any)
				if len(old) == 0 {
					continue
				}
				cur = tree.Set(cur, root, append([]any{}, old[:len(old)-1]...))
			default:
				root = ""
				cur = tree.Set(initialTree(), "email", []any{"bob@example.com", "x@y"}[r.IntN(2)])
			}
			set = Recompute(set, init, cur, root)
			full := Recompute(nil, init, cur, "")
			if diff := cmp.Diff(full.Sorted(), set.Sorted()); diff != "" {
				t.Fatalf("round %d step %d root %q: incremental != full (-full +inc):\n%s", round, step, root, diff)
			}
			for _, p := range leafPaths(cur, "") {
				a, _ := tree.Get(init, p)
				b, _ := tree.Get(cur, p)
				if !tree.Equal(a, b) && !set.Has(p) && !set.HasAncestorOrSelf(p) {
					t.Fatalf("leaf %q differs but is not dirty", p)
				}
				if tree.Equal(a, b) && set.Has(p) {
					t.Fatalf("leaf %q equal but marked dirty", p)
				}
			}
		}
	}
}

func leafPaths(t any, base string) []string {
	switch c := t.(type) {
	case map[string]any:
		var out []string
		for k, v := range c {
			out = append(out, leafPaths(v, tree.Join(base, tree.Key(k)))...)
		}
		return out
	case []any:
		var out []string
		for i, v := range c {
			out = append(out, leafPaths(v, tree.Join(base, tree.Index(i)))...)
		}
		return out
	}
	return []string{base}
}
