package dsl_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	formstate "github.com/reoring/formstate"
	g "github.com/reoring/formstate/dsl"
)

func TestUnion_FirstMatchWins(t *testing.T) {
	ctx := context.Background()
	u := g.Union(g.Number(), g.String().Email())

	if v, err := u.Decode(ctx, 3); err != nil || v != 3.0 {
		t.Fatalf("expected number branch, got v=%v err=%v", v, err)
	}
	if v, err := u.Decode(ctx, "a@b.co"); err != nil || v != "a@b.co" {
		t.Fatalf("expected email branch, got v=%v err=%v", v, err)
	}
	if _, err := u.Decode(ctx, "nope"); codeOf(t, err) != formstate.CodeUnionNoMatch {
		t.Fatalf("expected union_no_match, got %v", err)
	}
	if u.Default() != 0 {
		t.Fatalf("default comes from the first alternative, got %v", u.Default())
	}
}

func TestRefine_ScalarIsValueRefinement(t *testing.T) {
	ctx := context.Background()
	even := g.Refine(g.Number(), func(v any) bool { return int(v.(float64))%2 == 0 }, "must be even")

	_, err := even.Decode(ctx, 3)
	is := mustIssue(t, err)
	if is.Kind != formstate.IssueRefinement || is.Refinement != formstate.RefineFrom || is.Container {
		t.Fatalf("expected value refinement, got %+v", is)
	}
	got := formstate.RouteErrors(is)
	if got[""].Source != formstate.SourceField || got[""].Message != "must be even" {
		t.Fatalf("unexpected routing %v", got)
	}
}

func TestRefineAt_ContainerIsPredicateRefinement(t *testing.T) {
	ctx := context.Background()
	tags := g.RefineAt(g.Array(g.String()), "[0]", func(v any) bool {
		return len(v.([]any)) < 2 || v.([]any)[0] != v.([]any)[1]
	}, "duplicate tag")

	if !formstate.IsContainer(tags) {
		t.Fatalf("refined array must remain a container")
	}
	_, err := tags.Decode(ctx, []any{"x", "x"})
	got := formstate.RouteErrors(mustIssue(t, err))
	if fe := got["[0]"]; fe.Source != formstate.SourceRefinement || fe.Message != "duplicate tag" {
		t.Fatalf("unexpected routing %v", got)
	}
}

func TestTransformAndOptional(t *testing.T) {
	ctx := context.Background()
	upper := g.Transform(g.String(), func(v any) (any, error) {
		s := v.(string)
		if s == "bad" {
			return nil, errors.New("cannot transform")
		}
		return strings.ToUpper(s), nil
	})
	if v, err := upper.Decode(ctx, "abc"); err != nil || v != "ABC" {
		t.Fatalf("got v=%v err=%v", v, err)
	}
	_, err := upper.Decode(ctx, "bad")
	if is := mustIssue(t, err); is.Kind != formstate.IssueTransformation {
		t.Fatalf("expected transformation issue, got %v", is.Kind)
	}

	opt := g.Optional(g.String().Min(2))
	if v, err := opt.Decode(ctx, nil); err != nil || v != nil {
		t.Fatalf("nil must pass, got v=%v err=%v", v, err)
	}
	if _, err := opt.Decode(ctx, "a"); err == nil {
		t.Fatalf("inner checks still apply")
	}
}

func TestLazy_Recursive(t *testing.T) {
	ctx := context.Background()
	var node formstate.Validator
	node = g.Object().
		Field("name", g.String()).Required().
		Field("children", g.Array(g.Lazy(func() formstate.Validator { return node }))).Optional().
		MustBuild()

	in := map[string]any{"name": "root", "children": []any{
		map[string]any{"name": "leaf"},
		map[string]any{"name": 1},
	}}
	_, err := node.Decode(ctx, in)
	got := formstate.RouteErrors(mustIssue(t, err))
	if _, ok := got["children[1].name"]; !ok {
		t.Fatalf("expected nested error, got %v", got)
	}
	if _, ok := formstate.ChildValidator(node, "children[0].children[0].name"); !ok {
		t.Fatalf("expected lazy children to resolve")
	}
}
