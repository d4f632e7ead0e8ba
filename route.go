package formstate

// Source classifies where a validation error entry came from.
type Source string

const (
	// SourceField entries come from validating a single field value. They
	// are replaced or cleared whenever that field validates again.
	SourceField Source = "field"
	// SourceRefinement entries come from whole-form refinements. Typing in
	// a field leaves them alone; submit, reset, revert and whole-form value
	// replacement clear them.
	SourceRefinement Source = "refinement"
)

// FieldError is one routed validation error.
type FieldError struct {
	Message string `json:"message"`
	Source  Source `json:"source"`
}

// RouteErrors flattens an issue tree into entries keyed by path. The walk is
// depth-first; the source switches to SourceRefinement at predicate
// refinements over containers, and the first message per path wins.
func RouteErrors(is *Issue) map[string]FieldError {
	out := map[string]FieldError{}
	route(is, "", SourceField, out)
	return out
}

func route(n *Issue, path string, src Source, out map[string]FieldError) {
	if n == nil {
		return
	}
	switch n.Kind {
	case IssueLeaf:
		if _, ok := out[path]; !ok {
			out[path] = FieldError{Message: messageOf(n), Source: src}
		}
		return
	case IssuePointer:
		path = joinKey(path, n.Key)
	case IssueRefinement:
		if n.Refinement == RefinePredicate && n.Container {
			src = SourceRefinement
		}
	}
	for _, c := range n.Children {
		route(c, path, src, out)
	}
}

// FirstMessage returns the message of the first leaf in depth-first order.
func FirstMessage(is *Issue) string {
	var msg string
	found := false
	is.Walk(func(_ string, leaf *Issue) {
		if found {
			return
		}
		found = true
		msg = messageOf(leaf)
	})
	return msg
}
