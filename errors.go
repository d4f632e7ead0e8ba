package formstate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reoring/formstate/i18n"
	"github.com/reoring/formstate/internal/tree"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeInvalidType   = "invalid_type"
	CodeRequired      = "required"
	CodeTooSmall      = "too_small"
	CodeTooBig        = "too_big"
	CodeTooShort      = "too_short"
	CodeTooLong       = "too_long"
	CodePattern       = "pattern"
	CodeInvalidEnum   = "invalid_enum"
	CodeInvalidFormat = "invalid_format"
	CodeUnionNoMatch  = "union_no_match"
	CodeParseError    = "parse_error"
	// Whole-form passes (business semantics)
	CodeUniqueness   = "uniqueness"
	CodeBusinessRule = "business_rule"
	CodeCustom       = "custom"
	// Dependency temporary/unavailable errors raised by asynchronous refinements.
	CodeDependencyUnavailable = "dependency_unavailable"
)

// IssueKind discriminates the nodes of an Issue tree.
type IssueKind int

const (
	IssueLeaf           IssueKind = iota // A type, presence or check failure.
	IssuePointer                         // Descend into Key (string member or int index).
	IssueComposite                       // Several independent failures.
	IssueRefinement                      // Failure of a refined schema.
	IssueTransformation                  // Failure of a transformed schema.
)

func (k IssueKind) String() string {
	switch k {
	case IssueLeaf:
		return "leaf"
	case IssuePointer:
		return "pointer"
	case IssueComposite:
		return "composite"
	case IssueRefinement:
		return "refinement"
	case IssueTransformation:
		return "transformation"
	}
	return fmt.Sprintf("IssueKind(%d)", int(k))
}

// RefinementKind tells whether a refinement failed in the wrapped schema or
// in its own predicate.
type RefinementKind int

const (
	RefineFrom RefinementKind = iota
	RefinePredicate
)

// Issue is a node of the structured failure tree produced by validators.
// Only the fields relevant to Kind are set.
type Issue struct {
	Kind IssueKind

	// Leaf
	Code    string
	Message string
	Hint    string         // Optional: remediation hints, format names, etc.
	Cause   error          // Optional: underlying error.
	Params  map[string]any // Structured parameters (e.g., {"min":1}) for i18n.
	Rule    string         // Optional: name of the rule that produced this issue.

	// Pointer
	Key any

	// Refinement
	Refinement RefinementKind
	Container  bool // The refined schema is an object, array, union or lazy schema.

	Children []*Issue
}

// Error summarizes the first few leaves.
func (i *Issue) Error() string {
	if i == nil {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := 0
	i.Walk(func(path string, leaf *Issue) {
		n++
		if n > maxShown {
			return
		}
		if n > 1 {
			b.WriteString("; ")
		}
		if path == "" {
			path = "(root)"
		}
		// e.g. too_short at items[1].name
		fmt.Fprintf(b, "%s at %s", leaf.Code, path)
	})
	if n > maxShown {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Unwrap exposes the cause and the children so that errors.Is finds a
// cause anywhere in the tree.
func (i *Issue) Unwrap() []error {
	if i == nil {
		return nil
	}
	out := make([]error, 0, len(i.Children)+1)
	if i.Cause != nil {
		out = append(out, i.Cause)
	}
	for _, c := range i.Children {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Walk visits every leaf depth-first together with its path.
func (i *Issue) Walk(fn func(path string, leaf *Issue)) {
	walkIssue(i, "", fn)
}

func walkIssue(n *Issue, path string, fn func(string, *Issue)) {
	if n == nil {
		return
	}
	if n.Kind == IssueLeaf {
		fn(path, n)
		return
	}
	if n.Kind == IssuePointer {
		path = joinKey(path, n.Key)
	}
	for _, c := range n.Children {
		walkIssue(c, path, fn)
	}
}

func joinKey(path string, key any) string {
	switch k := key.(type) {
	case int:
		return tree.Join(path, tree.Index(k))
	case string:
		return tree.Join(path, tree.Key(k))
	default:
		return tree.Join(path, tree.Key(fmt.Sprint(k)))
	}
}

// LeafIssue returns a leaf. An empty message is filled from the i18n
// dictionary when the issue is rendered.
func LeafIssue(code, message string) *Issue {
	return &Issue{Kind: IssueLeaf, Code: code, Message: message}
}

// WithParams attaches structured parameters given as key/value pairs.
func (i *Issue) WithParams(kv ...any) *Issue {
	if len(kv) < 2 {
		return i
	}
	if i.Params == nil {
		i.Params = make(map[string]any, len(kv)/2)
	}
	for j := 0; j+1 < len(kv); j += 2 {
		k, ok := kv[j].(string)
		if !ok {
			continue
		}
		i.Params[k] = kv[j+1]
	}
	return i
}

// PointerIssue places child under key (a string member or an int index).
func PointerIssue(key any, child *Issue) *Issue {
	return &Issue{Kind: IssuePointer, Key: key, Children: []*Issue{child}}
}

// CompositeIssue groups children; nil children are dropped. It returns nil
// when nothing remains and the only child when exactly one remains.
func CompositeIssue(children ...*Issue) *Issue {
	kept := make([]*Issue, 0, len(children))
	for _, c := range children {
		if c != nil {
			kept = append(kept, c)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return &Issue{Kind: IssueComposite, Children: kept}
}

// RefinementIssue wraps child as the failure of a refined schema.
func RefinementIssue(kind RefinementKind, container bool, child *Issue) *Issue {
	return &Issue{Kind: IssueRefinement, Refinement: kind, Container: container, Children: []*Issue{child}}
}

// TransformationIssue wraps child as the failure of a transformed schema.
func TransformationIssue(child *Issue) *Issue {
	return &Issue{Kind: IssueTransformation, Children: []*Issue{child}}
}

// IssueAtPath wraps child in the pointer chain addressing path. A path that
// cannot be parsed is used as a single member key.
func IssueAtPath(path string, child *Issue) *Issue {
	if path == "" {
		return child
	}
	segs, err := tree.Parse(path)
	if err != nil {
		return PointerIssue(path, child)
	}
	out := child
	for k := len(segs) - 1; k >= 0; k-- {
		out = PointerIssue(segs[k].Value(), out)
	}
	return out
}

// AsIssue extracts an *Issue from an error using errors.As internally.
func AsIssue(err error) (*Issue, bool) {
	if err == nil {
		return nil, false
	}
	var is *Issue
	if errors.As(err, &is) && is != nil {
		return is, true
	}
	return nil, false
}

// IssueFromError returns the issue carried by err, or a parse_error leaf
// wrapping err when it carries none.
func IssueFromError(err error) *Issue {
	if err == nil {
		return nil
	}
	if is, ok := AsIssue(err); ok {
		return is
	}
	leaf := LeafIssue(CodeParseError, err.Error())
	leaf.Cause = err
	return leaf
}

// messageOf renders a leaf message, falling back to the translated code.
func messageOf(leaf *Issue) string {
	if leaf.Message != "" {
		return leaf.Message
	}
	return i18n.T(leaf.Code, stringParams(leaf.Params))
}

func stringParams(p map[string]any) map[string]string {
	if len(p) == 0 {
		return nil
	}
	out := make(map[string]string, len(p))
	for k, v := range p {
		out[k] = fmt.Sprint(v)
	}
	return out
}

var (
	// ErrNotInitialized is the panic value for submitting a form that was
	// never initialized.
	ErrNotInitialized = errors.New("formstate: form not initialized")
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("formstate: validation failed")
	// ErrClosed is returned by operations on a closed form.
	ErrClosed = errors.New("formstate: form closed")
	// ErrReset is returned by a submission overtaken by Reset or a
	// re-Initialize; its outcome is discarded.
	ErrReset = errors.New("formstate: form reset during submission")
)

// ValidationError is returned by Form.Submit when the values did not decode.
type ValidationError struct {
	Issue  *Issue
	Errors map[string]FieldError
}

func (e *ValidationError) Error() string {
	return "formstate: validation failed: " + e.Issue.Error()
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) Unwrap() error {
	if e.Issue == nil {
		return nil
	}
	return e.Issue
}
