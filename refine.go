package formstate

import "context"

// Failure is the outcome of a failing refinement. Path blames a field; the
// empty path blames the whole form.
type Failure struct {
	Path    string
	Message string
	Code    string // Defaults to CodeCustom.
}

func (f *Failure) issue() *Issue {
	code := f.Code
	if code == "" {
		code = CodeCustom
	}
	return LeafIssue(code, f.Message)
}

// Refinement is a whole-form check over decoded values. A non-nil error
// means the check could not run (for example, a remote lookup failed).
type Refinement interface {
	Check(ctx context.Context, decoded map[string]any) (*Failure, error)
}

// RefinementFunc adapts a function to Refinement.
type RefinementFunc func(ctx context.Context, decoded map[string]any) (*Failure, error)

func (f RefinementFunc) Check(ctx context.Context, decoded map[string]any) (*Failure, error) {
	return f(ctx, decoded)
}

// Refine returns a synchronous refinement that fails with message at path
// when pred returns false.
func Refine(pred func(decoded map[string]any) bool, message string, path ...string) Refinement {
	p := firstPath(path)
	return RefinementFunc(func(_ context.Context, decoded map[string]any) (*Failure, error) {
		if pred(decoded) {
			return nil, nil
		}
		return &Failure{Path: p, Message: message}, nil
	})
}

// RefineAsync returns a refinement whose predicate may block on I/O. It
// receives the validation context and should honor its cancellation.
func RefineAsync(pred func(ctx context.Context, decoded map[string]any) (bool, error), message string, path ...string) Refinement {
	p := firstPath(path)
	return RefinementFunc(func(ctx context.Context, decoded map[string]any) (*Failure, error) {
		ok, err := pred(ctx, decoded)
		if err != nil {
			return nil, err
		}
		if ok {
			return nil, nil
		}
		return &Failure{Path: p, Message: message}, nil
	})
}

func firstPath(path []string) string {
	if len(path) == 0 {
		return ""
	}
	return path[0]
}
