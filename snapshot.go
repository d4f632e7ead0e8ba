package formstate

import (
	"maps"
	"slices"

	"github.com/reoring/formstate/internal/state"
)

// Snapshot is a consistent read model of a form. Its maps are copies of the
// top level; nested maps and slices are shared with the form and are
// read-only.
type Snapshot struct {
	Values                   map[string]any
	InitialValues            map[string]any
	Touched                  any
	IsDirty                  bool
	DirtyFields              []string
	SubmitCount              int
	LastSubmitted            *Submitted
	HasChangedSinceSubmit    bool
	ChangedSinceSubmitFields []string
	Errors                   map[string]FieldError // every stored entry
	RootError                string                // visible whole-form error
	Submitting               bool
	Validating               []string
	Result                   SubmitResult
	AutoSubmit               AutoSubmitPhase
	Mode                     Mode
}

// Snapshot returns the current read model. Before Initialize only Mode and
// AutoSubmit are set.
func (f *Form) Snapshot() Snapshot {
	phase := f.auto.Phase()
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := Snapshot{Mode: f.opts.mode, AutoSubmit: phase}
	s := f.st
	if s == nil {
		return snap
	}
	snap.Values = cloneMap(s.Values)
	snap.InitialValues = cloneMap(s.InitialValues)
	snap.Touched = s.Touched
	snap.IsDirty = state.IsDirty(s)
	snap.DirtyFields = s.Dirty.Sorted()
	snap.SubmitCount = s.SubmitCount
	if s.LastSubmitted != nil {
		snap.LastSubmitted = toSubmitted(s.LastSubmitted)
	}
	changed := state.ChangedSinceSubmit(s)
	snap.HasChangedSinceSubmit = changed.Len() > 0
	snap.ChangedSinceSubmitFields = changed.Sorted()
	snap.Errors = maps.Clone(f.errs)
	snap.RootError, _ = f.visibleErrorLocked("")
	snap.Submitting = f.submitting
	snap.Validating = slices.Sorted(maps.Keys(f.validating))
	snap.Result = f.result
	return snap
}

func cloneMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return maps.Clone(m)
}
