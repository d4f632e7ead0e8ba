package formstate

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/reoring/formstate/internal/arena"
	"github.com/reoring/formstate/internal/autosubmit"
	"github.com/reoring/formstate/internal/debounce"
	"github.com/reoring/formstate/internal/state"
	"github.com/reoring/formstate/internal/tree"
)

const instrumentationName = "github.com/reoring/formstate"

// Form owns the state of one form instance. All methods are safe for
// concurrent use.
//
// Mutating methods panic with ErrNotInitialized before Initialize and
// return ErrClosed after Close.
type Form struct {
	id     string
	schema *Schema
	opts   options
	log    *zap.Logger
	tracer trace.Tracer

	ctx    context.Context
	cancel context.CancelFunc

	sem  *semaphore.Weighted
	auto *autosubmit.Coordinator

	mu         sync.Mutex
	st         *state.State
	errs       map[string]FieldError
	validating map[string]struct{}
	validators map[string]*debounce.Debouncer
	epoch      uint64 // bumped by Initialize and Reset
	submitting bool
	result     SubmitResult
	closed     bool
	subs       map[uint64]func()
	nextSub    uint64

	fields *arena.Arena[FieldAccessor]
	arrays *arena.Arena[ArrayAccessor]
	items  *arena.Arena[ItemAccessor]
}

// New returns an uninitialized form for schema.
func New(schema *Schema, opts ...Option) *Form {
	if schema == nil {
		panic("formstate: nil schema")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(o.parent)
	f := &Form{
		id:         id,
		schema:     schema,
		opts:       o,
		log:        o.logger.With(zap.String("form_id", id)),
		tracer:     o.tracer.Tracer(instrumentationName),
		ctx:        ctx,
		cancel:     cancel,
		sem:        semaphore.NewWeighted(1),
		errs:       map[string]FieldError{},
		validating: map[string]struct{}{},
		validators: map[string]*debounce.Debouncer{},
		subs:       map[uint64]func(){},
		fields:     arena.New[FieldAccessor](),
		arrays:     arena.New[ArrayAccessor](),
		items:      arena.New[ItemAccessor](),
	}
	f.auto = autosubmit.New(ctx, o.mode.Debounce, f.autoSubmit)
	return f
}

// ID returns the form's unique id.
func (f *Form) ID() string { return f.id }

// Schema returns the form schema.
func (f *Form) Schema() *Schema { return f.schema }

// Mode returns the configured mode.
func (f *Form) Mode() Mode { return f.opts.mode }

// Initialize sets the initial values. Keys missing from defaults take the
// schema defaults; nil defaults means schema defaults only. With keep-alive
// (the default) only the first call has an effect. Nested maps and slices
// of defaults are shared with the form and must not be modified afterwards.
func (f *Form) Initialize(defaults map[string]any) error {
	values := f.schema.Defaults()
	maps.Copy(values, defaults)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	if f.st != nil && f.opts.keepAlive {
		f.mu.Unlock()
		return nil
	}
	reinit := f.st != nil
	f.st = state.Initial(values)
	f.errs = map[string]FieldError{}
	f.result = SubmitResult{}
	f.epoch++
	f.cancelValidationsLocked(func(string) bool { return true })
	f.mu.Unlock()

	f.auto.Cancel()
	f.log.Debug("form initialized", zap.Bool("reinitialized", reinit))
	f.notify()
	return nil
}

// Initialized reports whether Initialize ran.
func (f *Form) Initialized() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.st != nil
}

// apply runs a pure transition under the lock. It reports whether the
// snapshot changed.
func (f *Form) apply(op string, fn func(*state.State) *state.State) (bool, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return false, ErrClosed
	}
	if f.st == nil {
		f.mu.Unlock()
		panic(ErrNotInitialized)
	}
	next := fn(f.st)
	changed := next != f.st
	f.st = next
	f.mu.Unlock()
	if changed {
		f.log.Debug("transition", zap.String("op", op))
		f.notify()
	}
	return changed, nil
}

// SetValue stores v at path. Refinement errors stay in place.
func (f *Form) SetValue(path string, v any) error {
	if _, err := tree.Parse(path); err != nil {
		return fmt.Errorf("formstate: set value at %q: %w", path, err)
	}
	_, err := f.apply("set_value", func(s *state.State) *state.State {
		return state.SetFieldValue(s, path, v)
	})
	return err
}

// UpdateValue replaces the value at path with fn(previous).
func (f *Form) UpdateValue(path string, fn func(prev any) any) error {
	if _, err := tree.Parse(path); err != nil {
		return fmt.Errorf("formstate: update value at %q: %w", path, err)
	}
	_, err := f.apply("update_value", func(s *state.State) *state.State {
		prev, _ := tree.Get(s.Values, path)
		return state.SetFieldValue(s, path, fn(prev))
	})
	return err
}

// SetValues replaces the whole values tree and clears every error. The
// form keeps its own copy of the top-level map; nested maps and slices are
// shared and must not be modified afterwards.
func (f *Form) SetValues(values map[string]any) error {
	values = maps.Clone(values)
	if values == nil {
		values = map[string]any{}
	}
	_, err := f.apply("set_values", func(s *state.State) *state.State {
		f.errs = map[string]FieldError{}
		return state.SetFormValues(s, values)
	})
	return err
}

// SetTouched marks path touched or untouched.
func (f *Form) SetTouched(path string, touched bool) error {
	if _, err := tree.Parse(path); err != nil {
		return fmt.Errorf("formstate: set touched at %q: %w", path, err)
	}
	_, err := f.apply("set_touched", func(s *state.State) *state.State {
		return state.SetFieldTouched(s, path, touched)
	})
	return err
}

// Reset restores the initial values, clears errors and submission history
// and drops scheduled validations and auto-submits.
func (f *Form) Reset() error {
	_, err := f.apply("reset", func(s *state.State) *state.State {
		f.errs = map[string]FieldError{}
		f.result = SubmitResult{}
		f.epoch++
		f.cancelValidationsLocked(func(string) bool { return true })
		return state.Reset(s)
	})
	if err == nil {
		f.auto.Cancel()
	}
	return err
}

// Revert restores the last successfully submitted values. It does nothing
// before the first successful submission or when nothing changed since.
func (f *Form) Revert() error {
	_, err := f.apply("revert", func(s *state.State) *state.State {
		next := state.RevertToLastSubmit(s)
		if next != s {
			f.errs = map[string]FieldError{}
		}
		return next
	})
	return err
}

// AppendItem appends value, or the item schema default when value is
// omitted, to the array at arrayPath. Paths the schema does not declare as
// arrays must already hold one.
func (f *Form) AppendItem(arrayPath string, value ...any) error {
	item, declared := itemValidatorAt(f.schema, arrayPath)
	var d state.Defaulter
	if item != nil {
		d = item
	}
	_, err := f.apply("append_item", func(s *state.State) *state.State {
		if v, _ := tree.Get(s.Values, arrayPath); v == nil && !declared {
			return s
		}
		return state.AppendArrayItem(s, arrayPath, d, value...)
	})
	return err
}

// RemoveItem removes the item at index. Out-of-range indices and paths not
// holding an array do nothing.
func (f *Form) RemoveItem(arrayPath string, index int) error {
	return f.reorderItems("remove_item", arrayPath, func(s *state.State) *state.State {
		return state.RemoveArrayItem(s, arrayPath, index)
	}, func(k int) int {
		switch {
		case k == index:
			return -1
		case k > index:
			return k - 1
		}
		return k
	})
}

// SwapItems exchanges two items. Invalid or equal indices do nothing.
func (f *Form) SwapItems(arrayPath string, i, j int) error {
	return f.reorderItems("swap_items", arrayPath, func(s *state.State) *state.State {
		return state.SwapArrayItems(s, arrayPath, i, j)
	}, func(k int) int {
		switch k {
		case i:
			return j
		case j:
			return i
		}
		return k
	})
}

// MoveItem moves the item at from to index to; to may equal the length.
func (f *Form) MoveItem(arrayPath string, from, to int) error {
	var n int
	return f.reorderItems("move_item", arrayPath, func(s *state.State) *state.State {
		next := state.MoveArrayItem(s, arrayPath, from, to)
		v, _ := tree.Get(s.Values, arrayPath)
		arr, _ := v.([]any)
		n = len(arr)
		return next
	}, func(k int) int {
		at := min(to, n-1)
		if k == from {
			return at
		}
		if k > from {
			k--
		}
		if k >= at {
			k++
		}
		return k
	})
}

// reorderItems applies an array transition. When it changes the array,
// errors and pending validations under arrayPath follow their items
// (moveTo maps an old index to its new one, or -1 for a removed item),
// accessors of vanished indices are evicted and the moved paths are
// revalidated.
func (f *Form) reorderItems(op, arrayPath string, fn func(*state.State) *state.State, moveTo func(int) int) error {
	var recheck []string
	changed, err := f.apply(op, func(s *state.State) *state.State {
		next := fn(s)
		if next == s {
			return s
		}
		recheck = f.shiftItemsLocked(arrayPath, moveTo)
		v, _ := tree.Get(next.Values, arrayPath)
		arr, _ := v.([]any)
		f.evictItemsLocked(arrayPath, len(arr))
		return next
	})
	if err != nil || !changed {
		return err
	}
	for _, p := range recheck {
		f.validate(p, f.opts.mode.Debounce)
	}
	return nil
}

// shiftItemsLocked re-keys stored errors under arrayPath by moveTo and
// drops those of removed items. Pending validations under arrayPath are
// cancelled. It returns the new paths of the cancelled validations plus,
// when the mode shows errors after a change, those of moved field errors.
func (f *Form) shiftItemsLocked(arrayPath string, moveTo func(int) int) []string {
	base, err := tree.Parse(arrayPath)
	if err != nil {
		return nil
	}
	rekey := func(key string) (string, bool) {
		if key == arrayPath || !tree.IsAncestorOrSelf(arrayPath, key) {
			return key, true
		}
		segs, err := tree.Parse(key)
		if err != nil || len(segs) <= len(base) || !segs[len(base)].IsIndex {
			return key, true
		}
		to := moveTo(segs[len(base)].Index)
		if to < 0 {
			return "", false
		}
		segs[len(base)].Index = to
		return tree.Join("", segs...), true
	}

	recheck := map[string]struct{}{}
	gate := f.opts.mode.Validation == ValidateOnChange || f.st.SubmitCount > 0
	errs := make(map[string]FieldError, len(f.errs))
	for k, e := range f.errs {
		nk, keep := rekey(k)
		if !keep {
			continue
		}
		errs[nk] = e
		if nk != k && gate && e.Source == SourceField {
			recheck[nk] = struct{}{}
		}
	}
	f.errs = errs

	f.cancelValidationsLocked(func(p string) bool {
		nk, keep := rekey(p)
		if nk == p {
			return false
		}
		if keep {
			recheck[nk] = struct{}{}
		}
		return true
	})
	return slices.Sorted(maps.Keys(recheck))
}

// evictItemsLocked drops accessors and scheduled validations addressing
// items at index n or beyond.
func (f *Form) evictItemsLocked(arrayPath string, n int) {
	base, err := tree.Parse(arrayPath)
	if err != nil {
		return
	}
	stale := func(key string) bool {
		if key == arrayPath || !tree.IsAncestorOrSelf(arrayPath, key) {
			return false
		}
		segs, err := tree.Parse(key)
		if err != nil || len(segs) <= len(base) {
			return false
		}
		s := segs[len(base)]
		return s.IsIndex && s.Index >= n
	}
	f.fields.DeleteFunc(stale)
	f.arrays.DeleteFunc(stale)
	f.items.DeleteFunc(stale)
	f.cancelValidationsLocked(stale)
}

// ---- reads ----

func (f *Form) read(fn func(s *state.State)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.st != nil {
		fn(f.st)
	}
}

// Value returns the current value at path.
func (f *Form) Value(path string) (v any) {
	f.read(func(s *state.State) { v, _ = tree.Get(s.Values, path) })
	return v
}

// Values returns a copy of the top level of the current values tree.
// Nested maps and slices are shared with the form and must not be modified;
// change values through SetValue or UpdateValue.
func (f *Form) Values() (v map[string]any) {
	f.read(func(s *state.State) {
		m, _ := s.Values.(map[string]any)
		v = maps.Clone(m)
	})
	return v
}

// InitialValue returns the initial value at path.
func (f *Form) InitialValue(path string) (v any) {
	f.read(func(s *state.State) { v, _ = tree.Get(s.InitialValues, path) })
	return v
}

// Touched reports the touched flag at path.
func (f *Form) Touched(path string) (b bool) {
	f.read(func(s *state.State) { b = state.IsTouched(s, path) })
	return b
}

// Dirty reports whether path or one of its ancestors differs from the
// initial values.
func (f *Form) Dirty(path string) (b bool) {
	f.read(func(s *state.State) { b = s.Dirty.HasAncestorOrSelf(path) })
	return b
}

// IsDirty reports whether any value differs from the initial values.
func (f *Form) IsDirty() (b bool) {
	f.read(func(s *state.State) { b = state.IsDirty(s) })
	return b
}

// SubmitCount returns the number of submit attempts since the last reset.
func (f *Form) SubmitCount() (n int) {
	f.read(func(s *state.State) { n = s.SubmitCount })
	return n
}

// Error returns the visible error message at path.
func (f *Form) Error(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, _ := f.visibleErrorLocked(path)
	return msg
}

// Errors returns every stored error entry, visible or not.
func (f *Form) Errors() map[string]FieldError {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.errs)
}

// Validating reports whether a validation of path is scheduled or running.
func (f *Form) Validating(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.validating[path]
	return ok
}

// visibleErrorLocked applies the mode gate to the stored entry at p.
func (f *Form) visibleErrorLocked(p string) (string, bool) {
	e, ok := f.errs[p]
	if !ok || f.st == nil {
		return "", false
	}
	if f.st.SubmitCount > 0 {
		return e.Message, true
	}
	switch f.opts.mode.Validation {
	case ValidateOnBlur:
		if state.IsTouched(f.st, p) {
			return e.Message, true
		}
	case ValidateOnChange:
		if f.st.Dirty.HasAncestorOrSelf(p) {
			return e.Message, true
		}
	}
	return "", false
}

// Subscribe registers fn to run after every change. fn runs on the
// goroutine that made the change and must not block.
func (f *Form) Subscribe(fn func()) (unsubscribe func()) {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}

func (f *Form) notify() {
	f.mu.Lock()
	fns := make([]func(), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Close tears the form down: scheduled validations and auto-submits are
// cancelled, running ones are awaited, and accessor caches are cleared. No
// submission starts after Close returns. Close must not be called from a
// submit callback.
func (f *Form) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.cancel()
	debs := make([]*debounce.Debouncer, 0, len(f.validators))
	for _, d := range f.validators {
		debs = append(debs, d)
	}
	clear(f.validators)
	clear(f.validating)
	clear(f.subs)
	f.mu.Unlock()

	f.auto.Close()
	for _, d := range debs {
		d.Stop()
	}
	f.fields.Clear()
	f.arrays.Clear()
	f.items.Clear()
	f.log.Debug("form closed")
	return nil
}

// Closed reports whether Close was called.
func (f *Form) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
