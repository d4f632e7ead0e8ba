package formstate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/reoring/formstate/internal/debounce"
	"github.com/reoring/formstate/internal/tree"
)

// validate schedules per-field validation of path. A non-positive delay
// validates on the calling goroutine; otherwise each path has its own
// debounce window and a newer request cancels an older one.
func (f *Form) validate(path string, delay time.Duration) {
	f.mu.Lock()
	if f.closed || f.st == nil {
		f.mu.Unlock()
		return
	}
	f.validating[path] = struct{}{}
	d, ok := f.validators[path]
	if delay <= 0 {
		if ok {
			d.Cancel()
		}
		f.mu.Unlock()
		f.runValidation(f.ctx, path)
		return
	}
	if !ok {
		d = debounce.New(f.ctx, delay)
		f.validators[path] = d
	}
	d.Trigger(func(ctx context.Context) { f.runValidation(ctx, path) })
	f.mu.Unlock()
	f.notify()
}

// runValidation decodes the current value at path and records the outcome
// unless ctx was cancelled meanwhile (superseded, reset or closed).
func (f *Form) runValidation(ctx context.Context, path string) {
	f.mu.Lock()
	if f.closed || f.st == nil || ctx.Err() != nil {
		f.mu.Unlock()
		return
	}
	v, _ := tree.Get(f.st.Values, path)
	epoch := f.epoch
	f.mu.Unlock()

	var err error
	if validator, ok := f.schema.ValidatorAt(path); ok {
		_, err = validator.Decode(WithFailFast(ctx, true), v)
	}

	f.mu.Lock()
	if f.closed || ctx.Err() != nil || epoch != f.epoch {
		f.mu.Unlock()
		return
	}
	delete(f.validating, path)
	f.recordFieldResultLocked(path, err)
	f.mu.Unlock()

	f.opts.metrics.observeValidation(err == nil)
	if err != nil {
		f.log.Debug("field invalid", zap.String("path", path), zap.Error(err))
	}
	f.notify()
}

// recordFieldResultLocked stores or clears the field-sourced entry at path.
// Refinement-sourced entries are never touched here.
func (f *Form) recordFieldResultLocked(path string, err error) {
	cur, has := f.errs[path]
	if has && cur.Source == SourceRefinement {
		return
	}
	if err == nil {
		delete(f.errs, path)
		return
	}
	f.errs[path] = FieldError{Message: FirstMessage(IssueFromError(err)), Source: SourceField}
}

// cancelValidationsLocked drops scheduled validations for matching paths.
// Running ones see their context cancelled and discard their result.
func (f *Form) cancelValidationsLocked(match func(path string) bool) {
	for p, d := range f.validators {
		if match(p) {
			d.Cancel()
			delete(f.validators, p)
		}
	}
	for p := range f.validating {
		if match(p) {
			delete(f.validating, p)
		}
	}
}
