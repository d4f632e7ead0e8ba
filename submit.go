package formstate

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/reoring/formstate/internal/autosubmit"
	"github.com/reoring/formstate/internal/state"
	"github.com/reoring/formstate/internal/tree"
)

// SubmitStatus is the phase of the latest submission.
type SubmitStatus int

const (
	SubmitIdle SubmitStatus = iota
	SubmitRunning
	SubmitSucceeded
	SubmitFailed
)

func (s SubmitStatus) String() string {
	switch s {
	case SubmitRunning:
		return "running"
	case SubmitSucceeded:
		return "succeeded"
	case SubmitFailed:
		return "failed"
	default:
		return "idle"
	}
}

// SubmitResult describes the latest submission.
type SubmitResult struct {
	ID         string
	Status     SubmitStatus
	Auto       bool
	Value      any
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// SubmitContext is passed to the submit callback.
type SubmitContext struct {
	ID      string         // Unique per submission.
	Attempt int            // Submit count including this attempt.
	Auto    bool           // Started by the auto-submit coordinator.
	Values  map[string]any // The encoded values that were decoded.
}

// Submitted is the pair captured by the last successful validation.
type Submitted struct {
	Encoded map[string]any
	Decoded map[string]any
}

// Submit validates every field and refinement and, on success, commits the
// values as last submitted and calls the submit callback. Validation failure
// returns a *ValidationError (matching ErrValidation); a callback error is
// returned as is and does not undo the commit. Submissions of one form never
// overlap. Submit panics with ErrNotInitialized before Initialize.
func (f *Form) Submit(ctx context.Context) (any, error) {
	f.mu.Lock()
	uninitialized, closed := f.st == nil, f.closed
	f.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if uninitialized {
		panic(ErrNotInitialized)
	}
	f.auto.Begin()
	defer f.auto.Settle()
	return f.submit(ctx, false)
}

func (f *Form) autoSubmit(ctx context.Context) {
	if _, err := f.submit(ctx, true); err != nil && !errors.Is(err, ErrClosed) && !errors.Is(err, ErrReset) {
		f.log.Debug("auto submit finished with error", zap.Error(err))
	}
}

func (f *Form) submit(ctx context.Context, auto bool) (any, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer f.sem.Release(1)

	id := uuid.NewString()
	ctx, span := f.tracer.Start(ctx, "formstate.Submit",
		trace.WithAttributes(
			attribute.String("formstate.form_id", f.id),
			attribute.String("formstate.submit_id", id),
			attribute.Bool("formstate.auto", auto),
		),
	)
	defer span.End()
	log := f.log.With(zap.String("submit_id", id), zap.Bool("auto", auto))
	start := time.Now()

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	if f.st == nil {
		f.mu.Unlock()
		return nil, ErrNotInitialized
	}
	values, _ := f.st.Values.(map[string]any)
	epoch := f.epoch
	attempt := f.st.SubmitCount + 1
	f.errs = map[string]FieldError{}
	f.submitting = true
	f.result = SubmitResult{ID: id, Status: SubmitRunning, Auto: auto, StartedAt: start}
	f.mu.Unlock()
	f.notify()

	decoded, err := f.schema.Decode(ctx, values)
	if err != nil {
		is, isIssue := AsIssue(err)
		if !isIssue && ctx.Err() != nil {
			f.finish(id, nil, err)
			f.opts.metrics.observeSubmit(resultCancelled, auto, time.Since(start))
			span.SetStatus(codes.Error, "cancelled")
			return nil, err
		}
		if !isIssue {
			is = IssueFromError(err)
		}
		routed := RouteErrors(is)
		verr := &ValidationError{Issue: is, Errors: routed}

		f.mu.Lock()
		if err := f.supersededLocked(epoch); err != nil {
			f.mu.Unlock()
			return nil, f.abandon(id, span, err)
		}
		f.errs = routed
		f.st = state.Submit(f.st)
		f.mu.Unlock()
		f.finish(id, nil, verr)

		f.opts.metrics.observeSubmit(resultInvalid, auto, time.Since(start))
		span.SetAttributes(attribute.Int("formstate.errors", len(routed)))
		span.SetStatus(codes.Error, "validation failed")
		log.Info("submission rejected", zap.Int("attempt", attempt), zap.Int("errors", len(routed)))
		return nil, verr
	}

	out, _ := decoded.(map[string]any)
	f.mu.Lock()
	if err := f.supersededLocked(epoch); err != nil {
		f.mu.Unlock()
		return nil, f.abandon(id, span, err)
	}
	f.st = state.Commit(state.Submit(f.st), values, out)
	f.mu.Unlock()
	f.notify()

	var res any
	var cbErr error
	if f.opts.onSubmit != nil {
		res, cbErr = f.opts.onSubmit(ctx, maps.Clone(out), SubmitContext{ID: id, Attempt: attempt, Auto: auto, Values: maps.Clone(values)})
	}
	f.finish(id, res, cbErr)

	if cbErr != nil {
		f.opts.metrics.observeSubmit(resultFailed, auto, time.Since(start))
		span.RecordError(cbErr)
		span.SetStatus(codes.Error, cbErr.Error())
		log.Info("submission failed", zap.Int("attempt", attempt), zap.Error(cbErr))
		return nil, cbErr
	}
	f.opts.metrics.observeSubmit(resultSuccess, auto, time.Since(start))
	span.SetStatus(codes.Ok, "")
	log.Info("submission succeeded", zap.Int("attempt", attempt), zap.Duration("took", time.Since(start)))
	return res, nil
}

// supersededLocked reports why a submission that read the values at epoch
// may no longer write its outcome.
func (f *Form) supersededLocked(epoch uint64) error {
	if f.closed {
		return ErrClosed
	}
	if f.epoch != epoch {
		return ErrReset
	}
	return nil
}

// abandon ends submission id without touching the form state.
func (f *Form) abandon(id string, span trace.Span, err error) error {
	f.finish(id, nil, err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// finish records the outcome of submission id.
func (f *Form) finish(id string, v any, err error) {
	f.mu.Lock()
	f.submitting = false
	if f.result.ID == id {
		f.result.Value = v
		f.result.Err = err
		f.result.FinishedAt = time.Now()
		f.result.Status = SubmitSucceeded
		if err != nil {
			f.result.Status = SubmitFailed
		}
	}
	f.mu.Unlock()
	f.notify()
}

// Submitting reports whether a submission is running.
func (f *Form) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// Result returns the latest submission result.
func (f *Form) Result() SubmitResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

// AutoSubmitPhase is the phase of the auto-submit coordinator.
type AutoSubmitPhase = autosubmit.Phase

const (
	AutoSubmitIdle       = autosubmit.Idle
	AutoSubmitDebouncing = autosubmit.Debouncing
	AutoSubmitSubmitting = autosubmit.Submitting
)

// AutoSubmitState reports the auto-submit coordinator phase.
func (f *Form) AutoSubmitState() AutoSubmitPhase { return f.auto.Phase() }

// LastSubmitted returns the values captured by the last successful
// validation, or nil.
func (f *Form) LastSubmitted() *Submitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.st == nil || f.st.LastSubmitted == nil {
		return nil
	}
	return toSubmitted(f.st.LastSubmitted)
}

func toSubmitted(s *state.Submitted) *Submitted {
	return &Submitted{Encoded: cloneMap(s.Encoded), Decoded: cloneMap(s.Decoded)}
}

// ---- event handlers ----

// handleChange stores v at path and runs the mode-gated validation and
// auto-submit triggers.
func (f *Form) handleChange(path string, fn func(s *state.State) *state.State) error {
	if _, err := f.apply("change", fn); err != nil {
		return err
	}
	m := f.opts.mode
	if m.Validation == ValidateOnChange || f.SubmitCount() > 0 {
		f.validate(path, m.Debounce)
	}
	if m.Validation == ValidateOnChange && m.AutoSubmit {
		f.opts.metrics.observeTrigger("change")
		f.auto.Trigger()
	}
	return nil
}

// handleBlur marks path touched and runs the mode-gated validation and
// auto-submit triggers.
func (f *Form) handleBlur(path string) error {
	if err := f.SetTouched(path, true); err != nil {
		return err
	}
	m := f.opts.mode
	if m.Validation != ValidateOnBlur {
		return nil
	}
	f.validate(path, 0)
	if !m.AutoSubmit {
		return nil
	}
	f.mu.Lock()
	unchanged := f.st.LastSubmitted != nil && tree.Same(f.st.Values, f.st.LastSubmitted.Encoded)
	f.mu.Unlock()
	if unchanged {
		return nil
	}
	f.opts.metrics.observeTrigger("blur")
	f.auto.TriggerAfter(0)
	return nil
}
