package formstate

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// SubmitFunc receives the decoded values of a successful validation. Its
// result becomes the result of the submission.
type SubmitFunc func(ctx context.Context, decoded map[string]any, sc SubmitContext) (any, error)

// Option configures a Form.
type Option func(*options)

type options struct {
	mode      Mode
	keepAlive bool
	onSubmit  SubmitFunc
	logger    *zap.Logger
	metrics   *Metrics
	tracer    trace.TracerProvider
	parent    context.Context
}

func defaultOptions() options {
	return options{
		mode:      OnSubmit(),
		keepAlive: true,
		logger:    zap.NewNop(),
		tracer:    otel.GetTracerProvider(),
		parent:    context.Background(),
	}
}

// WithMode sets the validation and auto-submit mode. Default: OnSubmit().
func WithMode(m Mode) Option { return func(o *options) { o.mode = m } }

// WithKeepAlive controls whether Initialize is idempotent. When false every
// call reinitializes. Default: true.
func WithKeepAlive(keep bool) Option { return func(o *options) { o.keepAlive = keep } }

// WithOnSubmit sets the submit callback.
func WithOnSubmit(fn SubmitFunc) Option { return func(o *options) { o.onSubmit = fn } }

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records submissions and validations into m.
func WithMetrics(m *Metrics) Option { return func(o *options) { o.metrics = m } }

// WithTracerProvider sets the provider for submission spans. Default: the
// global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracer = tp
		}
	}
}

// WithContext sets the parent of the form scope. Cancelling it has the
// same effect on scheduled work as Close.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.parent = ctx
		}
	}
}
