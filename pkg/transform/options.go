package transform

import (
	"log/slog"
	"time"

	"mercator-hq/exceller/pkg/schema/ast"
	"mercator-hq/exceller/pkg/transform/eval"
	"mercator-hq/exceller/pkg/transform/plugin"
)

// Observer is notified after every node resolution, children included.
type Observer interface {
	ObserveResolve(kind ast.Kind, duration time.Duration, err error)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(kind ast.Kind, duration time.Duration, err error)

// ObserveResolve calls f.
func (f ObserverFunc) ObserveResolve(kind ast.Kind, duration time.Duration, err error) {
	f(kind, duration, err)
}

// Option configures a Transformer.
type Option func(*options)

type options struct {
	loader    plugin.Loader
	logger    *slog.Logger
	observer  Observer
	evaluator *eval.Evaluator
}

func newOptions(opts []Option) *options {
	o := &options{
		loader: plugin.NopLoader,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.evaluator == nil {
		o.evaluator = eval.NewEvaluator(o.logger)
	}
	return o
}

// WithLoader sets the loader resolving import-path plugin descriptors. The
// default loader knows no modules.
func WithLoader(l plugin.Loader) Option {
	return func(o *options) {
		if l != nil {
			o.loader = l
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver sets the resolution observer.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}
