package worker

import (
	"github.com/okian/stagepay/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithObserver registers fn to be told the outcome of every event.
func WithObserver(fn func(e Event, err error)) Option {
	return func(w *InMemoryWorker) {
		w.observe = fn
	}
}
