package worker

import (
	"github.com/okian/scout/pkg/logger"
)

// Option applies a configuration option to the Broadcaster.
type Option func(*Broadcaster)

// WithName sets the worker name used for its logger.
func WithName(name string) Option {
	return func(w *Broadcaster) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *Broadcaster) {
		if l != nil {
			w.logger = l
		}
	}
}
