package match

import (
	"time"

	"github.com/okian/scout/pkg/logger"
)

// Option applies a configuration option to a Match.
type Option func(*Match)

// WithID sets the match id. A random uuid is used otherwise.
func WithID(id string) Option {
	return func(m *Match) {
		if id != "" {
			m.id = id
		}
	}
}

// WithInfo sets the optional match metadata.
func WithInfo(info Info) Option {
	return func(m *Match) {
		m.info = info
	}
}

// WithAutoLength sets the autonomous period length in seconds.
func WithAutoLength(seconds float64) Option {
	return func(m *Match) {
		if seconds > 0 {
			m.clock.autoLength = seconds
		}
	}
}

// WithMatchLength sets the full match length in seconds.
func WithMatchLength(seconds float64) Option {
	return func(m *Match) {
		if seconds > 0 {
			m.clock.matchLength = seconds
		}
	}
}

// WithSink sets the display sink.
func WithSink(s Sink) Option {
	return func(m *Match) {
		if s != nil {
			m.sink = s
		}
	}
}

// WithLogger sets the logger used for rejected commands and lifecycle.
func WithLogger(l logger.Logger) Option {
	return func(m *Match) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithCreated sets the match date recorded in snapshots.
func WithCreated(t time.Time) Option {
	return func(m *Match) {
		if !t.IsZero() {
			m.created = t
		}
	}
}
