package match

import "github.com/okian/scout/internal/domain/model"

// Sink receives a frame after every clock update and every command.
// Implementations must not call back into the match.
type Sink interface {
	Render(f model.Frame)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(f model.Frame)

// Render calls fn(f).
func (fn SinkFunc) Render(f model.Frame) { fn(f) }

type nopSink struct{}

func (nopSink) Render(model.Frame) {}
