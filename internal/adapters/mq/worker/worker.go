// Package worker drains the frame queue and publishes frames to displays.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/scout/internal/adapters/mq/queue"
	"github.com/okian/scout/pkg/logger"
	"github.com/okian/scout/pkg/metrics"
)

// Publisher delivers a frame to whoever watches its match.
type Publisher interface {
	Publish(ctx context.Context, f queue.Frame) error
}

// Queue defines how workers receive frames.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Frame
}

// Worker processes frames until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for the loop to exit.
	Shutdown(ctx context.Context) error
}

// Broadcaster implements Worker by handing every frame to a Publisher.
type Broadcaster struct {
	queue     Queue
	publisher Publisher
	name      string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewBroadcaster creates a broadcaster reading q and writing to p.
func NewBroadcaster(q Queue, p Publisher, opts ...Option) *Broadcaster {
	w := &Broadcaster{
		queue:     q,
		publisher: p,
		name:      "broadcaster",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *Broadcaster) Run(ctx context.Context) {
	defer close(w.done)

	frames := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			if err := w.publish(ctx, f); err != nil {
				w.logger.Warn(ctx, "frame not delivered",
					logger.String("match_id", f.MatchID), logger.Error(err))
			}
		}
	}
}

// Shutdown stops the loop. Frames still queued are not published.
func (w *Broadcaster) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *Broadcaster) publish(ctx context.Context, f queue.Frame) error { //nolint:gocritic // hugeParam: frames travel by value
	start := time.Now()
	defer func() {
		metrics.RecordBroadcastLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.publisher.Publish(ctx, f); err != nil {
		metrics.RecordErrorByComponent("broadcaster", "publish_error")
		return fmt.Errorf("publish frame of %s: %w", f.MatchID, err)
	}
	metrics.RecordFrameBroadcast()
	return nil
}
