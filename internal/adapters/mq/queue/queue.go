// Package queue buffers display frames between a match and the broadcaster.
//
// A match renders on every command and clock tick while holding its lock, so
// Enqueue never blocks: when the buffer is full the frame is dropped and the
// next render supersedes it.
package queue

import (
	"context"
	"sync"

	"github.com/okian/scout/internal/domain/match"
	"github.com/okian/scout/internal/domain/model"
	"github.com/okian/scout/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Frame is the payload type flowing through the queue.
type Frame = model.Frame

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a frame. It returns false when the queue is full or closed.
	Enqueue(ctx context.Context, f Frame) bool

	// Dequeue returns a channel of frames, closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Frame

	Len(ctx context.Context) int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	frames   chan Frame
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.frames = make(chan Frame, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a frame without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, f Frame) bool { //nolint:gocritic // hugeParam: frames travel by value
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	select {
	case q.frames <- f:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.frames))
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordFrameDropped()
		return false
	}
}

// Dequeue returns a channel that receives frames as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Frame {
	out := make(chan Frame)
	go func() {
		defer close(out)
		for f := range q.frames {
			select {
			case out <- f:
				metrics.RecordQueueDequeue()
				metrics.UpdateQueueSize(len(q.frames))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the number of buffered frames.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	size := len(q.frames)
	metrics.UpdateQueueSize(size)
	return size
}

// Close stops accepting frames. Buffered frames are still delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.frames)
	q.closed = true
	return nil
}

// IsClosed reports whether Close has been called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// Sink adapts the queue to a match display sink.
func (q *InMemoryQueue) Sink() match.Sink {
	return match.SinkFunc(func(f model.Frame) { q.Enqueue(context.Background(), f) })
}
