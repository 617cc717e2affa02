package bus

import (
	"context"
	"sync/atomic"

	"github.com/yanun0323/errors"

	"main/internal/model"
)

var (
	ErrQueueFull   = errors.New("event queue full")
	ErrQueueClosed = errors.New("event queue closed")
)

// Queue is a bounded, non-blocking queue of position events. The state
// machine publishes, the settlement loop consumes; each event is
// delivered exactly once.
type Queue struct {
	ch     chan model.PositionEvent
	closed uint32
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan model.PositionEvent, capacity)}
}

// TryPublish enqueues an event without blocking.
func (q *Queue) TryPublish(e model.PositionEvent) error {
	if atomic.LoadUint32(&q.closed) != 0 {
		return ErrQueueClosed
	}
	select {
	case q.ch <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops the queue from accepting new events.
func (q *Queue) Close() {
	if atomic.CompareAndSwapUint32(&q.closed, 0, 1) {
		close(q.ch)
	}
}

// Run consumes events until the context is done or the queue is closed
// and drained.
func (q *Queue) Run(ctx context.Context, handler func(model.PositionEvent)) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-q.ch:
			if !ok {
				return
			}
			handler(e)
		}
	}
}
