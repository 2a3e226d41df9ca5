package scene

import "sync/atomic"

// EventQueue is a bounded FIFO feeding events from any goroutine to the
// goroutine running an interaction loop.
type EventQueue[T any] struct {
	channel chan T
	closed  atomic.Bool
}

// NewEventQueue creates a queue holding at most size pending items.
func NewEventQueue[T any](size int) *EventQueue[T] {
	return &EventQueue[T]{channel: make(chan T, size)}
}

// Post enqueues item without blocking.
// It returns false when the queue is full or closed.
func (q *EventQueue[T]) Post(item T) bool {
	if q.closed.Load() {
		return false
	}
	select {
	case q.channel <- item:
		return true
	default:
		return false
	}
}

// C exposes the receive side for select loops.
func (q *EventQueue[T]) C() <-chan T { return q.channel }

// TryReceive dequeues an item if one is pending.
func (q *EventQueue[T]) TryReceive() (T, bool) {
	select {
	case item := <-q.channel:
		return item, true
	default:
		var zero T
		return zero, false
	}
}

// Close stops further posts. Items already queued stay readable.
func (q *EventQueue[T]) Close() {
	q.closed.Store(true)
}

// Len returns the number of pending items.
func (q *EventQueue[T]) Len() int { return len(q.channel) }

// Cap returns the queue capacity.
func (q *EventQueue[T]) Cap() int { return cap(q.channel) }
