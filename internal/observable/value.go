// Package observable provides a small publish/subscribe value cell used to
// expose derived session state to UIs without polling.
package observable

import (
	"context"
	"sync"
)

// Reader is the read-only side of a Value.
type Reader[T any] interface {
	// Get returns the current value.
	Get() T

	// Watch returns a channel that receives the current value immediately and
	// every later value. The channel is closed when ctx is done.
	Watch(ctx context.Context) <-chan T
}

// Value holds a value of type T and notifies watchers on every change.
//
// Watcher channels have a buffer of one and keep only the latest value, so a
// slow reader never blocks a writer; it simply skips intermediate values.
type Value[T any] struct {
	mu       sync.Mutex
	v        T
	watchers map[*watcher[T]]struct{}
}

type watcher[T any] struct {
	ch     chan T
	closed bool
}

// New creates a Value holding v.
func New[T any](v T) *Value[T] {
	return &Value[T]{
		v:        v,
		watchers: make(map[*watcher[T]]struct{}),
	}
}

// Get returns the current value.
func (o *Value[T]) Get() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.v
}

// Set replaces the value and notifies all watchers.
func (o *Value[T]) Set(v T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.v = v
	o.broadcastLocked()
}

// Update applies fn to the current value atomically and stores the result.
func (o *Value[T]) Update(fn func(T) T) T {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.v = fn(o.v)
	o.broadcastLocked()
	return o.v
}

// Watch implements Reader.
func (o *Value[T]) Watch(ctx context.Context) <-chan T {
	w := &watcher[T]{ch: make(chan T, 1)}

	o.mu.Lock()
	w.ch <- o.v
	o.watchers[w] = struct{}{}
	o.mu.Unlock()

	context.AfterFunc(ctx, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.watchers, w)
		if !w.closed {
			w.closed = true
			close(w.ch)
		}
	})

	return w.ch
}

// Watchers returns the number of active watchers.
func (o *Value[T]) Watchers() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.watchers)
}

func (o *Value[T]) broadcastLocked() {
	for w := range o.watchers {
		// Drop the stale value, if any, so the send below never blocks.
		select {
		case <-w.ch:
		default:
		}
		w.ch <- o.v
	}
}

// SetDistinct stores next only if it differs from the current value.
// It reports whether a change was published.
func SetDistinct[T comparable](o *Value[T], next T) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.v == next {
		return false
	}
	o.v = next
	o.broadcastLocked()
	return true
}
