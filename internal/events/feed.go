package events

import (
	"sync"
)

// Feed provides pub/sub behavior to both channel and callback listeners.
// T is the type of the value published.
type Feed[T any] struct {
	mu           sync.RWMutex
	listeners    map[uint64]func(T)
	nextID       uint64
	replayLatest bool
	latest       T
	hasNotified  bool
}

// NewFeed creates a new Feed instance
// replayLatest: if true, the Feed remembers the last Notify value and hands it
// to new listeners immediately once Notify has been called at least once
func NewFeed[T any](replayLatest bool) *Feed[T] {
	return &Feed[T]{
		listeners:    make(map[uint64]func(T)),
		replayLatest: replayLatest,
	}
}

// Listen registers a channel to receive values when Notify is invoked.
// Sends are non-blocking: a full channel misses the value.
// Returns a deregistration function.
func (f *Feed[T]) Listen(ch chan<- T) func() {
	if ch == nil {
		panic("channel cannot be nil")
	}
	return f.ListenFunc(func(value T) {
		select {
		case ch <- value:
		default:
			// Channel is full, skip
		}
	})
}

// ListenFunc registers a callback run synchronously by Notify.
// Returns a deregistration function.
func (f *Feed[T]) ListenFunc(callback func(T)) func() {
	if callback == nil {
		panic("callback cannot be nil")
	}

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = callback
	replay := f.replayLatest && f.hasNotified
	latest := f.latest
	f.mu.Unlock()

	// Outside the lock so the callback may call back into the feed
	if replay {
		callback(latest)
	}

	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

// Notify hands value to every registered listener
// This operation is thread-safe
func (f *Feed[T]) Notify(value T) {
	f.mu.Lock()
	if f.replayLatest {
		f.latest = value
		f.hasNotified = true
	}

	listenersCopy := make([]func(T), 0, len(f.listeners))
	for _, callback := range f.listeners {
		listenersCopy = append(listenersCopy, callback)
	}
	f.mu.Unlock()

	for _, callback := range listenersCopy {
		callback(value)
	}
}

// Latest returns the last notified value of a replaying feed
func (f *Feed[T]) Latest() (T, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.latest, f.hasNotified
}

// ListenerCount returns the current number of registered listeners
// This is useful for testing and debugging
func (f *Feed[T]) ListenerCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.listeners)
}
