// Package collector provides a time-bounded, single-response wait primitive.
// Every confirmation dialog and configuration step waits for its answer
// through a collector: the handler renders some UI, awaits the next
// qualifying response on that surface, and the interaction dispatcher
// submits inbound responses as they arrive.
package collector

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrTimedOut is returned by Await when the deadline elapses without a
	// qualifying response.
	ErrTimedOut = errors.New("timed out waiting for a response")

	// ErrBusy is returned by Await when the surface already has an
	// outstanding wait. The caller must stop the first wait before starting
	// another.
	ErrBusy = errors.New("surface already has an outstanding wait")

	// ErrStopped is returned by Await when the wait is stopped by the
	// caller.
	ErrStopped = errors.New("wait stopped")
)

// waiter is one outstanding wait on a surface.
type waiter[T any] struct {
	// principalID is the only principal whose responses qualify.
	principalID string

	// match further qualifies responses. Nil matches everything.
	match func(T) bool

	// ch carries the qualifying response. Buffered so Submit never blocks.
	ch chan T

	// stop is closed by Stop.
	stop chan struct{}
}

// Collector routes responses to outstanding waits. Surfaces are opaque
// strings, typically the ID of the rendered message the user responds to.
// At most one wait may be outstanding per surface.
type Collector[T any] struct {
	mu      sync.Mutex
	waiters map[string]*waiter[T]
}

// New creates a new collector.
func New[T any]() *Collector[T] {
	return &Collector[T]{
		waiters: make(map[string]*waiter[T]),
	}
}

// Await blocks until the given principal submits a qualifying response on
// the surface, the deadline elapses (ErrTimedOut), the wait is stopped
// (ErrStopped), or the context is cancelled. The collector never mutates any
// state of its own on timeout; reverting the UI is the caller's job.
func (c *Collector[T]) Await(ctx context.Context, surfaceID, principalID string, match func(T) bool, deadline time.Duration) (T, error) {
	var zero T

	w := &waiter[T]{
		principalID: principalID,
		match:       match,
		ch:          make(chan T, 1),
		stop:        make(chan struct{}),
	}

	c.mu.Lock()
	if _, ok := c.waiters[surfaceID]; ok {
		c.mu.Unlock()
		return zero, ErrBusy
	}
	c.waiters[surfaceID] = w
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.waiters[surfaceID] == w {
			delete(c.waiters, surfaceID)
		}
		c.mu.Unlock()
	}()

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case v := <-w.ch:
		return v, nil
	case <-timer.C:
		return zero, ErrTimedOut
	case <-w.stop:
		return zero, ErrStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Submit offers a response to the surface's outstanding wait. It reports
// whether the response was consumed; unconsumed responses should fall
// through to the static interaction handlers.
func (c *Collector[T]) Submit(surfaceID, principalID string, v T) bool {
	c.mu.Lock()
	w, ok := c.waiters[surfaceID]
	if ok {
		// A waiter accepts at most one response; later submissions fall
		// through once the buffered slot is taken.
		if w.principalID != "" && w.principalID != principalID {
			ok = false
		} else if w.match != nil && !w.match(v) {
			ok = false
		}
	}
	if ok {
		select {
		case w.ch <- v:
		default:
			ok = false
		}
	}
	c.mu.Unlock()
	return ok
}

// Stop cancels the surface's outstanding wait, if any. The blocked Await
// returns ErrStopped.
func (c *Collector[T]) Stop(surfaceID string) {
	c.mu.Lock()
	w, ok := c.waiters[surfaceID]
	if ok {
		delete(c.waiters, surfaceID)
	}
	c.mu.Unlock()
	if ok {
		close(w.stop)
	}
}
