// Package memo holds lazily computed values shared by concurrent callers.
package memo

import (
	"context"
	"fmt"
	"sync"
)

type state int

const (
	uninitialized state = iota
	computing
	ready
)

// flight is one computation attempt. Waiters read val and err after done is closed.
type flight[T any] struct {
	done chan struct{}
	val  T
	err  error
	// abandoned is set when the computing caller's ctx ended first. The error
	// belongs to that caller, so waiters start over instead of sharing it.
	abandoned bool
}

// Cell computes its value once and shares it with every later caller.
// Callers that arrive while the computation runs wait for it and receive its
// result. A failed attempt is not cached; the next caller starts a new one.
//
// The zero value is ready to use.
type Cell[T any] struct {
	mu     sync.Mutex
	state  state
	value  T
	flight *flight[T]
}

// Get returns the cached value, or runs compute when none exists yet.
// A waiter whose ctx ends returns ctx.Err() and leaves the running computation
// alone. A waiter whose leader was cancelled retries with its own ctx.
func (c *Cell[T]) Get(ctx context.Context, compute func(context.Context) (T, error)) (T, error) {
	for {
		c.mu.Lock()
		switch c.state {
		case ready:
			v := c.value
			c.mu.Unlock()
			return v, nil

		case computing:
			f := c.flight
			c.mu.Unlock()
			select {
			case <-f.done:
				if f.abandoned && ctx.Err() == nil {
					continue
				}
				return f.val, f.err
			case <-ctx.Done():
				var zero T
				return zero, ctx.Err()
			}
		}

		f := &flight[T]{done: make(chan struct{})}
		c.state = computing
		c.flight = f
		c.mu.Unlock()

		c.run(ctx, f, compute)
		return f.val, f.err
	}
}

// run executes compute for f and settles the cell. A panic in compute still
// releases the waiters before it propagates.
func (c *Cell[T]) run(ctx context.Context, f *flight[T], compute func(context.Context) (T, error)) {
	settled := false
	defer func() {
		if settled {
			return
		}
		r := recover()
		f.err = fmt.Errorf("memo: compute did not return: %v", r)
		f.abandoned = true
		c.settle(f)
		if r != nil {
			panic(r)
		}
	}()

	f.val, f.err = compute(ctx)
	if f.err != nil && ctx.Err() != nil {
		f.abandoned = true
	}
	settled = true
	c.settle(f)
}

func (c *Cell[T]) settle(f *flight[T]) {
	c.mu.Lock()
	if f.err != nil {
		c.state = uninitialized
	} else {
		c.state = ready
		c.value = f.val
	}
	c.flight = nil
	c.mu.Unlock()
	close(f.done)
}

// Ready reports whether a value has been cached.
func (c *Cell[T]) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == ready
}
