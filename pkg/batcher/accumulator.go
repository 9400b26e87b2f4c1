package batcher

import "context"

// Accumulator collects items synchronously and flushes them in groups of at most size.
// Not safe for concurrent use.
type Accumulator[T any] struct {
	size    int
	items   []T
	flush   func(context.Context, []T) error
	flushes int
}

// NewAccumulator returns an accumulator flushing through fn. A size below 1 is treated as 1.
func NewAccumulator[T any](size int, fn func(context.Context, []T) error) *Accumulator[T] {
	if size <= 0 {
		size = 1
	}
	return &Accumulator[T]{size: size, flush: fn, items: make([]T, 0, size)}
}

// Add appends an item without flushing.
func (a *Accumulator[T]) Add(items ...T) {
	a.items = append(a.items, items...)
}

// Len returns the number of pending items.
func (a *Accumulator[T]) Len() int {
	return len(a.items)
}

// Flushes returns how many times the callback was invoked.
func (a *Accumulator[T]) Flushes() int {
	return a.flushes
}

// FlushIfFull flushes full groups and keeps the remainder pending.
func (a *Accumulator[T]) FlushIfFull(ctx context.Context) error {
	for len(a.items) >= a.size {
		if err := a.send(ctx, a.size); err != nil {
			return err
		}
	}
	return nil
}

// FlushRemaining flushes every pending item. It is a no-op when nothing is pending.
func (a *Accumulator[T]) FlushRemaining(ctx context.Context) error {
	for len(a.items) > 0 {
		n := a.size
		if n > len(a.items) {
			n = len(a.items)
		}
		if err := a.send(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// send hands the first n items to the callback. They leave the accumulator even when it fails.
func (a *Accumulator[T]) send(ctx context.Context, n int) error {
	group := make([]T, n)
	copy(group, a.items[:n])
	a.items = append(a.items[:0], a.items[n:]...)
	a.flushes++
	return a.flush(ctx, group)
}
