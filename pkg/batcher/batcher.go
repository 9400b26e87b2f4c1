// Package batcher groups items before handing them to a flush callback.
package batcher

import (
	"context"
	"sync"
	"time"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"
)

// Batcher buffers items in the background and flushes them by size or interval.
// Each flush receives its own slice; callbacks may retain it.
type Batcher[T any] struct {
	flushCallback func(context.Context, []T) error
	itemsCh       chan T
	flushSize     int
	flushInterval time.Duration
	rl            ratelimit.Limiter
	logger        *zap.Logger

	wg       sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
}

// New constructs a Batcher. rps bounds the number of flushes per second.
func New[T any](logger *zap.Logger, flushCallback func(context.Context, []T) error, flushSize int, flushInterval time.Duration, rps int) *Batcher[T] {
	if flushSize <= 0 {
		flushSize = 1
	}
	return &Batcher[T]{
		logger:        logger,
		flushCallback: flushCallback,
		itemsCh:       make(chan T, flushSize*2),
		flushSize:     flushSize,
		flushInterval: flushInterval,
		rl:            ratelimit.New(rps),
		stop:          make(chan struct{}),
	}
}

// Start begins the background flushing loop.
func (b *Batcher[T]) Start(ctx context.Context) {
	b.wg.Add(1)
	go b.run(ctx)
}

// Stop flushes pending items and waits for the loop to exit. Safe to call twice.
func (b *Batcher[T]) Stop() {
	b.stopOnce.Do(func() { close(b.stop) })
	b.wg.Wait()
}

// Add queues an item, respecting context cancellation.
func (b *Batcher[T]) Add(ctx context.Context, item T) error {
	select {
	case <-b.stop:
		return context.Canceled
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.stop:
		return context.Canceled
	case b.itemsCh <- item:
		return nil
	}
}

func (b *Batcher[T]) run(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	acc := NewAccumulator(b.flushSize, func(ctx context.Context, items []T) error {
		b.rl.Take()
		return b.flushCallback(ctx, items)
	})

	flush := func(full bool) {
		size := acc.Len()
		var err error
		if full {
			err = acc.FlushIfFull(ctx)
		} else {
			err = acc.FlushRemaining(ctx)
		}
		switch {
		case err != nil:
			b.logger.Error("batch not flushed", zap.Error(err))
		case size > 0 && acc.Len() == 0:
			b.logger.Debug("batch flushed", zap.Int("size", size))
		}
	}

	drain := func() {
		for {
			select {
			case item := <-b.itemsCh:
				acc.Add(item)
			default:
				flush(false)
				return
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			drain()
			return

		case <-b.stop:
			drain()
			return

		case item := <-b.itemsCh:
			acc.Add(item)
			flush(true)

		case <-ticker.C:
			flush(false)
		}
	}
}
