// Package workerpool runs bounded concurrent processing over a slice of items.
package workerpool

import (
	"context"
	"errors"
	"sync"
)

// Process runs process for each item on workerCount goroutines.
// The first error cancels the remaining work, invokes onCancel and is returned.
func Process[T any](
	ctx context.Context,
	workerCount int,
	items []T,
	process func(context.Context, T) error,
	onCancel func(),
) error {
	return run(ctx, workerCount, items, process, true, onCancel)
}

// ProcessAll runs process for every item even when some fail and returns the joined errors.
// Only context cancellation stops it early.
func ProcessAll[T any](
	ctx context.Context,
	workerCount int,
	items []T,
	process func(context.Context, T) error,
) error {
	return run(ctx, workerCount, items, process, false, nil)
}

func run[T any](
	ctx context.Context,
	workerCount int,
	items []T,
	process func(context.Context, T) error,
	failFast bool,
	onCancel func(),
) error {
	if workerCount <= 0 {
		workerCount = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	tasks := make(chan T, workerCount)

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case item, ok := <-tasks:
					if !ok {
						return
					}
					err := process(ctx, item)
					if err == nil {
						continue
					}
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
					if failFast {
						if onCancel != nil {
							onCancel()
						}
						cancel()
						return
					}
				}
			}
		}()
	}

	go func() {
		defer close(tasks)
		for _, item := range items {
			select {
			case <-ctx.Done():
				return
			case tasks <- item:
			}
		}
	}()

	wg.Wait()

	if failFast && len(errs) > 0 {
		return errs[0]
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return ctx.Err()
}
