// Package batch executes collections of work items against remote APIs
// with a bounded number of items in flight.
//
// Two modes are used by the migration steps:
//
//   - Sequential (concurrency 1): items run strictly in input order.
//     Required wherever the target side has sibling ordering
//     constraints, e.g. associating specifications to a product.
//   - Bounded parallel: up to N items in flight, side-effect order
//     unspecified, result order matching input order. Used for
//     read-mostly fan-out such as fetching per-entity details.
package batch

import (
	"context"
	"sync"
)

const (
	// Sequential processes exactly one item at a time.
	Sequential = 1

	// DefaultConcurrency bounds parallel batches when the caller has no
	// better number.
	DefaultConcurrency = 500
)

// ForEach runs fn once per item with at most concurrency items in
// flight and returns the results in input order.
//
// On the first error no further items are dispatched; items already in
// flight are allowed to finish, then the first error observed (by
// dispatch order) is returned. An empty input is a no-op success.
func ForEach[T, R any](ctx context.Context, items []T, concurrency int, fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	if concurrency == Sequential {
		results := make([]R, 0, len(items))
		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			res, err := fn(ctx, item)
			if err != nil {
				return results, err
			}
			results = append(results, res)
		}
		return results, nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		errIdx   = -1
		failed   bool
	)

	results := make([]R, len(items))
	tokens := make(chan struct{}, concurrency)

	for i, item := range items {
		mu.Lock()
		stop := failed
		mu.Unlock()
		if stop || ctx.Err() != nil {
			break
		}

		tokens <- struct{}{}
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			defer func() { <-tokens }()

			res, err := fn(ctx, item)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = true
				if errIdx == -1 || i < errIdx {
					errIdx = i
					firstErr = err
				}
				return
			}
			results[i] = res
		}(i, item)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Run is the void variant of ForEach for operations with no result.
func Run[T any](ctx context.Context, items []T, concurrency int, fn func(ctx context.Context, item T) error) error {
	_, err := ForEach(ctx, items, concurrency, func(ctx context.Context, item T) (struct{}, error) {
		return struct{}{}, fn(ctx, item)
	})
	return err
}
