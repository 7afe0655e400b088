// Package executor runs per-item work in sequential chunks of bounded concurrency.
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Config controls chunking and the pause between chunks.
type Config struct {
	Concurrency int
	BatchDelay  time.Duration
}

// Outcome is the single result produced for one input item.
type Outcome[T, R any] struct {
	Index  int
	Item   T
	Result R
	Err    error
}

// OK reports whether the item succeeded.
func (o Outcome[T, R]) OK() bool {
	return o.Err == nil
}

// ProgressFunc receives (completed, total, current) before and after each item.
// Calls are serialized by the executor.
type ProgressFunc[T any] func(completed, total int, current *T)

// ProcessFunc handles a single item.
type ProcessFunc[T, R any] func(ctx context.Context, item T) (R, error)

// Run processes items chunk by chunk and returns exactly len(items) outcomes,
// ordered by input index. A failing or panicking item never affects its siblings.
// When ctx is cancelled between chunks the remaining items fail with ctx.Err().
func Run[T, R any](ctx context.Context, cfg Config, items []T, process ProcessFunc[T, R], progress ProgressFunc[T]) []Outcome[T, R] {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	total := len(items)
	outcomes := make([]Outcome[T, R], total)

	var (
		mu        sync.Mutex
		completed int
	)
	report := func(done bool, item *T) {
		if progress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if done {
			completed++
		}
		progress(completed, total, item)
	}

	for start := 0; start < total; start += concurrency {
		if start > 0 && cfg.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				failRemaining(outcomes, items, start, ctx.Err())
				return outcomes
			case <-time.After(cfg.BatchDelay):
			}
		}
		if err := ctx.Err(); err != nil {
			failRemaining(outcomes, items, start, err)
			return outcomes
		}

		end := min(start+concurrency, total)

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				item := items[i]
				report(false, &item)
				result, err := safeCall(ctx, process, item)
				outcomes[i] = Outcome[T, R]{Index: i, Item: item, Result: result, Err: err}
				report(true, &item)
				return nil
			})
		}
		_ = g.Wait()
	}

	return outcomes
}

// Partition splits outcomes into successes and failures.
func Partition[T, R any](outcomes []Outcome[T, R]) (succeeded, failed []Outcome[T, R]) {
	for _, o := range outcomes {
		if o.OK() {
			succeeded = append(succeeded, o)
		} else {
			failed = append(failed, o)
		}
	}
	return succeeded, failed
}

func safeCall[T, R any](ctx context.Context, process ProcessFunc[T, R], item T) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("item panicked: %v", r)
		}
	}()
	return process(ctx, item)
}

func failRemaining[T, R any](outcomes []Outcome[T, R], items []T, from int, err error) {
	for i := from; i < len(items); i++ {
		outcomes[i] = Outcome[T, R]{Index: i, Item: items[i], Err: err}
	}
}
