// Package worker provides a generic ordered fan-out/fan-in pool. The gate
// runner uses it to run independent checks concurrently while keeping their
// results in canonical order.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// ErrPanic wraps a panic recovered from a work function.
var ErrPanic = errors.New("worker panic")

// Result pairs a processed value with its original index to preserve ordering.
type Result[O any] struct {
	Index int
	Value O
	Err   error
}

// Pool fans out work items to a fixed number of goroutine workers
// and collects results preserving the original input order.
type Pool[I, O any] struct {
	concurrency int
}

// NewPool creates a worker pool with the given concurrency.
// If concurrency <= 0, defaults to runtime.NumCPU().
func NewPool[I, O any](concurrency int) *Pool[I, O] {
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	return &Pool[I, O]{concurrency: concurrency}
}

// Process distributes items across workers, applies fn to each, and returns
// results in the same order as the input slice. Errors and panics from
// individual items are captured per-result rather than aborting the batch.
// Items not yet started when ctx is done get ctx.Err().
func (p *Pool[I, O]) Process(ctx context.Context, items []I, fn func(context.Context, I) (O, error)) []Result[O] {
	if len(items) == 0 {
		return nil
	}

	workers := min(p.concurrency, len(items))

	type job struct {
		index int
		item  I
	}

	jobs := make(chan job, len(items))
	results := make([]Result[O], len(items))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					results[j.index] = Result[O]{Index: j.index, Err: err}
					continue
				}
				val, err := call(ctx, fn, j.item)
				results[j.index] = Result[O]{Index: j.index, Value: val, Err: err}
			}
		}()
	}

	for i, item := range items {
		jobs <- job{index: i, item: item}
	}
	close(jobs)

	wg.Wait()

	return results
}

func call[I, O any](ctx context.Context, fn func(context.Context, I) (O, error), item I) (val O, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn(ctx, item)
}
