package workers

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultSize leaves one core for request handling.
func DefaultSize() int {
	return max(1, runtime.NumCPU()-1)
}

// Job is one unit of work. Jobs report failure through their result value.
type Job[T any] func(ctx context.Context) T

// Pool runs jobs on a bounded number of goroutines.
type Pool[T any] struct {
	size int
}

// NewPool returns a pool running at most size jobs at once. A non-positive
// size selects DefaultSize.
func NewPool[T any](size int) *Pool[T] {
	if size <= 0 {
		size = DefaultSize()
	}
	return &Pool[T]{size: size}
}

func (p *Pool[T]) Size() int {
	return p.size
}

// Run executes every job and returns their results in the order the jobs
// finished, not the order they were given. Once ctx is done no further jobs
// are started, so fewer results than jobs may come back.
func (p *Pool[T]) Run(ctx context.Context, jobs []Job[T]) []T {
	if len(jobs) == 0 {
		return nil
	}

	done := make(chan T, len(jobs))
	var g errgroup.Group
	g.SetLimit(p.size)
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			done <- job(ctx)
			return nil
		})
	}
	_ = g.Wait()
	close(done)

	results := make([]T, 0, len(jobs))
	for r := range done {
		results = append(results, r)
	}
	return results
}
