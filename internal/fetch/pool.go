package fetch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Pool bounds the number of concurrently in-flight fetch/agent tasks
// (spec §5's "shared bounded pool", default max_concurrent = 10).
type Pool struct {
	limit int
}

// NewPool builds a Pool with the given concurrency ceiling.
func NewPool(maxConcurrent int) *Pool {
	return &Pool{limit: maxConcurrent}
}

// Run executes every task with at most p.limit running concurrently.
// Submitting beyond the limit blocks at the pool boundary rather than
// spawning unbounded work. If ctx is cancelled, in-flight tasks are
// expected to finish their current HTTP call before returning (the
// fetcher's own context plumbing handles that); Run returns the first
// error encountered.
func (p *Pool) Run(ctx context.Context, tasks []func(ctx context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)

	for _, task := range tasks {
		task := task
		g.Go(func() error {
			return task(gctx)
		})
	}

	return g.Wait()
}
