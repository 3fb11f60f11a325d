package filter

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// forEach runs task for every index in [0, n) on at most workers goroutines.
//
// Tasks report through their own slot of a caller-owned slice, so no shared state
// needs locking. The first task error cancels the context passed to the remaining
// tasks and is returned once every started task has finished. With workers == 1
// tasks run one after another in index order.
func forEach(ctx context.Context, workers, n int, task func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < n; i++ {
		i := i
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return task(gctx, i)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	// The group context is always done after Wait; only the caller's cancellation counts.
	return ctx.Err()
}
