package core

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// workerCount resolves the configured worker bound (0 = GOMAXPROCS) against
// the amount of work available.
func workerCount(configured, items int) int {
	w := configured
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}
	if w > items {
		w = items
	}
	if w < 1 {
		w = 1
	}
	return w
}

// parallelChunks splits [0, n) into contiguous chunks and runs fn on each
// from a bounded errgroup. Chunks are disjoint, so fn may write to
// index-partitioned buffers without locking. The first error cancels the
// group context and is returned.
func parallelChunks(ctx context.Context, n, workers int, fn func(ctx context.Context, lo, hi int) error) error {
	if n <= 0 {
		return nil
	}
	workers = workerCount(workers, n)
	chunk := (n + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, min(lo+chunk, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, lo, hi)
		})
	}
	return g.Wait()
}
