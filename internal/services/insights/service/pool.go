package service

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	perr "github.com/linuxautomates/gitsei-sub026/internal/platform/errors"
)

// DefaultWorkers is the drill-down pool size
const DefaultWorkers = 2

// fanOut runs fn for 0..n-1 on at most workers goroutines and waits for all of them
// After the first failure queued tasks are skipped while in-flight ones finish;
// the failure comes back wrapped as a parallel execution error
func fanOut(ctx context.Context, n, workers int, fn func(ctx context.Context, i int) error) error {
	if workers < 1 {
		workers = DefaultWorkers
	}
	var g errgroup.Group
	g.SetLimit(workers)

	var failed atomic.Bool
	for i := range n {
		g.Go(func() error {
			if failed.Load() {
				stackWorkers.WithLabelValues("skipped").Inc()
				return nil
			}
			if err := fn(ctx, i); err != nil {
				failed.Store(true)
				stackWorkers.WithLabelValues("error").Inc()
				return err
			}
			stackWorkers.WithLabelValues("ok").Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return perr.Parallel(err, "stacked_aggregate")
	}
	return nil
}
