package runner

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/giantswarm/load-testing/internal/dispatch"
)

// progressInterval is how often the progress callback fires.
var progressInterval = time.Second

// Stats describes how a run's virtual users finished.
type Stats struct {
	Iterations  int64
	Duration    time.Duration
	Interrupted bool
}

// iterator is the part of the dispatcher the scheduler drives.
type iterator interface {
	Iterate(ctx context.Context) *dispatch.IterationResult
}

// schedule runs cfg.Concurrency virtual users until the duration elapses,
// the iteration cap is reached or ctx is cancelled.
func schedule(ctx context.Context, it iterator, cfg Config, progress ProgressFunc) Stats {
	start := time.Now()

	// New iterations start only while stopCtx is live; iterations already
	// running get GracefulStop on top.
	stopCtx, cancelStop := context.WithTimeout(ctx, cfg.Duration)
	defer cancelStop()
	iterCtx, cancelIter := context.WithTimeout(ctx, cfg.Duration+cfg.GracefulStop)
	defer cancelIter()

	var limiter *rate.Limiter
	if cfg.MaxRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxRPS), cfg.Concurrency)
	}

	var started, completed atomic.Int64
	claim := func() bool {
		if cfg.Iterations <= 0 {
			return true
		}
		return started.Add(1) <= int64(cfg.Iterations)
	}

	done := make(chan struct{})
	if progress != nil {
		go reportProgress(done, start, &completed, progress)
	}

	var g errgroup.Group
	for range cfg.Concurrency {
		g.Go(func() error {
			for stopCtx.Err() == nil {
				if !claim() {
					return nil
				}
				if limiter != nil {
					if err := limiter.Wait(stopCtx); err != nil {
						return nil
					}
				}
				if res := it.Iterate(iterCtx); res != nil && !res.Abandoned {
					completed.Add(1)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	close(done)

	return Stats{
		Iterations:  completed.Load(),
		Duration:    time.Since(start),
		Interrupted: ctx.Err() != nil,
	}
}

func reportProgress(done <-chan struct{}, start time.Time, completed *atomic.Int64, progress ProgressFunc) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			progress(completed.Load(), time.Since(start))
		}
	}
}
