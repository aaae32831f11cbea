package lifecycle

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Group is a set of workers that are stopped together.
type Group struct {
	logger *zap.Logger

	mu      sync.Mutex
	workers []*Worker
}

// NewGroup returns an empty group. A nil logger disables logging.
func NewGroup(logger *zap.Logger) *Group {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Group{logger: logger}
}

// Add adds w to the group.
func (g *Group) Add(w *Worker) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.workers = append(g.workers, w)
}

// Len returns the number of workers in the group.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.workers)
}

func (g *Group) snapshot() []*Worker {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*Worker(nil), g.workers...)
}

// Stop requests shutdown of every worker and waits up to timeout for each to
// stop. It returns the first error encountered, after which remaining waits are
// abandoned.
func (g *Group) Stop(ctx context.Context, timeout time.Duration) error {
	workers := g.snapshot()
	g.logger.Info("stopping workers", zap.Int("count", len(workers)))

	eg, ctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		w := w
		eg.Go(func() error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return w.StopContext(ctx)
		})
	}
	return eg.Wait()
}

// Wait blocks until every worker has stopped or ctx is done.
func (g *Group) Wait(ctx context.Context) error {
	for _, w := range g.snapshot() {
		if err := w.Stopped().WaitContext(ctx); err != nil {
			return err
		}
	}
	return nil
}
