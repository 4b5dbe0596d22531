package scrape

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/teranos/mangasync/errors"
	"github.com/teranos/mangasync/logger"
)

// Pool bounds concurrent source calls and paces them.
type Pool struct {
	workers int
	limiter *rate.Limiter
	logger  *zap.SugaredLogger
}

// NewPool returns a pool of workers goroutines (at least one) that start
// at most requestsPerMinute calls per minute; 0 means unpaced.
func NewPool(workers, requestsPerMinute int, log *zap.SugaredLogger) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{workers: workers, logger: logger.OrNop(log)}
	if requestsPerMinute > 0 {
		p.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}
	return p
}

// Map calls fn once per slug and returns the results in slug order. The
// first error cancels the remaining calls and is returned.
func Map[T any](ctx context.Context, p *Pool, slugs []string, fn func(ctx context.Context, slug string) (T, error)) ([]T, error) {
	out := make([]T, len(slugs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, slug := range slugs {
		g.Go(func() error {
			if p.limiter != nil {
				if err := p.limiter.Wait(gctx); err != nil {
					return errors.Wrapf(err, "wait for %s", slug)
				}
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			v, err := fn(gctx, slug)
			if err != nil {
				return errors.Wrapf(err, "scrape %s", slug)
			}
			p.logger.Debugw("Scraped slug",
				logger.FieldSlug, slug,
				logger.FieldDurationMS, time.Since(start).Milliseconds(),
			)
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
