package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// PullResult summarises a Pull.
type PullResult struct {
	Total   int      `json:"total"`
	Fetched int      `json:"fetched"`
	Cached  int      `json:"cached"`
	Failed  []string `json:"failed,omitempty"`
}

// Pull fills the page cache with every corpus URL. Cached pages are skipped
// unless force is set. Pages are fetched concurrently, bounded by
// pull.concurrency and pull.rate; a failed page is recorded and does not stop
// the others.
func (a *App) Pull(ctx context.Context, force bool) (PullResult, error) {
	entries, err := a.entries()
	if err != nil {
		return PullResult{}, err
	}

	result := PullResult{Total: len(entries)}
	if len(entries) == 0 {
		return result, nil
	}

	slog.Info("Pulling pages",
		"pages", len(entries),
		"concurrency", a.cfg.Pull.Concurrency,
		"rate", a.cfg.Pull.Rate,
		"force", force,
	)

	limiter := rate.NewLimiter(rate.Limit(a.cfg.Pull.Rate), 1)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Pull.Concurrency)

	var fetched, cached, done atomic.Int64
	failed := make([]bool, len(entries))

	for i, e := range entries {
		g.Go(func() error {
			defer a.reportProgress(&done, len(entries))

			if !force && a.pages.Cached(e.URL) {
				cached.Add(1)
				return nil
			}
			if err := limiter.Wait(gctx); err != nil {
				return err
			}
			if _, err := a.pages.GetContent(gctx, e.URL, force); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				slog.Warn("Failed to pull page", "url", e.URL, "error", err)
				failed[i] = true
				return nil // don't abort the pull on a single page
			}
			fetched.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return PullResult{}, fmt.Errorf("pull interrupted: %w", err)
	}

	result.Fetched = int(fetched.Load())
	result.Cached = int(cached.Load())
	for i, e := range entries {
		if failed[i] {
			result.Failed = append(result.Failed, e.URL)
		}
	}

	slog.Info("Pull complete", "fetched", result.Fetched, "cached", result.Cached, "failed", len(result.Failed))
	return result, nil
}

func (a *App) reportProgress(done *atomic.Int64, total int) {
	n := done.Add(1)
	if a.progress != nil {
		a.progress(int(n), total)
	}
}
