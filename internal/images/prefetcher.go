package images

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers caps how many thumbnail fetches run concurrently for one
// render job.
const DefaultWorkers = 10

// Prefetcher resolves the deduplicated thumbnail set for a render job across
// a bounded pool of workers.
type Prefetcher struct {
	fetcher Fetcher
	workers int
}

// PrefetcherOption customises Prefetcher construction.
type PrefetcherOption func(*Prefetcher)

// WithWorkers overrides the worker cap.
func WithWorkers(workers int) PrefetcherOption {
	return func(p *Prefetcher) {
		if workers > 0 {
			p.workers = workers
		}
	}
}

// NewPrefetcher constructs a Prefetcher over the given Fetcher.
func NewPrefetcher(fetcher Fetcher, opts ...PrefetcherOption) (*Prefetcher, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("images: fetcher is required")
	}
	p := &Prefetcher{
		fetcher: fetcher,
		workers: DefaultWorkers,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Prefetch resolves every distinct non-empty URL in urls exactly once and
// returns the results keyed by URL. The call blocks until every dispatched
// fetch has completed or fallen back to the placeholder; the caller never
// observes partial results, and every distinct input URL has an entry in the
// returned map.
func (p *Prefetcher) Prefetch(ctx context.Context, urls []string) map[string]Image {
	seen := make(map[string]struct{}, len(urls))
	unique := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		unique = append(unique, u)
	}

	results := make(map[string]Image, len(unique))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(p.workers)
	for _, u := range unique {
		u := u
		g.Go(func() error {
			img := p.fetcher.Resolve(ctx, u)
			mu.Lock()
			results[u] = img
			mu.Unlock()
			return nil
		})
	}
	// Resolve never fails, so Wait only synchronises the pool.
	_ = g.Wait()

	return results
}
