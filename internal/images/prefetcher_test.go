package images

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

type countingFetcher struct {
	mu       sync.Mutex
	calls    map[string]int
	inflight atomic.Int32
	peak     atomic.Int32
	block    chan struct{}
}

func newCountingFetcher() *countingFetcher {
	return &countingFetcher{calls: make(map[string]int)}
}

func (f *countingFetcher) Resolve(_ context.Context, url string) Image {
	current := f.inflight.Add(1)
	for {
		peak := f.peak.Load()
		if current <= peak || f.peak.CompareAndSwap(peak, current) {
			break
		}
	}
	if f.block != nil {
		<-f.block
	}
	f.inflight.Add(-1)

	f.mu.Lock()
	f.calls[url]++
	f.mu.Unlock()
	return Image{Bytes: []byte(url), Width: 1, Height: 1, Format: "png"}
}

func (f *countingFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func TestPrefetchDeduplicatesURLs(t *testing.T) {
	fetcher := newCountingFetcher()
	prefetcher, err := NewPrefetcher(fetcher)
	if err != nil {
		t.Fatalf("new prefetcher: %v", err)
	}

	results := prefetcher.Prefetch(context.Background(), []string{"u1", "u2", "u2", "u1"})

	if fetcher.totalCalls() != 2 {
		t.Fatalf("expected 2 resolutions, got %d", fetcher.totalCalls())
	}
	if len(results) != 2 {
		t.Fatalf("expected results for exactly {u1, u2}, got %v", results)
	}
	for _, u := range []string{"u1", "u2"} {
		img, ok := results[u]
		if !ok {
			t.Fatalf("missing result for %s", u)
		}
		if string(img.Bytes) != u {
			t.Fatalf("result for %s carries wrong payload %q", u, img.Bytes)
		}
	}
}

func TestPrefetchSkipsEmptyURLs(t *testing.T) {
	fetcher := newCountingFetcher()
	prefetcher, err := NewPrefetcher(fetcher)
	if err != nil {
		t.Fatalf("new prefetcher: %v", err)
	}

	results := prefetcher.Prefetch(context.Background(), []string{"", "  ", "u1"})

	if fetcher.totalCalls() != 1 {
		t.Fatalf("expected 1 resolution, got %d", fetcher.totalCalls())
	}
	if len(results) != 1 {
		t.Fatalf("expected single entry, got %v", results)
	}
}

func TestPrefetchRespectsWorkerCap(t *testing.T) {
	fetcher := newCountingFetcher()
	fetcher.block = make(chan struct{})
	prefetcher, err := NewPrefetcher(fetcher, WithWorkers(3))
	if err != nil {
		t.Fatalf("new prefetcher: %v", err)
	}

	urls := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	done := make(chan map[string]Image, 1)
	go func() {
		done <- prefetcher.Prefetch(context.Background(), urls)
	}()

	// Unblock all workers once the pool is saturated.
	close(fetcher.block)
	results := <-done

	if peak := fetcher.peak.Load(); peak > 3 {
		t.Fatalf("worker cap exceeded: %d concurrent fetches", peak)
	}
	if len(results) != len(urls) {
		t.Fatalf("expected %d entries, got %d", len(urls), len(results))
	}
}

func TestPrefetchNoURLs(t *testing.T) {
	fetcher := newCountingFetcher()
	prefetcher, err := NewPrefetcher(fetcher)
	if err != nil {
		t.Fatalf("new prefetcher: %v", err)
	}
	results := prefetcher.Prefetch(context.Background(), nil)
	if len(results) != 0 {
		t.Fatalf("expected empty map, got %v", results)
	}
}

func TestNewPrefetcherRequiresFetcher(t *testing.T) {
	if _, err := NewPrefetcher(nil); err == nil {
		t.Fatal("expected error for nil fetcher")
	}
}
