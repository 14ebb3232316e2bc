package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/duds-studio/catalog-api/internal/domain"
)

func TestCatalogCacheSharesConcurrentFetch(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) ([]domain.Product, error) {
		calls.Add(1)
		<-release
		return []domain.Product{{SKU: "duds-1", Name: "Jogger"}}, nil
	}

	cache := NewCatalogCache(CatalogCacheDeps{Fetch: fetch})

	const waiters = 8
	var wg sync.WaitGroup
	results := make([][]domain.Product, waiters)
	errs := make([]error, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, errs[i] = cache.Get(context.Background())
		}(i)
	}

	// Let every goroutine reach the cache before the fetch completes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single shared fetch, got %d", got)
	}
	for i := 0; i < waiters; i++ {
		if errs[i] != nil {
			t.Fatalf("waiter %d: unexpected error: %v", i, errs[i])
		}
		if len(results[i]) != 1 || results[i][0].SKU != "duds-1" {
			t.Fatalf("waiter %d: unexpected snapshot %+v", i, results[i])
		}
	}
}

func TestCatalogCacheServesWithinTTL(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	var calls int
	fetch := func(ctx context.Context) ([]domain.Product, error) {
		calls++
		return []domain.Product{{SKU: "duds-1"}}, nil
	}

	cache := NewCatalogCache(CatalogCacheDeps{
		Fetch: fetch,
		TTL:   5 * time.Minute,
		Clock: func() time.Time { return now },
	})

	_, fetchedAt, err := cache.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !fetchedAt.Equal(now) {
		t.Fatalf("fetchedAt = %v, want %v", fetchedAt, now)
	}

	now = now.Add(4 * time.Minute)
	if _, _, err := cache.Get(context.Background()); err != nil {
		t.Fatalf("Get within TTL: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected cached snapshot within TTL, got %d fetches", calls)
	}

	now = now.Add(2 * time.Minute)
	_, fetchedAt, err = cache.Get(context.Background())
	if err != nil {
		t.Fatalf("Get after TTL: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected refetch after TTL, got %d fetches", calls)
	}
	if !fetchedAt.Equal(now) {
		t.Fatalf("fetchedAt not refreshed: %v", fetchedAt)
	}
}

func TestCatalogCacheInvalidateForcesRefetch(t *testing.T) {
	var calls int
	fetch := func(ctx context.Context) ([]domain.Product, error) {
		calls++
		return []domain.Product{{SKU: "duds-1"}}, nil
	}

	cache := NewCatalogCache(CatalogCacheDeps{Fetch: fetch})

	if _, _, err := cache.Get(context.Background()); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, _, err := cache.Get(context.Background()); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected cached second read, got %d fetches", calls)
	}

	cache.Invalidate()

	if _, _, err := cache.Get(context.Background()); err != nil {
		t.Fatalf("Get after invalidate: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected refetch after invalidate, got %d fetches", calls)
	}
}

func TestCatalogCacheGetSurvivesConcurrentInvalidate(t *testing.T) {
	fetch := func(ctx context.Context) ([]domain.Product, error) {
		return []domain.Product{{SKU: "duds-1", Name: "Jogger"}}, nil
	}
	cache := NewCatalogCache(CatalogCacheDeps{Fetch: fetch})

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				cache.Invalidate()
			}
		}
	}()

	// A successful Get must return the snapshot it fetched; an Invalidate
	// landing between the refresh and the return must not blank it.
	for i := 0; i < 500; i++ {
		products, fetchedAt, err := cache.Get(context.Background())
		if err != nil {
			t.Fatalf("Get %d: %v", i, err)
		}
		if len(products) != 1 {
			t.Fatalf("Get %d returned an empty snapshot", i)
		}
		if fetchedAt.IsZero() {
			t.Fatalf("Get %d returned a zero fetch time", i)
		}
	}

	close(stop)
	wg.Wait()
}

func TestCatalogCacheFetchErrorLeavesCacheEmpty(t *testing.T) {
	boom := errors.New("mariadb unavailable")
	var calls int
	fetch := func(ctx context.Context) ([]domain.Product, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return []domain.Product{{SKU: "duds-1"}}, nil
	}

	cache := NewCatalogCache(CatalogCacheDeps{Fetch: fetch})

	if _, _, err := cache.Get(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}

	products, _, err := cache.Get(context.Background())
	if err != nil {
		t.Fatalf("Get after failed fetch: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected retry after failure, got %d fetches", calls)
	}
	if len(products) != 1 {
		t.Fatalf("unexpected snapshot %+v", products)
	}
}
