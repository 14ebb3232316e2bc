package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/duds-studio/catalog-api/internal/domain"
	"github.com/duds-studio/catalog-api/internal/images"
	"github.com/duds-studio/catalog-api/internal/platform/artifacts"
	"github.com/duds-studio/catalog-api/internal/platform/requestctx"
)

var (
	// ErrCategoryRequired indicates a render request without a category.
	ErrCategoryRequired = errors.New("category is required")
	// ErrCategoryUnknown indicates a category outside the declared table.
	ErrCategoryUnknown = errors.New("unknown category")
	// ErrNoSizesSelected indicates a render request without any sizes.
	ErrNoSizesSelected = errors.New("no sizes selected")
)

// ProductCache is the snapshot source the service reads products through.
type ProductCache interface {
	Get(ctx context.Context) ([]domain.Product, time.Time, error)
	Invalidate()
}

// CatalogServiceDeps carries the dependencies for NewCatalogService.
type CatalogServiceDeps struct {
	Cache      ProductCache
	Classifier *Classifier
	Prefetch   ImagePrefetcher
	Renderer   DocumentRenderer
	Artifacts  artifacts.Store
	// Resolver optionally re-resolves thumbnails the prefetch pass missed.
	Resolver images.Fetcher
	// Clock defaults to time.Now when nil.
	Clock func() time.Time
}

type catalogService struct {
	cache      ProductCache
	classifier *Classifier
	prefetch   ImagePrefetcher
	renderer   DocumentRenderer
	artifacts  artifacts.Store
	resolver   images.Fetcher
	clock      func() time.Time
}

// NewCatalogService wires the render pipeline behind CatalogService.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Cache == nil {
		return nil, errors.New("services: cache is required")
	}
	if deps.Classifier == nil {
		return nil, errors.New("services: classifier is required")
	}
	if deps.Prefetch == nil {
		return nil, errors.New("services: prefetcher is required")
	}
	if deps.Renderer == nil {
		return nil, errors.New("services: renderer is required")
	}
	if deps.Artifacts == nil {
		return nil, errors.New("services: artifact store is required")
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &catalogService{
		cache:      deps.Cache,
		classifier: deps.Classifier,
		prefetch:   deps.Prefetch,
		renderer:   deps.Renderer,
		artifacts:  deps.Artifacts,
		resolver:   deps.Resolver,
		clock:      deps.Clock,
	}, nil
}

func (s *catalogService) Categories(ctx context.Context) (CategoryListing, error) {
	products, fetchedAt, err := s.cache.Get(ctx)
	if err != nil {
		return CategoryListing{}, fmt.Errorf("loading catalog: %w", err)
	}

	counts := make(map[string]int)
	for _, p := range products {
		counts[s.classifier.Classify(p.Name)]++
	}

	listing := CategoryListing{FetchedAt: fetchedAt}
	for _, name := range domain.CategoryNames() {
		if counts[name] == 0 {
			continue
		}
		listing.Categories = append(listing.Categories, CategorySummary{
			Name:     name,
			Products: counts[name],
		})
	}
	return listing, nil
}

func (s *catalogService) Sizes(ctx context.Context, category string) ([]SizeSummary, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, ErrCategoryRequired
	}
	if !declaredCategory(category) {
		return nil, fmt.Errorf("%w: %s", ErrCategoryUnknown, category)
	}

	products, _, err := s.cache.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	counts := make(map[string]int)
	for _, p := range products {
		if s.classifier.Classify(p.Name) != category {
			continue
		}
		counts[p.Size]++
	}

	labels := make([]string, 0, len(counts))
	for size := range counts {
		labels = append(labels, size)
	}

	summaries := make([]SizeSummary, 0, len(labels))
	for _, size := range domain.RankSizes(labels) {
		summaries = append(summaries, SizeSummary{Size: size, Products: counts[size]})
	}
	return summaries, nil
}

func (s *catalogService) Generate(ctx context.Context, category string, sizes []string) (RenderResult, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return RenderResult{}, ErrCategoryRequired
	}
	if !declaredCategory(category) {
		return RenderResult{}, fmt.Errorf("%w: %s", ErrCategoryUnknown, category)
	}

	selected := dedupeSizes(sizes)
	if len(selected) == 0 {
		return RenderResult{}, ErrNoSizesSelected
	}

	products, _, err := s.cache.Get(ctx)
	if err != nil {
		return RenderResult{}, fmt.Errorf("loading catalog: %w", err)
	}

	bySize := make(map[string][]domain.Product, len(selected))
	var urls []string
	for _, p := range products {
		if s.classifier.Classify(p.Name) != category {
			continue
		}
		for _, size := range selected {
			if p.Size != size {
				continue
			}
			bySize[size] = append(bySize[size], p)
			if p.ThumbnailURL != "" {
				urls = append(urls, p.ThumbnailURL)
			}
			break
		}
	}

	// One prefetch pass covers every selected size; products repeated
	// across sizes resolve their thumbnail once.
	resolved := s.prefetch.Prefetch(ctx, urls)
	generatedAt := s.clock()

	logger := requestctx.Logger(ctx)
	documents := make([]Document, 0, len(selected))
	for _, size := range selected {
		group := bySize[size]
		sort.SliceStable(group, func(i, j int) bool {
			return strings.ToLower(group[i].Color) < strings.ToLower(group[j].Color)
		})

		imgs := make(map[string]images.Image, len(group))
		for _, p := range group {
			if p.ThumbnailURL == "" {
				continue
			}
			img, ok := resolved[p.ThumbnailURL]
			if !ok {
				img = s.resolveMissing(ctx, p.ThumbnailURL)
			}
			imgs[p.ThumbnailURL] = img
		}

		payload, err := s.renderer.Render(group, imgs, generatedAt)
		if err != nil {
			return RenderResult{}, fmt.Errorf("rendering %s %s: %w", category, size, err)
		}

		logger.Info("catalog rendered",
			zap.String("category", category),
			zap.String("size", size),
			zap.Int("products", len(group)),
			zap.Int("bytes", len(payload)),
		)
		documents = append(documents, Document{
			Filename: fmt.Sprintf("%s_%s.pdf", category, size),
			Bytes:    payload,
		})
	}

	if len(documents) == 1 {
		doc := documents[0]
		return RenderResult{Document: &doc}, nil
	}

	refs := make([]ArtifactRef, 0, len(documents))
	for _, doc := range documents {
		token, err := s.artifacts.Put(ctx, doc.Bytes)
		if err != nil {
			return RenderResult{}, fmt.Errorf("storing %s: %w", doc.Filename, err)
		}
		refs = append(refs, ArtifactRef{Token: token, Filename: doc.Filename})
	}
	return RenderResult{Artifacts: refs}, nil
}

func (s *catalogService) InvalidateCache(ctx context.Context) error {
	s.cache.Invalidate()
	requestctx.Logger(ctx).Info("catalog cache invalidated")
	return nil
}

// resolveMissing covers thumbnails the prefetch pass did not return, which
// only happens when the prefetcher was handed a different URL set.
func (s *catalogService) resolveMissing(ctx context.Context, url string) images.Image {
	if s.resolver == nil {
		return images.Placeholder()
	}
	return s.resolver.Resolve(ctx, url)
}

func declaredCategory(name string) bool {
	for _, declared := range domain.CategoryNames() {
		if declared == name {
			return true
		}
	}
	return false
}

func dedupeSizes(sizes []string) []string {
	seen := make(map[string]struct{}, len(sizes))
	out := make([]string, 0, len(sizes))
	for _, size := range sizes {
		size = strings.TrimSpace(size)
		if size == "" {
			continue
		}
		if _, ok := seen[size]; ok {
			continue
		}
		seen[size] = struct{}{}
		out = append(out, size)
	}
	return out
}
