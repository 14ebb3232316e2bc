package services

import (
	"context"
	"time"

	"github.com/duds-studio/catalog-api/internal/domain"
	"github.com/duds-studio/catalog-api/internal/images"
)

// CategorySummary annotates a declared category with its in-stock product
// count.
type CategorySummary struct {
	Name     string
	Products int
}

// CategoryListing couples the available categories with the freshness of the
// catalog snapshot they were derived from.
type CategoryListing struct {
	Categories []CategorySummary
	FetchedAt  time.Time
}

// SizeSummary annotates a size label with its in-stock product count for the
// selected category.
type SizeSummary struct {
	Size     string
	Products int
}

// Document is a rendered catalog returned inline to the caller.
type Document struct {
	Filename string
	Bytes    []byte
}

// ArtifactRef points at a stored document awaiting one-shot retrieval.
type ArtifactRef struct {
	Token    string
	Filename string
}

// RenderResult carries either a single inline document or the artifact
// references of a multi-size render, never both.
type RenderResult struct {
	Document  *Document
	Artifacts []ArtifactRef
}

// DocumentRenderer produces one printable catalog document from an ordered
// product selection and its resolved thumbnails.
type DocumentRenderer interface {
	Render(products []domain.Product, imgs map[string]images.Image, generatedAt time.Time) ([]byte, error)
}

// ImagePrefetcher resolves the thumbnails for a render job up front.
type ImagePrefetcher interface {
	Prefetch(ctx context.Context, urls []string) map[string]images.Image
}

// CatalogService is the caller-facing surface of the render pipeline.
type CatalogService interface {
	// Categories lists the declared categories with in-stock products.
	Categories(ctx context.Context) (CategoryListing, error)
	// Sizes lists the canonically ordered size labels available within a
	// category.
	Sizes(ctx context.Context, category string) ([]SizeSummary, error)
	// Generate renders one document per requested size. A single size is
	// returned inline; multiple sizes are parked in the artifact store.
	Generate(ctx context.Context, category string, sizes []string) (RenderResult, error)
	// InvalidateCache drops the cached catalog snapshot so the next read
	// refetches from the source.
	InvalidateCache(ctx context.Context) error
}
