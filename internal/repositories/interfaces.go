package repositories

import (
	"context"

	"github.com/duds-studio/catalog-api/internal/domain"
)

// ProductSource loads the full in-stock product list from the catalog
// source. Implementations return rows pre-filtered to positive stock and
// ordered by the source's internal identifier; callers treat the result as
// an immutable snapshot.
type ProductSource interface {
	FetchAll(ctx context.Context) ([]domain.Product, error)
}
