// Package mysql adapts the WordPress/WooCommerce MariaDB view that backs the
// stock catalog to the repositories.ProductSource boundary.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/duds-studio/catalog-api/internal/domain"
	"github.com/duds-studio/catalog-api/internal/repositories"
)

var _ repositories.ProductSource = (*ProductRepository)(nil)

// The view pre-joins product variants with their stock counts; the LEFT JOIN
// picks up the attachment URL for the variant thumbnail. Color and size are
// normalised in SQL so every consumer sees the same display values.
const fetchAllQuery = `
SELECT
    v.ID,
    COALESCE(v.sku, '') AS sku,
    COALESCE(v.clean_name, '') AS name,
    CASE
        WHEN v.color_raw IS NOT NULL AND TRIM(v.color_raw) != '' THEN
            CONCAT(
                UPPER(LEFT(REPLACE(v.color_raw, '-', ' '), 1)),
                LOWER(SUBSTRING(REPLACE(v.color_raw, '-', ' '), 2))
            )
        ELSE 'Sin color'
    END AS color,
    CASE
        WHEN v.talla_raw IS NOT NULL AND TRIM(v.talla_raw) != '' THEN
            UPPER(SUBSTRING_INDEX(v.talla_raw, '-', -1))
        ELSE 'Única'
    END AS size,
    v.stock_int AS stock,
    COALESCE(v.stock_loc_294, '0') AS stock_loc_294,
    COALESCE(v.stock_loc_295, '0') AS stock_loc_295,
    COALESCE(att.guid, '') AS thumbnail_url
FROM vw_products_mariadb v
LEFT JOIN wpdt_posts att ON v.thumbnail_id = att.ID
    AND att.post_type = 'attachment'
WHERE v.stock_int >= 1
ORDER BY v.ID ASC`

// ProductRepository reads the in-stock product list from MariaDB.
type ProductRepository struct {
	db *sql.DB
}

// NewProductRepository constructs the repository over an open connection pool.
func NewProductRepository(db *sql.DB) (*ProductRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("mysql: database handle is required")
	}
	return &ProductRepository{db: db}, nil
}

// FetchAll implements repositories.ProductSource. Rows with an empty name or
// non-positive stock are dropped during scanning rather than surfaced as
// errors; the view should not produce them, but imported WordPress data is
// not always clean.
func (r *ProductRepository) FetchAll(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, fetchAllQuery)
	if err != nil {
		return nil, fmt.Errorf("mysql: query products: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var products []domain.Product
	for rows.Next() {
		var (
			id           int64
			sku          string
			name         string
			color        string
			size         string
			stock        int
			stockCablec  string
			stockBodega  string
			thumbnailURL string
		)
		if err := rows.Scan(&id, &sku, &name, &color, &size, &stock, &stockCablec, &stockBodega, &thumbnailURL); err != nil {
			return nil, fmt.Errorf("mysql: scan product row: %w", err)
		}

		name = strings.TrimSpace(name)
		if name == "" || stock <= 0 {
			continue
		}

		sku = strings.TrimSpace(sku)
		if sku == "" {
			sku = strconv.FormatInt(id, 10)
		}

		products = append(products, domain.Product{
			SKU:          sku,
			Name:         name,
			Color:        defaultIfEmpty(color, domain.DefaultColor),
			Size:         defaultIfEmpty(size, domain.DefaultSize),
			Stock:        stock,
			ThumbnailURL: strings.TrimSpace(thumbnailURL),
			StockCablec:  defaultIfEmpty(stockCablec, "0"),
			StockBodega:  defaultIfEmpty(stockBodega, "0"),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mysql: iterate product rows: %w", err)
	}

	return products, nil
}

func defaultIfEmpty(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
