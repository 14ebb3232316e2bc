package domain

// Defaults applied when the catalog source carries no value for a field.
const (
	DefaultColor = "Sin color"
	DefaultSize  = "Única"
)

// Product is a single in-stock variant row ingested from the catalog source.
// Products are immutable once constructed; rows with an empty name or a
// non-positive stock count never make it past ingestion.
type Product struct {
	SKU          string
	Name         string
	Color        string
	Size         string
	Stock        int
	ThumbnailURL string
	StockCablec  string
	StockBodega  string
}
