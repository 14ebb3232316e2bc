// Package render lays in-stock products out onto paginated, print-ready PDF
// pages with a fixed 2x3 grid per page.
package render

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/duds-studio/catalog-api/internal/domain"
	"github.com/duds-studio/catalog-api/internal/images"
)

// Page geometry in points on a Letter page (612x792). The grid holds six
// product cells as two columns by three rows; text sits to the right of each
// cell's image.
const (
	pageWidth = 612.0

	margin      = 36.0  // 0.5 in
	columnPitch = 288.0 // 4 in
	rowPitch    = 252.0 // 3.5 in
	imageWidth  = 144.0 // 2 in

	// Fallback display height when no image geometry is available.
	defaultImageHeight = 144.0

	cellsPerPage   = 6
	columnsPerPage = 2

	// Horizontal offset of the text block from the cell origin (2.35 in).
	textIndent = 169.2

	titleWrapWidth = 15

	documentTitle   = "Catálogo DUDS"
	timestampLayout = "02/01/2006 (15:04)"

	failedImageLine1 = "Error al cargar"
	failedImageLine2 = "imagen"
)

// PageCount reports how many pages n products occupy on the grid. An empty
// selection still produces a single page carrying only the timestamp.
func PageCount(n int) int {
	if n <= 0 {
		return 1
	}
	return (n + cellsPerPage - 1) / cellsPerPage
}

// Renderer produces catalog documents. It is stateless and safe for
// concurrent use; each Render call builds its own document.
type Renderer struct{}

// NewRenderer constructs a Renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render lays the products out in input order, six per page, drawing each
// product's thumbnail from imgs keyed by the product's source URL. Products
// are expected pre-filtered and pre-sorted by the caller. generatedAt is
// stamped top-right on every page; it is the only wall-clock dependency of
// the output. A missing or unusable image degrades its own cell to the
// failure placeholder and never aborts the document.
func (r *Renderer) Render(products []domain.Product, imgs map[string]images.Image, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "pt", "Letter", "")
	translate := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(documentTitle, true)
	pdf.SetAutoPageBreak(false, 0)
	// Pin the metadata clock so output depends on wall time only through
	// the visible timestamp.
	pdf.SetCreationDate(generatedAt)
	pdf.SetModificationDate(generatedAt)

	stamp := generatedAt.Format(timestampLayout)
	pdf.AddPage()
	stampTimestamp(pdf, stamp)

	for i, product := range products {
		slot := i % cellsPerPage
		if slot == 0 && i != 0 {
			pdf.AddPage()
			stampTimestamp(pdf, stamp)
		}

		row := slot / columnsPerPage
		col := slot % columnsPerPage
		x := margin + float64(col)*columnPitch
		y := margin + float64(row)*rowPitch

		drawCell(pdf, translate, product, imgs[product.ThumbnailURL], x, y)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render: write document: %w", err)
	}
	return buf.Bytes(), nil
}

func stampTimestamp(pdf *gofpdf.Fpdf, stamp string) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.Text(pageWidth-130, 20, stamp)
}

func drawCell(pdf *gofpdf.Fpdf, translate func(string) string, product domain.Product, img images.Image, x, y float64) {
	displayHeight := defaultImageHeight
	embeddable := imageType(img.Format) != "" && len(img.Bytes) > 0 && img.Width > 0 && img.Height > 0
	if embeddable {
		displayHeight = imageWidth * float64(img.Height) / float64(img.Width)
	}

	// Backdrop panel sized to the image's display height.
	pdf.SetFillColor(0, 0, 0)
	pdf.Rect(x-3, y+5, imageWidth, displayHeight, "F")

	drawn := false
	if embeddable {
		drawn = drawThumbnail(pdf, product.ThumbnailURL, img, x+2, y, displayHeight)
	}
	if !drawn {
		drawFailureCell(pdf, x, y, displayHeight)
	}

	pdf.SetDrawColor(0, 0, 0)
	pdf.Rect(x+2, y, imageWidth, displayHeight, "D")

	textX := x + textIndent
	textY := y + 50.0

	pdf.SetFont("Helvetica", "", 12)
	pdf.SetTextColor(0, 0, 0)
	for _, line := range wrapTitle(productTitle(product.Name), titleWrapWidth) {
		pdf.Text(textX, textY, translate(line))
		textY += 14
	}
	textY += 6

	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(textX, textY, translate("SKU: "+product.SKU))
	textY += 14

	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(textX, textY, translate("Color: "+product.Color))
	textY += 18

	pdf.SetFont("Helvetica", "B", 15)
	pdf.Text(textX, textY, translate(product.Size))

	// Stock lines sit at fixed offsets from the cell origin, independent of
	// how many title lines were drawn.
	stockY := y + 168.0
	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(textX, stockY, translate(fmt.Sprintf("Disponible: %d", product.Stock)))
	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(textX, stockY+14, translate("Cablec: "+product.StockCablec))
	pdf.Text(textX, stockY+26, translate("Bodega: "+product.StockBodega))
}

// drawThumbnail embeds the image into the document. The bytes are parsed in
// a throwaway document first so a corrupt payload poisons neither the shared
// document nor the remaining cells.
func drawThumbnail(pdf *gofpdf.Fpdf, name string, img images.Image, x, y, height float64) bool {
	opts := gofpdf.ImageOptions{ImageType: imageType(img.Format)}

	probe := gofpdf.New("P", "pt", "Letter", "")
	probe.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Bytes))
	if probe.Err() {
		return false
	}

	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Bytes))
	if pdf.Err() {
		return false
	}
	pdf.ImageOptions(name, x, y, imageWidth, height, false, opts, 0, "")
	return !pdf.Err()
}

func drawFailureCell(pdf *gofpdf.Fpdf, x, y, height float64) {
	pdf.SetFillColor(255, 255, 255)
	pdf.Rect(x+2, y, imageWidth, height, "F")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.Text(x+30, y+height/2, failedImageLine1)
	pdf.Text(x+30, y+height/2+12, failedImageLine2)
}

// imageType maps a decoded format name to the identifier gofpdf accepts.
// Formats gofpdf cannot embed (notably webp) map to the empty string.
func imageType(format string) string {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return "JPG"
	case "png":
		return "PNG"
	case "gif":
		return "GIF"
	default:
		return ""
	}
}
