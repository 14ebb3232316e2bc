// Package images resolves product thumbnail URLs to embeddable image bytes,
// shielding the render pipeline from a slow or broken image origin.
package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/duds-studio/catalog-api/internal/platform/requestctx"

	"image/png"

	_ "image/jpeg"

	_ "golang.org/x/image/webp"
)

// DefaultFetchTimeout bounds each individual fetch attempt so one
// unreachable origin cannot stall a whole render job.
const DefaultFetchTimeout = 10 * time.Second

// maxImageBytes caps a single thumbnail download. Catalog thumbnails are a
// few hundred kilobytes; anything larger is treated as a failed attempt.
const maxImageBytes = 20 << 20

// Image is a fetched thumbnail plus the metadata the renderer needs to lay
// it out.
type Image struct {
	Bytes  []byte
	Width  int
	Height int
	Format string
}

// Fetcher resolves a thumbnail URL to image bytes. Implementations never
// fail: when nothing can be fetched the placeholder stands in.
type Fetcher interface {
	Resolve(ctx context.Context, url string) Image
}

// Resolver fetches thumbnails over HTTP, preferring the pre-scaled variant
// and falling back to the original URL, then to the placeholder.
type Resolver struct {
	client  *http.Client
	timeout time.Duration
}

// ResolverOption customises Resolver construction.
type ResolverOption func(*Resolver)

// WithHTTPClient substitutes the HTTP client used for fetch attempts.
func WithHTTPClient(client *http.Client) ResolverOption {
	return func(r *Resolver) {
		if client != nil {
			r.client = client
		}
	}
}

// WithFetchTimeout overrides the per-attempt timeout.
func WithFetchTimeout(timeout time.Duration) ResolverOption {
	return func(r *Resolver) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// NewResolver constructs a Resolver with default transport settings.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		client:  &http.Client{},
		timeout: DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve fetches the image for url. Attempts run optimized variant first,
// then the original URL; a response that cannot be decoded counts as a
// failed attempt. When every attempt fails the fixed placeholder is
// returned, never an error.
func (r *Resolver) Resolve(ctx context.Context, url string) Image {
	logger := requestctx.Logger(ctx)
	for _, candidate := range candidateURLs(url) {
		img, err := r.fetch(ctx, candidate)
		if err != nil {
			logger.Debug("thumbnail fetch attempt failed",
				zap.String("url", candidate),
				zap.Error(err),
			)
			continue
		}
		return img
	}
	return Placeholder()
}

func (r *Resolver) fetch(ctx context.Context, url string) (Image, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return Image{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return Image{}, fmt.Errorf("fetch: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Image{}, fmt.Errorf("fetch: unexpected status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return Image{}, fmt.Errorf("read body: %w", err)
	}
	if len(payload) > maxImageBytes {
		return Image{}, fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(payload))
	if err != nil {
		return Image{}, fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Image{}, fmt.Errorf("decode image: empty dimensions")
	}

	// The renderer embeds jpeg and png payloads as-is. Other decodable
	// formats, webp in practice, are transcoded to png here so a fetched
	// thumbnail always reaches the page.
	switch format {
	case "jpeg", "png":
	default:
		payload, err = transcodePNG(payload)
		if err != nil {
			return Image{}, fmt.Errorf("transcode %s image: %w", format, err)
		}
		format = "png"
	}

	return Image{
		Bytes:  payload,
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: format,
	}, nil
}

func transcodePNG(payload []byte) ([]byte, error) {
	decoded, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, decoded); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
