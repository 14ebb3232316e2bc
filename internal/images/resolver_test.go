package images

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	canvas.Set(0, 0, color.Black)
	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestResolverPrefersOptimizedVariant(t *testing.T) {
	payload := encodePNG(t, 8, 12)
	var requested atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested.Store(r.URL.Path)
		if r.URL.Path != "/uploads/shirt-1070x1536.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	resolver := NewResolver(WithHTTPClient(server.Client()))
	img := resolver.Resolve(context.Background(), server.URL+"/uploads/shirt.png")

	if got := requested.Load(); got != "/uploads/shirt-1070x1536.png" {
		t.Fatalf("expected optimized variant to be fetched, got %v", got)
	}
	if !bytes.Equal(img.Bytes, payload) {
		t.Fatal("expected fetched bytes to round trip")
	}
	if img.Width != 8 || img.Height != 12 {
		t.Fatalf("expected decoded 8x12, got %dx%d", img.Width, img.Height)
	}
	if img.Format != "png" {
		t.Fatalf("expected png format, got %s", img.Format)
	}
}

func TestResolverSizedURLFetchedAsIs(t *testing.T) {
	payload := encodePNG(t, 4, 4)
	var paths []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	resolver := NewResolver(WithHTTPClient(server.Client()))
	url := server.URL + "/uploads/shirt-1070x1536.png"
	img := resolver.Resolve(context.Background(), url)

	if len(paths) != 1 || paths[0] != "/uploads/shirt-1070x1536.png" {
		t.Fatalf("expected exactly one fetch of the sized URL, got %v", paths)
	}
	if !bytes.Equal(img.Bytes, payload) {
		t.Fatal("expected sized URL bytes verbatim")
	}
}

func TestResolverFallsBackToOriginal(t *testing.T) {
	payload := encodePNG(t, 6, 9)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/uploads/shirt.png" {
			_, _ = w.Write(payload)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	resolver := NewResolver(WithHTTPClient(server.Client()))
	img := resolver.Resolve(context.Background(), server.URL+"/uploads/shirt.png")

	if !bytes.Equal(img.Bytes, payload) {
		t.Fatal("expected fallback to original URL bytes")
	}
}

func TestResolverTranscodesWebpToPNG(t *testing.T) {
	// Smallest valid lossy webp: a 1x1 VP8 keyframe.
	payload, err := base64.StdEncoding.DecodeString(
		"UklGRiQAAABXRUJQVlA4IBgAAAAwAQCdASoBAAEAAQAcJaQAA3AA/vuUAAA=")
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/uploads/shirt-1070x1536.webp" {
			_, _ = w.Write(payload)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	resolver := NewResolver(WithHTTPClient(server.Client()))
	img := resolver.Resolve(context.Background(), server.URL+"/uploads/shirt-1070x1536.webp")

	if img.Format != "png" {
		t.Fatalf("expected webp to be transcoded to png, got %s", img.Format)
	}
	if img.Width != 1 || img.Height != 1 {
		t.Fatalf("expected 1x1, got %dx%d", img.Width, img.Height)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(img.Bytes))
	if err != nil {
		t.Fatalf("transcoded payload must decode: %v", err)
	}
	if format != "png" || cfg.Width != 1 || cfg.Height != 1 {
		t.Fatalf("unexpected transcoded payload %s %dx%d", format, cfg.Width, cfg.Height)
	}
}

func TestResolverPlaceholderOnTotalFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	resolver := NewResolver(WithHTTPClient(server.Client()))
	img := resolver.Resolve(context.Background(), server.URL+"/uploads/shirt.png")

	if img.Width != TargetWidth || img.Height != TargetHeight {
		t.Fatalf("expected %dx%d placeholder, got %dx%d", TargetWidth, TargetHeight, img.Width, img.Height)
	}
	if len(img.Bytes) == 0 {
		t.Fatal("expected placeholder bytes")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(img.Bytes))
	if err != nil {
		t.Fatalf("placeholder must decode: %v", err)
	}
	if format != "png" || cfg.Width != TargetWidth || cfg.Height != TargetHeight {
		t.Fatalf("unexpected placeholder geometry %s %dx%d", format, cfg.Width, cfg.Height)
	}
}

func TestResolverUndecodableBodyCountsAsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not an image</html>"))
	}))
	defer server.Close()

	resolver := NewResolver(WithHTTPClient(server.Client()))
	img := resolver.Resolve(context.Background(), server.URL+"/uploads/shirt.jpg")

	if img.Width != TargetWidth || img.Height != TargetHeight {
		t.Fatal("expected placeholder when body is not an image")
	}
}

func TestResolverTimeoutFallsThrough(t *testing.T) {
	payload := encodePNG(t, 3, 3)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow-1070x1536.png" {
			time.Sleep(200 * time.Millisecond)
		}
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	resolver := NewResolver(
		WithHTTPClient(server.Client()),
		WithFetchTimeout(50*time.Millisecond),
	)
	img := resolver.Resolve(context.Background(), server.URL+"/slow.png")

	if !bytes.Equal(img.Bytes, payload) {
		t.Fatal("expected timeout on optimized variant to fall through to original")
	}
}
