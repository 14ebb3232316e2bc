package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/duds-studio/catalog-api/internal/platform/artifacts"
	"github.com/duds-studio/catalog-api/internal/platform/httpx"
	"github.com/duds-studio/catalog-api/internal/platform/requestctx"
	"github.com/duds-studio/catalog-api/internal/services"
)

// maxRenderBodyBytes caps the render request body. The payload is a category
// name and a handful of size labels, so 64 KiB is generous.
const maxRenderBodyBytes = 64 << 10

// CatalogHandlers serves the catalog endpoints.
type CatalogHandlers struct {
	service services.CatalogService
	store   artifacts.Store
}

// NewCatalogHandlers wires the catalog service and artifact store into the
// HTTP layer.
func NewCatalogHandlers(service services.CatalogService, store artifacts.Store) (*CatalogHandlers, error) {
	if service == nil {
		return nil, errors.New("handlers: catalog service is required")
	}
	if store == nil {
		return nil, errors.New("handlers: artifact store is required")
	}
	return &CatalogHandlers{service: service, store: store}, nil
}

type categoryResponse struct {
	Name     string `json:"name"`
	Products int    `json:"products"`
}

type categoriesResponse struct {
	Categories []categoryResponse `json:"categories"`
	FetchedAt  string             `json:"fetched_at"`
}

func (h *CatalogHandlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	listing, err := h.service.Categories(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}

	resp := categoriesResponse{
		Categories: make([]categoryResponse, 0, len(listing.Categories)),
		FetchedAt:  listing.FetchedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	for _, c := range listing.Categories {
		resp.Categories = append(resp.Categories, categoryResponse{Name: c.Name, Products: c.Products})
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

type sizeResponse struct {
	Size     string `json:"size"`
	Products int    `json:"products"`
}

type sizesResponse struct {
	Category string         `json:"category"`
	Sizes    []sizeResponse `json:"sizes"`
}

func (h *CatalogHandlers) ListSizes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	category, err := url.PathUnescape(chi.URLParam(r, "category"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_category", "category is not valid", http.StatusBadRequest))
		return
	}

	summaries, err := h.service.Sizes(ctx, category)
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}

	resp := sizesResponse{Category: category, Sizes: make([]sizeResponse, 0, len(summaries))}
	for _, s := range summaries {
		resp.Sizes = append(resp.Sizes, sizeResponse{Size: s.Size, Products: s.Products})
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

type renderRequest struct {
	Category string   `json:"category"`
	Sizes    []string `json:"sizes"`
}

type renderFileResponse struct {
	Token    string `json:"token"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

type renderResponse struct {
	Files []renderFileResponse `json:"files"`
}

func (h *CatalogHandlers) Render(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := readLimitedBody(r, maxRenderBodyBytes)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_body", "request body unreadable or too large", http.StatusBadRequest))
		return
	}

	var req renderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_json", "request body is not valid JSON", http.StatusBadRequest))
		return
	}

	result, err := h.service.Generate(ctx, req.Category, req.Sizes)
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}

	if result.Document != nil {
		writePDF(w, result.Document.Filename, result.Document.Bytes)
		return
	}

	resp := renderResponse{Files: make([]renderFileResponse, 0, len(result.Artifacts))}
	for _, ref := range result.Artifacts {
		resp.Files = append(resp.Files, renderFileResponse{
			Token:    ref.Token,
			Filename: ref.Filename,
			URL:      artifactURL(ref),
		})
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

func (h *CatalogHandlers) DownloadArtifact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := chi.URLParam(r, "token")

	payload, err := h.store.Take(ctx, token)
	if err != nil {
		if errors.Is(err, artifacts.ErrNotFound) {
			httpx.WriteError(ctx, w, httpx.NewError("artifact_not_found", "artifact unknown, expired, or already downloaded", http.StatusNotFound))
			return
		}
		requestctx.Logger(ctx).Error("artifact retrieval failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "could not retrieve artifact", http.StatusInternalServerError))
		return
	}

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = "catalogo.pdf"
	}
	writePDF(w, filename, payload)
}

func (h *CatalogHandlers) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.InvalidateCache(ctx); err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandlers) writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCategoryRequired):
		httpx.WriteError(ctx, w, httpx.NewError("category_required", "category is required", http.StatusBadRequest))
	case errors.Is(err, services.ErrNoSizesSelected):
		httpx.WriteError(ctx, w, httpx.NewError("sizes_required", "at least one size is required", http.StatusBadRequest))
	case errors.Is(err, services.ErrCategoryUnknown):
		httpx.WriteError(ctx, w, httpx.NewError("category_unknown", "category is not declared", http.StatusNotFound))
	default:
		requestctx.Logger(ctx).Error("catalog request failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "catalog request failed", http.StatusInternalServerError))
	}
}

func artifactURL(ref services.ArtifactRef) string {
	return fmt.Sprintf("%s/artifacts/%s?filename=%s", basePath, url.PathEscape(ref.Token), url.QueryEscape(ref.Filename))
}

func writePDF(w http.ResponseWriter, filename string, payload []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(payload)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		requestctx.Logger(ctx).Error("encoding response failed", zap.Error(err))
	}
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, errors.New("handlers: body too large")
	}
	return body, nil
}
