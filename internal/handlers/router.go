// Package handlers exposes the HTTP surface of the catalog service.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/duds-studio/catalog-api/internal/platform/httpx"
)

const basePath = "/api/v1/catalog"

// RouterOption customises the router assembled by NewRouter.
type RouterOption func(*routerConfig)

type routerConfig struct {
	middlewares []func(http.Handler) http.Handler
	catalog     *CatalogHandlers
	health      *HealthHandlers
}

// WithMiddlewares installs the given middlewares ahead of every route.
func WithMiddlewares(mws ...func(http.Handler) http.Handler) RouterOption {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mws...)
	}
}

// WithCatalogRoutes mounts the catalog endpoints under the API base path.
func WithCatalogRoutes(h *CatalogHandlers) RouterOption {
	return func(cfg *routerConfig) {
		cfg.catalog = h
	}
}

// WithHealthHandlers mounts the liveness and readiness probes at the root.
func WithHealthHandlers(h *HealthHandlers) RouterOption {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// NewRouter assembles the chi router for the API.
func NewRouter(opts ...RouterOption) http.Handler {
	cfg := &routerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("not_found", "resource not found", http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", "method not allowed", http.StatusMethodNotAllowed))
	})

	if cfg.health != nil {
		r.Get("/healthz", cfg.health.Healthz)
		r.Get("/readyz", cfg.health.Readyz)
	}

	if cfg.catalog != nil {
		r.Route(basePath, func(r chi.Router) {
			r.Get("/categories", cfg.catalog.ListCategories)
			r.Get("/categories/{category}/sizes", cfg.catalog.ListSizes)
			r.Post("/render", cfg.catalog.Render)
			r.Get("/artifacts/{token}", cfg.catalog.DownloadArtifact)
			r.Post("/cache:invalidate", cfg.catalog.InvalidateCache)
		})
	}

	return r
}
