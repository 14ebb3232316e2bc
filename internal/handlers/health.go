package handlers

import (
	"context"
	"net/http"

	"github.com/duds-studio/catalog-api/internal/platform/httpx"
	"github.com/duds-studio/catalog-api/internal/platform/requestctx"

	"go.uber.org/zap"
)

// ReadinessChecker reports whether the service can reach its dependencies.
type ReadinessChecker func(ctx context.Context) error

// HealthHandlers serves the liveness and readiness probes.
type HealthHandlers struct {
	ready ReadinessChecker
}

// NewHealthHandlers builds the probe handlers. A nil checker makes the
// readiness probe unconditionally healthy.
func NewHealthHandlers(ready ReadinessChecker) *HealthHandlers {
	return &HealthHandlers{ready: ready}
}

func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.ready != nil {
		if err := h.ready(ctx); err != nil {
			requestctx.Logger(ctx).Warn("readiness check failed", zap.Error(err))
			httpx.WriteError(ctx, w, httpx.NewError("not_ready", "dependencies unavailable", http.StatusServiceUnavailable))
			return
		}
	}
	writeJSON(ctx, w, http.StatusOK, map[string]string{"status": "ready"})
}
