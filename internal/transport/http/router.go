package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"losbridge/internal/platform/middleware"
	"losbridge/pkg/platform/httputil"
)

// NewRouter assembles the full HTTP surface: the bridge API, the webhook
// delivery endpoint, health, and metrics.
func NewRouter(api *Handler, webhooks http.Handler, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Method(http.MethodPost, "/webhooks/los", webhooks)

	api.Register(r)
	return r
}
