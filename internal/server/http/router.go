package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akulikov/driveguard/internal/logging"
)

// routePattern returns the matched chi route pattern for metric labels,
// falling back to the raw path outside of chi routing.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// NewRouter assembles the API routes. All /api routes require a valid
// bearer token; /healthz and /metrics stay open for probes and scrapers.
func NewRouter(h *Handlers, secretKey []byte, logger logging.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger(logger))
	r.Use(Metrics())

	r.Get("/healthz", h.Healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(BearerAuth(secretKey, logger))

		r.Post("/files", h.UploadFile)
		r.Get("/files", h.ListFiles)
		r.Get("/files/{name}", h.GetFile)
		r.Post("/files/{name}/verify", h.VerifyFile)
		r.Post("/verify-all", h.VerifyAll)
		r.Delete("/files/{name}", h.DeleteFile)
		r.Get("/search", h.SearchFiles)
		r.Get("/stats", h.GetStats)
	})

	return r
}
