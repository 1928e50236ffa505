// Package httptransport assembles the HTTP router from the domain handlers.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"userprofile/internal/platform/health"
	"userprofile/internal/platform/middleware"
)

// Registrar mounts a handler's routes on the router. Every domain handler
// implements it.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter wires all endpoints with the shared middleware stack. Health and
// metrics endpoints sit outside the JSON content-type guard so probes stay
// simple.
func NewRouter(logger *slog.Logger, healthHandler *health.Handler, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.BodyLimit(1 << 20))

	healthHandler.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		for _, h := range handlers {
			h.Register(r)
		}
	})

	return r
}
