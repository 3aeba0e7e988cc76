package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kiosk-gateway/internal/platform/config"
	dErrors "kiosk-gateway/pkg/domain-errors"
	"kiosk-gateway/pkg/platform/httputil"
	"kiosk-gateway/pkg/platform/middleware/auth"
	"kiosk-gateway/pkg/platform/middleware/request"
	"kiosk-gateway/pkg/platform/middleware/requesttime"
)

// RouteRegistrar is implemented by every handler that mounts its own routes.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// Routes groups the handlers served by the gateway.
//
// Public routes are always reachable. Kiosk routes sit behind bearer-token
// authentication when KioskAuth is non-nil.
type Routes struct {
	Public    []RouteRegistrar
	Kiosk     []RouteRegistrar
	KioskAuth auth.JWTValidator
	Gatherer  prometheus.Gatherer
	Latency   *request.Metrics
}

// NewRouter wires all public endpoints with middleware.
func NewRouter(cfg config.Server, routes Routes, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(request.ClientIP)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(logger))
	r.Use(request.LatencyMiddleware(routes.Latency))
	r.Use(request.Timeout(cfg.RequestTimeout))
	r.Use(request.BodyLimit(cfg.MaxBodyBytes))
	r.Use(request.ContentTypeJSON)

	for _, reg := range routes.Public {
		reg.Register(r)
	}

	r.Group(func(r chi.Router) {
		if routes.KioskAuth != nil {
			r.Use(auth.RequireKiosk(routes.KioskAuth, logger))
		}
		for _, reg := range routes.Kiosk {
			reg.Register(r)
		}
	})

	gatherer := routes.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{
			"error":             "method_not_allowed",
			"error_description": "method not allowed for this route",
		})
	})

	return r
}
