package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FreemaX94/VIVR-sub000/pkg/health"
	"github.com/FreemaX94/VIVR-sub000/pkg/middleware"
)

const serviceName = "cart"

// NewRouter assembles the full HTTP surface: middleware stack, health and
// metrics endpoints, and the versioned cart API.
func NewRouter(log *slog.Logger, healthHandler *health.Handler, cartHandler *CartHandler, checkoutHandler *CheckoutHandler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(log))
	r.Use(chimw.RealIP)
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(log))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS)

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(UserIDFromHeader)
		r.Use(ContentTypeJSON)

		cartHandler.Routes(r)
		checkoutHandler.Routes(r)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorBody(w, http.StatusNotFound, "NOT_FOUND", "route not found")
	})

	return r
}
