package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yuanjian-org/app-sub000/internal/handler"
	customMiddleware "github.com/yuanjian-org/app-sub000/internal/middleware"
)

func NewRouter(
	h *handler.NotificationHandler,
	healthHandler *handler.HealthHandler,
	authSecret string,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(customMiddleware.MetricsMiddleware)
	r.Use(middleware.RequestID)
	r.Use(customMiddleware.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Use(customMiddleware.AuthMiddleware(authSecret))

		r.Post("/notifications", h.Notify)
		r.Post("/notifications/roles", h.NotifyRoles)
		r.Post("/scheduled-notifications", h.Schedule)
		r.Post("/scheduled-notifications/sweep", h.Sweep)
	})

	// Health & Readiness Routes
	r.Get("/healthz", healthHandler.Liveness)
	r.Get("/readyz", healthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	return otelhttp.NewHandler(r, "notifier")
}
