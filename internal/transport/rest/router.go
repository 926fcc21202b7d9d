package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/subscription-billing/api"
	"github.com/frahmantamala/subscription-billing/internal/confirmation"
	"github.com/frahmantamala/subscription-billing/internal/transport/middleware"
	"github.com/frahmantamala/subscription-billing/internal/transport/swagger"
)

type RouterConfig struct {
	AllowedOrigins string
	// MetricsPath is left unmounted when empty.
	MetricsPath string
}

type Handlers struct {
	Health       *HealthHandler
	Confirmation *confirmation.Handler
	Metrics      http.Handler
}

func RegisterAllRoutes(router *chi.Mux, handlers Handlers, cfg RouterConfig, logger *slog.Logger) {
	// Apply global middleware
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Get(swagger.DocumentPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.Document())
	})
	router.Handle("/swagger/*", swagger.Handler())

	if handlers.Metrics != nil && cfg.MetricsPath != "" {
		router.Handle(cfg.MetricsPath, handlers.Metrics)
	}

	// Mount API under /api/v1 to match the OpenAPI server url
	router.Route("/api/v1", func(r chi.Router) {
		if handlers.Health != nil {
			r.Get("/health", handlers.Health.healthCheckHandler)
			r.Get("/ping", handlers.Health.pingHandler)
		}

		if handlers.Confirmation != nil {
			r.Route("/payments", func(pr chi.Router) {
				pr.Post("/confirm", handlers.Confirmation.ConfirmPayment)
				pr.Get("/{id}", handlers.Confirmation.GetPaymentStatus)
			})
		}
	})
}
