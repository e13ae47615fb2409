package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bankinsight/churn-insights/internal/services"
)

// Handlers serves the JSON API for dashboards and notebooks.
type Handlers struct {
	service *services.InsightService
	logger  *slog.Logger
}

// NewHandlers constructs the HTTP handlers.
func NewHandlers(service *services.InsightService, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{service: service, logger: logger}
}

// NewRouter configures every route. An empty origins list allows any origin.
func NewRouter(h *Handlers, origins []string) *chi.Mux {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/records", h.Records)
		r.Get("/breakdown/{dimensions}", h.Breakdown)
		r.Get("/segments", h.Segments)
		r.Get("/summary", h.Summary)
		r.Get("/insights", h.Insights)
		r.Get("/filters", h.FilterOptions)
	})
	return r
}

// Handler is a convenience that wires handlers and router in one call.
func Handler(service *services.InsightService, logger *slog.Logger, origins []string) http.Handler {
	return NewRouter(NewHandlers(service, logger), origins)
}
