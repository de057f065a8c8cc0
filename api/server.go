/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the UI
  5. BasicAuth:  Optional basic auth over every API route

ROUTES:
  GET  /api/filters      Distinct values for filter dropdowns
  POST /api/query        Filtered/searched price list with derived fields
  GET  /api/prices/{id}  Single price detail
  POST /api/quote        Quote draft for one price
  POST /api/export       Current result set as CSV (UTF-8 BOM)
  GET  /api/stats        Record count + last import
  POST /api/update       Trigger CSV ingestion

AUTH:
  Basic auth via an explicit policy object: when no UI password is
  configured, every request passes. See auth.go.
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, auth *BasicAuthPolicy) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Get("/filters", h.GetFilters)
		r.Post("/query", h.QueryPrices)
		r.Get("/prices/{id}", h.GetPriceDetail)
		r.Post("/quote", h.GenerateQuote)
		r.Post("/export", h.ExportCSV)
		r.Get("/stats", h.GetStats)
		r.Post("/update", h.TriggerUpdate)
	})

	return r
}
