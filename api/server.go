/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the admin dashboard

ROUTE GROUPS:
  /api/accounts/*       Ledger per account
  /api/transfers        Transfers between accounts
  /api/operations/*     Operation lookup
  /api/cooldowns/*      Cooldown buckets and per-name queries

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/accounts/{id}", func(r chi.Router) {
			r.Get("/", h.GetAccount)
			r.Post("/deposit", h.Deposit)
			r.Post("/withdraw", h.Withdraw)
			r.Post("/assign", h.Assign)
			r.Post("/reverse", h.Reverse)
			r.Post("/rollback", h.Rollback)
			r.Get("/operations", h.GetOperations)
			r.Get("/variation", h.GetVariation)
			r.Get("/audit", h.GetAudit)
			r.Post("/rank", h.RankInGroup)
		})

		r.Post("/transfers", h.CreateTransfer)
		r.Get("/operations/{id}", h.GetOperation)

		r.Route("/cooldowns", func(r chi.Router) {
			r.Get("/buckets", h.ListActiveBuckets)
			r.Post("/cleanup", h.CleanupCooldowns)
			r.Get("/names/{name}/entities", h.ListEntitiesWithCooldown)
			r.Get("/names/{name}/stats", h.GetCooldownStatistics)

			r.Route("/{kind}/{id}", func(r chi.Router) {
				r.Get("/", h.ListCooldowns)
				r.Delete("/", h.ClearCooldowns)
				r.Put("/{name}", h.SetCooldown)
				r.Patch("/{name}", h.UpdateCooldown)
				r.Delete("/{name}", h.RemoveCooldown)
			})
		})
	})

	return r
}
