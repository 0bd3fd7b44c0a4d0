/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for a browser front end

ROUTE GROUPS:
  /api/aircraft/*   Fleet
  /api/routes/*     Routes
  /api/staff/*      Crew
  /api/flights/*    Schedule, seat maps, reservations
  /api/orders/*     Order lookup and cancellation
  /api/drafts/*     Flight creation
  /api/admin/*      Maintenance and seeding
  /api/scenarios/*  Demo scenarios

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/aircraft", func(r chi.Router) {
			r.Get("/", h.ListAircraft)
			r.Post("/", h.CreateAircraft)
			r.Get("/{id}/seats", h.GetAircraftSeats)
		})

		r.Route("/routes", func(r chi.Router) {
			r.Get("/", h.ListRoutes)
			r.Post("/", h.CreateRoute)
		})

		r.Route("/staff", func(r chi.Router) {
			r.Get("/", h.ListStaff)
			r.Post("/", h.CreateStaff)
		})

		r.Route("/flights", func(r chi.Router) {
			r.Get("/", h.ListFlights)
			r.Get("/{num}", h.GetFlight)
			r.Get("/{num}/seats", h.GetSeatMap)
			r.Post("/{num}/reservations", h.Reserve)
			r.Post("/{num}/cancel", h.CancelFlight)
			r.Post("/{num}/recompute", h.RecomputeStatus)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/{id}", h.GetOrder)
			r.Get("/{id}/cancellation", h.QuoteCancellation)
			r.Post("/{id}/cancel", h.CancelOrder)
		})

		r.Route("/drafts", func(r chi.Router) {
			r.Post("/aircraft", h.DraftAircraft)
			r.Post("/crew", h.DraftCrew)
			r.Post("/validate", h.ValidateDraft)
			r.Post("/commit", h.CommitDraft)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/auto-complete", h.TriggerAutoComplete)
			r.Get("/maintenance-runs", h.ListMaintenanceRuns)
			r.Post("/seed", h.Seed)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
