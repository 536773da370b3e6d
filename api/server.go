/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the booking widget
  5. RateLimit:  Per-IP budget on booking writes only

ROUTE GROUPS:
  /api/rules, /api/days/*   Read-only booking data
  /api/quotes               Pricing
  /api/reservations         Customer bookings
  /api/admin/*              Operator actions

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

// RouterOptions tunes the middleware stack.
type RouterOptions struct {
	AllowedOrigins  []string
	RateLimitPerMin int
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	limiter := NewRateLimiter(opts.RateLimitPerMin)

	r.Route("/api", func(r chi.Router) {
		r.Get("/rules", h.GetRules)

		r.Route("/days", func(r chi.Router) {
			r.Get("/", h.ListDays)
			r.Get("/{date}/slots", h.ListSlots)
		})

		r.Post("/quotes", h.CreateQuote)

		r.Route("/reservations", func(r chi.Router) {
			r.Get("/", h.ListCustomerReservations)
			r.With(limiter.Limit).Post("/", h.CreateReservation)
		})

		// Operator routes
		r.Route("/admin", func(r chi.Router) {
			r.Get("/agenda", h.GetAgenda)
			r.Post("/blocks", h.CreateBlock)
			r.Post("/reservations/{id}/confirm", h.ConfirmReservation)
			r.Post("/reservations/{id}/cancel", h.CancelReservation)
		})
	})

	return r
}
