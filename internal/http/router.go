package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tablemeet/venue-scheduler/internal/observability"
	"github.com/tablemeet/venue-scheduler/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)
	r.Use(RateLimitMiddleware(rl))
	r.Use(IdempotencyKeyMiddleware)

	r.Get("/v1/availability", h.GetAvailability)
	r.Post("/v1/holds", h.CreateHold)
	r.Post("/v1/bookings", h.ConfirmBooking)
	r.Get("/v1/swaps/eligibility", h.SwapEligibility)
	r.Post("/v1/swaps", h.ExecuteSwap)
	r.Post("/v1/credits", h.IssueCredit)
	r.Get("/v1/invites/{id}/window", h.MeetingWindow)
	r.Get("/v1/venues/{id}", h.GetVenue)
	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
