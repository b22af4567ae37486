package handler

import (
	"log/slog"
	"net/http"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/config"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

// RouterConfig carries what NewRouter needs beyond the handlers.
type RouterConfig struct {
	JWTSecret  string
	CORSOrigin string
	RateLimit  config.RateLimitConfig
	// Redis backs the booking rate limiter; nil disables it.
	Redis  redis.Scripter
	Logger *slog.Logger
}

// NewRouter builds the API router.
func NewRouter(h *EventHandler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(cfg.Logger))      // structured access log
	r.Use(CORS(cfg.CORSOrigin))

	authn := Authenticate(cfg.JWTSecret)
	limit := RateLimit(cfg.RateLimit, cfg.Redis, cfg.Logger)

	// Health
	r.Get("/health", HealthCheck)

	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.Get("/{id}", h.GetEvent)
		r.Get("/{id}/availability", h.Availability)

		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.Post("/", h.CreateEvent)
			r.Patch("/{id}", h.UpdateEvent)
			r.Get("/{id}/bookings", h.ListEventBookings)
			r.With(limit).Post("/{id}/bookings", h.CreateBooking)
			r.Put("/{id}/favorite", h.AddFavorite)
			r.Delete("/{id}/favorite", h.RemoveFavorite)
		})
	})

	r.With(authn).Get("/favorites", h.ListFavorites)

	r.Route("/bookings", func(r chi.Router) {
		r.Use(authn)
		r.Get("/", h.ListMyBookings)
		r.Get("/{txid}/confirmation", h.Confirmation)
		r.Get("/{txid}/qr.png", h.QRCode)
	})

	r.With(authn).Post("/tickets/validate", h.ValidateTicket)

	return r
}
