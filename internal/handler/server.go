// Package handler implements the HTTP handlers for the trip countdown API.
// All handlers are methods on Server. Methods are split into topic files
// (health.go, trip.go, countdown.go) but share the same Server struct so they
// can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/trip-countdown/internal/countdown"
	"github.com/pkordes/trip-countdown/internal/domain"
)

// TripConfigurer defines the trip operations the handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the stores.
type TripConfigurer interface {
	Current() domain.TripState
	Location() *time.Location
	Save(ctx context.Context, destination, rawLocalDateTime string, items []domain.ItineraryItem) (domain.TripState, error)
	History(ctx context.Context, page domain.PaginationParams) ([]domain.TripRecord, int64, error)
	Watch(ctx context.Context) <-chan domain.TripState
}

// Server serves every API endpoint.
type Server struct {
	trips TripConfigurer
	now   func() time.Time
	tick  time.Duration
	log   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithClock overrides time.Now for countdown computation.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithTickInterval sets the countdown stream refresh period.
func WithTickInterval(d time.Duration) Option {
	return func(s *Server) { s.tick = d }
}

// WithLogger sets the logger used for stream diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// NewServer constructs the Server with all its dependencies.
func NewServer(trips TripConfigurer, opts ...Option) *Server {
	s := &Server{
		trips: trips,
		now:   time.Now,
		tick:  countdown.DefaultInterval,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil)
}

// Routes returns the chi router serving every endpoint.
// Middleware is applied by the caller (see cmd/api).
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/trip", func(r chi.Router) {
		r.Get("/", s.GetTrip)
		r.Put("/", s.SaveTrip)
		r.Get("/countdown", s.GetCountdown)
		r.Get("/countdown/stream", s.StreamCountdown)
		r.Get("/itinerary", s.GetItinerary)
		r.Get("/itinerary/draft", s.GetItineraryDraft)
		r.Get("/history", s.ListHistory)
	})

	return r
}
