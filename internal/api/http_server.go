package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"salonbook/internal/availability"
	"salonbook/internal/config"
	"salonbook/internal/domain"
	"salonbook/internal/models"
	"salonbook/internal/service"
	"salonbook/internal/tz"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type HoldManager interface {
	CreateHold(ctx context.Context, in service.CreateHoldInput) (*models.Hold, error)
	SessionHold(ctx context.Context, sessionID string) (*models.Hold, bool, error)
	ReleaseHold(ctx context.Context, id string) error
}

type BookingConverter interface {
	ConvertHold(ctx context.Context, holdID string, contact service.ContactInput) (*models.Booking, error)
}

type AvailabilityProvider interface {
	Calculate(ctx context.Context, staffID, serviceID int64, date string) (*availability.Result, error)
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps are the collaborators the HTTP surface calls into.
type Deps struct {
	Holds        HoldManager
	Bookings     BookingConverter
	Availability AvailabilityProvider
	Health       HealthChecker
	TZ           *tz.Normalizer
	Clock        domain.Clock
}

// HTTPServer exposes the booking core over JSON.
type HTTPServer struct {
	cfg      config.APIConfig
	deps     Deps
	validate *validator.Validate
	limiter  *rateLimiter
	server   *http.Server
	logger   *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, deps Deps, logger *zerolog.Logger) *HTTPServer {
	if deps.Clock == nil {
		deps.Clock = domain.SystemClock{}
	}
	if deps.TZ == nil {
		deps.TZ = tz.MustPacific()
	}

	srv := &HTTPServer{
		cfg:      cfg,
		deps:     deps,
		validate: validator.New(),
		limiter:  newRateLimiter(&cfg),
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /holds", srv.handleCreateHold)
	mux.HandleFunc("DELETE /holds", srv.handleReleaseHold)
	mux.HandleFunc("GET /holds", srv.handleSessionHold)
	mux.HandleFunc("POST /holds/{holdId}/convert", srv.handleConvertHold)
	mux.HandleFunc("GET /availability", srv.handleAvailability)
	mux.HandleFunc("GET /healthz", srv.handleHealthz)
	mux.HandleFunc("GET /readyz", srv.handleReadyz)

	handler := requestIDMiddleware(srv.loggingMiddleware(srv.rateLimitMiddleware(mux)))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Sweep evicts idle per-client rate limit buckets.
func (s *HTTPServer) Sweep() int {
	return s.limiter.sweep()
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
