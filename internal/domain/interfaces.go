package domain

import (
	"context"
	"time"

	"salonbook/internal/models"
)

type CatalogRepository interface {
	GetStaff(ctx context.Context, id int64) (*models.Staff, error)
	GetService(ctx context.Context, id int64) (*models.Service, error)
	ListServices(ctx context.Context) ([]*models.Service, error)
	ListStaff(ctx context.Context) ([]*models.Staff, error)
}

// HoldRepository is the storage contract of the hold manager. InsertHold must be
// atomic with respect to other writers: at most one active hold per (staff, slot start).
type HoldRepository interface {
	InsertHold(ctx context.Context, hold *models.Hold, now time.Time) (superseded int64, err error)
	GetHold(ctx context.Context, id string) (*models.Hold, error)
	GetLatestHoldBySession(ctx context.Context, sessionID string) (*models.Hold, error)
	DeleteHold(ctx context.Context, id string) (bool, error)
	DeleteExpiredHolds(ctx context.Context, now time.Time) (int64, error)
}

type HoldReader interface {
	ListActiveHolds(ctx context.Context, staffID int64, from, to, now time.Time) ([]*models.Hold, error)
}

// BookingRepository promotes holds to bookings. ConvertHold runs as one unit of work:
// the booking is inserted before the hold is removed.
type BookingRepository interface {
	ConvertHold(ctx context.Context, holdID string, booking *models.Booking, now time.Time) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, status string) error
}

type BookingReader interface {
	ListConfirmedBookings(ctx context.Context, staffID int64, from, to time.Time) ([]*models.Booking, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// RateLimiter counts attempts per key inside a fixed window.
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
