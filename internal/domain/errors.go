package domain

import "errors"

// Failure classes raised by the booking core. Lower layers wrap them with %w;
// the HTTP boundary maps them to status codes with errors.Is.
var (
	ErrValidation      = errors.New("invalid request")
	ErrNotFound        = errors.New("not found")
	ErrSlotUnavailable = errors.New("slot not available")
	ErrHoldGone        = errors.New("hold expired or missing")
	ErrRateLimited     = errors.New("too many requests")
)
