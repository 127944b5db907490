package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"salonbook/internal/domain"
	"salonbook/internal/events"
	"salonbook/internal/models"

	"github.com/rs/zerolog"
)

type BookingService struct {
	repo      domain.BookingRepository
	eventBus  domain.EventPublisher
	clock     domain.Clock
	validator *ContactValidator
	logger    *zerolog.Logger
}

func NewBookingService(repo domain.BookingRepository, eventBus domain.EventPublisher, clock domain.Clock, logger *zerolog.Logger) *BookingService {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &BookingService{
		repo:      repo,
		eventBus:  eventBus,
		clock:     clock,
		validator: NewContactValidator(),
		logger:    logger,
	}
}

// ConvertHold promotes an unexpired hold into a confirmed booking. On any failure the
// hold stays in place until it expires.
func (s *BookingService) ConvertHold(ctx context.Context, holdID string, contact ContactInput) (*models.Booking, error) {
	holdID = strings.TrimSpace(holdID)
	if holdID == "" {
		return nil, fmt.Errorf("%w: hold id is required", domain.ErrValidation)
	}
	if err := s.validator.Validate(&contact); err != nil {
		return nil, err
	}

	booking := &models.Booking{
		CustomerName:     contact.Name,
		CustomerPhone:    contact.Phone,
		CustomerEmail:    contact.Email,
		MarketingConsent: contact.MarketingConsent,
	}

	if err := s.repo.ConvertHold(ctx, holdID, booking, s.clock.Now()); err != nil {
		s.publishEvent(events.EventConversionRejected, booking, holdID, rejectionReason(err))
		return nil, err
	}

	s.publishEvent(events.EventBookingCreated, booking, holdID, "")
	s.logger.Info().
		Int64("booking_id", booking.ID).
		Str("hold_id", holdID).
		Int64("staff_id", booking.StaffID).
		Time("slot_start", booking.SlotStart).
		Msg("booking confirmed")

	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

// CancelBooking releases the booked interval back to availability.
func (s *BookingService) CancelBooking(ctx context.Context, id int64) error {
	if err := s.repo.UpdateBookingStatus(ctx, id, models.StatusCancelled); err != nil {
		return err
	}

	booking, err := s.repo.GetBooking(ctx, id)
	if err == nil {
		s.publishEvent(events.EventBookingCancelled, booking, "", "")
	}
	return nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrHoldGone):
		return "hold expired or missing"
	case errors.Is(err, domain.ErrSlotUnavailable):
		return "slot taken"
	case errors.Is(err, domain.ErrNotFound):
		return "not found"
	default:
		return "internal error"
	}
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, holdID, reason string) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:  booking.ID,
		HoldID:     holdID,
		StaffID:    booking.StaffID,
		ServiceID:  booking.ServiceID,
		SlotStart:  booking.SlotStart,
		SlotEnd:    booking.SlotEnd,
		Status:     booking.Status,
		FinalPrice: booking.FinalPrice,
		Reason:     reason,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}
