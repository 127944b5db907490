package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"salonbook/internal/domain"
	"salonbook/internal/events"
	"salonbook/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SlotPolicy decides whether a service may start at a given instant for a staff member.
type SlotPolicy interface {
	Fits(staff *models.Staff, start time.Time, duration time.Duration) bool
}

type HoldConfig struct {
	TTL           time.Duration
	SessionLimit  int
	SessionWindow time.Duration
}

type CreateHoldInput struct {
	SessionID string
	StaffID   int64
	ServiceID int64
	SlotStart time.Time
}

type HoldService struct {
	catalog  domain.CatalogRepository
	holds    domain.HoldRepository
	policy   SlotPolicy
	limiter  domain.RateLimiter
	eventBus domain.EventPublisher
	clock    domain.Clock
	cfg      HoldConfig
	logger   *zerolog.Logger
}

func NewHoldService(
	catalog domain.CatalogRepository,
	holds domain.HoldRepository,
	policy SlotPolicy,
	limiter domain.RateLimiter,
	eventBus domain.EventPublisher,
	clock domain.Clock,
	cfg HoldConfig,
	logger *zerolog.Logger,
) *HoldService {
	if cfg.TTL <= 0 {
		cfg.TTL = models.HoldTTL
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &HoldService{
		catalog:  catalog,
		holds:    holds,
		policy:   policy,
		limiter:  limiter,
		eventBus: eventBus,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
}

// CreateHold places an exclusive, expiring hold on the slot. A later hold of the
// same session replaces the earlier one.
func (s *HoldService) CreateHold(ctx context.Context, in CreateHoldInput) (*models.Hold, error) {
	in.SessionID = strings.TrimSpace(in.SessionID)
	if in.SessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", domain.ErrValidation)
	}
	if in.StaffID <= 0 || in.ServiceID <= 0 {
		return nil, fmt.Errorf("%w: staff and service are required", domain.ErrValidation)
	}

	now := s.clock.Now()
	if !in.SlotStart.After(now) {
		return nil, fmt.Errorf("%w: slot %s is not in the future", domain.ErrValidation, in.SlotStart.Format(time.RFC3339))
	}

	if err := s.checkSessionLimit(ctx, in.SessionID); err != nil {
		return nil, err
	}

	staff, service, err := s.resolve(ctx, in.StaffID, in.ServiceID)
	if err != nil {
		return nil, err
	}
	if s.policy != nil && !s.policy.Fits(staff, in.SlotStart, service.Duration()) {
		return nil, fmt.Errorf("%w: %s is not a bookable start for %s", domain.ErrValidation,
			in.SlotStart.Format(time.RFC3339), staff.Name)
	}

	hold := &models.Hold{
		ID:        uuid.NewString(),
		SessionID: in.SessionID,
		StaffID:   in.StaffID,
		ServiceID: in.ServiceID,
		SlotStart: in.SlotStart.UTC(),
		SlotEnd:   in.SlotStart.Add(service.Duration()).UTC(),
		CreatedAt: now.UTC(),
		ExpiresAt: now.Add(s.cfg.TTL).UTC(),
	}

	superseded, err := s.holds.InsertHold(ctx, hold, now)
	if err != nil {
		if errors.Is(err, domain.ErrSlotUnavailable) {
			s.publishHold(events.EventHoldConflict, hold, "slot taken")
		}
		return nil, err
	}

	s.publishHold(events.EventHoldCreated, hold, "")
	if superseded > 0 {
		s.publishHold(events.EventHoldSuperseded, hold, fmt.Sprintf("%d previous hold(s) released", superseded))
	}

	s.logger.Info().
		Str("hold_id", hold.ID).
		Int64("staff_id", hold.StaffID).
		Time("slot_start", hold.SlotStart).
		Int64("superseded", superseded).
		Msg("hold created")

	return hold, nil
}

// GetActiveHoldBySession returns nil when the session has no hold or it has expired.
func (s *HoldService) GetActiveHoldBySession(ctx context.Context, sessionID string) (*models.Hold, error) {
	hold, expired, err := s.SessionHold(ctx, sessionID)
	if err != nil || expired {
		return nil, err
	}
	return hold, nil
}

// SessionHold returns the session's latest hold and whether it has expired.
// An expired hold is returned as nil with expired set.
func (s *HoldService) SessionHold(ctx context.Context, sessionID string) (*models.Hold, bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, false, fmt.Errorf("%w: session id is required", domain.ErrValidation)
	}

	hold, err := s.holds.GetLatestHoldBySession(ctx, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !hold.IsActive(s.clock.Now()) {
		return nil, true, nil
	}
	return hold, false, nil
}

// GetHoldByID returns nil when the hold does not exist or has expired.
func (s *HoldService) GetHoldByID(ctx context.Context, id string) (*models.Hold, error) {
	hold, err := s.holds.GetHold(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !hold.IsActive(s.clock.Now()) {
		return nil, nil
	}
	return hold, nil
}

// ReleaseHold deletes the hold. Releasing an unknown or already released hold succeeds.
func (s *HoldService) ReleaseHold(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: hold id is required", domain.ErrValidation)
	}

	deleted, err := s.holds.DeleteHold(ctx, id)
	if err != nil {
		return err
	}
	if deleted {
		s.publishHold(events.EventHoldReleased, &models.Hold{ID: id}, "released by client")
		s.logger.Info().Str("hold_id", id).Msg("hold released")
	}
	return nil
}

// PurgeExpired physically removes expired rows. Readers already ignore them.
func (s *HoldService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.holds.DeleteExpiredHolds(ctx, s.clock.Now())
}

func (s *HoldService) checkSessionLimit(ctx context.Context, sessionID string) error {
	if s.limiter == nil || s.cfg.SessionLimit <= 0 {
		return nil
	}
	allowed, err := s.limiter.CheckRateLimit(ctx, "hold:"+sessionID, s.cfg.SessionLimit, s.cfg.SessionWindow)
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("rate limiter unavailable, allowing request")
		return nil
	}
	if !allowed {
		return fmt.Errorf("%w: hold attempts for this session", domain.ErrRateLimited)
	}
	return nil
}

func (s *HoldService) resolve(ctx context.Context, staffID, serviceID int64) (*models.Staff, *models.Service, error) {
	staff, err := s.catalog.GetStaff(ctx, staffID)
	if err != nil {
		return nil, nil, err
	}
	if !staff.IsActive {
		return nil, nil, fmt.Errorf("staff %d is inactive: %w", staffID, domain.ErrNotFound)
	}
	service, err := s.catalog.GetService(ctx, serviceID)
	if err != nil {
		return nil, nil, err
	}
	if !service.IsActive {
		return nil, nil, fmt.Errorf("service %d is inactive: %w", serviceID, domain.ErrNotFound)
	}
	if !staff.CanPerform(serviceID) {
		return nil, nil, fmt.Errorf("%w: %s does not perform %s", domain.ErrValidation, staff.Name, service.Name)
	}
	return staff, service, nil
}

func (s *HoldService) publishHold(eventType string, hold *models.Hold, reason string) {
	if s.eventBus == nil {
		return
	}

	payload := events.HoldEventPayload{
		HoldID:    hold.ID,
		SessionID: hold.SessionID,
		StaffID:   hold.StaffID,
		ServiceID: hold.ServiceID,
		SlotStart: hold.SlotStart,
		ExpiresAt: hold.ExpiresAt,
		Reason:    reason,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("hold_id", hold.ID).Msg("publish event error")
	}
}
