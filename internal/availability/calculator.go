package availability

import (
	"context"
	"fmt"
	"time"

	"salonbook/internal/domain"
	"salonbook/internal/metrics"
	"salonbook/internal/models"
	"salonbook/internal/tz"

	"github.com/rs/zerolog"
)

// Result is one staff member's day of slots for a service, in ascending order.
type Result struct {
	StaffName   string
	ServiceName string
	Date        string
	Slots       []models.Slot
	Message     string
}

// Calculator derives slots from storage on every call; nothing is cached between
// holds and availability.
type Calculator struct {
	catalog  domain.CatalogRepository
	bookings domain.BookingReader
	holds    domain.HoldReader
	tz       *tz.Normalizer
	clock    domain.Clock
	step     time.Duration
	logger   *zerolog.Logger
}

func NewCalculator(
	catalog domain.CatalogRepository,
	bookings domain.BookingReader,
	holds domain.HoldReader,
	normalizer *tz.Normalizer,
	clock domain.Clock,
	step time.Duration,
	logger *zerolog.Logger,
) *Calculator {
	if step <= 0 {
		step = models.SlotInterval
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Calculator{
		catalog:  catalog,
		bookings: bookings,
		holds:    holds,
		tz:       normalizer,
		clock:    clock,
		step:     step,
		logger:   logger,
	}
}

func (c *Calculator) Calculate(ctx context.Context, staffID, serviceID int64, date string) (*Result, error) {
	started := time.Now()
	defer func() { metrics.ObserveAvailability(time.Since(started)) }()

	staff, service, err := c.resolve(ctx, staffID, serviceID)
	if err != nil {
		return nil, err
	}

	day, err := c.tz.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	result := &Result{StaffName: staff.Name, ServiceName: service.Name, Date: date, Slots: []models.Slot{}}

	windows, err := c.windows(staff, date, day.Weekday())
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		result.Message = fmt.Sprintf("%s does not work on %s", staff.Name, day.Weekday())
		return result, nil
	}

	dayStart, dayEnd, err := c.tz.DayBounds(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	now := c.clock.Now()

	booked, held, err := c.busy(ctx, staffID, dayStart, dayEnd, now)
	if err != nil {
		return nil, err
	}

	for _, w := range windows {
		for _, slot := range Evaluate(w, c.step, service.Duration(), booked, held, now) {
			slot.LocalTime = c.tz.Display(slot.Start)
			result.Slots = append(result.Slots, slot)
		}
	}

	c.logger.Debug().
		Int64("staff_id", staffID).
		Int64("service_id", serviceID).
		Str("date", date).
		Int("slots", len(result.Slots)).
		Int("bookings", len(booked)).
		Int("holds", len(held)).
		Msg("availability computed")

	return result, nil
}

func (c *Calculator) resolve(ctx context.Context, staffID, serviceID int64) (*models.Staff, *models.Service, error) {
	staff, err := c.catalog.GetStaff(ctx, staffID)
	if err != nil {
		return nil, nil, err
	}
	if !staff.IsActive {
		return nil, nil, fmt.Errorf("staff %d is inactive: %w", staffID, domain.ErrNotFound)
	}

	service, err := c.catalog.GetService(ctx, serviceID)
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

// windows resolves the day's working hours to instants. Bounds that fall in a
// spring-forward gap open at the first instant after it, and overlapping windows are
// merged so every start is evaluated once and in order.
func (c *Calculator) windows(staff *models.Staff, date string, day time.Weekday) ([]Window, error) {
	var out []Window
	for _, w := range staff.WindowsFor(day) {
		start, err := c.tz.Resolve(date, w.StartTime)
		if err != nil {
			return nil, fmt.Errorf("staff %d window start %s on %s: %w", staff.ID, w.StartTime, date, err)
		}
		end, err := c.tz.Resolve(date, w.EndTime)
		if err != nil {
			return nil, fmt.Errorf("staff %d window end %s on %s: %w", staff.ID, w.EndTime, date, err)
		}
		if !end.After(start) {
			continue
		}
		out = append(out, Window{Start: start, End: end})
	}
	return mergeWindows(out), nil
}

// mergeWindows expects windows sorted by start. Touching windows stay separate so
// each keeps its own slot grid.
func mergeWindows(windows []Window) []Window {
	if len(windows) < 2 {
		return windows
	}
	merged := []Window{windows[0]}
	for _, w := range windows[1:] {
		last := &merged[len(merged)-1]
		if w.Start.Before(last.End) {
			if w.End.After(last.End) {
				last.End = w.End
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}

// busy loads everything that intersects the local day, including bookings that
// started on the previous day and run past midnight. Expired holds are dropped
// again here in case the clock moved since the query.
func (c *Calculator) busy(ctx context.Context, staffID int64, from, to, now time.Time) (booked, held []Interval, err error) {
	bookings, err := c.bookings.ListConfirmedBookings(ctx, staffID, from, to)
	if err != nil {
		return nil, nil, fmt.Errorf("load bookings: %w", err)
	}
	for _, b := range bookings {
		booked = append(booked, Interval{Start: b.SlotStart, End: b.SlotEnd})
	}

	holds, err := c.holds.ListActiveHolds(ctx, staffID, from, to, now)
	if err != nil {
		return nil, nil, fmt.Errorf("load holds: %w", err)
	}
	for _, h := range holds {
		if !h.IsActive(now) {
			continue
		}
		held = append(held, Interval{Start: h.SlotStart, End: h.SlotEnd})
	}
	return booked, held, nil
}

// Fits reports whether a service of the given duration may start at start: on the
// step grid of one of the staff member's windows that day and finishing before it closes.
func (c *Calculator) Fits(staff *models.Staff, start time.Time, duration time.Duration) bool {
	local := c.tz.ToLocal(start)
	windows, err := c.windows(staff, local.Date, local.Weekday)
	if err != nil {
		return false
	}
	for _, w := range windows {
		if start.Before(w.Start) || start.Add(duration).After(w.End) {
			continue
		}
		if start.Sub(w.Start)%c.step == 0 {
			return true
		}
	}
	return false
}
