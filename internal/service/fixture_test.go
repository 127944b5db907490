package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"salonbook/internal/availability"
	"salonbook/internal/database"
	"salonbook/internal/domain"
	"salonbook/internal/events"
	"salonbook/internal/models"
	"salonbook/internal/tz"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	staffAlex  int64 = 1
	staffBo    int64 = 2
	haircut    int64 = 10 // 60 minutes
	fringeTrim int64 = 11 // 15 minutes
	colour     int64 = 12 // only Bo
)

var (
	// 2025-03-10 is a Monday in PDT; 09:00 local is 16:00 UTC.
	nineAM = time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)
	tenAM  = nineAM.Add(time.Hour)
)

type recordedEvent struct {
	Type    string
	Payload []byte
}

type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) handle(e *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Type: e.Type, Payload: e.Payload})
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	db       *database.DB
	holds    *HoldService
	bookings *BookingService
	calc     *availability.Calculator
	events   *recorder

	mu  sync.Mutex
	now time.Time
}

func (f *fixture) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) set(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

func newFixture(t *testing.T, limiter domain.RateLimiter, cfg HoldConfig) *fixture {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.UpsertCatalog(context.Background(),
		[]models.Service{
			{ID: haircut, Name: "Haircut", DurationMinutes: 60, BasePrice: 4500, IsActive: true},
			{ID: fringeTrim, Name: "Fringe trim", DurationMinutes: 15, BasePrice: 1500, IsActive: true},
			{ID: colour, Name: "Colour", DurationMinutes: 120, BasePrice: 9000, IsActive: true},
		},
		[]models.Staff{
			{
				ID: staffAlex, Name: "Alex", ServiceIDs: []int64{haircut, fringeTrim}, IsActive: true,
				Availability: []models.AvailabilityWindow{
					{DayOfWeek: time.Monday, StartTime: "09:00", EndTime: "18:00"},
				},
			},
			{
				ID: staffBo, Name: "Bo", ServiceIDs: []int64{colour}, IsActive: true,
				Availability: []models.AvailabilityWindow{
					{DayOfWeek: time.Monday, StartTime: "12:00", EndTime: "16:00"},
				},
			},
		},
	))

	f := &fixture{db: db, events: &recorder{}, now: nineAM}
	bus := events.NewEventBus()
	for _, et := range events.AllTypes {
		bus.Subscribe(et, f.events.handle)
	}

	f.calc = availability.NewCalculator(db, db, db, tz.MustPacific(), f, models.SlotInterval, &logger)
	f.holds = NewHoldService(db, db, f.calc, limiter, bus, f, cfg, &logger)
	f.bookings = NewBookingService(db, bus, f, &logger)
	return f
}

func (f *fixture) hold(t *testing.T, session string, serviceID int64, start time.Time) *models.Hold {
	t.Helper()
	h, err := f.holds.CreateHold(context.Background(), CreateHoldInput{
		SessionID: session, StaffID: staffAlex, ServiceID: serviceID, SlotStart: start,
	})
	require.NoError(t, err)
	return h
}

func validContact() ContactInput {
	return ContactInput{Name: "Kim Lee", Phone: "+1 415 555 0100", Email: "kim@example.com", MarketingConsent: true}
}
