package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"salonbook/internal/database"
	"salonbook/internal/domain"
	"salonbook/internal/models"
	"salonbook/internal/tz"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	staffID     int64 = 1
	haircut     int64 = 10
	colour      int64 = 20
	monday            = "2025-03-10"
	sunday            = "2025-03-09"
)

type calcFixture struct {
	db   *database.DB
	calc *Calculator
	now  time.Time
}

func newCalcFixture(t *testing.T) *calcFixture {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.UpsertCatalog(context.Background(),
		[]models.Service{
			{ID: haircut, Name: "Haircut", DurationMinutes: 60, BasePrice: 4500, IsActive: true},
			{ID: colour, Name: "Colour", DurationMinutes: 120, BasePrice: 9000, IsActive: true},
		},
		[]models.Staff{{
			ID: staffID, Name: "Alex", ServiceIDs: []int64{haircut}, IsActive: true,
			Availability: []models.AvailabilityWindow{
				{DayOfWeek: time.Monday, StartTime: "09:00", EndTime: "18:00"},
			},
		}},
	))

	f := &calcFixture{db: db, now: at(7, 0)}
	clock := domain.ClockFunc(func() time.Time { return f.now })
	f.calc = NewCalculator(db, db, db, tz.MustPacific(), clock, models.SlotInterval, &logger)
	return f
}

func (f *calcFixture) hold(t *testing.T, session string, start time.Time, created time.Time) *models.Hold {
	t.Helper()
	h := &models.Hold{
		ID: uuid.NewString(), SessionID: session, StaffID: staffID, ServiceID: haircut,
		SlotStart: start.UTC(), SlotEnd: start.Add(time.Hour).UTC(),
		CreatedAt: created.UTC(), ExpiresAt: created.Add(models.HoldTTL).UTC(),
	}
	_, err := f.db.InsertHold(context.Background(), h, created)
	require.NoError(t, err)
	return h
}

func TestCalculate(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyDay", func(t *testing.T) {
		f := newCalcFixture(t)
		res, err := f.calc.Calculate(ctx, staffID, haircut, monday)
		require.NoError(t, err)
		assert.Equal(t, "Alex", res.StaffName)
		assert.Equal(t, "Haircut", res.ServiceName)
		assert.Len(t, res.Slots, 36)
		assert.Equal(t, "9:00 AM", res.Slots[0].LocalTime)
		assert.True(t, res.Slots[0].Start.Equal(at(9, 0)))
	})

	t.Run("BookedAndHeld", func(t *testing.T) {
		f := newCalcFixture(t)
		booked := f.hold(t, "s1", at(10, 0), f.now)
		require.NoError(t, f.db.ConvertHold(ctx, booked.ID, &models.Booking{CustomerName: "Kim", CustomerPhone: "1"}, f.now))
		f.hold(t, "s2", at(14, 0), f.now)

		res, err := f.calc.Calculate(ctx, staffID, haircut, monday)
		require.NoError(t, err)
		slots := byStart(res.Slots)

		for _, m := range []int{0, 15, 30, 45} {
			assert.False(t, slots[at(10, m).Unix()].Available)
			assert.Equal(t, models.ReasonBooked, slots[at(10, m).Unix()].Reason)
			assert.Equal(t, models.ReasonHeld, slots[at(14, m).Unix()].Reason)
		}
		assert.True(t, slots[at(11, 0).Unix()].Available)
	})

	t.Run("ExpiredHoldIgnored", func(t *testing.T) {
		f := newCalcFixture(t)
		f.hold(t, "s1", at(14, 0), f.now)

		f.now = f.now.Add(models.HoldTTL)
		res, err := f.calc.Calculate(ctx, staffID, haircut, monday)
		require.NoError(t, err)
		assert.True(t, byStart(res.Slots)[at(14, 0).Unix()].Available)
	})

	t.Run("PreviousDayOverrun", func(t *testing.T) {
		f := newCalcFixture(t)
		// walk-in booked from Sunday 23:30 through Monday 09:30
		_, err := f.db.ExecContext(ctx, `
			INSERT INTO bookings (staff_id, service_id, slot_start, slot_end, customer_name, customer_phone,
				final_price, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, 'Late', '0', 0, 'confirmed', ?, ?)`,
			staffID, haircut,
			time.Date(2025, 3, 10, 6, 30, 0, 0, time.UTC).Format("2006-01-02T15:04:05.000000000Z"),
			time.Date(2025, 3, 10, 16, 30, 0, 0, time.UTC).Format("2006-01-02T15:04:05.000000000Z"),
			"2025-03-01T00:00:00.000000000Z", "2025-03-01T00:00:00.000000000Z")
		require.NoError(t, err)

		res, err := f.calc.Calculate(ctx, staffID, haircut, monday)
		require.NoError(t, err)
		slots := byStart(res.Slots)
		assert.Equal(t, models.ReasonBooked, slots[at(9, 15).Unix()].Reason)
		assert.True(t, slots[at(9, 30).Unix()].Available)
	})

	t.Run("PastSlotsDropped", func(t *testing.T) {
		f := newCalcFixture(t)
		f.now = at(12, 0)
		res, err := f.calc.Calculate(ctx, staffID, haircut, monday)
		require.NoError(t, err)
		assert.Len(t, res.Slots, 23)
	})

	t.Run("DayOff", func(t *testing.T) {
		f := newCalcFixture(t)
		res, err := f.calc.Calculate(ctx, staffID, haircut, sunday)
		require.NoError(t, err)
		assert.Empty(t, res.Slots)
		assert.Equal(t, "Alex does not work on Sunday", res.Message)
	})

	t.Run("Errors", func(t *testing.T) {
		f := newCalcFixture(t)

		_, err := f.calc.Calculate(ctx, 99, haircut, monday)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = f.calc.Calculate(ctx, staffID, 99, monday)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = f.calc.Calculate(ctx, staffID, colour, monday)
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = f.calc.Calculate(ctx, staffID, haircut, "10/03/2025")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestFits(t *testing.T) {
	f := newCalcFixture(t)
	staff, err := f.db.GetStaff(context.Background(), staffID)
	require.NoError(t, err)

	assert.True(t, f.calc.Fits(staff, at(9, 0), time.Hour))
	assert.True(t, f.calc.Fits(staff, at(17, 0), time.Hour))
	assert.False(t, f.calc.Fits(staff, at(17, 15), time.Hour), "runs past closing")
	assert.False(t, f.calc.Fits(staff, at(9, 10), time.Hour), "off grid")
	assert.False(t, f.calc.Fits(staff, at(8, 45), time.Hour), "before opening")
	assert.False(t, f.calc.Fits(staff, at(10, 0).Add(-24*time.Hour), time.Hour), "day off")
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) GetStaff(ctx context.Context, id int64) (*models.Staff, error) {
	args := m.Called(ctx, id)
	st, _ := args.Get(0).(*models.Staff)
	return st, args.Error(1)
}

func (m *mockCatalog) GetService(ctx context.Context, id int64) (*models.Service, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*models.Service)
	return s, args.Error(1)
}

func (m *mockCatalog) ListServices(ctx context.Context) ([]*models.Service, error) {
	args := m.Called(ctx)
	return nil, args.Error(1)
}

func (m *mockCatalog) ListStaff(ctx context.Context) ([]*models.Staff, error) {
	args := m.Called(ctx)
	return nil, args.Error(1)
}

type failingReader struct{}

func (failingReader) ListConfirmedBookings(context.Context, int64, time.Time, time.Time) ([]*models.Booking, error) {
	return nil, errors.New("disk I/O error")
}

func (failingReader) ListActiveHolds(context.Context, int64, time.Time, time.Time, time.Time) ([]*models.Hold, error) {
	return nil, nil
}

func TestCalculate_StorageFailure(t *testing.T) {
	logger := zerolog.Nop()
	catalog := &mockCatalog{}
	catalog.On("GetStaff", mock.Anything, staffID).Return(&models.Staff{
		ID: staffID, Name: "Alex", IsActive: true, ServiceIDs: []int64{haircut},
		Availability: []models.AvailabilityWindow{{DayOfWeek: time.Monday, StartTime: "09:00", EndTime: "12:00"}},
	}, nil)
	catalog.On("GetService", mock.Anything, haircut).Return(&models.Service{ID: haircut, Name: "Haircut", DurationMinutes: 60, IsActive: true}, nil)

	calc := NewCalculator(catalog, failingReader{}, failingReader{}, tz.MustPacific(),
		domain.ClockFunc(func() time.Time { return dayBefore }), 0, &logger)

	_, err := calc.Calculate(context.Background(), staffID, haircut, monday)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	catalog.AssertExpectations(t)
}

type emptyReader struct{}

func (emptyReader) ListConfirmedBookings(context.Context, int64, time.Time, time.Time) ([]*models.Booking, error) {
	return nil, nil
}

func (emptyReader) ListActiveHolds(context.Context, int64, time.Time, time.Time, time.Time) ([]*models.Hold, error) {
	return nil, nil
}

func calculatorFor(t *testing.T, staff *models.Staff, now time.Time) *Calculator {
	t.Helper()
	logger := zerolog.Nop()
	catalog := &mockCatalog{}
	catalog.On("GetStaff", mock.Anything, staff.ID).Return(staff, nil)
	catalog.On("GetService", mock.Anything, haircut).Return(&models.Service{ID: haircut, Name: "Haircut", DurationMinutes: 60, IsActive: true}, nil)
	return NewCalculator(catalog, emptyReader{}, emptyReader{}, tz.MustPacific(),
		domain.ClockFunc(func() time.Time { return now }), 0, &logger)
}

func TestCalculate_WindowInSpringForwardGap(t *testing.T) {
	// clocks jump from 02:00 PST to 03:00 PDT on 2026-03-08
	staff := &models.Staff{
		ID: staffID, Name: "Alex", IsActive: true, ServiceIDs: []int64{haircut},
		Availability: []models.AvailabilityWindow{{DayOfWeek: time.Sunday, StartTime: "02:00", EndTime: "06:00"}},
	}
	calc := calculatorFor(t, staff, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	opening := time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC)

	res, err := calc.Calculate(context.Background(), staffID, haircut, "2026-03-08")
	require.NoError(t, err)
	require.Len(t, res.Slots, 12)
	assert.True(t, res.Slots[0].Start.Equal(opening))
	assert.Equal(t, "3:00 AM", res.Slots[0].LocalTime)
	assert.True(t, res.Slots[0].Available)
	assert.True(t, res.Slots[8].Available, "5:00 AM still finishes by 6:00 AM")
	assert.Equal(t, models.ReasonClosing, res.Slots[9].Reason)

	assert.True(t, calc.Fits(staff, opening, time.Hour))
	assert.True(t, calc.Fits(staff, opening.Add(2*time.Hour), time.Hour))
	assert.False(t, calc.Fits(staff, opening.Add(-15*time.Minute), time.Hour))
}

func TestCalculate_OverlappingWindowsMerged(t *testing.T) {
	staff := &models.Staff{
		ID: staffID, Name: "Alex", IsActive: true, ServiceIDs: []int64{haircut},
		Availability: []models.AvailabilityWindow{
			{DayOfWeek: time.Monday, StartTime: "11:00", EndTime: "14:00"},
			{DayOfWeek: time.Monday, StartTime: "09:00", EndTime: "12:00"},
		},
	}
	calc := calculatorFor(t, staff, dayBefore)

	res, err := calc.Calculate(context.Background(), staffID, haircut, monday)
	require.NoError(t, err)
	require.Len(t, res.Slots, 20)
	assert.True(t, res.Slots[0].Start.Equal(at(9, 0)))
	for i := 1; i < len(res.Slots); i++ {
		assert.True(t, res.Slots[i].Start.After(res.Slots[i-1].Start), "slot %d out of order", i)
	}
	assert.True(t, byStart(res.Slots)[at(11, 30).Unix()].Available)
	assert.True(t, calc.Fits(staff, at(11, 30), time.Hour))
}

func TestMergeWindows(t *testing.T) {
	w := func(from, to int) Window { return Window{Start: at(from, 0), End: at(to, 0)} }

	tests := []struct {
		name string
		in   []Window
		want []Window
	}{
		{"single", []Window{w(9, 12)}, []Window{w(9, 12)}},
		{"overlap", []Window{w(9, 12), w(11, 14)}, []Window{w(9, 14)}},
		{"contained", []Window{w(9, 18), w(10, 11)}, []Window{w(9, 18)}},
		{"touching kept apart", []Window{w(9, 12), w(12, 14)}, []Window{w(9, 12), w(12, 14)}},
		{"split shift", []Window{w(9, 12), w(14, 18)}, []Window{w(9, 12), w(14, 18)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mergeWindows(tt.in))
		})
	}
}
