package database

import (
	"context"
	"testing"
	"time"

	"salonbook/internal/domain"
	"salonbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertHold(t *testing.T) {
	ctx := context.Background()
	created := tenAM.Add(-time.Hour)
	contact := func() *models.Booking {
		return &models.Booking{CustomerName: "Kim", CustomerPhone: "+1 555 0100", CustomerEmail: "kim@example.com", MarketingConsent: true}
	}

	t.Run("Success", func(t *testing.T) {
		db := setupTestDB(t)
		h := newHold("s1", testServiceID, tenAM, created)
		_, err := db.InsertHold(ctx, h, created)
		require.NoError(t, err)

		b := contact()
		require.NoError(t, db.ConvertHold(ctx, h.ID, b, created.Add(time.Minute)))
		assert.NotZero(t, b.ID)
		assert.Equal(t, models.StatusConfirmed, b.Status)
		assert.Equal(t, int64(4500), b.FinalPrice)
		assert.True(t, b.SlotEnd.Equal(tenAM.Add(time.Hour)))

		_, err = db.GetHold(ctx, h.ID)
		assert.ErrorIs(t, err, ErrHoldNotFound)

		stored, err := db.GetBooking(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "Kim", stored.CustomerName)
		assert.True(t, stored.MarketingConsent)
		assert.True(t, stored.SlotStart.Equal(tenAM))
	})

	t.Run("ExpiredHoldIsGone", func(t *testing.T) {
		db := setupTestDB(t)
		h := newHold("s1", testServiceID, tenAM, created)
		_, err := db.InsertHold(ctx, h, created)
		require.NoError(t, err)

		err = db.ConvertHold(ctx, h.ID, contact(), h.ExpiresAt)
		assert.ErrorIs(t, err, domain.ErrHoldGone)

		bookings, err := db.ListConfirmedBookings(ctx, testStaffID, tenAM.Add(-time.Hour), tenAM.Add(2*time.Hour))
		require.NoError(t, err)
		assert.Empty(t, bookings)

		_, err = db.GetHold(ctx, h.ID)
		assert.ErrorIs(t, err, ErrHoldNotFound)
	})

	t.Run("MissingHoldIsGone", func(t *testing.T) {
		db := setupTestDB(t)
		err := db.ConvertHold(ctx, "no-such-hold", contact(), created)
		assert.ErrorIs(t, err, domain.ErrHoldGone)
	})

	t.Run("ConflictKeepsHold", func(t *testing.T) {
		db := setupTestDB(t)
		h := newHold("s1", shortService, tenAM.Add(30*time.Minute), created)
		_, err := db.InsertHold(ctx, h, created)
		require.NoError(t, err)

		// a booking written behind the hold's back, e.g. by an admin
		_, err = db.ExecContext(ctx, `
			INSERT INTO bookings (staff_id, service_id, slot_start, slot_end, customer_name, customer_phone,
				final_price, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, 'Walk-in', '0', 0, 'confirmed', ?, ?)`,
			testStaffID, testServiceID, formatTime(tenAM), formatTime(tenAM.Add(time.Hour)),
			formatTime(created), formatTime(created))
		require.NoError(t, err)

		err = db.ConvertHold(ctx, h.ID, contact(), created.Add(time.Minute))
		assert.ErrorIs(t, err, ErrSlotTaken)

		_, err = db.GetHold(ctx, h.ID)
		assert.NoError(t, err)
	})
}

func TestBookingStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	created := tenAM.Add(-time.Hour)

	h := newHold("s1", testServiceID, tenAM, created)
	_, err := db.InsertHold(ctx, h, created)
	require.NoError(t, err)
	b := &models.Booking{CustomerName: "Kim", CustomerPhone: "555"}
	require.NoError(t, db.ConvertHold(ctx, h.ID, b, created))

	window := func() []*models.Booking {
		list, err := db.ListConfirmedBookings(ctx, testStaffID, tenAM.Add(30*time.Minute), tenAM.Add(45*time.Minute))
		require.NoError(t, err)
		return list
	}
	assert.Len(t, window(), 1)

	require.NoError(t, db.UpdateBookingStatus(ctx, b.ID, models.StatusCancelled))
	assert.Empty(t, window())

	// the slot can be held and booked again
	again := newHold("s2", testServiceID, tenAM, created)
	_, err = db.InsertHold(ctx, again, created)
	require.NoError(t, err)
	require.NoError(t, db.ConvertHold(ctx, again.ID, &models.Booking{CustomerName: "Lee", CustomerPhone: "556"}, created))

	// reinstating the first booking would double-book the slot
	err = db.UpdateBookingStatus(ctx, b.ID, models.StatusConfirmed)
	assert.ErrorIs(t, err, ErrSlotTaken)

	err = db.UpdateBookingStatus(ctx, 9999, models.StatusCancelled)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}
