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

func TestCatalog(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	t.Run("GetStaff", func(t *testing.T) {
		st, err := db.GetStaff(ctx, testStaffID)
		require.NoError(t, err)
		assert.Equal(t, "Alex", st.Name)
		assert.True(t, st.IsActive)
		assert.ElementsMatch(t, []int64{testServiceID, shortService}, st.ServiceIDs)
		require.Len(t, st.Availability, 1)
		assert.Equal(t, time.Monday, st.Availability[0].DayOfWeek)
	})

	t.Run("GetService", func(t *testing.T) {
		s, err := db.GetService(ctx, testServiceID)
		require.NoError(t, err)
		assert.Equal(t, 60*time.Minute, s.Duration())
		assert.Equal(t, int64(4500), s.BasePrice)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := db.GetStaff(ctx, 999)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = db.GetService(ctx, 999)
		assert.ErrorIs(t, err, ErrServiceNotFound)
	})

	t.Run("UpsertReplacesLinks", func(t *testing.T) {
		err := db.UpsertCatalog(ctx, nil, []models.Staff{{
			ID:         testStaffID,
			Name:       "Alex R.",
			ServiceIDs: []int64{shortService},
			IsActive:   true,
			Availability: []models.AvailabilityWindow{
				{DayOfWeek: time.Tuesday, StartTime: "10:00", EndTime: "16:00"},
				{DayOfWeek: time.Tuesday, StartTime: "17:00", EndTime: "19:00"},
			},
		}})
		require.NoError(t, err)

		st, err := db.GetStaff(ctx, testStaffID)
		require.NoError(t, err)
		assert.Equal(t, "Alex R.", st.Name)
		assert.Equal(t, []int64{shortService}, st.ServiceIDs)
		assert.Len(t, st.WindowsFor(time.Tuesday), 2)
		assert.Empty(t, st.WindowsFor(time.Monday))
	})

	t.Run("UnknownServiceRejected", func(t *testing.T) {
		err := db.UpsertCatalog(ctx, nil, []models.Staff{{ID: 2, Name: "Sam", ServiceIDs: []int64{404}}})
		assert.Error(t, err)
		_, err = db.GetStaff(ctx, 2)
		assert.ErrorIs(t, err, ErrStaffNotFound)
	})

	t.Run("List", func(t *testing.T) {
		services, err := db.ListServices(ctx)
		require.NoError(t, err)
		assert.Len(t, services, 2)

		staff, err := db.ListStaff(ctx)
		require.NoError(t, err)
		require.Len(t, staff, 1)
		assert.NotEmpty(t, staff[0].Availability)
	})
}
