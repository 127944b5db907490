package metrics

import (
	"testing"
	"time"

	"salonbook/internal/events"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("/holds", 201)
		AddPurged(3)
		AddPurged(0)
		ObserveAvailability(15 * time.Millisecond)
	})
	assert.Equal(t, float64(1), counterValue(t, httpRequests.WithLabelValues("/holds", "201")))
}

func TestSubscribe(t *testing.T) {
	bus := events.NewEventBus()
	Subscribe(bus)
	Subscribe(nil)

	before := counterValue(t, holdEvents.WithLabelValues("conflict"))
	require.NoError(t, bus.PublishJSON(events.EventHoldConflict, events.HoldEventPayload{HoldID: "h1"}))
	assert.Equal(t, before+1, counterValue(t, holdEvents.WithLabelValues("conflict")))

	beforeBooked := counterValue(t, conversions.WithLabelValues("confirmed"))
	require.NoError(t, bus.PublishJSON(events.EventBookingCreated, events.BookingEventPayload{BookingID: 7}))
	assert.Equal(t, beforeBooked+1, counterValue(t, conversions.WithLabelValues("confirmed")))
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}
