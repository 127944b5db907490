package metrics

import "salonbook/internal/events"

// Subscribe feeds hold and booking counters from domain events.
func Subscribe(bus *events.EventBus) {
	if bus == nil {
		return
	}
	count := func(inc func(string), outcome string) events.EventHandler {
		return func(_ *events.Event) error {
			inc(outcome)
			return nil
		}
	}

	bus.Subscribe(events.EventHoldCreated, count(IncHold, "created"))
	bus.Subscribe(events.EventHoldConflict, count(IncHold, "conflict"))
	bus.Subscribe(events.EventHoldReleased, count(IncHold, "released"))
	bus.Subscribe(events.EventHoldSuperseded, count(IncHold, "superseded"))
	bus.Subscribe(events.EventBookingCreated, count(IncConversion, "confirmed"))
	bus.Subscribe(events.EventConversionRejected, count(IncConversion, "rejected"))
}
