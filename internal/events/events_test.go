package events

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestPublishHoldEvent(t *testing.T) {
	bus := NewEventBus()

	var got []*Event
	bus.Subscribe(EventHoldCreated, func(e *Event) error {
		got = append(got, e)
		return nil
	})

	slot := time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC)
	if err := bus.PublishJSON(EventHoldCreated, HoldEventPayload{
		HoldID: "h1", SessionID: "s1", StaffID: 3, ServiceID: 10, SlotStart: slot,
	}); err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(got))
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be stamped")
	}

	var decoded HoldEventPayload
	if err := json.Unmarshal(got[0].Payload, &decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if decoded.HoldID != "h1" || decoded.StaffID != 3 || !decoded.SlotStart.Equal(slot) {
		t.Errorf("unexpected payload %+v", decoded)
	}
}

func TestSubscribersAreScopedByType(t *testing.T) {
	bus := NewEventBus()
	counts := map[string]int{}
	for _, et := range AllTypes {
		bus.Subscribe(et, func(e *Event) error { counts[e.Type]++; return nil })
	}
	bus.Subscribe(EventBookingCreated, func(e *Event) error { counts["second"]++; return nil })

	bus.Publish(&Event{Type: EventBookingCreated})
	bus.Publish(&Event{Type: "not_a_domain_event"})

	if counts[EventBookingCreated] != 1 || counts["second"] != 1 {
		t.Errorf("expected both booking handlers once, got %v", counts)
	}
	if counts[EventHoldCreated] != 0 {
		t.Errorf("hold handler must not see booking events, got %v", counts)
	}
}

func TestPublishJSONEdgeCases(t *testing.T) {
	t.Run("NilBus", func(t *testing.T) {
		var bus *EventBus
		if err := bus.PublishJSON(EventHoldCreated, HoldEventPayload{HoldID: "h1"}); err != nil {
			t.Errorf("nil bus should ignore publish, got %v", err)
		}
	})

	t.Run("HandlerErrorIgnored", func(t *testing.T) {
		bus := NewEventBus()
		var calls int
		bus.Subscribe(EventHoldReleased, func(_ *Event) error { return errors.New("sink down") })
		bus.Subscribe(EventHoldReleased, func(_ *Event) error { calls++; return nil })

		if err := bus.PublishJSON(EventHoldReleased, HoldEventPayload{HoldID: "h1"}); err != nil {
			t.Fatalf("PublishJSON failed: %v", err)
		}
		if calls != 1 {
			t.Errorf("expected later handler to run despite earlier error, got %d calls", calls)
		}
	})

	t.Run("UnmarshalablePayload", func(t *testing.T) {
		if err := NewEventBus().PublishJSON(EventBookingCreated, make(chan int)); err == nil {
			t.Error("expected marshal error")
		}
	})
}
