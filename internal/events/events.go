package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventHoldCreated        = "hold_created"
	EventHoldConflict       = "hold_conflict"
	EventHoldReleased       = "hold_released"
	EventHoldSuperseded     = "hold_superseded"
	EventBookingCreated     = "booking_created"
	EventBookingCancelled   = "booking_cancelled"
	EventConversionRejected = "conversion_rejected"
)

// AllTypes lists every event the core publishes.
var AllTypes = []string{
	EventHoldCreated,
	EventHoldConflict,
	EventHoldReleased,
	EventHoldSuperseded,
	EventBookingCreated,
	EventBookingCancelled,
	EventConversionRejected,
}

// HoldEventPayload describes a hold transition for event consumers.
type HoldEventPayload struct {
	HoldID    string    `json:"hold_id"`
	SessionID string    `json:"session_id"`
	StaffID   int64     `json:"staff_id"`
	ServiceID int64     `json:"service_id"`
	SlotStart time.Time `json:"slot_start"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// BookingEventPayload describes the minimal booking snapshot for event consumers.
type BookingEventPayload struct {
	BookingID  int64     `json:"booking_id"`
	HoldID     string    `json:"hold_id,omitempty"`
	StaffID    int64     `json:"staff_id"`
	ServiceID  int64     `json:"service_id"`
	SlotStart  time.Time `json:"slot_start"`
	SlotEnd    time.Time `json:"slot_end"`
	Status     string    `json:"status"`
	FinalPrice int64     `json:"final_price"`
	Reason     string    `json:"reason,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type. Handler errors are dropped:
// telemetry never fails the operation that produced the event.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
