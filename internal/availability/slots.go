package availability

import (
	"iter"
	"time"

	"salonbook/internal/models"
)

type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps treats both intervals as half-open: [a.Start,a.End) and [b.Start,b.End)
// intersect iff a.Start < b.End && b.Start < a.End.
func (a Interval) Overlaps(b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

func overlapsAny(slot Interval, busy []Interval) bool {
	for _, b := range busy {
		if slot.Overlaps(b) {
			return true
		}
	}
	return false
}

// Candidates yields slot starts in [windowStart, windowEnd) at a fixed step.
// The sequence is finite and stops as soon as the consumer does.
func Candidates(windowStart, windowEnd time.Time, step time.Duration) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		if step <= 0 {
			return
		}
		for t := windowStart; t.Before(windowEnd); t = t.Add(step) {
			if !yield(t) {
				return
			}
		}
	}
}

// Window is one working interval of a staff member, resolved to instants.
type Window struct {
	Start time.Time
	End   time.Time
}

// Evaluate marks every candidate of the window. A slot occupies [start, start+duration);
// it is unavailable when it overlaps a booking, an active hold, or runs past closing.
// Candidates that are not strictly after now are skipped.
func Evaluate(w Window, step, duration time.Duration, booked, held []Interval, now time.Time) []models.Slot {
	var slots []models.Slot
	for start := range Candidates(w.Start, w.End, step) {
		if !start.After(now) {
			continue
		}

		slot := models.Slot{Start: start, End: start.Add(duration), Available: true}
		occupied := Interval{Start: slot.Start, End: slot.End}

		switch {
		case overlapsAny(occupied, booked):
			slot.Available, slot.Reason = false, models.ReasonBooked
		case overlapsAny(occupied, held):
			slot.Available, slot.Reason = false, models.ReasonHeld
		case slot.End.After(w.End):
			slot.Available, slot.Reason = false, models.ReasonClosing
		}
		slots = append(slots, slot)
	}
	return slots
}
