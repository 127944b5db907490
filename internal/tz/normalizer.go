// Package tz converts between stored UTC instants and the salon's wall clock.
package tz

import (
	"errors"
	"fmt"
	"strings"
	"time"

	// zoneinfo is not guaranteed inside slim containers
	_ "time/tzdata"

	"salonbook/internal/models"
)

var (
	ErrInvalidLocalTime     = errors.New("invalid local date or time")
	ErrNonexistentLocalTime = errors.New("local time does not exist on this date")
)

const (
	displayLayout = "3:04 PM"
	clockSeconds  = "15:04:05"
)

// LocalTime is an instant rendered on the business wall clock.
type LocalTime struct {
	Date      string // 2006-01-02
	TimeOfDay string // 15:04, or 15:04:05 when seconds are set
	Display   string // 3:04 PM
	Weekday   time.Weekday
	Offset    int // seconds east of UTC in effect at the instant
}

// Normalizer is bound to a single IANA zone. The UTC offset is resolved per instant,
// so daylight saving transitions are handled by the zone database.
type Normalizer struct {
	loc *time.Location
}

func New(name string) (*Normalizer, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return &Normalizer{loc: loc}, nil
}

// MustPacific panics only if the embedded zone database is broken.
func MustPacific() *Normalizer {
	n, err := New(models.BusinessTimezone)
	if err != nil {
		panic(err)
	}
	return n
}

func (n *Normalizer) Location() *time.Location {
	return n.loc
}

func (n *Normalizer) ToLocal(instant time.Time) LocalTime {
	local := instant.In(n.loc)
	clock := models.ClockLayout
	if local.Second() != 0 {
		clock = clockSeconds
	}
	return LocalTime{
		Date:      local.Format(models.DateLayout),
		TimeOfDay: local.Format(clock),
		Display:   local.Format(displayLayout),
		Weekday:   local.Weekday(),
		Offset:    offsetOf(local),
	}
}

// Display formats the instant as a short wall-clock time, e.g. "10:15 AM".
func (n *Normalizer) Display(instant time.Time) string {
	return instant.In(n.loc).Format(displayLayout)
}

// ToInstant resolves a wall-clock date and time of day to a UTC instant.
// During the repeated fall-back hour the earlier (daylight) instant is returned.
// Times skipped by the spring-forward gap are rejected.
func (n *Normalizer) ToInstant(date, timeOfDay string) (time.Time, error) {
	day, err := n.ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}

	clock, err := parseClock(timeOfDay)
	if err != nil {
		return time.Time{}, err
	}

	local := time.Date(day.Year(), day.Month(), day.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, n.loc)

	// time.Date normalises nonexistent wall times into a neighbouring hour
	if local.Hour() != clock.Hour() || local.Minute() != clock.Minute() {
		return time.Time{}, fmt.Errorf("%w: %s %s", ErrNonexistentLocalTime, date, timeOfDay)
	}

	return earliest(local).UTC(), nil
}

// Instant reverses ToLocal exactly. The carried offset picks the right reading of
// a repeated fall-back hour; a zero-value Offset or one the zone never used at that
// wall time falls back to ToInstant.
func (n *Normalizer) Instant(lt LocalTime) (time.Time, error) {
	day, err := n.ParseDate(lt.Date)
	if err != nil {
		return time.Time{}, err
	}
	clock, err := parseClock(lt.TimeOfDay)
	if err != nil {
		return time.Time{}, err
	}

	fixed := time.Date(day.Year(), day.Month(), day.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, time.FixedZone("", lt.Offset))
	local := fixed.In(n.loc)
	if offsetOf(local) == lt.Offset && sameWall(local, fixed) {
		return fixed.UTC(), nil
	}
	return n.ToInstant(lt.Date, lt.TimeOfDay)
}

// Resolve is ToInstant for configured wall times such as opening hours. A time
// inside the spring-forward gap moves to the first instant after the gap.
func (n *Normalizer) Resolve(date, timeOfDay string) (time.Time, error) {
	instant, err := n.ToInstant(date, timeOfDay)
	if !errors.Is(err, ErrNonexistentLocalTime) {
		return instant, err
	}

	day, _ := n.ParseDate(date)
	clock, _ := parseClock(timeOfDay)
	want := time.Date(day.Year(), day.Month(), day.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, time.UTC)
	local := time.Date(day.Year(), day.Month(), day.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, n.loc)

	// time.Date lands on either side of the gap depending on the zone
	start, end := local.ZoneBounds()
	if wallOf(local).Before(want) {
		return end.UTC(), nil
	}
	return start.UTC(), nil
}

// ParseDate returns local midnight of the given calendar date.
func (n *Normalizer) ParseDate(date string) (time.Time, error) {
	day, err := time.ParseInLocation(models.DateLayout, strings.TrimSpace(date), n.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidLocalTime, date)
	}
	return day, nil
}

// DayBounds returns [local midnight, next local midnight) in UTC.
// The span is 23 or 25 hours on transition dates.
func (n *Normalizer) DayBounds(date string) (start, end time.Time, err error) {
	day, err := n.ParseDate(date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	next := time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, n.loc)
	return day.UTC(), next.UTC(), nil
}

// Today returns the business-local calendar date of now.
func (n *Normalizer) Today(now time.Time) string {
	return now.In(n.loc).Format(models.DateLayout)
}

func parseClock(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{models.ClockLayout, clockSeconds} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: time %q", ErrInvalidLocalTime, value)
}

func offsetOf(t time.Time) int {
	_, offset := t.Zone()
	return offset
}

// wallOf reads t's wall clock as if it were UTC, for comparing readings across zones.
func wallOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

func sameWall(a, b time.Time) bool {
	return wallOf(a).Equal(wallOf(b))
}

// earliest steps back over a fall-back transition when the same wall clock
// reading also occurred one offset-change earlier.
func earliest(local time.Time) time.Time {
	_, offset := local.Zone()
	probe := local.Add(-time.Hour)
	if _, prevOffset := probe.Zone(); prevOffset > offset {
		candidate := local.Add(-time.Duration(prevOffset-offset) * time.Second)
		if candidate.Hour() == local.Hour() && candidate.Minute() == local.Minute() {
			return candidate
		}
	}
	return local
}
