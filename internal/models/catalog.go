package models

import (
	"fmt"
	"slices"
	"time"
)

type Service struct {
	ID              int64  `yaml:"id" json:"id"`
	Name            string `yaml:"name" json:"name"`
	DurationMinutes int    `yaml:"duration_minutes" json:"duration_minutes"`
	BasePrice       int64  `yaml:"base_price" json:"base_price"`
	IsActive        bool   `yaml:"is_active" json:"is_active"`
}

func (s *Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

type Staff struct {
	ID           int64                `yaml:"id" json:"id"`
	Name         string               `yaml:"name" json:"name"`
	ServiceIDs   []int64              `yaml:"services" json:"service_ids"`
	Availability []AvailabilityWindow `yaml:"availability" json:"availability"`
	IsActive     bool                 `yaml:"is_active" json:"is_active"`
}

func (s *Staff) CanPerform(serviceID int64) bool {
	return slices.Contains(s.ServiceIDs, serviceID)
}

// WindowsFor returns the working windows for the weekday, ordered by start time.
func (s *Staff) WindowsFor(day time.Weekday) []AvailabilityWindow {
	var out []AvailabilityWindow
	for _, w := range s.Availability {
		if w.DayOfWeek == day {
			out = append(out, w)
		}
	}
	slices.SortFunc(out, func(a, b AvailabilityWindow) int {
		if a.StartTime < b.StartTime {
			return -1
		}
		if a.StartTime > b.StartTime {
			return 1
		}
		return 0
	})
	return out
}

// AvailabilityWindow is a weekly working interval in business-local wall-clock time.
type AvailabilityWindow struct {
	DayOfWeek time.Weekday `yaml:"day_of_week" json:"day_of_week"`
	StartTime string       `yaml:"start_time" json:"start_time"`
	EndTime   string       `yaml:"end_time" json:"end_time"`
}

func (w AvailabilityWindow) Validate() error {
	if w.DayOfWeek < time.Sunday || w.DayOfWeek > time.Saturday {
		return fmt.Errorf("invalid day of week %d", w.DayOfWeek)
	}
	start, err := time.Parse(ClockLayout, w.StartTime)
	if err != nil {
		return fmt.Errorf("invalid start time %q: %w", w.StartTime, err)
	}
	end, err := time.Parse(ClockLayout, w.EndTime)
	if err != nil {
		return fmt.Errorf("invalid end time %q: %w", w.EndTime, err)
	}
	if !end.After(start) {
		return fmt.Errorf("window %s-%s ends before it starts", w.StartTime, w.EndTime)
	}
	return nil
}
