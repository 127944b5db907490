package main

import (
	"fmt"
	"os"
	"time"

	"salonbook/internal/models"

	"gopkg.in/yaml.v2"
)

type catalogFile struct {
	Services []models.Service `yaml:"services"`
	Staff    []models.Staff   `yaml:"staff"`
}

// loadCatalog reads the salon's services and staff schedules.
func loadCatalog(path string) (*catalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var catalog catalogFile
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := catalog.validate(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return &catalog, nil
}

func (c *catalogFile) validate() error {
	services := make(map[int64]bool, len(c.Services))
	for _, s := range c.Services {
		if s.ID <= 0 || s.Name == "" {
			return fmt.Errorf("service %d needs an id and a name", s.ID)
		}
		if s.DurationMinutes <= 0 {
			return fmt.Errorf("service %q: duration must be positive", s.Name)
		}
		if services[s.ID] {
			return fmt.Errorf("duplicate service id %d", s.ID)
		}
		services[s.ID] = true
	}

	seen := make(map[int64]bool, len(c.Staff))
	for _, st := range c.Staff {
		if st.ID <= 0 || st.Name == "" {
			return fmt.Errorf("staff %d needs an id and a name", st.ID)
		}
		if seen[st.ID] {
			return fmt.Errorf("duplicate staff id %d", st.ID)
		}
		seen[st.ID] = true

		for _, id := range st.ServiceIDs {
			if !services[id] {
				return fmt.Errorf("staff %q: unknown service %d", st.Name, id)
			}
		}
		for _, w := range st.Availability {
			if err := w.Validate(); err != nil {
				return fmt.Errorf("staff %q: %w", st.Name, err)
			}
		}
		if err := checkOverlaps(&st); err != nil {
			return fmt.Errorf("staff %q: %w", st.Name, err)
		}
	}
	return nil
}

// checkOverlaps rejects two windows on the same weekday that share any minute.
// Windows that only touch are allowed.
func checkOverlaps(st *models.Staff) error {
	for day := time.Sunday; day <= time.Saturday; day++ {
		windows := st.WindowsFor(day)
		for i := range windows {
			for j := i + 1; j < len(windows); j++ {
				a, b := windows[i], windows[j]
				if clockMinutes(a.StartTime) < clockMinutes(b.EndTime) && clockMinutes(b.StartTime) < clockMinutes(a.EndTime) {
					return fmt.Errorf("%s windows %s-%s and %s-%s overlap",
						day, a.StartTime, a.EndTime, b.StartTime, b.EndTime)
				}
			}
		}
	}
	return nil
}

func clockMinutes(value string) int {
	t, err := time.Parse(models.ClockLayout, value)
	if err != nil {
		return 0
	}
	return t.Hour()*60 + t.Minute()
}
