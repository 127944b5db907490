package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"salonbook/internal/models"
)

// UpsertCatalog replaces the services and staff described in the catalog file.
// Rows absent from the file are left untouched so historical bookings keep their references.
func (db *DB) UpsertCatalog(ctx context.Context, services []models.Service, staff []models.Staff) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := formatTime(time.Now())

	for _, s := range services {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO services (id, name, duration_minutes, base_price, is_active, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				duration_minutes = excluded.duration_minutes,
				base_price = excluded.base_price,
				is_active = excluded.is_active,
				updated_at = excluded.updated_at`,
			s.ID, s.Name, s.DurationMinutes, s.BasePrice, s.IsActive, now)
		if err != nil {
			return fmt.Errorf("failed to upsert service %d: %w", s.ID, err)
		}
	}

	for _, st := range staff {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO staff (id, name, is_active, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				is_active = excluded.is_active,
				updated_at = excluded.updated_at`,
			st.ID, st.Name, st.IsActive, now)
		if err != nil {
			return fmt.Errorf("failed to upsert staff %d: %w", st.ID, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM staff_services WHERE staff_id = ?`, st.ID); err != nil {
			return fmt.Errorf("failed to reset staff services: %w", err)
		}
		for _, serviceID := range st.ServiceIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO staff_services (staff_id, service_id) VALUES (?, ?)`, st.ID, serviceID); err != nil {
				return fmt.Errorf("failed to link staff %d to service %d: %w", st.ID, serviceID, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM staff_availability WHERE staff_id = ?`, st.ID); err != nil {
			return fmt.Errorf("failed to reset staff availability: %w", err)
		}
		for _, w := range st.Availability {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO staff_availability (staff_id, day_of_week, start_time, end_time)
				VALUES (?, ?, ?, ?)`, st.ID, int(w.DayOfWeek), w.StartTime, w.EndTime); err != nil {
				return fmt.Errorf("failed to insert availability for staff %d: %w", st.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog: %w", err)
	}

	db.logger.Info().Int("services", len(services)).Int("staff", len(staff)).Msg("Catalog imported")
	return nil
}

func (db *DB) GetService(ctx context.Context, id int64) (*models.Service, error) {
	var s models.Service
	err := db.QueryRowContext(ctx,
		`SELECT id, name, duration_minutes, base_price, is_active FROM services WHERE id = ?`, id).
		Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.BasePrice, &s.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return &s, nil
}

func (db *DB) ListServices(ctx context.Context) ([]*models.Service, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, duration_minutes, base_price, is_active FROM services ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	var services []*models.Service
	for rows.Next() {
		s := &models.Service{}
		if err := rows.Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.BasePrice, &s.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

func (db *DB) GetStaff(ctx context.Context, id int64) (*models.Staff, error) {
	st := &models.Staff{}
	err := db.QueryRowContext(ctx, `SELECT id, name, is_active FROM staff WHERE id = ?`, id).
		Scan(&st.ID, &st.Name, &st.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStaffNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get staff: %w", err)
	}

	if err := db.loadStaffDetails(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (db *DB) ListStaff(ctx context.Context) ([]*models.Staff, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, is_active FROM staff ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}

	var staff []*models.Staff
	for rows.Next() {
		st := &models.Staff{}
		if err := rows.Scan(&st.ID, &st.Name, &st.IsActive); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan staff: %w", err)
		}
		staff = append(staff, st)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// details are loaded after rows is closed; :memory: databases have a single connection
	for _, st := range staff {
		if err := db.loadStaffDetails(ctx, st); err != nil {
			return nil, err
		}
	}
	return staff, nil
}

func (db *DB) loadStaffDetails(ctx context.Context, st *models.Staff) error {
	rows, err := db.QueryContext(ctx,
		`SELECT service_id FROM staff_services WHERE staff_id = ? ORDER BY service_id`, st.ID)
	if err != nil {
		return fmt.Errorf("failed to get staff services: %w", err)
	}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan staff service: %w", err)
		}
		st.ServiceIDs = append(st.ServiceIDs, id)
	}
	rows.Close()

	rows, err = db.QueryContext(ctx, `
		SELECT day_of_week, start_time, end_time FROM staff_availability
		WHERE staff_id = ? ORDER BY day_of_week, start_time`, st.ID)
	if err != nil {
		return fmt.Errorf("failed to get staff availability: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var w models.AvailabilityWindow
		var day int
		if err := rows.Scan(&day, &w.StartTime, &w.EndTime); err != nil {
			return fmt.Errorf("failed to scan availability: %w", err)
		}
		w.DayOfWeek = time.Weekday(day)
		st.Availability = append(st.Availability, w)
	}
	return rows.Err()
}
