package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"salonbook/internal/domain"
	"salonbook/internal/models"
)

const bookingColumns = `id, staff_id, service_id, slot_start, slot_end, customer_name, customer_phone,
	customer_email, marketing_consent, final_price, status, created_at, updated_at`

// ConvertHold turns an unexpired hold into a confirmed booking. The booking row is
// written before the hold is deleted, inside one transaction, so the slot is never
// left unprotected. Slot, staff, service and price are taken from the hold; contact
// fields from the given booking, which is filled in on success.
func (db *DB) ConvertHold(ctx context.Context, holdID string, booking *models.Booking, now time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 1. Hold must exist and be unexpired
	hold, err := scanHold(tx.QueryRowContext(ctx, `SELECT `+holdColumns+` FROM holds WHERE id = ?`, holdID))
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("hold %s: %w", holdID, domain.ErrHoldGone)
	}
	if err != nil {
		return fmt.Errorf("failed to load hold in tx: %w", err)
	}
	if !hold.IsActive(now) {
		if _, err := tx.ExecContext(ctx, `DELETE FROM holds WHERE id = ?`, holdID); err == nil {
			_ = tx.Commit()
		}
		return fmt.Errorf("hold %s expired at %s: %w", holdID, hold.ExpiresAt.Format(time.RFC3339), domain.ErrHoldGone)
	}

	// 2. Re-check confirmed bookings over the whole interval
	start, end := formatTime(hold.SlotStart), formatTime(hold.SlotEnd)
	var booked int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE staff_id = ? AND status = ? AND slot_start < ? AND slot_end > ?`,
		hold.StaffID, models.StatusConfirmed, end, start).Scan(&booked); err != nil {
		return fmt.Errorf("failed to check bookings in tx: %w", err)
	}
	if booked > 0 {
		return ErrSlotTaken
	}

	var price int64
	if err := tx.QueryRowContext(ctx, `SELECT base_price FROM services WHERE id = ?`, hold.ServiceID).
		Scan(&price); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrServiceNotFound
		}
		return fmt.Errorf("failed to get service price in tx: %w", err)
	}

	// 3. Insert booking
	nowStr := formatTime(now)
	result, err := tx.ExecContext(ctx, `
		INSERT INTO bookings (
			staff_id, service_id, slot_start, slot_end, customer_name, customer_phone,
			customer_email, marketing_consent, final_price, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		hold.StaffID, hold.ServiceID, start, end,
		booking.CustomerName, booking.CustomerPhone, booking.CustomerEmail, booking.MarketingConsent,
		price, models.StatusConfirmed, nowStr, nowStr)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}

	// 4. Consume the hold
	if _, err := tx.ExecContext(ctx, `DELETE FROM holds WHERE id = ?`, holdID); err != nil {
		return fmt.Errorf("failed to delete hold in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	booking.ID = id
	booking.StaffID = hold.StaffID
	booking.ServiceID = hold.ServiceID
	booking.SlotStart = hold.SlotStart
	booking.SlotEnd = hold.SlotEnd
	booking.FinalPrice = price
	booking.Status = models.StatusConfirmed
	booking.CreatedAt = now.UTC()
	booking.UpdatedAt = now.UTC()
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

func (db *DB) UpdateBookingStatus(ctx context.Context, id int64, status string) error {
	res, err := db.ExecContext(ctx, `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`,
		status, formatTime(time.Now()), id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// ListConfirmedBookings returns confirmed bookings of the staff member whose interval
// intersects [from, to), including ones that started before from.
func (db *DB) ListConfirmedBookings(ctx context.Context, staffID int64, from, to time.Time) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE staff_id = ? AND status = ? AND slot_start < ? AND slot_end > ?
		ORDER BY slot_start`,
		staffID, models.StatusConfirmed, formatTime(to), formatTime(from))
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b                                models.Booking
		start, end, createdAt, updatedAt string
	)
	if err := row.Scan(&b.ID, &b.StaffID, &b.ServiceID, &start, &end,
		&b.CustomerName, &b.CustomerPhone, &b.CustomerEmail, &b.MarketingConsent,
		&b.FinalPrice, &b.Status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if b.SlotStart, err = parseTime(start); err != nil {
		return nil, err
	}
	if b.SlotEnd, err = parseTime(end); err != nil {
		return nil, err
	}
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}
