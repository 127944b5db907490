package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"salonbook/internal/models"
)

const holdColumns = `id, session_id, staff_id, service_id, slot_start, slot_end, created_at, expires_at`

// InsertHold places the hold in a single immediate transaction and returns how many
// earlier holds of the same session it superseded. Those are removed only when the
// insert itself succeeds.
func (db *DB) InsertHold(ctx context.Context, hold *models.Hold, now time.Time) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	start, end, nowStr := formatTime(hold.SlotStart), formatTime(hold.SlotEnd), formatTime(now)

	// 1. Expired rows for the key no longer count and must not trip the unique index
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM holds WHERE staff_id = ? AND slot_start = ? AND expires_at <= ?`,
		hold.StaffID, start, nowStr); err != nil {
		return 0, fmt.Errorf("failed to purge expired hold in tx: %w", err)
	}

	// 2. Overlap with confirmed bookings
	var booked int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE staff_id = ? AND status = ? AND slot_start < ? AND slot_end > ?`,
		hold.StaffID, models.StatusConfirmed, end, start).Scan(&booked); err != nil {
		return 0, fmt.Errorf("failed to check bookings in tx: %w", err)
	}
	if booked > 0 {
		return 0, ErrSlotTaken
	}

	// 3. Overlap with active holds of other sessions
	var held int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM holds
		WHERE staff_id = ? AND session_id <> ? AND expires_at > ? AND slot_start < ? AND slot_end > ?`,
		hold.StaffID, hold.SessionID, nowStr, end, start).Scan(&held); err != nil {
		return 0, fmt.Errorf("failed to check holds in tx: %w", err)
	}
	if held > 0 {
		return 0, ErrSlotTaken
	}

	// 4. Supersede the session's previous holds
	res, err := tx.ExecContext(ctx, `DELETE FROM holds WHERE session_id = ?`, hold.SessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to release previous session holds in tx: %w", err)
	}
	superseded, _ := res.RowsAffected()

	// 5. Insert; the unique index is the final arbiter
	_, err = tx.ExecContext(ctx, `INSERT INTO holds (`+holdColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		hold.ID, hold.SessionID, hold.StaffID, hold.ServiceID,
		start, end, formatTime(hold.CreatedAt), formatTime(hold.ExpiresAt))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrSlotTaken
		}
		return 0, fmt.Errorf("failed to insert hold in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return 0, ErrSlotTaken
		}
		return 0, fmt.Errorf("failed to commit hold: %w", err)
	}
	return superseded, nil
}

// GetHold returns the stored row whether or not it has expired.
func (db *DB) GetHold(ctx context.Context, id string) (*models.Hold, error) {
	row := db.QueryRowContext(ctx, `SELECT `+holdColumns+` FROM holds WHERE id = ?`, id)
	hold, err := scanHold(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrHoldNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hold: %w", err)
	}
	return hold, nil
}

// GetLatestHoldBySession returns the newest row for the session, expired or not.
func (db *DB) GetLatestHoldBySession(ctx context.Context, sessionID string) (*models.Hold, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+holdColumns+` FROM holds
		WHERE session_id = ? ORDER BY created_at DESC LIMIT 1`, sessionID)
	hold, err := scanHold(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrHoldNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session hold: %w", err)
	}
	return hold, nil
}

// DeleteHold reports whether a row was removed.
func (db *DB) DeleteHold(ctx context.Context, id string) (bool, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM holds WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete hold: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

func (db *DB) DeleteExpiredHolds(ctx context.Context, now time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM holds WHERE expires_at <= ?`, formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired holds: %w", err)
	}
	return res.RowsAffected()
}

// ListActiveHolds returns holds of the staff member that are unexpired at now and
// whose interval intersects [from, to).
func (db *DB) ListActiveHolds(ctx context.Context, staffID int64, from, to, now time.Time) ([]*models.Hold, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+holdColumns+` FROM holds
		WHERE staff_id = ? AND expires_at > ? AND slot_start < ? AND slot_end > ?
		ORDER BY slot_start`,
		staffID, formatTime(now), formatTime(to), formatTime(from))
	if err != nil {
		return nil, fmt.Errorf("failed to list active holds: %w", err)
	}
	defer rows.Close()

	var holds []*models.Hold
	for rows.Next() {
		hold, err := scanHold(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hold: %w", err)
		}
		holds = append(holds, hold)
	}
	return holds, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHold(row rowScanner) (*models.Hold, error) {
	var (
		h                                models.Hold
		start, end, createdAt, expiresAt string
	)
	if err := row.Scan(&h.ID, &h.SessionID, &h.StaffID, &h.ServiceID,
		&start, &end, &createdAt, &expiresAt); err != nil {
		return nil, err
	}

	var err error
	if h.SlotStart, err = parseTime(start); err != nil {
		return nil, err
	}
	if h.SlotEnd, err = parseTime(end); err != nil {
		return nil, err
	}
	if h.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if h.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	return &h, nil
}
