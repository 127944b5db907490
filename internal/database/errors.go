package database

import (
	"errors"
	"fmt"

	"salonbook/internal/domain"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrStaffNotFound   = fmt.Errorf("staff %w", domain.ErrNotFound)
	ErrServiceNotFound = fmt.Errorf("service %w", domain.ErrNotFound)
	ErrHoldNotFound    = fmt.Errorf("hold %w", domain.ErrNotFound)
	ErrBookingNotFound = fmt.Errorf("booking %w", domain.ErrNotFound)

	// ErrSlotTaken is returned when a hold or booking would overlap an active
	// hold or a confirmed booking of the same staff member.
	ErrSlotTaken = fmt.Errorf("%w: overlaps an existing hold or booking", domain.ErrSlotUnavailable)
)

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
