package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/railconnect/booking-ledger/internal/models"
)

// NextWaitlistNumber must be called while the scope's seat counter is locked; the lock is
// what keeps two bookings from drawing the same number.
func NextWaitlistNumber(tx WaitlistTx, key models.InventoryKey) (int, error) {
	count, err := tx.CountWaitlist(key)
	if err != nil {
		return 0, err
	}
	return count + 1, nil
}

// AppendWaitlist records the waitlist number handed to a booking
func AppendWaitlist(tx WaitlistTx, bookingID int64, coachClass string, number int) (*models.WaitlistEntry, error) {
	entry := &models.WaitlistEntry{
		BookingID:      bookingID,
		CoachClass:     coachClass,
		WaitlistNumber: number,
	}
	if err := tx.InsertWaitlistEntry(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// CountWaitlist counts every entry ever issued in the scope, cancelled bookings included,
// so numbers are never handed out twice.
func (t *pgLedgerTx) CountWaitlist(key models.InventoryKey) (int, error) {
	var count int
	err := t.tx.GetContext(t.ctx, &count, `
		SELECT COUNT(*)
		FROM waitlist w
		JOIN bookings b ON b.booking_id = w.booking_id
		WHERE b.train_id = $1 AND b.journey_date = $2 AND w.coach_type = $3`,
		key.TrainID, key.JourneyDate, key.CoachClass)
	if err != nil {
		return 0, fmt.Errorf("failed to count waitlist %s: %w", key, err)
	}
	return count, nil
}

func (t *pgLedgerTx) InsertWaitlistEntry(entry *models.WaitlistEntry) error {
	err := t.tx.QueryRowxContext(t.ctx, `
		INSERT INTO waitlist (booking_id, coach_type, waitlist_number)
		VALUES ($1, $2, $3)
		RETURNING waitlist_id`,
		entry.BookingID, entry.CoachClass, entry.WaitlistNumber).Scan(&entry.ID)
	if err != nil {
		if IsUniqueViolation(err) {
			return models.NewConflictError("booking %d is already waitlisted", entry.BookingID)
		}
		return fmt.Errorf("failed to create waitlist entry: %w", err)
	}
	return nil
}

// WaitlistRepository serves waitlist reads outside ledger transactions
type WaitlistRepository struct {
	db DB
}

// NewWaitlistRepository creates a new WaitlistRepository
func NewWaitlistRepository(db DB) *WaitlistRepository {
	return &WaitlistRepository{db: db}
}

// GetInfo returns the booking's historical waitlist number and its live rank among entries
// of the same scope whose bookings are still waiting. Returns nil when the booking was
// never waitlisted.
func (r *WaitlistRepository) GetInfo(ctx context.Context, bookingID int64) (*models.WaitlistInfo, error) {
	var info models.WaitlistInfo
	err := r.db.GetContext(ctx, &info, `
		SELECT w.waitlist_number,
		       (SELECT COUNT(*) + 1
		        FROM waitlist w2
		        JOIN bookings b2 ON b2.booking_id = w2.booking_id
		        WHERE b2.train_id = b.train_id
		          AND b2.journey_date = b.journey_date
		          AND w2.coach_type = w.coach_type
		          AND b2.booking_status = 'WAITLIST'
		          AND w2.waitlist_number < w.waitlist_number)::int AS current_position
		FROM waitlist w
		JOIN bookings b ON b.booking_id = w.booking_id
		WHERE w.booking_id = $1`, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get waitlist info: %w", err)
	}
	return &info, nil
}
