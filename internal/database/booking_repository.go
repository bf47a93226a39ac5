package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/railconnect/booking-ledger/internal/models"
)

// BookingRepository handles read-only booking queries. Writes go through LedgerRepository.
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingViewQuery = `
	SELECT b.booking_id, b.pnr, b.user_id, b.train_id,
	       to_char(b.journey_date, 'YYYY-MM-DD') AS journey_date,
	       b.from_station_id, b.to_station_id, b.coach_type, b.total_fare,
	       b.booking_status, b.booked_at,
	       t.train_number, t.train_name,
	       fs.station_code AS from_code, fs.station_name AS from_station,
	       ts.station_code AS to_code, ts.station_name AS to_station,
	       p.payment_status, p.payment_method, p.transaction_id,
	       (SELECT COUNT(*) FROM passengers px WHERE px.booking_id = b.booking_id)::int AS passenger_count
	FROM bookings b
	JOIN trains t ON t.train_id = b.train_id
	JOIN stations fs ON fs.station_id = b.from_station_id
	JOIN stations ts ON ts.station_id = b.to_station_id
	LEFT JOIN payments p ON p.booking_id = b.booking_id`

// GetViewByPNR returns the booking with train, station and payment fields, or nil when the
// PNR is unknown
func (r *BookingRepository) GetViewByPNR(ctx context.Context, pnr string) (*models.BookingView, error) {
	var view models.BookingView
	err := r.db.GetContext(ctx, &view, bookingViewQuery+`
	WHERE b.pnr = $1`, pnr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking %s: %w", pnr, err)
	}
	return &view, nil
}

// ListPassengers lists the passengers of a booking in insertion order
func (r *BookingRepository) ListPassengers(ctx context.Context, bookingID int64) ([]models.Passenger, error) {
	passengers := []models.Passenger{}
	err := r.db.SelectContext(ctx, &passengers, `
		SELECT passenger_id, booking_id, passenger_name, age, gender, berth_preference,
		       passenger_status, seat_number, coach_number
		FROM passengers
		WHERE booking_id = $1
		ORDER BY passenger_id`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list passengers: %w", err)
	}
	return passengers, nil
}

// ListByUser returns the user's bookings, newest first. An empty statuses slice means all.
func (r *BookingRepository) ListByUser(ctx context.Context, userID uuid.UUID, statuses []models.BookingStatus) ([]models.BookingView, error) {
	filter := make([]string, 0, len(statuses))
	for _, status := range statuses {
		filter = append(filter, string(status))
	}

	bookings := []models.BookingView{}
	err := r.db.SelectContext(ctx, &bookings, bookingViewQuery+`
	WHERE b.user_id = $1
	  AND (cardinality($2::text[]) = 0 OR b.booking_status = ANY($2::text[]))
	ORDER BY b.booked_at DESC, b.booking_id DESC`, userID, pq.Array(filter))
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}
