package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/railconnect/booking-ledger/internal/models"
)

// CatalogTx reads reference data inside a ledger transaction
type CatalogTx interface {
	TrainByID(trainID int64) (*models.Train, error)
	StationByCode(code string) (*models.Station, error)
	CoachesForClass(trainID int64, coachClass string) ([]models.Coach, error)
}

// InventoryTx exposes the seat counter primitives. Adjustments are guarded so the counter
// never leaves [0, total_seats]; a false result means the guard rejected the change.
type InventoryTx interface {
	LockSeatAvailability(key models.InventoryKey) (*models.SeatAvailability, error)
	InsertSeatAvailability(key models.InventoryKey, totalSeats int) error
	AdjustSeatAvailability(key models.InventoryKey, delta int) (bool, error)
}

// WaitlistTx exposes the waitlist table
type WaitlistTx interface {
	CountWaitlist(key models.InventoryKey) (int, error)
	InsertWaitlistEntry(entry *models.WaitlistEntry) error
}

// BookingTx exposes booking, passenger, payment and cancellation writes
type BookingTx interface {
	InsertBooking(booking *models.Booking) error
	InsertPassenger(passenger *models.Passenger) error
	InsertPayment(payment *models.Payment) error
	LockBookingForUser(pnr string, userID uuid.UUID) (*models.Booking, error)
	PassengersByBooking(bookingID int64) ([]models.Passenger, error)
	PaymentByBooking(bookingID int64) (*models.Payment, error)
	CompletePayment(bookingID int64, method string, paidAt time.Time) error
	HeldSeats(key models.InventoryKey) ([]HeldSeat, error)
	AssignSeat(passengerID int64, seatNumber, coachNumber string) error
	UpdateBookingStatus(bookingID int64, status models.BookingStatus) error
	InsertCancellation(cancellation *models.Cancellation) error
}

// LedgerTx is everything a booking, payment or cancellation may touch atomically
type LedgerTx interface {
	CatalogTx
	InventoryTx
	WaitlistTx
	BookingTx
}

// LedgerStore runs fn inside one transaction. Returning an error from fn rolls back
// every write made through the LedgerTx.
type LedgerStore interface {
	RunInTx(ctx context.Context, fn func(tx LedgerTx) error) error
}

// LedgerRepository is the Postgres LedgerStore
type LedgerRepository struct {
	db          DB
	lockTimeout time.Duration
}

// NewLedgerRepository creates a new LedgerRepository
func NewLedgerRepository(db DB, lockTimeout time.Duration) *LedgerRepository {
	return &LedgerRepository{db: db, lockTimeout: lockTimeout}
}

// RunInTx opens a read-committed transaction. Row locks taken inside serialise writers per
// seat counter and per booking.
func (r *LedgerRepository) RunInTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if r.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to set lock timeout: %w", err)
		}
	}

	if err := fn(&pgLedgerTx{ctx: ctx, tx: tx}); err != nil {
		if IsLockTimeout(err) {
			return models.NewConflictError("seat inventory is busy, please retry")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type pgLedgerTx struct {
	ctx context.Context
	tx  *sqlx.Tx
}

func (t *pgLedgerTx) TrainByID(trainID int64) (*models.Train, error) {
	var train models.Train
	err := t.tx.GetContext(t.ctx, &train, `
		SELECT train_id, train_number, train_name, train_type, running_days,
		       source_station_id, destination_station_id
		FROM trains WHERE train_id = $1`, trainID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get train %d: %w", trainID, err)
	}
	return &train, nil
}

func (t *pgLedgerTx) StationByCode(code string) (*models.Station, error) {
	var station models.Station
	err := t.tx.GetContext(t.ctx, &station, `
		SELECT station_id, station_code, station_name, city, state
		FROM stations WHERE station_code = $1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get station %s: %w", code, err)
	}
	return &station, nil
}

func (t *pgLedgerTx) CoachesForClass(trainID int64, coachClass string) ([]models.Coach, error) {
	var coaches []models.Coach
	err := t.tx.SelectContext(t.ctx, &coaches, `
		SELECT coach_id, train_id, coach_type, coach_number, total_seats, base_fare
		FROM coaches
		WHERE train_id = $1 AND coach_type = $2
		ORDER BY coach_number`, trainID, coachClass)
	if err != nil {
		return nil, fmt.Errorf("failed to get coaches: %w", err)
	}
	return coaches, nil
}

// InsertBooking returns a ConflictError when the PNR is taken. ON CONFLICT keeps the
// transaction usable so the caller can retry with a fresh PNR.
func (t *pgLedgerTx) InsertBooking(booking *models.Booking) error {
	err := t.tx.QueryRowxContext(t.ctx, `
		INSERT INTO bookings (
			pnr, user_id, train_id, journey_date, from_station_id, to_station_id,
			coach_type, total_fare, booking_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (pnr) DO NOTHING
		RETURNING booking_id, booked_at`,
		booking.PNR, booking.UserID, booking.TrainID, booking.JourneyDate,
		booking.FromStationID, booking.ToStationID, booking.CoachClass,
		booking.TotalFare, booking.Status,
	).Scan(&booking.ID, &booking.BookedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewConflictError("pnr %s already exists", booking.PNR)
	}
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (t *pgLedgerTx) InsertPassenger(passenger *models.Passenger) error {
	err := t.tx.QueryRowxContext(t.ctx, `
		INSERT INTO passengers (
			booking_id, passenger_name, age, gender, berth_preference, passenger_status
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING passenger_id`,
		passenger.BookingID, passenger.Name, passenger.Age, passenger.Gender,
		passenger.BerthPreference, passenger.Status,
	).Scan(&passenger.ID)
	if err != nil {
		return fmt.Errorf("failed to create passenger: %w", err)
	}
	return nil
}

// InsertPayment returns a ConflictError when the transaction id is taken
func (t *pgLedgerTx) InsertPayment(payment *models.Payment) error {
	err := t.tx.QueryRowxContext(t.ctx, `
		INSERT INTO payments (booking_id, amount, payment_method, transaction_id, payment_status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (transaction_id) DO NOTHING
		RETURNING payment_id`,
		payment.BookingID, payment.Amount, payment.Method, payment.TransactionID, payment.Status,
	).Scan(&payment.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewConflictError("transaction id %s already exists", payment.TransactionID)
	}
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

const bookingColumns = `
	booking_id, pnr, user_id, train_id, to_char(journey_date, 'YYYY-MM-DD') AS journey_date,
	from_station_id, to_station_id, coach_type, total_fare, booking_status, booked_at`

// LockBookingForUser returns nil when no booking with the PNR belongs to the user
func (t *pgLedgerTx) LockBookingForUser(pnr string, userID uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := t.tx.GetContext(t.ctx, &booking, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE pnr = $1 AND user_id = $2
		FOR UPDATE`, pnr, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock booking %s: %w", pnr, err)
	}
	return &booking, nil
}

func (t *pgLedgerTx) PassengersByBooking(bookingID int64) ([]models.Passenger, error) {
	var passengers []models.Passenger
	err := t.tx.SelectContext(t.ctx, &passengers, `
		SELECT passenger_id, booking_id, passenger_name, age, gender, berth_preference,
		       passenger_status, seat_number, coach_number
		FROM passengers
		WHERE booking_id = $1
		ORDER BY passenger_id`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get passengers: %w", err)
	}
	return passengers, nil
}

func (t *pgLedgerTx) PaymentByBooking(bookingID int64) (*models.Payment, error) {
	var payment models.Payment
	err := t.tx.GetContext(t.ctx, &payment, `
		SELECT payment_id, booking_id, amount, payment_method, transaction_id, payment_status, paid_at
		FROM payments
		WHERE booking_id = $1`, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

func (t *pgLedgerTx) CompletePayment(bookingID int64, method string, paidAt time.Time) error {
	_, err := t.tx.ExecContext(t.ctx, `
		UPDATE payments
		SET payment_status = $2, payment_method = $3, paid_at = $4
		WHERE booking_id = $1`,
		bookingID, models.PaymentStatusCompleted, method, paidAt)
	if err != nil {
		return fmt.Errorf("failed to complete payment: %w", err)
	}
	return nil
}

// HeldSeat is a seat held by a passenger of a booking that is not cancelled
type HeldSeat struct {
	CoachNumber string `db:"coach_number"`
	SeatNumber  string `db:"seat_number"`
}

// HeldSeats lists the seats held in the scope. Seats of cancelled bookings are free again.
func (t *pgLedgerTx) HeldSeats(key models.InventoryKey) ([]HeldSeat, error) {
	var held []HeldSeat
	err := t.tx.SelectContext(t.ctx, &held, `
		SELECT COALESCE(p.coach_number, '') AS coach_number, p.seat_number
		FROM passengers p
		JOIN bookings b ON b.booking_id = p.booking_id
		WHERE b.train_id = $1 AND b.journey_date = $2 AND b.coach_type = $3
		  AND b.booking_status <> $4
		  AND p.seat_number IS NOT NULL`,
		key.TrainID, key.JourneyDate, key.CoachClass, models.BookingStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to list held seats %s: %w", key, err)
	}
	return held, nil
}

func (t *pgLedgerTx) AssignSeat(passengerID int64, seatNumber, coachNumber string) error {
	_, err := t.tx.ExecContext(t.ctx, `
		UPDATE passengers SET seat_number = $2, coach_number = $3
		WHERE passenger_id = $1`, passengerID, seatNumber, coachNumber)
	if err != nil {
		return fmt.Errorf("failed to assign seat: %w", err)
	}
	return nil
}

// UpdateBookingStatus moves the booking and all of its passengers to status
func (t *pgLedgerTx) UpdateBookingStatus(bookingID int64, status models.BookingStatus) error {
	if _, err := t.tx.ExecContext(t.ctx, `
		UPDATE bookings SET booking_status = $2 WHERE booking_id = $1`, bookingID, status); err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if _, err := t.tx.ExecContext(t.ctx, `
		UPDATE passengers SET passenger_status = $2 WHERE booking_id = $1`, bookingID, status); err != nil {
		return fmt.Errorf("failed to update passenger status: %w", err)
	}
	return nil
}

func (t *pgLedgerTx) InsertCancellation(cancellation *models.Cancellation) error {
	err := t.tx.QueryRowxContext(t.ctx, `
		INSERT INTO cancellations (booking_id, refund_amount, cancellation_charges, refund_status)
		VALUES ($1, $2, $3, $4)
		RETURNING cancellation_id, cancelled_at`,
		cancellation.BookingID, cancellation.RefundAmount, cancellation.CancellationCharges,
		cancellation.RefundStatus,
	).Scan(&cancellation.ID, &cancellation.CancelledAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return models.NewConflictError("booking %d is already cancelled", cancellation.BookingID)
		}
		return fmt.Errorf("failed to create cancellation: %w", err)
	}
	return nil
}
