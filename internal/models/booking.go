package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JourneyDateLayout is the wire and storage format of journey dates
const JourneyDateLayout = "2006-01-02"

// BookingStatus represents the ledger outcome of a booking
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusWaitlist  BookingStatus = "WAITLIST"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// PaymentStatus represents the state of the single payment attached to a booking
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// RefundStatusProcessed is recorded on every cancellation; refunds settle immediately
const RefundStatusProcessed = "PROCESSED"

// InventoryKey identifies one seat counter
type InventoryKey struct {
	TrainID     int64
	JourneyDate string
	CoachClass  string
}

func (k InventoryKey) String() string {
	return fmt.Sprintf("%d/%s/%s", k.TrainID, k.JourneyDate, k.CoachClass)
}

// SeatAvailability is the per-date seat counter for a (train, coach class)
type SeatAvailability struct {
	TrainID        int64  `json:"train_id" db:"train_id"`
	JourneyDate    string `json:"journey_date" db:"journey_date"`
	CoachClass     string `json:"coach_type" db:"coach_type"`
	AvailableSeats int    `json:"available_seats" db:"available_seats"`
	TotalSeats     int    `json:"total_seats" db:"total_seats"`
}

// Key returns the inventory key of the counter
func (a *SeatAvailability) Key() InventoryKey {
	return InventoryKey{TrainID: a.TrainID, JourneyDate: a.JourneyDate, CoachClass: a.CoachClass}
}

// Booking is owned by the user who created it; only Status changes after creation
type Booking struct {
	ID            int64         `json:"booking_id" db:"booking_id"`
	PNR           string        `json:"pnr" db:"pnr"`
	UserID        uuid.UUID     `json:"user_id" db:"user_id"`
	TrainID       int64         `json:"train_id" db:"train_id"`
	JourneyDate   string        `json:"journey_date" db:"journey_date"`
	FromStationID int64         `json:"from_station_id" db:"from_station_id"`
	ToStationID   int64         `json:"to_station_id" db:"to_station_id"`
	CoachClass    string        `json:"coach_type" db:"coach_type"`
	TotalFare     float64       `json:"total_fare" db:"total_fare"`
	Status        BookingStatus `json:"booking_status" db:"booking_status"`
	BookedAt      time.Time     `json:"booked_at" db:"booked_at"`
}

// InventoryKey returns the seat counter the booking draws from
func (b *Booking) InventoryKey() InventoryKey {
	return InventoryKey{TrainID: b.TrainID, JourneyDate: b.JourneyDate, CoachClass: b.CoachClass}
}

// Passenger belongs to exactly one booking. Seat and coach are set only after payment of a
// confirmed booking.
type Passenger struct {
	ID              int64         `json:"passenger_id" db:"passenger_id"`
	BookingID       int64         `json:"booking_id" db:"booking_id"`
	Name            string        `json:"passenger_name" db:"passenger_name"`
	Age             int           `json:"age" db:"age"`
	Gender          string        `json:"gender" db:"gender"`
	BerthPreference string        `json:"berth_preference" db:"berth_preference"`
	Status          BookingStatus `json:"passenger_status" db:"passenger_status"`
	SeatNumber      *string       `json:"seat_number,omitempty" db:"seat_number"`
	CoachNumber     *string       `json:"coach_number,omitempty" db:"coach_number"`
}

// Payment is one-to-one with a booking
type Payment struct {
	ID            int64         `json:"payment_id" db:"payment_id"`
	BookingID     int64         `json:"booking_id" db:"booking_id"`
	Amount        float64       `json:"amount" db:"amount"`
	Method        string        `json:"payment_method" db:"payment_method"`
	TransactionID string        `json:"transaction_id" db:"transaction_id"`
	Status        PaymentStatus `json:"payment_status" db:"payment_status"`
	PaidAt        *time.Time    `json:"paid_at,omitempty" db:"paid_at"`
}

// WaitlistEntry records the historical waitlist number handed to a booking
type WaitlistEntry struct {
	ID             int64  `json:"waitlist_id" db:"waitlist_id"`
	BookingID      int64  `json:"booking_id" db:"booking_id"`
	CoachClass     string `json:"coach_type" db:"coach_type"`
	WaitlistNumber int    `json:"waitlist_number" db:"waitlist_number"`
}

// Cancellation is one-to-one with a cancelled booking
type Cancellation struct {
	ID                  int64     `json:"cancellation_id" db:"cancellation_id"`
	BookingID           int64     `json:"booking_id" db:"booking_id"`
	RefundAmount        float64   `json:"refund_amount" db:"refund_amount"`
	CancellationCharges float64   `json:"cancellation_charges" db:"cancellation_charges"`
	RefundStatus        string    `json:"refund_status" db:"refund_status"`
	CancelledAt         time.Time `json:"cancelled_at" db:"cancelled_at"`
}

// PassengerInput is one passenger in a booking request
type PassengerInput struct {
	Name            string `json:"name"`
	Age             int    `json:"age"`
	Gender          string `json:"gender"`
	BerthPreference string `json:"berth_preference,omitempty"`
}

// CreateBookingRequest represents the request to reserve seats
type CreateBookingRequest struct {
	TrainID     int64            `json:"train_id"`
	JourneyDate string           `json:"journey_date"`
	FromStation string           `json:"from_station"`
	ToStation   string           `json:"to_station"`
	CoachClass  string           `json:"coach_type"`
	Passengers  []PassengerInput `json:"passengers"`
}

// DefaultBerthPreference is stored when a passenger states none
const DefaultBerthPreference = "NO PREFERENCE"

// Validate checks the request and normalises station codes and berth preferences
func (r *CreateBookingRequest) Validate() error {
	r.FromStation = strings.ToUpper(strings.TrimSpace(r.FromStation))
	r.ToStation = strings.ToUpper(strings.TrimSpace(r.ToStation))
	r.CoachClass = strings.TrimSpace(r.CoachClass)

	if r.TrainID <= 0 || r.JourneyDate == "" || r.FromStation == "" || r.ToStation == "" || r.CoachClass == "" {
		return NewValidationError("All booking details are required")
	}
	if _, err := time.Parse(JourneyDateLayout, r.JourneyDate); err != nil {
		return NewValidationError("journey_date must be formatted as YYYY-MM-DD")
	}
	if r.FromStation == r.ToStation {
		return NewValidationError("from_station and to_station must differ")
	}
	if len(r.Passengers) == 0 {
		return NewValidationError("At least one passenger is required")
	}
	for i := range r.Passengers {
		p := &r.Passengers[i]
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return NewValidationError("passenger %d: name is required", i+1)
		}
		if p.Age < 0 || p.Age > 125 {
			return NewValidationError("passenger %d: age must be between 0 and 125", i+1)
		}
		if p.BerthPreference == "" {
			p.BerthPreference = DefaultBerthPreference
		}
	}
	return nil
}

// BookingResult is returned when a booking is created
type BookingResult struct {
	BookingID      int64         `json:"booking_id"`
	PNR            string        `json:"pnr"`
	TransactionID  string        `json:"transaction_id"`
	Status         BookingStatus `json:"status"`
	WaitlistNumber *int          `json:"waitlist_number"`
	TotalFare      float64       `json:"total_fare"`
	PassengerCount int           `json:"passengers"`
}

// PayBookingRequest is the optional body of a payment completion
type PayBookingRequest struct {
	PaymentMethod string `json:"payment_method"`
}

// PaymentResult is returned when a payment completes
type PaymentResult struct {
	PNR           string        `json:"pnr"`
	TransactionID string        `json:"transaction_id"`
	Status        BookingStatus `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
}

// CancellationResult is returned when a booking is cancelled
type CancellationResult struct {
	PNR                 string  `json:"pnr"`
	RefundAmount        float64 `json:"refund_amount"`
	CancellationCharges float64 `json:"cancellation_charges"`
}

// BookingView joins a booking with the names and payment fields shown to users
type BookingView struct {
	Booking
	TrainNumber    string         `json:"train_number" db:"train_number"`
	TrainName      string         `json:"train_name" db:"train_name"`
	FromCode       string         `json:"from_code" db:"from_code"`
	FromStation    string         `json:"from_station" db:"from_station"`
	ToCode         string         `json:"to_code" db:"to_code"`
	ToStation      string         `json:"to_station" db:"to_station"`
	PaymentStatus  *PaymentStatus `json:"payment_status,omitempty" db:"payment_status"`
	PaymentMethod  *string        `json:"payment_method,omitempty" db:"payment_method"`
	TransactionID  *string        `json:"transaction_id,omitempty" db:"transaction_id"`
	PassengerCount int            `json:"passenger_count" db:"passenger_count"`
}

// WaitlistInfo carries both the historical waitlist number and the live rank among
// bookings still waiting in the same scope
type WaitlistInfo struct {
	WaitlistNumber  int `json:"waitlist_number" db:"waitlist_number"`
	CurrentPosition int `json:"current_position,omitempty" db:"current_position"`
}

// BookingDetails is the full PNR lookup response
type BookingDetails struct {
	Booking    *BookingView  `json:"booking"`
	Passengers []Passenger   `json:"passengers"`
	Waitlist   *WaitlistInfo `json:"waitlist"`
}
