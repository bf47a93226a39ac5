package models

import (
	"time"

	"github.com/google/uuid"
)

// Routing keys of the booking lifecycle events
const (
	EventBookingCreated   = "booking.created"
	EventBookingPaid      = "booking.paid"
	EventBookingCancelled = "booking.cancelled"
)

// BookingEvent is published after a ledger transaction commits
type BookingEvent struct {
	Type           string        `json:"type"`
	BookingID      int64         `json:"booking_id"`
	PNR            string        `json:"pnr"`
	UserID         uuid.UUID     `json:"user_id"`
	TrainID        int64         `json:"train_id"`
	JourneyDate    string        `json:"journey_date"`
	CoachClass     string        `json:"coach_type"`
	Status         BookingStatus `json:"status"`
	PassengerCount int           `json:"passengers"`
	Amount         float64       `json:"amount"`
	TransactionID  string        `json:"transaction_id,omitempty"`
	WaitlistNumber *int          `json:"waitlist_number,omitempty"`
	OccurredAt     time.Time     `json:"occurred_at"`
}
