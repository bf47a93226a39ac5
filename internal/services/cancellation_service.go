package services

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/railconnect/booking-ledger/internal/config"
	"github.com/railconnect/booking-ledger/internal/database"
	"github.com/railconnect/booking-ledger/internal/models"
	"github.com/sirupsen/logrus"
)

// CancellationService cancels bookings and records flat-rate refunds
type CancellationService struct {
	ledger database.LedgerStore
	cache  BookingCache
	events EventPublisher
	cfg    config.LedgerConfig
	logger *logrus.Logger
}

// NewCancellationService creates a new CancellationService
func NewCancellationService(ledger database.LedgerStore, cache BookingCache, events EventPublisher, cfg config.LedgerConfig, logger *logrus.Logger) *CancellationService {
	return &CancellationService{
		ledger: ledger,
		cache:  cache,
		events: events,
		cfg:    cfg,
		logger: logger,
	}
}

// RefundSplit splits a fare into the cancellation charge and the refund. The charge is
// rounded to the paisa and the refund takes the remainder, so the two always add up to
// the fare.
func RefundSplit(totalFare, rate float64) (refund, charge float64) {
	charge = math.Round(totalFare*rate*100) / 100
	return totalFare - charge, charge
}

// Cancel cancels the caller's booking. Seats go back to the counter only when the booking
// was CONFIRMED; a waitlisted booking held none. Waitlisted bookings are not promoted into
// the freed seats.
func (s *CancellationService) Cancel(ctx context.Context, pnr string, userID uuid.UUID) (*models.CancellationResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.TxTimeout)
	defer cancel()

	var result *models.CancellationResult
	var booking *models.Booking
	var previousStatus models.BookingStatus
	var passengerCount int

	err := s.ledger.RunInTx(ctx, func(tx database.LedgerTx) error {
		var err error
		booking, err = tx.LockBookingForUser(pnr, userID)
		if err != nil {
			return err
		}
		if booking == nil {
			return models.NewNotFoundError("Booking not found")
		}
		if booking.Status == models.BookingStatusCancelled {
			return models.NewAlreadyCancelledError(pnr)
		}
		previousStatus = booking.Status

		passengers, err := tx.PassengersByBooking(booking.ID)
		if err != nil {
			return err
		}
		passengerCount = len(passengers)

		refund, charge := RefundSplit(booking.TotalFare, s.cfg.CancellationRate)

		if err := tx.UpdateBookingStatus(booking.ID, models.BookingStatusCancelled); err != nil {
			return err
		}
		if previousStatus == models.BookingStatusConfirmed {
			if err := database.IncrementInventory(tx, booking.InventoryKey(), passengerCount); err != nil {
				return err
			}
		}

		if err := tx.InsertCancellation(&models.Cancellation{
			BookingID:           booking.ID,
			RefundAmount:        refund,
			CancellationCharges: charge,
			RefundStatus:        models.RefundStatusProcessed,
		}); err != nil {
			return err
		}

		result = &models.CancellationResult{
			PNR:                 booking.PNR,
			RefundAmount:        refund,
			CancellationCharges: charge,
		}
		return nil
	})
	if err != nil {
		logLedgerFailure(s.logger, err, "Cancellation failed", logrus.Fields{"pnr": pnr, "user_id": userID})
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"pnr":             pnr,
		"previous_status": previousStatus,
		"refund_amount":   result.RefundAmount,
		"seats_restored":  previousStatus == models.BookingStatusConfirmed,
	}).Info("Booking cancelled")

	afterCommit(ctx, s.cache, s.events, s.logger, models.BookingEvent{
		Type:           models.EventBookingCancelled,
		BookingID:      booking.ID,
		PNR:            booking.PNR,
		UserID:         userID,
		TrainID:        booking.TrainID,
		JourneyDate:    booking.JourneyDate,
		CoachClass:     booking.CoachClass,
		Status:         models.BookingStatusCancelled,
		PassengerCount: passengerCount,
		Amount:         result.RefundAmount,
		OccurredAt:     time.Now().UTC(),
	})
	return result, nil
}
