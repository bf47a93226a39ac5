package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/railconnect/booking-ledger/internal/config"
	"github.com/railconnect/booking-ledger/internal/database"
	"github.com/railconnect/booking-ledger/internal/models"
	"github.com/sirupsen/logrus"
)

// berthRotation is cycled by passenger index within a booking
var berthRotation = []string{"LB", "MB", "UB", "SL", "SU"}

const (
	placeholderCoachNumber = "B1"
	placeholderCoachSeats  = 72
)

// PaymentService completes payments and assigns seats to confirmed bookings
type PaymentService struct {
	ledger database.LedgerStore
	cache  BookingCache
	events EventPublisher
	cfg    config.LedgerConfig
	logger *logrus.Logger
	now    func() time.Time
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(ledger database.LedgerStore, cache BookingCache, events EventPublisher, cfg config.LedgerConfig, logger *logrus.Logger) *PaymentService {
	return &PaymentService{
		ledger: ledger,
		cache:  cache,
		events: events,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// CompletePayment marks the booking's payment COMPLETED. Confirmed bookings get a seat and
// coach per passenger; waitlisted bookings get none. Paying a completed payment again
// returns the recorded result without touching seats.
func (s *PaymentService) CompletePayment(ctx context.Context, pnr string, userID uuid.UUID, method string) (*models.PaymentResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = DefaultPaymentMethod
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.TxTimeout)
	defer cancel()

	var result *models.PaymentResult
	var booking *models.Booking
	var payment *models.Payment
	alreadyPaid := false

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

		payment, err = tx.PaymentByBooking(booking.ID)
		if err != nil {
			return err
		}
		if payment == nil {
			return fmt.Errorf("booking %s has no payment record", pnr)
		}

		result = &models.PaymentResult{
			PNR:           booking.PNR,
			TransactionID: payment.TransactionID,
			Status:        booking.Status,
			PaymentStatus: models.PaymentStatusCompleted,
		}
		if payment.Status == models.PaymentStatusCompleted {
			alreadyPaid = true
			return nil
		}

		if err := tx.CompletePayment(booking.ID, method, s.now().UTC()); err != nil {
			return err
		}
		if booking.Status == models.BookingStatusConfirmed {
			return assignSeats(tx, booking)
		}
		return nil
	})
	if err != nil {
		logLedgerFailure(s.logger, err, "Payment failed", logrus.Fields{"pnr": pnr, "user_id": userID})
		return nil, err
	}
	if alreadyPaid {
		s.logger.WithField("pnr", pnr).Info("Payment already completed")
		return result, nil
	}

	s.logger.WithFields(logrus.Fields{
		"pnr":            pnr,
		"transaction_id": result.TransactionID,
		"method":         method,
		"status":         result.Status,
	}).Info("Payment completed")

	afterCommit(ctx, s.cache, s.events, s.logger, models.BookingEvent{
		Type:          models.EventBookingPaid,
		BookingID:     booking.ID,
		PNR:           booking.PNR,
		UserID:        userID,
		TrainID:       booking.TrainID,
		JourneyDate:   booking.JourneyDate,
		CoachClass:    booking.CoachClass,
		Status:        booking.Status,
		Amount:        payment.Amount,
		TransactionID: payment.TransactionID,
		OccurredAt:    s.now().UTC(),
	})
	return result, nil
}

// assignSeats gives each passenger the lowest-numbered free seat of the class, walking the
// coaches in coach number order. Seats held by cancelled bookings count as free. The seat
// counter row is locked first so two payments in the same scope never draw the same seat.
func assignSeats(tx database.LedgerTx, booking *models.Booking) error {
	key := booking.InventoryKey()
	counter, err := tx.LockSeatAvailability(key)
	if err != nil {
		return err
	}

	passengers, err := tx.PassengersByBooking(booking.ID)
	if err != nil {
		return err
	}
	coaches, err := tx.CoachesForClass(key.TrainID, key.CoachClass)
	if err != nil {
		return err
	}
	held, err := tx.HeldSeats(key)
	if err != nil {
		return err
	}

	placeholderSeats := placeholderCoachSeats
	if counter != nil && counter.TotalSeats > placeholderSeats {
		placeholderSeats = counter.TotalSeats
	}
	seats, err := allocateSeats(seatPlan(coaches, placeholderSeats), held, len(passengers))
	if err != nil {
		return err
	}

	for i, passenger := range passengers {
		berth := berthRotation[i%len(berthRotation)]
		seatNumber := fmt.Sprintf("%d/%s", seats[i].number, berth)
		if err := tx.AssignSeat(passenger.ID, seatNumber, seats[i].coach); err != nil {
			return err
		}
	}
	return nil
}

type seatSlot struct {
	coach  string
	number int
}

// seatPlan lists every seat of a class in allocation order. A class without coach rows
// gets the placeholder coach.
func seatPlan(coaches []models.Coach, placeholderSeats int) []seatSlot {
	if len(coaches) == 0 {
		coaches = []models.Coach{{CoachNumber: placeholderCoachNumber, TotalSeats: placeholderSeats}}
	}
	var plan []seatSlot
	for _, coach := range coaches {
		for n := 1; n <= coach.TotalSeats; n++ {
			plan = append(plan, seatSlot{coach: coach.CoachNumber, number: n})
		}
	}
	return plan
}

// allocateSeats picks the first count seats of plan not in held
func allocateSeats(plan []seatSlot, held []database.HeldSeat, count int) ([]seatSlot, error) {
	taken := make(map[seatSlot]bool, len(held))
	for _, h := range held {
		number, err := strconv.Atoi(strings.SplitN(h.SeatNumber, "/", 2)[0])
		if err != nil {
			continue
		}
		taken[seatSlot{coach: h.CoachNumber, number: number}] = true
	}

	free := make([]seatSlot, 0, count)
	for _, slot := range plan {
		if len(free) == count {
			break
		}
		if !taken[slot] {
			free = append(free, slot)
		}
	}
	if len(free) < count {
		return nil, models.NewInventoryInvariantError("%d free seats for %d confirmed passengers", len(free), count)
	}
	return free, nil
}
