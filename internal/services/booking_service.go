package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/railconnect/booking-ledger/internal/config"
	"github.com/railconnect/booking-ledger/internal/database"
	"github.com/railconnect/booking-ledger/internal/models"
	"github.com/sirupsen/logrus"
)

// BookingService turns seat requests into CONFIRMED or WAITLIST bookings and serves the
// booking read paths
type BookingService struct {
	ledger   database.LedgerStore
	bookings BookingReader
	waitlist WaitlistReader
	ids      IDGenerator
	cache    BookingCache
	events   EventPublisher
	cfg      config.LedgerConfig
	logger   *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(
	ledger database.LedgerStore,
	bookings BookingReader,
	waitlist WaitlistReader,
	ids IDGenerator,
	cache BookingCache,
	events EventPublisher,
	cfg config.LedgerConfig,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		ledger:   ledger,
		bookings: bookings,
		waitlist: waitlist,
		ids:      ids,
		cache:    cache,
		events:   events,
		cfg:      cfg,
		logger:   logger,
	}
}

// CreateBooking reserves seats for every passenger or, when the class is short of seats,
// waitlists the whole booking. Everything happens in one transaction holding the seat
// counter's row lock, so concurrent requests for the same train, date and class are
// decided one at a time against the current counter.
func (s *BookingService) CreateBooking(ctx context.Context, userID uuid.UUID, req *models.CreateBookingRequest) (*models.BookingResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.TxTimeout)
	defer cancel()

	var result *models.BookingResult
	var booking *models.Booking

	err := s.ledger.RunInTx(ctx, func(tx database.LedgerTx) error {
		train, err := tx.TrainByID(req.TrainID)
		if err != nil {
			return err
		}
		if train == nil {
			return models.NewNotFoundError("Train %d not found", req.TrainID)
		}
		journeyDate, _ := time.Parse(models.JourneyDateLayout, req.JourneyDate)
		if !train.RunsOn(journeyDate) {
			return models.NewValidationError("Train %s does not run on %s", train.Number, req.JourneyDate)
		}

		from, err := tx.StationByCode(req.FromStation)
		if err != nil {
			return err
		}
		to, err := tx.StationByCode(req.ToStation)
		if err != nil {
			return err
		}
		if from == nil || to == nil {
			return models.NewNotFoundError("Invalid station codes")
		}

		key := models.InventoryKey{TrainID: req.TrainID, JourneyDate: req.JourneyDate, CoachClass: req.CoachClass}
		availability, err := database.GetOrInitInventory(tx, key, s.cfg.DefaultCapacity)
		if err != nil {
			return err
		}

		passengerCount := len(req.Passengers)
		status := models.BookingStatusWaitlist
		if availability.AvailableSeats >= passengerCount {
			status = models.BookingStatusConfirmed
		}

		coaches, err := tx.CoachesForClass(key.TrainID, key.CoachClass)
		if err != nil {
			return err
		}
		fare := BookingFare(coaches, passengerCount)

		booking = &models.Booking{
			UserID:        userID,
			TrainID:       key.TrainID,
			JourneyDate:   key.JourneyDate,
			FromStationID: from.ID,
			ToStationID:   to.ID,
			CoachClass:    key.CoachClass,
			TotalFare:     fare,
			Status:        status,
		}
		if _, err := insertWithFreshID(s.cfg.IDMaxAttempts, s.ids.NewPNR, func(pnr string) error {
			booking.PNR = pnr
			return tx.InsertBooking(booking)
		}); err != nil {
			return err
		}

		for _, input := range req.Passengers {
			passenger := &models.Passenger{
				BookingID:       booking.ID,
				Name:            input.Name,
				Age:             input.Age,
				Gender:          input.Gender,
				BerthPreference: input.BerthPreference,
				Status:          status,
			}
			if err := tx.InsertPassenger(passenger); err != nil {
				return err
			}
		}

		payment := &models.Payment{
			BookingID: booking.ID,
			Amount:    fare,
			Method:    PendingPaymentMethod,
			Status:    models.PaymentStatusPending,
		}
		if _, err := insertWithFreshID(s.cfg.IDMaxAttempts, s.ids.NewTransactionID, func(txnID string) error {
			payment.TransactionID = txnID
			return tx.InsertPayment(payment)
		}); err != nil {
			return err
		}

		result = &models.BookingResult{
			BookingID:      booking.ID,
			PNR:            booking.PNR,
			TransactionID:  payment.TransactionID,
			Status:         status,
			TotalFare:      fare,
			PassengerCount: passengerCount,
		}

		if status == models.BookingStatusConfirmed {
			return database.DecrementInventory(tx, key, passengerCount)
		}

		number, err := database.NextWaitlistNumber(tx, key)
		if err != nil {
			return err
		}
		if _, err := database.AppendWaitlist(tx, booking.ID, key.CoachClass, number); err != nil {
			return err
		}
		result.WaitlistNumber = &number
		return nil
	})
	if err != nil {
		logLedgerFailure(s.logger, err, "Booking failed", logrus.Fields{
			"user_id":      userID,
			"train_id":     req.TrainID,
			"journey_date": req.JourneyDate,
			"coach_type":   req.CoachClass,
		})
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"pnr":        result.PNR,
		"status":     result.Status,
		"passengers": result.PassengerCount,
		"train_id":   req.TrainID,
	}).Info("Booking created")

	afterCommit(ctx, s.cache, s.events, s.logger, models.BookingEvent{
		Type:           models.EventBookingCreated,
		BookingID:      booking.ID,
		PNR:            booking.PNR,
		UserID:         userID,
		TrainID:        booking.TrainID,
		JourneyDate:    booking.JourneyDate,
		CoachClass:     booking.CoachClass,
		Status:         booking.Status,
		PassengerCount: result.PassengerCount,
		Amount:         result.TotalFare,
		TransactionID:  result.TransactionID,
		WaitlistNumber: result.WaitlistNumber,
		OccurredAt:     time.Now().UTC(),
	})

	return result, nil
}

// GetByPNR is the public PNR lookup
func (s *BookingService) GetByPNR(ctx context.Context, pnr string) (*models.BookingDetails, error) {
	if details, ok := s.cache.Get(ctx, pnr); ok {
		return details, nil
	}

	view, err := s.bookings.GetViewByPNR(ctx, pnr)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, models.NewNotFoundError("Booking not found")
	}

	passengers, err := s.bookings.ListPassengers(ctx, view.ID)
	if err != nil {
		return nil, err
	}

	info, err := s.waitlist.GetInfo(ctx, view.ID)
	if err != nil {
		return nil, err
	}
	if info != nil && view.Status != models.BookingStatusWaitlist {
		info.CurrentPosition = 0
	}

	details := &models.BookingDetails{
		Booking:    view,
		Passengers: passengers,
		Waitlist:   info,
	}
	s.cache.Set(ctx, pnr, details)
	return details, nil
}

// History lists the caller's bookings, newest first
func (s *BookingService) History(ctx context.Context, userID uuid.UUID, statuses []models.BookingStatus) ([]models.BookingView, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.bookings.ListByUser(ctx, userID, statuses)
}

// logLedgerFailure logs expected ledger outcomes at info level and everything else at
// error level. Inventory invariant violations are bugs and always reach the error log.
func logLedgerFailure(logger *logrus.Logger, err error, msg string, fields logrus.Fields) {
	entry := logger.WithError(err).WithFields(fields)
	switch {
	case models.IsLedgerErrorKind(err, models.ErrKindInventoryInvariant):
		entry.Error(msg + ": inventory invariant violated")
	case models.IsLedgerErrorKind(err, models.ErrKindValidation),
		models.IsLedgerErrorKind(err, models.ErrKindNotFound),
		models.IsLedgerErrorKind(err, models.ErrKindAlreadyCancelled),
		models.IsLedgerErrorKind(err, models.ErrKindAuthorization):
		entry.Info(msg)
	default:
		entry.Error(msg)
	}
}
