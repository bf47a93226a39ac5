package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/railconnect/booking-ledger/internal/models"
	"github.com/sirupsen/logrus"
)

// BookingCache caches public PNR lookups. Implementations must be safe to call when the
// backing store is down; failures only cost a cache miss.
type BookingCache interface {
	Get(ctx context.Context, pnr string) (*models.BookingDetails, bool)
	Set(ctx context.Context, pnr string, details *models.BookingDetails)
	Invalidate(ctx context.Context, pnr string)
}

// EventPublisher publishes booking lifecycle events
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event interface{}) error
}

// BookingReader serves booking reads outside ledger transactions
type BookingReader interface {
	GetViewByPNR(ctx context.Context, pnr string) (*models.BookingView, error)
	ListPassengers(ctx context.Context, bookingID int64) ([]models.Passenger, error)
	ListByUser(ctx context.Context, userID uuid.UUID, statuses []models.BookingStatus) ([]models.BookingView, error)
}

// WaitlistReader serves waitlist positions
type WaitlistReader interface {
	GetInfo(ctx context.Context, bookingID int64) (*models.WaitlistInfo, error)
}

const eventPublishTimeout = 5 * time.Second

// cacheReinvalidateDelay is how long after commit the PNR entry is deleted a second time.
// It drops views a concurrent lookup read before the commit and cached after the first delete.
var cacheReinvalidateDelay = 2 * time.Second

// afterCommit runs the best-effort side effects of a committed ledger write. The ledger
// outcome stands even if these fail.
func afterCommit(ctx context.Context, cache BookingCache, publisher EventPublisher, logger *logrus.Logger, event models.BookingEvent) {
	detached := context.WithoutCancel(ctx)
	cache.Invalidate(detached, event.PNR)
	time.AfterFunc(cacheReinvalidateDelay, func() {
		cache.Invalidate(detached, event.PNR)
	})

	pubCtx, cancel := context.WithTimeout(detached, eventPublishTimeout)
	defer cancel()
	if err := publisher.Publish(pubCtx, event.Type, event); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"event": event.Type,
			"pnr":   event.PNR,
		}).Warn("Failed to publish booking event")
	}
}

func requireUser(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return models.NewAuthorizationError("authentication required")
	}
	return nil
}
