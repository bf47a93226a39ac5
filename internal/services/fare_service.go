package services

import (
	"context"
	"math"
	"strings"

	"github.com/railconnect/booking-ledger/internal/models"
)

const (
	// FallbackBaseFare prices a booking when the class has no coach rows
	FallbackBaseFare = 1000.0
	// DefaultQuoteClass is quoted when the caller names no class
	DefaultQuoteClass = "3AC"
	// PendingPaymentMethod is stored until the payment completes
	PendingPaymentMethod = "PENDING"
	// DefaultPaymentMethod is recorded when the caller names none
	DefaultPaymentMethod = "UPI"
)

// BookingFare is the flat booking-time fare: the first coach's base fare per passenger.
// It is independent of the distance-prorated quote.
func BookingFare(coaches []models.Coach, passengerCount int) float64 {
	baseFare := FallbackBaseFare
	if len(coaches) > 0 {
		baseFare = coaches[0].BaseFare
	}
	return baseFare * float64(passengerCount)
}

// FareCatalog is what a fare quote reads from the catalog
type FareCatalog interface {
	GetSegmentDistance(ctx context.Context, trainID int64, fromCode, toCode string) (float64, bool, error)
	GetBaseFare(ctx context.Context, trainID int64, coachClass string) (float64, bool, error)
}

// FareService quotes distance-prorated fares
type FareService struct {
	catalog FareCatalog
}

// NewFareService creates a new FareService
func NewFareService(catalog FareCatalog) *FareService {
	return &FareService{catalog: catalog}
}

// Quote prices the segment from -> to as round(baseFare * distance / 1000)
func (s *FareService) Quote(ctx context.Context, trainID int64, from, to, coachClass string) (*models.FareQuote, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == "" || to == "" {
		return nil, models.NewValidationError("from and to stations are required")
	}
	if coachClass == "" {
		coachClass = DefaultQuoteClass
	}

	distance, found, err := s.catalog.GetSegmentDistance(ctx, trainID, from, to)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.NewNotFoundError("Route not found")
	}

	baseFare, found, err := s.catalog.GetBaseFare(ctx, trainID, coachClass)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.NewNotFoundError("Coach type not found")
	}

	return &models.FareQuote{
		TrainID:    trainID,
		From:       from,
		To:         to,
		CoachClass: coachClass,
		DistanceKm: distance,
		BaseFare:   baseFare,
		Fare:       math.Round(baseFare * distance / 1000),
	}, nil
}
