package services

import (
	"context"
	"strings"
	"time"

	"github.com/railconnect/booking-ledger/internal/models"
)

// CatalogReader is the read-only station and train catalog
type CatalogReader interface {
	SearchStations(ctx context.Context, query string, limit int) ([]models.Station, error)
	GetStationByCode(ctx context.Context, code string) (*models.Station, error)
	GetTrain(ctx context.Context, trainID int64) (*models.Train, error)
	ListTrains(ctx context.Context) ([]models.Train, error)
	ListRouteStops(ctx context.Context, trainID int64) ([]models.RouteStop, error)
	ListCoaches(ctx context.Context, trainID int64) ([]models.Coach, error)
	SearchTrains(ctx context.Context, fromCode, toCode string) ([]models.TrainSearchResult, error)
}

// AvailabilityReader reads seat counters without locking them
type AvailabilityReader interface {
	ListForTrain(ctx context.Context, trainID int64, journeyDate string) ([]models.ClassAvailability, error)
	ListForTrains(ctx context.Context, trainIDs []int64, journeyDate string) (map[int64][]models.ClassAvailability, error)
}

const (
	defaultStationLimit = 20
	maxStationLimit     = 100
)

// CatalogService serves the public catalog endpoints
type CatalogService struct {
	catalog      CatalogReader
	availability AvailabilityReader
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(catalog CatalogReader, availability AvailabilityReader) *CatalogService {
	return &CatalogService{catalog: catalog, availability: availability}
}

// SearchStations matches stations by code prefix, name or city
func (s *CatalogService) SearchStations(ctx context.Context, query string, limit int) ([]models.Station, error) {
	if limit <= 0 {
		limit = defaultStationLimit
	}
	if limit > maxStationLimit {
		limit = maxStationLimit
	}
	return s.catalog.SearchStations(ctx, query, limit)
}

// GetStation returns a station by code
func (s *CatalogService) GetStation(ctx context.Context, code string) (*models.Station, error) {
	station, err := s.catalog.GetStationByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, err
	}
	if station == nil {
		return nil, models.NewNotFoundError("Station not found")
	}
	return station, nil
}

// ListTrains lists every train
func (s *CatalogService) ListTrains(ctx context.Context) ([]models.Train, error) {
	return s.catalog.ListTrains(ctx)
}

// GetTrainDetails returns a train with its route and coaches
func (s *CatalogService) GetTrainDetails(ctx context.Context, trainID int64) (*models.TrainDetails, error) {
	train, err := s.getTrain(ctx, trainID)
	if err != nil {
		return nil, err
	}
	stops, err := s.catalog.ListRouteStops(ctx, trainID)
	if err != nil {
		return nil, err
	}
	coaches, err := s.catalog.ListCoaches(ctx, trainID)
	if err != nil {
		return nil, err
	}
	return &models.TrainDetails{Train: train, Stops: stops, Coaches: coaches}, nil
}

// SearchTrains finds trains from -> to. With a journey date, trains not running that day
// are dropped and each result carries its per-class availability.
func (s *CatalogService) SearchTrains(ctx context.Context, from, to, journeyDate string) ([]models.TrainSearchResult, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == "" || to == "" {
		return nil, models.NewValidationError("from and to stations are required")
	}

	results, err := s.catalog.SearchTrains(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if journeyDate == "" {
		return results, nil
	}

	date, err := time.Parse(models.JourneyDateLayout, journeyDate)
	if err != nil {
		return nil, models.NewValidationError("date must be formatted as YYYY-MM-DD")
	}

	running := results[:0]
	ids := make([]int64, 0, len(results))
	for _, r := range results {
		train := models.Train{RunningDays: r.RunningDays}
		if train.RunsOn(date) {
			running = append(running, r)
			ids = append(ids, r.TrainID)
		}
	}

	classes, err := s.availability.ListForTrains(ctx, ids, journeyDate)
	if err != nil {
		return nil, err
	}
	for i := range running {
		running[i].Classes = classes[running[i].TrainID]
		if running[i].Classes == nil {
			running[i].Classes = []models.ClassAvailability{}
		}
	}
	return running, nil
}

// GetAvailability returns the per-class seat picture of a train on a date
func (s *CatalogService) GetAvailability(ctx context.Context, trainID int64, journeyDate string) ([]models.ClassAvailability, error) {
	if _, err := time.Parse(models.JourneyDateLayout, journeyDate); err != nil {
		return nil, models.NewValidationError("date must be formatted as YYYY-MM-DD")
	}
	if _, err := s.getTrain(ctx, trainID); err != nil {
		return nil, err
	}
	return s.availability.ListForTrain(ctx, trainID, journeyDate)
}

func (s *CatalogService) getTrain(ctx context.Context, trainID int64) (*models.Train, error) {
	train, err := s.catalog.GetTrain(ctx, trainID)
	if err != nil {
		return nil, err
	}
	if train == nil {
		return nil, models.NewNotFoundError("Train not found")
	}
	return train, nil
}
