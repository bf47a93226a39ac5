package services

import (
	"context"
	"testing"

	"github.com/railconnect/booking-ledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	stations []models.Station
	trains   map[int64]models.Train
	results  []models.TrainSearchResult
	limit    int
}

func (c *fakeCatalog) SearchStations(ctx context.Context, query string, limit int) ([]models.Station, error) {
	c.limit = limit
	return c.stations, nil
}

func (c *fakeCatalog) GetStationByCode(ctx context.Context, code string) (*models.Station, error) {
	for _, s := range c.stations {
		if s.Code == code {
			return &s, nil
		}
	}
	return nil, nil
}

func (c *fakeCatalog) GetTrain(ctx context.Context, trainID int64) (*models.Train, error) {
	train, ok := c.trains[trainID]
	if !ok {
		return nil, nil
	}
	return &train, nil
}

func (c *fakeCatalog) ListTrains(ctx context.Context) ([]models.Train, error) {
	trains := make([]models.Train, 0, len(c.trains))
	for _, t := range c.trains {
		trains = append(trains, t)
	}
	return trains, nil
}

func (c *fakeCatalog) ListRouteStops(ctx context.Context, trainID int64) ([]models.RouteStop, error) {
	return []models.RouteStop{{TrainID: trainID, StationID: 1, StopOrder: 1}, {TrainID: trainID, StationID: 2, StopOrder: 2, DistanceKm: 1384}}, nil
}

func (c *fakeCatalog) ListCoaches(ctx context.Context, trainID int64) ([]models.Coach, error) {
	return []models.Coach{{TrainID: trainID, CoachClass: "3AC", CoachNumber: "B1", TotalSeats: 72, BaseFare: 1500}}, nil
}

func (c *fakeCatalog) SearchTrains(ctx context.Context, fromCode, toCode string) ([]models.TrainSearchResult, error) {
	out := make([]models.TrainSearchResult, len(c.results))
	copy(out, c.results)
	return out, nil
}

type fakeAvailability struct {
	requested []int64
}

func (a *fakeAvailability) ListForTrain(ctx context.Context, trainID int64, journeyDate string) ([]models.ClassAvailability, error) {
	return []models.ClassAvailability{{CoachClass: "3AC", AvailableSeats: 70, TotalSeats: 72, BaseFare: 1500}}, nil
}

func (a *fakeAvailability) ListForTrains(ctx context.Context, trainIDs []int64, journeyDate string) (map[int64][]models.ClassAvailability, error) {
	a.requested = trainIDs
	return map[int64][]models.ClassAvailability{
		7: {{CoachClass: "3AC", AvailableSeats: 70, TotalSeats: 72}},
	}, nil
}

func newCatalogFixture() (*CatalogService, *fakeCatalog, *fakeAvailability) {
	catalog := &fakeCatalog{
		stations: []models.Station{{ID: 1, Code: "NDLS", Name: "New Delhi"}},
		trains:   map[int64]models.Train{7: {ID: 7, Number: "12951", RunningDays: "SMTWTFS"}},
		results: []models.TrainSearchResult{
			{TrainID: 7, TrainNumber: "12951", RunningDays: "SMTWTFS"},
			{TrainID: 8, TrainNumber: "12953", RunningDays: "-M-W-F-"},
			{TrainID: 9, TrainNumber: "12909", RunningDays: "S-----S"},
		},
	}
	availability := &fakeAvailability{}
	return NewCatalogService(catalog, availability), catalog, availability
}

func TestCatalogService_SearchTrains(t *testing.T) {
	svc, _, availability := newCatalogFixture()
	ctx := context.Background()

	t.Run("Without date", func(t *testing.T) {
		results, err := svc.SearchTrains(ctx, "ndls", "bct", "")
		require.NoError(t, err)
		assert.Len(t, results, 3)
		assert.Nil(t, results[0].Classes)
	})

	t.Run("Friday drops trains not running", func(t *testing.T) {
		results, err := svc.SearchTrains(ctx, "NDLS", "BCT", "2025-03-14")
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, []int64{7, 8}, availability.requested)
		assert.Len(t, results[0].Classes, 1)
		assert.NotNil(t, results[1].Classes)
		assert.Empty(t, results[1].Classes)
	})

	t.Run("Bad date", func(t *testing.T) {
		_, err := svc.SearchTrains(ctx, "NDLS", "BCT", "14-03-2025")
		assert.True(t, models.IsLedgerErrorKind(err, models.ErrKindValidation))
	})

	t.Run("Missing station", func(t *testing.T) {
		_, err := svc.SearchTrains(ctx, "NDLS", " ", "")
		assert.True(t, models.IsLedgerErrorKind(err, models.ErrKindValidation))
	})
}

func TestCatalogService_Lookups(t *testing.T) {
	svc, catalog, _ := newCatalogFixture()
	ctx := context.Background()

	station, err := svc.GetStation(ctx, " ndls ")
	require.NoError(t, err)
	assert.Equal(t, "New Delhi", station.Name)

	_, err = svc.GetStation(ctx, "XXX")
	assert.True(t, models.IsLedgerErrorKind(err, models.ErrKindNotFound))

	details, err := svc.GetTrainDetails(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "12951", details.Train.Number)
	assert.Len(t, details.Stops, 2)
	assert.Len(t, details.Coaches, 1)

	trains, err := svc.ListTrains(ctx)
	require.NoError(t, err)
	assert.Len(t, trains, len(catalog.trains))

	_, err = svc.GetTrainDetails(ctx, 99)
	assert.True(t, models.IsLedgerErrorKind(err, models.ErrKindNotFound))

	classes, err := svc.GetAvailability(ctx, 7, "2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, 70, classes[0].AvailableSeats)

	_, err = svc.GetAvailability(ctx, 99, "2025-03-14")
	assert.True(t, models.IsLedgerErrorKind(err, models.ErrKindNotFound))

	_, err = svc.SearchStations(ctx, "del", 500)
	require.NoError(t, err)
	assert.Equal(t, maxStationLimit, catalog.limit)

	_, err = svc.SearchStations(ctx, "del", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultStationLimit, catalog.limit)
}
