package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/railconnect/booking-ledger/internal/models"
)

// CatalogRepository handles read-only station, train, route and coach queries
type CatalogRepository struct {
	db DB
}

// NewCatalogRepository creates a new CatalogRepository
func NewCatalogRepository(db DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// SearchStations matches the query against station code, name and city. An empty query
// lists every station.
func (r *CatalogRepository) SearchStations(ctx context.Context, query string, limit int) ([]models.Station, error) {
	stations := []models.Station{}
	err := r.db.SelectContext(ctx, &stations, `
		SELECT station_id, station_code, station_name, city, state
		FROM stations
		WHERE $1 = ''
		   OR station_code ILIKE $1 || '%'
		   OR station_name ILIKE '%' || $1 || '%'
		   OR city ILIKE '%' || $1 || '%'
		ORDER BY station_name
		LIMIT $2`, strings.TrimSpace(query), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search stations: %w", err)
	}
	return stations, nil
}

// GetStationByCode returns nil when no station has the code
func (r *CatalogRepository) GetStationByCode(ctx context.Context, code string) (*models.Station, error) {
	var station models.Station
	err := r.db.GetContext(ctx, &station, `
		SELECT station_id, station_code, station_name, city, state
		FROM stations WHERE station_code = $1`, strings.ToUpper(code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get station: %w", err)
	}
	return &station, nil
}

const trainQuery = `
	SELECT t.train_id, t.train_number, t.train_name, t.train_type, t.running_days,
	       t.source_station_id, t.destination_station_id,
	       ss.station_code AS source_code, ss.station_name AS source_name,
	       ds.station_code AS destination_code, ds.station_name AS destination_name
	FROM trains t
	JOIN stations ss ON ss.station_id = t.source_station_id
	JOIN stations ds ON ds.station_id = t.destination_station_id`

// GetTrain returns nil when the train does not exist
func (r *CatalogRepository) GetTrain(ctx context.Context, trainID int64) (*models.Train, error) {
	var train models.Train
	err := r.db.GetContext(ctx, &train, trainQuery+`
	WHERE t.train_id = $1`, trainID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get train: %w", err)
	}
	return &train, nil
}

// ListTrains lists every train ordered by number
func (r *CatalogRepository) ListTrains(ctx context.Context) ([]models.Train, error) {
	trains := []models.Train{}
	if err := r.db.SelectContext(ctx, &trains, trainQuery+`
	ORDER BY t.train_number`); err != nil {
		return nil, fmt.Errorf("failed to list trains: %w", err)
	}
	return trains, nil
}

// ListRouteStops lists the stops of a train in route order
func (r *CatalogRepository) ListRouteStops(ctx context.Context, trainID int64) ([]models.RouteStop, error) {
	stops := []models.RouteStop{}
	err := r.db.SelectContext(ctx, &stops, `
		SELECT rs.train_id, rs.station_id, rs.stop_order, rs.arrival_time, rs.departure_time,
		       rs.distance_km, s.station_code, s.station_name, s.city
		FROM route_stops rs
		JOIN stations s ON s.station_id = rs.station_id
		WHERE rs.train_id = $1
		ORDER BY rs.stop_order`, trainID)
	if err != nil {
		return nil, fmt.Errorf("failed to list route stops: %w", err)
	}
	return stops, nil
}

// ListCoaches lists the coaches of a train
func (r *CatalogRepository) ListCoaches(ctx context.Context, trainID int64) ([]models.Coach, error) {
	coaches := []models.Coach{}
	err := r.db.SelectContext(ctx, &coaches, `
		SELECT coach_id, train_id, coach_type, coach_number, total_seats, base_fare
		FROM coaches
		WHERE train_id = $1
		ORDER BY coach_type, coach_number`, trainID)
	if err != nil {
		return nil, fmt.Errorf("failed to list coaches: %w", err)
	}
	return coaches, nil
}

// SearchTrains finds trains that stop at fromCode before toCode
func (r *CatalogRepository) SearchTrains(ctx context.Context, fromCode, toCode string) ([]models.TrainSearchResult, error) {
	results := []models.TrainSearchResult{}
	err := r.db.SelectContext(ctx, &results, `
		SELECT t.train_id, t.train_number, t.train_name, t.train_type, t.running_days,
		       fs.station_code AS from_code, fs.station_name AS from_station,
		       ts.station_code AS to_code, ts.station_name AS to_station,
		       rf.departure_time, rt.arrival_time,
		       (rt.distance_km - rf.distance_km) AS distance_km
		FROM trains t
		JOIN route_stops rf ON rf.train_id = t.train_id
		JOIN stations fs ON fs.station_id = rf.station_id
		JOIN route_stops rt ON rt.train_id = t.train_id
		JOIN stations ts ON ts.station_id = rt.station_id
		WHERE fs.station_code = $1
		  AND ts.station_code = $2
		  AND rf.stop_order < rt.stop_order
		ORDER BY rf.departure_time NULLS LAST, t.train_number`,
		strings.ToUpper(fromCode), strings.ToUpper(toCode))
	if err != nil {
		return nil, fmt.Errorf("failed to search trains: %w", err)
	}
	return results, nil
}

// GetSegmentDistance returns the distance between two stops of a train. found is false
// when either station is not on the route or they are not in travel order.
func (r *CatalogRepository) GetSegmentDistance(ctx context.Context, trainID int64, fromCode, toCode string) (distance float64, found bool, err error) {
	err = r.db.GetContext(ctx, &distance, `
		SELECT (rt.distance_km - rf.distance_km)
		FROM route_stops rf
		JOIN stations fs ON fs.station_id = rf.station_id
		JOIN route_stops rt ON rt.train_id = rf.train_id
		JOIN stations ts ON ts.station_id = rt.station_id
		WHERE rf.train_id = $1
		  AND fs.station_code = $2
		  AND ts.station_code = $3
		  AND rf.stop_order < rt.stop_order`,
		trainID, strings.ToUpper(fromCode), strings.ToUpper(toCode))
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get segment distance: %w", err)
	}
	return distance, true, nil
}

// GetBaseFare returns the lowest base fare of the class on the train. found is false when
// the train has no coach of that class.
func (r *CatalogRepository) GetBaseFare(ctx context.Context, trainID int64, coachClass string) (fare float64, found bool, err error) {
	var baseFare sql.NullFloat64
	err = r.db.GetContext(ctx, &baseFare, `
		SELECT MIN(base_fare) FROM coaches WHERE train_id = $1 AND coach_type = $2`,
		trainID, coachClass)
	if err != nil {
		return 0, false, fmt.Errorf("failed to get base fare: %w", err)
	}
	if !baseFare.Valid {
		return 0, false, nil
	}
	return baseFare.Float64, true, nil
}

// TrainClass is one coach class a train carries
type TrainClass struct {
	TrainID     int64  `db:"train_id"`
	RunningDays string `db:"running_days"`
	CoachClass  string `db:"coach_type"`
}

// ListTrainClasses lists every (train, coach class) pair with the train's running days
func (r *CatalogRepository) ListTrainClasses(ctx context.Context) ([]TrainClass, error) {
	classes := []TrainClass{}
	err := r.db.SelectContext(ctx, &classes, `
		SELECT DISTINCT t.train_id, t.running_days, c.coach_type
		FROM trains t
		JOIN coaches c ON c.train_id = t.train_id
		ORDER BY t.train_id, c.coach_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to list train classes: %w", err)
	}
	return classes, nil
}
