package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/railconnect/booking-ledger/internal/models"
)

// InventoryScopeTx is what seat counter initialisation needs from a ledger transaction
type InventoryScopeTx interface {
	CatalogTx
	InventoryTx
}

// GetOrInitInventory returns the locked seat counter for key, creating it from the coach
// capacity when it does not exist yet. defaultCapacity is persisted when the train has no
// coaches of the class; zero disables that fallback.
func GetOrInitInventory(tx InventoryScopeTx, key models.InventoryKey, defaultCapacity int) (*models.SeatAvailability, error) {
	availability, err := tx.LockSeatAvailability(key)
	if err != nil {
		return nil, err
	}
	if availability != nil {
		return availability, nil
	}

	coaches, err := tx.CoachesForClass(key.TrainID, key.CoachClass)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, coach := range coaches {
		total += coach.TotalSeats
	}
	if len(coaches) == 0 {
		if defaultCapacity <= 0 {
			return nil, models.NewNotFoundError("no %s coaches on train %d", key.CoachClass, key.TrainID)
		}
		total = defaultCapacity
	}

	if err := tx.InsertSeatAvailability(key, total); err != nil {
		return nil, err
	}

	availability, err = tx.LockSeatAvailability(key)
	if err != nil {
		return nil, err
	}
	if availability == nil {
		return nil, fmt.Errorf("seat availability %s missing after insert", key)
	}
	return availability, nil
}

// DecrementInventory takes n seats from the counter
func DecrementInventory(tx InventoryTx, key models.InventoryKey, n int) error {
	ok, err := tx.AdjustSeatAvailability(key, -n)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewInventoryInvariantError("cannot take %d seats from %s", n, key)
	}
	return nil
}

// IncrementInventory returns n seats to the counter
func IncrementInventory(tx InventoryTx, key models.InventoryKey, n int) error {
	ok, err := tx.AdjustSeatAvailability(key, n)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewInventoryInvariantError("cannot return %d seats to %s", n, key)
	}
	return nil
}

func (t *pgLedgerTx) LockSeatAvailability(key models.InventoryKey) (*models.SeatAvailability, error) {
	var availability models.SeatAvailability
	err := t.tx.GetContext(t.ctx, &availability, `
		SELECT train_id, to_char(journey_date, 'YYYY-MM-DD') AS journey_date, coach_type,
		       available_seats, total_seats
		FROM seat_availability
		WHERE train_id = $1 AND journey_date = $2 AND coach_type = $3
		FOR UPDATE`, key.TrainID, key.JourneyDate, key.CoachClass)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock seat availability %s: %w", key, err)
	}
	return &availability, nil
}

// InsertSeatAvailability creates a full counter. A concurrent creator winning the race is
// not an error; the caller re-locks the row afterwards.
func (t *pgLedgerTx) InsertSeatAvailability(key models.InventoryKey, totalSeats int) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO seat_availability (train_id, journey_date, coach_type, available_seats, total_seats)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (train_id, journey_date, coach_type) DO NOTHING`,
		key.TrainID, key.JourneyDate, key.CoachClass, totalSeats)
	if err != nil {
		return fmt.Errorf("failed to create seat availability %s: %w", key, err)
	}
	return nil
}

func (t *pgLedgerTx) AdjustSeatAvailability(key models.InventoryKey, delta int) (bool, error) {
	result, err := t.tx.ExecContext(t.ctx, `
		UPDATE seat_availability
		SET available_seats = available_seats + $4, updated_at = NOW()
		WHERE train_id = $1 AND journey_date = $2 AND coach_type = $3
		  AND available_seats + $4 >= 0
		  AND available_seats + $4 <= total_seats`,
		key.TrainID, key.JourneyDate, key.CoachClass, delta)
	if err != nil {
		if IsCheckViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to adjust seat availability %s: %w", key, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

// InventoryRepository serves read-only views of the seat counters
type InventoryRepository struct {
	db DB
}

// NewInventoryRepository creates a new InventoryRepository
func NewInventoryRepository(db DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

const classAvailabilityQuery = `
	SELECT c.train_id, c.coach_type,
	       COALESCE(MAX(sa.available_seats), SUM(c.total_seats))::int AS available_seats,
	       COALESCE(MAX(sa.total_seats), SUM(c.total_seats))::int AS total_seats,
	       MIN(c.base_fare) AS base_fare
	FROM coaches c
	LEFT JOIN seat_availability sa
	       ON sa.train_id = c.train_id AND sa.coach_type = c.coach_type AND sa.journey_date = $2
	WHERE c.train_id = ANY($1)
	GROUP BY c.train_id, c.coach_type
	ORDER BY c.train_id, c.coach_type`

type trainClassAvailability struct {
	TrainID int64 `db:"train_id"`
	models.ClassAvailability
}

// ListForTrain lists the per-class seat picture of a train on a date. Classes whose counter
// has not been created yet report their full coach capacity.
func (r *InventoryRepository) ListForTrain(ctx context.Context, trainID int64, journeyDate string) ([]models.ClassAvailability, error) {
	byTrain, err := r.ListForTrains(ctx, []int64{trainID}, journeyDate)
	if err != nil {
		return nil, err
	}
	classes := byTrain[trainID]
	if classes == nil {
		classes = []models.ClassAvailability{}
	}
	return classes, nil
}

// ListForTrains is ListForTrain for many trains in one query
func (r *InventoryRepository) ListForTrains(ctx context.Context, trainIDs []int64, journeyDate string) (map[int64][]models.ClassAvailability, error) {
	result := make(map[int64][]models.ClassAvailability, len(trainIDs))
	if len(trainIDs) == 0 {
		return result, nil
	}

	var rows []trainClassAvailability
	if err := r.db.SelectContext(ctx, &rows, classAvailabilityQuery, pq.Array(trainIDs), journeyDate); err != nil {
		return nil, fmt.Errorf("failed to list seat availability: %w", err)
	}
	for _, row := range rows {
		result[row.TrainID] = append(result[row.TrainID], row.ClassAvailability)
	}
	return result, nil
}
