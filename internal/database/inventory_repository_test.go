package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/railconnect/booking-ledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runInMockTx(t *testing.T, mock sqlmock.Sqlmock, db *PostgresDB, fn func(tx LedgerTx) error) error {
	t.Helper()
	repo := NewLedgerRepository(db, 0)
	return repo.RunInTx(context.Background(), fn)
}

func TestGetOrInitInventory(t *testing.T) {
	t.Run("Existing counter", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM seat_availability (.+) FOR UPDATE`).
			WithArgs(testKey.TrainID, testKey.JourneyDate, testKey.CoachClass).
			WillReturnRows(sqlmock.NewRows(availabilityColumns).AddRow(7, "2025-03-14", "3AC", 12, 72))
		mock.ExpectCommit()

		var availability *models.SeatAvailability
		err := runInMockTx(t, mock, db, func(tx LedgerTx) error {
			var err error
			availability, err = GetOrInitInventory(tx, testKey, 100)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, 12, availability.AvailableSeats)
		assert.Equal(t, 72, availability.TotalSeats)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Created from coach capacity", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM seat_availability`).
			WillReturnRows(sqlmock.NewRows(availabilityColumns))
		mock.ExpectQuery(`SELECT (.+) FROM coaches`).
			WithArgs(testKey.TrainID, testKey.CoachClass).
			WillReturnRows(sqlmock.NewRows([]string{"coach_id", "train_id", "coach_type", "coach_number", "total_seats", "base_fare"}).
				AddRow(1, 7, "3AC", "B1", 72, 1200.0).
				AddRow(2, 7, "3AC", "B2", 64, 1200.0))
		mock.ExpectExec(`INSERT INTO seat_availability (.+) ON CONFLICT`).
			WithArgs(testKey.TrainID, testKey.JourneyDate, testKey.CoachClass, 136).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT (.+) FROM seat_availability`).
			WillReturnRows(sqlmock.NewRows(availabilityColumns).AddRow(7, "2025-03-14", "3AC", 136, 136))
		mock.ExpectCommit()

		var availability *models.SeatAvailability
		err := runInMockTx(t, mock, db, func(tx LedgerTx) error {
			var err error
			availability, err = GetOrInitInventory(tx, testKey, 100)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, 136, availability.AvailableSeats)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Default capacity without coaches", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM seat_availability`).
			WillReturnRows(sqlmock.NewRows(availabilityColumns))
		mock.ExpectQuery(`SELECT (.+) FROM coaches`).
			WillReturnRows(sqlmock.NewRows([]string{"coach_id"}))
		mock.ExpectExec(`INSERT INTO seat_availability`).
			WithArgs(testKey.TrainID, testKey.JourneyDate, testKey.CoachClass, 100).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT (.+) FROM seat_availability`).
			WillReturnRows(sqlmock.NewRows(availabilityColumns).AddRow(7, "2025-03-14", "3AC", 100, 100))
		mock.ExpectCommit()

		err := runInMockTx(t, mock, db, func(tx LedgerTx) error {
			_, err := GetOrInitInventory(tx, testKey, 100)
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("No coaches and fallback disabled", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM seat_availability`).
			WillReturnRows(sqlmock.NewRows(availabilityColumns))
		mock.ExpectQuery(`SELECT (.+) FROM coaches`).
			WillReturnRows(sqlmock.NewRows([]string{"coach_id"}))
		mock.ExpectRollback()

		err := runInMockTx(t, mock, db, func(tx LedgerTx) error {
			_, err := GetOrInitInventory(tx, testKey, 0)
			return err
		})
		assert.True(t, models.IsLedgerErrorKind(err, models.ErrKindNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAdjustInventory(t *testing.T) {
	t.Run("Decrement within capacity", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE seat_availability`).
			WithArgs(testKey.TrainID, testKey.JourneyDate, testKey.CoachClass, -2).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := runInMockTx(t, mock, db, func(tx LedgerTx) error {
			return DecrementInventory(tx, testKey, 2)
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Guard rejects decrement", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE seat_availability`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := runInMockTx(t, mock, db, func(tx LedgerTx) error {
			return DecrementInventory(tx, testKey, 3)
		})
		assert.True(t, models.IsLedgerErrorKind(err, models.ErrKindInventoryInvariant))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Guard rejects increment past total", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE seat_availability`).
			WithArgs(testKey.TrainID, testKey.JourneyDate, testKey.CoachClass, 4).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := runInMockTx(t, mock, db, func(tx LedgerTx) error {
			return IncrementInventory(tx, testKey, 4)
		})
		assert.True(t, models.IsLedgerErrorKind(err, models.ErrKindInventoryInvariant))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInventoryRepository_ListForTrain(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInventoryRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM coaches c LEFT JOIN seat_availability`).
		WithArgs(sqlmock.AnyArg(), "2025-03-14").
		WillReturnRows(sqlmock.NewRows([]string{"train_id", "coach_type", "available_seats", "total_seats", "base_fare"}).
			AddRow(7, "2A", 40, 48, 2100.0).
			AddRow(7, "3AC", 72, 72, 1200.0))

	classes, err := repo.ListForTrain(context.Background(), 7, "2025-03-14")
	require.NoError(t, err)
	require.Len(t, classes, 2)
	assert.Equal(t, "2A", classes[0].CoachClass)
	assert.Equal(t, 40, classes[0].AvailableSeats)
	assert.Equal(t, 1200.0, classes[1].BaseFare)
	assert.NoError(t, mock.ExpectationsWereMet())
}
