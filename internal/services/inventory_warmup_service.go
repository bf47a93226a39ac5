package services

import (
	"context"
	"fmt"
	"time"

	"github.com/railconnect/booking-ledger/internal/database"
	"github.com/railconnect/booking-ledger/internal/models"
	"github.com/sirupsen/logrus"
)

// TrainClassLister lists every (train, class) pair that can carry inventory
type TrainClassLister interface {
	ListTrainClasses(ctx context.Context) ([]database.TrainClass, error)
}

// InventoryWarmupService creates seat counters ahead of demand so the first booking of
// a day does not pay for counter creation
type InventoryWarmupService struct {
	ledger  database.LedgerStore
	catalog TrainClassLister
	logger  *logrus.Logger
}

// NewInventoryWarmupService creates a new InventoryWarmupService
func NewInventoryWarmupService(ledger database.LedgerStore, catalog TrainClassLister, logger *logrus.Logger) *InventoryWarmupService {
	return &InventoryWarmupService{ledger: ledger, catalog: catalog, logger: logger}
}

// WarmUp ensures a counter exists for every train and class on each running day in
// [start, start+days). Existing counters are left untouched. Returns the number of
// counters ensured.
func (s *InventoryWarmupService) WarmUp(ctx context.Context, start time.Time, days int) (int, error) {
	classes, err := s.catalog.ListTrainClasses(ctx)
	if err != nil {
		return 0, err
	}

	ensured := 0
	for d := 0; d < days; d++ {
		date := start.AddDate(0, 0, d)
		journeyDate := date.Format(models.JourneyDateLayout)

		for _, tc := range classes {
			train := models.Train{RunningDays: tc.RunningDays}
			if !train.RunsOn(date) {
				continue
			}

			key := models.InventoryKey{TrainID: tc.TrainID, JourneyDate: journeyDate, CoachClass: tc.CoachClass}
			err := s.ledger.RunInTx(ctx, func(tx database.LedgerTx) error {
				// Only trains with coaches are listed, so the default capacity never applies
				_, err := database.GetOrInitInventory(tx, key, 0)
				return err
			})
			if err != nil {
				return ensured, fmt.Errorf("failed to warm up %s: %w", key, err)
			}
			ensured++
		}
	}
	return ensured, nil
}
