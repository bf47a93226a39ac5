package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/railconnect/booking-ledger/internal/models"
)

// IDGenerator produces candidate identifiers. Uniqueness is not guaranteed here; callers
// insert under a UNIQUE constraint and ask for a fresh candidate on conflict.
type IDGenerator interface {
	NewPNR() (string, error)
	NewTransactionID() (string, error)
}

// RandomIDGenerator generates PNRs and transaction ids from the clock and crypto/rand
type RandomIDGenerator struct {
	now func() time.Time
}

// NewRandomIDGenerator creates a new RandomIDGenerator
func NewRandomIDGenerator() *RandomIDGenerator {
	return &RandomIDGenerator{now: time.Now}
}

// NewPNR returns a 10 digit PNR: the last 6 digits of the millisecond clock followed by
// 4 random digits
// Example: 4829173306
func (g *RandomIDGenerator) NewPNR() (string, error) {
	suffix, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("failed to generate random digits: %w", err)
	}
	return fmt.Sprintf("%06d%04d", g.now().UnixMilli()%1000000, suffix.Int64()), nil
}

// NewTransactionID returns "TXN" followed by 16 uppercase hex characters
// Example: TXN8F3A2C19D04E6B71
func (g *RandomIDGenerator) NewTransactionID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate transaction id: %w", err)
	}
	hex := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
	return "TXN" + hex[:16], nil
}

// insertWithFreshID calls insert with new candidates from next until one does not
// conflict. Any error other than a ConflictError stops the loop.
func insertWithFreshID(maxAttempts int, next func() (string, error), insert func(id string) error) (string, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		id, err := next()
		if err != nil {
			return "", err
		}
		err = insert(id)
		if err == nil {
			return id, nil
		}
		if !models.IsLedgerErrorKind(err, models.ErrKindConflict) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("failed to generate a unique identifier after %d attempts: %w", maxAttempts, lastErr)
}
