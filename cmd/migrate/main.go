package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/railconnect/booking-ledger/internal/config"
	"github.com/railconnect/booking-ledger/internal/database"
	"github.com/sirupsen/logrus"
)

const truncateLedgerSQL = `
TRUNCATE TABLE
    cancellations,
    payments,
    waitlist,
    passengers,
    bookings,
    seat_availability
RESTART IDENTITY CASCADE;`

func main() {
	var (
		dbURLFlag string
		command   string
		truncate  bool
	)
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.StringVar(&command, "command", "up", "migration command: up, down, status or version")
	flag.BoolVar(&truncate, "truncate-ledger", false, "empty every ledger table after migrating (catalog data is kept)")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     2,
		MaxIdleConnections: 1,
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db, command, logger); err != nil {
		logger.Fatal(err)
	}

	if truncate {
		if _, err := db.ExecContext(context.Background(), truncateLedgerSQL); err != nil {
			logger.Fatalf("Failed to truncate ledger tables: %v", err)
		}
		fmt.Println("Ledger tables truncated")
	}
}
