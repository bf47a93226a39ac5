package database

import (
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/railconnect/booking-ledger/internal/database/migrations"
	"github.com/sirupsen/logrus"
)

// Migrate applies the embedded goose migrations. Supported commands are up, down, status
// and version.
func Migrate(db *PostgresDB, command string, logger *logrus.Logger) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(logger)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	var err error
	switch command {
	case "up":
		err = goose.Up(db.DB.DB, ".")
	case "down":
		err = goose.Down(db.DB.DB, ".")
	case "status":
		err = goose.Status(db.DB.DB, ".")
	case "version":
		err = goose.Version(db.DB.DB, ".")
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", command, err)
	}
	return nil
}
