package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/railconnect/booking-ledger/internal/config"
	"github.com/sirupsen/logrus"
)

// DB interface defines database operations
type DB interface {
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	PingContext(ctx context.Context) error
	Ping() error
	Close() error
}

// PostgresDB implements the DB interface using sqlx
type PostgresDB struct {
	*sqlx.DB
}

const applicationName = "booking-ledger"

var passwordPattern = regexp.MustCompile(`(postgres(?:ql)?://[^:]+:)([^@]+)(@.+)`)

// maskPassword hides the password of a postgres URL
func maskPassword(url string) string {
	return passwordPattern.ReplaceAllString(url, "${1}****${3}")
}

// ledgerConnConfig parses the URL and tags sessions with the service name so row locks
// held by ledger transactions can be traced in pg_stat_activity. Transaction-mode poolers
// (port 6543) get the simple protocol.
func ledgerConnConfig(url string) (*pgx.ConnConfig, bool, error) {
	pgxConfig, err := pgx.ParseConfig(url)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if _, ok := pgxConfig.RuntimeParams["application_name"]; !ok {
		pgxConfig.RuntimeParams["application_name"] = applicationName
	}

	usingPooler := strings.Contains(url, ":6543")
	if usingPooler {
		pgxConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}
	return pgxConfig, usingPooler, nil
}

// NewConnection opens the sqlx pool shared by the ledger store and the read repositories
func NewConnection(cfg config.DatabaseConfig, logger *logrus.Logger) (*PostgresDB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}
	logger.Infof("Database URL: %s", maskPassword(cfg.URL))

	pgxConfig, usingPooler, err := ledgerConnConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	if usingPooler {
		logger.Info("Detected transaction-mode pooler, using simple protocol")
	}

	db, err := sqlx.Connect("pgx", stdlib.RegisterConnConfig(pgxConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// every booking, payment and cancellation holds one connection for its whole transaction
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxLifetime / 2)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"max_open": cfg.MaxConnections,
		"max_idle": cfg.MaxIdleConnections,
	}).Info("Database pool ready")
	return &PostgresDB{DB: db}, nil
}
