package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// Redis cache configuration
	Redis RedisConfig

	// RabbitMQ event configuration
	RabbitMQ RabbitMQConfig

	// CORS configuration
	CORS CORSConfig

	// Booking ledger policy
	Ledger LedgerConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port             string
	Environment      string // development, staging, production
	LogLevel         string // debug, info, warn, error
	EnableRequestLog bool
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	RunMigrations      bool
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	Issuer            string
	AccessTokenExpiry time.Duration
}

// RedisConfig holds the PNR lookup cache configuration. An empty URL disables the cache.
type RedisConfig struct {
	URL    string
	PNRTTL time.Duration
}

// RabbitMQConfig holds the booking event publisher configuration. An empty URL disables
// publishing.
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// LedgerConfig holds booking ledger policy
type LedgerConfig struct {
	// DefaultCapacity is used when a train has no coach rows for a class; 0 disables it
	DefaultCapacity int
	// CancellationRate is the share of the fare kept as cancellation charge
	CancellationRate float64
	// IDMaxAttempts bounds PNR / transaction id regeneration after a collision
	IDMaxAttempts int
	// TxTimeout bounds every ledger transaction including lock waits
	TxTimeout time.Duration
	// LockTimeout is the Postgres lock_timeout of ledger transactions. It must expire
	// before TxTimeout so a contended counter surfaces as a conflict.
	LockTimeout time.Duration
	// WarmupDays is how many days ahead the warm-up job materialises seat counters
	WarmupDays int
	// WarmupSchedule is the cron spec (with seconds) of the warm-up job; empty disables it
	WarmupSchedule string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:             getEnv("PORT", "8080"),
			Environment:      getEnv("ENVIRONMENT", "development"),
			LogLevel:         getEnv("LOG_LEVEL", "info"),
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 20),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
			RunMigrations:      getEnvAsBool("DATABASE_RUN_MIGRATIONS", true),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			Issuer:            getEnv("JWT_ISSUER", "railconnect-auth"),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		Redis: RedisConfig{
			URL:    getEnv("REDIS_URL", ""),
			PNRTTL: time.Duration(getEnvAsInt("CACHE_PNR_TTL_SECONDS", 30)) * time.Second,
		},
		RabbitMQ: RabbitMQConfig{
			URL:      getEnv("RABBITMQ_URL", ""),
			Exchange: getEnv("RABBITMQ_BOOKING_EXCHANGE", "booking_topic"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Ledger: LedgerConfig{
			DefaultCapacity:  getEnvAsInt("LEDGER_DEFAULT_CAPACITY", 100),
			CancellationRate: getEnvAsFloat("LEDGER_CANCELLATION_RATE", 0.25),
			IDMaxAttempts:    getEnvAsInt("LEDGER_ID_MAX_ATTEMPTS", 10),
			TxTimeout:        time.Duration(getEnvAsInt("LEDGER_TX_TIMEOUT_SECONDS", 10)) * time.Second,
			LockTimeout:      time.Duration(getEnvAsInt("LEDGER_LOCK_TIMEOUT_MS", 2000)) * time.Millisecond,
			WarmupDays:       getEnvAsInt("LEDGER_WARMUP_DAYS", 7),
			WarmupSchedule:   getEnv("LEDGER_WARMUP_SCHEDULE", "0 30 1 * * *"),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Ledger.DefaultCapacity < 0 {
		return fmt.Errorf("LEDGER_DEFAULT_CAPACITY must not be negative")
	}

	if c.Ledger.CancellationRate < 0 || c.Ledger.CancellationRate > 1 {
		return fmt.Errorf("LEDGER_CANCELLATION_RATE must be between 0 and 1")
	}

	if c.Ledger.IDMaxAttempts < 1 {
		return fmt.Errorf("LEDGER_ID_MAX_ATTEMPTS must be at least 1")
	}

	if c.Ledger.TxTimeout <= 0 {
		return fmt.Errorf("LEDGER_TX_TIMEOUT_SECONDS must be positive")
	}

	if c.Ledger.LockTimeout <= 0 || c.Ledger.LockTimeout >= c.Ledger.TxTimeout {
		return fmt.Errorf("LEDGER_LOCK_TIMEOUT_MS must be positive and shorter than LEDGER_TX_TIMEOUT_SECONDS")
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid float value for %s, using default: %g", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
