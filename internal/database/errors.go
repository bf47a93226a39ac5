package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation   = "23505"
	pgLockNotAvailable  = "55P03"
	pgCheckViolation    = "23514"
	pgQueryCanceledCode = "57014"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolation reports whether err is a Postgres unique constraint violation
func IsUniqueViolation(err error) bool {
	return pgErrorCode(err) == pgUniqueViolation
}

// IsLockTimeout reports whether err came from lock_timeout or statement cancellation
func IsLockTimeout(err error) bool {
	code := pgErrorCode(err)
	return code == pgLockNotAvailable || code == pgQueryCanceledCode
}

// IsCheckViolation reports whether err is a Postgres CHECK constraint violation
func IsCheckViolation(err error) bool {
	return pgErrorCode(err) == pgCheckViolation
}
