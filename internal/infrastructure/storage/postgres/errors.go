package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"oficina/internal/core/apperror"
)

// PostgreSQL SQLSTATE codes handled by the platform.
const (
	pgLockNotAvailable     = "55P03"
	pgDeadlockDetected     = "40P01"
	pgSerializationFailure = "40001"
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
)

// translateError converts lock-wait and deadlock failures into a retryable
// AppError. Other errors pass through unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if apperror.IsConcurrentModification(err) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable, pgDeadlockDetected, pgSerializationFailure:
			return apperror.NewLockTimeout(err).WithDetail("sqlstate", pgErr.Code)
		}
	}
	return err
}

// IsUniqueViolation reports whether err is a unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// IsForeignKeyViolation reports whether err is a foreign key failure.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}
