package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrDuplicateSubmission is returned when the image URL already has a row.
	ErrDuplicateSubmission = errors.New("submission with this image url already exists")
	// ErrNotFound is returned when no submission matches the id.
	ErrNotFound = errors.New("submission not found")
	// ErrNotPending is returned when a change requires a pending submission
	// but the row has already reached a terminal status.
	ErrNotPending = errors.New("submission is no longer pending")
	// ErrInvalidTransition is returned for a target status that cannot be
	// reached from pending.
	ErrInvalidTransition = errors.New("invalid submission status transition")
)

const pgUniqueViolation = "23505"

// isUniqueViolation recognises unique constraint failures from either driver.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}
