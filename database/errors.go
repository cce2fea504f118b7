package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/kbukum/usersvc/errors"
)

// Driver messages matched case-insensitively. pgx, database/sql and the
// sqlite driver do not share typed errors for these.
var (
	connectionMessages = []string{
		"connection refused", "connection reset", "connection closed", "connection lost",
		"broken pipe", "i/o timeout", "no route to host", "network is unreachable",
		"driver: bad connection", "invalid connection",
	}
	contentionMessages = []string{
		"deadlock", "lock timeout", "database is locked",
		"too many connections", "connection pool exhausted",
	}
	duplicateMessages = []string{"unique constraint failed", "duplicate key value"}
)

// IsConnectionError reports a lost or unreachable server.
func IsConnectionError(err error) bool { return matches(err, connectionMessages) }

// IsRetryableError reports errors a retry may clear: connection loss,
// lock contention, pool exhaustion.
func IsRetryableError(err error) bool {
	return IsConnectionError(err) || matches(err, contentionMessages)
}

func IsNotFoundError(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }

// IsDuplicateError reports a unique-constraint violation, whether GORM
// translated it or it came raw from Exec.
func IsDuplicateError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || matches(err, duplicateMessages)
}

// FromDatabase maps a storage error onto the API error taxonomy:
// not found 404, duplicate 409, retryable 503, anything else 500. An
// AppError passes through unchanged.
func FromDatabase(err error, resource string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}
	switch {
	case IsNotFoundError(err):
		return apperrors.NotFound(resource, "")
	case IsDuplicateError(err):
		return apperrors.AlreadyExists(resource).WithCause(err)
	case IsRetryableError(err):
		return apperrors.Unavailable(err)
	}
	return apperrors.DatabaseError(err)
}

func matches(err error, messages []string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range messages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
