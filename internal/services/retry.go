package services

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/openshelf/openshelf-server/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	txAttempts    = 3
	txBackoffStep = 50 * time.Millisecond
)

// withRetry runs op, retrying on transient storage contention (deadlocks,
// lock timeouts, serialization failures, SQLite busy). Domain errors pass
// through untouched; retry exhaustion surfaces as a generic conflict.
func withRetry(op func() error) error {
	var err error
	for attempt := 1; attempt <= txAttempts; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		if attempt < txAttempts {
			time.Sleep(time.Duration(attempt) * txBackoffStep)
		}
	}
	return types.NewError(fiber.StatusConflict,
		"The operation could not complete due to concurrent updates, please retry", "conflict")
}

// isRetryable matches the contention errors of the supported dialects.
func isRetryable(err error) bool {
	var ce *types.CustomError
	if errors.As(err, &ce) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{
		"deadlock",
		"lock wait timeout",
		"try restarting transaction",
		"database is locked",
		"database table is locked",
		"sqlite_busy",
		"could not serialize access",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

// lockForUpdate adds a SELECT ... FOR UPDATE clause where the dialect
// supports it. SQLite has a single writer, so the transaction itself is
// the lock there and the clause would be a syntax error.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
