package aggregates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/neurobridge-publish/internal/domain/aggregates"
)

// Sentinels raised inside a write transaction. MapError turns them into
// typed domain errors once the transaction has finished.
var (
	ErrValidation = errors.New("draft write rejected")
	ErrConflict   = errors.New("draft changed concurrently")
	ErrRetryable  = errors.New("draft store temporarily unavailable")
)

func ValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func ConflictError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func RetryableError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRetryable, fmt.Sprintf(format, args...))
}

// pgCodes maps SQLSTATE codes the draft store can raise.
var pgCodes = map[string]domainagg.ErrorCode{
	"23505": domainagg.CodeConflict,         // unique_violation
	"42501": domainagg.CodePermissionDenied, // insufficient_privilege
	"40001": domainagg.CodeRetryable,        // serialization_failure
	"40P01": domainagg.CodeRetryable,        // deadlock_detected
	"55P03": domainagg.CodeRetryable,        // lock_not_available
	"57014": domainagg.CodeRetryable,        // query_canceled
}

// Driver messages for backends without typed errors (sqlite in dev and tests).
var messageCodes = []struct {
	fragment string
	code     domainagg.ErrorCode
}{
	{"unique constraint", domainagg.CodeConflict},
	{"duplicate key", domainagg.CodeConflict},
	{"database is locked", domainagg.CodeRetryable},
	{"deadlock", domainagg.CodeRetryable},
	{"serialization", domainagg.CodeRetryable},
	{"timeout", domainagg.CodeRetryable},
	{"temporar", domainagg.CodeRetryable},
}

// MapError classifies a draft store failure. Errors that already carry a
// domain code pass through untouched.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) {
		return err
	}
	return domainagg.Wrap(classify(err), op, err)
}

func classify(err error) domainagg.ErrorCode {
	switch {
	case errors.Is(err, ErrValidation):
		return domainagg.CodeValidation
	case errors.Is(err, ErrConflict):
		return domainagg.CodeConflict
	case errors.Is(err, ErrRetryable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return domainagg.CodeRetryable
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainagg.CodeNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if code, ok := pgCodes[strings.TrimSpace(pgErr.Code)]; ok {
			return code
		}
		return domainagg.CodeInternal
	}

	msg := strings.ToLower(err.Error())
	for _, m := range messageCodes {
		if strings.Contains(msg, m.fragment) {
			return m.code
		}
	}
	return domainagg.CodeInternal
}
