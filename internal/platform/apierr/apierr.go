package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	domainagg "github.com/yungbote/neurobridge-publish/internal/domain/aggregates"
)

type Error struct {
	Status  int
	Code    string
	Err     error
	Reasons []string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

// Message is the client-facing text. Server errors never leak their cause.
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	if e.Status >= http.StatusInternalServerError {
		if e.Status == http.StatusServiceUnavailable {
			return "temporarily unavailable, please retry"
		}
		return "internal error"
	}
	if msg := domainagg.MessageOf(e.Err); msg != "" {
		return msg
	}
	return e.Error()
}

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

const (
	CodeContentUnavailable = "content_unavailable"
	CodeRateLimited        = "rate_limited"
	CodeUnauthorized       = "unauthorized"
	CodeBadRequest         = "bad_request"
)

// FromError maps a typed error to its HTTP status and public code.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return New(http.StatusServiceUnavailable, string(domainagg.CodeRetryable), err)
	}
	code := domainagg.CodeOf(err)
	out := &Error{Code: string(code), Err: err}
	switch code {
	case domainagg.CodeValidation:
		out.Status = http.StatusBadRequest
	case domainagg.CodeAuthorization:
		out.Status = http.StatusForbidden
	case domainagg.CodeModerationBlocked:
		out.Status = http.StatusUnprocessableEntity
		out.Reasons = domainagg.ReasonsOf(err)
	case domainagg.CodeIllegalTransition, domainagg.CodeConflict:
		out.Status = http.StatusConflict
	case domainagg.CodeNotFound:
		out.Status = http.StatusNotFound
	case domainagg.CodePermissionDenied:
		// Indistinguishable from a missing lesson to callers.
		out.Status = http.StatusNotFound
		out.Code = CodeContentUnavailable
	case domainagg.CodeReplicaWriteFailure, domainagg.CodeRetryable:
		out.Status = http.StatusServiceUnavailable
	default:
		out.Status = http.StatusInternalServerError
		out.Code = string(domainagg.CodeInternal)
	}
	return out
}
