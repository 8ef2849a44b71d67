package aggregates

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode standardizes aggregate failure semantics across the pipeline.
type ErrorCode string

const (
	CodeValidation          ErrorCode = "validation"
	CodeAuthorization       ErrorCode = "authorization"
	CodeModerationBlocked   ErrorCode = "moderation_blocked"
	CodeIllegalTransition   ErrorCode = "illegal_transition"
	CodeConflict            ErrorCode = "conflict"
	CodeNotFound            ErrorCode = "not_found"
	CodeReplicaWriteFailure ErrorCode = "replica_write_failure"
	CodePermissionDenied    ErrorCode = "permission_denied"
	CodeRetryable           ErrorCode = "retryable"
	CodeInternal            ErrorCode = "internal"
)

// Retryable reports whether a caller may repeat the operation unchanged.
func (c ErrorCode) Retryable() bool {
	return c == CodeReplicaWriteFailure || c == CodeRetryable || c == CodeConflict
}

// Error is the canonical aggregate error wrapper.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
	// Reasons is populated for CodeModerationBlocked, verbatim from the gate.
	Reasons []string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an aggregate error with explicit code + operation.
func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates an existing error with aggregate error semantics.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// Blocked builds a moderation-blocked error carrying the gate's reasons unchanged.
func Blocked(op string, reasons []string) error {
	msg := "content blocked by moderation"
	if len(reasons) > 0 {
		msg = msg + ": " + strings.Join(reasons, "; ")
	}
	return &Error{
		Code:    CodeModerationBlocked,
		Op:      strings.TrimSpace(op),
		Message: msg,
		Reasons: append([]string(nil), reasons...),
	}
}

// IsCode checks whether err (or wrapped err) carries the given aggregate code.
func IsCode(err error, code ErrorCode) bool {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return false
	}
	return aggErr.Code == code
}

// CodeOf extracts the aggregate error code when available.
func CodeOf(err error) ErrorCode {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return ""
	}
	return aggErr.Code
}

// ReasonsOf returns moderation reasons carried by err, if any.
func ReasonsOf(err error) []string {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return nil
	}
	return aggErr.Reasons
}

// MessageOf returns the human message without op/code decoration.
func MessageOf(err error) string {
	var aggErr *Error
	if errors.As(err, &aggErr) && strings.TrimSpace(aggErr.Message) != "" {
		return aggErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
