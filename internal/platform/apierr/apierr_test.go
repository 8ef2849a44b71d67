package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	domainagg "github.com/yungbote/neurobridge-publish/internal/domain/aggregates"
)

func TestFromErrorStatuses(t *testing.T) {
	cases := []struct {
		code   domainagg.ErrorCode
		status int
	}{
		{domainagg.CodeValidation, http.StatusBadRequest},
		{domainagg.CodeAuthorization, http.StatusForbidden},
		{domainagg.CodeIllegalTransition, http.StatusConflict},
		{domainagg.CodeConflict, http.StatusConflict},
		{domainagg.CodeNotFound, http.StatusNotFound},
		{domainagg.CodePermissionDenied, http.StatusNotFound},
		{domainagg.CodeReplicaWriteFailure, http.StatusServiceUnavailable},
		{domainagg.CodeRetryable, http.StatusServiceUnavailable},
		{domainagg.CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		err := fmt.Errorf("wrapped: %w", domainagg.NewError(tc.code, "op", "msg", nil))
		got := FromError(err)
		if got.Status != tc.status {
			t.Fatalf("%s status: want=%d got=%d", tc.code, tc.status, got.Status)
		}
	}
}

func TestFromErrorBlockedCarriesReasons(t *testing.T) {
	got := FromError(domainagg.Blocked("submit", []string{"violence", "spam"}))
	if got.Status != http.StatusUnprocessableEntity || got.Code != string(domainagg.CodeModerationBlocked) {
		t.Fatalf("blocked: status=%d code=%s", got.Status, got.Code)
	}
	if len(got.Reasons) != 2 || got.Reasons[0] != "violence" || got.Reasons[1] != "spam" {
		t.Fatalf("reasons: got=%v", got.Reasons)
	}
}

func TestFromErrorHidesServerDetail(t *testing.T) {
	got := FromError(errors.New("dial tcp 10.0.0.3:5432: connection refused"))
	if got.Status != http.StatusInternalServerError {
		t.Fatalf("status: want=500 got=%d", got.Status)
	}
	if got.Message() != "internal error" {
		t.Fatalf("message: got=%q", got.Message())
	}
	replica := FromError(domainagg.NewError(domainagg.CodeReplicaWriteFailure, "publish", "redis down", nil))
	if replica.Message() == "redis down" {
		t.Fatalf("replica failure leaked cause")
	}
	val := FromError(domainagg.NewError(domainagg.CodeValidation, "update", "title is required", nil))
	if val.Message() != "title is required" {
		t.Fatalf("validation message: got=%q", val.Message())
	}
}

func TestFromErrorPermissionDeniedIsContentUnavailable(t *testing.T) {
	got := FromError(domainagg.NewError(domainagg.CodePermissionDenied, "resolve", "denied", nil))
	if got.Code != CodeContentUnavailable {
		t.Fatalf("code: want=%s got=%s", CodeContentUnavailable, got.Code)
	}
}

func TestFromErrorContext(t *testing.T) {
	got := FromError(context.DeadlineExceeded)
	if got.Status != http.StatusServiceUnavailable {
		t.Fatalf("deadline status: want=503 got=%d", got.Status)
	}
	if FromError(nil) != nil {
		t.Fatalf("nil error should map to nil")
	}
}
