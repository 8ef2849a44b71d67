package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/pkg/ctxutil"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
	"github.com/yungbote/neurobridge-publish/internal/services"
)

func newAuth(t *testing.T) (*AuthMiddleware, services.AuthService) {
	t.Helper()
	auth := services.NewAuthService(logger.Nop(), "test-secret")
	return NewAuthMiddleware(logger.Nop(), auth), auth
}

func token(t *testing.T, auth services.AuthService, role publishing.Role) (string, uuid.UUID) {
	t.Helper()
	id := uuid.New()
	tok, err := auth.IssueToken(publishing.Actor{UserID: id, Role: role}, time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return tok, id
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mw, auth := newAuth(t)

	var seen uuid.UUID
	r := gin.New()
	r.GET("/me", mw.RequireAuth(), func(c *gin.Context) {
		seen = ctxutil.ActorFrom(c.Request.Context()).UserID
		c.Status(http.StatusOK)
	})
	r.GET("/admin", mw.RequireAuth(publishing.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func(path, bearer string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := do("/me", ""); got != http.StatusUnauthorized {
		t.Fatalf("no token: want=401 got=%d", got)
	}
	if got := do("/me", "nope"); got != http.StatusUnauthorized {
		t.Fatalf("bad token: want=401 got=%d", got)
	}
	author, authorID := token(t, auth, publishing.RoleAuthor)
	if got := do("/me", author); got != http.StatusOK {
		t.Fatalf("valid token: want=200 got=%d", got)
	}
	if seen != authorID {
		t.Fatalf("actor: want=%s got=%s", authorID, seen)
	}
	if got := do("/admin", author); got != http.StatusForbidden {
		t.Fatalf("author on admin route: want=403 got=%d", got)
	}
	admin, _ := token(t, auth, publishing.RoleAdmin)
	if got := do("/admin", admin); got != http.StatusOK {
		t.Fatalf("admin: want=200 got=%d", got)
	}
}

func TestRateLimitPerUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userA, userB := uuid.New(), uuid.New()
	r := gin.New()
	r.Use(func(c *gin.Context) {
		id, _ := uuid.Parse(c.GetHeader("X-User"))
		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{Actor: publishing.Actor{UserID: id}})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	r.POST("/submit", RateLimitPerUser(RateLimitConfig{RPS: 0.01, Burst: 2}, nil), func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})

	do := func(user uuid.UUID) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/submit", nil).WithContext(context.Background())
		req.Header.Set("X-User", user.String())
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if got := do(userA).Code; got != http.StatusAccepted {
			t.Fatalf("request %d: want=202 got=%d", i, got)
		}
	}
	rec := do(userA)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("over burst: want=429 got=%d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After header")
	}
	if got := do(userB).Code; got != http.StatusAccepted {
		t.Fatalf("other user: want=202 got=%d", got)
	}
}

func TestTraceContextEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	var got *ctxutil.TraceData
	r.GET("/x", func(c *gin.Context) {
		got = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got == nil || got.RequestID != "req-1" || got.TraceID == "" {
		t.Fatalf("trace data: %+v", got)
	}
	if rec.Header().Get("X-Request-Id") != "req-1" {
		t.Fatalf("request id header: got=%q", rec.Header().Get("X-Request-Id"))
	}
}
