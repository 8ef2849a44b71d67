package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-publish/internal/data/replica"
	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
	"github.com/yungbote/neurobridge-publish/internal/services"
)

// readDeniedStore refuses reads of one id on both lookup paths.
type readDeniedStore struct {
	replica.Store
	id string
}

func (s *readDeniedStore) Get(ctx context.Context, id string) (*publishing.PublishedLesson, error) {
	if id == s.id {
		return nil, replica.ErrPermissionDenied
	}
	return s.Store.Get(ctx, id)
}

func (s *readDeniedStore) GetBySourceDraftID(ctx context.Context, id string) (*publishing.PublishedLesson, error) {
	if id == s.id {
		return nil, replica.ErrPermissionDenied
	}
	return s.Store.GetBySourceDraftID(ctx, id)
}

func TestCatalogGetHidesWhyALessonIsUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	mem := replica.NewMemoryStore()
	now := time.Now().UTC()
	_ = mem.Upsert(ctx, &publishing.PublishedLesson{ID: "denied", SourceDraftID: "denied", IsActive: true, PublishedAt: now})
	_ = mem.Upsert(ctx, &publishing.PublishedLesson{ID: "hidden", SourceDraftID: "hidden", IsActive: false, PublishedAt: now})

	h := NewCatalogHandler(services.NewLessonResolver(logger.Nop(), &readDeniedStore{Store: mem, id: "denied"}, nil))
	r := gin.New()
	r.GET("/lessons/:id", h.Get)

	get := func(id string) (int, string) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lessons/"+id, nil))
		return rec.Code, rec.Body.String()
	}

	missingCode, missingBody := get("missing")
	if missingCode != http.StatusNotFound {
		t.Fatalf("missing: want=404 got=%d", missingCode)
	}
	for _, id := range []string{"denied", "hidden"} {
		code, body := get(id)
		if code != missingCode || body != missingBody {
			t.Fatalf("%s: want=%d %s got=%d %s", id, missingCode, missingBody, code, body)
		}
	}
	want := `{"error":{"message":"lesson unavailable","code":"content_unavailable"}}`
	if missingBody != want {
		t.Fatalf("body: want=%s got=%s", want, missingBody)
	}
}
