package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-publish/internal/data/replica"
	domainagg "github.com/yungbote/neurobridge-publish/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
)

func TestResolveInactiveReplicaIsNotFound(t *testing.T) {
	h := newHarness(t)
	owner := uuid.New()
	ctx := actorCtx(owner, publishing.RoleTrusted)
	d := h.seed(t, owner)
	l, err := h.pub.PublishDirect(ctx, d.ID, publishing.VisibilityPublic)
	if err != nil {
		t.Fatalf("PublishDirect: %v", err)
	}
	if got, err := h.resolver.Resolve(context.Background(), l.ID); err != nil || got.Title != d.Title {
		t.Fatalf("Resolve active: got=%v err=%v", got, err)
	}
	if _, err := h.pub.Unpublish(ctx, d.ID); err != nil {
		t.Fatalf("Unpublish: %v", err)
	}
	got, err := h.resolver.Resolve(context.Background(), l.ID)
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("code: want=%s got=%v", domainagg.CodeNotFound, err)
	}
	if got != nil {
		t.Fatalf("inactive replica content leaked: %+v", got)
	}
}

func TestResolveFallsBackToSourceDraftID(t *testing.T) {
	store := replica.NewMemoryStore()
	ctx := context.Background()
	if err := store.Upsert(ctx, &publishing.PublishedLesson{
		ID:            "legacy-7",
		SourceDraftID: "draft-7",
		Title:         "Tides",
		IsActive:      true,
		PublishedAt:   time.Now(),
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	r := NewLessonResolver(logger.Nop(), store, nil)

	got, err := r.Resolve(ctx, "draft-7")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != "legacy-7" {
		t.Fatalf("id: want=legacy-7 got=%s", got.ID)
	}
	if _, err := r.Resolve(ctx, "nope"); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("missing: want=%s got=%v", domainagg.CodeNotFound, err)
	}
}

// deniedStore refuses the keyed path, like a store rule on the primary collection.
type deniedStore struct {
	replica.Store
	denyGet      bool
	denyFallback bool
}

func (s *deniedStore) Get(ctx context.Context, id string) (*publishing.PublishedLesson, error) {
	if s.denyGet {
		return nil, replica.ErrPermissionDenied
	}
	return s.Store.Get(ctx, id)
}

func (s *deniedStore) GetBySourceDraftID(ctx context.Context, id string) (*publishing.PublishedLesson, error) {
	if s.denyFallback {
		return nil, replica.ErrPermissionDenied
	}
	return s.Store.GetBySourceDraftID(ctx, id)
}

func TestResolvePermissionDenied(t *testing.T) {
	mem := replica.NewMemoryStore()
	ctx := context.Background()
	_ = mem.Upsert(ctx, &publishing.PublishedLesson{ID: "l1", SourceDraftID: "l1", IsActive: true, PublishedAt: time.Now()})

	fallback := NewLessonResolver(logger.Nop(), &deniedStore{Store: mem, denyGet: true}, nil)
	if got, err := fallback.Resolve(ctx, "l1"); err != nil || got.ID != "l1" {
		t.Fatalf("fallback after denied: got=%v err=%v", got, err)
	}

	denied := NewLessonResolver(logger.Nop(), &deniedStore{Store: mem, denyGet: true, denyFallback: true}, nil)
	_, err := denied.Resolve(ctx, "l1")
	if !domainagg.IsCode(err, domainagg.CodePermissionDenied) {
		t.Fatalf("code: want=%s got=%v", domainagg.CodePermissionDenied, err)
	}
}

func TestResolveStoreFailureIsRetryable(t *testing.T) {
	store := &erroringStore{Store: replica.NewMemoryStore(), err: errors.New("i/o timeout")}
	r := NewLessonResolver(logger.Nop(), store, nil)
	if _, err := r.Resolve(context.Background(), "x"); !domainagg.IsCode(err, domainagg.CodeRetryable) {
		t.Fatalf("code: want=%s got=%v", domainagg.CodeRetryable, err)
	}
}

type erroringStore struct {
	replica.Store
	err error
}

func (s *erroringStore) Get(context.Context, string) (*publishing.PublishedLesson, error) {
	return nil, s.err
}

func TestListCatalogOnlyListedLessons(t *testing.T) {
	h := newHarness(t)
	owner := uuid.New()
	ctx := actorCtx(owner, publishing.RoleTrusted)
	public := h.seed(t, owner)
	unlisted := h.seed(t, owner)
	hidden := h.seed(t, owner)
	for _, c := range []struct {
		id  uuid.UUID
		vis publishing.Visibility
	}{{public.ID, publishing.VisibilityPublic}, {unlisted.ID, publishing.VisibilityUnlisted}, {hidden.ID, publishing.VisibilityPublic}} {
		if _, err := h.pub.PublishDirect(ctx, c.id, c.vis); err != nil {
			t.Fatalf("PublishDirect: %v", err)
		}
	}
	if _, err := h.pub.Unpublish(ctx, hidden.ID); err != nil {
		t.Fatalf("Unpublish: %v", err)
	}

	rows, err := h.resolver.ListCatalog(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("ListCatalog: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != public.ID.String() {
		t.Fatalf("catalog: want=[%s] got=%d rows", public.ID, len(rows))
	}
	// Unlisted lessons stay resolvable by id.
	if _, err := h.resolver.Resolve(context.Background(), unlisted.ID.String()); err != nil {
		t.Fatalf("Resolve unlisted: %v", err)
	}
}

// gatedStore parks Get until released.
type gatedStore struct {
	replica.Store
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) Get(ctx context.Context, id string) (*publishing.PublishedLesson, error) {
	close(s.entered)
	<-s.release
	return s.Store.Get(ctx, id)
}

func TestResolveSurvivesLeadCallerCancel(t *testing.T) {
	mem := replica.NewMemoryStore()
	_ = mem.Upsert(context.Background(), &publishing.PublishedLesson{ID: "l1", SourceDraftID: "l1", IsActive: true, PublishedAt: time.Now()})
	store := &gatedStore{Store: mem, entered: make(chan struct{}), release: make(chan struct{})}
	r := NewLessonResolver(logger.Nop(), store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		lesson *publishing.PublishedLesson
		err    error
	}
	done := make(chan result, 1)
	go func() {
		l, err := r.Resolve(ctx, "l1")
		done <- result{l, err}
	}()

	<-store.entered
	cancel()
	close(store.release)

	res := <-done
	if res.err != nil {
		t.Fatalf("Resolve after cancel: want=%v got=%v", nil, res.err)
	}
	if res.lesson == nil || res.lesson.ID != "l1" {
		t.Fatalf("lesson: want=%v got=%+v", "l1", res.lesson)
	}
}
