package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-publish/internal/data/aggregates"
	"github.com/yungbote/neurobridge-publish/internal/data/replica"
	"github.com/yungbote/neurobridge-publish/internal/data/repos"
	"github.com/yungbote/neurobridge-publish/internal/data/repos/testutil"
	domainagg "github.com/yungbote/neurobridge-publish/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/observability"
	"github.com/yungbote/neurobridge-publish/internal/pkg/ctxutil"
	"github.com/yungbote/neurobridge-publish/internal/pkg/dbctx"
	"github.com/yungbote/neurobridge-publish/internal/platform/moderation"
	"github.com/yungbote/neurobridge-publish/internal/realtime"
	"github.com/yungbote/neurobridge-publish/internal/realtime/bus"
)

// scriptedGate returns a fixed verdict and counts calls. When hold is set,
// Check signals entered and waits for hold to close.
type scriptedGate struct {
	verdict moderation.Verdict
	err     error
	calls   int32
	entered chan struct{}
	hold    chan struct{}
}

func (g *scriptedGate) Check(ctx context.Context, _ moderation.Input) (moderation.Verdict, error) {
	atomic.AddInt32(&g.calls, 1)
	if g.entered != nil {
		g.entered <- struct{}{}
	}
	if g.hold != nil {
		<-g.hold
	}
	if g.err != nil {
		return moderation.Verdict{}, g.err
	}
	return g.verdict, nil
}

func (g *scriptedGate) Calls() int { return int(atomic.LoadInt32(&g.calls)) }

// flakyStore fails selected replica operations on demand.
type flakyStore struct {
	replica.Store
	mu            sync.Mutex
	failUpsert    error
	failSetActive error
}

func (s *flakyStore) Upsert(ctx context.Context, l *publishing.PublishedLesson) error {
	s.mu.Lock()
	err := s.failUpsert
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Store.Upsert(ctx, l)
}

func (s *flakyStore) SetActive(ctx context.Context, id string, active bool, at time.Time) error {
	s.mu.Lock()
	err := s.failSetActive
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Store.SetActive(ctx, id, active, at)
}

func (s *flakyStore) setFailures(upsert, setActive error) {
	s.mu.Lock()
	s.failUpsert, s.failSetActive = upsert, setActive
	s.mu.Unlock()
}

type harness struct {
	db      *gorm.DB
	repo    repos.LessonDraftRepo
	agg     domainagg.LessonDraftAggregate
	mem     *replica.MemoryStore
	store   *flakyStore
	gate    *scriptedGate
	metrics *observability.Metrics

	mu     sync.Mutex
	events []realtime.Event

	replicator PublishReplicator
	visibility VisibilityController
	drafts     DraftService
	pub        PublishingService
	trash      TrashService
	queue      ReviewQueueService
	resolver   LessonResolver
	reconciler Reconciler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	h := &harness{
		db:      db,
		repo:    repos.NewLessonDraftRepo(db, log),
		mem:     replica.NewMemoryStore(),
		gate:    &scriptedGate{verdict: moderation.Verdict{Status: publishing.ModerationPass, RiskScore: 10, Reasons: []string{}}},
		metrics: observability.NewMetrics(),
	}
	h.store = &flakyStore{Store: h.mem}
	h.agg = aggregates.NewLessonDraftAggregate(aggregates.LessonDraftAggregateDeps{
		Base:   aggregates.BaseDeps{DB: db, Log: log},
		Drafts: h.repo,
	})

	eventBus := bus.NewMemoryBus()
	_ = eventBus.StartForwarder(context.Background(), func(ev realtime.Event) {
		h.mu.Lock()
		h.events = append(h.events, ev)
		h.mu.Unlock()
	})

	policy := DefaultPublishPolicy()
	policy.ModerationTimeout = 5 * time.Second
	authz := NewAuthorizer(policy)
	notifier := NewPublicationNotifier(log, eventBus, h.metrics)
	h.replicator = NewPublishReplicator(log, h.repo, h.store)
	h.visibility = NewVisibilityController(log, h.store, h.replicator, h.metrics)
	h.drafts = NewDraftService(log, h.repo, h.agg, authz)
	h.pub = NewPublishingService(PublishingServiceDeps{
		Log:        log,
		Drafts:     h.repo,
		Aggregate:  h.agg,
		Gate:       h.gate,
		Replicator: h.replicator,
		Visibility: h.visibility,
		Notifier:   notifier,
		Metrics:    h.metrics,
		Policy:     policy,
	})
	h.trash = NewTrashService(TrashServiceDeps{
		Log:        log,
		Drafts:     h.repo,
		Aggregate:  h.agg,
		Replicator: h.replicator,
		Visibility: h.visibility,
		Notifier:   notifier,
		Metrics:    h.metrics,
		Authz:      authz,
	})
	h.queue = NewReviewQueueService(log, h.repo, h.pub, authz, policy)
	h.resolver = NewLessonResolver(log, h.store, h.metrics)
	h.reconciler = NewReconciler(ReconcilerDeps{
		Log:        log,
		Drafts:     h.repo,
		Aggregate:  h.agg,
		Store:      h.store,
		Replicator: h.replicator,
		Visibility: h.visibility,
		Metrics:    h.metrics,
		BatchSize:  2,
	})
	return h
}

func actorCtx(userID uuid.UUID, role publishing.Role) context.Context {
	return ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{
		Actor: publishing.Actor{UserID: userID, Role: role},
	})
}

func (h *harness) seed(t *testing.T, owner uuid.UUID, opts ...testutil.DraftOption) *publishing.LessonDraft {
	t.Helper()
	return testutil.SeedDraft(t, context.Background(), h.db, owner, opts...)
}

func (h *harness) reload(t *testing.T, id uuid.UUID) *publishing.LessonDraft {
	t.Helper()
	d, err := h.repo.GetByID(dbctx.Context{Ctx: context.Background()}, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	return d
}

func (h *harness) replicaOf(t *testing.T, id string) *publishing.PublishedLesson {
	t.Helper()
	l, err := h.mem.Get(context.Background(), id)
	if err != nil {
		return nil
	}
	return l
}

func (h *harness) eventTypes() []realtime.EventType {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]realtime.EventType, 0, len(h.events))
	for _, ev := range h.events {
		out = append(out, ev.Type)
	}
	return out
}

func (h *harness) exposition(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}

// assertInvariants checks published <=> active replica and trashed => draft + hidden.
func (h *harness) assertInvariants(t *testing.T, id uuid.UUID) {
	t.Helper()
	d := h.reload(t, id)
	if d == nil {
		return
	}
	var active *publishing.PublishedLesson
	if d.ActivePublishedID != nil {
		active = h.replicaOf(t, *d.ActivePublishedID)
	}
	if d.PublishState == publishing.StatePublished {
		if active == nil || !active.IsActive {
			t.Fatalf("published draft %s has no active replica", id)
		}
	}
	if d.IsDeleted() {
		if d.PublishState != publishing.StateDraft {
			t.Fatalf("trashed draft state: want=draft got=%s", d.PublishState)
		}
		if l := h.replicaOf(t, id.String()); l != nil && l.IsActive {
			t.Fatalf("trashed draft %s still has an active replica", id)
		}
	}
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
