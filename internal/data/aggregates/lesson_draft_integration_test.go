package aggregates_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-publish/internal/data/aggregates"
	aggtestutil "github.com/yungbote/neurobridge-publish/internal/data/aggregates/testutil"
	"github.com/yungbote/neurobridge-publish/internal/data/repos"
	"github.com/yungbote/neurobridge-publish/internal/data/repos/testutil"
	domainagg "github.com/yungbote/neurobridge-publish/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/pkg/dbctx"
)

func newAggregate(t *testing.T, db *gorm.DB, runner aggregates.TxRunner) (domainagg.LessonDraftAggregate, *aggtestutil.HooksRecorder) {
	t.Helper()
	hooks := &aggtestutil.HooksRecorder{}
	log := testutil.Logger(t)
	agg := aggregates.NewLessonDraftAggregate(aggregates.LessonDraftAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:     db,
			Log:    log,
			Runner: runner,
			Hooks:  hooks,
		},
		Drafts: repos.NewLessonDraftRepo(db, log),
	})
	return agg, hooks
}

func TestLessonDraftAggregate_CreateAndEditPending(t *testing.T) {
	db := testutil.SQLite(t)
	ctx := context.Background()
	agg, hooks := newAggregate(t, db, nil)

	owner := uuid.New()
	created, err := agg.Create(ctx, &publishing.LessonDraft{OwnerID: owner, Title: "Volcanoes", BodyText: "Magma rises."})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.PublishState != publishing.StateDraft || created.ID == uuid.Nil {
		t.Fatalf("created draft: state=%s id=%s", created.PublishState, created.ID)
	}

	pending, err := agg.Transition(ctx, domainagg.Transition{
		Op:      "lesson_draft.submit",
		DraftID: created.ID,
		From:    publishing.SubmittableStates,
		To:      publishing.StatePending,
		Moderation: &publishing.ModerationRecord{
			Status:    publishing.ModerationReview,
			RiskScore: 0.4,
			Reasons:   []string{"borderline"},
		},
	})
	if err != nil {
		t.Fatalf("submit transition: %v", err)
	}
	if pending.PublishState != publishing.StatePending {
		t.Fatalf("state: want=pending got=%s", pending.PublishState)
	}

	title := "Volcanoes, revised"
	edited, err := agg.UpdateContent(ctx, created.ID, domainagg.ContentPatch{Title: &title})
	if err != nil {
		t.Fatalf("UpdateContent: %v", err)
	}
	if edited.PublishState != publishing.StateDraft {
		t.Fatalf("edited pending draft: want=draft got=%s", edited.PublishState)
	}

	stored, err := repos.NewLessonDraftRepo(db, testutil.Logger(t)).GetByID(dbctx.Context{Ctx: ctx}, created.ID)
	if err != nil || stored == nil {
		t.Fatalf("GetByID: row=%v err=%v", stored, err)
	}
	if stored.Title != title || stored.PublishState != publishing.StateDraft {
		t.Fatalf("stored: title=%q state=%s", stored.Title, stored.PublishState)
	}
	if stored.Moderation.Status != publishing.ModerationReview || len(stored.Moderation.Reasons) != 1 {
		t.Fatalf("stored moderation: %+v", stored.Moderation)
	}
	if got := hooks.TransitionCount("lesson_draft.update"); got != 1 {
		t.Fatalf("update transitions: want=1 got=%d", got)
	}
}

func TestLessonDraftAggregate_ExpectedStateConflict(t *testing.T) {
	db := testutil.SQLite(t)
	ctx := context.Background()
	agg, hooks := newAggregate(t, db, nil)
	d := testutil.SeedDraft(t, ctx, db, uuid.New(), testutil.WithState(publishing.StateUnlisted))

	_, err := agg.Transition(ctx, domainagg.Transition{
		Op:       "lesson_draft.submit",
		DraftID:  d.ID,
		From:     publishing.SubmittableStates,
		Expected: publishing.StateDraft,
		To:       publishing.StatePending,
	})
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("code: want=%s got=%v", domainagg.CodeConflict, err)
	}
	if len(hooks.Conflicts) != 1 {
		t.Fatalf("conflict hooks: want=1 got=%d", len(hooks.Conflicts))
	}
}

func TestLessonDraftAggregate_TrashAndRestore(t *testing.T) {
	db := testutil.SQLite(t)
	ctx := context.Background()
	agg, _ := newAggregate(t, db, nil)
	d := testutil.SeedDraft(t, ctx, db, uuid.New(), testutil.WithState(publishing.StatePublished))

	trashed, err := agg.Transition(ctx, domainagg.Transition{
		Op:          "lesson_draft.soft_delete",
		DraftID:     d.ID,
		To:          publishing.StateDraft,
		Pointer:     domainagg.PointerClear,
		MarkDeleted: true,
	})
	if err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if !trashed.IsDeleted() || trashed.PublishState != publishing.StateDraft {
		t.Fatalf("trashed: %+v", trashed)
	}

	if _, err := agg.UpdateContent(ctx, d.ID, domainagg.ContentPatch{}); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("edit trashed: want=%s got=%v", domainagg.CodeValidation, err)
	}

	restored, err := agg.Transition(ctx, domainagg.Transition{
		Op:           "lesson_draft.restore",
		DraftID:      d.ID,
		Deleted:      domainagg.DeletedRequired,
		ClearDeleted: true,
	})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.IsDeleted() || restored.PublishState != publishing.StateDraft {
		t.Fatalf("restored: %+v", restored)
	}
}

func TestLessonDraftAggregate_CommitFailureRollsBack(t *testing.T) {
	db := testutil.SQLite(t)
	ctx := context.Background()
	commitErr := errors.New("commit lost")
	runner := &aggtestutil.InjectedTxRunner{Inner: aggregates.NewGormTxRunner(db), FailCommit: commitErr}
	agg, _ := newAggregate(t, db, runner)
	d := testutil.SeedDraft(t, ctx, db, uuid.New(), testutil.WithState(publishing.StatePending))

	_, err := agg.Transition(ctx, domainagg.Transition{
		Op:          "lesson_draft.approve",
		DraftID:     d.ID,
		From:        []publishing.PublishState{publishing.StatePending},
		To:          publishing.StatePublished,
		Pointer:     domainagg.PointerSet,
		PublishedID: d.ID.String(),
	})
	if !errors.Is(err, commitErr) {
		t.Fatalf("expected commit error, got %v", err)
	}
	stored, err := repos.NewLessonDraftRepo(db, testutil.Logger(t)).GetByID(dbctx.Context{Ctx: ctx}, d.ID)
	if err != nil || stored == nil {
		t.Fatalf("GetByID: row=%v err=%v", stored, err)
	}
	if stored.PublishState != publishing.StatePending || stored.ActivePublishedID != nil {
		t.Fatalf("rolled back row changed: state=%s pointer=%v", stored.PublishState, stored.ActivePublishedID)
	}
	if runner.RollbackCalls != 1 {
		t.Fatalf("rollback calls: want=1 got=%d", runner.RollbackCalls)
	}
}

func TestLessonDraftAggregate_HardDelete(t *testing.T) {
	db := testutil.SQLite(t)
	ctx := context.Background()
	agg, _ := newAggregate(t, db, nil)
	d := testutil.SeedDraft(t, ctx, db, uuid.New(), testutil.WithDeletedAt(time.Now().UTC()))

	if err := agg.HardDelete(ctx, d.ID); err != nil {
		t.Fatalf("HardDelete: %v", err)
	}
	if err := agg.HardDelete(ctx, d.ID); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("second HardDelete: want=%s got=%v", domainagg.CodeNotFound, err)
	}
}
