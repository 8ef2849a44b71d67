package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-publish/internal/data/repos/testutil"
	domainagg "github.com/yungbote/neurobridge-publish/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
)

func TestDraftCreateAndList(t *testing.T) {
	h := newHarness(t)
	owner := uuid.New()
	ctx := actorCtx(owner, publishing.RoleAuthor)

	created, err := h.drafts.Create(ctx, DraftContent{Title: "  Tides ", BodyText: "The moon pulls.", Topics: []string{"ocean"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.OwnerID != owner || created.Title != "Tides" || created.PublishState != publishing.StateDraft {
		t.Fatalf("created: owner=%s title=%q state=%s", created.OwnerID, created.Title, created.PublishState)
	}
	if created.VisibilityPreference != publishing.VisibilityPublic {
		t.Fatalf("visibility: want=public got=%s", created.VisibilityPreference)
	}

	mine, err := h.drafts.ListMine(ctx, false)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != created.ID {
		t.Fatalf("ListMine: got %d rows", len(mine))
	}
	other, err := h.drafts.ListMine(actorCtx(uuid.New(), publishing.RoleAuthor), false)
	if err != nil || len(other) != 0 {
		t.Fatalf("other ListMine: rows=%d err=%v", len(other), err)
	}

	if _, err := h.drafts.Create(context.Background(), DraftContent{Title: "x"}); !domainagg.IsCode(err, domainagg.CodeAuthorization) {
		t.Fatalf("anonymous create: want=%s got=%v", domainagg.CodeAuthorization, err)
	}
}

func TestDraftUpdateRules(t *testing.T) {
	h := newHarness(t)
	owner := uuid.New()
	title := "Revised"

	t.Run("pending edit returns to draft", func(t *testing.T) {
		d := h.seed(t, owner, testutil.WithState(publishing.StatePending))
		got, err := h.drafts.Update(actorCtx(owner, publishing.RoleAuthor), d.ID, domainagg.ContentPatch{Title: &title})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got.PublishState != publishing.StateDraft || got.Title != title {
			t.Fatalf("updated: state=%s title=%q", got.PublishState, got.Title)
		}
	})

	t.Run("admin may edit", func(t *testing.T) {
		d := h.seed(t, owner)
		if _, err := h.drafts.Update(actorCtx(uuid.New(), publishing.RoleAdmin), d.ID, domainagg.ContentPatch{Title: &title}); err != nil {
			t.Fatalf("admin Update: %v", err)
		}
	})

	t.Run("stranger rejected", func(t *testing.T) {
		d := h.seed(t, owner)
		_, err := h.drafts.Update(actorCtx(uuid.New(), publishing.RoleReviewer), d.ID, domainagg.ContentPatch{Title: &title})
		if !domainagg.IsCode(err, domainagg.CodeAuthorization) {
			t.Fatalf("code: want=%s got=%v", domainagg.CodeAuthorization, err)
		}
	})

	t.Run("trashed draft rejected", func(t *testing.T) {
		d := h.seed(t, owner, testutil.WithDeletedAt(time.Now().UTC()))
		_, err := h.drafts.Update(actorCtx(owner, publishing.RoleAuthor), d.ID, domainagg.ContentPatch{Title: &title})
		if !domainagg.IsCode(err, domainagg.CodeValidation) {
			t.Fatalf("code: want=%s got=%v", domainagg.CodeValidation, err)
		}
	})

	t.Run("owner change rejected", func(t *testing.T) {
		d := h.seed(t, owner)
		other := uuid.New()
		_, err := h.drafts.Update(actorCtx(owner, publishing.RoleAuthor), d.ID, domainagg.ContentPatch{OwnerID: &other})
		if !domainagg.IsCode(err, domainagg.CodeValidation) {
			t.Fatalf("code: want=%s got=%v", domainagg.CodeValidation, err)
		}
		if got := h.reload(t, d.ID); got.OwnerID != owner {
			t.Fatalf("owner changed to %s", got.OwnerID)
		}
	})

	t.Run("missing draft", func(t *testing.T) {
		_, err := h.drafts.Update(actorCtx(owner, publishing.RoleAuthor), uuid.New(), domainagg.ContentPatch{Title: &title})
		if !domainagg.IsCode(err, domainagg.CodeNotFound) {
			t.Fatalf("code: want=%s got=%v", domainagg.CodeNotFound, err)
		}
	})
}

func TestDraftGetVisibleToReviewer(t *testing.T) {
	h := newHarness(t)
	owner := uuid.New()
	d := h.seed(t, owner, testutil.WithState(publishing.StatePending))

	if _, err := h.drafts.Get(actorCtx(uuid.New(), publishing.RoleReviewer), d.ID); err != nil {
		t.Fatalf("reviewer Get: %v", err)
	}
	if _, err := h.drafts.Get(actorCtx(uuid.New(), publishing.RoleAuthor), d.ID); !domainagg.IsCode(err, domainagg.CodeAuthorization) {
		t.Fatalf("stranger Get: want=%s got=%v", domainagg.CodeAuthorization, err)
	}
}

func TestDraftSetManualState(t *testing.T) {
	h := newHarness(t)
	owner := uuid.New()
	ctx := actorCtx(owner, publishing.RoleAuthor)

	d := h.seed(t, owner)
	got, err := h.drafts.SetManualState(ctx, d.ID, publishing.StateUnlisted)
	if err != nil {
		t.Fatalf("SetManualState: %v", err)
	}
	if got.PublishState != publishing.StateUnlisted {
		t.Fatalf("state: want=unlisted got=%s", got.PublishState)
	}

	if _, err := h.drafts.SetManualState(ctx, d.ID, publishing.StatePublished); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("publish via manual: want=%s got=%v", domainagg.CodeValidation, err)
	}

	pending := h.seed(t, owner, testutil.WithState(publishing.StatePending))
	if _, err := h.drafts.SetManualState(ctx, pending.ID, publishing.StateDraft); !domainagg.IsCode(err, domainagg.CodeIllegalTransition) {
		t.Fatalf("pending source: want=%s got=%v", domainagg.CodeIllegalTransition, err)
	}
}
