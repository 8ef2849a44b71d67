package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-publish/internal/data/repos/testutil"
	domainagg "github.com/yungbote/neurobridge-publish/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
)

func TestSoftDeletePublishedDraft(t *testing.T) {
	h := newHarness(t)
	owner := uuid.New()
	d := h.seed(t, owner)
	if _, err := h.pub.PublishDirect(actorCtx(owner, publishing.RoleTrusted), d.ID, publishing.VisibilityPublic); err != nil {
		t.Fatalf("PublishDirect: %v", err)
	}

	got, err := h.trash.SoftDelete(actorCtx(owner, publishing.RoleAuthor), d.ID)
	if err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if got.DeletedAt == nil || got.PublishState != publishing.StateDraft || got.ActivePublishedID != nil {
		t.Fatalf("trashed draft: deleted=%v state=%s pointer=%v", got.DeletedAt, got.PublishState, got.ActivePublishedID)
	}
	l := h.replicaOf(t, d.ID.String())
	if l == nil || l.IsActive {
		t.Fatalf("replica should be kept but inactive: %+v", l)
	}
	h.assertInvariants(t, d.ID)

	if _, err := h.trash.SoftDelete(actorCtx(owner, publishing.RoleAuthor), d.ID); !domainagg.IsCode(err, domainagg.CodeIllegalTransition) {
		t.Fatalf("second SoftDelete: want=%s got=%v", domainagg.CodeIllegalTransition, err)
	}
}

func TestSoftDeleteToleratesDeactivationFailure(t *testing.T) {
	h := newHarness(t)
	owner := uuid.New()
	d := h.seed(t, owner)
	if _, err := h.pub.PublishDirect(actorCtx(owner, publishing.RoleTrusted), d.ID, publishing.VisibilityPublic); err != nil {
		t.Fatalf("PublishDirect: %v", err)
	}
	h.store.setFailures(nil, errors.New("replica unavailable"))

	got, err := h.trash.SoftDelete(actorCtx(owner, publishing.RoleAuthor), d.ID)
	if err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if got.DeletedAt == nil || got.PublishState != publishing.StateDraft {
		t.Fatalf("draft side must still commit: %+v", got)
	}
	if l := h.replicaOf(t, d.ID.String()); l == nil || !l.IsActive {
		t.Fatalf("replica should remain active after failed deactivation")
	}

	// The reconciler hides the orphan once the store recovers.
	h.store.setFailures(nil, nil)
	report, err := h.reconciler.RunOnce(actorCtx(owner, publishing.RoleAuthor))
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.Deactivated != 1 {
		t.Fatalf("deactivated: want=1 got=%d", report.Deactivated)
	}
	h.assertInvariants(t, d.ID)
}

func TestRestoreDoesNotRepublish(t *testing.T) {
	h := newHarness(t)
	owner := uuid.New()
	d := h.seed(t, owner, testutil.WithDeletedAt(time.Now().UTC()))

	if _, err := h.trash.Restore(actorCtx(uuid.New(), publishing.RoleAuthor), d.ID); !domainagg.IsCode(err, domainagg.CodeAuthorization) {
		t.Fatalf("stranger restore: want=%s got=%v", domainagg.CodeAuthorization, err)
	}
	got, err := h.trash.Restore(actorCtx(owner, publishing.RoleAuthor), d.ID)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got.DeletedAt != nil || got.PublishState != publishing.StateDraft {
		t.Fatalf("restored: %+v", got)
	}
	if h.mem.Len() != 0 {
		t.Fatalf("restore should not publish")
	}
	if _, err := h.trash.Restore(actorCtx(owner, publishing.RoleAuthor), d.ID); !domainagg.IsCode(err, domainagg.CodeIllegalTransition) {
		t.Fatalf("restore live draft: want=%s got=%v", domainagg.CodeIllegalTransition, err)
	}
}

func TestHardDeleteIsAdminOnlyAndPurgesReplica(t *testing.T) {
	h := newHarness(t)
	owner := uuid.New()
	d := h.seed(t, owner)
	if _, err := h.pub.PublishDirect(actorCtx(owner, publishing.RoleTrusted), d.ID, publishing.VisibilityPublic); err != nil {
		t.Fatalf("PublishDirect: %v", err)
	}

	if err := h.trash.HardDelete(actorCtx(owner, publishing.RoleTrusted), d.ID); !domainagg.IsCode(err, domainagg.CodeAuthorization) {
		t.Fatalf("owner hard delete: want=%s got=%v", domainagg.CodeAuthorization, err)
	}
	if err := h.trash.HardDelete(actorCtx(uuid.New(), publishing.RoleAdmin), d.ID); err != nil {
		t.Fatalf("HardDelete: %v", err)
	}
	if h.reload(t, d.ID) != nil {
		t.Fatalf("draft still present")
	}
	if h.mem.Len() != 0 {
		t.Fatalf("replicas: want=0 got=%d", h.mem.Len())
	}
	if err := h.trash.HardDelete(actorCtx(uuid.New(), publishing.RoleAdmin), d.ID); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("second HardDelete: want=%s got=%v", domainagg.CodeNotFound, err)
	}
}
