package publishing

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-publish/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/pkg/dbctx"
)

func TestLessonDraftRepo_ListPendingOrdering(t *testing.T) {
	db := testutil.SQLite(t)
	ctx := context.Background()
	repo := NewLessonDraftRepo(db, testutil.Logger(t))

	owner := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	low := testutil.SeedDraft(t, ctx, db, owner, testutil.WithState(types.StatePending), testutil.WithRisk(0.1), testutil.WithUpdatedAt(base))
	highNewer := testutil.SeedDraft(t, ctx, db, owner, testutil.WithState(types.StatePending), testutil.WithRisk(0.9), testutil.WithUpdatedAt(base.Add(time.Hour)))
	highOlder := testutil.SeedDraft(t, ctx, db, owner, testutil.WithState(types.StatePending), testutil.WithRisk(0.9), testutil.WithUpdatedAt(base))
	_ = testutil.SeedDraft(t, ctx, db, owner, testutil.WithState(types.StateDraft), testutil.WithRisk(1))
	_ = testutil.SeedDraft(t, ctx, db, owner, testutil.WithState(types.StatePending), testutil.WithRisk(1), testutil.WithDeletedAt(base))

	rows, err := repo.ListPending(dbctx.Context{Ctx: ctx}, 50, 0)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	want := []uuid.UUID{highOlder.ID, highNewer.ID, low.ID}
	if len(rows) != len(want) {
		t.Fatalf("pending count: want=%d got=%d", len(want), len(rows))
	}
	for i := range want {
		if rows[i].ID != want[i] {
			t.Fatalf("pending[%d]: want=%s got=%s", i, want[i], rows[i].ID)
		}
	}

	page, err := repo.ListPending(dbctx.Context{Ctx: ctx}, 2, 2)
	if err != nil {
		t.Fatalf("ListPending page: %v", err)
	}
	if len(page) != 1 || page[0].ID != low.ID {
		t.Fatalf("second page: want=[%s] got=%d rows", low.ID, len(page))
	}
}

func TestLessonDraftRepo_OwnerListsAndDelete(t *testing.T) {
	db := testutil.SQLite(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewLessonDraftRepo(db, testutil.Logger(t))

	owner := uuid.New()
	live := testutil.SeedDraft(t, ctx, db, owner)
	trashed := testutil.SeedDraft(t, ctx, db, owner, testutil.WithDeletedAt(time.Now().UTC()))
	_ = testutil.SeedDraft(t, ctx, db, uuid.New())

	active, err := repo.ListByOwner(dbc, owner, false)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(active) != 1 || active[0].ID != live.ID {
		t.Fatalf("active drafts: want=[%s] got=%d rows", live.ID, len(active))
	}
	trash, err := repo.ListByOwner(dbc, owner, true)
	if err != nil {
		t.Fatalf("ListByOwner trash: %v", err)
	}
	if len(trash) != 1 || trash[0].ID != trashed.ID {
		t.Fatalf("trash drafts: want=[%s] got=%d rows", trashed.ID, len(trash))
	}

	locked, err := repo.LockByID(dbc, live.ID)
	if err != nil || locked == nil {
		t.Fatalf("LockByID: row=%v err=%v", locked, err)
	}
	if len(locked.Topics) != 1 || locked.Topics[0] != "biology" {
		t.Fatalf("topics round trip: got=%v", locked.Topics)
	}

	deleted, err := repo.FullDeleteByID(dbc, live.ID)
	if err != nil || !deleted {
		t.Fatalf("FullDeleteByID: deleted=%v err=%v", deleted, err)
	}
	gone, err := repo.GetByID(dbc, live.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if gone != nil {
		t.Fatalf("draft still present after full delete")
	}
	again, err := repo.FullDeleteByID(dbc, live.ID)
	if err != nil || again {
		t.Fatalf("second FullDeleteByID: deleted=%v err=%v", again, err)
	}
}

func TestLessonDraftRepo_ListByStatePaging(t *testing.T) {
	db := testutil.SQLite(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewLessonDraftRepo(db, testutil.Logger(t))

	owner := uuid.New()
	for i := 0; i < 5; i++ {
		testutil.SeedDraft(t, ctx, db, owner, testutil.WithState(types.StatePublished))
	}
	testutil.SeedDraft(t, ctx, db, owner)

	seen := map[uuid.UUID]bool{}
	after := uuid.Nil
	for {
		rows, err := repo.ListByState(dbc, types.StatePublished, after, 2)
		if err != nil {
			t.Fatalf("ListByState: %v", err)
		}
		if len(rows) == 0 {
			break
		}
		for _, r := range rows {
			if seen[r.ID] {
				t.Fatalf("row %s returned twice", r.ID)
			}
			seen[r.ID] = true
		}
		after = rows[len(rows)-1].ID
	}
	if len(seen) != 5 {
		t.Fatalf("published rows: want=5 got=%d", len(seen))
	}
}

// State, pointer and tombstone columns are written by the aggregate only.
func TestLessonDraftRepo_HasNoGenericUpdate(t *testing.T) {
	repo := reflect.TypeOf((*LessonDraftRepo)(nil)).Elem()
	for i := 0; i < repo.NumMethod(); i++ {
		if name := repo.Method(i).Name; strings.HasPrefix(name, "Update") {
			t.Fatalf("repo method: want=%v got=%v", "no Update*", name)
		}
	}
}
