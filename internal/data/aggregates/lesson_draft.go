package aggregates

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/neurobridge-publish/internal/data/repos"
	domainagg "github.com/yungbote/neurobridge-publish/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/pkg/dbctx"
)

type LessonDraftAggregateDeps struct {
	Base   BaseDeps
	Drafts repos.LessonDraftRepo
}

type lessonDraftAggregate struct {
	deps   BaseDeps
	drafts repos.LessonDraftRepo
}

func NewLessonDraftAggregate(deps LessonDraftAggregateDeps) domainagg.LessonDraftAggregate {
	base := deps.Base.withDefaults()
	base.Log = base.Log.With("aggregate", "LessonDraftAggregate")
	return &lessonDraftAggregate{deps: base, drafts: deps.Drafts}
}

func (a *lessonDraftAggregate) Contract() domainagg.Contract {
	return domainagg.Contract{
		Name:             "lesson_draft",
		Table:            publishing.LessonDraft{}.TableName(),
		StateColumn:      "publish_state",
		TombstoneColumn:  "deleted_at",
		WriteTxOwnership: domainagg.WriteTxOwnedByAggregate,
		ReadPolicy:       domainagg.ReadPolicyTableRepoQueries,
		Notes:            "every write is a compare-and-set on publish_state and the tombstone",
	}
}

func (a *lessonDraftAggregate) Create(ctx context.Context, draft *publishing.LessonDraft) (*publishing.LessonDraft, error) {
	const op = "lesson_draft.create"
	if draft == nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "draft is required", nil)
	}
	if draft.OwnerID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "owner is required", nil)
	}
	row := draft.Clone()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	now := a.deps.Now()
	row.PublishState = publishing.StateDraft
	row.DeletedAt = nil
	row.ActivePublishedID = nil
	row.Moderation = publishing.ModerationRecord{
		Status:  publishing.ModerationUnknown,
		Reasons: datatypes.JSONSlice[string]{},
	}
	if row.VisibilityPreference == "" {
		row.VisibilityPreference = publishing.VisibilityPublic
	}
	if row.Topics == nil {
		row.Topics = datatypes.JSONSlice[string]{}
	}
	row.CreatedAt = now
	row.UpdatedAt = now

	err := executeWrite(ctx, a.deps, op, func(dbc dbctx.Context) error {
		_, err := a.drafts.Create(dbc, []*publishing.LessonDraft{row})
		return err
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (a *lessonDraftAggregate) UpdateContent(ctx context.Context, draftID uuid.UUID, patch domainagg.ContentPatch) (*publishing.LessonDraft, error) {
	const op = "lesson_draft.update"
	var out *publishing.LessonDraft
	var from publishing.PublishState
	err := executeWrite(ctx, a.deps, op, func(dbc dbctx.Context) error {
		row, err := a.drafts.LockByID(dbc, draftID)
		if err != nil {
			return err
		}
		if row == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, "draft not found", nil)
		}
		from = row.PublishState
		if err := patch.Apply(row, a.deps.Now()); err != nil {
			return err
		}
		ok, err := a.casUpdate(dbc, row.ID, from, domainagg.DeletedForbidden, contentColumns(row))
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "draft changed concurrently"); err != nil {
			return err
		}
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	if from != out.PublishState {
		a.deps.Hooks.ObserveTransition(op, string(from), string(out.PublishState))
	}
	return out, nil
}

func (a *lessonDraftAggregate) Transition(ctx context.Context, t domainagg.Transition) (*publishing.LessonDraft, error) {
	op := strings.TrimSpace(t.Op)
	if op == "" {
		op = "lesson_draft.transition"
		t.Op = op
	}
	var out *publishing.LessonDraft
	var from publishing.PublishState
	err := executeWrite(ctx, a.deps, op, func(dbc dbctx.Context) error {
		row, err := a.drafts.LockByID(dbc, t.DraftID)
		if err != nil {
			return err
		}
		if row == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, "draft not found", nil)
		}
		from = row.PublishState
		wasDeleted := row.IsDeleted()
		if err := t.Apply(row, a.deps.Now()); err != nil {
			return err
		}
		deleted := domainagg.DeletedForbidden
		if wasDeleted {
			deleted = domainagg.DeletedRequired
		}
		ok, err := a.casUpdate(dbc, row.ID, from, deleted, stateColumns(row))
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "draft changed concurrently"); err != nil {
			return err
		}
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.deps.Hooks.ObserveTransition(op, string(from), string(out.PublishState))
	return out, nil
}

func (a *lessonDraftAggregate) HardDelete(ctx context.Context, draftID uuid.UUID) error {
	const op = "lesson_draft.hard_delete"
	return executeWrite(ctx, a.deps, op, func(dbc dbctx.Context) error {
		deleted, err := a.drafts.FullDeleteByID(dbc, draftID)
		if err != nil {
			return err
		}
		if !deleted {
			return domainagg.NewError(domainagg.CodeNotFound, op, "draft not found", nil)
		}
		return nil
	})
}

// casUpdate writes cols only if the row still has the state and tombstone
// observed under the lock.
func (a *lessonDraftAggregate) casUpdate(dbc dbctx.Context, id uuid.UUID, from publishing.PublishState, deleted domainagg.DeletedGuard, cols map[string]any) (bool, error) {
	c := a.Contract()
	return a.deps.CASGuard.UpdateByState(dbc, c.Table, id, StateGuard{
		Column:          c.StateColumn,
		TombstoneColumn: c.TombstoneColumn,
		Allowed:         []string{string(from)},
		Deleted:         deleted,
	}, cols)
}

func contentColumns(d *publishing.LessonDraft) map[string]any {
	return map[string]any{
		"title":                 d.Title,
		"body_text":             d.BodyText,
		"task_list":             d.TaskList,
		"text_type":             d.TextType,
		"topics":                d.Topics,
		"visibility_preference": d.VisibilityPreference,
		"publish_state":         d.PublishState,
		"updated_at":            d.UpdatedAt,
	}
}

func stateColumns(d *publishing.LessonDraft) map[string]any {
	m := d.Moderation
	return map[string]any{
		"publish_state":             d.PublishState,
		"visibility_preference":     d.VisibilityPreference,
		"active_published_id":       d.ActivePublishedID,
		"deleted_at":                d.DeletedAt,
		"moderation_status":         m.Status,
		"moderation_risk_score":     m.RiskScore,
		"moderation_reasons":        m.Reasons,
		"moderation_notes":          m.Notes,
		"moderation_checked_at":     m.CheckedAt,
		"moderation_reviewed_by":    m.ReviewedBy,
		"moderation_reviewed_at":    m.ReviewedAt,
		"moderation_reviewer_notes": m.ReviewerNotes,
		"updated_at":                d.UpdatedAt,
	}
}
