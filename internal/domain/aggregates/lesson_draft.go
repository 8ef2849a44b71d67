package aggregates

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
)

// LessonDraftAggregate owns every write to a lesson draft row.
//
// Each method is a single-record atomic write guarded by the draft's observed
// publish state; a row that changed underneath the caller yields CodeConflict.
type LessonDraftAggregate interface {
	Aggregate

	Create(ctx context.Context, draft *publishing.LessonDraft) (*publishing.LessonDraft, error)
	UpdateContent(ctx context.Context, draftID uuid.UUID, patch ContentPatch) (*publishing.LessonDraft, error)
	Transition(ctx context.Context, t Transition) (*publishing.LessonDraft, error)
	HardDelete(ctx context.Context, draftID uuid.UUID) error
}

// DeletedGuard constrains the tombstone of the draft a transition applies to.
type DeletedGuard int

const (
	// DeletedForbidden rejects trashed drafts.
	DeletedForbidden DeletedGuard = iota
	// DeletedRequired only accepts trashed drafts.
	DeletedRequired
	// DeletedAny skips the tombstone check.
	DeletedAny
)

// PointerChange describes what a transition does to ActivePublishedID.
type PointerChange int

const (
	PointerKeep PointerChange = iota
	PointerSet
	PointerClear
)

// ReviewStamp records who decided a pending draft.
type ReviewStamp struct {
	ReviewerID uuid.UUID
	Notes      string
}

// Transition is one guarded state change of a draft.
type Transition struct {
	Op      string
	DraftID uuid.UUID

	// From lists legal source states; empty means any state.
	From []publishing.PublishState
	// Expected is the state the caller observed before doing side effects.
	// A mismatch means someone else moved the draft and yields CodeConflict.
	Expected publishing.PublishState
	Deleted  DeletedGuard

	To         publishing.PublishState
	Moderation *publishing.ModerationRecord
	Review     *ReviewStamp
	Visibility publishing.Visibility

	Pointer     PointerChange
	PublishedID string

	MarkDeleted  bool
	ClearDeleted bool
}

func (t Transition) op() string {
	if op := strings.TrimSpace(t.Op); op != "" {
		return op
	}
	return "lesson_draft.transition"
}

// Check validates the transition against the current draft without mutating it.
func (t Transition) Check(d *publishing.LessonDraft) error {
	op := t.op()
	if d == nil {
		return NewError(CodeNotFound, op, "draft not found", nil)
	}
	switch t.Deleted {
	case DeletedForbidden:
		if d.IsDeleted() {
			return NewError(CodeIllegalTransition, op, "draft is in trash", nil)
		}
	case DeletedRequired:
		if !d.IsDeleted() {
			return NewError(CodeIllegalTransition, op, "draft is not in trash", nil)
		}
	}
	if len(t.From) > 0 && !publishing.StateIn(d.PublishState, t.From) {
		return NewError(CodeIllegalTransition, op, "cannot "+humanOp(op)+" from state "+string(d.PublishState), nil)
	}
	// Legal source, but not the one the caller read: someone else moved it.
	if t.Expected != "" && d.PublishState != t.Expected {
		return NewError(CodeConflict, op, "draft state changed from "+string(t.Expected)+" to "+string(d.PublishState), nil)
	}
	if t.Pointer == PointerSet && strings.TrimSpace(t.PublishedID) == "" {
		return NewError(CodeValidation, op, "published id is required", nil)
	}
	if t.MarkDeleted && t.ClearDeleted {
		return NewError(CodeValidation, op, "cannot both mark and clear the tombstone", nil)
	}
	return nil
}

// Apply checks the transition and mutates d in place.
func (t Transition) Apply(d *publishing.LessonDraft, now time.Time) error {
	if err := t.Check(d); err != nil {
		return err
	}
	if t.To != "" {
		d.PublishState = t.To
	}
	if t.Moderation != nil {
		rec := *t.Moderation
		if rec.Reasons == nil {
			rec.Reasons = datatypes.JSONSlice[string]{}
		}
		d.Moderation = rec
	}
	if t.Review != nil {
		reviewer := t.Review.ReviewerID
		at := now
		d.Moderation.ReviewedBy = &reviewer
		d.Moderation.ReviewedAt = &at
		d.Moderation.ReviewerNotes = strings.TrimSpace(t.Review.Notes)
	}
	if t.Visibility != "" {
		d.VisibilityPreference = t.Visibility
	}
	switch t.Pointer {
	case PointerSet:
		id := strings.TrimSpace(t.PublishedID)
		d.ActivePublishedID = &id
	case PointerClear:
		d.ActivePublishedID = nil
	}
	if t.MarkDeleted {
		at := now
		d.DeletedAt = &at
	}
	if t.ClearDeleted {
		d.DeletedAt = nil
	}
	d.UpdatedAt = now
	return nil
}

func humanOp(op string) string {
	if i := strings.LastIndex(op, "."); i >= 0 && i+1 < len(op) {
		op = op[i+1:]
	}
	return strings.ReplaceAll(op, "_", " ")
}

// ContentPatch is a partial update of the author-owned fields.
type ContentPatch struct {
	Title                *string
	BodyText             *string
	TaskList             datatypes.JSON
	TextType             *string
	Topics               []string
	VisibilityPreference *publishing.Visibility

	// OwnerID is accepted only so attempts to move ownership can be rejected.
	OwnerID *uuid.UUID
}

func (p ContentPatch) Empty() bool {
	return p.Title == nil && p.BodyText == nil && p.TaskList == nil && p.TextType == nil &&
		p.Topics == nil && p.VisibilityPreference == nil && p.OwnerID == nil
}

// Apply mutates d with the patch. Editing a pending draft sends it back to
// draft because the stored verdict no longer describes the content.
func (p ContentPatch) Apply(d *publishing.LessonDraft, now time.Time) error {
	const op = "lesson_draft.update"
	if d == nil {
		return NewError(CodeNotFound, op, "draft not found", nil)
	}
	if d.IsDeleted() {
		return NewError(CodeValidation, op, "draft is in trash; restore it before editing", nil)
	}
	if p.OwnerID != nil && *p.OwnerID != d.OwnerID {
		return NewError(CodeValidation, op, "ownerId is immutable", nil)
	}
	if p.Title != nil {
		d.Title = strings.TrimSpace(*p.Title)
	}
	if p.BodyText != nil {
		d.BodyText = *p.BodyText
	}
	if p.TaskList != nil {
		d.TaskList = append(datatypes.JSON(nil), p.TaskList...)
	}
	if p.TextType != nil {
		d.TextType = strings.TrimSpace(*p.TextType)
	}
	if p.Topics != nil {
		d.Topics = append(datatypes.JSONSlice[string]{}, p.Topics...)
	}
	if p.VisibilityPreference != nil {
		d.VisibilityPreference = *p.VisibilityPreference
	}
	if d.PublishState == publishing.StatePending {
		d.PublishState = publishing.StateDraft
	}
	d.UpdatedAt = now
	return nil
}
