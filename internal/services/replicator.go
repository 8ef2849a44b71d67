package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-publish/internal/data/aggregates"
	"github.com/yungbote/neurobridge-publish/internal/data/replica"
	"github.com/yungbote/neurobridge-publish/internal/data/repos"
	domainagg "github.com/yungbote/neurobridge-publish/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/pkg/dbctx"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
)

type ReplicateOptions struct {
	// Visibility overrides the draft's preference when set.
	Visibility publishing.Visibility
	ReviewerID uuid.UUID
}

// PublishReplicator copies drafts into the replica store.
type PublishReplicator interface {
	// Replicate upserts the replica from the draft's current content. It is
	// idempotent and always refreshes PublishedAt.
	Replicate(ctx context.Context, draftID uuid.UUID, opts ReplicateOptions) (*publishing.PublishedLesson, error)
	// Locate finds the replica of a draft, or returns nil when none exists.
	Locate(ctx context.Context, draft *publishing.LessonDraft) (*publishing.PublishedLesson, error)
	// Lookup reads one replica by id, returning nil on a miss.
	Lookup(ctx context.Context, replicaID string) (*publishing.PublishedLesson, error)
	// Purge physically removes every replica of the draft.
	Purge(ctx context.Context, draft *publishing.LessonDraft) error
}

type publishReplicator struct {
	log    *logger.Logger
	drafts repos.LessonDraftRepo
	store  replica.Store
	now    func() time.Time
}

func NewPublishReplicator(log *logger.Logger, drafts repos.LessonDraftRepo, store replica.Store) PublishReplicator {
	return &publishReplicator{
		log:    log.With("service", "PublishReplicator"),
		drafts: drafts,
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *publishReplicator) Replicate(ctx context.Context, draftID uuid.UUID, opts ReplicateOptions) (*publishing.PublishedLesson, error) {
	const op = "replica.replicate"
	draft, err := r.drafts.GetByID(dbctx.Context{Ctx: ctx}, draftID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if draft == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "draft not found", nil)
	}
	if draft.IsDeleted() {
		return nil, domainagg.NewError(domainagg.CodeIllegalTransition, op, "draft is in trash", nil)
	}
	if !draft.HasRequiredContent() {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "title and body are required to publish", nil)
	}

	existing, err := r.Locate(ctx, draft)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeReplicaWriteFailure, op, "replica lookup failed", err)
	}

	lesson := r.snapshot(draft, existing, opts)
	if err := r.store.Upsert(ctx, lesson); err != nil {
		r.log.Warn("replica upsert failed", "draft_id", draft.ID, "replica_id", lesson.ID, "backend", r.store.Backend(), "error", err)
		return nil, domainagg.NewError(domainagg.CodeReplicaWriteFailure, op, "replica write failed", err)
	}
	r.log.Info("replica written", "draft_id", draft.ID, "replica_id", lesson.ID, "visibility", lesson.Visibility)
	return lesson, nil
}

func (r *publishReplicator) snapshot(draft *publishing.LessonDraft, existing *publishing.PublishedLesson, opts ReplicateOptions) *publishing.PublishedLesson {
	now := r.now()
	id := draft.ID.String()
	if existing != nil && strings.TrimSpace(existing.ID) != "" {
		id = existing.ID
	}
	vis := opts.Visibility
	if vis == "" {
		vis = draft.VisibilityPreference
	}
	if vis == "" {
		vis = publishing.VisibilityPublic
	}
	topics := append([]string{}, draft.Topics...)
	var taskList json.RawMessage
	if len(draft.TaskList) > 0 {
		taskList = append(json.RawMessage(nil), draft.TaskList...)
	}
	lesson := &publishing.PublishedLesson{
		ID:            id,
		SourceDraftID: draft.ID.String(),
		OwnerID:       draft.OwnerID.String(),
		Title:         draft.Title,
		BodyText:      draft.BodyText,
		TaskList:      taskList,
		TextType:      draft.TextType,
		Topics:        topics,
		RiskScore:     draft.Moderation.RiskScore,
		Visibility:    vis,
		IsActive:      true,
		PublishedAt:   now,
		UpdatedAt:     now,
	}
	switch {
	case opts.ReviewerID != uuid.Nil:
		at := now
		lesson.ReviewedBy = opts.ReviewerID.String()
		lesson.ReviewedAt = &at
	case draft.Moderation.ReviewedBy != nil:
		lesson.ReviewedBy = draft.Moderation.ReviewedBy.String()
		if draft.Moderation.ReviewedAt != nil {
			at := *draft.Moderation.ReviewedAt
			lesson.ReviewedAt = &at
		}
	}
	return lesson
}

// Locate tries the draft pointer, then the draft id, then the source index.
// A permission-denied path is treated like a miss so the next address is tried.
func (r *publishReplicator) Locate(ctx context.Context, draft *publishing.LessonDraft) (*publishing.PublishedLesson, error) {
	if draft == nil {
		return nil, nil
	}
	var lastErr error
	for _, id := range candidateIDs(draft) {
		got, err := r.store.Get(ctx, id)
		if err == nil {
			return got, nil
		}
		if !isMiss(err) {
			lastErr = err
		}
	}
	got, err := r.store.GetBySourceDraftID(ctx, draft.ID.String())
	if err == nil {
		return got, nil
	}
	if !isMiss(err) {
		return nil, err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, nil
}

func (r *publishReplicator) Lookup(ctx context.Context, replicaID string) (*publishing.PublishedLesson, error) {
	got, err := r.store.Get(ctx, strings.TrimSpace(replicaID))
	if err != nil {
		if isMiss(err) {
			return nil, nil
		}
		return nil, err
	}
	return got, nil
}

func (r *publishReplicator) Purge(ctx context.Context, draft *publishing.LessonDraft) error {
	if draft == nil {
		return nil
	}
	ids := candidateIDs(draft)
	if got, err := r.store.GetBySourceDraftID(ctx, draft.ID.String()); err == nil {
		ids = append(ids, got.ID)
	} else if !isMiss(err) {
		return err
	}
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if err := r.store.Delete(ctx, id); err != nil && !errors.Is(err, replica.ErrNotFound) {
			return err
		}
	}
	return nil
}

func candidateIDs(draft *publishing.LessonDraft) []string {
	out := make([]string, 0, 2)
	if draft.ActivePublishedID != nil {
		if id := strings.TrimSpace(*draft.ActivePublishedID); id != "" {
			out = append(out, id)
		}
	}
	if id := draft.ID.String(); len(out) == 0 || out[0] != id {
		out = append(out, id)
	}
	return out
}

func isMiss(err error) bool {
	return errors.Is(err, replica.ErrNotFound) || errors.Is(err, replica.ErrPermissionDenied)
}
