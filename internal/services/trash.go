package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-publish/internal/data/repos"
	domainagg "github.com/yungbote/neurobridge-publish/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/observability"
	"github.com/yungbote/neurobridge-publish/internal/pkg/ctxutil"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
)

// TrashService sequences soft delete, restore and hard delete around the replica.
type TrashService interface {
	SoftDelete(ctx context.Context, draftID uuid.UUID) (*publishing.LessonDraft, error)
	Restore(ctx context.Context, draftID uuid.UUID) (*publishing.LessonDraft, error)
	HardDelete(ctx context.Context, draftID uuid.UUID) error
}

type TrashServiceDeps struct {
	Log        *logger.Logger
	Drafts     repos.LessonDraftRepo
	Aggregate  domainagg.LessonDraftAggregate
	Replicator PublishReplicator
	Visibility VisibilityController
	Notifier   PublicationNotifier
	Metrics    *observability.Metrics
	Authz      Authorizer
}

type trashService struct {
	log        *logger.Logger
	drafts     repos.LessonDraftRepo
	agg        domainagg.LessonDraftAggregate
	replicator PublishReplicator
	visibility VisibilityController
	notifier   PublicationNotifier
	metrics    *observability.Metrics
	authz      Authorizer
}

func NewTrashService(deps TrashServiceDeps) TrashService {
	return &trashService{
		log:        deps.Log.With("service", "TrashService"),
		drafts:     deps.Drafts,
		agg:        deps.Aggregate,
		replicator: deps.Replicator,
		visibility: deps.Visibility,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		authz:      deps.Authz,
	}
}

// SoftDelete hides any replica first, then tombstones the draft in state draft.
func (s *trashService) SoftDelete(ctx context.Context, draftID uuid.UUID) (*publishing.LessonDraft, error) {
	const op = "lesson_draft.soft_delete"
	draft, err := loadDraft(ctx, s.drafts, op, draftID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireOwnerOrAdmin(op, ctxutil.ActorFrom(ctx), draft); err != nil {
		return nil, err
	}
	t := domainagg.Transition{
		Op:          op,
		DraftID:     draftID,
		Expected:    draft.PublishState,
		To:          publishing.StateDraft,
		Pointer:     domainagg.PointerClear,
		MarkDeleted: true,
	}
	if err := t.Check(draft); err != nil {
		return nil, err
	}
	replicaID := ""
	if draft.ActivePublishedID != nil {
		replicaID = *draft.ActivePublishedID
	}
	s.visibility.DeactivateForDraft(ctx, draft, op)
	updated, err := s.agg.Transition(ctx, t)
	if err != nil {
		return nil, err
	}
	if draft.PublishState == publishing.StatePublished {
		s.notifier.LessonUnpublished(ctx, draft, replicaID)
	}
	s.log.Info("draft moved to trash", "draft_id", draftID, "previous_state", draft.PublishState)
	return updated, nil
}

// Restore clears the tombstone. The draft stays in state draft and is not republished.
func (s *trashService) Restore(ctx context.Context, draftID uuid.UUID) (*publishing.LessonDraft, error) {
	const op = "lesson_draft.restore"
	draft, err := loadDraft(ctx, s.drafts, op, draftID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireOwnerOrAdmin(op, ctxutil.ActorFrom(ctx), draft); err != nil {
		return nil, err
	}
	return s.agg.Transition(ctx, domainagg.Transition{
		Op:           op,
		DraftID:      draftID,
		Expected:     draft.PublishState,
		Deleted:      domainagg.DeletedRequired,
		ClearDeleted: true,
	})
}

func (s *trashService) HardDelete(ctx context.Context, draftID uuid.UUID) error {
	const op = "lesson_draft.hard_delete"
	if err := s.authz.RequireAdmin(op, ctxutil.ActorFrom(ctx)); err != nil {
		return err
	}
	draft, err := loadDraft(ctx, s.drafts, op, draftID)
	if err != nil {
		return err
	}
	s.visibility.DeactivateForDraft(ctx, draft, op)
	compensate(ctx, s.log, s.metrics, op+".purge", func(ctx context.Context) error {
		return s.replicator.Purge(ctx, draft)
	})
	if err := s.agg.HardDelete(ctx, draftID); err != nil {
		return err
	}
	s.notifier.LessonDeleted(ctx, draft, "")
	s.log.Info("draft permanently deleted", "draft_id", draftID)
	return nil
}
