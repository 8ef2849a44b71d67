package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/neurobridge-publish/internal/data/repos"
	domainagg "github.com/yungbote/neurobridge-publish/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/observability"
	"github.com/yungbote/neurobridge-publish/internal/pkg/ctxutil"
	"github.com/yungbote/neurobridge-publish/internal/pkg/dbctx"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
	"github.com/yungbote/neurobridge-publish/internal/platform/moderation"
)

const maxModerationNoteLen = 500

type PublishingService interface {
	Submit(ctx context.Context, draftID uuid.UUID) (*publishing.LessonDraft, error)
	Approve(ctx context.Context, draftID uuid.UUID) (*publishing.LessonDraft, error)
	Reject(ctx context.Context, draftID uuid.UUID, notes string) (*publishing.LessonDraft, error)
	PublishDirect(ctx context.Context, draftID uuid.UUID, visibility publishing.Visibility) (*publishing.PublishedLesson, error)
	// Publish approves a pending draft for reviewers and publishes directly
	// for trusted owners. It returns the replica id.
	Publish(ctx context.Context, draftID uuid.UUID, visibility publishing.Visibility) (string, error)
	Unpublish(ctx context.Context, draftID uuid.UUID) (*publishing.LessonDraft, error)
	// UnpublishReplica hides a replica by id and, when draftID is set, reverts the draft.
	UnpublishReplica(ctx context.Context, replicaID string, draftID uuid.UUID) error
}

type PublishingServiceDeps struct {
	Log        *logger.Logger
	Drafts     repos.LessonDraftRepo
	Aggregate  domainagg.LessonDraftAggregate
	Gate       moderation.Gate
	Replicator PublishReplicator
	Visibility VisibilityController
	Notifier   PublicationNotifier
	Busy       BusyMarker
	Metrics    *observability.Metrics
	Policy     PublishPolicy
}

type publishingService struct {
	log        *logger.Logger
	drafts     repos.LessonDraftRepo
	agg        domainagg.LessonDraftAggregate
	gate       moderation.Gate
	replicator PublishReplicator
	visibility VisibilityController
	notifier   PublicationNotifier
	busy       BusyMarker
	metrics    *observability.Metrics
	policy     PublishPolicy
	authz      Authorizer
	now        func() time.Time
}

func NewPublishingService(deps PublishingServiceDeps) PublishingService {
	policy := deps.Policy.WithDefaults()
	busy := deps.Busy
	if busy == nil {
		busy = NewMemoryBusyMarker()
	}
	return &publishingService{
		log:        deps.Log.With("service", "PublishingService"),
		drafts:     deps.Drafts,
		agg:        deps.Aggregate,
		gate:       deps.Gate,
		replicator: deps.Replicator,
		visibility: deps.Visibility,
		notifier:   deps.Notifier,
		busy:       busy,
		metrics:    deps.Metrics,
		policy:     policy,
		authz:      NewAuthorizer(policy),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *publishingService) Submit(ctx context.Context, draftID uuid.UUID) (*publishing.LessonDraft, error) {
	const op = "lesson_draft.submit"
	actor := ctxutil.ActorFrom(ctx)
	draft, err := loadDraft(ctx, s.drafts, op, draftID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireOwner(op, actor, draft); err != nil {
		return nil, err
	}
	if draft.IsDeleted() {
		return nil, domainagg.NewError(domainagg.CodeIllegalTransition, op, "draft is in trash", nil)
	}
	if !publishing.StateIn(draft.PublishState, publishing.SubmittableStates) {
		return nil, domainagg.NewError(domainagg.CodeIllegalTransition, op, "cannot submit from state "+string(draft.PublishState), nil)
	}
	if !draft.HasRequiredContent() {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "title and body are required before review", nil)
	}

	release, ok, err := s.busy.Acquire(ctx, "submit:"+draftID.String(), s.policy.BusyTTL)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeRetryable, op, "could not mark draft busy", err)
	}
	if !ok {
		return nil, domainagg.NewError(domainagg.CodeConflict, op, "a submission for this draft is already in progress", nil)
	}
	defer release()

	// The gate call and its persistence complete even if the caller goes away.
	workCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.policy.ModerationTimeout)
	defer cancel()
	workCtx, span := observability.StartSpan(workCtx, "publishing.submit",
		attribute.String("draft.id", draftID.String()),
		attribute.String("draft.state", string(draft.PublishState)),
	)
	out, err := s.moderateAndRecord(workCtx, op, draft)
	observability.EndSpan(span, err)
	return out, err
}

func (s *publishingService) moderateAndRecord(ctx context.Context, op string, draft *publishing.LessonDraft) (*publishing.LessonDraft, error) {
	start := time.Now()
	verdict, gateErr := s.gate.Check(ctx, moderation.Input{
		Title:    draft.Title,
		BodyText: draft.BodyText,
		TaskList: []byte(draft.TaskList),
	})
	checkedAt := s.now()

	if gateErr != nil {
		s.metrics.ObserveModeration("error", time.Since(start))
		s.log.Warn("moderation gate failed", "draft_id", draft.ID, "error", gateErr)
		rec := publishing.ModerationRecord{
			Status:    publishing.ModerationUnknown,
			Notes:     truncate("moderation unavailable: "+gateErr.Error(), maxModerationNoteLen),
			CheckedAt: &checkedAt,
		}
		if _, err := s.agg.Transition(ctx, domainagg.Transition{
			Op:         op + "_failed",
			DraftID:    draft.ID,
			From:       publishing.SubmittableStates,
			Expected:   draft.PublishState,
			Moderation: &rec,
		}); err != nil {
			s.log.Warn("recording moderation failure failed", "draft_id", draft.ID, "error", err)
		}
		return nil, domainagg.NewError(domainagg.CodeRetryable, op, "moderation is temporarily unavailable", gateErr)
	}

	s.metrics.ObserveModeration(string(verdict.Status), time.Since(start))
	rec := publishing.ModerationRecord{
		Status:    verdict.Status,
		RiskScore: verdict.RiskScore,
		Reasons:   append([]string{}, verdict.Reasons...),
		Notes:     verdict.Notes,
		CheckedAt: &checkedAt,
	}
	to := publishing.StatePending
	if verdict.Status == publishing.ModerationBlocked {
		to = publishing.StateDraft
	}
	updated, err := s.agg.Transition(ctx, domainagg.Transition{
		Op:         op,
		DraftID:    draft.ID,
		From:       publishing.SubmittableStates,
		Expected:   draft.PublishState,
		To:         to,
		Moderation: &rec,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("draft submitted",
		"draft_id", draft.ID,
		"verdict", verdict.Status,
		"risk_score", verdict.RiskScore,
		"state", updated.PublishState,
	)
	if verdict.Status == publishing.ModerationBlocked {
		return updated, domainagg.Blocked(op, verdict.Reasons)
	}
	return updated, nil
}

func (s *publishingService) Approve(ctx context.Context, draftID uuid.UUID) (out *publishing.LessonDraft, err error) {
	const op = "lesson_draft.approve"
	actor := ctxutil.ActorFrom(ctx)
	if err := s.authz.RequireReviewer(op, actor); err != nil {
		return nil, err
	}
	draft, err := loadDraft(ctx, s.drafts, op, draftID)
	if err != nil {
		return nil, err
	}
	check := domainagg.Transition{Op: op, From: []publishing.PublishState{publishing.StatePending}}
	if err := check.Check(draft); err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "publishing.approve", attribute.String("draft.id", draftID.String()))
	defer func() { observability.EndSpan(span, err) }()

	lesson, err := s.replicator.Replicate(ctx, draftID, ReplicateOptions{ReviewerID: actor.UserID})
	if err != nil {
		return nil, err
	}
	updated, err := s.agg.Transition(ctx, domainagg.Transition{
		Op:          op,
		DraftID:     draftID,
		From:        []publishing.PublishState{publishing.StatePending},
		Expected:    publishing.StatePending,
		To:          publishing.StatePublished,
		Pointer:     domainagg.PointerSet,
		PublishedID: lesson.ID,
		Review:      &domainagg.ReviewStamp{ReviewerID: actor.UserID},
	})
	if err != nil {
		s.settleOrphanReplica(ctx, op, draftID, lesson.ID)
		return nil, err
	}
	s.notifier.LessonPublished(ctx, lesson)
	return updated, nil
}

func (s *publishingService) Reject(ctx context.Context, draftID uuid.UUID, notes string) (*publishing.LessonDraft, error) {
	const op = "lesson_draft.reject"
	actor := ctxutil.ActorFrom(ctx)
	if err := s.authz.RequireReviewer(op, actor); err != nil {
		return nil, err
	}
	draft, err := loadDraft(ctx, s.drafts, op, draftID)
	if err != nil {
		return nil, err
	}
	updated, err := s.agg.Transition(ctx, domainagg.Transition{
		Op:       op,
		DraftID:  draftID,
		From:     []publishing.PublishState{publishing.StatePending},
		Expected: publishing.StatePending,
		To:       s.policy.RejectTargetState,
		Pointer:  domainagg.PointerClear,
		Review:   &domainagg.ReviewStamp{ReviewerID: actor.UserID, Notes: notes},
	})
	if err != nil {
		return nil, err
	}
	s.visibility.DeactivateForDraft(ctx, draft, op)
	return updated, nil
}

func (s *publishingService) PublishDirect(ctx context.Context, draftID uuid.UUID, visibility publishing.Visibility) (out *publishing.PublishedLesson, err error) {
	const op = "lesson_draft.publish_direct"
	actor := ctxutil.ActorFrom(ctx)
	draft, err := loadDraft(ctx, s.drafts, op, draftID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireTrustedPublisher(op, actor, draft); err != nil {
		return nil, err
	}
	check := domainagg.Transition{Op: op, From: publishing.DirectPublishStates}
	if err := check.Check(draft); err != nil {
		return nil, err
	}
	if !draft.HasRequiredContent() {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "title and body are required to publish", nil)
	}

	ctx, span := observability.StartSpan(ctx, "publishing.publish_direct", attribute.String("draft.id", draftID.String()))
	defer func() { observability.EndSpan(span, err) }()

	lesson, err := s.replicator.Replicate(ctx, draftID, ReplicateOptions{Visibility: visibility})
	if err != nil {
		return nil, err
	}
	if _, err := s.agg.Transition(ctx, domainagg.Transition{
		Op:          op,
		DraftID:     draftID,
		From:        publishing.DirectPublishStates,
		Expected:    draft.PublishState,
		To:          publishing.StatePublished,
		Visibility:  lesson.Visibility,
		Pointer:     domainagg.PointerSet,
		PublishedID: lesson.ID,
	}); err != nil {
		s.settleOrphanReplica(ctx, op, draftID, lesson.ID)
		return nil, err
	}
	s.notifier.LessonPublished(ctx, lesson)
	return lesson, nil
}

func (s *publishingService) Publish(ctx context.Context, draftID uuid.UUID, visibility publishing.Visibility) (string, error) {
	const op = "lesson_draft.publish"
	actor := ctxutil.ActorFrom(ctx)
	draft, err := loadDraft(ctx, s.drafts, op, draftID)
	if err != nil {
		return "", err
	}
	if draft.PublishState == publishing.StatePending && s.authz.IsReviewer(actor) && !actor.Owns(draft) {
		updated, err := s.Approve(ctx, draftID)
		if err != nil {
			return "", err
		}
		if updated.ActivePublishedID == nil {
			return "", domainagg.NewError(domainagg.CodeInternal, op, "approved draft has no replica pointer", nil)
		}
		return *updated.ActivePublishedID, nil
	}
	lesson, err := s.PublishDirect(ctx, draftID, visibility)
	if err != nil {
		return "", err
	}
	return lesson.ID, nil
}

func (s *publishingService) Unpublish(ctx context.Context, draftID uuid.UUID) (*publishing.LessonDraft, error) {
	const op = "lesson_draft.unpublish"
	actor := ctxutil.ActorFrom(ctx)
	draft, err := loadDraft(ctx, s.drafts, op, draftID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireOwnerOrAdmin(op, actor, draft); err != nil {
		return nil, err
	}
	return s.unpublishDraft(ctx, op, draft)
}

func (s *publishingService) unpublishDraft(ctx context.Context, op string, draft *publishing.LessonDraft) (*publishing.LessonDraft, error) {
	t := domainagg.Transition{
		Op:       op,
		DraftID:  draft.ID,
		From:     []publishing.PublishState{publishing.StatePublished},
		Expected: publishing.StatePublished,
		To:       publishing.StateDraft,
		Pointer:  domainagg.PointerClear,
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
	s.notifier.LessonUnpublished(ctx, draft, replicaID)
	return updated, nil
}

func (s *publishingService) UnpublishReplica(ctx context.Context, replicaID string, draftID uuid.UUID) error {
	const op = "replica.unpublish"
	actor := ctxutil.ActorFrom(ctx)
	replicaID = strings.TrimSpace(replicaID)
	if replicaID == "" {
		return domainagg.NewError(domainagg.CodeValidation, op, "id is required", nil)
	}

	if draftID != uuid.Nil {
		draft, err := loadDraft(ctx, s.drafts, op, draftID)
		if err != nil {
			return err
		}
		if err := s.authz.RequireOwnerOrAdmin(op, actor, draft); err != nil {
			return err
		}
		if err := s.visibility.Deactivate(ctx, replicaID); err != nil && !domainagg.IsCode(err, domainagg.CodeNotFound) {
			return err
		}
		if draft.PublishState != publishing.StatePublished {
			return nil
		}
		_, err = s.unpublishDraft(ctx, op, draft)
		return err
	}

	if err := s.authz.RequireAuthenticated(op, actor); err != nil {
		return err
	}
	if !s.authz.IsAdmin(actor) {
		lesson, err := s.replicator.Lookup(ctx, replicaID)
		if err != nil {
			return domainagg.NewError(domainagg.CodeReplicaWriteFailure, op, "replica lookup failed", err)
		}
		if lesson == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, "replica not found", nil)
		}
		if lesson.OwnerID != actor.UserID.String() {
			return domainagg.NewError(domainagg.CodeAuthorization, op, "not the owner of this lesson", nil)
		}
	}
	return s.visibility.Deactivate(ctx, replicaID)
}

// settleOrphanReplica hides a replica written for a pointer update that lost
// a race, unless the draft ended up pointing at it anyway.
func (s *publishingService) settleOrphanReplica(ctx context.Context, op string, draftID uuid.UUID, replicaID string) {
	compensate(ctx, s.log, s.metrics, op+".settle_replica", func(ctx context.Context) error {
		current, err := s.drafts.GetByID(dbctx.Context{Ctx: ctx}, draftID)
		if err != nil {
			return err
		}
		if current != nil && current.PublishState == publishing.StatePublished && !current.IsDeleted() &&
			current.ActivePublishedID != nil && *current.ActivePublishedID == replicaID {
			return nil
		}
		if err := s.visibility.Deactivate(ctx, replicaID); err != nil && !domainagg.IsCode(err, domainagg.CodeNotFound) {
			return fmt.Errorf("deactivate %s: %w", replicaID, err)
		}
		return nil
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
