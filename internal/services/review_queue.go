package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-publish/internal/data/aggregates"
	"github.com/yungbote/neurobridge-publish/internal/data/repos"
	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/pkg/ctxutil"
	"github.com/yungbote/neurobridge-publish/internal/pkg/dbctx"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
)

type ReviewPage struct {
	Drafts     []*publishing.LessonDraft
	Offset     int
	PageSize   int
	NextOffset *int
}

// ReviewQueueService is the reviewer view over pending drafts.
type ReviewQueueService interface {
	List(ctx context.Context, offset int) (*ReviewPage, error)
	Approve(ctx context.Context, draftID uuid.UUID) (*publishing.LessonDraft, error)
	Reject(ctx context.Context, draftID uuid.UUID, notes string) (*publishing.LessonDraft, error)
}

type reviewQueueService struct {
	log        *logger.Logger
	drafts     repos.LessonDraftRepo
	publishing PublishingService
	authz      Authorizer
	pageSize   int
}

func NewReviewQueueService(log *logger.Logger, drafts repos.LessonDraftRepo, pub PublishingService, authz Authorizer, policy PublishPolicy) ReviewQueueService {
	return &reviewQueueService{
		log:        log.With("service", "ReviewQueueService"),
		drafts:     drafts,
		publishing: pub,
		authz:      authz,
		pageSize:   policy.WithDefaults().ReviewQueuePageSize,
	}
}

func (s *reviewQueueService) List(ctx context.Context, offset int) (*ReviewPage, error) {
	const op = "review_queue.list"
	if err := s.authz.RequireReviewer(op, ctxutil.ActorFrom(ctx)); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	// One extra row tells us whether another page exists.
	rows, err := s.drafts.ListPending(dbctx.Context{Ctx: ctx}, s.pageSize+1, offset)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	page := &ReviewPage{Offset: offset, PageSize: s.pageSize}
	if len(rows) > s.pageSize {
		rows = rows[:s.pageSize]
		next := offset + s.pageSize
		page.NextOffset = &next
	}
	page.Drafts = rows
	return page, nil
}

func (s *reviewQueueService) Approve(ctx context.Context, draftID uuid.UUID) (*publishing.LessonDraft, error) {
	return s.publishing.Approve(ctx, draftID)
}

func (s *reviewQueueService) Reject(ctx context.Context, draftID uuid.UUID, notes string) (*publishing.LessonDraft, error) {
	return s.publishing.Reject(ctx, draftID, notes)
}
