package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/neurobridge-publish/internal/data/aggregates"
	"github.com/yungbote/neurobridge-publish/internal/data/repos"
	domainagg "github.com/yungbote/neurobridge-publish/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/pkg/ctxutil"
	"github.com/yungbote/neurobridge-publish/internal/pkg/dbctx"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
)

// DraftContent is the author-supplied content of a new draft.
type DraftContent struct {
	Title                string
	BodyText             string
	TaskList             json.RawMessage
	TextType             string
	Topics               []string
	VisibilityPreference publishing.Visibility
}

type DraftService interface {
	Create(ctx context.Context, content DraftContent) (*publishing.LessonDraft, error)
	Update(ctx context.Context, draftID uuid.UUID, patch domainagg.ContentPatch) (*publishing.LessonDraft, error)
	Get(ctx context.Context, draftID uuid.UUID) (*publishing.LessonDraft, error)
	ListMine(ctx context.Context, trashed bool) ([]*publishing.LessonDraft, error)
	// SetManualState moves a draft between draft and unlisted without review.
	SetManualState(ctx context.Context, draftID uuid.UUID, state publishing.PublishState) (*publishing.LessonDraft, error)
}

type draftService struct {
	log    *logger.Logger
	drafts repos.LessonDraftRepo
	agg    domainagg.LessonDraftAggregate
	authz  Authorizer
}

func NewDraftService(log *logger.Logger, drafts repos.LessonDraftRepo, agg domainagg.LessonDraftAggregate, authz Authorizer) DraftService {
	return &draftService{
		log:    log.With("service", "DraftService"),
		drafts: drafts,
		agg:    agg,
		authz:  authz,
	}
}

func (s *draftService) Create(ctx context.Context, content DraftContent) (*publishing.LessonDraft, error) {
	const op = "drafts.create"
	actor := ctxutil.ActorFrom(ctx)
	if err := s.authz.RequireAuthenticated(op, actor); err != nil {
		return nil, err
	}
	draft := &publishing.LessonDraft{
		OwnerID:              actor.UserID,
		Title:                strings.TrimSpace(content.Title),
		BodyText:             content.BodyText,
		TextType:             strings.TrimSpace(content.TextType),
		Topics:               datatypes.JSONSlice[string](append([]string{}, content.Topics...)),
		VisibilityPreference: content.VisibilityPreference,
	}
	if len(content.TaskList) > 0 {
		draft.TaskList = datatypes.JSON(content.TaskList)
	}
	created, err := s.agg.Create(ctx, draft)
	if err != nil {
		return nil, err
	}
	s.log.Info("draft created", "draft_id", created.ID, "user_id", actor.UserID)
	return created, nil
}

func (s *draftService) Update(ctx context.Context, draftID uuid.UUID, patch domainagg.ContentPatch) (*publishing.LessonDraft, error) {
	const op = "drafts.update"
	actor := ctxutil.ActorFrom(ctx)
	draft, err := loadDraft(ctx, s.drafts, op, draftID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireOwnerOrAdmin(op, actor, draft); err != nil {
		return nil, err
	}
	return s.agg.UpdateContent(ctx, draftID, patch)
}

func (s *draftService) Get(ctx context.Context, draftID uuid.UUID) (*publishing.LessonDraft, error) {
	const op = "drafts.get"
	draft, err := loadDraft(ctx, s.drafts, op, draftID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireReader(op, ctxutil.ActorFrom(ctx), draft); err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *draftService) ListMine(ctx context.Context, trashed bool) ([]*publishing.LessonDraft, error) {
	const op = "drafts.list"
	actor := ctxutil.ActorFrom(ctx)
	if err := s.authz.RequireAuthenticated(op, actor); err != nil {
		return nil, err
	}
	rows, err := s.drafts.ListByOwner(dbctx.Context{Ctx: ctx}, actor.UserID, trashed)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return rows, nil
}

func (s *draftService) SetManualState(ctx context.Context, draftID uuid.UUID, state publishing.PublishState) (*publishing.LessonDraft, error) {
	const op = "lesson_draft.set_manual_state"
	if !publishing.StateIn(state, publishing.ManualTargetStates) {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "state must be draft or unlisted", nil)
	}
	actor := ctxutil.ActorFrom(ctx)
	draft, err := loadDraft(ctx, s.drafts, op, draftID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireOwnerOrAdmin(op, actor, draft); err != nil {
		return nil, err
	}
	return s.agg.Transition(ctx, domainagg.Transition{
		Op:       op,
		DraftID:  draftID,
		From:     publishing.ManualSourceStates,
		Expected: draft.PublishState,
		To:       state,
	})
}

func loadDraft(ctx context.Context, drafts repos.LessonDraftRepo, op string, id uuid.UUID) (*publishing.LessonDraft, error) {
	if id == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "draft id is required", nil)
	}
	draft, err := drafts.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if draft == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "draft not found", nil)
	}
	return draft, nil
}
