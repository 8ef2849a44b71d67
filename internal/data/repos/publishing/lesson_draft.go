package publishing

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/pkg/dbctx"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
)

type LessonDraftRepo interface {
	Create(dbc dbctx.Context, rows []*types.LessonDraft) ([]*types.LessonDraft, error)

	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.LessonDraft, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.LessonDraft, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.LessonDraft, error)

	ListByOwner(dbc dbctx.Context, ownerID uuid.UUID, trashed bool) ([]*types.LessonDraft, error)
	// ListPending returns live pending drafts, riskiest first, oldest first within a score.
	ListPending(dbc dbctx.Context, limit, offset int) ([]*types.LessonDraft, error)
	ListByState(dbc dbctx.Context, state types.PublishState, afterID uuid.UUID, limit int) ([]*types.LessonDraft, error)

	FullDeleteByID(dbc dbctx.Context, id uuid.UUID) (bool, error)
}

type lessonDraftRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonDraftRepo(db *gorm.DB, baseLog *logger.Logger) LessonDraftRepo {
	return &lessonDraftRepo{db: db, log: baseLog.With("repo", "LessonDraftRepo")}
}

func (r *lessonDraftRepo) Create(dbc dbctx.Context, rows []*types.LessonDraft) ([]*types.LessonDraft, error) {
	if len(rows) == 0 {
		return []*types.LessonDraft{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *lessonDraftRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.LessonDraft, error) {
	var out []*types.LessonDraft
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *lessonDraftRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.LessonDraft, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *lessonDraftRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.LessonDraft, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.LessonDraft
	err := dbc.DB(r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *lessonDraftRepo) ListByOwner(dbc dbctx.Context, ownerID uuid.UUID, trashed bool) ([]*types.LessonDraft, error) {
	var out []*types.LessonDraft
	if ownerID == uuid.Nil {
		return out, nil
	}
	q := dbc.DB(r.db).Where("owner_id = ?", ownerID)
	if trashed {
		q = q.Where("deleted_at IS NOT NULL").Order("deleted_at DESC")
	} else {
		q = q.Where("deleted_at IS NULL").Order("updated_at DESC")
	}
	if err := q.Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *lessonDraftRepo) ListPending(dbc dbctx.Context, limit, offset int) ([]*types.LessonDraft, error) {
	var out []*types.LessonDraft
	if limit <= 0 {
		return out, nil
	}
	if offset < 0 {
		offset = 0
	}
	err := dbc.DB(r.db).
		Where("publish_state = ? AND deleted_at IS NULL", types.StatePending).
		Order("moderation_risk_score DESC").
		Order("updated_at ASC").
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListByState pages by id so callers can walk the whole table without offsets.
func (r *lessonDraftRepo) ListByState(dbc dbctx.Context, state types.PublishState, afterID uuid.UUID, limit int) ([]*types.LessonDraft, error) {
	var out []*types.LessonDraft
	if limit <= 0 {
		return out, nil
	}
	q := dbc.DB(r.db).Where("publish_state = ?", state)
	if afterID != uuid.Nil {
		q = q.Where("id > ?", afterID)
	}
	if err := q.Order("id ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *lessonDraftRepo) FullDeleteByID(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	res := dbc.DB(r.db).Where("id = ?", id).Delete(&types.LessonDraft{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
