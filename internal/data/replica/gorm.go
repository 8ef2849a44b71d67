package replica

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
)

// PublishedLessonRow is the relational shape of a replica. Query columns are
// lifted out of the document; the document stays the source of truth.
type PublishedLessonRow struct {
	ID            string         `gorm:"column:id;primaryKey"`
	SourceDraftID string         `gorm:"column:source_draft_id;not null;index"`
	IsActive      bool           `gorm:"column:is_active;not null;index"`
	Visibility    string         `gorm:"column:visibility;not null"`
	PublishedAt   time.Time      `gorm:"column:published_at;not null;index"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;not null"`
	Document      datatypes.JSON `gorm:"column:document;type:jsonb;not null"`
}

func (PublishedLessonRow) TableName() string { return "published_lesson" }

type gormStore struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewGormStore returns a Store over the published_lesson table.
func NewGormStore(db *gorm.DB, baseLog *logger.Logger) Store {
	return &gormStore{db: db, log: baseLog.With("store", "GormReplicaStore")}
}

// MigrateGorm creates the replica table.
func MigrateGorm(db *gorm.DB) error {
	return db.AutoMigrate(&PublishedLessonRow{})
}

func (s *gormStore) Backend() string { return "postgres" }

func (s *gormStore) Get(ctx context.Context, id string) (*publishing.PublishedLesson, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	var row PublishedLessonRow
	err := s.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&row).Error
	if err != nil {
		return nil, mapGormErr(err)
	}
	if row.ID == "" {
		return nil, ErrNotFound
	}
	return rowToLesson(&row)
}

func (s *gormStore) GetBySourceDraftID(ctx context.Context, draftID string) (*publishing.PublishedLesson, error) {
	draftID = strings.TrimSpace(draftID)
	if draftID == "" {
		return nil, ErrNotFound
	}
	var row PublishedLessonRow
	err := s.db.WithContext(ctx).
		Where("source_draft_id = ?", draftID).
		Order("is_active DESC").
		Order("updated_at DESC").
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, mapGormErr(err)
	}
	if row.ID == "" {
		return nil, ErrNotFound
	}
	return rowToLesson(&row)
}

func (s *gormStore) Upsert(ctx context.Context, lesson *publishing.PublishedLesson) error {
	row, err := lessonToRow(lesson)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(row).Error
	return mapGormErr(err)
}

func (s *gormStore) SetActive(ctx context.Context, id string, active bool, at time.Time) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNotFound
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row PublishedLessonRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
			return err
		}
		if row.ID == "" {
			return ErrNotFound
		}
		lesson, err := rowToLesson(&row)
		if err != nil {
			return err
		}
		applyActive(lesson, active, at)
		next, err := lessonToRow(lesson)
		if err != nil {
			return err
		}
		return tx.Model(&PublishedLessonRow{}).Where("id = ?", id).Updates(map[string]any{
			"is_active":  next.IsActive,
			"updated_at": next.UpdatedAt,
			"document":   next.Document,
		}).Error
	})
	return mapGormErr(err)
}

func (s *gormStore) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNotFound
	}
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&PublishedLessonRow{})
	if res.Error != nil {
		return mapGormErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) List(ctx context.Context, opts ListOptions) ([]*publishing.PublishedLesson, error) {
	q := s.db.WithContext(ctx).Model(&PublishedLessonRow{})
	if opts.PublicOnly || opts.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if opts.PublicOnly {
		q = q.Where("visibility = ?", string(publishing.VisibilityPublic))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	var rows []PublishedLessonRow
	if err := q.Order("published_at DESC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, mapGormErr(err)
	}
	out := make([]*publishing.PublishedLesson, 0, len(rows))
	for i := range rows {
		lesson, err := rowToLesson(&rows[i])
		if err != nil {
			s.log.Warn("skipping undecodable replica", "id", rows[i].ID, "error", err)
			continue
		}
		out = append(out, lesson)
	}
	return out, nil
}

func lessonToRow(p *publishing.PublishedLesson) (*PublishedLessonRow, error) {
	if p == nil || strings.TrimSpace(p.ID) == "" {
		return nil, fmt.Errorf("replica id is required")
	}
	doc, err := Encode(p)
	if err != nil {
		return nil, err
	}
	return &PublishedLessonRow{
		ID:            p.ID,
		SourceDraftID: p.SourceDraftID,
		IsActive:      p.IsActive,
		Visibility:    string(p.Visibility),
		PublishedAt:   p.PublishedAt,
		UpdatedAt:     p.UpdatedAt,
		Document:      datatypes.JSON(doc),
	}, nil
}

func rowToLesson(row *PublishedLessonRow) (*publishing.PublishedLesson, error) {
	lesson, err := Decode(row.Document)
	if err != nil {
		return nil, err
	}
	// Lifted columns win over a stale document.
	lesson.ID = row.ID
	if row.SourceDraftID != "" {
		lesson.SourceDraftID = row.SourceDraftID
	}
	lesson.IsActive = row.IsActive
	return lesson, nil
}

func mapGormErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrPermissionDenied) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42501" {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, pgErr.Message)
	}
	return err
}
