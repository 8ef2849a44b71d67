package publishing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ModerationRecord struct {
	Status        ModerationStatus              `gorm:"column:status;not null;default:'unknown'" json:"status"`
	RiskScore     float64                       `gorm:"column:risk_score;not null;default:0;index" json:"risk_score"`
	Reasons       datatypes.JSONSlice[string]   `gorm:"column:reasons;type:jsonb" json:"reasons"`
	Notes         string                        `gorm:"column:notes;type:text" json:"notes"`
	CheckedAt     *time.Time                    `gorm:"column:checked_at" json:"checked_at,omitempty"`
	ReviewedBy    *uuid.UUID                    `gorm:"column:reviewed_by;type:uuid" json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time                    `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	ReviewerNotes string                        `gorm:"column:reviewer_notes;type:text" json:"reviewer_notes,omitempty"`
}

type LessonDraft struct {
	ID       uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID  uuid.UUID                   `gorm:"column:owner_id;type:uuid;not null;index" json:"owner_id"`
	Title    string                      `gorm:"column:title;not null;default:''" json:"title"`
	BodyText string                      `gorm:"column:body_text;type:text" json:"body_text"`
	TaskList datatypes.JSON              `gorm:"column:task_list;type:jsonb" json:"task_list"`
	TextType string                      `gorm:"column:text_type" json:"text_type"`
	Topics   datatypes.JSONSlice[string] `gorm:"column:topics;type:jsonb" json:"topics"`

	PublishState         PublishState     `gorm:"column:publish_state;not null;default:'draft';index" json:"publish_state"`
	Moderation           ModerationRecord `gorm:"embedded;embeddedPrefix:moderation_" json:"moderation"`
	VisibilityPreference Visibility       `gorm:"column:visibility_preference;not null;default:'public'" json:"visibility_preference"`

	DeletedAt         *time.Time `gorm:"column:deleted_at;index" json:"deleted_at,omitempty"`
	ActivePublishedID *string    `gorm:"column:active_published_id;index" json:"active_published_id,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (LessonDraft) TableName() string { return "lesson_draft" }

func (d *LessonDraft) IsDeleted() bool { return d != nil && d.DeletedAt != nil }

// HasRequiredContent reports whether title and body are non-blank.
func (d *LessonDraft) HasRequiredContent() bool {
	return d != nil && strings.TrimSpace(d.Title) != "" && strings.TrimSpace(d.BodyText) != ""
}

// Clone returns a deep copy safe to mutate.
func (d *LessonDraft) Clone() *LessonDraft {
	if d == nil {
		return nil
	}
	c := *d
	if d.TaskList != nil {
		c.TaskList = append(datatypes.JSON(nil), d.TaskList...)
	}
	if d.Topics != nil {
		c.Topics = append(datatypes.JSONSlice[string](nil), d.Topics...)
	}
	if d.Moderation.Reasons != nil {
		c.Moderation.Reasons = append(datatypes.JSONSlice[string](nil), d.Moderation.Reasons...)
	}
	c.Moderation.CheckedAt = cloneTime(d.Moderation.CheckedAt)
	c.Moderation.ReviewedAt = cloneTime(d.Moderation.ReviewedAt)
	if d.Moderation.ReviewedBy != nil {
		id := *d.Moderation.ReviewedBy
		c.Moderation.ReviewedBy = &id
	}
	c.DeletedAt = cloneTime(d.DeletedAt)
	if d.ActivePublishedID != nil {
		id := *d.ActivePublishedID
		c.ActivePublishedID = &id
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
