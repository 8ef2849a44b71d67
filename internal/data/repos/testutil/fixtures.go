package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
)

// DraftOption customizes a seeded draft before insert.
type DraftOption func(d *publishing.LessonDraft)

func WithState(s publishing.PublishState) DraftOption {
	return func(d *publishing.LessonDraft) { d.PublishState = s }
}

func WithRisk(score float64) DraftOption {
	return func(d *publishing.LessonDraft) { d.Moderation.RiskScore = score }
}

func WithUpdatedAt(t time.Time) DraftOption {
	return func(d *publishing.LessonDraft) { d.UpdatedAt = t }
}

func WithDeletedAt(t time.Time) DraftOption {
	return func(d *publishing.LessonDraft) { d.DeletedAt = &t }
}

func SeedDraft(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, opts ...DraftOption) *publishing.LessonDraft {
	tb.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	d := &publishing.LessonDraft{
		ID:                   uuid.New(),
		OwnerID:              ownerID,
		Title:                "Photosynthesis",
		BodyText:             "Plants turn light into sugar.",
		TaskList:             datatypes.JSON([]byte(`[{"prompt":"Name the inputs"}]`)),
		TextType:             "explanation",
		Topics:               datatypes.JSONSlice[string]{"biology"},
		PublishState:         publishing.StateDraft,
		VisibilityPreference: publishing.VisibilityPublic,
		Moderation: publishing.ModerationRecord{
			Status:  publishing.ModerationUnknown,
			Reasons: datatypes.JSONSlice[string]{},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed draft: %v", err)
	}
	return d
}

func PtrString(v string) *string { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
