package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&publishing.LessonDraft{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
