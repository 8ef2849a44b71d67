package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-publish/internal/data/repos/publishing"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
)

type LessonDraftRepo = publishing.LessonDraftRepo

func NewLessonDraftRepo(db *gorm.DB, log *logger.Logger) LessonDraftRepo {
	return publishing.NewLessonDraftRepo(db, log)
}
