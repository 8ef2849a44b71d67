package realtime

import "time"

type EventType string

const (
	EventLessonPublished   EventType = "lesson.published"
	EventLessonUnpublished EventType = "lesson.unpublished"
	EventLessonDeleted     EventType = "lesson.deleted"
)

// Event announces a change in a lesson's public availability.
type Event struct {
	Type       EventType `json:"type"`
	LessonID   string    `json:"lessonId"`
	DraftID    string    `json:"draftId"`
	OwnerID    string    `json:"ownerId,omitempty"`
	Visibility string    `json:"visibility,omitempty"`
	At         time.Time `json:"at"`
}
