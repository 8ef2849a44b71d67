package services

import (
	"context"
	"time"

	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/observability"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
	"github.com/yungbote/neurobridge-publish/internal/realtime"
	"github.com/yungbote/neurobridge-publish/internal/realtime/bus"
)

// PublicationNotifier announces catalog changes. Delivery is best-effort.
type PublicationNotifier interface {
	LessonPublished(ctx context.Context, lesson *publishing.PublishedLesson)
	LessonUnpublished(ctx context.Context, draft *publishing.LessonDraft, replicaID string)
	LessonDeleted(ctx context.Context, draft *publishing.LessonDraft, replicaID string)
}

type publicationNotifier struct {
	log     *logger.Logger
	bus     bus.Bus
	metrics *observability.Metrics
}

func NewPublicationNotifier(log *logger.Logger, b bus.Bus, metrics *observability.Metrics) PublicationNotifier {
	return &publicationNotifier{log: log.With("service", "PublicationNotifier"), bus: b, metrics: metrics}
}

func (n *publicationNotifier) LessonPublished(ctx context.Context, lesson *publishing.PublishedLesson) {
	if n == nil || lesson == nil {
		return
	}
	n.emit(ctx, realtime.Event{
		Type:       realtime.EventLessonPublished,
		LessonID:   lesson.ID,
		DraftID:    lesson.SourceDraftID,
		OwnerID:    lesson.OwnerID,
		Visibility: string(lesson.Visibility),
		At:         lesson.PublishedAt,
	})
}

func (n *publicationNotifier) LessonUnpublished(ctx context.Context, draft *publishing.LessonDraft, replicaID string) {
	n.draftEvent(ctx, realtime.EventLessonUnpublished, draft, replicaID)
}

func (n *publicationNotifier) LessonDeleted(ctx context.Context, draft *publishing.LessonDraft, replicaID string) {
	n.draftEvent(ctx, realtime.EventLessonDeleted, draft, replicaID)
}

func (n *publicationNotifier) draftEvent(ctx context.Context, t realtime.EventType, draft *publishing.LessonDraft, replicaID string) {
	if n == nil || draft == nil {
		return
	}
	if replicaID == "" {
		replicaID = draft.ID.String()
	}
	n.emit(ctx, realtime.Event{
		Type:     t,
		LessonID: replicaID,
		DraftID:  draft.ID.String(),
		OwnerID:  draft.OwnerID.String(),
		At:       time.Now().UTC(),
	})
}

func (n *publicationNotifier) emit(ctx context.Context, ev realtime.Event) {
	if n.bus == nil {
		return
	}
	ok := compensate(ctx, n.log, nil, "notify."+string(ev.Type), func(ctx context.Context) error {
		return n.bus.Publish(ctx, ev)
	})
	status := "ok"
	if !ok {
		status = "error"
	}
	n.metrics.IncEvent(string(ev.Type), status)
}
