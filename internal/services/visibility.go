package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yungbote/neurobridge-publish/internal/data/replica"
	domainagg "github.com/yungbote/neurobridge-publish/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/observability"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
)

// VisibilityController owns the isActive flag of replicas. It never deletes.
type VisibilityController interface {
	// Deactivate hides one replica and reports failures.
	Deactivate(ctx context.Context, replicaID string) error
	// DeactivateForDraft hides the draft's replica, if any, as a compensating
	// action. Failures are logged and counted; it reports whether it succeeded.
	DeactivateForDraft(ctx context.Context, draft *publishing.LessonDraft, op string) bool
}

type visibilityController struct {
	log        *logger.Logger
	store      replica.Store
	replicator PublishReplicator
	metrics    *observability.Metrics
	now        func() time.Time
}

func NewVisibilityController(log *logger.Logger, store replica.Store, replicator PublishReplicator, metrics *observability.Metrics) VisibilityController {
	return &visibilityController{
		log:        log.With("service", "VisibilityController"),
		store:      store,
		replicator: replicator,
		metrics:    metrics,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (v *visibilityController) Deactivate(ctx context.Context, replicaID string) error {
	const op = "replica.deactivate"
	replicaID = strings.TrimSpace(replicaID)
	if replicaID == "" {
		return domainagg.NewError(domainagg.CodeValidation, op, "replica id is required", nil)
	}
	err := v.store.SetActive(ctx, replicaID, false, v.now())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, replica.ErrNotFound):
		return domainagg.NewError(domainagg.CodeNotFound, op, "replica not found", err)
	case errors.Is(err, replica.ErrPermissionDenied):
		return domainagg.NewError(domainagg.CodePermissionDenied, op, "replica not writable", err)
	default:
		return domainagg.NewError(domainagg.CodeReplicaWriteFailure, op, "replica deactivate failed", err)
	}
}

func (v *visibilityController) DeactivateForDraft(ctx context.Context, draft *publishing.LessonDraft, op string) bool {
	if draft == nil {
		return true
	}
	return compensate(ctx, v.log, v.metrics, op+".deactivate", func(ctx context.Context) error {
		found, err := v.replicator.Locate(ctx, draft)
		if err != nil {
			return err
		}
		if found == nil || !found.IsActive {
			return nil
		}
		if err := v.Deactivate(ctx, found.ID); err != nil && !domainagg.IsCode(err, domainagg.CodeNotFound) {
			return err
		}
		v.log.Info("replica deactivated", "op", op, "draft_id", draft.ID, "replica_id", found.ID)
		return nil
	})
}
