package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-publish/internal/data/replica"
	"github.com/yungbote/neurobridge-publish/internal/data/repos"
	domainagg "github.com/yungbote/neurobridge-publish/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/observability"
	"github.com/yungbote/neurobridge-publish/internal/pkg/dbctx"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
)

type ReconcileReport struct {
	DraftsScanned   int `json:"draftsScanned"`
	ReplicasScanned int `json:"replicasScanned"`
	Republished     int `json:"republished"`
	PointersFixed   int `json:"pointersFixed"`
	Deactivated     int `json:"deactivated"`
	Errors          int `json:"errors"`
}

// Reconciler repairs drift between drafts and replicas left behind by the
// non-atomic publish, unpublish and delete paths.
type Reconciler interface {
	RunOnce(ctx context.Context) (ReconcileReport, error)
	// Start runs RunOnce every interval until ctx is done.
	Start(ctx context.Context, interval time.Duration)
}

type ReconcilerDeps struct {
	Log        *logger.Logger
	Drafts     repos.LessonDraftRepo
	Aggregate  domainagg.LessonDraftAggregate
	Store      replica.Store
	Replicator PublishReplicator
	Visibility VisibilityController
	Metrics    *observability.Metrics
	BatchSize  int
	// Grace skips replicas written this recently; an approve may still be
	// between its replica write and its pointer update.
	Grace time.Duration
}

type reconciler struct {
	log        *logger.Logger
	drafts     repos.LessonDraftRepo
	agg        domainagg.LessonDraftAggregate
	store      replica.Store
	replicator PublishReplicator
	visibility VisibilityController
	metrics    *observability.Metrics
	batch      int
	grace      time.Duration
	now        func() time.Time
}

func NewReconciler(deps ReconcilerDeps) Reconciler {
	batch := deps.BatchSize
	if batch <= 0 {
		batch = 200
	}
	grace := deps.Grace
	if grace < 0 {
		grace = 0
	}
	return &reconciler{
		log:        deps.Log.With("service", "Reconciler"),
		drafts:     deps.Drafts,
		agg:        deps.Aggregate,
		store:      deps.Store,
		replicator: deps.Replicator,
		visibility: deps.Visibility,
		metrics:    deps.Metrics,
		batch:      batch,
		grace:      grace,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (r *reconciler) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := r.RunOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				r.log.Warn("reconcile pass failed", "error", err)
				continue
			}
			if report.Republished+report.PointersFixed+report.Deactivated+report.Errors > 0 {
				r.log.Info("reconcile pass repaired drift",
					"republished", report.Republished,
					"pointers_fixed", report.PointersFixed,
					"deactivated", report.Deactivated,
					"errors", report.Errors,
				)
			}
		}
	}
}

func (r *reconciler) RunOnce(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	if err := r.repairPublished(ctx, &report); err != nil {
		return report, err
	}
	if err := r.hideOrphans(ctx, &report); err != nil {
		return report, err
	}
	r.metrics.AddReconcileActions("republish", report.Republished)
	r.metrics.AddReconcileActions("pointer", report.PointersFixed)
	r.metrics.AddReconcileActions("deactivate", report.Deactivated)
	r.metrics.AddReconcileActions("error", report.Errors)
	return report, nil
}

// repairPublished makes every published draft point at an active replica.
func (r *reconciler) repairPublished(ctx context.Context, report *ReconcileReport) error {
	after := uuid.Nil
	for {
		rows, err := r.drafts.ListByState(dbctx.Context{Ctx: ctx}, publishing.StatePublished, after, r.batch)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		for _, d := range rows {
			report.DraftsScanned++
			if err := r.repairDraft(ctx, d, report); err != nil {
				report.Errors++
				r.log.Warn("reconcile draft failed", "draft_id", d.ID, "error", err)
			}
		}
		after = rows[len(rows)-1].ID
		if len(rows) < r.batch {
			return nil
		}
	}
}

func (r *reconciler) repairDraft(ctx context.Context, d *publishing.LessonDraft, report *ReconcileReport) error {
	if d.IsDeleted() {
		return nil
	}
	found, err := r.replicator.Locate(ctx, d)
	if err != nil {
		return err
	}
	replicaID := ""
	if found != nil {
		replicaID = found.ID
	}
	if found != nil && !found.IsActive && found.UpdatedAt.After(r.now().Add(-r.grace)) {
		// Hidden moments ago; an unpublish or delete is likely still in flight.
		return nil
	}
	if found == nil || !found.IsActive {
		lesson, err := r.replicator.Replicate(ctx, d.ID, ReplicateOptions{Visibility: d.VisibilityPreference})
		if err != nil {
			return err
		}
		replicaID = lesson.ID
		report.Republished++

		current, err := r.drafts.GetByID(dbctx.Context{Ctx: ctx}, d.ID)
		if err != nil {
			return err
		}
		if current == nil || current.IsDeleted() || current.PublishState != publishing.StatePublished {
			if err := r.visibility.Deactivate(ctx, replicaID); err != nil && !domainagg.IsCode(err, domainagg.CodeNotFound) {
				return err
			}
			report.Deactivated++
			return nil
		}
	}
	if d.ActivePublishedID != nil && *d.ActivePublishedID == replicaID {
		return nil
	}
	if _, err := r.agg.Transition(ctx, domainagg.Transition{
		Op:          "lesson_draft.reconcile_pointer",
		DraftID:     d.ID,
		From:        []publishing.PublishState{publishing.StatePublished},
		Expected:    publishing.StatePublished,
		Pointer:     domainagg.PointerSet,
		PublishedID: replicaID,
	}); err != nil {
		if domainagg.IsCode(err, domainagg.CodeConflict) || domainagg.IsCode(err, domainagg.CodeIllegalTransition) {
			return nil
		}
		return err
	}
	report.PointersFixed++
	return nil
}

// hideOrphans deactivates active replicas whose draft is gone, trashed or no longer published.
func (r *reconciler) hideOrphans(ctx context.Context, report *ReconcileReport) error {
	cutoff := r.now().Add(-r.grace)
	offset := 0
	for {
		rows, err := r.store.List(ctx, replica.ListOptions{ActiveOnly: true, Limit: r.batch, Offset: offset})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		hidden := 0
		for _, l := range rows {
			report.ReplicasScanned++
			if !l.IsActive || l.UpdatedAt.After(cutoff) {
				continue
			}
			orphan, err := r.isOrphan(ctx, l)
			if err != nil {
				report.Errors++
				r.log.Warn("reconcile replica failed", "replica_id", l.ID, "error", err)
				continue
			}
			if !orphan {
				continue
			}
			if err := r.visibility.Deactivate(ctx, l.ID); err != nil {
				report.Errors++
				r.log.Warn("reconcile deactivate failed", "replica_id", l.ID, "error", err)
				continue
			}
			hidden++
			report.Deactivated++
		}
		if len(rows) < r.batch {
			return nil
		}
		// Deactivated rows drop out of the active listing.
		offset += len(rows) - hidden
	}
}

func (r *reconciler) isOrphan(ctx context.Context, l *publishing.PublishedLesson) (bool, error) {
	draftID, err := uuid.Parse(l.SourceDraftID)
	if err != nil {
		// Legacy replicas without a parseable back-reference are left alone.
		return false, nil
	}
	d, err := r.drafts.GetByID(dbctx.Context{Ctx: ctx}, draftID)
	if err != nil {
		return false, err
	}
	if d == nil || d.IsDeleted() || d.PublishState != publishing.StatePublished {
		return true, nil
	}
	if d.ActivePublishedID != nil && *d.ActivePublishedID != l.ID {
		return true, nil
	}
	return false, nil
}
