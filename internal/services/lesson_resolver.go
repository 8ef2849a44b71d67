package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yungbote/neurobridge-publish/internal/data/replica"
	domainagg "github.com/yungbote/neurobridge-publish/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/observability"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
)

const (
	maxCatalogPage     = 100
	defaultCatalogPage = 20

	// Bounds a shared lookup that no longer follows any one caller's deadline.
	resolveTimeout = 10 * time.Second
)

// LessonResolver serves replicas to the public.
type LessonResolver interface {
	// Resolve returns an active replica by public id, falling back to the
	// source draft index. Inactive replicas are reported as not found.
	Resolve(ctx context.Context, publicID string) (*publishing.PublishedLesson, error)
	ListCatalog(ctx context.Context, limit, offset int) ([]*publishing.PublishedLesson, error)
}

type lessonResolver struct {
	log     *logger.Logger
	store   replica.Store
	metrics *observability.Metrics
	group   singleflight.Group
}

func NewLessonResolver(log *logger.Logger, store replica.Store, metrics *observability.Metrics) LessonResolver {
	return &lessonResolver{
		log:     log.With("service", "LessonResolver"),
		store:   store,
		metrics: metrics,
	}
}

func (r *lessonResolver) Resolve(ctx context.Context, publicID string) (*publishing.PublishedLesson, error) {
	const op = "lesson.resolve"
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "lesson unavailable", nil)
	}
	v, err, _ := r.group.Do(publicID, func() (interface{}, error) {
		// The flight is shared, so one caller hanging up must not fail the rest.
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resolveTimeout)
		defer cancel()
		return r.resolve(lookupCtx, op, publicID)
	})
	if err != nil {
		return nil, err
	}
	// Callers sharing a flight must not share the pointer.
	lesson := *(v.(*publishing.PublishedLesson))
	lesson.Topics = append([]string{}, lesson.Topics...)
	return &lesson, nil
}

func (r *lessonResolver) resolve(ctx context.Context, op, publicID string) (*publishing.PublishedLesson, error) {
	lesson, primaryErr := r.store.Get(ctx, publicID)
	if primaryErr != nil {
		if !isMiss(primaryErr) {
			r.metrics.IncResolve("error")
			return nil, domainagg.NewError(domainagg.CodeRetryable, op, "replica store unavailable", primaryErr)
		}
		var fallbackErr error
		lesson, fallbackErr = r.store.GetBySourceDraftID(ctx, publicID)
		if fallbackErr != nil {
			if !isMiss(fallbackErr) {
				r.metrics.IncResolve("error")
				return nil, domainagg.NewError(domainagg.CodeRetryable, op, "replica store unavailable", fallbackErr)
			}
			if errors.Is(primaryErr, replica.ErrPermissionDenied) || errors.Is(fallbackErr, replica.ErrPermissionDenied) {
				r.metrics.IncResolve("permission_denied")
				r.log.Debug("replica read denied", "public_id", publicID)
				return nil, domainagg.NewError(domainagg.CodePermissionDenied, op, "lesson unavailable", fallbackErr)
			}
			r.metrics.IncResolve("not_found")
			return nil, domainagg.NewError(domainagg.CodeNotFound, op, "lesson unavailable", nil)
		}
		r.metrics.IncResolve("fallback")
	}
	if !lesson.IsActive {
		r.metrics.IncResolve("inactive")
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "lesson unavailable", nil)
	}
	r.metrics.IncResolve("hit")
	return lesson, nil
}

func (r *lessonResolver) ListCatalog(ctx context.Context, limit, offset int) ([]*publishing.PublishedLesson, error) {
	const op = "lesson.catalog"
	if limit <= 0 {
		limit = defaultCatalogPage
	}
	if limit > maxCatalogPage {
		limit = maxCatalogPage
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.store.List(ctx, replica.ListOptions{PublicOnly: true, Limit: limit, Offset: offset})
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeRetryable, op, "replica store unavailable", err)
	}
	out := make([]*publishing.PublishedLesson, 0, len(rows))
	for _, l := range rows {
		if l.Listed() {
			out = append(out, l)
		}
	}
	return out, nil
}
