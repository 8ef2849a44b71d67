package replica

import (
	"context"
	"errors"
	"time"

	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/observability"
)

type instrumentedStore struct {
	inner   Store
	metrics *observability.Metrics
}

// Instrument records latency and outcome of every store call.
func Instrument(inner Store, metrics *observability.Metrics) Store {
	if metrics == nil {
		return inner
	}
	return &instrumentedStore{inner: inner, metrics: metrics}
}

func (s *instrumentedStore) observe(op string, start time.Time, err error) {
	if errors.Is(err, ErrNotFound) {
		err = nil
	}
	s.metrics.ObserveReplica(s.inner.Backend(), op, err, time.Since(start))
}

func (s *instrumentedStore) Backend() string { return s.inner.Backend() }

func (s *instrumentedStore) Get(ctx context.Context, id string) (*publishing.PublishedLesson, error) {
	start := time.Now()
	out, err := s.inner.Get(ctx, id)
	s.observe("get", start, err)
	return out, err
}

func (s *instrumentedStore) GetBySourceDraftID(ctx context.Context, draftID string) (*publishing.PublishedLesson, error) {
	start := time.Now()
	out, err := s.inner.GetBySourceDraftID(ctx, draftID)
	s.observe("get_by_source", start, err)
	return out, err
}

func (s *instrumentedStore) Upsert(ctx context.Context, lesson *publishing.PublishedLesson) error {
	start := time.Now()
	err := s.inner.Upsert(ctx, lesson)
	s.observe("upsert", start, err)
	return err
}

func (s *instrumentedStore) SetActive(ctx context.Context, id string, active bool, at time.Time) error {
	start := time.Now()
	err := s.inner.SetActive(ctx, id, active, at)
	s.observe("set_active", start, err)
	return err
}

func (s *instrumentedStore) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := s.inner.Delete(ctx, id)
	s.observe("delete", start, err)
	return err
}

func (s *instrumentedStore) List(ctx context.Context, opts ListOptions) ([]*publishing.PublishedLesson, error) {
	start := time.Now()
	out, err := s.inner.List(ctx, opts)
	s.observe("list", start, err)
	return out, err
}
