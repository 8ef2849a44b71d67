package replica

import (
	"context"
	"errors"
	"time"

	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
)

var (
	// ErrNotFound means no replica exists under the requested key.
	ErrNotFound = errors.New("replica not found")
	// ErrPermissionDenied means the backend refused the read or write.
	ErrPermissionDenied = errors.New("replica permission denied")
)

type ListOptions struct {
	// PublicOnly restricts results to active, publicly listed replicas.
	PublicOnly bool
	// ActiveOnly restricts results to active replicas of any visibility.
	ActiveOnly bool
	Limit      int
	Offset     int
}

// Store is the public replica backend. Every method is a single-record
// atomic operation; there is no cross-record or cross-store transaction.
type Store interface {
	// Backend names the implementation for logs and metrics.
	Backend() string

	Get(ctx context.Context, id string) (*publishing.PublishedLesson, error)
	GetBySourceDraftID(ctx context.Context, draftID string) (*publishing.PublishedLesson, error)
	// Upsert writes the replica under lesson.ID, replacing any previous document.
	Upsert(ctx context.Context, lesson *publishing.PublishedLesson) error
	SetActive(ctx context.Context, id string, active bool, at time.Time) error
	Delete(ctx context.Context, id string) error
	// List returns the newest PublishedAt first.
	List(ctx context.Context, opts ListOptions) ([]*publishing.PublishedLesson, error)
}
