package replica

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
)

// MemoryStore keeps encoded replica documents in process memory. It is used
// for local runs (REPLICA_STORE=memory) and as the base of test doubles.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
	src  map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[string][]byte{}, src: map[string]string{}}
}

func (s *MemoryStore) Backend() string { return "memory" }

func (s *MemoryStore) Get(ctx context.Context, id string) (*publishing.PublishedLesson, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	raw, ok := s.docs[strings.TrimSpace(id)]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return Decode(raw)
}

func (s *MemoryStore) GetBySourceDraftID(ctx context.Context, draftID string) (*publishing.PublishedLesson, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	id, ok := s.src[strings.TrimSpace(draftID)]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *MemoryStore) Upsert(ctx context.Context, lesson *publishing.PublishedLesson) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if lesson == nil || strings.TrimSpace(lesson.ID) == "" {
		return fmt.Errorf("replica id is required")
	}
	raw, err := Encode(lesson)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[lesson.ID] = raw
	if lesson.SourceDraftID != "" {
		s.src[lesson.SourceDraftID] = lesson.ID
	}
	return nil
}

func (s *MemoryStore) SetActive(ctx context.Context, id string, active bool, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.docs[strings.TrimSpace(id)]
	if !ok {
		return ErrNotFound
	}
	lesson, err := Decode(raw)
	if err != nil {
		return err
	}
	applyActive(lesson, active, at)
	next, err := Encode(lesson)
	if err != nil {
		return err
	}
	s.docs[lesson.ID] = next
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id = strings.TrimSpace(id)
	raw, ok := s.docs[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.docs, id)
	if lesson, err := Decode(raw); err == nil && lesson.SourceDraftID != "" && s.src[lesson.SourceDraftID] == id {
		delete(s.src, lesson.SourceDraftID)
	}
	return nil
}

func (s *MemoryStore) List(ctx context.Context, opts ListOptions) ([]*publishing.PublishedLesson, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	all := make([]*publishing.PublishedLesson, 0, len(s.docs))
	for _, raw := range s.docs {
		lesson, err := Decode(raw)
		if err != nil {
			continue
		}
		if (opts.PublicOnly && !lesson.Listed()) || (opts.ActiveOnly && !lesson.IsActive) {
			continue
		}
		all = append(all, lesson)
	}
	s.mu.RUnlock()
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].PublishedAt.Equal(all[j].PublishedAt) {
			return all[i].PublishedAt.After(all[j].PublishedAt)
		}
		return all[i].ID < all[j].ID
	})
	return page(all, opts.Offset, opts.Limit), nil
}

// Len reports how many replicas are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
