package replica

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	pebble "github.com/cockroachdb/pebble"

	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
)

const (
	pebblePubPrefix = "pub/"
	pebbleSrcPrefix = "src/"
)

// PebbleStore keeps replicas in an embedded pebble database. Writes that
// touch more than one key go through a batch so they land together.
type PebbleStore struct {
	db  *pebble.DB
	log *logger.Logger
	// mu serializes read-modify-write in SetActive and Delete.
	mu sync.Mutex
}

func NewPebbleStore(dir string, baseLog *logger.Logger) (*PebbleStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("pebble dir is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}
	return &PebbleStore{db: db, log: baseLog.With("store", "PebbleReplicaStore")}, nil
}

func (s *PebbleStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PebbleStore) Backend() string { return "pebble" }

func (s *PebbleStore) get(key string) ([]byte, error) {
	v, closer, err := s.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *PebbleStore) Get(ctx context.Context, id string) (*publishing.PublishedLesson, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	raw, err := s.get(pebblePubPrefix + id)
	if err != nil {
		return nil, err
	}
	return Decode(raw)
}

func (s *PebbleStore) GetBySourceDraftID(ctx context.Context, draftID string) (*publishing.PublishedLesson, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	draftID = strings.TrimSpace(draftID)
	if draftID == "" {
		return nil, ErrNotFound
	}
	id, err := s.get(pebbleSrcPrefix + draftID)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, string(id))
}

func (s *PebbleStore) Upsert(ctx context.Context, lesson *publishing.PublishedLesson) error {
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
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set([]byte(pebblePubPrefix+lesson.ID), raw, nil); err != nil {
		return err
	}
	if lesson.SourceDraftID != "" {
		if err := b.Set([]byte(pebbleSrcPrefix+lesson.SourceDraftID), []byte(lesson.ID), nil); err != nil {
			return err
		}
	}
	return b.Commit(pebble.Sync)
}

func (s *PebbleStore) SetActive(ctx context.Context, id string, active bool, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := s.get(pebblePubPrefix + strings.TrimSpace(id))
	if err != nil {
		return err
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
	return s.db.Set([]byte(pebblePubPrefix+lesson.ID), next, pebble.Sync)
}

func (s *PebbleStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := s.get(pebblePubPrefix + strings.TrimSpace(id))
	if err != nil {
		return err
	}
	lesson, err := Decode(raw)
	if err != nil {
		return err
	}
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Delete([]byte(pebblePubPrefix+lesson.ID), nil); err != nil {
		return err
	}
	if lesson.SourceDraftID != "" {
		cur, err := s.get(pebbleSrcPrefix + lesson.SourceDraftID)
		if err == nil && string(cur) == lesson.ID {
			if err := b.Delete([]byte(pebbleSrcPrefix+lesson.SourceDraftID), nil); err != nil {
				return err
			}
		}
	}
	return b.Commit(pebble.Sync)
}

func (s *PebbleStore) List(ctx context.Context, opts ListOptions) ([]*publishing.PublishedLesson, error) {
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(pebblePubPrefix),
		UpperBound: []byte("pub0"), // '0' is the byte after '/'
	})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var all []*publishing.PublishedLesson
	for ok := it.First(); ok; ok = it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lesson, err := Decode(it.Value())
		if err != nil {
			s.log.Warn("skipping undecodable replica", "key", string(it.Key()), "error", err)
			continue
		}
		if (opts.PublicOnly && !lesson.Listed()) || (opts.ActiveOnly && !lesson.IsActive) {
			continue
		}
		all = append(all, lesson)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].PublishedAt.Equal(all[j].PublishedAt) {
			return all[i].PublishedAt.After(all[j].PublishedAt)
		}
		return all[i].ID < all[j].ID
	})
	return page(all, opts.Offset, opts.Limit), nil
}

func page(in []*publishing.PublishedLesson, offset, limit int) []*publishing.PublishedLesson {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(in) {
		return []*publishing.PublishedLesson{}
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
