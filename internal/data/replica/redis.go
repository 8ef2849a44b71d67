package replica

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
)

// Redis layout, all under the configured prefix:
//
//	doc:<id>        replica document (JSON string)
//	src:<draftId>   id of the replica built from the draft
//	idx:all         ZSET of every replica, scored by publishedAt (ms)
//	idx:active      ZSET of active replicas
//	idx:catalog     ZSET of active public replicas
type redisStore struct {
	rdb    goredis.UniversalClient
	prefix string
	log    *logger.Logger
}

func NewRedisStore(rdb goredis.UniversalClient, prefix string, baseLog *logger.Logger) Store {
	prefix = strings.TrimSpace(prefix)
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return &redisStore{rdb: rdb, prefix: prefix, log: baseLog.With("store", "RedisReplicaStore")}
}

func (s *redisStore) Backend() string { return "redis" }

func (s *redisStore) docKey(id string) string      { return s.prefix + "doc:" + id }
func (s *redisStore) srcKey(draftID string) string { return s.prefix + "src:" + draftID }
func (s *redisStore) idxKey(name string) string    { return s.prefix + "idx:" + name }

func (s *redisStore) Get(ctx context.Context, id string) (*publishing.PublishedLesson, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	raw, err := s.rdb.Get(ctx, s.docKey(id)).Bytes()
	if err != nil {
		return nil, mapRedisErr(err)
	}
	return Decode(raw)
}

func (s *redisStore) GetBySourceDraftID(ctx context.Context, draftID string) (*publishing.PublishedLesson, error) {
	draftID = strings.TrimSpace(draftID)
	if draftID == "" {
		return nil, ErrNotFound
	}
	id, err := s.rdb.Get(ctx, s.srcKey(draftID)).Result()
	if err != nil {
		return nil, mapRedisErr(err)
	}
	return s.Get(ctx, id)
}

func (s *redisStore) Upsert(ctx context.Context, lesson *publishing.PublishedLesson) error {
	if lesson == nil || strings.TrimSpace(lesson.ID) == "" {
		return fmt.Errorf("replica id is required")
	}
	raw, err := Encode(lesson)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, s.docKey(lesson.ID), raw, 0)
		if lesson.SourceDraftID != "" {
			p.Set(ctx, s.srcKey(lesson.SourceDraftID), lesson.ID, 0)
		}
		s.index(ctx, p, lesson)
		return nil
	})
	return mapRedisErr(err)
}

func (s *redisStore) index(ctx context.Context, p goredis.Pipeliner, lesson *publishing.PublishedLesson) {
	member := goredis.Z{Score: float64(lesson.PublishedAt.UnixMilli()), Member: lesson.ID}
	p.ZAdd(ctx, s.idxKey("all"), member)
	if lesson.IsActive {
		p.ZAdd(ctx, s.idxKey("active"), member)
	} else {
		p.ZRem(ctx, s.idxKey("active"), lesson.ID)
	}
	if lesson.Listed() {
		p.ZAdd(ctx, s.idxKey("catalog"), member)
	} else {
		p.ZRem(ctx, s.idxKey("catalog"), lesson.ID)
	}
}

func (s *redisStore) SetActive(ctx context.Context, id string, active bool, at time.Time) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNotFound
	}
	key := s.docKey(id)
	err := s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
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
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.Set(ctx, key, next, 0)
			s.index(ctx, p, lesson)
			return nil
		})
		return err
	}, key)
	return mapRedisErr(err)
}

func (s *redisStore) Delete(ctx context.Context, id string) error {
	lesson, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Del(ctx, s.docKey(lesson.ID))
		for _, idx := range []string{"all", "active", "catalog"} {
			p.ZRem(ctx, s.idxKey(idx), lesson.ID)
		}
		return nil
	})
	if err != nil {
		return mapRedisErr(err)
	}
	if lesson.SourceDraftID != "" {
		// Only drop the back-reference if it still points at this replica.
		cur, err := s.rdb.Get(ctx, s.srcKey(lesson.SourceDraftID)).Result()
		if err == nil && cur == lesson.ID {
			if err := s.rdb.Del(ctx, s.srcKey(lesson.SourceDraftID)).Err(); err != nil {
				s.log.Warn("failed to drop source index", "id", lesson.ID, "error", err)
			}
		}
	}
	return nil
}

func (s *redisStore) List(ctx context.Context, opts ListOptions) ([]*publishing.PublishedLesson, error) {
	idx := "all"
	switch {
	case opts.PublicOnly:
		idx = "catalog"
	case opts.ActiveOnly:
		idx = "active"
	}
	start := int64(opts.Offset)
	if start < 0 {
		start = 0
	}
	stop := int64(-1)
	if opts.Limit > 0 {
		stop = start + int64(opts.Limit) - 1
	}
	ids, err := s.rdb.ZRevRange(ctx, s.idxKey(idx), start, stop).Result()
	if err != nil {
		return nil, mapRedisErr(err)
	}
	if len(ids) == 0 {
		return []*publishing.PublishedLesson{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(id)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, mapRedisErr(err)
	}
	out := make([]*publishing.PublishedLesson, 0, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		lesson, err := Decode([]byte(str))
		if err != nil {
			s.log.Warn("skipping undecodable replica", "id", ids[i], "error", err)
			continue
		}
		out = append(out, lesson)
	}
	return out, nil
}

func mapRedisErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, goredis.Nil) {
		return ErrNotFound
	}
	if strings.HasPrefix(err.Error(), "NOPERM") {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, err.Error())
	}
	return err
}
