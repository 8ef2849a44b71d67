package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// BusyMarker guards a key for the duration of one in-flight operation.
// Acquire returns ok=false when another holder owns an unexpired marker.
type BusyMarker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

type memoryBusyMarker struct {
	mu   sync.Mutex
	now  func() time.Time
	held map[string]busyEntry
}

type busyEntry struct {
	token   string
	expires time.Time
}

func NewMemoryBusyMarker() BusyMarker {
	return &memoryBusyMarker{now: time.Now, held: map[string]busyEntry{}}
}

func (m *memoryBusyMarker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false, fmt.Errorf("busy key required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if cur, ok := m.held[key]; ok && now.Before(cur.expires) {
		return nil, false, nil
	}
	token := uuid.NewString()
	m.held[key] = busyEntry{token: token, expires: now.Add(ttl)}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if cur, ok := m.held[key]; ok && cur.token == token {
			delete(m.held, key)
		}
	}, true, nil
}

// releaseScript deletes the marker only if it still carries our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisBusyMarker struct {
	rdb    goredis.UniversalClient
	prefix string
}

// NewRedisBusyMarker shares the marker across every API replica.
func NewRedisBusyMarker(rdb goredis.UniversalClient, prefix string) BusyMarker {
	return &redisBusyMarker{rdb: rdb, prefix: prefix + "busy:"}
}

func (m *redisBusyMarker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false, fmt.Errorf("busy key required")
	}
	full := m.prefix + key
	token := uuid.NewString()
	ok, err := m.rdb.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return func() {
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(rctx, m.rdb, []string{full}, token).Err()
	}, true, nil
}
