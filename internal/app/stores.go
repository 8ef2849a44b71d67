package app

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-publish/internal/data/db"
	"github.com/yungbote/neurobridge-publish/internal/data/replica"
	"github.com/yungbote/neurobridge-publish/internal/observability"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
)

// wireReplicaStore opens the configured replica backend. The returned close
// func releases anything the store owns; shared clients are closed elsewhere.
func wireReplicaStore(log *logger.Logger, cfg Config, draftDB *gorm.DB, clients Clients, metrics *observability.Metrics) (replica.Store, func() error, error) {
	noop := func() error { return nil }
	var store replica.Store
	closeFn := noop

	switch strings.ToLower(strings.TrimSpace(cfg.ReplicaStore)) {
	case "", ReplicaPostgres:
		target := draftDB
		if dsn := strings.TrimSpace(cfg.ReplicaPostgresDSN); dsn != "" {
			conn, err := db.Open(postgres.Open(dsn))
			if err != nil {
				return nil, noop, fmt.Errorf("open replica postgres: %w", err)
			}
			target = conn
			closeFn = func() error {
				sqlDB, err := conn.DB()
				if err != nil {
					return err
				}
				return sqlDB.Close()
			}
		}
		if target == nil {
			return nil, noop, fmt.Errorf("replica postgres store needs a database")
		}
		if err := replica.MigrateGorm(target); err != nil {
			_ = closeFn()
			return nil, noop, fmt.Errorf("migrate replica table: %w", err)
		}
		store = replica.NewGormStore(target, log)
	case ReplicaRedis:
		if clients.Redis == nil {
			return nil, noop, fmt.Errorf("REPLICA_STORE=redis requires REDIS_ADDR")
		}
		store = replica.NewRedisStore(clients.Redis, cfg.RedisKeyPrefix+"lesson:", log)
	case ReplicaPebble:
		ps, err := replica.NewPebbleStore(cfg.PebbleDir, log)
		if err != nil {
			return nil, noop, fmt.Errorf("open pebble replica: %w", err)
		}
		store = ps
		closeFn = ps.Close
	case ReplicaMemory:
		log.Warn("REPLICA_STORE=memory; published lessons are lost on restart")
		store = replica.NewMemoryStore()
	default:
		return nil, noop, fmt.Errorf("unsupported REPLICA_STORE %q", cfg.ReplicaStore)
	}

	log.Info("replica store ready", "backend", store.Backend())
	return replica.Instrument(store, metrics), closeFn, nil
}
