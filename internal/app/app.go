package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-publish/internal/data/db"
	"github.com/yungbote/neurobridge-publish/internal/data/replica"
	"github.com/yungbote/neurobridge-publish/internal/http"
	"github.com/yungbote/neurobridge-publish/internal/observability"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
	"github.com/yungbote/neurobridge-publish/internal/realtime"
	"github.com/yungbote/neurobridge-publish/internal/services"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Policy   services.PublishPolicy
	Metrics  *observability.Metrics
	Clients  Clients
	Store    replica.Store
	Repos    Repos
	Services Services

	database      *db.DatabaseService
	closeStore    func() error
	shutdownTrace func(context.Context) error
	closeOnce     sync.Once
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)
	policy, err := LoadPolicy(cfg.PolicyFile)
	if err != nil {
		log.Sync()
		return nil, err
	}

	a := &App{Log: log, Cfg: cfg, Policy: policy}
	a.shutdownTrace = observability.InitOTel(ctx, log, cfg.Otel)
	a.Metrics = observability.Init(log, cfg.MetricsEnabled)

	a.database, err = db.NewDatabaseService(cfg.DB, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.DB = a.database.DB()
	if err := db.AutoMigrateAll(a.DB); err != nil {
		a.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	a.Clients, err = wireClients(ctx, log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Store, a.closeStore, err = wireReplicaStore(log, cfg, a.DB, a.Clients, a.Metrics)
	if err != nil {
		a.Close()
		return nil, err
	}

	gate, err := wireGate(log, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init moderation gate: %w", err)
	}

	a.Repos = wireRepos(a.DB, log)
	a.Services = wireServices(serviceDeps{
		Log:     log,
		DB:      a.DB,
		Cfg:     cfg,
		Policy:  policy,
		Repos:   a.Repos,
		Store:   a.Store,
		Gate:    gate,
		Clients: a.Clients,
		Metrics: a.Metrics,
	})

	handlers := wireHandlers(log, a.Services, a.DB, a.Clients)
	middleware := wireMiddleware(log, a.Services)
	a.Router = wireRouter(log, cfg, policy, a.Metrics, handlers, middleware)
	return a, nil
}

// Run serves HTTP and runs the background workers until ctx is canceled or
// one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	a.Metrics.StartPostgresCollector(gctx, a.Log, a.DB, 15*time.Second)
	a.Metrics.StartRedisCollector(gctx, a.Log, a.Clients.Redis, 15*time.Second)

	g.Go(func() error {
		srv := &http.Server{Engine: a.Router}
		addr := ":" + a.Cfg.Port
		a.Log.Info("http server listening", "addr", addr)
		return srv.Run(gctx, addr)
	})

	if a.Cfg.ReconcileInterval > 0 {
		g.Go(func() error {
			a.Services.Reconciler.Start(gctx, a.Cfg.ReconcileInterval)
			return nil
		})
	}

	if a.Clients.Bus != nil {
		g.Go(func() error {
			err := a.Clients.Bus.StartForwarder(gctx, func(ev realtime.Event) {
				a.Log.Debug("publication event", "type", ev.Type, "lesson_id", ev.LessonID, "draft_id", ev.DraftID)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				a.Log.Warn("event forwarder stopped", "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// Close releases stores, clients and exporters. Safe to call more than once.
func (a *App) Close() {
	if a == nil {
		return
	}
	a.closeOnce.Do(a.close)
}

func (a *App) close() {
	if a.closeStore != nil {
		if err := a.closeStore(); err != nil {
			a.Log.Warn("close replica store", "error", err)
		}
	}
	a.Clients.Close()
	if a.database != nil {
		_ = a.database.Close()
	}
	if a.shutdownTrace != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.shutdownTrace(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
