package app

import (
	"context"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-publish/internal/http"
	httpH "github.com/yungbote/neurobridge-publish/internal/http/handlers"
	httpMW "github.com/yungbote/neurobridge-publish/internal/http/middleware"
	"github.com/yungbote/neurobridge-publish/internal/observability"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
	"github.com/yungbote/neurobridge-publish/internal/services"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health  *httpH.HealthHandler
	Drafts  *httpH.DraftHandler
	Review  *httpH.ReviewHandler
	Publish *httpH.PublishHandler
	Admin   *httpH.AdminHandler
	Catalog *httpH.CatalogHandler
}

func wireMiddleware(log *logger.Logger, svcs Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, svcs.Auth),
	}
}

func wireHandlers(log *logger.Logger, svcs Services, db *gorm.DB, clients Clients) Handlers {
	log.Info("Wiring handlers...")
	checks := map[string]httpH.Pinger{}
	if db != nil {
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if clients.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return clients.Redis.Ping(ctx).Err()
		}
	}
	return Handlers{
		Health: httpH.NewHealthHandler(checks),
		Drafts: httpH.NewDraftHandler(httpH.DraftHandlerDeps{
			Log:        log,
			Drafts:     svcs.Drafts,
			Publishing: svcs.Publishing,
			Trash:      svcs.Trash,
		}),
		Review:  httpH.NewReviewHandler(svcs.Review),
		Publish: httpH.NewPublishHandler(svcs.Publishing),
		Admin:   httpH.NewAdminHandler(log, svcs.Trash, svcs.Reconciler),
		Catalog: httpH.NewCatalogHandler(svcs.Resolver),
	}
}

func wireRouter(log *logger.Logger, cfg Config, policy services.PublishPolicy, metrics *observability.Metrics, h Handlers, mw Middleware) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		ServiceName:    cfg.Otel.ServiceName,
		TracingEnabled: cfg.Otel.Enabled,
		CORSOrigins:    cfg.CORSOrigins,
		SubmitLimit:    httpMW.RateLimitConfig{RPS: cfg.SubmitRateRPS, Burst: cfg.SubmitRateBurst},
		AdminRoles:     policy.AdminRoles,
		AuthMiddleware: mw.Auth,
		DraftHandler:   h.Drafts,
		ReviewHandler:  h.Review,
		PublishHandler: h.Publish,
		AdminHandler:   h.Admin,
		CatalogHandler: h.Catalog,
		HealthHandler:  h.Health,
	})
}
