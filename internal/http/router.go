package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	httpH "github.com/yungbote/neurobridge-publish/internal/http/handlers"
	httpMW "github.com/yungbote/neurobridge-publish/internal/http/middleware"
	"github.com/yungbote/neurobridge-publish/internal/observability"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	TracingEnabled bool
	CORSOrigins    []string
	SubmitLimit    httpMW.RateLimitConfig
	AdminRoles     []publishing.Role

	AuthMiddleware *httpMW.AuthMiddleware

	DraftHandler   *httpH.DraftHandler
	ReviewHandler  *httpH.ReviewHandler
	PublishHandler *httpH.PublishHandler
	AdminHandler   *httpH.AdminHandler
	CatalogHandler *httpH.CatalogHandler
	HealthHandler  *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		name := cfg.ServiceName
		if name == "" {
			name = "neurobridge-publish"
		}
		r.Use(otelgin.Middleware(name))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")

	// Catalog (public)
	if cfg.CatalogHandler != nil {
		api.GET("/catalog/lessons", cfg.CatalogHandler.List)
		api.GET("/catalog/lessons/:id", cfg.CatalogHandler.Get)
	}

	protected := api.Group("/")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	} else {
		protected.Use(func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "authentication is not configured", "code": "unauthorized"},
			})
		})
	}

	// Drafts
	if cfg.DraftHandler != nil {
		protected.POST("/drafts", cfg.DraftHandler.Create)
		protected.GET("/drafts", cfg.DraftHandler.List)
		protected.GET("/drafts/:id", cfg.DraftHandler.Get)
		protected.PATCH("/drafts/:id", cfg.DraftHandler.Update)
		protected.DELETE("/drafts/:id", cfg.DraftHandler.Delete)
		protected.POST("/drafts/:id/state", cfg.DraftHandler.SetState)
		protected.POST("/drafts/:id/submit", httpMW.RateLimitPerUser(cfg.SubmitLimit, cfg.Metrics), cfg.DraftHandler.Submit)
		protected.POST("/drafts/:id/unpublish", cfg.DraftHandler.Unpublish)
		protected.POST("/drafts/:id/restore", cfg.DraftHandler.Restore)
	}

	// Review queue
	if cfg.ReviewHandler != nil {
		protected.GET("/review/queue", cfg.ReviewHandler.Queue)
		protected.POST("/review/:id/approve", cfg.ReviewHandler.Approve)
		protected.POST("/review/:id/reject", cfg.ReviewHandler.Reject)
	}

	// Server-side publish surface
	if cfg.PublishHandler != nil {
		protected.POST("/publish", cfg.PublishHandler.Publish)
		protected.POST("/unpublish", cfg.PublishHandler.Unpublish)
	}

	// Admin
	if cfg.AdminHandler != nil && cfg.AuthMiddleware != nil {
		roles := cfg.AdminRoles
		if len(roles) == 0 {
			roles = []publishing.Role{publishing.RoleAdmin}
		}
		admin := api.Group("/admin", cfg.AuthMiddleware.RequireAuth(roles...))
		admin.DELETE("/drafts/:id", cfg.AdminHandler.HardDelete)
		admin.POST("/reconcile", cfg.AdminHandler.Reconcile)
	}

	return r
}
