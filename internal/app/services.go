package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-publish/internal/data/aggregates"
	"github.com/yungbote/neurobridge-publish/internal/data/replica"
	"github.com/yungbote/neurobridge-publish/internal/data/repos"
	domainagg "github.com/yungbote/neurobridge-publish/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-publish/internal/observability"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
	"github.com/yungbote/neurobridge-publish/internal/platform/moderation"
	"github.com/yungbote/neurobridge-publish/internal/services"
)

type Repos struct {
	Drafts repos.LessonDraftRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Drafts: repos.NewLessonDraftRepo(db, log),
	}
}

type Services struct {
	Auth       services.AuthService
	Authz      services.Authorizer
	Drafts     services.DraftService
	Publishing services.PublishingService
	Trash      services.TrashService
	Review     services.ReviewQueueService
	Resolver   services.LessonResolver
	Reconciler services.Reconciler
	Replicator services.PublishReplicator
	Visibility services.VisibilityController
	Notifier   services.PublicationNotifier
}

type serviceDeps struct {
	Log     *logger.Logger
	DB      *gorm.DB
	Cfg     Config
	Policy  services.PublishPolicy
	Repos   Repos
	Store   replica.Store
	Gate    moderation.Gate
	Clients Clients
	Metrics *observability.Metrics
}

func wireServices(deps serviceDeps) Services {
	log := deps.Log
	log.Info("Wiring services...")

	agg := aggregates.NewLessonDraftAggregate(aggregates.LessonDraftAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:    deps.DB,
			Log:   log,
			Hooks: aggregates.NewObservabilityHooks(deps.Metrics),
		},
		Drafts: deps.Repos.Drafts,
	})
	return buildServices(deps, agg)
}

func buildServices(deps serviceDeps, agg domainagg.LessonDraftAggregate) Services {
	log := deps.Log
	policy := deps.Policy.WithDefaults()
	authz := services.NewAuthorizer(policy)

	// Submissions hold a busy marker across API replicas when Redis is available.
	busy := services.NewMemoryBusyMarker()
	if deps.Clients.Redis != nil {
		busy = services.NewRedisBusyMarker(deps.Clients.Redis, deps.Cfg.RedisKeyPrefix)
	}

	notifier := services.NewPublicationNotifier(log, deps.Clients.Bus, deps.Metrics)
	replicator := services.NewPublishReplicator(log, deps.Repos.Drafts, deps.Store)
	visibility := services.NewVisibilityController(log, deps.Store, replicator, deps.Metrics)

	pub := services.NewPublishingService(services.PublishingServiceDeps{
		Log:        log,
		Drafts:     deps.Repos.Drafts,
		Aggregate:  agg,
		Gate:       deps.Gate,
		Replicator: replicator,
		Visibility: visibility,
		Notifier:   notifier,
		Busy:       busy,
		Metrics:    deps.Metrics,
		Policy:     policy,
	})

	return Services{
		Auth:       services.NewAuthService(log, deps.Cfg.JWTSecretKey),
		Authz:      authz,
		Drafts:     services.NewDraftService(log, deps.Repos.Drafts, agg, authz),
		Publishing: pub,
		Trash: services.NewTrashService(services.TrashServiceDeps{
			Log:        log,
			Drafts:     deps.Repos.Drafts,
			Aggregate:  agg,
			Replicator: replicator,
			Visibility: visibility,
			Notifier:   notifier,
			Metrics:    deps.Metrics,
			Authz:      authz,
		}),
		Review:   services.NewReviewQueueService(log, deps.Repos.Drafts, pub, authz, policy),
		Resolver: services.NewLessonResolver(log, deps.Store, deps.Metrics),
		Reconciler: services.NewReconciler(services.ReconcilerDeps{
			Log:        log,
			Drafts:     deps.Repos.Drafts,
			Aggregate:  agg,
			Store:      deps.Store,
			Replicator: replicator,
			Visibility: visibility,
			Metrics:    deps.Metrics,
			BatchSize:  deps.Cfg.ReconcileBatch,
			Grace:      deps.Cfg.ReconcileGrace,
		}),
		Replicator: replicator,
		Visibility: visibility,
		Notifier:   notifier,
	}
}
