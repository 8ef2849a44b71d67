package app

import (
	"time"

	"github.com/yungbote/neurobridge-publish/internal/data/db"
	"github.com/yungbote/neurobridge-publish/internal/observability"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
	"github.com/yungbote/neurobridge-publish/internal/platform/envutil"
)

const (
	ReplicaPostgres = "postgres"
	ReplicaRedis    = "redis"
	ReplicaPebble   = "pebble"
	ReplicaMemory   = "memory"

	ModerationHTTP   = "http"
	ModerationStatic = "static"
)

type Config struct {
	Port         string
	JWTSecretKey string
	Environment  string

	DB db.Config

	ReplicaStore       string
	ReplicaPostgresDSN string
	PebbleDir          string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string
	RedisChannel   string

	ModerationMode         string
	ModerationURL          string
	ModerationAPIKey       string
	ModerationMaxRetries   int
	ModerationStaticStatus string

	PolicyFile string

	ReconcileInterval time.Duration
	ReconcileBatch    int
	ReconcileGrace    time.Duration

	SubmitRateRPS   float64
	SubmitRateBurst int

	CORSOrigins []string

	MetricsEnabled bool
	Otel           observability.OtelConfig
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:         envutil.String("PORT", "8080", log),
		JWTSecretKey: envutil.String("JWT_SECRET_KEY", "defaultsecret", log),
		Environment:  envutil.String("APP_ENV", "development", log),

		DB: db.Config{
			Driver:           envutil.String("DB_DRIVER", db.DriverPostgres, log),
			PostgresHost:     envutil.String("POSTGRES_HOST", "localhost", log),
			PostgresPort:     envutil.String("POSTGRES_PORT", "5432", log),
			PostgresUser:     envutil.String("POSTGRES_USER", "postgres", log),
			PostgresPassword: envutil.String("POSTGRES_PASSWORD", "", nil),
			PostgresName:     envutil.String("POSTGRES_NAME", "neurobridge_publish", log),
			SQLitePath:       envutil.String("SQLITE_PATH", "neurobridge-publish.db", log),
		},

		ReplicaStore:       envutil.String("REPLICA_STORE", ReplicaPostgres, log),
		ReplicaPostgresDSN: envutil.String("REPLICA_POSTGRES_DSN", "", nil),
		PebbleDir:          envutil.String("PEBBLE_DIR", "data/replica", log),

		RedisAddr:      envutil.String("REDIS_ADDR", "", log),
		RedisPassword:  envutil.String("REDIS_PASSWORD", "", nil),
		RedisDB:        envutil.Int("REDIS_DB", 0, log),
		RedisKeyPrefix: envutil.String("REDIS_KEY_PREFIX", "nbp:", log),
		RedisChannel:   envutil.String("REDIS_CHANNEL", "lesson-events", log),

		ModerationMode:         envutil.String("MODERATION_MODE", ModerationHTTP, log),
		ModerationURL:          envutil.String("MODERATION_URL", "", log),
		ModerationAPIKey:       envutil.String("MODERATION_API_KEY", "", nil),
		ModerationMaxRetries:   envutil.Int("MODERATION_MAX_RETRIES", 2, log),
		ModerationStaticStatus: envutil.String("MODERATION_STATIC_STATUS", "review", log),

		PolicyFile: envutil.String("PUBLISH_POLICY_FILE", "", log),

		ReconcileInterval: envutil.Seconds("RECONCILE_INTERVAL_SECONDS", 5*time.Minute, log),
		ReconcileBatch:    envutil.Int("RECONCILE_BATCH_SIZE", 200, log),
		ReconcileGrace:    envutil.Seconds("RECONCILE_GRACE_SECONDS", 2*time.Minute, log),

		SubmitRateRPS:   envutil.Float("SUBMIT_RATE_RPS", 0.5, log),
		SubmitRateBurst: envutil.Int("SUBMIT_RATE_BURST", 3, log),

		CORSOrigins: envutil.List("CORS_ALLOW_ORIGINS", nil),

		MetricsEnabled: envutil.Bool("METRICS_ENABLED", true, log),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false, log),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "neurobridge-publish", log),
			Environment: envutil.String("APP_ENV", "development", nil),
			Version:     envutil.String("APP_VERSION", "", nil),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", "", log),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false, log),
			Headers:     observability.ParseOTLPHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "", nil)),
			SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 1, log),
		},
	}
}
