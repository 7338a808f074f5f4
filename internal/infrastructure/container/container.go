// Package container provides dependency injection using Uber FX.
// This implements the Dependency Inversion Principle from SOLID.
package container

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	appaudit "github.com/aetim/core/internal/application/audit"
	"github.com/aetim/core/internal/application/correlation"
	"github.com/aetim/core/internal/application/emission"
	"github.com/aetim/core/internal/application/extraction"
	"github.com/aetim/core/internal/application/feedmgmt"
	"github.com/aetim/core/internal/application/ingestion"
	"github.com/aetim/core/internal/application/pirmgmt"
	"github.com/aetim/core/internal/application/scoring"
	"github.com/aetim/core/internal/application/ticketmgmt"
	"github.com/aetim/core/internal/infrastructure/assetinventory"
	"github.com/aetim/core/internal/infrastructure/cache"
	"github.com/aetim/core/internal/infrastructure/collaborators/openai"
	"github.com/aetim/core/internal/infrastructure/collectors/httpclient"
	"github.com/aetim/core/internal/infrastructure/collectors/cisakev"
	"github.com/aetim/core/internal/infrastructure/collectors/msrc"
	"github.com/aetim/core/internal/infrastructure/collectors/nvd"
	"github.com/aetim/core/internal/infrastructure/collectors/twcert"
	"github.com/aetim/core/internal/infrastructure/collectors/vmware"
	"github.com/aetim/core/internal/infrastructure/config"
	"github.com/aetim/core/internal/infrastructure/eventbus"
	gormRepo "github.com/aetim/core/internal/infrastructure/persistence/gorm"
	"github.com/aetim/core/internal/infrastructure/mail"
	"github.com/aetim/core/internal/infrastructure/monitoring"
	"github.com/aetim/core/internal/infrastructure/ratelimit"
	"github.com/aetim/core/internal/infrastructure/retry"
	"github.com/aetim/core/internal/infrastructure/security"
	"github.com/aetim/core/internal/infrastructure/http/server"
	"github.com/aetim/core/internal/infrastructure/storage"
	"github.com/aetim/core/internal/ports/inbound"
	"github.com/aetim/core/internal/ports/outbound"
	"github.com/aetim/core/pkg/healthcheck"
	"github.com/aetim/core/pkg/logger"
)

// Module wires the complete application graph.
var Module = fx.Options(
	ConfigModule,
	LoggerModule,
	MonitoringModule,
	DatabaseModule,
	CacheModule,
	CollaboratorModule,
	SecurityModule,
	RepositoryModule,
	CollectorModule,
	ServiceModule,
	HealthCheckModule,
	HTTPModule,
	PipelineModule,
	LifecycleModule,
)

// ConfigModule provides configuration.
var ConfigModule = fx.Provide(
	func() (*config.Config, error) {
		return config.Load("")
	},
)

// LoggerModule provides structured logging.
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, error) {
		return logger.New(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
		})
	},
)

// MonitoringModule provides the Prometheus collector, the
// trace-correlated access logger, and the OpenTelemetry provider.
var MonitoringModule = fx.Provide(
	monitoring.NewMetricsCollector,
	monitoring.NewRequestLogger,
	func(cfg *config.Config, log *zap.Logger) (*monitoring.OpenTelemetryProvider, error) {
		return monitoring.NewOpenTelemetryProvider(monitoring.OpenTelemetryConfig{
			ServiceName:       "aetim",
			ServiceVersion:    cfg.App.Version,
			Environment:       cfg.App.Environment,
			TracingEnabled:    cfg.Monitoring.EnableTracing,
			OTLPTraceEndpoint: cfg.Monitoring.OTLPTraceEndpoint,
			SamplingRate:      cfg.Monitoring.SamplingRate,
			MetricsEnabled:    cfg.Monitoring.EnableMetrics,
		}, log.Named("otel"))
	},
	monitoring.NewBusinessMetrics,
)

// DatabaseModule provides the gorm connection and migrates the schema.
// The sqlite driver backs single-node and development installs; postgres
// is the default, optionally with read replicas routed through
// dbresolver.
var DatabaseModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
		var dialector gorm.Dialector
		switch cfg.Database.Driver {
		case "sqlite":
			dialector = sqlite.Open(cfg.Database.Database)
		default:
			dialector = postgres.Open(cfg.GetDSN())
		}

		db, err := gorm.Open(dialector, &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}

		if len(cfg.Database.ReadReplicaDSNs) > 0 && cfg.Database.Driver != "sqlite" {
			replicas := make([]gorm.Dialector, 0, len(cfg.Database.ReadReplicaDSNs))
			for _, dsn := range cfg.Database.ReadReplicaDSNs {
				replicas = append(replicas, postgres.Open(dsn))
			}
			if err := db.Use(dbresolver.Register(dbresolver.Config{Replicas: replicas})); err != nil {
				return nil, fmt.Errorf("register read replicas: %w", err)
			}
		}

		if cfg.Database.AutoMigrate {
			if err := db.AutoMigrate(
				&gormRepo.FeedModel{},
				&gormRepo.ThreatModel{},
				&gormRepo.AssociationModel{},
				&gormRepo.PIRModel{},
				&gormRepo.RiskAssessmentModel{},
				&gormRepo.RiskHistoryModel{},
				&gormRepo.ReportModel{},
				&gormRepo.ScheduleModel{},
				&gormRepo.NotificationRuleModel{},
				&gormRepo.NotificationModel{},
				&gormRepo.AuditEntryModel{},
			); err != nil {
				log.Warn("auto-migration failed", zap.Error(err))
			}
		}

		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
			sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
			sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
		}

		log.Info("connected to database",
			zap.String("host", cfg.Database.Host),
			zap.Int("port", cfg.Database.Port),
			zap.String("database", cfg.Database.Database),
		)

		return db, nil
	},
)

// CacheModule provides the Redis client and cache repository.
var CacheModule = fx.Provide(
	func(cfg *config.Config) *redis.Client {
		return redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
			PoolSize: cfg.Redis.PoolSize,
		})
	},
	fx.Annotate(
		cache.NewRedisCache,
		fx.As(new(outbound.CacheRepository)),
	),
)

// CollaboratorModule provides the external-system adapters behind
// outbound's collaborator interfaces.
var CollaboratorModule = fx.Provide(
	fx.Annotate(
		func(cfg *config.Config, log *zap.Logger) *openai.Client {
			return openai.NewClient(cfg.AI, log)
		},
		fx.As(new(outbound.SummarizerClient)),
	),
	fx.Annotate(
		func(cfg *config.Config, log *zap.Logger) *mail.LoggingClient {
			return mail.NewLoggingClient(cfg.Email, log)
		},
		fx.As(new(outbound.MailClient)),
	),
	fx.Annotate(
		eventbus.New,
		fx.As(new(outbound.EventBus)),
	),
	func(cfg *config.Config) outbound.RateLimiter {
		nvdHasKey := false
		for _, src := range cfg.Feeds.Sources {
			if src.Name == "nvd" {
				nvdHasKey = src.APIKey != ""
			}
		}
		return ratelimit.New(nvdHasKey)
	},
	fx.Annotate(
		retry.New,
		fx.As(new(outbound.RetryPolicy)),
	),
	fx.Annotate(
		ingestion.NewCacheFailureTracker,
		fx.As(new(outbound.FailureTracker)),
	),
	func(cfg *config.Config, log *zap.Logger) outbound.StorageService {
		if cfg.Storage.Provider == "s3" {
			s3, err := storage.NewS3Storage(cfg.AWS.Region, cfg.AWS.S3Bucket, cfg.AWS.S3KeyPrefix, cfg.AWS.Endpoint, log)
			if err != nil {
				log.Warn("s3 storage init failed, falling back to local", zap.Error(err))
				return storage.NewLocalStorage(cfg.Storage.LocalPath, log)
			}
			return s3
		}
		return storage.NewLocalStorage(cfg.Storage.LocalPath, log)
	},
)

// SecurityModule provides authentication, authorization, and
// credential-at-rest encryption.
var SecurityModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) *security.OIDCAuthenticator {
		return security.NewOIDCAuthenticator(cfg.Auth, log)
	},
	func(cfg *config.Config, log *zap.Logger) *security.EncryptionService {
		return security.NewEncryptionService(log, cfg.App.CredentialStoreMasterKey)
	},
	fx.Annotate(
		security.NewCredentialBlobCipher,
		fx.As(new(outbound.EncryptionService)),
	),
	security.NewSecurityEventLogger,
	security.NewValidationService,
	func(log *zap.Logger, redisClient *redis.Client) *security.RateLimitService {
		return security.NewRateLimitService(log, redisClient)
	},
)

// RepositoryModule provides every gorm-backed persistence adapter.
var RepositoryModule = fx.Provide(
	fx.Annotate(gormRepo.NewFeedRepository, fx.As(new(outbound.FeedRepository))),
	fx.Annotate(gormRepo.NewThreatRepository, fx.As(new(outbound.ThreatRepository))),
	fx.Annotate(gormRepo.NewAssociationRepository, fx.As(new(outbound.AssociationRepository))),
	fx.Annotate(gormRepo.NewPIRRepository, fx.As(new(outbound.PIRRepository))),
	fx.Annotate(gormRepo.NewRiskAssessmentRepository, fx.As(new(outbound.RiskAssessmentRepository))),
	fx.Annotate(gormRepo.NewReportRepository, fx.As(new(outbound.ReportRepository))),
	fx.Annotate(gormRepo.NewScheduleRepository, fx.As(new(outbound.ScheduleRepository))),
	fx.Annotate(gormRepo.NewNotificationRuleRepository, fx.As(new(outbound.NotificationRuleRepository))),
	fx.Annotate(gormRepo.NewNotificationRepository, fx.As(new(outbound.NotificationRepository))),
	fx.Annotate(gormRepo.NewAuditRepository, fx.As(new(outbound.AuditRepository))),
	func(cfg *config.Config, cacheRepo outbound.CacheRepository, log *zap.Logger) outbound.AssetRepository {
		client := &http.Client{Timeout: cfg.AssetInventory.Timeout}
		return assetinventory.NewRepository(client, cfg.AssetInventory.BaseURL, cacheRepo, log)
	},
)

// CollectorModule builds the per-feed collector drivers, keyed by the
// name each driver reports itself under, for ingestion.NewCollectionService.
var CollectorModule = fx.Provide(
	func(cfg *config.Config) map[string]outbound.FeedDriver {
		client := httpclient.New(cfg.Feeds.RequestTimeout)
		drivers := []outbound.FeedDriver{
			cisakev.New(client),
			nvd.New(client),
			msrc.New(client),
			twcert.New(client),
			vmware.New(client),
		}
		byName := make(map[string]outbound.FeedDriver, len(drivers))
		for _, d := range drivers {
			byName[d.Name()] = d
		}
		return byName
	},
)

// ServiceModule provides every application-layer service: the audit
// gate/sink, the per-module use-case services, and the inbound ports
// they implement.
var ServiceModule = fx.Provide(
	appaudit.NewGate,
	appaudit.NewSink,
	correlation.NewService,
	scoring.NewService,
	extraction.NewExtractor,
	ingestion.NewCollectionService,
	ingestion.NewScheduler,
	func(
		rules outbound.NotificationRuleRepository,
		notifications outbound.NotificationRepository,
		threats outbound.ThreatRepository,
		assessments outbound.RiskAssessmentRepository,
		mailClient outbound.MailClient,
		cfg *config.Config,
		log *zap.Logger,
	) *emission.NotificationDispatcher {
		return emission.NewNotificationDispatcher(rules, notifications, threats, assessments, mailClient, cfg.App.Timezone, log)
	},
	emission.NewWeeklyReportGenerator,
	emission.NewTicketGenerator,
	func(
		schedules outbound.ScheduleRepository,
		weekly *emission.WeeklyReportGenerator,
		notifier *emission.NotificationDispatcher,
		cfg *config.Config,
		log *zap.Logger,
	) *emission.ReportScheduler {
		return emission.NewReportScheduler(schedules, weekly, notifier, cfg.Scheduling.WeeklyReportCron, cfg.App.Timezone, log)
	},
	fx.Annotate(feedmgmt.NewService, fx.As(new(inbound.FeedService))),
	fx.Annotate(pirmgmt.NewService, fx.As(new(inbound.PIRService))),
	fx.Annotate(ticketmgmt.NewService, fx.As(new(inbound.TicketService))),
)

// HealthCheckModule provides the probe aggregator and registers the
// checkers the server's /health endpoint reports.
var HealthCheckModule = fx.Provide(
	func(
		cfg *config.Config,
		log *zap.Logger,
		db *gorm.DB,
		redisClient *redis.Client,
		feeds outbound.FeedRepository,
	) *healthcheck.HealthCheck {
		hc := healthcheck.New(cfg.App.Version, log)
		hc.Register("database", healthcheck.NewDatabaseChecker(db))
		hc.Register("redis", healthcheck.NewRedisChecker(redisClient))

		for _, name := range []string{"cisakev", "nvd", "msrc", "twcert", "vmware"} {
			feedName := name
			staleAfter := cfg.Feeds.DefaultPollPeriod * 4
			if staleAfter <= 0 {
				staleAfter = 24 * time.Hour
			}
			hc.Register(feedName, healthcheck.NewCollectorChecker(feedName, staleAfter, func() (time.Time, error) {
				f, err := feeds.FindByName(context.Background(), feedName)
				if err != nil {
					return time.Time{}, err
				}
				if f.LastRunAt() == nil {
					return time.Time{}, fmt.Errorf("%s has never run", feedName)
				}
				return *f.LastRunAt(), nil
			}))
		}

		return hc
	},
)

// HTTPModule provides the HTTP server.
var HTTPModule = fx.Provide(
	server.New,
)

// LifecycleModule starts background processing and the HTTP server, and
// tears everything down cleanly on shutdown.
var LifecycleModule = fx.Invoke(RegisterLifecycleHooks)

// RegisterLifecycleHooks wires fx's start/stop hooks for the HTTP server,
// the feed-collection scheduler, and the underlying database connection.
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	db *gorm.DB,
	srv *server.Server,
	scheduler *ingestion.Scheduler,
	reportScheduler *emission.ReportScheduler,
	otel *monitoring.OpenTelemetryProvider,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting AETIM",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
			)

			if err := config.Watch("", func(fresh *config.Config, e fsnotify.Event) {
				log.Info("configuration file changed; structural settings apply on next restart",
					zap.String("file", e.Name),
					zap.String("op", e.Op.String()),
					zap.String("log_level", fresh.App.LogLevel),
				)
			}); err != nil {
				log.Warn("config file watch unavailable", zap.Error(err))
			}

			if err := scheduler.Start(ctx); err != nil {
				return fmt.Errorf("start scheduler: %w", err)
			}

			if err := reportScheduler.Start(ctx); err != nil {
				return fmt.Errorf("start report scheduler: %w", err)
			}

			go func() {
				if err := srv.Start(); err != nil && err != http.ErrServerClosed {
					log.Fatal("HTTP server failed", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down AETIM")

			scheduler.Stop()
			reportScheduler.Stop()

			if err := srv.Shutdown(ctx); err != nil {
				log.Error("HTTP server shutdown failed", zap.Error(err))
			}

			if err := otel.Shutdown(ctx); err != nil {
				log.Error("opentelemetry shutdown failed", zap.Error(err))
			}

			if sqlDB, err := db.DB(); err == nil {
				if err := sqlDB.Close(); err != nil {
					log.Error("failed to close database connection", zap.Error(err))
				}
			}

			_ = log.Sync()
			return nil
		},
	})
}
