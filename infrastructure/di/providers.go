package di

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/google/wire"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/onokeee/mindmap/application/commands"
	"github.com/onokeee/mindmap/application/commands/bus"
	"github.com/onokeee/mindmap/application/commands/handlers"
	"github.com/onokeee/mindmap/application/ports"
	"github.com/onokeee/mindmap/application/queries"
	querybus "github.com/onokeee/mindmap/application/queries/bus"
	queryhandlers "github.com/onokeee/mindmap/application/queries/handlers"
	"github.com/onokeee/mindmap/application/session"
	domainconfig "github.com/onokeee/mindmap/domain/config"
	"github.com/onokeee/mindmap/infrastructure/cache"
	"github.com/onokeee/mindmap/infrastructure/config"
	"github.com/onokeee/mindmap/infrastructure/messaging"
	"github.com/onokeee/mindmap/infrastructure/messaging/eventbridge"
	"github.com/onokeee/mindmap/infrastructure/persistence"
	"github.com/onokeee/mindmap/infrastructure/persistence/dynamodb"
	"github.com/onokeee/mindmap/infrastructure/persistence/memory"
	"github.com/onokeee/mindmap/infrastructure/persistence/mysql"
	"github.com/onokeee/mindmap/interfaces/http/rest"
	"github.com/onokeee/mindmap/pkg/auth"
	"github.com/onokeee/mindmap/pkg/observability"
)

// Development fallbacks, rejected by config.Validate in production
const (
	devJWTSecret     = "development-secret-change-in-production"
	devAdminPassword = "admin123"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *zap.Logger
	Collector      *observability.Collector
	Tracer         *observability.TracerProvider
	Repository     ports.MindMapRepository
	Publisher      ports.EventPublisher
	Registry       *session.Registry
	HistoryWatcher *config.HistoryWatcher
	CommandBus     *bus.CommandBus
	QueryBus       *querybus.QueryBus
	Users          *auth.UserDirectory
	Tokens         *auth.JWTService
	Router         *rest.Router
}

// ProviderSet is the main provider set containing all providers
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideCollector,
	ProvideTracer,
	ProvideDomainConfig,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCache,
	ProvideMindMapRepository,
	ProvideEventPublisher,
	ProvideHistoryWatcher,
	ProvideStoreConfigSource,
	ProvideSessionRegistry,
	ProvideMapSaver,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideJWTService,
	ProvideUserDirectory,
	ProvideRouter,
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
		zcfg.Level = level
	}
	return zcfg.Build()
}

// ProvideCollector creates the Prometheus collector. Metrics are always
// collected; ENABLE_METRICS only controls the /metrics route.
func ProvideCollector() *observability.Collector {
	return observability.NewCollector("mindmap")
}

// ProvideTracer installs OpenTelemetry tracing when enabled. It returns a
// nil provider otherwise, leaving the global no-op tracer in place.
func ProvideTracer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	if !cfg.EnableTracing {
		return nil, func() {}, nil
	}
	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		Environment: cfg.Environment,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRate:  cfg.TraceSampling,
	})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ProvideDomainConfig builds the business limits
func ProvideDomainConfig(cfg *config.Config) (*domainconfig.DomainConfig, error) {
	dc := cfg.DomainConfig()
	if err := dc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid domain config: %w", err)
	}
	return dc, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCache returns Redis when REDIS_ADDR is set and reachable, and an
// in-memory cache otherwise
func ProvideCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.Cache, func(), error) {
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr)
		if err == nil {
			logger.Info("Using Redis cache", zap.String("addr", cfg.RedisAddr))
			cleanup := func() {
				if err := client.Close(); err != nil {
					logger.Warn("Failed to close Redis client", zap.Error(err))
				}
			}
			return cache.NewRedisCache(client, "mindmap:"), cleanup, nil
		}
		logger.Warn("Redis unavailable, falling back to in-memory cache",
			zap.String("addr", cfg.RedisAddr),
			zap.Error(err),
		)
	}

	mem := cache.NewInMemoryCache()
	runCtx, cancel := context.WithCancel(context.Background())
	go mem.Run(runCtx, time.Minute)
	return mem, cancel, nil
}

// ProvideMindMapRepository opens the configured storage backend and wraps
// it with tracing and metrics. Remote backends also get a circuit breaker
// and the read cache.
func ProvideMindMapRepository(
	ctx context.Context,
	cfg *config.Config,
	dynamoClient *awsdynamodb.Client,
	readCache ports.Cache,
	collector *observability.Collector,
	logger *zap.Logger,
) (ports.MindMapRepository, func(), error) {
	var (
		inner   ports.MindMapRepository
		cleanup = func() {}
	)

	switch cfg.StorageDriver {
	case config.StorageMemory:
		repo := persistence.NewInstrumentedRepository(memory.NewMindMapRepository(logger), config.StorageMemory, collector)
		return repo, cleanup, nil
	case config.StorageDynamoDB:
		inner = dynamodb.NewMindMapRepository(dynamoClient, cfg.TableName, logger)
	case config.StorageMySQL:
		db, err := mysql.Open(cfg.MySQLDSN)
		if err != nil {
			return nil, nil, err
		}
		repo := mysql.NewMindMapRepository(db, logger)
		if err := repo.Migrate(ctx); err != nil {
			return nil, nil, err
		}
		cleanup = func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
		inner = repo
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	logger.Info("Using storage backend", zap.String("driver", cfg.StorageDriver))
	var repo ports.MindMapRepository = persistence.NewInstrumentedRepository(inner, cfg.StorageDriver, collector)
	repo = persistence.NewCircuitBreakerRepository(repo, persistence.DefaultCircuitBreakerConfig(cfg.StorageDriver), logger)
	repo = persistence.NewCachingRepository(repo, readCache, cfg.CacheTTL, collector, logger)
	return repo, cleanup, nil
}

// ProvideEventPublisher publishes to EventBridge when a bus is configured
// and only logs events otherwise
func ProvideEventPublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName == "" {
		return messaging.NewLoggingPublisher(logger)
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideHistoryWatcher watches the config file for history changes. It
// returns nil when no config file is in use.
func ProvideHistoryWatcher(cfg *config.Config, logger *zap.Logger) (*config.HistoryWatcher, func(), error) {
	if cfg.ConfigFile == "" {
		return nil, func() {}, nil
	}
	w, err := config.NewHistoryWatcher(cfg.ConfigFile, cfg.History, logger)
	if err != nil {
		return nil, nil, err
	}
	w.OnChange(func(h config.HistoryConfig) {
		logger.Info("History settings reloaded",
			zap.Int("capacity", h.Capacity),
			zap.Bool("cursorTracksAppendedOnEvict", h.CursorTracksAppendedOnEvict),
		)
	})
	w.Start()
	return w, w.Stop, nil
}

// ProvideStoreConfigSource reads history bounds from the watcher when there
// is one, so new sessions follow reloads
func ProvideStoreConfigSource(cfg *config.Config, watcher *config.HistoryWatcher) handlers.StoreConfigSource {
	if watcher != nil {
		return watcher.StoreConfig
	}
	return cfg.History.StoreConfig
}

// ProvideSessionRegistry creates the registry of open editor sessions
func ProvideSessionRegistry(cfg *config.Config, collector *observability.Collector, logger *zap.Logger) *session.Registry {
	return session.NewRegistry(cfg.SessionIdleTimeout, logger,
		session.WithCloseHook(func(*session.EditorSession) {
			collector.OpenSessions.Dec()
		}),
	)
}

// ProvideMapSaver creates the saver shared by map and session commands
func ProvideMapSaver(
	repo ports.MindMapRepository,
	publisher ports.EventPublisher,
	domainCfg *domainconfig.DomainConfig,
	collector *observability.Collector,
	logger *zap.Logger,
) *handlers.MapSaver {
	return handlers.NewMapSaver(repo, publisher, domainCfg, collector, logger)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	repo ports.MindMapRepository,
	publisher ports.EventPublisher,
	saver *handlers.MapSaver,
	registry *session.Registry,
	storeConfig handlers.StoreConfigSource,
	collector *observability.Collector,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(
		bus.LoggingMiddleware(logger),
		bus.TracingMiddleware(),
		bus.MetricsMiddleware(collector),
	)

	if err := commandBus.Register(commands.SaveMindMapCommand{}, handlers.NewSaveMindMapHandler(saver)); err != nil {
		return nil, err
	}
	deleteHandler := handlers.NewDeleteMindMapHandler(repo, publisher, collector, logger)
	if err := commandBus.Register(commands.DeleteMindMapCommand{}, deleteHandler); err != nil {
		return nil, err
	}

	sessionHandler := handlers.NewSessionHandler(registry, repo, saver, storeConfig, collector, logger)
	if err := sessionHandler.RegisterWith(commandBus); err != nil {
		return nil, err
	}
	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	repo ports.MindMapRepository,
	registry *session.Registry,
	collector *observability.Collector,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(
		querybus.LoggingMiddleware(logger),
		querybus.TracingMiddleware(),
		querybus.MetricsMiddleware(collector),
	)

	registrations := []struct {
		query   querybus.Query
		handler querybus.QueryHandler
	}{
		{queries.GetMindMapQuery{}, queryhandlers.NewGetMindMapHandler(repo)},
		{queries.ListMindMapsQuery{}, queryhandlers.NewListMindMapsHandler(repo)},
		{queries.GetSessionStateQuery{}, queryhandlers.NewGetSessionStateHandler(registry)},
	}
	for _, reg := range registrations {
		if err := queryBus.Register(reg.query, reg.handler); err != nil {
			return nil, err
		}
	}
	return queryBus, nil
}

// ProvideJWTService creates the token service
func ProvideJWTService(cfg *config.Config, logger *zap.Logger) (*auth.JWTService, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		logger.Warn("JWT_SECRET not set, using the development secret")
		secret = devJWTSecret
	}
	return auth.NewJWTService(secret, cfg.JWTIssuer, cfg.TokenTTL)
}

// ProvideUserDirectory creates the user directory seeded with the admin
// account
func ProvideUserDirectory(cfg *config.Config, logger *zap.Logger) (*auth.UserDirectory, error) {
	password := cfg.AdminPassword
	if password == "" {
		logger.Warn("ADMIN_PASSWORD not set, using the development password",
			zap.String("username", cfg.AdminUsername))
		password = devAdminPassword
	}

	users := auth.NewUserDirectory(bcrypt.DefaultCost)
	if _, err := users.Add(cfg.AdminUsername, password); err != nil {
		return nil, fmt.Errorf("failed to seed admin account: %w", err)
	}
	return users, nil
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	users *auth.UserDirectory,
	tokens *auth.JWTService,
	collector *observability.Collector,
	cfg *config.Config,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(commandBus, queryBus, users, tokens, collector, rest.RouterConfig{
		EnableCORS:    cfg.EnableCORS,
		EnableMetrics: cfg.EnableMetrics,
		SecureCookie:  cfg.IsProduction(),
		Debug:         cfg.IsDevelopment(),
	}, logger)
}
