//go:build !wireinject
// +build !wireinject

package di

import (
	"context"

	"github.com/onokeee/mindmap/infrastructure/config"
)

// InitializeContainer creates a fully wired container. It follows the
// provider graph declared in wire.go; the returned cleanup releases
// resources in reverse order of acquisition.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	fail := func(err error) (*Container, func(), error) {
		cleanup()
		return nil, nil, err
	}

	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	collector := ProvideCollector()

	tracer, tracerCleanup, err := ProvideTracer(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	cleanups = append(cleanups, tracerCleanup)

	domainCfg, err := ProvideDomainConfig(cfg)
	if err != nil {
		return fail(err)
	}

	awsCfg, err := ProvideAWSConfig(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	dynamoClient := ProvideDynamoDBClient(awsCfg)
	eventBridgeClient := ProvideEventBridgeClient(awsCfg)

	readCache, cacheCleanup, err := ProvideCache(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	cleanups = append(cleanups, cacheCleanup)

	repo, repoCleanup, err := ProvideMindMapRepository(ctx, cfg, dynamoClient, readCache, collector, logger)
	if err != nil {
		return fail(err)
	}
	cleanups = append(cleanups, repoCleanup)

	publisher := ProvideEventPublisher(cfg, eventBridgeClient, logger)

	watcher, watcherCleanup, err := ProvideHistoryWatcher(cfg, logger)
	if err != nil {
		return fail(err)
	}
	cleanups = append(cleanups, watcherCleanup)

	storeConfig := ProvideStoreConfigSource(cfg, watcher)
	registry := ProvideSessionRegistry(cfg, collector, logger)
	saver := ProvideMapSaver(repo, publisher, domainCfg, collector, logger)

	commandBus, err := ProvideCommandBus(repo, publisher, saver, registry, storeConfig, collector, logger)
	if err != nil {
		return fail(err)
	}
	queryBus, err := ProvideQueryBus(repo, registry, collector, logger)
	if err != nil {
		return fail(err)
	}

	tokens, err := ProvideJWTService(cfg, logger)
	if err != nil {
		return fail(err)
	}
	users, err := ProvideUserDirectory(cfg, logger)
	if err != nil {
		return fail(err)
	}
	router := ProvideRouter(commandBus, queryBus, users, tokens, collector, cfg, logger)

	return &Container{
		Config:         cfg,
		Logger:         logger,
		Collector:      collector,
		Tracer:         tracer,
		Repository:     repo,
		Publisher:      publisher,
		Registry:       registry,
		HistoryWatcher: watcher,
		CommandBus:     commandBus,
		QueryBus:       queryBus,
		Users:          users,
		Tokens:         tokens,
		Router:         router,
	}, cleanup, nil
}
