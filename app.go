package main

import (
	"context"
	"fmt"

	"funnelscope/api/config"
	"funnelscope/api/database"
	"funnelscope/api/funnel"
	"funnelscope/api/logger"
	"funnelscope/api/store"
)

// app holds the wired engine and every backend that must be closed on exit.
type app struct {
	cfg       *config.Configuration
	engine    *funnel.Engine
	analytics *store.AnalyticsStore
	closers   []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp builds the engine from configuration and restores persisted state.
// withArchive connects ClickHouse when it is configured.
func newApp(ctx context.Context, cfg *config.Configuration, withArchive bool) (*app, error) {
	log := logger.Component("app")
	a := &app{cfg: cfg}

	stages, err := config.LoadStages(cfg.StagesFile)
	if err != nil {
		return nil, err
	}

	progressStore, closeStore, err := openProgressStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeStore)

	opts := []funnel.Option{
		funnel.WithStore(progressStore),
		funnel.WithLogger(logger.Component("funnel")),
		funnel.WithAbandonAfter(cfg.AbandonAfter),
		funnel.WithListener(funnel.LogListener(logger.Component("funnel"))),
	}

	if withArchive && cfg.ClickHouse().Configured() {
		chClient, err := database.NewClickHouseDB(cfg.ClickHouse())
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize ClickHouse: %w", err)
		}
		a.closers = append(a.closers, chClient.Close)

		a.analytics = store.NewAnalyticsStore(chClient)
		if err := a.analytics.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, funnel.WithListener(a.analytics))
	} else if withArchive {
		log.Info("ClickHouse not configured, event archive disabled")
	}

	engine, err := funnel.NewEngine(stages, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := engine.Load(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.engine = engine
	return a, nil
}

func openProgressStore(ctx context.Context, cfg *config.Configuration) (funnel.ProgressStore, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return store.NewKVProgressStore(store.NewMemoryKV()), func() {}, nil

	case config.DriverBuntDB:
		client, err := database.NewBuntDB(cfg.BuntDBPath)
		if err != nil {
			return nil, nil, err
		}
		return store.NewKVProgressStore(store.NewBuntKV(client.DB)), client.Close, nil

	case config.DriverPostgres:
		client, err := database.NewPostgresDB(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		kv, err := store.NewSQLKV(ctx, client.DB, store.PostgresDialect)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return store.NewKVProgressStore(kv), client.Close, nil

	case config.DriverSQLite:
		client, err := database.NewSQLiteDB(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		kv, err := store.NewSQLKV(ctx, client.DB, store.SQLiteDialect)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return store.NewKVProgressStore(kv), client.Close, nil
	}
	return nil, nil, fmt.Errorf("%w: %s", store.ErrUnknownDriver, cfg.StoreDriver)
}
