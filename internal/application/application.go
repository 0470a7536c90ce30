package application

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"auction_engine/internal/config"
	"auction_engine/internal/domain/service/bidding"
	"auction_engine/internal/domain/service/settings"
	"auction_engine/internal/infrastructure/asynqnotify"
	"auction_engine/internal/infrastructure/memstore"
	"auction_engine/internal/infrastructure/persistence"
	"auction_engine/internal/infrastructure/redislock"
	"auction_engine/internal/metrics"
	"auction_engine/internal/server"
	"auction_engine/internal/worker"
	"auction_engine/pkg/application/connectors"
	"auction_engine/pkg/application/modules"
	"auction_engine/pkg/contextx"
	"auction_engine/pkg/logx"
	"auction_engine/pkg/probe"
)

const (
	httpServerReadHeaderTimeout = 5 * time.Second
	expiryLockKey               = "auction-engine:expiry-sweep"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

// storage is what one storage driver provides to the engine, the scheduler
// and the settings provider.
type storage interface {
	bidding.Ledger
	bidding.EligibilitySource
	worker.ExpiryStore
	settings.Store
}

type postgresStorage struct {
	*persistence.LedgerRepository
	*persistence.EligibilityRepository
	*persistence.SettingsRepository
}

// Run wires the engine and blocks until ctx is done or a module fails.
func Run(ctx context.Context, cfg config.Config) error {
	g, ctx := errgroup.WithContext(ctx)

	redisConnector := &connectors.Redis{
		Username:           cfg.Redis.Username,
		Password:           cfg.Redis.Password,
		Address:            cfg.Redis.Address,
		DatabaseNumber:     cfg.Redis.DB,
		PoolSize:           cfg.Redis.PoolSize,
		MinIdleConnections: cfg.Redis.MinIdleConnections,
		MaxIdleConnections: cfg.Redis.MaxIdleConnections,
	}
	redisClient := redisConnector.Client(ctx)
	defer redisConnector.Close(context.WithoutCancel(ctx))

	checks := []probe.Check{{Name: "redis", Ping: redisConnector.Ping}}

	var store storage

	switch cfg.App.StorageDriver {
	case config.StorageDriverPostgres:
		pg := &connectors.Postgres{
			DSN:             cfg.Postgres.DSN,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		}
		db := pg.Client(ctx)
		defer pg.Close(context.WithoutCancel(ctx))

		checks = append(checks, probe.Check{Name: "postgres", Ping: pg.Ping})

		store = postgresStorage{
			LedgerRepository:      persistence.NewLedgerRepository(db, cfg.Bidding.LockTimeout),
			EligibilityRepository: persistence.NewEligibilityRepository(db),
			SettingsRepository:    persistence.NewSettingsRepository(db),
		}
	case config.StorageDriverMemory:
		logger(ctx).Warn("using in-memory storage, state is lost on restart")

		mem := memstore.New(cfg.Bidding.LockTimeout)
		if cfg.App.SeedFile != "" {
			if err := mem.LoadSeedFile(cfg.App.SeedFile); err != nil {
				return fmt.Errorf("application.Run: %w", err)
			}
			logger(ctx).Info("memory store seeded", slog.String("file", cfg.App.SeedFile))
		}

		store = mem
	default:
		return fmt.Errorf("application.Run: unknown storage driver %q", cfg.App.StorageDriver)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Address,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger(ctx).Error("asynqClient.Close", logx.Error(err))
		}
	}()

	dispatcher := bidding.NewDispatcher(asynqnotify.NewNotifier(asynqClient), cfg.Bidding.EventQueueSize, m)
	settingsProvider := settings.NewProvider(store, cfg.Settings.CacheTTL)
	engine := bidding.NewEngine(store, store, settingsProvider, dispatcher, bidding.WithMetrics(m))

	scheduler := worker.NewExpiryScheduler(store, dispatcher).
		WithInterval(cfg.Scheduler.SweepInterval, cfg.Scheduler.SweepTimeout).
		WithBatchSize(cfg.Scheduler.BatchSize).
		WithLocker(redislock.New(redisClient, expiryLockKey, cfg.Scheduler.LockTTL)).
		WithMetrics(m)

	srv := server.NewServer(
		server.NewBidServer(engine),
		server.NewAdminServer(settingsProvider, scheduler),
	)

	httpServer := &http.Server{
		//nolint:exhaustruct
		Addr:              cfg.HTTP.ListenAddress,
		Handler:           srv.Handler(logx.NewSensitiveDataMasker()),
		ReadHeaderTimeout: httpServerReadHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	modules.HTTPServer{ShutdownTimeout: cfg.HTTP.ShutdownTimeout}.Run(ctx, g, httpServer)
	modules.MetricServer{ListenAddress: cfg.HTTP.MetricsListenAddress, Gatherer: prometheus.DefaultGatherer}.Run(ctx, g)
	modules.ProbeServer{
		Name:          cfg.App.Name,
		Version:       cfg.App.Version,
		ListenAddress: cfg.HTTP.ProbeListenAddress,
		Checks:        checks,
	}.Run(ctx, g)

	handlers := asynqnotify.NewHandlers(asynqnotify.NewRedisPublisher(redisClient, cfg.Redis.EventsChannel))
	modules.AsynqServer{
		RedisUsername: cfg.Redis.Username,
		RedisPassword: cfg.Redis.Password,
		RedisAddress:  cfg.Redis.Address,
		RedisDB:       cfg.Redis.DB,
		Concurrency:   cfg.Asynq.Concurrency,
	}.Run(ctx, g, modules.AsynqQueues{asynqnotify.QueueName: 1}, handlers.AsynqHandlers()...)

	g.Go(func() error {
		if err := dispatcher.Run(ctx); err != nil {
			return fmt.Errorf("dispatcher.Run: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := scheduler.Run(ctx); err != nil {
			return fmt.Errorf("scheduler.Run: %w", err)
		}
		return nil
	})

	logger(ctx).Info("auction engine started",
		slog.String("storage", cfg.App.StorageDriver),
		slog.String("address", cfg.HTTP.ListenAddress),
	)

	if err := g.Wait(); err != nil {
		return fmt.Errorf("errgroup.Wait: %w", err)
	}

	logger(ctx).Info("auction engine stopped")

	return nil
}
