package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/brightpath/casehub/pkg/audit"
	"github.com/brightpath/casehub/pkg/authz"
	"github.com/brightpath/casehub/pkg/capability"
	"github.com/brightpath/casehub/pkg/config"
	"github.com/brightpath/casehub/pkg/delegation"
	"github.com/brightpath/casehub/pkg/directory"
	"github.com/brightpath/casehub/pkg/middleware"
	"github.com/brightpath/casehub/pkg/observability"
	"github.com/brightpath/casehub/pkg/storage/postgres"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	if err := run(cfg, logger, registry, metrics); err != nil {
		logger.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger, registry *prometheus.Registry, metrics *observability.Metrics) error {
	ctx := context.Background()

	db, err := postgres.Connect(ctx, postgres.Config{
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(ctx, db, delegation.MigrationsTable, delegation.Migrations()); err != nil {
		return fmt.Errorf("failed to run delegation migrations: %w", err)
	}
	if err := postgres.RunMigrations(ctx, db, audit.MigrationsTable, audit.Migrations()); err != nil {
		return fmt.Errorf("failed to run audit migrations: %w", err)
	}
	if err := postgres.RunMigrations(ctx, db, directory.MigrationsTable, directory.Migrations()); err != nil {
		return fmt.Errorf("failed to run directory migrations: %w", err)
	}

	var redisClient *redis.Client
	var counters audit.CounterStore = audit.NewMemoryCounterStore()
	if cfg.Redis.URL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		counters = audit.NewRedisCounterStore(redisClient, "denials")
		logger.Info("denial counters backed by redis")
	} else {
		logger.Info("denial counters running in-process")
	}

	dir, err := directory.New(db)
	if err != nil {
		return fmt.Errorf("failed to initialize directory: %w", err)
	}

	matrix := authz.DefaultMatrix()
	resolver := authz.NewResolver(dir, dir, dir, dir)
	delegationSvc := delegation.NewService(delegation.NewStore(db), logger, metrics)
	checker := authz.NewChecker(matrix, resolver, delegationSvc, dir, logger)

	logStore := audit.NewDBStore(db)
	auditor := audit.NewAuditor(counters, logStore, logger, metrics,
		audit.WithWindow(cfg.Audit.DenialWindow),
		audit.WithThreshold(int64(cfg.Audit.DenialThreshold)),
	)
	sweeper := audit.NewRetentionSweeper(logStore, logger, metrics, cfg.Audit.RetentionDays)
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("failed to start retention sweeper: %w", err)
	}

	access := middleware.NewAccess(checker, auditor, logger, metrics)
	router := buildRouter(cfg, metrics, access, delegationSvc, logStore, matrix)

	var handler http.Handler = router
	var tracer *observability.TracerProvider
	if cfg.Observability.OTelEnabled {
		tracer, err = observability.InitTracing(ctx, observability.TracingConfig{
			Enabled:        true,
			Endpoint:       cfg.Observability.OTelEndpoint,
			ServiceName:    cfg.Observability.OTelServiceName,
			ServiceVersion: cfg.Observability.OTelServiceVersion,
			Insecure:       cfg.Observability.OTelInsecure,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		handler = observability.TraceHTTP(handler, "casehub")
	}

	appServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: buildHealthRouter(cfg, registry, db, redisClient),
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, appServer, healthServer)
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		sweeper.Stop()
		return nil
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			return redisClient.Close()
		})
	}
	if tracer != nil {
		shutdown.RegisterShutdownFunc(tracer.Shutdown)
	}

	var group errgroup.Group
	group.Go(func() error {
		logger.WithField("addr", appServer.Addr).Info("starting API server")
		if err := appServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("starting health server")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server failed: %w", err)
		}
		return nil
	})
	group.Go(shutdown.WaitForShutdown)

	return group.Wait()
}

func buildRouter(cfg *config.Config, metrics *observability.Metrics, access *middleware.Access, delegationSvc *delegation.Service, logStore audit.LogStore, matrix *authz.Matrix) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Identity())
	if cfg.Observability.MetricsEnabled {
		router.Use(metrics.HTTPMiddleware)
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	delegation.NewHandlers(delegationSvc).RegisterRoutes(api,
		access.Require(authz.ResourceAdmin, authz.ActionRead),
		access.Require(authz.ResourceAdmin, authz.ActionUpdate),
	)
	audit.NewHandlers(logStore).RegisterRoutes(api,
		access.Require(authz.ResourceAdmin, authz.ActionRead),
	)
	capability.NewHandlers(capability.NewBuilder(matrix), delegationSvc).RegisterRoutes(api)

	return router
}

func buildHealthRouter(cfg *config.Config, registry *prometheus.Registry, db *sql.DB, redisClient *redis.Client) *mux.Router {
	health := observability.NewHealthChecker(db, redisClient)

	router := mux.NewRouter()
	router.HandleFunc("/healthz", health.Liveness).Methods("GET")
	router.HandleFunc("/readyz", health.Readiness).Methods("GET")
	if cfg.Observability.MetricsEnabled {
		router.Handle("/metrics", observability.Handler(registry)).Methods("GET")
	}
	return router
}
