package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/tracelab/tracelab/internal/backend"
	"github.com/tracelab/tracelab/internal/config"
	"github.com/tracelab/tracelab/internal/pkg/database"
	"github.com/tracelab/tracelab/internal/pkg/logger"
	"github.com/tracelab/tracelab/internal/registry"
	chrepo "github.com/tracelab/tracelab/internal/repository/clickhouse"
	pgrepo "github.com/tracelab/tracelab/internal/repository/postgres"
	"github.com/tracelab/tracelab/internal/scripting"
	"github.com/tracelab/tracelab/internal/service"
	"github.com/tracelab/tracelab/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Log

	log.Info("starting worker service")

	deps, cleanup, err := initWorkerDependencies(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize dependencies", zap.Error(err))
	}
	defer cleanup()

	workerServer, err := worker.NewServer(log, cfg, deps)
	if err != nil {
		log.Fatal("failed to create worker server", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- workerServer.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("shutting down worker...")
		workerServer.Stop()
	case err := <-errCh:
		if err != nil {
			log.Error("worker server error", zap.Error(err))
		}
	}

	log.Info("worker stopped")
}

// initWorkerDependencies initializes dependencies for the worker
func initWorkerDependencies(cfg *config.Config, log *zap.Logger) (*worker.Dependencies, func(), error) {
	ctx := context.Background()

	pgDB, err := database.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	sqlxDB, err := database.NewSQLX(cfg.Postgres)
	if err != nil {
		pgDB.Close()
		return nil, nil, fmt.Errorf("failed to initialize sqlx: %w", err)
	}

	chDB, err := database.NewClickHouse(ctx, cfg.ClickHouse)
	if err != nil {
		sqlxDB.Close()
		pgDB.Close()
		return nil, nil, fmt.Errorf("failed to initialize ClickHouse: %w", err)
	}

	minioClient, err := initMinio(cfg)
	if err != nil {
		log.Warn("failed to initialize MinIO", zap.Error(err))
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Repositories
	traceRepo := pgrepo.NewTraceRepository(pgDB)
	moduleRepo := pgrepo.NewModuleRepository(pgDB)
	backendRepo := pgrepo.NewBackendRepository(pgDB)
	stateRepo := pgrepo.NewStateSystemRepository(pgDB)
	segmentRepo := pgrepo.NewSegmentRepository(pgDB)
	scriptRunRepo := pgrepo.NewScriptRunRepository(sqlxDB)
	eventRepo := chrepo.NewEventRepository(chDB)

	// The worker keeps its own registry. Queued runs reopen their trace
	// on demand through the trace service before executing.
	reg := registry.New()
	resolver := registry.NewResolver(reg)
	backends := backend.NewRegistry(backendRepo, stateRepo, segmentRepo)

	module := scripting.NewModule(resolver, backends)
	engine := scripting.NewEngine(cfg.Script)
	enqueuer := worker.NewEnqueuer(asynqClient)

	traceService := service.NewTraceService(traceRepo, moduleRepo, eventRepo, reg)
	scriptService := service.NewScriptService(cfg.Script, scriptRunRepo, eventRepo, reg, module, engine, enqueuer)
	scriptService.WithTraceOpener(traceService)

	deps := &worker.Dependencies{
		ScriptService: scriptService,
		BackendRepo:   backendRepo,
		Backends:      backends,
		MinioClient:   minioClient,
		MinioBucket:   cfg.MinIO.Bucket,
	}

	cleanup := func() {
		asynqClient.Close()
		chDB.Close()
		sqlxDB.Close()
		pgDB.Close()
	}

	return deps, cleanup, nil
}

// initMinio initializes the MinIO client used for analysis exports
func initMinio(cfg *config.Config) (*minio.Client, error) {
	if cfg.MinIO.Endpoint == "" {
		return nil, nil
	}

	client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
		Secure: cfg.MinIO.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return client, nil
}
