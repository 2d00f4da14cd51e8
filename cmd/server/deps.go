package main

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tracelab/tracelab/internal/backend"
	"github.com/tracelab/tracelab/internal/config"
	"github.com/tracelab/tracelab/internal/handler"
	"github.com/tracelab/tracelab/internal/pkg/database"
	"github.com/tracelab/tracelab/internal/registry"
	chrepo "github.com/tracelab/tracelab/internal/repository/clickhouse"
	pgrepo "github.com/tracelab/tracelab/internal/repository/postgres"
	"github.com/tracelab/tracelab/internal/scripting"
	"github.com/tracelab/tracelab/internal/service"
	"github.com/tracelab/tracelab/internal/worker"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger

	// Database connections
	Postgres   *database.PostgresDB
	SQLX       *sqlx.DB
	ClickHouse *database.ClickHouseDB
	Redis      *redis.Client
	Minio      *minio.Client

	// Repositories
	TraceRepo       *pgrepo.TraceRepository
	ModuleRepo      *pgrepo.ModuleRepository
	BackendRepo     *pgrepo.BackendRepository
	StateRepo       *pgrepo.StateSystemRepository
	SegmentRepo     *pgrepo.SegmentRepository
	ScriptRunRepo   *pgrepo.ScriptRunRepository
	EventRepo       *chrepo.EventRepository

	// Core
	Registry *registry.Registry
	Resolver *registry.Resolver
	Backends *backend.Registry

	// Services
	TraceService    *service.TraceService
	AnalysisService *service.AnalysisService
	ScriptService   *service.ScriptService
	ProviderService *service.ProviderService

	// Handlers
	HealthHandler    *handler.HealthHandler
	TracesHandler    *handler.TracesHandler
	AnalysesHandler  *handler.AnalysesHandler
	ScriptsHandler   *handler.ScriptsHandler
	ProvidersHandler *handler.ProvidersHandler
	DocsHandler      *handler.DocsHandler

	// Asynq client
	AsynqClient *asynq.Client
}

// initDependencies initializes all dependencies
func initDependencies(cfg *config.Config, log *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: log,
	}

	ctx := context.Background()

	pgDB, err := database.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	deps.Postgres = pgDB

	sqlxDB, err := database.NewSQLX(cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sqlx: %w", err)
	}
	deps.SQLX = sqlxDB

	chDB, err := database.NewClickHouse(ctx, cfg.ClickHouse)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ClickHouse: %w", err)
	}
	deps.ClickHouse = chDB

	redisClient, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}
	deps.Redis = redisClient

	minioClient, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
		Secure: cfg.MinIO.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO: %w", err)
	}
	deps.Minio = minioClient

	deps.AsynqClient = asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Repositories
	deps.TraceRepo = pgrepo.NewTraceRepository(pgDB)
	deps.ModuleRepo = pgrepo.NewModuleRepository(pgDB)
	deps.BackendRepo = pgrepo.NewBackendRepository(pgDB)
	deps.StateRepo = pgrepo.NewStateSystemRepository(pgDB)
	deps.SegmentRepo = pgrepo.NewSegmentRepository(pgDB)
	deps.ScriptRunRepo = pgrepo.NewScriptRunRepository(sqlxDB)
	deps.EventRepo = chrepo.NewEventRepository(chDB)

	// Core registries
	deps.Registry = registry.New()
	deps.Resolver = registry.NewResolver(deps.Registry)
	deps.Backends = backend.NewRegistry(deps.BackendRepo, deps.StateRepo, deps.SegmentRepo)

	// Scripting
	module := scripting.NewModule(deps.Resolver, deps.Backends)
	engine := scripting.NewEngine(cfg.Script)
	enqueuer := worker.NewEnqueuer(deps.AsynqClient)

	// Services
	deps.TraceService = service.NewTraceService(deps.TraceRepo, deps.ModuleRepo, deps.EventRepo, deps.Registry)
	deps.AnalysisService = service.NewAnalysisService(deps.Registry, deps.Resolver, deps.BackendRepo, enqueuer)
	deps.ScriptService = service.NewScriptService(cfg.Script, deps.ScriptRunRepo, deps.EventRepo, deps.Registry, module, engine, enqueuer)
	deps.ProviderService = service.NewProviderService(cfg.Provider, deps.Backends, redisClient)

	// Handlers
	deps.HealthHandler = handler.NewHealthHandler(pgDB.Pool, chDB.Conn, redisClient, appVersion)
	deps.TracesHandler = handler.NewTracesHandler(deps.TraceService, log)
	deps.AnalysesHandler = handler.NewAnalysesHandler(deps.AnalysisService, deps.TraceService, log)
	deps.ScriptsHandler = handler.NewScriptsHandler(deps.ScriptService, log)
	deps.ProvidersHandler = handler.NewProvidersHandler(deps.ProviderService, log)
	deps.DocsHandler = handler.NewDocsHandler()

	return deps, nil
}

// Close closes all connections
func (d *Dependencies) Close() {
	if d.AsynqClient != nil {
		d.AsynqClient.Close()
	}
	if d.Redis != nil {
		d.Redis.Close()
	}
	if d.ClickHouse != nil {
		d.ClickHouse.Close()
	}
	if d.SQLX != nil {
		d.SQLX.Close()
	}
	if d.Postgres != nil {
		d.Postgres.Close()
	}
}
