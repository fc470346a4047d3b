package container

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/dorm-print/internal/application/dispatch"
	"github.com/garyjia/dorm-print/internal/application/dispatcher"
	"github.com/garyjia/dorm-print/internal/application/port"
	"github.com/garyjia/dorm-print/internal/application/service"
	"github.com/garyjia/dorm-print/internal/application/session"
	"github.com/garyjia/dorm-print/internal/application/workflow"
	"github.com/garyjia/dorm-print/internal/domain/event"
	infraLark "github.com/garyjia/dorm-print/internal/infrastructure/external/lark"
	"github.com/garyjia/dorm-print/internal/infrastructure/pdf"
	"github.com/garyjia/dorm-print/internal/infrastructure/persistence/repository"
	"github.com/garyjia/dorm-print/internal/infrastructure/persistence/sqldb"
	"github.com/garyjia/dorm-print/internal/infrastructure/storage"
	"github.com/garyjia/dorm-print/internal/infrastructure/worker"
	"github.com/garyjia/dorm-print/pkg/database"
	"github.com/garyjia/dorm-print/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqldb.DB
}

// LarkBundle holds all Lark-related components.
type LarkBundle struct {
	Client    *infraLark.SDKClient
	API       *infraLark.MessageAPI
	Fetcher   port.DocumentFetcher
	Messenger port.Messenger
}

// StorageBundle holds storage-related components.
type StorageBundle struct {
	FileStorage   port.FileStorage
	FolderManager port.FolderManager
}

// ProvideDatabase opens the configured database, runs pending migrations
// and wraps the connection in a transaction manager.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Driver:          cfg.Driver,
		Path:            cfg.Path,
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	// An empty MigrationsDir applies the embedded schema
	if err := database.NewMigrator(db, logger).RunMigrations(cfg.MigrationsDir); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqldb.NewDB(db.DB, db.Dialect, logger),
	}, nil
}

// ProvideRepositories creates all repository implementations.
func ProvideRepositories(db *sqldb.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}

	return &RepositoryBundle{
		Provider: repository.NewProviderRepository(db, logger),
		Review:   repository.NewReviewRepository(db, logger),
		Stats:    repository.NewStatsRepository(db, logger),
	}, nil
}

// ProvideStorage creates the document cache rooted at DocumentDir.
func ProvideStorage(cfg *StorageConfig, logger *zap.Logger) (*StorageBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}

	if err := os.MkdirAll(cfg.DocumentDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create document directory: %w", err)
	}

	return &StorageBundle{
		FileStorage:   storage.NewLocalFileStorage(cfg.DocumentDir, logger),
		FolderManager: storage.NewLocalFolderManager(cfg.DocumentDir, logger),
	}, nil
}

// ProvideLarkClients creates the SDK client, the message API and the
// document fetcher and messenger built on it.
func ProvideLarkClients(cfg *LarkConfig, store *StorageBundle, logger *zap.Logger) (*LarkBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("lark config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}

	client := infraLark.NewSDKClient(infraLark.Config{
		AppID:      cfg.AppID,
		AppSecret:  cfg.AppSecret,
		APITimeout: cfg.APITimeout,
	}, logger)
	api := infraLark.NewMessageAPI(client, logger)
	fetcher := infraLark.NewFetcher(api, store.FileStorage, store.FolderManager, logger)

	return &LarkBundle{
		Client:    client,
		API:       api,
		Fetcher:   fetcher,
		Messenger: infraLark.NewMessenger(api, fetcher, logger),
	}, nil
}

// ServiceDeps contains dependencies for creating application services.
type ServiceDeps struct {
	Repos           *RepositoryBundle
	TxManager       port.TransactionManager
	ReviewsPageSize int
	Logger          *zap.Logger
}

// ProvideServices creates the provider and review services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}

	logger := &zapLoggerAdapter{logger: deps.Logger}

	return &ServiceBundle{
		Provider: service.NewProviderService(deps.Repos.Provider, deps.Repos.Stats, deps.TxManager, logger),
		Review:   service.NewReviewService(deps.Repos.Review, deps.Repos.Provider, logger, deps.ReviewsPageSize),
	}, nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger}),
	), nil
}

// WorkflowDeps contains dependencies for creating the order engine.
type WorkflowDeps struct {
	Services    *ServiceBundle
	Lark        *LarkBundle
	Dispatcher  dispatcher.Dispatcher
	SupportChat string
	Logger      *zap.Logger
}

// ProvideWorkflowEngine creates the order engine and subscribes it to every
// inbound event type.
func ProvideWorkflowEngine(deps *WorkflowDeps) (workflow.OrderEngine, error) {
	if deps == nil || deps.Services == nil || deps.Lark == nil || deps.Dispatcher == nil {
		return nil, fmt.Errorf("workflow dependencies are required")
	}

	logger := &zapLoggerAdapter{logger: utils.Component(deps.Logger, "order_engine")}

	protocol := dispatch.NewProtocol(
		deps.Lark.Messenger,
		logger,
		dispatch.WithMention(infraLark.Mention),
	)

	engine := workflow.NewEngine(
		session.NewMemoryStore(),
		session.NewSelectionRegistry(),
		deps.Services.Provider,
		deps.Services.Review,
		pdf.NewPageCounter(deps.Lark.Fetcher, utils.Component(deps.Logger, "page_counter")),
		deps.Lark.Messenger,
		protocol,
		logger,
		workflow.WithDispatcher(deps.Dispatcher),
		workflow.WithProfiles(deps.Services.Provider),
		workflow.WithDialogs(session.NewDialogStore()),
		workflow.WithSupportChat(deps.SupportChat),
		workflow.WithMention(infraLark.Mention),
	)

	for _, t := range event.Inbound {
		deps.Dispatcher.SubscribeNamed(t, "OrderEngine", engine.HandleEvent)
	}
	for _, t := range lifecycleEvents {
		deps.Dispatcher.SubscribeNamed(t, "LifecycleLog", lifecycleLogger(deps.Logger))
	}

	return engine, nil
}

// lifecycleEvents are published by the order engine for observers
var lifecycleEvents = []event.Type{
	event.TypeOrderDispatched,
	event.TypeOrderCompleted,
	event.TypeOrderRejected,
	event.TypeReviewSubmitted,
	event.TypeSessionCleared,
	event.TypeProviderRegistered,
}

func lifecycleLogger(logger *zap.Logger) dispatcher.Handler {
	return func(ctx context.Context, evt *event.Event) error {
		logger.Info("Order lifecycle event",
			zap.String("type", string(evt.Type)),
			zap.String("sender_id", evt.SenderID),
			zap.String("correlation_id", evt.CorrelationID),
			zap.Any("payload", evt.Payload))
		return nil
	}
}

// WorkerDeps contains dependencies for creating workers.
type WorkerDeps struct {
	Storage   *StorageBundle
	Sessions  worker.SessionExpirer
	WorkerCfg *WorkerConfig
	IdleTTL   time.Duration
	Logger    *zap.Logger
}

// ProvideWorkers creates the worker manager with the janitor registered.
func ProvideWorkers(deps *WorkerDeps) (*worker.WorkerManager, error) {
	if deps == nil || deps.Storage == nil || deps.WorkerCfg == nil {
		return nil, fmt.Errorf("worker dependencies are required")
	}

	manager := worker.NewWorkerManager(deps.Logger)
	manager.Register(worker.NewJanitorWorker(
		worker.JanitorConfig{
			SweepInterval:  deps.WorkerCfg.SweepInterval,
			CacheRetention: deps.WorkerCfg.CacheRetention,
			SessionIdleTTL: deps.IdleTTL,
		},
		deps.Storage.FolderManager,
		deps.Sessions,
		utils.Component(deps.Logger, "janitor"),
	))

	return manager, nil
}
