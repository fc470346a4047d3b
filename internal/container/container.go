package container

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/dorm-print/internal/application/dispatcher"
	"github.com/garyjia/dorm-print/internal/application/port"
	"github.com/garyjia/dorm-print/internal/application/service"
	"github.com/garyjia/dorm-print/internal/application/workflow"
	"github.com/garyjia/dorm-print/internal/infrastructure/persistence/sqldb"
	"github.com/garyjia/dorm-print/internal/infrastructure/worker"
	httpServer "github.com/garyjia/dorm-print/internal/interfaces/http"
	"github.com/garyjia/dorm-print/internal/interfaces/websocket"
	"github.com/garyjia/dorm-print/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	database     *database.DB
	db           *sqldb.DB
	repositories *RepositoryBundle

	// Infrastructure - Storage
	storage *StorageBundle

	// Infrastructure - External
	lark *LarkBundle

	// Application
	dispatcher dispatcher.Dispatcher
	engine     workflow.OrderEngine
	services   *ServiceBundle

	// Workers
	workers *worker.WorkerManager

	// Interfaces
	larkAdapter *websocket.LarkAdapter
	httpServer  *httpServer.Server

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Provider port.ProviderRepository
	Review   port.ReviewRepository
	Stats    port.StatsRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Provider service.ProviderService
	Review   service.ReviewService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components and begins background work.
// Components are initialized in dependency order:
// 1. Database and repositories
// 2. Storage
// 3. External clients (Lark)
// 4. Application services
// 5. Event dispatcher and order engine
// 6. Workers
// 7. Interfaces (WebSocket adapter, HTTP server)
//
// The interfaces are built but not run; see LarkAdapter and HTTPServer.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	// Step 1: Initialize database and repositories
	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	// Step 2: Initialize storage
	if err := c.initStorage(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.logger.Info("Storage initialized")

	// Step 3: Initialize external clients
	if err := c.initExternalClients(); err != nil {
		return fmt.Errorf("failed to initialize external clients: %w", err)
	}
	c.logger.Info("External clients initialized")

	// Step 4: Initialize application services
	if err := c.initServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	// Step 5: Initialize dispatcher and order engine
	if err := c.initDispatcherAndWorkflow(); err != nil {
		return fmt.Errorf("failed to initialize dispatcher and workflow: %w", err)
	}
	c.logger.Info("Dispatcher and order engine initialized")

	// Step 6: Initialize and start workers
	if err := c.initWorkers(); err != nil {
		return fmt.Errorf("failed to initialize workers: %w", err)
	}
	c.logger.Info("Workers initialized and started")

	// Step 7: Build interfaces
	c.initInterfaces()
	c.logger.Info("Interfaces initialized")

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	// Cancel context to signal all goroutines
	if c.cancel != nil {
		c.cancel()
	}

	// Step 1: Stop interfaces (reverse of step 7)
	if c.httpServer != nil {
		if err := c.httpServer.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop http server: %w", err))
		}
	}
	if c.larkAdapter != nil {
		if err := c.larkAdapter.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop lark adapter: %w", err))
		}
	}

	// Step 2: Stop workers (reverse of step 6)
	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		} else {
			c.logger.Info("Workers stopped")
		}
	}

	// Step 3: Close dispatcher (reverse of step 5), draining queued events
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	// Step 4: Close database (reverse of step 1)
	if c.database != nil {
		if err := c.database.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	// Check database
	if c.database != nil {
		if err := c.database.Ping(); err != nil {
			status.Components["database"] = ComponentHealth{
				Healthy: false,
				Message: fmt.Sprintf("ping failed: %v", err),
			}
			status.Overall = false
		} else {
			status.Components["database"] = ComponentHealth{Healthy: true}
		}
	} else {
		status.Components["database"] = notInitialized()
		status.Overall = false
	}

	// Check workers
	if c.workers != nil {
		status.Components["workers"] = ComponentHealth{
			Healthy: c.workers.IsRunning(),
			Message: fmt.Sprintf("workers: %s", strings.Join(c.workers.Names(), ", ")),
		}
		if !c.workers.IsRunning() {
			status.Overall = false
		}
	} else {
		status.Components["workers"] = notInitialized()
		status.Overall = false
	}

	// Check dispatcher
	if c.dispatcher != nil {
		status.Components["dispatcher"] = ComponentHealth{Healthy: true}
	} else {
		status.Components["dispatcher"] = notInitialized()
		status.Overall = false
	}

	// Check the chat connection
	if c.larkAdapter != nil {
		status.Components["lark"] = ComponentHealth{Healthy: c.larkAdapter.IsRunning()}
	} else {
		status.Components["lark"] = notInitialized()
		status.Overall = false
	}

	return status
}

func notInitialized() ComponentHealth {
	return ComponentHealth{Healthy: false, Message: "not initialized"}
}

// initDatabase initializes the database and all repositories using providers.
func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.database = dbBundle.DB
	c.db = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.db, c.logger)
	if err != nil {
		_ = c.database.Close()
		return err
	}

	c.repositories = repos
	return nil
}

// initStorage initializes the document cache using providers.
func (c *Container) initStorage() error {
	storageBundle, err := ProvideStorage(&c.config.Storage, c.logger)
	if err != nil {
		return err
	}

	c.storage = storageBundle
	return nil
}

// initExternalClients initializes the Lark clients using providers.
func (c *Container) initExternalClients() error {
	larkBundle, err := ProvideLarkClients(&c.config.Lark, c.storage, c.logger)
	if err != nil {
		return err
	}

	c.lark = larkBundle
	return nil
}

// initServices initializes all application services using providers.
func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:           c.repositories,
		TxManager:       c.db,
		ReviewsPageSize: c.config.Workflow.ReviewsPageSize,
		Logger:          c.logger,
	})
	if err != nil {
		return err
	}

	c.services = services
	return nil
}

// initDispatcherAndWorkflow initializes the event dispatcher and order engine using providers.
func (c *Container) initDispatcherAndWorkflow() error {
	disp, err := ProvideDispatcher(c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = disp

	// Also registers the engine's event handlers
	engine, err := ProvideWorkflowEngine(&WorkflowDeps{
		Services:    c.services,
		Lark:        c.lark,
		Dispatcher:  c.dispatcher,
		SupportChat: c.config.Workflow.SupportChatID,
		Logger:      c.logger,
	})
	if err != nil {
		return err
	}
	c.engine = engine

	return nil
}

// initWorkers initializes and starts all background workers using providers.
func (c *Container) initWorkers() error {
	workers, err := ProvideWorkers(&WorkerDeps{
		Storage:   c.storage,
		Sessions:  c.engine,
		WorkerCfg: &c.config.Worker,
		IdleTTL:   c.config.Workflow.SessionIdleTTL,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	c.workers = workers

	if err := c.workers.StartAll(c.ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}

	return nil
}

// initInterfaces builds the WebSocket adapter and, when enabled, the HTTP server.
func (c *Container) initInterfaces() {
	c.larkAdapter = websocket.NewLarkAdapter(websocket.LarkAdapterConfig{
		AppID:     c.config.Lark.AppID,
		AppSecret: c.config.Lark.AppSecret,
	}, c.dispatcher, c.logger)

	if !c.config.Server.Enabled {
		return
	}
	c.httpServer = httpServer.NewServer(
		httpServer.ServerConfig{
			Host:         c.config.Server.Host,
			Port:         c.config.Server.Port,
			ReadTimeout:  c.config.Server.ReadTimeout,
			WriteTimeout: c.config.Server.WriteTimeout,
			AdminToken:   c.config.Server.AdminToken,
		},
		c.services.Provider,
		c.services.Review,
		&zapLoggerAdapter{logger: c.logger},
	)
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Messenger returns the Lark messenger.
func (c *Container) Messenger() port.Messenger {
	if c.lark == nil {
		return nil
	}
	return c.lark.Messenger
}

// FileStorage returns the file storage.
func (c *Container) FileStorage() port.FileStorage {
	if c.storage == nil {
		return nil
	}
	return c.storage.FileStorage
}

// FolderManager returns the folder manager.
func (c *Container) FolderManager() port.FolderManager {
	if c.storage == nil {
		return nil
	}
	return c.storage.FolderManager
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// OrderEngine returns the order engine.
func (c *Container) OrderEngine() workflow.OrderEngine {
	return c.engine
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.WorkerManager {
	return c.workers
}

// LarkAdapter returns the WebSocket adapter. Run it with Start.
func (c *Container) LarkAdapter() *websocket.LarkAdapter {
	return c.larkAdapter
}

// HTTPServer returns the HTTP server, or nil when disabled.
func (c *Container) HTTPServer() *httpServer.Server {
	return c.httpServer
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}

// zapLoggerAdapter adapts zap.Logger to the key-value Logger interfaces of
// the application and interface layers.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Warn(msg string, keysAndValues ...interface{}) {
	a.logger.Warn(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keysAndValues[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
