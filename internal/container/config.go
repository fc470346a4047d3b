// Package container provides dependency injection and lifecycle management
// for the dorm print service.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Lark API configuration
	Lark LarkConfig

	// Storage configuration
	Storage StorageConfig

	// Server configuration
	Server ServerConfig

	// Workflow configuration
	Workflow WorkflowConfig

	// Worker configuration
	Worker WorkerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Driver is sqlite3 or pgx
	Driver string

	// Path to SQLite database file
	Path string

	// DSN is the PostgreSQL connection string
	DSN string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// MigrationsDir overrides the embedded migrations when set
	MigrationsDir string
}

// LarkConfig holds Lark API settings.
type LarkConfig struct {
	// AppID is the Lark application ID
	AppID string

	// AppSecret is the Lark application secret
	AppSecret string

	// APITimeout is the timeout for API calls
	APITimeout time.Duration
}

// StorageConfig holds file storage settings.
type StorageConfig struct {
	// DocumentDir is the base directory of the document cache
	DocumentDir string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Enabled turns the HTTP API on
	Enabled bool

	// Host to bind to
	Host string

	// Port to listen on
	Port int

	// ReadTimeout for HTTP server
	ReadTimeout time.Duration

	// WriteTimeout for HTTP server
	WriteTimeout time.Duration

	// AdminToken guards mutating routes when set
	AdminToken string
}

// WorkflowConfig holds order workflow settings.
type WorkflowConfig struct {
	// SessionIdleTTL is how long an unfinished order may sit untouched
	SessionIdleTTL time.Duration

	// ReviewsPageSize is the number of reviews per page
	ReviewsPageSize int

	// SupportChatID receives /print_support questions: a group chat ("oc_")
	// or a support member's open ID. Empty disables the command.
	SupportChatID string
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	// SweepInterval is how often the janitor runs
	SweepInterval time.Duration

	// CacheRetention is how long cached documents are kept
	CacheRetention time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          "sqlite3",
			Path:            "data/dorm-print.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Lark: LarkConfig{
			APITimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			DocumentDir: "data/documents",
		},
		Server: ServerConfig{
			Enabled:      true,
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Workflow: WorkflowConfig{
			SessionIdleTTL:  24 * time.Hour,
			ReviewsPageSize: 15,
		},
		Worker: WorkerConfig{
			SweepInterval:  10 * time.Minute,
			CacheRetention: 72 * time.Hour,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	// Validate Lark configuration
	if c.Lark.AppID == "" {
		return fmt.Errorf("lark.app_id is required")
	}
	if c.Lark.AppSecret == "" {
		return fmt.Errorf("lark.app_secret is required")
	}

	// Validate storage configuration
	if c.Storage.DocumentDir == "" {
		return fmt.Errorf("storage.document_dir is required")
	}

	return nil
}
