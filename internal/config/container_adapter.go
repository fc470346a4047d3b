package config

import (
	"github.com/garyjia/dorm-print/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Driver:          c.Database.Driver,
			Path:            c.Database.Path,
			DSN:             c.Database.DSN,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			MigrationsDir:   c.Database.MigrationsDir,
		},
		Lark: container.LarkConfig{
			AppID:      c.Lark.AppID,
			AppSecret:  c.Lark.AppSecret,
			APITimeout: c.Lark.APITimeout,
		},
		Storage: container.StorageConfig{
			DocumentDir: c.Storage.DocumentDir,
		},
		Server: container.ServerConfig{
			Enabled:      c.Server.Enabled,
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
			AdminToken:   c.Server.AdminToken,
		},
		Workflow: container.WorkflowConfig{
			SessionIdleTTL:  c.Workflow.SessionIdleTTL,
			ReviewsPageSize: c.Workflow.ReviewsPageSize,
			SupportChatID:   c.Workflow.SupportChatID,
		},
		Worker: container.WorkerConfig{
			SweepInterval:  c.Storage.SweepInterval,
			CacheRetention: c.Storage.Retention,
		},
	}
}
