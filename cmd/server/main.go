package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/garyjia/dorm-print/internal/config"
	"github.com/garyjia/dorm-print/internal/container"
	"github.com/garyjia/dorm-print/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting dorm print service",
		zap.String("version", "1.0.0"),
		zap.String("database", cfg.Database.Driver),
		zap.Bool("http_enabled", cfg.Server.Enabled))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to create container", zap.Error(err))
	}
	if err := c.Start(ctx); err != nil {
		_ = c.Close()
		logger.Fatal("Failed to start container", zap.Error(err))
	}

	errCh := make(chan error, 2)

	go func() {
		if err := c.LarkAdapter().Start(ctx); err != nil {
			errCh <- fmt.Errorf("lark adapter: %w", err)
		}
	}()

	if srv := c.HTTPServer(); srv != nil {
		go func() {
			if err := srv.Start(ctx); err != nil {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		logger.Error("Component failed, shutting down", zap.Error(err))
		stop()
	}

	if err := c.Close(); err != nil {
		logger.Error("Shutdown finished with errors", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Server exited")
}
