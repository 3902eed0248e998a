// @title Supplier Import API
// @version 1.0
// @description API импорта выгрузок поставщиков электронных компонентов. Сопоставление колонок, классификация по категориям, движения склада и обогащение по даташитам.

// @contact.name API Support
// @contact.email support@example.com

// @license.name Internal Use Only

// @host localhost:9999
// @BasePath /api
// @schemes http https

package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/api/routes"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/config"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/container"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/server"
	applog "github.com/SupernovaIndustries/supernova-management-software-sub006/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to YAML config")
	flag.Parse()

	cfg, err := config.LoadConfigFile(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger, closeLog := config.SetupLogger(cfg.LogFile, config.ParseLogLevel(cfg.LogLevel))
	defer closeLog()
	slog.SetDefault(logger)
	applog.SetLogger(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped with error", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("Starting supplier import server", "version", container.Version, "port", cfg.Port)

	c, err := container.NewContainer(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Warn("Failed to release resources", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bgCtx, cancelBackground := context.WithCancel(context.Background())
	c.StartBackground(bgCtx)

	router := routes.NewRouter(c.ImportHandler, c.HealthHandler, routes.Options{
		CORSOrigin:  cfg.CORSOrigin,
		SwaggerHost: cfg.SwaggerHost,
		Logger:      logger,
	})
	srv := server.New(router, server.DefaultConfig(cfg.Port), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case serveErr = <-errCh:
	}

	// сначала перестаем принимать загрузки, затем останавливаем воркеры
	shutdownErr := srv.Shutdown(context.Background())
	cancelBackground()
	c.WaitBackground()

	return errors.Join(serveErr, shutdownErr)
}
