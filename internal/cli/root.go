// Package cli командная строка импорта выгрузок поставщиков.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/config"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/container"
	applog "github.com/SupernovaIndustries/supernova-management-software-sub006/server"
)

var (
	// Глобальные флаги
	configPath   string
	databasePath string
	verbose      bool

	// Конфигурация и зависимости текущего запуска
	cfg *config.Config
	svc *container.Container
)

// rootCmd базовая команда без подкоманд
var rootCmd = &cobra.Command{
	Use:   "importctl",
	Short: "Supplier export import and enrichment",
	Long: `importctl imports supplier order exports (CSV, XLSX) into the component
inventory, detects column mappings and runs datasheet enrichment.

Jobs run synchronously in this process. Progress and logs are stored in the
progress database so they can be inspected later with "jobs" and "logs".`,
	Version:       container.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		loaded, err := config.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if databasePath != "" {
			loaded.DatabasePath = databasePath
		}
		// журнал в памяти не переживает процесс
		if loaded.Progress.Backend == "memory" {
			loaded.Progress.Backend = "sqlite"
		}
		cfg = loaded

		logger := newLogger(cmd)
		applog.SetLogger(logger)

		svc, err = container.NewContainer(cfg, logger)
		if err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if svc != nil {
			if err := svc.Close(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to close resources: %v\n", err)
			}
			svc = nil
		}
	},
}

// Execute выполняет корневую команду
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_FILE"), "path to YAML config")
	rootCmd.PersistentFlags().StringVar(&databasePath, "database", "", "inventory database path (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// newLogger пишет в stderr, чтобы не смешивать логи с выводом команд
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = config.ParseLogLevel(cfg.LogLevel)
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
