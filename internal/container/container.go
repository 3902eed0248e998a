package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/classification"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/database"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/enrichment"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/importer"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/api/handlers/health"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/api/handlers/imports"
	app "github.com/SupernovaIndustries/supernova-management-software-sub006/internal/application/supplierimport"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/config"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/progress"
	domain "github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/infrastructure/currency"
	progressstore "github.com/SupernovaIndustries/supernova-management-software-sub006/internal/infrastructure/progress"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/infrastructure/storage"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/infrastructure/workers"
)

// Version версия сборки для /health
var Version = "dev"

// Container контейнер зависимостей
// Управляет жизненным циклом всех компонентов приложения
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Хранилища
	DB       *database.InventoryDB
	Blobs    *storage.FileStore
	Progress progress.Store

	// Кэши
	Rates      *currency.RateCache
	Categories *classification.CategoryCache
	Pages      *enrichment.PageCache

	// Сервисы
	Classifier   *classification.CategoryClassifier
	Resolver     *importer.MappingResolver
	Enricher     *enrichment.DatasheetEnricher
	Orchestrator *app.Orchestrator
	UseCase      *app.UseCase

	// Фоновые процессы
	Worker    *workers.JobWorker
	Reaper    *workers.StaleJobReaper
	Scheduler *workers.EnrichmentScheduler

	// Обработчики
	ImportHandler *imports.Handler
	HealthHandler *health.Handler

	closers []func() error
}

// NewContainer создает контейнер и инициализирует все зависимости
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{Config: cfg, Logger: logger}

	if err := c.initStorage(); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initServices(); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initWorkers(); err != nil {
		c.Close()
		return nil, err
	}

	c.ImportHandler = imports.NewHandler(c.UseCase)
	c.HealthHandler = health.NewHandler(c.DB.GetDB(), Version)

	logger.Info("Container initialized",
		"database", cfg.DatabasePath,
		"progress_backend", cfg.Progress.Backend,
		"classifier", classifierName(cfg.Classifier.Provider),
		"workers", cfg.Worker.Workers)
	return c, nil
}

func (c *Container) initStorage() error {
	cfg := c.Config

	db, err := database.NewInventoryDBWithConfig(cfg.DatabasePath, database.DBConfig{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("failed to open inventory database: %w", err)
	}
	c.DB = db
	c.closers = append(c.closers, db.Close)

	blobs, err := storage.NewFileStore(cfg.UploadDir, cfg.MaxUploadSize)
	if err != nil {
		return err
	}
	c.Blobs = blobs

	progressCfg := progressstore.Config{
		TTL:             cfg.Progress.TTL,
		CleanupInterval: cfg.Progress.CleanupInterval,
		MaxLogEntries:   cfg.Progress.MaxLogEntries,
		RecentJobsLimit: cfg.Progress.RecentJobsLimit,
	}
	switch cfg.Progress.Backend {
	case "sqlite":
		store, err := progressstore.OpenGormStore(cfg.Progress.Path, progressCfg)
		if err != nil {
			return fmt.Errorf("failed to open progress store: %w", err)
		}
		c.Progress = store
		c.closers = append(c.closers, store.Close)
	default:
		store := progressstore.NewMemoryStore(progressCfg)
		c.Progress = store
		c.closers = append(c.closers, func() error { store.Close(); return nil })
	}
	return nil
}

func (c *Container) initServices() error {
	cfg := c.Config
	logger := c.Logger

	// Курсы валют
	var source domain.RateSource
	switch cfg.Currency.Source {
	case "static":
		source = currency.NewStaticSource(cfg.Currency.StaticRates)
	default:
		source = currency.NewECBSource(cfg.Currency.ECBURL, cfg.Currency.Reference, cfg.Currency.Timeout)
	}
	c.Rates = currency.NewRateCache(source, cfg.Currency.Reference, currency.CacheConfig{
		Enabled:         cfg.Cache.Enabled,
		TTL:             cfg.Cache.RateTTL,
		CleanupInterval: cfg.Cache.CleanupInterval,
	})
	c.closers = append(c.closers, func() error { c.Rates.Close(); return nil })

	// Классификация
	var backend domain.ClassifierBackend
	if cfg.Classifier.Provider != "" {
		ai, err := classification.NewAIClassifier(classification.BackendConfig{
			Provider:      cfg.Classifier.Provider,
			Model:         cfg.Classifier.Model,
			APIKey:        cfg.Classifier.APIKey,
			BaseURL:       cfg.Classifier.BaseURL,
			Timeout:       cfg.Classifier.Timeout,
			MaxCategories: cfg.Classifier.MaxCategories,
		}, logger)
		if err != nil {
			// без модели классификация работает по правилам
			logger.Warn("Classifier backend disabled", "provider", cfg.Classifier.Provider, "error", err)
		} else {
			backend = ai
		}
	}
	c.Categories = classification.NewCategoryCache(c.DB.Categories(), cfg.Cache.CategoryTTL)
	c.Classifier = classification.NewCategoryClassifier(backend, c.DB.Categories(), c.Categories, classification.ClassifierConfig{
		SimilarityThreshold: cfg.Classifier.SimilarityThreshold,
		MinConfidence:       cfg.Classifier.MinConfidence,
	}, logger)

	// Сопоставление колонок
	var table *importer.PatternTable
	if cfg.PatternFile != "" {
		t, err := importer.LoadPatternTable(cfg.PatternFile)
		if err != nil {
			return fmt.Errorf("failed to load mapping patterns: %w", err)
		}
		table = t
	}
	c.Resolver = importer.NewMappingResolver(c.DB.Mappings(), table, logger)

	// Обогащение
	var scraper enrichment.Scraper
	if cfg.Enrichment.ScraperEnabled {
		c.Pages = enrichment.NewPageCache(enrichment.CacheConfig{
			Enabled:         cfg.Cache.Enabled,
			TTL:             cfg.Cache.PageTTL,
			CleanupInterval: cfg.Cache.CleanupInterval,
		})
		c.closers = append(c.closers, func() error { c.Pages.Close(); return nil })
		scraper = enrichment.NewPageScraper(enrichment.ScraperConfig{
			Timeout:      cfg.Enrichment.Timeout,
			RequestDelay: cfg.Enrichment.RequestDelay,
			UserAgent:    cfg.Enrichment.UserAgent,
			Cache:        c.Pages,
		})
	}
	c.Enricher = enrichment.NewDatasheetEnricher(c.DB.Components(), scraper, enrichment.Config{
		BatchSize:      cfg.Enrichment.BatchSize,
		ScraperEnabled: cfg.Enrichment.ScraperEnabled,
	}, logger)

	c.Orchestrator = app.NewOrchestrator(app.OrchestratorDeps{
		Jobs:     c.DB.Jobs(),
		Blobs:    c.Blobs,
		Progress: c.Progress,
		Resolver: c.Resolver,
		Engine:   importer.NewUpsertEngine(c.DB.Components(), c.DB.Movements(), c.Classifier).WithTransactor(c.DB),
		Rates:    c.Rates,
		Enricher: c.Enricher,
	}, app.OrchestratorConfig{
		ProgressEvery: cfg.Worker.ProgressEvery,
		SampleLimit:   cfg.Worker.SampleLimit,
	}, logger)

	c.UseCase = app.NewUseCase(c.DB.Jobs(), c.Blobs, c.Progress, c.Resolver, c.DB.Mappings(), c.Orchestrator, cfg.Worker.LeaseDuration, logger)
	return nil
}

func (c *Container) initWorkers() error {
	cfg := c.Config

	c.Worker = workers.NewJobWorker(c.DB.Jobs(), c.Orchestrator, workers.JobWorkerConfig{
		Workers:           cfg.Worker.Workers,
		PollInterval:      cfg.Worker.PollInterval,
		LeaseDuration:     cfg.Worker.LeaseDuration,
		HeartbeatInterval: cfg.Worker.HeartbeatInterval,
		ImportTimeout:     cfg.Worker.ImportTimeout,
		EnrichmentTimeout: cfg.Worker.EnrichmentTimeout,
	}, c.Logger)
	c.Reaper = workers.NewStaleJobReaper(c.DB.Jobs(), c.Orchestrator, cfg.Worker.ReaperInterval, c.Logger)

	if strings.TrimSpace(cfg.Enrichment.Schedule) != "" {
		scheduler, err := workers.NewEnrichmentScheduler(c.UseCase, cfg.Enrichment.Schedule,
			domain.EnrichmentFilter{Limit: cfg.Enrichment.ScheduleLimit}, c.Logger)
		if err != nil {
			return err
		}
		c.Scheduler = scheduler
	}
	return nil
}

// StartBackground запускает воркеры, reaper и расписание обогащения до отмены ctx
func (c *Container) StartBackground(ctx context.Context) {
	c.Worker.Start(ctx)
	c.Reaper.Start(ctx)
	if c.Scheduler != nil {
		c.Scheduler.Start()
	}
}

// WaitBackground ждет остановки фоновых процессов после отмены контекста
func (c *Container) WaitBackground() {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	c.Worker.Wait()
	c.Reaper.Wait()
}

// Close освобождает ресурсы в обратном порядке
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func classifierName(provider string) string {
	if provider == "" {
		return "keywords"
	}
	return provider
}
