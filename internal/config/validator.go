package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Validate проверяет корректность конфигурации и возвращает все найденные проблемы разом
func (c *Config) Validate() error {
	var errors []string

	// Валидация порта
	if c.Port == "" {
		errors = append(errors, "port is required")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("invalid port: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("port must be between 1 and 65535, got %d", port))
		}
	}

	if c.DatabasePath == "" {
		errors = append(errors, "database path is required")
	}
	if c.UploadDir == "" {
		errors = append(errors, "upload dir is required")
	}
	if c.MaxUploadSize < 0 {
		errors = append(errors, "max upload size must not be negative")
	}

	// Валидация connection pooling
	if c.MaxOpenConns < 1 {
		errors = append(errors, "max open connections must be at least 1")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		errors = append(errors, "max idle connections cannot be greater than max open connections")
	}

	// Валидация уровня логирования
	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	if c.LogLevel != "" && !slices.Contains(validLogLevels, strings.ToUpper(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level: %s (valid: %s)",
			c.LogLevel, strings.Join(validLogLevels, ", ")))
	}

	errors = append(errors, c.Currency.validate()...)
	errors = append(errors, c.Classifier.validate()...)
	errors = append(errors, c.Progress.validate()...)
	errors = append(errors, c.Worker.validate()...)

	if c.Enrichment.BatchSize < 0 {
		errors = append(errors, "enrichment batch size must not be negative")
	}
	if c.Enrichment.ScheduleLimit < 0 {
		errors = append(errors, "enrichment schedule limit must not be negative")
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (c CurrencyConfig) validate() []string {
	var errors []string
	if len(c.Reference) != 3 {
		errors = append(errors, fmt.Sprintf("currency reference must be an ISO 4217 code, got %q", c.Reference))
	}
	switch c.Source {
	case "ecb":
		if !strings.EqualFold(c.Reference, "EUR") {
			errors = append(errors, "ecb currency source requires EUR reference")
		}
	case "static":
	default:
		errors = append(errors, fmt.Sprintf("invalid currency source: %s (valid: ecb, static)", c.Source))
	}
	for code, rate := range c.StaticRates {
		if rate <= 0 {
			errors = append(errors, fmt.Sprintf("static rate for %s must be positive", code))
		}
	}
	return errors
}

func (c ClassifierConfig) validate() []string {
	var errors []string
	switch strings.ToLower(c.Provider) {
	case "":
	case "openai", "anthropic":
		if c.APIKey == "" {
			errors = append(errors, fmt.Sprintf("classifier provider %s requires api key", c.Provider))
		}
		if c.Model == "" {
			errors = append(errors, "classifier model is required")
		}
	case "ollama":
		if c.Model == "" {
			errors = append(errors, "classifier model is required")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid classifier provider: %s (valid: openai, ollama, anthropic)", c.Provider))
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		errors = append(errors, "classifier similarity threshold must be in (0, 1]")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		errors = append(errors, "classifier min confidence must be in [0, 1]")
	}
	return errors
}

func (c ProgressConfig) validate() []string {
	var errors []string
	switch c.Backend {
	case "memory":
	case "sqlite":
		if c.Path == "" {
			errors = append(errors, "progress path is required for sqlite backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid progress backend: %s (valid: memory, sqlite)", c.Backend))
	}
	if c.TTL < time.Minute {
		errors = append(errors, "progress ttl must be at least 1 minute")
	}
	return errors
}

func (c WorkerConfig) validate() []string {
	var errors []string
	if c.Workers < 1 {
		errors = append(errors, "worker count must be at least 1")
	}
	if c.LeaseDuration < time.Second {
		errors = append(errors, "worker lease duration must be at least 1 second")
	}
	if c.HeartbeatInterval >= c.LeaseDuration {
		errors = append(errors, "worker heartbeat interval must be shorter than lease duration")
	}
	if c.ImportTimeout < time.Second {
		errors = append(errors, "import timeout must be at least 1 second")
	}
	if c.EnrichmentTimeout < time.Second {
		errors = append(errors, "enrichment timeout must be at least 1 second")
	}
	if c.ProgressEvery < 1 {
		errors = append(errors, "progress interval must be at least 1 row")
	}
	return errors
}

// GetDefaults возвращает конфигурацию со значениями по умолчанию
func GetDefaults() *Config {
	return &Config{
		Port:            "9999",
		SwaggerHost:     "localhost:9999",
		CORSOrigin:      "*",
		DatabasePath:    "inventory.db",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		UploadDir:       "uploads",
		MaxUploadSize:   50 << 20,
		LogLevel:        "INFO",
		Currency: CurrencyConfig{
			Reference:   "EUR",
			Source:      "ecb",
			Timeout:     10 * time.Second,
			StaticRates: map[string]float64{},
		},
		Classifier: ClassifierConfig{
			Timeout:             30 * time.Second,
			MaxCategories:       50,
			SimilarityThreshold: 0.8,
			MinConfidence:       0.3,
		},
		Progress: ProgressConfig{
			Backend:         "memory",
			Path:            "progress.db",
			TTL:             6 * time.Hour,
			CleanupInterval: 10 * time.Minute,
			MaxLogEntries:   200,
			RecentJobsLimit: 50,
		},
		Worker: WorkerConfig{
			Workers:           2,
			PollInterval:      500 * time.Millisecond,
			LeaseDuration:     time.Minute,
			HeartbeatInterval: 20 * time.Second,
			ImportTimeout:     time.Hour,
			EnrichmentTimeout: 10 * time.Minute,
			ReaperInterval:    30 * time.Second,
			ProgressEvery:     5,
			SampleLimit:       10,
		},
		Enrichment: EnrichmentConfig{
			ScraperEnabled: true,
			BatchSize:      100,
			RequestDelay:   time.Second,
			Timeout:        15 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:         true,
			RateTTL:         12 * time.Hour,
			CategoryTTL:     10 * time.Minute,
			PageTTL:         24 * time.Hour,
			CleanupInterval: time.Hour,
		},
	}
}
