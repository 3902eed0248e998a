package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config конфигурация сервиса импорта
type Config struct {
	// Сервер
	Port        string `json:"port" mapstructure:"port"`
	SwaggerHost string `json:"swagger_host" mapstructure:"swagger_host"`
	CORSOrigin  string `json:"cors_origin" mapstructure:"cors_origin"`

	// База склада
	DatabasePath    string        `json:"database_path" mapstructure:"database_path"`
	MaxOpenConns    int           `json:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`

	// Загрузки
	UploadDir     string `json:"upload_dir" mapstructure:"upload_dir"`
	MaxUploadSize int64  `json:"max_upload_size" mapstructure:"max_upload_size"`

	// Таблица шаблонов колонок (YAML). Пустая строка означает встроенную таблицу.
	PatternFile string `json:"pattern_file" mapstructure:"pattern_file"`

	// Логирование
	LogLevel string `json:"log_level" mapstructure:"log_level"`
	LogFile  string `json:"log_file" mapstructure:"log_file"`

	Currency   CurrencyConfig   `json:"currency" mapstructure:"currency"`
	Classifier ClassifierConfig `json:"classifier" mapstructure:"classifier"`
	Progress   ProgressConfig   `json:"progress" mapstructure:"progress"`
	Worker     WorkerConfig     `json:"worker" mapstructure:"worker"`
	Enrichment EnrichmentConfig `json:"enrichment" mapstructure:"enrichment"`
	Cache      CacheConfig      `json:"cache" mapstructure:"cache"`
}

// CurrencyConfig источник курсов и валюта учета
type CurrencyConfig struct {
	Reference string `json:"reference" mapstructure:"reference"`
	// Source "ecb" или "static"
	Source      string             `json:"source" mapstructure:"source"`
	ECBURL      string             `json:"ecb_url" mapstructure:"ecb_url"`
	Timeout     time.Duration      `json:"timeout" mapstructure:"timeout"`
	StaticRates map[string]float64 `json:"static_rates" mapstructure:"static_rates"`
}

// ClassifierConfig классификатор категорий. Provider пустой означает только правила.
type ClassifierConfig struct {
	Provider            string        `json:"provider" mapstructure:"provider"`
	Model               string        `json:"model" mapstructure:"model"`
	APIKey              string        `json:"-" mapstructure:"api_key"`
	BaseURL             string        `json:"base_url" mapstructure:"base_url"`
	Timeout             time.Duration `json:"timeout" mapstructure:"timeout"`
	MaxCategories       int           `json:"max_categories" mapstructure:"max_categories"`
	SimilarityThreshold float64       `json:"similarity_threshold" mapstructure:"similarity_threshold"`
	MinConfidence       float64       `json:"min_confidence" mapstructure:"min_confidence"`
}

// ProgressConfig канал прогресса
type ProgressConfig struct {
	// Backend "memory" или "sqlite"
	Backend         string        `json:"backend" mapstructure:"backend"`
	Path            string        `json:"path" mapstructure:"path"`
	TTL             time.Duration `json:"ttl" mapstructure:"ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval" mapstructure:"cleanup_interval"`
	MaxLogEntries   int           `json:"max_log_entries" mapstructure:"max_log_entries"`
	RecentJobsLimit int           `json:"recent_jobs_limit" mapstructure:"recent_jobs_limit"`
}

// WorkerConfig пул воркеров задач
type WorkerConfig struct {
	Workers           int           `json:"workers" mapstructure:"workers"`
	PollInterval      time.Duration `json:"poll_interval" mapstructure:"poll_interval"`
	LeaseDuration     time.Duration `json:"lease_duration" mapstructure:"lease_duration"`
	HeartbeatInterval time.Duration `json:"heartbeat_interval" mapstructure:"heartbeat_interval"`
	ImportTimeout     time.Duration `json:"import_timeout" mapstructure:"import_timeout"`
	EnrichmentTimeout time.Duration `json:"enrichment_timeout" mapstructure:"enrichment_timeout"`
	ReaperInterval    time.Duration `json:"reaper_interval" mapstructure:"reaper_interval"`
	ProgressEvery     int           `json:"progress_every" mapstructure:"progress_every"`
	SampleLimit       int           `json:"sample_limit" mapstructure:"sample_limit"`
}

// EnrichmentConfig обогащение по даташитам
type EnrichmentConfig struct {
	ScraperEnabled bool          `json:"scraper_enabled" mapstructure:"scraper_enabled"`
	BatchSize      int           `json:"batch_size" mapstructure:"batch_size"`
	RequestDelay   time.Duration `json:"request_delay" mapstructure:"request_delay"`
	Timeout        time.Duration `json:"timeout" mapstructure:"timeout"`
	UserAgent      string        `json:"user_agent" mapstructure:"user_agent"`
	// Schedule cron выражение с секундами. Пустая строка отключает расписание.
	Schedule      string `json:"schedule" mapstructure:"schedule"`
	ScheduleLimit int    `json:"schedule_limit" mapstructure:"schedule_limit"`
}

// CacheConfig TTL кэшей
type CacheConfig struct {
	Enabled         bool          `json:"enabled" mapstructure:"enabled"`
	RateTTL         time.Duration `json:"rate_ttl" mapstructure:"rate_ttl"`
	CategoryTTL     time.Duration `json:"category_ttl" mapstructure:"category_ttl"`
	PageTTL         time.Duration `json:"page_ttl" mapstructure:"page_ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval" mapstructure:"cleanup_interval"`
}

// LoadConfig загружает конфигурацию из переменных окружения
func LoadConfig() (*Config, error) {
	config := &Config{
		// Сервер
		Port:        getEnv("SERVER_PORT", "9999"),
		SwaggerHost: getEnv("SWAGGER_HOST", "localhost:9999"),
		CORSOrigin:  getEnv("CORS_ORIGIN", "*"),

		// База склада
		DatabasePath:    getEnv("DATABASE_PATH", "inventory.db"),
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),

		// Загрузки
		UploadDir:     getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadSize: int64(getEnvInt("MAX_UPLOAD_SIZE", 50<<20)),
		PatternFile:   os.Getenv("MAPPING_PATTERN_FILE"),

		// Логирование
		LogLevel: getEnv("LOG_LEVEL", "INFO"),
		LogFile:  os.Getenv("LOG_FILE"),

		Currency: CurrencyConfig{
			Reference:   getEnv("CURRENCY_REFERENCE", "EUR"),
			Source:      getEnv("CURRENCY_SOURCE", "ecb"),
			ECBURL:      os.Getenv("CURRENCY_ECB_URL"),
			Timeout:     getEnvDuration("CURRENCY_TIMEOUT", 10*time.Second),
			StaticRates: parseRates(os.Getenv("CURRENCY_STATIC_RATES")),
		},

		Classifier: ClassifierConfig{
			Provider:            os.Getenv("CLASSIFIER_PROVIDER"),
			Model:               os.Getenv("CLASSIFIER_MODEL"),
			APIKey:              os.Getenv("CLASSIFIER_API_KEY"),
			BaseURL:             os.Getenv("CLASSIFIER_BASE_URL"),
			Timeout:             getEnvDuration("CLASSIFIER_TIMEOUT", 30*time.Second),
			MaxCategories:       getEnvInt("CLASSIFIER_MAX_CATEGORIES", 50),
			SimilarityThreshold: getEnvFloat("CLASSIFIER_SIMILARITY_THRESHOLD", 0.8),
			MinConfidence:       getEnvFloat("CLASSIFIER_MIN_CONFIDENCE", 0.3),
		},

		Progress: ProgressConfig{
			Backend:         getEnv("PROGRESS_BACKEND", "memory"),
			Path:            getEnv("PROGRESS_PATH", "progress.db"),
			TTL:             getEnvDuration("PROGRESS_TTL", 6*time.Hour),
			CleanupInterval: getEnvDuration("PROGRESS_CLEANUP_INTERVAL", 10*time.Minute),
			MaxLogEntries:   getEnvInt("PROGRESS_MAX_LOG_ENTRIES", 200),
			RecentJobsLimit: getEnvInt("PROGRESS_RECENT_JOBS_LIMIT", 50),
		},

		Worker: WorkerConfig{
			Workers:           getEnvInt("WORKER_COUNT", 2),
			PollInterval:      getEnvDuration("WORKER_POLL_INTERVAL", 500*time.Millisecond),
			LeaseDuration:     getEnvDuration("WORKER_LEASE_DURATION", time.Minute),
			HeartbeatInterval: getEnvDuration("WORKER_HEARTBEAT_INTERVAL", 20*time.Second),
			ImportTimeout:     getEnvDuration("IMPORT_TIMEOUT", time.Hour),
			EnrichmentTimeout: getEnvDuration("ENRICHMENT_TIMEOUT", 10*time.Minute),
			ReaperInterval:    getEnvDuration("REAPER_INTERVAL", 30*time.Second),
			ProgressEvery:     getEnvInt("PROGRESS_EVERY", 5),
			SampleLimit:       getEnvInt("SUMMARY_SAMPLE_LIMIT", 10),
		},

		Enrichment: EnrichmentConfig{
			ScraperEnabled: getEnv("ENRICHMENT_SCRAPER_ENABLED", "true") == "true",
			BatchSize:      getEnvInt("ENRICHMENT_BATCH_SIZE", 100),
			RequestDelay:   getEnvDuration("ENRICHMENT_REQUEST_DELAY", time.Second),
			Timeout:        getEnvDuration("ENRICHMENT_HTTP_TIMEOUT", 15*time.Second),
			UserAgent:      os.Getenv("ENRICHMENT_USER_AGENT"),
			Schedule:       os.Getenv("ENRICHMENT_SCHEDULE"),
			ScheduleLimit:  getEnvInt("ENRICHMENT_SCHEDULE_LIMIT", 0),
		},

		Cache: CacheConfig{
			Enabled:         getEnv("CACHE_ENABLED", "true") == "true",
			RateTTL:         getEnvDuration("CACHE_RATE_TTL", 12*time.Hour),
			CategoryTTL:     getEnvDuration("CACHE_CATEGORY_TTL", 10*time.Minute),
			PageTTL:         getEnvDuration("CACHE_PAGE_TTL", 24*time.Hour),
			CleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", time.Hour),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// getEnv получает переменную окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает переменную окружения как int или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat получает переменную окружения как float64 или возвращает значение по умолчанию
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения как Duration или возвращает значение по умолчанию
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// parseRates разбирает "USD=0.92,GBP=1.17" в курсы к валюте учета
func parseRates(raw string) map[string]float64 {
	rates := make(map[string]float64)
	for _, pair := range strings.Split(raw, ",") {
		code, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || f <= 0 {
			continue
		}
		rates[strings.ToUpper(strings.TrimSpace(code))] = f
	}
	return rates
}
