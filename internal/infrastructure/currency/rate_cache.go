package currency

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

// CacheConfig настройки кэша курсов
type CacheConfig struct {
	Enabled         bool          `json:"enabled" mapstructure:"enabled"`
	TTL             time.Duration `json:"ttl" mapstructure:"ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval" mapstructure:"cleanup_interval"`
}

type rateEntry struct {
	rate      decimal.Decimal
	timestamp time.Time
}

// CacheStats статистика кэша
type CacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Fetches int64 `json:"fetches"`
	Size    int   `json:"size"`
}

// RateCache кэш курсов поверх внешнего источника. Обновления идемпотентны: побеждает последний писатель.
type RateCache struct {
	source    supplierimport.RateSource
	reference string
	config    CacheConfig
	data      map[string]*rateEntry
	stats     CacheStats
	mutex     sync.RWMutex
	now       func() time.Time
	stop      chan struct{}
	done      chan struct{}
	once      sync.Once
}

// NewRateCache создает кэш курсов
func NewRateCache(source supplierimport.RateSource, reference string, config CacheConfig) *RateCache {
	if config.TTL <= 0 {
		config.TTL = 12 * time.Hour
	}
	c := &RateCache{
		source:    source,
		reference: strings.ToUpper(reference),
		config:    config,
		data:      make(map[string]*rateEntry),
		now:       time.Now,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	if config.Enabled && config.CleanupInterval > 0 {
		go c.startCleanup()
	} else {
		close(c.done)
	}

	return c
}

// Reference возвращает код базовой валюты
func (c *RateCache) Reference() string {
	return c.reference
}

// Rate возвращает курс currency к базовой валюте. Просроченный или отсутствующий курс запрашивается у источника.
func (c *RateCache) Rate(ctx context.Context, currency string) (decimal.Decimal, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" || currency == c.reference {
		return decimal.NewFromInt(1), nil
	}

	if rate, ok := c.get(currency); ok {
		return rate, nil
	}

	if c.source == nil {
		return decimal.Zero, fmt.Errorf("%w: no source for %s", supplierimport.ErrRateUnavailable, currency)
	}

	c.mutex.Lock()
	c.stats.Fetches++
	c.mutex.Unlock()

	rate, err := c.source.Rate(ctx, currency)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", supplierimport.ErrRateUnavailable, currency, err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: non-positive rate for %s", supplierimport.ErrRateUnavailable, currency)
	}

	c.Set(currency, rate)
	return rate, nil
}

func (c *RateCache) get(currency string) (decimal.Decimal, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.config.Enabled {
		c.stats.Misses++
		return decimal.Zero, false
	}

	entry, ok := c.data[currency]
	if !ok || c.now().Sub(entry.timestamp) > c.config.TTL {
		c.stats.Misses++
		return decimal.Zero, false
	}

	c.stats.Hits++
	return entry.rate, true
}

// Set кладет курс в кэш
func (c *RateCache) Set(currency string, rate decimal.Decimal) {
	if !c.config.Enabled {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[strings.ToUpper(currency)] = &rateEntry{rate: rate, timestamp: c.now()}
	c.stats.Size = len(c.data)
}

// GetStats возвращает копию статистики
func (c *RateCache) GetStats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	stats := c.stats
	stats.Size = len(c.data)
	return stats
}

// Close останавливает фоновую очистку и ждет ее завершения. Повторный вызов безопасен.
func (c *RateCache) Close() {
	c.once.Do(func() { close(c.stop) })
	<-c.done
}

func (c *RateCache) startCleanup() {
	defer close(c.done)
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

func (c *RateCache) cleanup() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	for key, entry := range c.data {
		if now.Sub(entry.timestamp) > c.config.TTL {
			delete(c.data, key)
		}
	}
	c.stats.Size = len(c.data)
}
