package enrichment

import (
	"sync"
	"time"
)

// CacheConfig конфигурация кэша страниц
type CacheConfig struct {
	Enabled         bool          `json:"enabled"`
	TTL             time.Duration `json:"ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

// PageCache кэш атрибутов, извлеченных со страниц даташитов, по URL
type PageCache struct {
	config CacheConfig
	data   map[string]*cacheEntry
	mutex  sync.Mutex
	stats  CacheStats
	now    func() time.Time
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

type cacheEntry struct {
	attributes map[string]string
	timestamp  time.Time
}

// CacheStats статистика кэша
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// NewPageCache создает новый кэш
func NewPageCache(config CacheConfig) *PageCache {
	cache := &PageCache{
		config: config,
		data:   make(map[string]*cacheEntry),
		now:    time.Now,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	// Запускаем очистку устаревших записей
	if config.Enabled && config.CleanupInterval > 0 {
		go cache.startCleanup()
	} else {
		close(cache.done)
	}

	return cache
}

// Get возвращает атрибуты из кэша
func (c *PageCache) Get(url string) (map[string]string, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.config.Enabled {
		c.stats.Misses++
		return nil, false
	}

	entry, exists := c.data[url]
	if !exists || c.now().Sub(entry.timestamp) > c.config.TTL {
		c.stats.Misses++
		return nil, false
	}

	c.stats.Hits++
	return entry.attributes, true
}

// Set сохраняет атрибуты в кэш
func (c *PageCache) Set(url string, attributes map[string]string) {
	if !c.config.Enabled {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[url] = &cacheEntry{
		attributes: attributes,
		timestamp:  c.now(),
	}
}

// Clear очищает весь кэш
func (c *PageCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data = make(map[string]*cacheEntry)
	c.stats = CacheStats{}
}

// GetStats возвращает статистику кэша
func (c *PageCache) GetStats() CacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	stats := c.stats
	stats.Size = len(c.data)
	return stats
}

// Close останавливает фоновую очистку и ждет ее завершения
func (c *PageCache) Close() {
	c.once.Do(func() { close(c.stop) })
	<-c.done
}

func (c *PageCache) startCleanup() {
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

// cleanup удаляет устаревшие записи
func (c *PageCache) cleanup() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	for key, entry := range c.data {
		if now.Sub(entry.timestamp) > c.config.TTL {
			delete(c.data, key)
		}
	}
}
