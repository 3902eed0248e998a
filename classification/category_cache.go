package classification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

// CacheStats статистика кэша категорий
type CacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Reloads int64 `json:"reloads"`
	Size    int   `json:"size"`
}

// CategoryCache кэш списка категорий с TTL. Запись через Add обновляет кэш сразу.
type CategoryCache struct {
	repo     supplierimport.CategoryRepository
	ttl      time.Duration
	items    []supplierimport.Category
	loadedAt time.Time
	stats    CacheStats
	mutex    sync.RWMutex
	now      func() time.Time
}

// NewCategoryCache создает кэш категорий
func NewCategoryCache(repo supplierimport.CategoryRepository, ttl time.Duration) *CategoryCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CategoryCache{repo: repo, ttl: ttl, now: time.Now}
}

// List возвращает категории, перечитывая хранилище после истечения TTL
func (c *CategoryCache) List(ctx context.Context) ([]supplierimport.Category, error) {
	c.mutex.RLock()
	if c.items != nil && c.now().Sub(c.loadedAt) < c.ttl {
		items := c.items
		c.mutex.RUnlock()

		c.mutex.Lock()
		c.stats.Hits++
		c.mutex.Unlock()
		return items, nil
	}
	c.mutex.RUnlock()

	return c.Reload(ctx)
}

// Reload принудительно перечитывает категории
func (c *CategoryCache) Reload(ctx context.Context) ([]supplierimport.Category, error) {
	items, err := c.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	if items == nil {
		items = []supplierimport.Category{}
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.items = items
	c.loadedAt = c.now()
	c.stats.Misses++
	c.stats.Reloads++
	return items, nil
}

// Add добавляет созданную категорию в кэш
func (c *CategoryCache) Add(category supplierimport.Category) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	items := make([]supplierimport.Category, 0, len(c.items)+1)
	items = append(items, c.items...)
	c.items = append(items, category)
}

// Invalidate сбрасывает кэш
func (c *CategoryCache) Invalidate() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.items = nil
}

// GetStats возвращает копию статистики
func (c *CategoryCache) GetStats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	stats := c.stats
	stats.Size = len(c.items)
	return stats
}
