package progress

import (
	"context"
	"strings"
	"sync"
	"time"

	domain "github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/progress"
)

// Config настройки канала прогресса
type Config struct {
	TTL             time.Duration
	CleanupInterval time.Duration
	MaxLogEntries   int
	RecentJobsLimit int
}

// DefaultConfig возвращает настройки по умолчанию
func DefaultConfig() Config {
	return Config{
		TTL:             6 * time.Hour,
		CleanupInterval: 10 * time.Minute,
		MaxLogEntries:   200,
		RecentJobsLimit: 50,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TTL <= 0 {
		c.TTL = def.TTL
	}
	if c.MaxLogEntries <= 0 {
		c.MaxLogEntries = def.MaxLogEntries
	}
	if c.RecentJobsLimit <= 0 {
		c.RecentJobsLimit = def.RecentJobsLimit
	}
	return c
}

type recordEntry struct {
	record    domain.Record
	expiresAt time.Time
}

type logBucket struct {
	entries   []domain.LogEntry
	expiresAt time.Time
}

// MemoryStore канал прогресса в памяти процесса с TTL
type MemoryStore struct {
	config  Config
	records map[string]*recordEntry
	logs    map[string]*logBucket
	recent  []string
	mutex   sync.RWMutex
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewMemoryStore создает хранилище и запускает очистку устаревших записей
func NewMemoryStore(config Config) *MemoryStore {
	config = config.withDefaults()
	s := &MemoryStore{
		config:  config,
		records: make(map[string]*recordEntry),
		logs:    make(map[string]*logBucket),
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		go s.startCleanup()
	}

	return s
}

// WriteProgress перезаписывает снимок прогресса задачи
func (s *MemoryStore) WriteProgress(_ context.Context, rec domain.Record) error {
	now := s.now()
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.records[rec.JobID] = &recordEntry{
		record:    rec,
		expiresAt: now.Add(s.config.TTL),
	}
	return nil
}

// AppendLog добавляет строку в журнал, самые старые строки вытесняются
func (s *MemoryStore) AppendLog(_ context.Context, jobID, message string) error {
	now := s.now()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	bucket, ok := s.logs[jobID]
	if !ok || now.After(bucket.expiresAt) {
		bucket = &logBucket{}
		s.logs[jobID] = bucket
	}

	bucket.entries = append(bucket.entries, domain.LogEntry{Timestamp: now, Message: message})
	if overflow := len(bucket.entries) - s.config.MaxLogEntries; overflow > 0 {
		bucket.entries = append([]domain.LogEntry(nil), bucket.entries[overflow:]...)
	}
	bucket.expiresAt = now.Add(s.config.TTL)
	return nil
}

// ReadProgress возвращает копию снимка или nil
func (s *MemoryStore) ReadProgress(_ context.Context, jobID string) (*domain.Record, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	entry, ok := s.records[jobID]
	if !ok || s.now().After(entry.expiresAt) {
		return nil, nil
	}

	rec := entry.record
	return &rec, nil
}

// ReadLogs возвращает журнал в порядке добавления
func (s *MemoryStore) ReadLogs(_ context.Context, jobID string) ([]domain.LogEntry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	bucket, ok := s.logs[jobID]
	if !ok || s.now().After(bucket.expiresAt) {
		return []domain.LogEntry{}, nil
	}

	out := make([]domain.LogEntry, len(bucket.entries))
	copy(out, bucket.entries)
	return out, nil
}

// RegisterRecentJob поднимает задачу в начало списка недавних
func (s *MemoryStore) RegisterRecentJob(_ context.Context, jobID string) error {
	if strings.TrimSpace(jobID) == "" {
		return nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.recent = pushRecent(s.recent, jobID, s.config.RecentJobsLimit)
	return nil
}

// RecentJobs возвращает недавние задачи, новые первыми
func (s *MemoryStore) RecentJobs(_ context.Context) ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]string, len(s.recent))
	copy(out, s.recent)
	return out, nil
}

// Close останавливает фоновую очистку
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

// pushRecent ставит id в начало без дублей и обрезает список до limit
func pushRecent(list []string, jobID string, limit int) []string {
	out := make([]string, 0, len(list)+1)
	out = append(out, jobID)
	for _, id := range list {
		if id != jobID {
			out = append(out, id)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *MemoryStore) startCleanup() {
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup удаляет устаревшие записи
func (s *MemoryStore) cleanup() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	for key, entry := range s.records {
		if now.After(entry.expiresAt) {
			delete(s.records, key)
		}
	}
	for key, bucket := range s.logs {
		if now.After(bucket.expiresAt) {
			delete(s.logs, key)
		}
	}
}
