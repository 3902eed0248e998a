package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domain "github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/progress"
)

// progressRecordModel снимок прогресса в SQLite
type progressRecordModel struct {
	JobID      string    `gorm:"primaryKey;column:job_id"`
	Kind       string    `gorm:"column:kind"`
	Current    int       `gorm:"not null;default:0"`
	Total      int       `gorm:"not null;default:0"`
	Percentage float64   `gorm:"not null;default:0"`
	Message    string    `gorm:"type:text"`
	Status     string    `gorm:"not null"`
	Result     string    `gorm:"type:text"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
	ExpiresAt  time.Time `gorm:"index;column:expires_at"`
}

func (progressRecordModel) TableName() string { return "progress_records" }

// progressLogModel строка журнала задачи
type progressLogModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	JobID     string    `gorm:"index;not null;column:job_id"`
	Message   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"column:created_at"`
	ExpiresAt time.Time `gorm:"index;column:expires_at"`
}

func (progressLogModel) TableName() string { return "progress_logs" }

// recentJobModel элемент списка недавних задач
type recentJobModel struct {
	Seq          int64     `gorm:"primaryKey;autoIncrement"`
	JobID        string    `gorm:"uniqueIndex;not null;column:job_id"`
	RegisteredAt time.Time `gorm:"column:registered_at"`
}

func (recentJobModel) TableName() string { return "recent_jobs" }

// GormStore канал прогресса поверх SQLite, переживает перезапуск процесса
type GormStore struct {
	db     *gorm.DB
	config Config
	now    func() time.Time
	stop   chan struct{}
	once   sync.Once
}

// OpenGormStore открывает SQLite файл и создает таблицы канала прогресса
func OpenGormStore(path string, config Config) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open progress database: %w", err)
	}
	return NewGormStore(db, config)
}

// NewGormStore создает хранилище поверх готового подключения
func NewGormStore(db *gorm.DB, config Config) (*GormStore, error) {
	if err := db.AutoMigrate(&progressRecordModel{}, &progressLogModel{}, &recentJobModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate progress tables: %w", err)
	}

	config = config.withDefaults()
	s := &GormStore{
		db:     db,
		config: config,
		now:    time.Now,
		stop:   make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		go s.startCleanup()
	}

	return s, nil
}

// WriteProgress перезаписывает снимок прогресса
func (s *GormStore) WriteProgress(ctx context.Context, rec domain.Record) error {
	now := s.now()
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}

	model := progressRecordModel{
		JobID:      rec.JobID,
		Kind:       rec.Kind,
		Current:    rec.Current,
		Total:      rec.Total,
		Percentage: rec.Percentage,
		Message:    rec.Message,
		Status:     rec.Status,
		Result:     string(rec.Result),
		UpdatedAt:  rec.UpdatedAt,
		ExpiresAt:  now.Add(s.config.TTL),
	}

	if err := s.db.WithContext(ctx).Save(&model).Error; err != nil {
		return fmt.Errorf("failed to write progress for job %s: %w", rec.JobID, err)
	}
	return nil
}

// AppendLog добавляет строку и вытесняет самые старые сверх лимита
func (s *GormStore) AppendLog(ctx context.Context, jobID, message string) error {
	now := s.now()
	entry := progressLogModel{
		JobID:     jobID,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.TTL),
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to append log for job %s: %w", jobID, err)
		}

		keep := tx.Model(&progressLogModel{}).
			Select("id").
			Where("job_id = ?", jobID).
			Order("id DESC").
			Limit(s.config.MaxLogEntries)

		if err := tx.Where("job_id = ? AND id NOT IN (?)", jobID, keep).
			Delete(&progressLogModel{}).Error; err != nil {
			return fmt.Errorf("failed to trim log for job %s: %w", jobID, err)
		}
		return nil
	})
}

// ReadProgress возвращает снимок или nil для неизвестной задачи
func (s *GormStore) ReadProgress(ctx context.Context, jobID string) (*domain.Record, error) {
	var model progressRecordModel
	err := s.db.WithContext(ctx).
		Where("job_id = ? AND expires_at > ?", jobID, s.now()).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read progress for job %s: %w", jobID, err)
	}

	rec := &domain.Record{
		JobID:      model.JobID,
		Kind:       model.Kind,
		Current:    model.Current,
		Total:      model.Total,
		Percentage: model.Percentage,
		Message:    model.Message,
		Status:     model.Status,
		UpdatedAt:  model.UpdatedAt,
	}
	if model.Result != "" {
		rec.Result = []byte(model.Result)
	}
	return rec, nil
}

// ReadLogs возвращает журнал в порядке добавления
func (s *GormStore) ReadLogs(ctx context.Context, jobID string) ([]domain.LogEntry, error) {
	var models []progressLogModel
	err := s.db.WithContext(ctx).
		Where("job_id = ? AND expires_at > ?", jobID, s.now()).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read logs for job %s: %w", jobID, err)
	}

	entries := make([]domain.LogEntry, 0, len(models))
	for _, m := range models {
		entries = append(entries, domain.LogEntry{Timestamp: m.CreatedAt, Message: m.Message})
	}
	return entries, nil
}

// RegisterRecentJob поднимает задачу в начало списка
func (s *GormStore) RegisterRecentJob(ctx context.Context, jobID string) error {
	if strings.TrimSpace(jobID) == "" {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", jobID).Delete(&recentJobModel{}).Error; err != nil {
			return err
		}
		if err := tx.Create(&recentJobModel{JobID: jobID, RegisteredAt: s.now()}).Error; err != nil {
			return fmt.Errorf("failed to register recent job %s: %w", jobID, err)
		}

		keep := tx.Model(&recentJobModel{}).
			Select("seq").
			Order("seq DESC").
			Limit(s.config.RecentJobsLimit)
		return tx.Where("seq NOT IN (?)", keep).Delete(&recentJobModel{}).Error
	})
}

// RecentJobs возвращает недавние задачи, новые первыми
func (s *GormStore) RecentJobs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&recentJobModel{}).
		Order("seq DESC").
		Limit(s.config.RecentJobsLimit).
		Pluck("job_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent jobs: %w", err)
	}
	return ids, nil
}

// Close останавливает фоновую очистку и закрывает подключение
func (s *GormStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) startCleanup() {
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if err := s.cleanup(context.Background()); err != nil {
				slog.Warn("[ProgressStore] cleanup failed", "error", err)
			}
		}
	}
}

// cleanup удаляет устаревшие снимки и строки журнала
func (s *GormStore) cleanup(ctx context.Context) error {
	now := s.now()
	if err := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&progressRecordModel{}).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&progressLogModel{}).Error
}
