package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// LeaseExpiredReason сообщение для задач, чей обработчик перестал продлевать аренду
const LeaseExpiredReason = "lease expired: worker stopped heartbeating"

type jobExpirer interface {
	FailExpired(ctx context.Context, now time.Time, reason string) ([]string, error)
}

// ExpiredJobNotifier отражает принудительное завершение задачи в прогрессе и журнале
type ExpiredJobNotifier interface {
	FailExternally(ctx context.Context, jobID, reason string)
}

// StaleJobReaper периодически переводит в failed задачи с истекшей арендой
type StaleJobReaper struct {
	jobs     jobExpirer
	notifier ExpiredJobNotifier
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	once sync.Once
	wg   sync.WaitGroup
}

// NewStaleJobReaper создает сборщик. notifier может быть nil.
func NewStaleJobReaper(jobs jobExpirer, notifier ExpiredJobNotifier, interval time.Duration, logger *slog.Logger) *StaleJobReaper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StaleJobReaper{
		jobs:     jobs,
		notifier: notifier,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start запускает периодическую проверку до отмены контекста
func (r *StaleJobReaper) Start(ctx context.Context) {
	r.once.Do(func() {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			ticker := time.NewTicker(r.interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if _, err := r.ReapOnce(ctx); err != nil {
						r.logger.Error("[JobReaper] Reap failed", "error", err)
					}
				}
			}
		}()
	})
}

// Wait ждет остановки после отмены контекста Start
func (r *StaleJobReaper) Wait() {
	r.wg.Wait()
}

// ReapOnce завершает просроченные задачи и возвращает их идентификаторы
func (r *StaleJobReaper) ReapOnce(ctx context.Context) ([]string, error) {
	ids, err := r.jobs.FailExpired(ctx, r.now(), LeaseExpiredReason)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		r.logger.Warn("[JobReaper] Job lease expired", "job_id", id)
		if r.notifier != nil {
			r.notifier.FailExternally(ctx, id, LeaseExpiredReason)
		}
	}
	return ids, nil
}
