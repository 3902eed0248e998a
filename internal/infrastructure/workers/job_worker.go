package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	domain "github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

// JobProcessor выполняет захваченную задачу до терминального статуса
type JobProcessor interface {
	Process(ctx context.Context, job *domain.ImportJob) error
}

type jobClaimer interface {
	ClaimNext(ctx context.Context, lease time.Duration) (*domain.ImportJob, error)
	Heartbeat(ctx context.Context, id string, lease time.Duration) error
	Fail(ctx context.Context, id string, reason string) error
}

// JobWorkerConfig настройки пула обработчиков задач
type JobWorkerConfig struct {
	Workers           int
	PollInterval      time.Duration
	LeaseDuration     time.Duration
	HeartbeatInterval time.Duration
	ImportTimeout     time.Duration
	EnrichmentTimeout time.Duration
}

// JobWorker забирает задачи из очереди с арендой и продлевает ее, пока задача выполняется
type JobWorker struct {
	jobs      jobClaimer
	processor JobProcessor
	cfg       JobWorkerConfig
	logger    *slog.Logger

	once sync.Once
	wg   sync.WaitGroup
}

// NewJobWorker создает пул обработчиков
func NewJobWorker(jobs jobClaimer, processor JobProcessor, cfg JobWorkerConfig, logger *slog.Logger) *JobWorker {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.LeaseDuration <= 0 {
		cfg.LeaseDuration = 60 * time.Second
	}
	if cfg.HeartbeatInterval <= 0 || cfg.HeartbeatInterval >= cfg.LeaseDuration {
		cfg.HeartbeatInterval = cfg.LeaseDuration / 2
	}
	if cfg.ImportTimeout <= 0 {
		cfg.ImportTimeout = time.Hour
	}
	if cfg.EnrichmentTimeout <= 0 {
		cfg.EnrichmentTimeout = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JobWorker{jobs: jobs, processor: processor, cfg: cfg, logger: logger}
}

// Start запускает обработчики. Повторный вызов ничего не делает.
func (w *JobWorker) Start(ctx context.Context) {
	w.once.Do(func() {
		w.logger.Info("[JobWorker] Starting workers",
			"workers", w.cfg.Workers,
			"lease", w.cfg.LeaseDuration,
			"heartbeat", w.cfg.HeartbeatInterval)
		for i := 0; i < w.cfg.Workers; i++ {
			w.wg.Add(1)
			go w.workerLoop(ctx, i+1)
		}
	})
}

// Wait ждет завершения обработчиков после отмены контекста Start
func (w *JobWorker) Wait() {
	w.wg.Wait()
}

func (w *JobWorker) workerLoop(ctx context.Context, id int) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("[JobWorker] Worker stopped", "worker", id)
			return
		default:
		}

		processed, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("[JobWorker] Claim next job failed", "worker", id, "error", err)
		}
		if processed {
			continue
		}
		if !sleepWithContext(ctx, w.cfg.PollInterval) {
			w.logger.Info("[JobWorker] Worker stopped", "worker", id)
			return
		}
	}
}

// RunOnce забирает и выполняет одну задачу. Возвращает false, если очередь пуста.
func (w *JobWorker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.jobs.ClaimNext(ctx, w.cfg.LeaseDuration)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	w.runJob(ctx, job)
	return true, nil
}

func (w *JobWorker) runJob(ctx context.Context, job *domain.ImportJob) {
	start := time.Now()
	jobCtx, cancel := context.WithTimeout(ctx, w.timeoutFor(job.Kind))
	defer cancel()

	stopHeartbeat := w.startHeartbeat(jobCtx, cancel, job.ID)
	defer stopHeartbeat()

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("[JobWorker] Job panicked",
				"job_id", job.ID,
				"recovered", r,
				"stack_trace", string(debug.Stack()))
			reason := fmt.Sprintf("worker panic: %v", r)
			if err := w.jobs.Fail(context.WithoutCancel(ctx), job.ID, reason); err != nil && !errors.Is(err, domain.ErrJobTerminal) {
				w.logger.Error("[JobWorker] Failed to mark panicked job", "job_id", job.ID, "error", err)
			}
		}
	}()

	if err := w.processor.Process(jobCtx, job); err != nil {
		w.logger.Warn("[JobWorker] Job finished with error",
			"job_id", job.ID,
			"kind", job.Kind,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return
	}
	w.logger.Info("[JobWorker] Job finished",
		"job_id", job.ID,
		"kind", job.Kind,
		"duration_ms", time.Since(start).Milliseconds())
}

// startHeartbeat продлевает аренду по тикеру. Если задача уже завершена извне, отменяет ее контекст.
func (w *JobWorker) startHeartbeat(ctx context.Context, cancel context.CancelFunc, jobID string) func() {
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(w.cfg.HeartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := w.jobs.Heartbeat(ctx, jobID, w.cfg.LeaseDuration)
				switch {
				case err == nil:
				case errors.Is(err, domain.ErrJobTerminal), errors.Is(err, domain.ErrJobNotFound):
					w.logger.Warn("[JobWorker] Job lease lost, stopping", "job_id", jobID, "error", err)
					cancel()
					return
				default:
					w.logger.Warn("[JobWorker] Heartbeat failed", "job_id", jobID, "error", err)
				}
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
	}
}

func (w *JobWorker) timeoutFor(kind domain.JobKind) time.Duration {
	if kind == domain.JobKindDatasheetEnrichment {
		return w.cfg.EnrichmentTimeout
	}
	return w.cfg.ImportTimeout
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
