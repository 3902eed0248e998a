package workers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	domain "github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

// SchedulerUserID автор задач, поставленных по расписанию
const SchedulerUserID = "scheduler"

// EnrichmentSubmitter ставит задачу обогащения в очередь
type EnrichmentSubmitter interface {
	SubmitEnrichment(ctx context.Context, userID string, filter domain.EnrichmentFilter) (string, error)
}

// EnrichmentScheduler ставит обогащение в очередь по cron-выражению с секундами
type EnrichmentScheduler struct {
	submitter EnrichmentSubmitter
	filter    domain.EnrichmentFilter
	cron      *cron.Cron
	entryID   cron.EntryID
	logger    *slog.Logger
}

// NewEnrichmentScheduler создает планировщик. Неверное выражение возвращает ошибку.
func NewEnrichmentScheduler(submitter EnrichmentSubmitter, schedule string, filter domain.EnrichmentFilter, logger *slog.Logger) (*EnrichmentScheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &EnrichmentScheduler{
		submitter: submitter,
		filter:    filter,
		cron:      cron.New(cron.WithSeconds()),
		logger:    logger,
	}

	entryID, err := s.cron.AddFunc(schedule, func() {
		s.trigger(context.Background())
	})
	if err != nil {
		return nil, fmt.Errorf("invalid enrichment schedule %q: %w", schedule, err)
	}
	s.entryID = entryID
	return s, nil
}

// Start запускает планировщик
func (s *EnrichmentScheduler) Start() {
	s.cron.Start()
	s.logger.Info("[Enrichment] Scheduler started", "next_run", s.cron.Entry(s.entryID).Next)
}

// Stop останавливает планировщик и ждет текущий запуск
func (s *EnrichmentScheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("[Enrichment] Scheduler stopped")
}

func (s *EnrichmentScheduler) trigger(ctx context.Context) {
	jobID, err := s.submitter.SubmitEnrichment(ctx, SchedulerUserID, s.filter)
	if err != nil {
		s.logger.Error("[Enrichment] Scheduled run failed to submit", "error", err)
		return
	}
	s.logger.Info("[Enrichment] Scheduled run submitted", "job_id", jobID)
}
