package supplierimport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/importer"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/progress"
	domain "github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

// UseCase представляет use case импорта выгрузок поставщиков и обогащения.
// Координирует очередь задач, хранилище файлов и канал прогресса.
type UseCase struct {
	jobs         domain.JobRepository
	blobs        domain.BlobStore
	progress     progress.Store
	resolver     *importer.MappingResolver
	mappings     domain.MappingRepository
	orchestrator *Orchestrator
	lease        time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// NewUseCase создает use case. lease используется при синхронном запуске задач.
func NewUseCase(
	jobs domain.JobRepository,
	blobs domain.BlobStore,
	progressStore progress.Store,
	resolver *importer.MappingResolver,
	mappings domain.MappingRepository,
	orchestrator *Orchestrator,
	lease time.Duration,
	logger *slog.Logger,
) *UseCase {
	if lease <= 0 {
		lease = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UseCase{
		jobs:         jobs,
		blobs:        blobs,
		progress:     progressStore,
		resolver:     resolver,
		mappings:     mappings,
		orchestrator: orchestrator,
		lease:        lease,
		logger:       logger,
		now:          time.Now,
	}
}

// SubmitImportRequest запрос на импорт выгрузки
type SubmitImportRequest struct {
	UserID          string
	SupplierID      string
	FileName        string
	File            io.Reader
	MappingOverride map[string]string
	Invoice         *domain.InvoiceRef
}

// JobOverview недавняя задача с последним снимком прогресса
type JobOverview struct {
	JobID    string           `json:"job_id"`
	Progress *progress.Record `json:"progress"`
}

// Submit сохраняет файл, ставит задачу в очередь и сразу возвращает ее идентификатор
func (uc *UseCase) Submit(ctx context.Context, req SubmitImportRequest) (string, error) {
	req.SupplierID = strings.TrimSpace(req.SupplierID)
	if req.SupplierID == "" {
		return "", domain.ErrInvalidSupplier
	}
	if req.File == nil || strings.TrimSpace(req.FileName) == "" {
		return "", domain.ErrEmptySource
	}
	if !importer.IsSupportedFormat(req.FileName) {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, req.FileName)
	}
	if req.Invoice != nil && strings.TrimSpace(req.Invoice.Number) == "" {
		req.Invoice = nil
	}

	src, err := uc.blobs.Save(ctx, req.FileName, req.File)
	if err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}

	job := &domain.ImportJob{
		ID:              uuid.NewString(),
		Kind:            domain.JobKindSupplierImport,
		UserID:          req.UserID,
		SupplierID:      req.SupplierID,
		Source:          src,
		Invoice:         req.Invoice,
		MappingOverride: req.MappingOverride,
		Status:          domain.JobStatusQueued,
		MaxAttempts:     1,
		CreatedAt:       uc.now(),
	}
	if err := uc.jobs.Create(ctx, job); err != nil {
		if delErr := uc.blobs.Delete(ctx, src.Key); delErr != nil {
			uc.logger.Warn("[Orchestrator] Failed to remove orphaned upload", "key", src.Key, "error", delErr)
		}
		return "", fmt.Errorf("failed to create import job: %w", err)
	}

	uc.announce(ctx, job, fmt.Sprintf("Import queued: %s (supplier %s)", src.Name, req.SupplierID))
	return job.ID, nil
}

// SubmitEnrichment ставит в очередь задачу обогащения техническими атрибутами
func (uc *UseCase) SubmitEnrichment(ctx context.Context, userID string, filter domain.EnrichmentFilter) (string, error) {
	job := &domain.ImportJob{
		ID:               uuid.NewString(),
		Kind:             domain.JobKindDatasheetEnrichment,
		UserID:           userID,
		EnrichmentFilter: &filter,
		Status:           domain.JobStatusQueued,
		MaxAttempts:      1,
		CreatedAt:        uc.now(),
	}
	if err := uc.jobs.Create(ctx, job); err != nil {
		return "", fmt.Errorf("failed to create enrichment job: %w", err)
	}

	uc.announce(ctx, job, "Datasheet enrichment queued")
	return job.ID, nil
}

// RunImport ставит импорт в очередь и выполняет его в текущей горутине
func (uc *UseCase) RunImport(ctx context.Context, req SubmitImportRequest) (*domain.ImportJob, error) {
	id, err := uc.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	return uc.runNow(ctx, id)
}

// RunEnrichment ставит обогащение в очередь и выполняет его в текущей горутине
func (uc *UseCase) RunEnrichment(ctx context.Context, userID string, filter domain.EnrichmentFilter) (*domain.ImportJob, error) {
	id, err := uc.SubmitEnrichment(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	return uc.runNow(ctx, id)
}

func (uc *UseCase) runNow(ctx context.Context, id string) (*domain.ImportJob, error) {
	job, err := uc.jobs.Claim(ctx, id, uc.lease)
	if err != nil {
		return nil, fmt.Errorf("failed to claim job %s: %w", id, err)
	}

	runErr := uc.orchestrator.Process(ctx, job)

	final, err := uc.jobs.Get(context.WithoutCancel(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload job %s: %w", id, err)
	}
	return final, runErr
}

// GetJob возвращает задачу по идентификатору
func (uc *UseCase) GetJob(ctx context.Context, id string) (*domain.ImportJob, error) {
	job, err := uc.jobs.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// GetProgress возвращает последний снимок прогресса или nil
func (uc *UseCase) GetProgress(ctx context.Context, id string) (*progress.Record, error) {
	rec, err := uc.progress.ReadProgress(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read progress: %w", err)
	}
	return rec, nil
}

// GetLogs возвращает журнал задачи. Для неизвестной задачи список пустой.
func (uc *UseCase) GetLogs(ctx context.Context, id string) ([]progress.LogEntry, error) {
	logs, err := uc.progress.ReadLogs(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read logs: %w", err)
	}
	if logs == nil {
		logs = []progress.LogEntry{}
	}
	return logs, nil
}

// RecentJobs возвращает недавние задачи, новые первыми
func (uc *UseCase) RecentJobs(ctx context.Context) ([]JobOverview, error) {
	ids, err := uc.progress.RecentJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent jobs: %w", err)
	}

	out := make([]JobOverview, 0, len(ids))
	for _, id := range ids {
		rec, err := uc.progress.ReadProgress(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to read progress for %s: %w", id, err)
		}
		out = append(out, JobOverview{JobID: id, Progress: rec})
	}
	return out, nil
}

// ListJobs возвращает последние задачи из очереди, новые первыми
func (uc *UseCase) ListJobs(ctx context.Context, limit int) ([]*domain.ImportJob, error) {
	if limit <= 0 {
		limit = 20
	}
	jobs, err := uc.jobs.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// DetectMapping определяет сопоставление по образцу файла и сохраняет его
func (uc *UseCase) DetectMapping(ctx context.Context, supplierID, fileName string, r io.Reader) (*importer.Mapping, error) {
	table, err := importer.ReadTable(fileName, r)
	if err != nil {
		return nil, fmt.Errorf("failed to read sample: %w", err)
	}
	mapping, err := uc.resolver.DetectAndSave(ctx, supplierID, table.Headers)
	if err != nil {
		return nil, err
	}
	return mapping, nil
}

// GetMappings возвращает активные сопоставления поставщика
func (uc *UseCase) GetMappings(ctx context.Context, supplierID string) ([]domain.FieldMapping, error) {
	mappings, err := uc.mappings.ActiveMappings(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("failed to get mappings: %w", err)
	}
	if mappings == nil {
		mappings = []domain.FieldMapping{}
	}
	return mappings, nil
}

// PutMappings заменяет активные сопоставления поставщика
func (uc *UseCase) PutMappings(ctx context.Context, supplierID string, mappings []domain.FieldMapping) ([]domain.FieldMapping, error) {
	return uc.resolver.Replace(ctx, supplierID, mappings)
}

// announce публикует снимок queued и регистрирует задачу в недавних
func (uc *UseCase) announce(ctx context.Context, job *domain.ImportJob, message string) {
	rec := progress.Record{
		JobID:     job.ID,
		Kind:      string(job.Kind),
		Message:   message,
		Status:    progress.StatusQueued,
		UpdatedAt: uc.now(),
	}
	if err := uc.progress.WriteProgress(ctx, rec); err != nil {
		uc.logger.Warn("[Orchestrator] Failed to write progress", "job_id", job.ID, "error", err)
	}
	if err := uc.progress.RegisterRecentJob(ctx, job.ID); err != nil {
		uc.logger.Warn("[Orchestrator] Failed to register recent job", "job_id", job.ID, "error", err)
	}
	if err := uc.progress.AppendLog(ctx, job.ID, message); err != nil {
		uc.logger.Warn("[Orchestrator] Failed to append job log", "job_id", job.ID, "error", err)
	}
	uc.logger.Info("[Orchestrator] Job queued", "job_id", job.ID, "kind", job.Kind, "supplier_id", job.SupplierID)
}
