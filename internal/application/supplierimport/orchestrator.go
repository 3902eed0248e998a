package supplierimport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/enrichment"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/importer"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/progress"
	domain "github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

// Исходы строк в деталях задачи и журнале
const (
	RowImported = "imported"
	RowUpdated  = "updated"
	RowSkipped  = "skipped"
	RowError    = "error"
)

const (
	defaultProgressEvery = 5
	defaultSampleLimit   = 10
	maxReasonLength      = 1000
)

// OrchestratorConfig параметры выполнения задач
type OrchestratorConfig struct {
	// ProgressEvery частота записи прогресса в строках
	ProgressEvery int
	// SampleLimit число примеров каждого исхода в итоговой сводке
	SampleLimit int
}

// Enricher выполняет обогащение техническими атрибутами
type Enricher interface {
	Enrich(ctx context.Context, filter domain.EnrichmentFilter, report enrichment.ReportFunc) (*enrichment.EnrichmentSummary, error)
}

// OrchestratorDeps зависимости оркестратора
type OrchestratorDeps struct {
	Jobs     domain.JobRepository
	Blobs    domain.BlobStore
	Progress progress.Store
	Resolver *importer.MappingResolver
	Engine   *importer.UpsertEngine
	Rates    importer.RateConverter
	// Enricher может быть nil, тогда задачи обогащения завершаются ошибкой
	Enricher Enricher
}

// Orchestrator выполняет захваченную задачу от начала до терминального статуса.
// Прогресс и журнал задачи пишет только он.
type Orchestrator struct {
	jobs     domain.JobRepository
	blobs    domain.BlobStore
	progress progress.Store
	resolver *importer.MappingResolver
	engine   *importer.UpsertEngine
	rates    importer.RateConverter
	enricher Enricher
	config   OrchestratorConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewOrchestrator создает оркестратор
func NewOrchestrator(deps OrchestratorDeps, config OrchestratorConfig, logger *slog.Logger) *Orchestrator {
	if config.ProgressEvery <= 0 {
		config.ProgressEvery = defaultProgressEvery
	}
	if config.SampleLimit <= 0 {
		config.SampleLimit = defaultSampleLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		jobs:     deps.Jobs,
		blobs:    deps.Blobs,
		progress: deps.Progress,
		resolver: deps.Resolver,
		engine:   deps.Engine,
		rates:    deps.Rates,
		enricher: deps.Enricher,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// Process выполняет задачу в статусе processing. Возвращаемая ошибка уже
// зафиксирована в задаче, повторно помечать ее не нужно.
func (o *Orchestrator) Process(ctx context.Context, job *domain.ImportJob) error {
	switch job.Kind {
	case domain.JobKindSupplierImport:
		return o.runImport(ctx, job)
	case domain.JobKindDatasheetEnrichment:
		return o.runEnrichment(ctx, job)
	default:
		return o.fail(ctx, job, 0, 0, fmt.Errorf("unknown job kind %q", job.Kind))
	}
}

// FailExternally фиксирует в канале прогресса задачу, которую завершил кто-то другой (например, сборщик аренды)
func (o *Orchestrator) FailExternally(ctx context.Context, jobID, reason string) {
	rec := progress.Record{JobID: jobID, Message: reason, Status: progress.StatusFailed, UpdatedAt: o.now()}
	if prev, err := o.progress.ReadProgress(ctx, jobID); err == nil && prev != nil {
		rec.Kind = prev.Kind
		rec.Current = prev.Current
		rec.Total = prev.Total
		rec.Percentage = prev.Percentage
	}
	if err := o.progress.WriteProgress(ctx, rec); err != nil {
		o.logger.Warn("[Orchestrator] Failed to write progress", "job_id", jobID, "error", err)
	}
	o.appendLog(ctx, jobID, "Job failed: "+reason)
}

// rowRun накапливает исходы строк
type rowRun struct {
	counters domain.JobCounters
	details  []domain.RowDetail
}

func (r *rowRun) add(d domain.RowDetail) {
	switch d.Outcome {
	case RowImported:
		r.counters.Imported++
	case RowUpdated:
		r.counters.Updated++
	case RowSkipped:
		r.counters.Skipped++
	case RowError:
		r.counters.Failed++
	}
	r.details = append(r.details, d)
}

func (r *rowRun) samples(outcome string, limit int) []domain.RowDetail {
	var out []domain.RowDetail
	for _, d := range r.details {
		if d.Outcome != outcome {
			continue
		}
		out = append(out, d)
		if len(out) == limit {
			break
		}
	}
	return out
}

func (o *Orchestrator) runImport(ctx context.Context, job *domain.ImportJob) error {
	start := o.now()
	o.begin(ctx, job, fmt.Sprintf("Import started: %s (supplier %s)", job.Source.Name, job.SupplierID))

	table, err := o.readSource(ctx, job)
	if err != nil {
		return o.fail(ctx, job, 0, 0, err)
	}
	total := len(table.Rows)
	o.appendLog(ctx, job.ID, fmt.Sprintf("Read %d rows (%s, %s)", total, table.Format, table.Encoding))

	mapping, err := o.resolver.ResolveWithOverride(ctx, job.SupplierID, table.Headers, job.MappingOverride)
	if err != nil {
		return o.fail(ctx, job, 0, total, fmt.Errorf("failed to resolve column mapping: %w", err))
	}
	o.appendLog(ctx, job.ID, fmt.Sprintf("Column mapping (%s): %s", mapping.Source, describeMapping(mapping)))

	dialect := importer.DialectFor(job.SupplierID)
	normalizer := importer.NewNormalizer(mapping, table.Headers, dialect, o.rates)
	jobCtx := importer.JobContext{JobID: job.ID, SupplierID: job.SupplierID, Invoice: job.Invoice, Dialect: dialect}

	run := &rowRun{details: make([]domain.RowDetail, 0, total)}
	for i, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			return o.fail(ctx, job, i, total, fmt.Errorf("import interrupted before row %d: %w", table.RowNumber(i), err))
		}

		detail := o.processRow(ctx, job.ID, normalizer, jobCtx, table.RowNumber(i), row)
		run.add(detail)
		o.appendLog(ctx, job.ID, describeRow(detail))

		current := i + 1
		if current%o.config.ProgressEvery == 0 || current == total {
			o.writeProgress(ctx, job, current, total, progress.StatusProcessing,
				fmt.Sprintf("Processed %d of %d rows", current, total), nil)
			if err := o.jobs.UpdateCounters(ctx, job.ID, run.counters); err != nil {
				if errors.Is(err, domain.ErrJobTerminal) {
					return fmt.Errorf("job %s was finished while running: %w", job.ID, err)
				}
				o.logger.Warn("[Orchestrator] Failed to update counters", "job_id", job.ID, "error", err)
			}
			o.logger.Debug("[Orchestrator] Import progress",
				"job_id", job.ID, "current", current, "total", total)
		}
	}

	return o.complete(ctx, job, run, total, start)
}

func (o *Orchestrator) readSource(ctx context.Context, job *domain.ImportJob) (*importer.Table, error) {
	rc, err := o.blobs.Open(ctx, job.Source.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer rc.Close()

	table, err := importer.ReadTable(job.Source.Name, rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", job.Source.Name, err)
	}
	return table, nil
}

// processRow нормализует и применяет одну строку. Ошибка строки не прерывает задачу.
func (o *Orchestrator) processRow(ctx context.Context, jobID string, normalizer *importer.Normalizer, jobCtx importer.JobContext, rowNumber int, row []string) domain.RowDetail {
	detail := domain.RowDetail{RowNumber: rowNumber}

	normalized, skip := normalizer.Normalize(ctx, rowNumber, row)
	if skip != nil {
		detail.Outcome = RowSkipped
		detail.Reason = skip.Reason
		return detail
	}
	detail.PartNumber = normalized.ManufacturerPartNumber
	detail.Description = normalized.Description
	for _, w := range normalized.Warnings {
		o.appendLog(ctx, jobID, fmt.Sprintf("Row %d: warning: %s", rowNumber, w))
	}

	result, err := o.engine.Upsert(ctx, normalized, jobCtx)
	if err != nil {
		detail.Outcome = RowError
		detail.Reason = truncateReason(err.Error())
		o.logger.Warn("[Orchestrator] Row failed",
			"job_id", jobID, "row", rowNumber, "mpn", detail.PartNumber, "error", err)
		return detail
	}

	if result.Component != nil {
		detail.SKU = result.Component.SKU
	}
	detail.Category = result.Category
	switch result.Action {
	case importer.ActionCreated:
		detail.Outcome = RowImported
	case importer.ActionUpdated:
		detail.Outcome = RowUpdated
	default:
		detail.Outcome = RowSkipped
		detail.Reason = result.Reason
	}
	return detail
}

func (o *Orchestrator) runEnrichment(ctx context.Context, job *domain.ImportJob) error {
	start := o.now()
	if o.enricher == nil {
		return o.fail(ctx, job, 0, 0, errors.New("datasheet enrichment is not configured"))
	}
	o.begin(ctx, job, "Datasheet enrichment started")

	filter := domain.EnrichmentFilter{}
	if job.EnrichmentFilter != nil {
		filter = *job.EnrichmentFilter
	}

	var current, total int
	summary, err := o.enricher.Enrich(ctx, filter, func(c, t int, line string) {
		current, total = c, t
		o.appendLog(ctx, job.ID, line)
		if c%o.config.ProgressEvery == 0 || c == t {
			o.writeProgress(ctx, job, c, t, progress.StatusProcessing,
				fmt.Sprintf("Enriched %d of %d components", c, t), nil)
		}
	})
	if err != nil {
		return o.fail(ctx, job, current, total, fmt.Errorf("datasheet enrichment failed: %w", err))
	}

	run := &rowRun{details: make([]domain.RowDetail, 0, len(summary.Outcomes))}
	for i, outcome := range summary.Outcomes {
		run.add(enrichmentDetail(i+1, outcome))
	}
	return o.complete(ctx, job, run, summary.Total, start)
}

func enrichmentDetail(n int, outcome enrichment.ComponentOutcome) domain.RowDetail {
	detail := domain.RowDetail{RowNumber: n, PartNumber: outcome.MPN}
	switch outcome.Outcome {
	case enrichment.OutcomeEnriched:
		detail.Outcome = RowUpdated
		detail.Reason = "filled " + strings.Join(outcome.Fields, ", ")
	case enrichment.OutcomeError:
		detail.Outcome = RowError
		detail.Reason = outcome.Error
	case enrichment.OutcomeUnchanged:
		detail.Outcome = RowSkipped
		detail.Reason = "no new attributes found"
	default:
		detail.Outcome = RowSkipped
		detail.Reason = "already populated"
	}
	return detail
}

// begin отмечает старт задачи: 0% в статусе processing, запись в недавних задачах, строка журнала
func (o *Orchestrator) begin(ctx context.Context, job *domain.ImportJob, message string) {
	o.writeProgress(ctx, job, 0, 0, progress.StatusProcessing, message, nil)
	if err := o.progress.RegisterRecentJob(ctx, job.ID); err != nil {
		o.logger.Warn("[Orchestrator] Failed to register recent job", "job_id", job.ID, "error", err)
	}
	o.appendLog(ctx, job.ID, message)
	o.logger.Info("[Orchestrator] Job started",
		"job_id", job.ID,
		"kind", job.Kind,
		"supplier_id", job.SupplierID,
		"file", job.Source.Name,
		"attempt", job.Attempts)
}

func (o *Orchestrator) complete(ctx context.Context, job *domain.ImportJob, run *rowRun, total int, start time.Time) error {
	limit := o.config.SampleLimit
	summary := domain.ImportSummary{
		JobID:      job.ID,
		Kind:       job.Kind,
		SupplierID: job.SupplierID,
		TotalRows:  total,
		Counters:   run.counters,
		Imported:   run.samples(RowImported, limit),
		Updated:    run.samples(RowUpdated, limit),
		Skipped:    run.samples(RowSkipped, limit),
		Failed:     run.samples(RowError, limit),
		DurationMs: o.now().Sub(start).Milliseconds(),
	}

	if err := o.jobs.Complete(ctx, job.ID, run.counters, run.details); err != nil {
		if errors.Is(err, domain.ErrJobTerminal) {
			return fmt.Errorf("job %s was finished while running: %w", job.ID, err)
		}
		return o.fail(ctx, job, total, total, fmt.Errorf("failed to complete job: %w", err))
	}

	c := run.counters
	message := fmt.Sprintf("Completed: %d imported, %d updated, %d skipped, %d failed", c.Imported, c.Updated, c.Skipped, c.Failed)
	o.writeProgress(ctx, job, total, total, progress.StatusCompleted, message, summary)
	o.appendLog(ctx, job.ID, message)
	o.logBreakdown(ctx, job.ID, summary)

	if job.Source.Key != "" {
		if err := o.blobs.Delete(ctx, job.Source.Key); err != nil {
			o.logger.Warn("[Orchestrator] Failed to delete uploaded file",
				"job_id", job.ID, "key", job.Source.Key, "error", err)
		}
	}

	o.logger.Info("[Orchestrator] Job completed",
		"job_id", job.ID,
		"kind", job.Kind,
		"total", total,
		"imported", c.Imported,
		"updated", c.Updated,
		"skipped", c.Skipped,
		"failed", c.Failed,
		"duration_ms", summary.DurationMs)
	return nil
}

// logBreakdown пишет в журнал первые примеры каждого исхода
func (o *Orchestrator) logBreakdown(ctx context.Context, jobID string, summary domain.ImportSummary) {
	groups := []struct {
		label string
		count int
		rows  []domain.RowDetail
	}{
		{"Imported", summary.Counters.Imported, summary.Imported},
		{"Updated", summary.Counters.Updated, summary.Updated},
		{"Skipped", summary.Counters.Skipped, summary.Skipped},
		{"Failed", summary.Counters.Failed, summary.Failed},
	}
	for _, g := range groups {
		if g.count == 0 {
			continue
		}
		o.appendLog(ctx, jobID, fmt.Sprintf("%s: %d", g.label, g.count))
		for _, d := range g.rows {
			o.appendLog(ctx, jobID, "  "+describeRow(d))
		}
		if rest := g.count - len(g.rows); rest > 0 {
			o.appendLog(ctx, jobID, fmt.Sprintf("  ... and %d more", rest))
		}
	}
}

// fail переводит задачу в failed. Запись идет без отмены контекста, чтобы истекший таймаут не потерял статус.
func (o *Orchestrator) fail(ctx context.Context, job *domain.ImportJob, current, total int, cause error) error {
	reason := truncateReason(cause.Error())
	ctx = context.WithoutCancel(ctx)

	if err := o.jobs.Fail(ctx, job.ID, reason); err != nil && !errors.Is(err, domain.ErrJobTerminal) {
		o.logger.Error("[Orchestrator] Failed to mark job failed", "job_id", job.ID, "error", err)
		return fmt.Errorf("%v; fail update failed: %w", cause, err)
	}
	o.writeProgress(ctx, job, current, total, progress.StatusFailed, reason, nil)
	o.appendLog(ctx, job.ID, "Job failed: "+reason)
	o.logger.Error("[Orchestrator] Job failed",
		"job_id", job.ID,
		"kind", job.Kind,
		"processed", current,
		"total", total,
		"error", reason)
	return cause
}

func (o *Orchestrator) writeProgress(ctx context.Context, job *domain.ImportJob, current, total int, status, message string, result any) {
	rec := progress.Record{
		JobID:      job.ID,
		Kind:       string(job.Kind),
		Current:    current,
		Total:      total,
		Percentage: progress.Percentage(current, total),
		Message:    message,
		Status:     status,
		UpdatedAt:  o.now(),
	}
	if status == progress.StatusCompleted {
		rec.Percentage = 100
	}
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			o.logger.Warn("[Orchestrator] Failed to encode job result", "job_id", job.ID, "error", err)
		} else {
			rec.Result = data
		}
	}
	if err := o.progress.WriteProgress(ctx, rec); err != nil {
		o.logger.Warn("[Orchestrator] Failed to write progress", "job_id", job.ID, "error", err)
	}
}

func (o *Orchestrator) appendLog(ctx context.Context, jobID, line string) {
	if err := o.progress.AppendLog(ctx, jobID, line); err != nil {
		o.logger.Warn("[Orchestrator] Failed to append job log", "job_id", jobID, "error", err)
	}
}

// describeRow строка журнала: номер строки, SKU, описание и категория
func describeRow(d domain.RowDetail) string {
	switch d.Outcome {
	case RowSkipped:
		label := d.SKU
		if label == "" {
			label = d.PartNumber
		}
		if label == "" {
			return fmt.Sprintf("Row %d: skipped (%s)", d.RowNumber, d.Reason)
		}
		return fmt.Sprintf("Row %d: skipped %s (%s)", d.RowNumber, label, d.Reason)
	case RowError:
		return fmt.Sprintf("Row %d: error %s: %s", d.RowNumber, d.PartNumber, d.Reason)
	}

	category := d.Category
	if category == "" {
		category = "uncategorized"
	}
	line := fmt.Sprintf("Row %d: %s %s", d.RowNumber, d.Outcome, d.SKU)
	if d.SKU == "" {
		line = fmt.Sprintf("Row %d: %s %s", d.RowNumber, d.Outcome, d.PartNumber)
	}
	if d.Description != "" {
		line += " - " + d.Description
	}
	return line + " [" + category + "]"
}

func describeMapping(m *importer.Mapping) string {
	parts := make([]string, 0, len(m.Columns))
	for _, field := range m.Fields() {
		parts = append(parts, fmt.Sprintf("%s=%q", field, m.Columns[field].Name))
	}
	return strings.Join(parts, ", ")
}

func truncateReason(reason string) string {
	reason = strings.TrimSpace(reason)
	if len(reason) <= maxReasonLength {
		return reason
	}
	// обрезка по границе руны, чтобы не оставить неполный UTF-8
	cut := maxReasonLength
	for cut > 0 && !utf8.RuneStart(reason[cut]) {
		cut--
	}
	return reason[:cut]
}
