package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

// Исходы обработки компонента
const (
	OutcomeEnriched  = "enriched"
	OutcomeUnchanged = "unchanged"
	OutcomeSkipped   = "skipped"
	OutcomeError     = "error"
)

// Config конфигурация обогащения
type Config struct {
	BatchSize      int  `json:"batch_size"`
	ScraperEnabled bool `json:"scraper_enabled"`
}

// ComponentOutcome результат обработки одного компонента
type ComponentOutcome struct {
	ComponentID int64    `json:"component_id"`
	MPN         string   `json:"mpn"`
	Outcome     string   `json:"outcome"`
	ScoreBefore int      `json:"score_before"`
	ScoreAfter  int      `json:"score_after"`
	Fields      []string `json:"fields,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// EnrichmentSummary итог прогона обогащения
type EnrichmentSummary struct {
	Total      int                `json:"total"`
	Enriched   int                `json:"enriched"`
	Unchanged  int                `json:"unchanged"`
	Skipped    int                `json:"skipped"`
	Failed     int                `json:"failed"`
	Outcomes   []ComponentOutcome `json:"outcomes"`
	DurationMs int64              `json:"duration_ms"`
}

// ReportFunc получает прогресс после каждого компонента и строку журнала
type ReportFunc func(current, total int, line string)

// DatasheetEnricher дополняет пустые технические атрибуты компонентов
type DatasheetEnricher struct {
	components supplierimport.ComponentRepository
	scraper    Scraper
	config     Config
	logger     *slog.Logger
}

// NewDatasheetEnricher создает обогатитель. scraper может быть nil.
func NewDatasheetEnricher(components supplierimport.ComponentRepository, scraper Scraper, config Config, logger *slog.Logger) *DatasheetEnricher {
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasheetEnricher{
		components: components,
		scraper:    scraper,
		config:     config,
		logger:     logger,
	}
}

// Enrich обрабатывает выборку компонентов. Ошибки отдельных компонентов не прерывают прогон.
func (e *DatasheetEnricher) Enrich(ctx context.Context, filter supplierimport.EnrichmentFilter, report ReportFunc) (*EnrichmentSummary, error) {
	start := time.Now()

	components, err := e.selectComponents(ctx, filter)
	if err != nil {
		return nil, err
	}

	summary := &EnrichmentSummary{Total: len(components), Outcomes: make([]ComponentOutcome, 0, len(components))}
	for i, component := range components {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		outcome := e.enrichOne(ctx, component)
		if err := e.components.MarkEnrichmentAttempted(ctx, component.ID, time.Now()); err != nil {
			e.logger.Warn("[Enrichment] Failed to mark attempt", "component_id", component.ID, "error", err)
		}
		summary.Outcomes = append(summary.Outcomes, outcome)
		switch outcome.Outcome {
		case OutcomeEnriched:
			summary.Enriched++
		case OutcomeUnchanged:
			summary.Unchanged++
		case OutcomeSkipped:
			summary.Skipped++
		case OutcomeError:
			summary.Failed++
		}

		if report != nil {
			report(i+1, len(components), describeOutcome(outcome))
		}
	}

	summary.DurationMs = time.Since(start).Milliseconds()
	e.logger.Info("[Enrichment] Batch finished",
		"total", summary.Total,
		"enriched", summary.Enriched,
		"unchanged", summary.Unchanged,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"duration_ms", summary.DurationMs)
	return summary, nil
}

func (e *DatasheetEnricher) selectComponents(ctx context.Context, filter supplierimport.EnrichmentFilter) ([]*supplierimport.Component, error) {
	limit := e.config.BatchSize
	if filter.Limit > 0 && filter.Limit < limit {
		limit = filter.Limit
	}

	if len(filter.ComponentIDs) == 0 {
		components, err := e.components.ListMissingSpecs(ctx, filter, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to select components for enrichment: %w", err)
		}
		return components, nil
	}

	components := make([]*supplierimport.Component, 0, len(filter.ComponentIDs))
	for _, id := range filter.ComponentIDs {
		if len(components) >= limit {
			break
		}
		component, err := e.components.GetByID(ctx, id)
		if errors.Is(err, supplierimport.ErrComponentNotFound) {
			e.logger.Warn("[Enrichment] Component not found", "component_id", id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load component %d: %w", id, err)
		}
		components = append(components, component)
	}
	return components, nil
}

func (e *DatasheetEnricher) enrichOne(ctx context.Context, c *supplierimport.Component) ComponentOutcome {
	outcome := ComponentOutcome{ComponentID: c.ID, MPN: c.ManufacturerPartNumber, ScoreBefore: CompletenessScore(c)}
	outcome.ScoreAfter = outcome.ScoreBefore

	if len(MissingAttributes(c)) == 0 {
		outcome.Outcome = OutcomeSkipped
		return outcome
	}

	var patch supplierimport.SpecPatch
	fillEmpty(&patch, specFromAttributes(c.Attributes))

	if e.scraper != nil && e.config.ScraperEnabled && c.DatasheetURL != "" && !e.covered(c, patch) {
		attrs, err := e.scraper.Scrape(ctx, c.DatasheetURL)
		switch {
		case errors.Is(err, ErrNotHTML):
		case err != nil:
			e.logger.Warn("[Enrichment] Datasheet scrape failed",
				"component_id", c.ID, "url", c.DatasheetURL, "error", err)
		default:
			fillEmpty(&patch, specFromAttributes(attrs))
		}
	}

	fromText := ExtractSpecs(c.Description)
	if patch.MountingType == "" && fromText.MountingType == "" {
		pkg := c.Package
		if pkg == "" {
			pkg = patch.Package
		}
		fromText.MountingType = InferMounting(pkg)
	}
	fillEmpty(&patch, fromText)

	patch = applicable(c, patch)
	if patch.IsEmpty() {
		outcome.Outcome = OutcomeUnchanged
		return outcome
	}

	changed, err := e.components.MergeSpecs(ctx, c.ID, patch)
	if err != nil {
		e.logger.Error("[Enrichment] Failed to merge specs", "component_id", c.ID, "error", err)
		outcome.Outcome = OutcomeError
		outcome.Error = err.Error()
		return outcome
	}
	if !changed {
		outcome.Outcome = OutcomeUnchanged
		return outcome
	}

	merged := *c
	mergeInto(&merged, patch)
	outcome.Outcome = OutcomeEnriched
	outcome.Fields = patchFields(patch)
	outcome.ScoreAfter = CompletenessScore(&merged)
	return outcome
}

// covered сообщает, что патч уже закрывает все пустые атрибуты
func (e *DatasheetEnricher) covered(c *supplierimport.Component, patch supplierimport.SpecPatch) bool {
	merged := *c
	mergeInto(&merged, applicable(c, patch))
	return len(MissingAttributes(&merged)) == 0
}

func mergeInto(c *supplierimport.Component, patch supplierimport.SpecPatch) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Package, patch.Package)
	set(&c.MountingType, patch.MountingType)
	set(&c.Tolerance, patch.Tolerance)
	set(&c.VoltageRating, patch.VoltageRating)
	set(&c.Manufacturer, patch.Manufacturer)
	set(&c.DatasheetURL, patch.DatasheetURL)
}

func describeOutcome(o ComponentOutcome) string {
	switch o.Outcome {
	case OutcomeSkipped:
		return fmt.Sprintf("%s: skipped: already populated", o.MPN)
	case OutcomeEnriched:
		return fmt.Sprintf("%s: enriched %s (completeness %d%% -> %d%%)",
			o.MPN, strings.Join(o.Fields, ", "), o.ScoreBefore, o.ScoreAfter)
	case OutcomeError:
		return fmt.Sprintf("%s: error: %s", o.MPN, o.Error)
	default:
		return fmt.Sprintf("%s: no new attributes found (completeness %d%%)", o.MPN, o.ScoreBefore)
	}
}
