package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

// MappingSource откуда взято сопоставление
type MappingSource string

const (
	MappingPersisted MappingSource = "persisted"
	MappingDetected  MappingSource = "detected"
	MappingOverride  MappingSource = "override"
)

// ColumnRef ссылка на колонку исходного файла
type ColumnRef struct {
	Name     string                  `json:"column"`
	Index    int                     `json:"index"`
	DataType supplierimport.DataType `json:"data_type"`
}

// Mapping итоговое сопоставление поле -> колонка
type Mapping struct {
	SupplierID string               `json:"supplier_id"`
	Source     MappingSource        `json:"source"`
	Columns    map[string]ColumnRef `json:"columns"`
}

// Column возвращает колонку поля
func (m *Mapping) Column(field string) (ColumnRef, bool) {
	ref, ok := m.Columns[field]
	return ref, ok
}

// Cell возвращает значение поля из строки или пустую строку
func (m *Mapping) Cell(row []string, field string) string {
	ref, ok := m.Columns[field]
	if !ok || ref.Index < 0 || ref.Index >= len(row) {
		return ""
	}
	return row[ref.Index]
}

// Fields возвращает поля сопоставления в стабильном порядке
func (m *Mapping) Fields() []string {
	out := make([]string, 0, len(m.Columns))
	for f := range m.Columns {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// MappingResolver определяет соответствие колонок файла каноническим полям
type MappingResolver struct {
	repo   supplierimport.MappingRepository
	table  *PatternTable
	logger *slog.Logger
}

// NewMappingResolver создает резолвер. table == nil означает встроенные правила.
func NewMappingResolver(repo supplierimport.MappingRepository, table *PatternTable, logger *slog.Logger) *MappingResolver {
	if table == nil {
		table = DefaultPatternTable()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MappingResolver{repo: repo, table: table, logger: logger}
}

// Resolve возвращает сопоставление для заголовков файла.
// Сохраненные активные сопоставления используются как есть, иначе запускается эвристика,
// результат которой сохраняется. Если обязательные поля не найдены, возвращается *MappingIncompleteError.
func (r *MappingResolver) Resolve(ctx context.Context, supplierID string, headers []string) (*Mapping, error) {
	return r.ResolveWithOverride(ctx, supplierID, headers, nil)
}

// ResolveWithOverride как Resolve, но явно заданные колонки имеют приоритет
func (r *MappingResolver) ResolveWithOverride(ctx context.Context, supplierID string, headers []string, override map[string]string) (*Mapping, error) {
	if strings.TrimSpace(supplierID) == "" {
		return nil, supplierimport.ErrInvalidSupplier
	}

	persisted, err := r.repo.ActiveMappings(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("failed to load mappings for supplier %s: %w", supplierID, err)
	}

	var mapping *Mapping
	if len(persisted) > 0 {
		mapping = r.fromPersisted(supplierID, headers, persisted)
	} else {
		mapping = r.Detect(supplierID, headers)
		if missing := r.missingRequired(mapping, nil); len(missing) == 0 {
			if err := r.save(ctx, mapping); err != nil {
				return nil, err
			}
			r.logger.Info("[MappingResolver] detected mapping saved",
				"supplier_id", supplierID, "fields", len(mapping.Columns))
		}
	}

	if len(override) > 0 {
		if err := r.applyOverride(mapping, headers, override); err != nil {
			return nil, err
		}
	}

	if missing := r.missingRequired(mapping, persisted); len(missing) > 0 {
		return nil, &supplierimport.MappingIncompleteError{SupplierID: supplierID, Missing: missing}
	}
	return mapping, nil
}

// Detect эвристически сопоставляет заголовки по таблице правил без сохранения.
// Поля обрабатываются в порядке объявления, занятую колонку нельзя взять повторно.
func (r *MappingResolver) Detect(supplierID string, headers []string) *Mapping {
	supplierKey := string(DialectFor(supplierID).Kind())
	mapping := &Mapping{SupplierID: supplierID, Source: MappingDetected, Columns: make(map[string]ColumnRef)}
	committed := make(map[int]bool)

	for i := range r.table.Fields {
		fp := &r.table.Fields[i]
		best, bestRank := -1, rankNone
		for idx, header := range headers {
			if committed[idx] {
				continue
			}
			rank := fp.match(supplierKey, header)
			if rank == rankNone {
				continue
			}
			if best == -1 || rank < bestRank {
				best, bestRank = idx, rank
			}
		}
		if best >= 0 {
			committed[best] = true
			mapping.Columns[fp.Field] = ColumnRef{
				Name:     strings.TrimSpace(headers[best]),
				Index:    best,
				DataType: fp.DataType,
			}
		}
	}

	return mapping
}

// DetectAndSave запускает эвристику и сохраняет результат, заменяя активные сопоставления
func (r *MappingResolver) DetectAndSave(ctx context.Context, supplierID string, headers []string) (*Mapping, error) {
	if strings.TrimSpace(supplierID) == "" {
		return nil, supplierimport.ErrInvalidSupplier
	}
	mapping := r.Detect(supplierID, headers)
	if missing := r.missingRequired(mapping, nil); len(missing) > 0 {
		return nil, &supplierimport.MappingIncompleteError{SupplierID: supplierID, Missing: missing}
	}
	if err := r.save(ctx, mapping); err != nil {
		return nil, err
	}
	return mapping, nil
}

// Replace проверяет поля и заменяет активные сопоставления поставщика.
// Тип данных и обязательность берутся из таблицы правил, если не заданы.
func (r *MappingResolver) Replace(ctx context.Context, supplierID string, mappings []supplierimport.FieldMapping) ([]supplierimport.FieldMapping, error) {
	if strings.TrimSpace(supplierID) == "" {
		return nil, supplierimport.ErrInvalidSupplier
	}

	now := time.Now()
	seen := make(map[string]bool, len(mappings))
	records := make([]supplierimport.FieldMapping, 0, len(mappings))
	for _, m := range mappings {
		fp, ok := r.table.Field(m.Field)
		if !ok {
			return nil, fmt.Errorf("%w: %s", supplierimport.ErrInvalidMappingField, m.Field)
		}
		if strings.TrimSpace(m.Column) == "" {
			return nil, fmt.Errorf("%w: empty column for field %s", supplierimport.ErrInvalidMappingField, m.Field)
		}
		if seen[m.Field] {
			return nil, fmt.Errorf("%w: %s", supplierimport.ErrDuplicateMapping, m.Field)
		}
		seen[m.Field] = true

		m.SupplierID = supplierID
		m.Column = strings.TrimSpace(m.Column)
		if m.DataType == "" {
			m.DataType = fp.DataType
		}
		m.Required = m.Required || fp.Required
		m.Active = true
		m.UpdatedAt = now
		records = append(records, m)
	}

	if err := r.repo.ReplaceActive(ctx, supplierID, records); err != nil {
		return nil, fmt.Errorf("failed to replace mappings for supplier %s: %w", supplierID, err)
	}
	r.logger.Info("[MappingResolver] mappings replaced", "supplier_id", supplierID, "fields", len(records))
	return records, nil
}

// fromPersisted использует сохраненные сопоставления: точное совпадение имени колонки
// с учетом регистра, при расхождении имени используется сохраненный индекс
func (r *MappingResolver) fromPersisted(supplierID string, headers []string, persisted []supplierimport.FieldMapping) *Mapping {
	mapping := &Mapping{SupplierID: supplierID, Source: MappingPersisted, Columns: make(map[string]ColumnRef)}

	for _, fm := range persisted {
		if !fm.Active {
			continue
		}
		idx := indexOf(headers, fm.Column)
		if idx < 0 && fm.ColumnIndex >= 0 && fm.ColumnIndex < len(headers) {
			r.logger.Warn("[MappingResolver] column name drifted, using stored index",
				"supplier_id", supplierID, "field", fm.Field, "column", fm.Column,
				"index", fm.ColumnIndex, "header", headers[fm.ColumnIndex])
			idx = fm.ColumnIndex
		}
		if idx < 0 {
			continue
		}
		mapping.Columns[fm.Field] = ColumnRef{Name: headers[idx], Index: idx, DataType: fm.DataType}
	}

	return mapping
}

func (r *MappingResolver) applyOverride(mapping *Mapping, headers []string, override map[string]string) error {
	for field, column := range override {
		fp, ok := r.table.Field(field)
		if !ok {
			return fmt.Errorf("%w: %s", supplierimport.ErrInvalidMappingField, field)
		}
		idx := indexOf(headers, column)
		if idx < 0 {
			idx = indexOfFold(headers, column)
		}
		if idx < 0 {
			return &supplierimport.MappingIncompleteError{SupplierID: mapping.SupplierID, Missing: []string{field}}
		}
		mapping.Columns[field] = ColumnRef{Name: headers[idx], Index: idx, DataType: fp.DataType}
	}
	mapping.Source = MappingOverride
	return nil
}

// missingRequired возвращает обязательные поля без колонки
func (r *MappingResolver) missingRequired(mapping *Mapping, persisted []supplierimport.FieldMapping) []string {
	required := r.table.RequiredFields()
	for _, fm := range persisted {
		if fm.Active && fm.Required && !contains(required, fm.Field) {
			required = append(required, fm.Field)
		}
	}

	var missing []string
	for _, field := range required {
		if _, ok := mapping.Columns[field]; !ok {
			missing = append(missing, field)
		}
	}
	return missing
}

func (r *MappingResolver) save(ctx context.Context, mapping *Mapping) error {
	now := time.Now()
	records := make([]supplierimport.FieldMapping, 0, len(mapping.Columns))
	for _, field := range mapping.Fields() {
		ref := mapping.Columns[field]
		required := false
		if fp, ok := r.table.Field(field); ok {
			required = fp.Required
		}
		records = append(records, supplierimport.FieldMapping{
			SupplierID:  mapping.SupplierID,
			Field:       field,
			Column:      ref.Name,
			ColumnIndex: ref.Index,
			DataType:    ref.DataType,
			Required:    required,
			Active:      true,
			UpdatedAt:   now,
		})
	}

	if err := r.repo.ReplaceActive(ctx, mapping.SupplierID, records); err != nil {
		return fmt.Errorf("failed to save mapping for supplier %s: %w", mapping.SupplierID, err)
	}
	return nil
}

func indexOf(headers []string, column string) int {
	for i, h := range headers {
		if h == column {
			return i
		}
	}
	return -1
}

func indexOfFold(headers []string, column string) int {
	want := normalizeHeader(column)
	for i, h := range headers {
		if normalizeHeader(h) == want {
			return i
		}
	}
	return -1
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
