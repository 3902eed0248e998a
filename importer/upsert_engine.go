package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

// UpsertAction исход обработки строки
type UpsertAction string

const (
	ActionCreated UpsertAction = "created"
	ActionUpdated UpsertAction = "updated"
	ActionSkipped UpsertAction = "skipped"
)

// CategoryResolver определяет категорию компонента
type CategoryResolver interface {
	Classify(ctx context.Context, description, manufacturer string) (*supplierimport.Category, error)
	ResolveName(ctx context.Context, name string) (*supplierimport.Category, error)
}

// JobContext контекст задачи, общий для всех строк
type JobContext struct {
	JobID      string
	SupplierID string
	Invoice    *supplierimport.InvoiceRef
	Dialect    SupplierDialect
}

// UpsertResult результат обработки строки
type UpsertResult struct {
	Action    UpsertAction              `json:"action"`
	Component *supplierimport.Component `json:"component"`
	Category  string                    `json:"category,omitempty"`
	Reason    string                    `json:"reason,omitempty"`
}

// UpsertEngine создает или обновляет компоненты по manufacturer part number
type UpsertEngine struct {
	components supplierimport.ComponentRepository
	movements  supplierimport.MovementRepository
	categories CategoryResolver
	tx         supplierimport.InventoryTransactor
	now        func() time.Time
}

// NewUpsertEngine создает движок upsert
func NewUpsertEngine(components supplierimport.ComponentRepository, movements supplierimport.MovementRepository, categories CategoryResolver) *UpsertEngine {
	return &UpsertEngine{
		components: components,
		movements:  movements,
		categories: categories,
		now:        time.Now,
	}
}

// WithTransactor включает запись компонента и движения одной транзакцией
func (e *UpsertEngine) WithTransactor(tx supplierimport.InventoryTransactor) *UpsertEngine {
	e.tx = tx
	return e
}

// Upsert применяет строку к складу. Каждое создание или обновление добавляет складское движение.
func (e *UpsertEngine) Upsert(ctx context.Context, row *supplierimport.NormalizedRow, job JobContext) (*UpsertResult, error) {
	if row == nil || row.ManufacturerPartNumber == "" {
		return &UpsertResult{Action: ActionSkipped, Reason: "missing manufacturer part number"}, nil
	}
	if job.Dialect == nil {
		job.Dialect = DialectFor(job.SupplierID)
	}

	existing, err := e.lookup(ctx, e.components, row.ManufacturerPartNumber)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if reason := skipReason(existing, row); reason != "" {
			return &UpsertResult{Action: ActionSkipped, Component: existing, Reason: reason}, nil
		}
	}

	// классификатор может создать категорию, поэтому он работает до транзакции
	var category *supplierimport.Category
	if existing == nil || existing.CategoryID == nil {
		if category, err = e.categorize(ctx, row); err != nil {
			return nil, err
		}
	}

	var result *UpsertResult
	err = e.inTx(ctx, func(components supplierimport.ComponentRepository, movements supplierimport.MovementRepository) error {
		var writeErr error
		result, writeErr = e.write(ctx, components, movements, row, job, category)
		return writeErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *UpsertEngine) inTx(ctx context.Context, fn func(supplierimport.ComponentRepository, supplierimport.MovementRepository) error) error {
	if e.tx == nil {
		return fn(e.components, e.movements)
	}
	return e.tx.WithinTx(ctx, fn)
}

func (e *UpsertEngine) lookup(ctx context.Context, components supplierimport.ComponentRepository, mpn string) (*supplierimport.Component, error) {
	existing, err := components.FindByMPN(ctx, mpn)
	if errors.Is(err, supplierimport.ErrComponentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up component %s: %w", mpn, err)
	}
	return existing, nil
}

// write перечитывает компонент и создает либо обновляет его. Если параллельная задача
// успела создать тот же MPN, строка применяется как обновление.
func (e *UpsertEngine) write(ctx context.Context, components supplierimport.ComponentRepository, movements supplierimport.MovementRepository, row *supplierimport.NormalizedRow, job JobContext, category *supplierimport.Category) (*UpsertResult, error) {
	current, err := e.lookup(ctx, components, row.ManufacturerPartNumber)
	if err != nil {
		return nil, err
	}

	if current == nil {
		if category == nil {
			return nil, fmt.Errorf("component %s disappeared during import", row.ManufacturerPartNumber)
		}
		component := e.newComponent(row, job, category)
		err := components.Create(ctx, component)
		if err == nil {
			if err := e.appendMovement(ctx, movements, component.ID, positiveQty(row), job, supplierimport.MovementImportCreate); err != nil {
				return nil, err
			}
			return &UpsertResult{Action: ActionCreated, Component: component, Category: category.Name}, nil
		}
		if !errors.Is(err, supplierimport.ErrComponentExists) {
			return nil, fmt.Errorf("failed to create component %s: %w", row.ManufacturerPartNumber, err)
		}
		if current, err = e.lookup(ctx, components, row.ManufacturerPartNumber); err != nil {
			return nil, err
		}
		if current == nil {
			return nil, fmt.Errorf("component %s vanished after create conflict", row.ManufacturerPartNumber)
		}
	}

	if reason := skipReason(current, row); reason != "" {
		return &UpsertResult{Action: ActionSkipped, Component: current, Reason: reason}, nil
	}

	change := e.importChange(row, job)
	categoryName := ""
	if current.CategoryID == nil && category != nil {
		change.CategoryID = &category.ID
		categoryName = category.Name
	}

	updated, err := components.ApplyImport(ctx, current.ID, change)
	if err != nil {
		return nil, fmt.Errorf("failed to update component %s: %w", row.ManufacturerPartNumber, err)
	}

	if err := e.appendMovement(ctx, movements, updated.ID, change.StockDelta, job, supplierimport.MovementImportUpdate); err != nil {
		return nil, err
	}

	return &UpsertResult{Action: ActionUpdated, Component: updated, Category: categoryName}, nil
}

func (e *UpsertEngine) newComponent(row *supplierimport.NormalizedRow, job JobContext, category *supplierimport.Category) *supplierimport.Component {
	now := e.now()
	component := &supplierimport.Component{
		ManufacturerPartNumber: row.ManufacturerPartNumber,
		SKU:                    BuildSKU(job.Dialect, row),
		Description:            row.Description,
		Manufacturer:           row.Manufacturer,
		CategoryID:             &category.ID,
		Currency:               row.Currency,
		SupplierID:             job.SupplierID,
		SupplierPartNumber:     row.SupplierPartNumber,
		PurchaseDate:           row.PurchaseDate,
		DatasheetURL:           row.DatasheetURL,
		Attributes:             copyAttributes(row.Attributes),
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if qty := positiveQty(row); qty > 0 {
		component.StockQuantity = qty
	}
	if row.UnitPrice != nil && row.UnitPrice.IsPositive() {
		price := *row.UnitPrice
		component.UnitPrice = &price
	}
	if pkg := row.Attributes[supplierimport.FieldPackage]; pkg != "" {
		component.Package = pkg
	}
	return component
}

// importChange содержит только поля, которыми владеют данные поставщика
func (e *UpsertEngine) importChange(row *supplierimport.NormalizedRow, job JobContext) supplierimport.ImportChange {
	change := supplierimport.ImportChange{
		StockDelta:         positiveQty(row),
		PurchaseDate:       row.PurchaseDate,
		Description:        row.Description,
		Manufacturer:       row.Manufacturer,
		SupplierID:         job.SupplierID,
		SupplierPartNumber: row.SupplierPartNumber,
		DatasheetURL:       row.DatasheetURL,
		Package:            row.Attributes[supplierimport.FieldPackage],
		SKU:                BuildSKU(job.Dialect, row),
		Attributes:         copyAttributes(row.Attributes),
		UpdatedAt:          e.now(),
	}
	if row.UnitPrice != nil && row.UnitPrice.IsPositive() {
		price := *row.UnitPrice
		change.UnitPrice = &price
		change.Currency = row.Currency
	}
	return change
}

// skipReason непустой, когда строке нечего добавить к полной записи
func skipReason(c *supplierimport.Component, row *supplierimport.NormalizedRow) string {
	hasPrice := row.UnitPrice != nil && row.UnitPrice.IsPositive()
	if (!hasPrice || positiveQty(row) <= 0) && isComplete(c) {
		return "no positive price or quantity, existing record is complete"
	}
	return ""
}

// categorize использует категорию поставщика, если она есть, иначе классификатор
func (e *UpsertEngine) categorize(ctx context.Context, row *supplierimport.NormalizedRow) (*supplierimport.Category, error) {
	if row.CategoryCandidate != "" {
		category, err := e.categories.ResolveName(ctx, row.CategoryCandidate)
		if err == nil {
			return category, nil
		}
		if !errors.Is(err, supplierimport.ErrCategoryNotFound) {
			return nil, fmt.Errorf("failed to resolve category %q: %w", row.CategoryCandidate, err)
		}
	}

	category, err := e.categories.Classify(ctx, row.Description, row.Manufacturer)
	if err != nil {
		return nil, fmt.Errorf("failed to classify %s: %w", row.ManufacturerPartNumber, err)
	}
	return category, nil
}

func (e *UpsertEngine) appendMovement(ctx context.Context, movements supplierimport.MovementRepository, componentID, qty int64, job JobContext, reason supplierimport.MovementReason) error {
	movement := &supplierimport.InventoryMovement{
		ComponentID: componentID,
		Quantity:    qty,
		JobID:       job.JobID,
		Reason:      reason,
		CreatedAt:   e.now(),
	}
	if job.Invoice != nil && job.Invoice.Number != "" {
		number := job.Invoice.Number
		movement.InvoiceNumber = &number
	}

	if err := movements.Append(ctx, movement); err != nil {
		return fmt.Errorf("failed to append movement for component %d: %w", componentID, err)
	}
	return nil
}

// BuildSKU строит складской код: префикс поставщика и номер позиции поставщика или MPN
func BuildSKU(dialect SupplierDialect, row *supplierimport.NormalizedRow) string {
	ref := row.SupplierPartNumber
	if ref == "" {
		ref = row.ManufacturerPartNumber
	}
	return dialect.SKUPrefix() + "-" + strings.ReplaceAll(strings.TrimSpace(ref), " ", "")
}

// isComplete запись имеет цену, описание и категорию
func isComplete(c *supplierimport.Component) bool {
	return c.UnitPrice != nil && c.UnitPrice.IsPositive() &&
		strings.TrimSpace(c.Description) != "" &&
		c.CategoryID != nil
}

func positiveQty(row *supplierimport.NormalizedRow) int64 {
	if row.StockQuantity == nil || *row.StockQuantity <= 0 {
		return 0
	}
	return *row.StockQuantity
}

func copyAttributes(attrs map[string]string) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
