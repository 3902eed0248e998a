package supplierimport

import (
	"time"

	"github.com/shopspring/decimal"
)

// JobKind тип фоновой задачи
type JobKind string

const (
	JobKindSupplierImport      JobKind = "supplier_import"
	JobKindDatasheetEnrichment JobKind = "datasheet_enrichment"
)

// JobStatus состояние задачи: queued → processing → completed | failed
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal сообщает, что из статуса нет переходов
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// DataType объявленный тип данных колонки поставщика
type DataType string

const (
	DataTypeString  DataType = "string"
	DataTypeDecimal DataType = "decimal"
	DataTypeInteger DataType = "integer"
	DataTypeDate    DataType = "date"
)

// Канонические поля, на которые отображаются колонки поставщиков
const (
	FieldManufacturerPartNumber = "manufacturer_part_number"
	FieldDescription            = "description"
	FieldManufacturer           = "manufacturer"
	FieldStockQuantity          = "stock_quantity"
	FieldUnitPrice              = "unit_price"
	FieldCategory               = "category"
	FieldSupplierPartNumber     = "supplier_part_number"
	FieldPurchaseDate           = "purchase_date"
	FieldPackage                = "package"
	FieldDatasheetURL           = "datasheet_url"
)

// InvoiceRef метаданные счета, к которому привязывается импорт
type InvoiceRef struct {
	Number    string           `json:"number"`
	Date      *time.Time       `json:"date,omitempty"`
	Total     *decimal.Decimal `json:"total,omitempty"`
	ProjectID string           `json:"project_id,omitempty"`
}

// SourceFile описание загруженного файла в blob store
type SourceFile struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// EnrichmentFilter отбор компонентов для обогащения
type EnrichmentFilter struct {
	CategoryID   *int64  `json:"category_id,omitempty"`
	ComponentIDs []int64 `json:"component_ids,omitempty"`
	Limit        int     `json:"limit,omitempty"`
}

// JobCounters счетчики результатов задачи
type JobCounters struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// RowDetail запись об исходе обработки одной строки
type RowDetail struct {
	RowNumber   int    `json:"row"`
	Outcome     string `json:"outcome"`
	PartNumber  string `json:"mpn,omitempty"`
	SKU         string `json:"sku,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// ImportJob фоновая задача импорта или обогащения
type ImportJob struct {
	ID               string            `json:"id"`
	Kind             JobKind           `json:"kind"`
	UserID           string            `json:"user_id"`
	SupplierID       string            `json:"supplier_id,omitempty"`
	Source           SourceFile        `json:"source"`
	Invoice          *InvoiceRef       `json:"invoice,omitempty"`
	MappingOverride  map[string]string `json:"mapping_override,omitempty"`
	EnrichmentFilter *EnrichmentFilter `json:"enrichment_filter,omitempty"`
	Status           JobStatus         `json:"status"`
	Counters         JobCounters       `json:"counters"`
	Details          []RowDetail       `json:"details,omitempty"`
	Error            string            `json:"error,omitempty"`
	Attempts         int               `json:"attempts"`
	MaxAttempts      int               `json:"max_attempts"`
	LeaseExpiresAt   *time.Time        `json:"lease_expires_at,omitempty"`
	HeartbeatAt      *time.Time        `json:"heartbeat_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	StartedAt        *time.Time        `json:"started_at,omitempty"`
	FinishedAt       *time.Time        `json:"finished_at,omitempty"`
}

// FieldMapping сопоставление канонического поля с колонкой файла поставщика
type FieldMapping struct {
	ID          int64     `json:"id"`
	SupplierID  string    `json:"supplier_id"`
	Field       string    `json:"field"`
	Column      string    `json:"column"`
	ColumnIndex int       `json:"column_index"`
	DataType    DataType  `json:"data_type"`
	Required    bool      `json:"required"`
	Active      bool      `json:"active"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NormalizedRow строка в каноническом виде. Не сохраняется напрямую.
type NormalizedRow struct {
	RowNumber              int
	ManufacturerPartNumber string
	Description            string
	Manufacturer           string
	StockQuantity          *int64
	UnitPrice              *decimal.Decimal
	// Currency валюта UnitPrice: базовая, либо исходная, если курс недоступен
	Currency               string
	OriginalPrice          *decimal.Decimal
	OriginalCurrency       string
	CategoryCandidate      string
	SupplierPartNumber     string
	PurchaseDate           *time.Time
	DatasheetURL           string
	Attributes             map[string]string
	Warnings               []string
}

// SkipSignal строка пропускается без ошибки
type SkipSignal struct {
	RowNumber int
	Reason    string
}

// Component запись склада. Идентичность: manufacturer part number.
type Component struct {
	ID                     int64             `json:"id"`
	ManufacturerPartNumber string            `json:"mpn"`
	SKU                    string            `json:"sku"`
	Description            string            `json:"description"`
	Manufacturer           string            `json:"manufacturer"`
	CategoryID             *int64            `json:"category_id,omitempty"`
	StockQuantity          int64             `json:"stock_quantity"`
	UnitPrice              *decimal.Decimal  `json:"unit_price,omitempty"`
	Currency               string            `json:"currency"`
	SupplierID             string            `json:"supplier_id"`
	SupplierPartNumber     string            `json:"supplier_part_number"`
	PurchaseDate           *time.Time        `json:"purchase_date,omitempty"`
	Package                string            `json:"package"`
	MountingType           string            `json:"mounting_type"`
	Tolerance              string            `json:"tolerance"`
	VoltageRating          string            `json:"voltage_rating"`
	DatasheetURL           string            `json:"datasheet_url"`
	Notes                  string            `json:"notes"`
	Attributes             map[string]string `json:"attributes,omitempty"`
	CreatedAt              time.Time         `json:"created_at"`
	UpdatedAt              time.Time         `json:"updated_at"`
}

// Category категория таксономии
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// MovementReason причина складского движения
type MovementReason string

const (
	MovementImportCreate MovementReason = "import_create"
	MovementImportUpdate MovementReason = "import_update"
)

// InventoryMovement неизменяемая запись о движении количества
type InventoryMovement struct {
	ID            int64          `json:"id"`
	ComponentID   int64          `json:"component_id"`
	Quantity      int64          `json:"quantity"`
	JobID         string         `json:"job_id"`
	InvoiceNumber *string        `json:"invoice_number,omitempty"`
	Reason        MovementReason `json:"reason"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ImportSummary итог задачи, сохраняется в финальной записи прогресса
type ImportSummary struct {
	JobID      string      `json:"job_id"`
	Kind       JobKind     `json:"kind"`
	SupplierID string      `json:"supplier_id,omitempty"`
	TotalRows  int         `json:"total_rows"`
	Counters   JobCounters `json:"counters"`
	Imported   []RowDetail `json:"imported,omitempty"`
	Updated    []RowDetail `json:"updated,omitempty"`
	Skipped    []RowDetail `json:"skipped,omitempty"`
	Failed     []RowDetail `json:"failed,omitempty"`
	DurationMs int64       `json:"duration_ms"`
}
