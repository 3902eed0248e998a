package supplierimport

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// ComponentRepository хранилище компонентов склада
type ComponentRepository interface {
	// FindByMPN возвращает ErrComponentNotFound, если компонента нет
	FindByMPN(ctx context.Context, mpn string) (*Component, error)
	GetByID(ctx context.Context, id int64) (*Component, error)
	// Create возвращает ErrComponentExists, если MPN уже занят
	Create(ctx context.Context, component *Component) error
	// ApplyImport применяет изменение из выгрузки поставщика и возвращает сохраненный компонент
	ApplyImport(ctx context.Context, id int64, change ImportChange) (*Component, error)
	// ListMissingSpecs возвращает компоненты, у которых не заполнен хотя бы один технический атрибут.
	// Первыми идут компоненты, которые дольше всего не обрабатывались обогатителем.
	ListMissingSpecs(ctx context.Context, filter EnrichmentFilter, limit int) ([]*Component, error)
	// MergeSpecs записывает только пустые поля, возвращает true если что-то изменилось
	MergeSpecs(ctx context.Context, id int64, patch SpecPatch) (bool, error)
	// MarkEnrichmentAttempted запоминает время обработки компонента обогатителем
	MarkEnrichmentAttempted(ctx context.Context, id int64, at time.Time) error
}

// ImportChange изменение компонента из строки поставщика.
// StockDelta прибавляется к остатку, строковые поля заполняют только пустые колонки,
// атрибуты добавляют только отсутствующие ключи.
type ImportChange struct {
	StockDelta         int64
	UnitPrice          *decimal.Decimal
	Currency           string
	PurchaseDate       *time.Time
	CategoryID         *int64
	Description        string
	Manufacturer       string
	SupplierID         string
	SupplierPartNumber string
	DatasheetURL       string
	Package            string
	SKU                string
	Attributes         map[string]string
	UpdatedAt          time.Time
}

// InventoryTransactor выполняет запись компонента и движения одной транзакцией
type InventoryTransactor interface {
	WithinTx(ctx context.Context, fn func(components ComponentRepository, movements MovementRepository) error) error
}

// SpecPatch набор технических атрибутов для слияния
type SpecPatch struct {
	Package       string `json:"package,omitempty"`
	MountingType  string `json:"mounting_type,omitempty"`
	Tolerance     string `json:"tolerance,omitempty"`
	VoltageRating string `json:"voltage_rating,omitempty"`
	Manufacturer  string `json:"manufacturer,omitempty"`
	DatasheetURL  string `json:"datasheet_url,omitempty"`
}

// IsEmpty сообщает, что патч ничего не содержит
func (p SpecPatch) IsEmpty() bool {
	return p == SpecPatch{}
}

// MovementRepository журнал складских движений (только добавление)
type MovementRepository interface {
	Append(ctx context.Context, movement *InventoryMovement) error
	ListByJob(ctx context.Context, jobID string) ([]InventoryMovement, error)
}

// CategoryRepository хранилище категорий
type CategoryRepository interface {
	List(ctx context.Context) ([]Category, error)
	Create(ctx context.Context, name string) (*Category, error)
}

// MappingRepository хранилище сопоставлений колонок поставщиков
type MappingRepository interface {
	ActiveMappings(ctx context.Context, supplierID string) ([]FieldMapping, error)
	// ReplaceActive деактивирует текущие сопоставления поставщика и сохраняет новые
	ReplaceActive(ctx context.Context, supplierID string, mappings []FieldMapping) error
}

// JobRepository долговременная очередь задач с арендой
type JobRepository interface {
	Create(ctx context.Context, job *ImportJob) error
	Get(ctx context.Context, id string) (*ImportJob, error)
	// ClaimNext переводит самую старую queued задачу в processing и выдает аренду
	ClaimNext(ctx context.Context, lease time.Duration) (*ImportJob, error)
	// Claim переводит в processing конкретную queued задачу
	Claim(ctx context.Context, id string, lease time.Duration) (*ImportJob, error)
	ListRecent(ctx context.Context, limit int) ([]*ImportJob, error)
	Heartbeat(ctx context.Context, id string, lease time.Duration) error
	UpdateCounters(ctx context.Context, id string, counters JobCounters) error
	Complete(ctx context.Context, id string, counters JobCounters, details []RowDetail) error
	Fail(ctx context.Context, id string, reason string) error
	// FailExpired переводит в failed задачи с истекшей арендой и возвращает их идентификаторы
	FailExpired(ctx context.Context, now time.Time, reason string) ([]string, error)
}

// BlobStore хранилище загруженных файлов
type BlobStore interface {
	Save(ctx context.Context, name string, r io.Reader) (SourceFile, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// RateSource источник курсов: сколько единиц базовой валюты стоит одна единица currency
type RateSource interface {
	Rate(ctx context.Context, currency string) (decimal.Decimal, error)
}

// ClassificationRequest запрос к бэкенду классификации
type ClassificationRequest struct {
	Description  string
	Manufacturer string
	Known        []string
}

// ClassificationSuggestion ответ бэкенда классификации
type ClassificationSuggestion struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// ClassifierBackend внешний классификатор: текст на входе, категория на выходе
type ClassifierBackend interface {
	Suggest(ctx context.Context, req ClassificationRequest) (*ClassificationSuggestion, error)
}
