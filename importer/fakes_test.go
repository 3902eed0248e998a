package importer

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

type memoryMappings struct {
	mu       sync.Mutex
	active   map[string][]supplierimport.FieldMapping
	replaced int
}

func newMemoryMappings() *memoryMappings {
	return &memoryMappings{active: make(map[string][]supplierimport.FieldMapping)}
}

func (m *memoryMappings) ActiveMappings(_ context.Context, supplierID string) ([]supplierimport.FieldMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]supplierimport.FieldMapping(nil), m.active[supplierID]...), nil
}

func (m *memoryMappings) ReplaceActive(_ context.Context, supplierID string, mappings []supplierimport.FieldMapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaced++
	m.active[supplierID] = append([]supplierimport.FieldMapping(nil), mappings...)
	return nil
}

type memoryComponents struct {
	mu     sync.Mutex
	byMPN  map[string]*supplierimport.Component
	nextID int64
	// stale сколько раз FindByMPN еще не увидит MPN, как при гонке двух задач
	stale map[string]int
}

func newMemoryComponents() *memoryComponents {
	return &memoryComponents{byMPN: make(map[string]*supplierimport.Component)}
}

func (r *memoryComponents) FindByMPN(_ context.Context, mpn string) (*supplierimport.Component, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stale[mpn] > 0 {
		r.stale[mpn]--
		return nil, supplierimport.ErrComponentNotFound
	}
	c, ok := r.byMPN[mpn]
	if !ok {
		return nil, supplierimport.ErrComponentNotFound
	}
	clone := *c
	return &clone, nil
}

func (r *memoryComponents) GetByID(_ context.Context, id int64) (*supplierimport.Component, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byMPN {
		if c.ID == id {
			clone := *c
			return &clone, nil
		}
	}
	return nil, supplierimport.ErrComponentNotFound
}

func (r *memoryComponents) Create(_ context.Context, c *supplierimport.Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byMPN[c.ManufacturerPartNumber]; ok {
		return supplierimport.ErrComponentExists
	}
	r.nextID++
	c.ID = r.nextID
	clone := *c
	r.byMPN[c.ManufacturerPartNumber] = &clone
	return nil
}

func (r *memoryComponents) ApplyImport(_ context.Context, id int64, change supplierimport.ImportChange) (*supplierimport.Component, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var c *supplierimport.Component
	for _, item := range r.byMPN {
		if item.ID == id {
			c = item
		}
	}
	if c == nil {
		return nil, supplierimport.ErrComponentNotFound
	}

	c.StockQuantity += change.StockDelta
	if change.UnitPrice != nil {
		price := *change.UnitPrice
		c.UnitPrice = &price
		c.Currency = change.Currency
	}
	if change.PurchaseDate != nil {
		c.PurchaseDate = change.PurchaseDate
	}
	if c.CategoryID == nil && change.CategoryID != nil {
		id := *change.CategoryID
		c.CategoryID = &id
	}
	fill := func(dst *string, v string) {
		if strings.TrimSpace(*dst) == "" && v != "" {
			*dst = v
		}
	}
	fill(&c.Description, change.Description)
	fill(&c.Manufacturer, change.Manufacturer)
	fill(&c.SupplierID, change.SupplierID)
	fill(&c.SupplierPartNumber, change.SupplierPartNumber)
	fill(&c.DatasheetURL, change.DatasheetURL)
	fill(&c.Package, change.Package)
	fill(&c.SKU, change.SKU)
	for k, v := range change.Attributes {
		if c.Attributes == nil {
			c.Attributes = make(map[string]string)
		}
		if _, ok := c.Attributes[k]; !ok {
			c.Attributes[k] = v
		}
	}
	c.UpdatedAt = change.UpdatedAt

	clone := *c
	return &clone, nil
}

func (r *memoryComponents) MarkEnrichmentAttempted(context.Context, int64, time.Time) error {
	return nil
}

func (r *memoryComponents) ListMissingSpecs(context.Context, supplierimport.EnrichmentFilter, int) ([]*supplierimport.Component, error) {
	return nil, nil
}

func (r *memoryComponents) MergeSpecs(context.Context, int64, supplierimport.SpecPatch) (bool, error) {
	return false, nil
}

type memoryMovements struct {
	mu    sync.Mutex
	items []supplierimport.InventoryMovement
}

func (r *memoryMovements) Append(_ context.Context, m *supplierimport.InventoryMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID = int64(len(r.items) + 1)
	r.items = append(r.items, *m)
	return nil
}

func (r *memoryMovements) ListByJob(_ context.Context, jobID string) ([]supplierimport.InventoryMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []supplierimport.InventoryMovement
	for _, m := range r.items {
		if m.JobID == jobID {
			out = append(out, m)
		}
	}
	return out, nil
}

// staticCategories сопоставляет каждому имени одну категорию
type staticCategories struct {
	mu    sync.Mutex
	names map[string]int64
}

func newStaticCategories() *staticCategories {
	return &staticCategories{names: make(map[string]int64)}
}

func (s *staticCategories) get(name string) *supplierimport.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.names[name]
	if !ok {
		id = int64(len(s.names) + 1)
		s.names[name] = id
	}
	return &supplierimport.Category{ID: id, Name: name}
}

func (s *staticCategories) Classify(_ context.Context, description, _ string) (*supplierimport.Category, error) {
	if description == "" {
		return s.get("General Components"), nil
	}
	return s.get("Ceramic Capacitors"), nil
}

func (s *staticCategories) ResolveName(_ context.Context, name string) (*supplierimport.Category, error) {
	return s.get(name), nil
}

type fixedRates struct {
	reference string
	rates     map[string]decimal.Decimal
}

func (f fixedRates) Reference() string { return f.reference }

func (f fixedRates) Rate(_ context.Context, currency string) (decimal.Decimal, error) {
	if currency == f.reference {
		return decimal.NewFromInt(1), nil
	}
	rate, ok := f.rates[currency]
	if !ok {
		return decimal.Zero, supplierimport.ErrRateUnavailable
	}
	return rate, nil
}
