package enrichment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/database"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

// memoryComponents хранилище, которое, как и SQL-реализация, не перезаписывает заполненные поля
type memoryComponents struct {
	mu        sync.Mutex
	items     map[int64]*supplierimport.Component
	attempted map[int64]time.Time
}

func newMemoryComponents(items ...*supplierimport.Component) *memoryComponents {
	m := &memoryComponents{items: make(map[int64]*supplierimport.Component), attempted: make(map[int64]time.Time)}
	for _, c := range items {
		m.items[c.ID] = c
	}
	return m
}

func (m *memoryComponents) FindByMPN(context.Context, string) (*supplierimport.Component, error) {
	return nil, supplierimport.ErrComponentNotFound
}

func (m *memoryComponents) GetByID(_ context.Context, id int64) (*supplierimport.Component, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return nil, supplierimport.ErrComponentNotFound
	}
	clone := *c
	return &clone, nil
}

func (m *memoryComponents) Create(context.Context, *supplierimport.Component) error { return nil }
func (m *memoryComponents) ApplyImport(context.Context, int64, supplierimport.ImportChange) (*supplierimport.Component, error) {
	return nil, errors.New("not supported")
}

func (m *memoryComponents) MarkEnrichmentAttempted(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempted[id] = at
	return nil
}

func (m *memoryComponents) ListMissingSpecs(_ context.Context, filter supplierimport.EnrichmentFilter, limit int) ([]*supplierimport.Component, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*supplierimport.Component
	for _, c := range m.items {
		if len(MissingAttributes(c)) == 0 {
			continue
		}
		if filter.CategoryID != nil && (c.CategoryID == nil || *c.CategoryID != *filter.CategoryID) {
			continue
		}
		clone := *c
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := m.attempted[out[i].ID], m.attempted[out[j].ID]
		if !ai.Equal(aj) {
			return ai.Before(aj)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryComponents) MergeSpecs(_ context.Context, id int64, patch supplierimport.SpecPatch) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return false, supplierimport.ErrComponentNotFound
	}
	patch = applicable(c, patch)
	if patch.IsEmpty() {
		return false, nil
	}
	mergeInto(c, patch)
	return true, nil
}

type stubScraper struct {
	calls int
	attrs map[string]string
	err   error
}

func (s *stubScraper) Scrape(context.Context, string) (map[string]string, error) {
	s.calls++
	return s.attrs, s.err
}

func TestEnrich_FillsOnlyEmptyFields(t *testing.T) {
	repo := newMemoryComponents(&supplierimport.Component{
		ID:                     1,
		ManufacturerPartNumber: "GRM188R71H104KA93D",
		Description:            "CAP CER 0.1UF 50V X7R 0603",
		VoltageRating:          "25V",
	})
	enricher := NewDatasheetEnricher(repo, nil, Config{}, nil)

	var lines []string
	summary, err := enricher.Enrich(context.Background(), supplierimport.EnrichmentFilter{}, func(current, total int, line string) {
		lines = append(lines, line)
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Enriched)
	stored := repo.items[1]
	assert.Equal(t, "0603", stored.Package)
	assert.Equal(t, MountingSMD, stored.MountingType)
	assert.Equal(t, "25V", stored.VoltageRating, "populated attribute must not be replaced")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "enriched")
}

func TestEnrich_AlreadyPopulatedIsNoOp(t *testing.T) {
	full := &supplierimport.Component{
		ID: 7, ManufacturerPartNumber: "LM358", Package: "SOIC-8", MountingType: "SMD",
		Tolerance: "n/a", VoltageRating: "32V", Manufacturer: "TI", DatasheetURL: "https://ti.com/lm358",
	}
	repo := newMemoryComponents(full)
	snapshot := *full
	enricher := NewDatasheetEnricher(repo, &stubScraper{}, Config{ScraperEnabled: true}, nil)

	var lines []string
	summary, err := enricher.Enrich(context.Background(), supplierimport.EnrichmentFilter{ComponentIDs: []int64{7}}, func(_, _ int, line string) {
		lines = append(lines, line)
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, snapshot, *repo.items[7])
	require.Len(t, lines, 1)
	assert.True(t, strings.HasSuffix(lines[0], "skipped: already populated"))
}

func TestEnrich_SupplierAttributesFirstThenScraper(t *testing.T) {
	repo := newMemoryComponents(&supplierimport.Component{
		ID:                     2,
		ManufacturerPartNumber: "RC0603FR-0710KL",
		Description:            "RES 10K 5% 0805",
		DatasheetURL:           "https://example.com/rc0603",
		Attributes:             map[string]string{"Tolerance": "±1%", "Package / Case": "0603"},
	})
	scraper := &stubScraper{attrs: map[string]string{"Mounting Type": "Surface Mount", "Voltage - Rated": "75V", "Manufacturer": "Yageo"}}
	enricher := NewDatasheetEnricher(repo, scraper, Config{ScraperEnabled: true}, nil)

	summary, err := enricher.Enrich(context.Background(), supplierimport.EnrichmentFilter{}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Enriched)
	assert.Equal(t, 1, scraper.calls)
	stored := repo.items[2]
	assert.Equal(t, "±1%", stored.Tolerance)
	assert.Equal(t, "0603", stored.Package)
	assert.Equal(t, "75V", stored.VoltageRating)
	assert.Equal(t, "Yageo", stored.Manufacturer)
	assert.Equal(t, MountingSMD, stored.MountingType)
	assert.Equal(t, 100, summary.Outcomes[0].ScoreAfter)
}

func TestEnrich_ScraperErrorContinues(t *testing.T) {
	repo := newMemoryComponents(
		&supplierimport.Component{ID: 1, ManufacturerPartNumber: "A", Description: "CAP 10V 0402", DatasheetURL: "https://x/a"},
		&supplierimport.Component{ID: 2, ManufacturerPartNumber: "B", Description: "RES 1% 0805", DatasheetURL: "https://x/b"},
	)
	scraper := &stubScraper{err: assert.AnError}
	enricher := NewDatasheetEnricher(repo, scraper, Config{ScraperEnabled: true}, nil)

	summary, err := enricher.Enrich(context.Background(), supplierimport.EnrichmentFilter{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Enriched)
	assert.Equal(t, "0402", repo.items[1].Package)
	assert.Equal(t, "±1%", repo.items[2].Tolerance)
}

func TestEnrich_BatchLimit(t *testing.T) {
	var items []*supplierimport.Component
	for i := int64(1); i <= 5; i++ {
		items = append(items, &supplierimport.Component{ID: i, ManufacturerPartNumber: "P", Description: "0603"})
	}
	enricher := NewDatasheetEnricher(newMemoryComponents(items...), nil, Config{BatchSize: 3}, nil)

	summary, err := enricher.Enrich(context.Background(), supplierimport.EnrichmentFilter{Limit: 10}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
}

// TestEnrich_RotatesPastUnenrichableComponents компоненты без найденных атрибутов не занимают каждый пакет
func TestEnrich_RotatesPastUnenrichableComponents(t *testing.T) {
	db, err := database.NewInventoryDB(filepath.Join(t.TempDir(), "inventory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()
	store := db.Components()

	for _, c := range []*supplierimport.Component{
		{ManufacturerPartNumber: "CUSTOM-1", Description: "custom harness"},
		{ManufacturerPartNumber: "CUSTOM-2", Description: "spare bracket"},
		{ManufacturerPartNumber: "GRM188R71H104KA93D", Description: "CAP CER 100NF 50V 10% 0603"},
	} {
		require.NoError(t, store.Create(ctx, c))
	}

	enricher := NewDatasheetEnricher(store, nil, Config{BatchSize: 2}, nil)

	first, err := enricher.Enrich(ctx, supplierimport.EnrichmentFilter{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Total)
	assert.Equal(t, 2, first.Unchanged)

	second, err := enricher.Enrich(ctx, supplierimport.EnrichmentFilter{}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, second.Outcomes)
	assert.Equal(t, "GRM188R71H104KA93D", second.Outcomes[0].MPN)
	assert.Equal(t, 1, second.Enriched)

	capacitor, err := store.FindByMPN(ctx, "GRM188R71H104KA93D")
	require.NoError(t, err)
	assert.Equal(t, "0603", capacitor.Package)
	assert.Equal(t, "50V", capacitor.VoltageRating)
	assert.Equal(t, "±10%", capacitor.Tolerance)
}

func TestPageScraper_ParsesTablesWithCharset(t *testing.T) {
	page := "<html><body><table>" +
		"<tr><th>Package / Case</th><td>0603 (1608 Metric)</td></tr>" +
		"<tr><th>Tolerance:</th><td>\xb110%</td></tr>" +
		"</table><dl><dt>Voltage - Rated</dt><dd>50V</dd></dl>" +
		"<a href=\"https://example.com/ds.pdf\">Datasheet</a></body></html>"

	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "text/html; charset=windows-1252")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	cache := NewPageCache(CacheConfig{Enabled: true, TTL: time.Minute})
	defer cache.Close()
	scraper := NewPageScraper(ScraperConfig{RequestDelay: time.Millisecond, Cache: cache})

	attrs, err := scraper.Scrape(context.Background(), srv.URL+"/p/1")
	require.NoError(t, err)
	assert.Equal(t, "0603 (1608 Metric)", attrs["Package / Case"])
	assert.Equal(t, "±10%", attrs["Tolerance"])
	assert.Equal(t, "50V", attrs["Voltage - Rated"])
	assert.Equal(t, "https://example.com/ds.pdf", attrs["Datasheet"])

	_, err = scraper.Scrape(context.Background(), srv.URL+"/p/1")
	require.NoError(t, err)
	assert.Equal(t, 1, requests, "second scrape must hit the cache")

	_, err = scraper.Scrape(context.Background(), "https://example.com/file.PDF")
	assert.ErrorIs(t, err, ErrNotHTML)
}
