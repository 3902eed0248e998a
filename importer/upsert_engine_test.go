package importer

import (
	"context"
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func qty(n int64) *int64 { return &n }

func newTestEngine() (*UpsertEngine, *memoryComponents, *memoryMovements) {
	components := newMemoryComponents()
	movements := &memoryMovements{}
	return NewUpsertEngine(components, movements, newStaticCategories()), components, movements
}

func TestUpsert_CreateWithInvoice(t *testing.T) {
	engine, components, movements := newTestEngine()
	job := JobContext{JobID: "job-1", SupplierID: "Mouser", Invoice: &supplierimport.InvoiceRef{Number: "INV-42"}, Dialect: DialectFor("Mouser")}

	result, err := engine.Upsert(context.Background(), &supplierimport.NormalizedRow{
		RowNumber:              2,
		ManufacturerPartNumber: "GRM188R71H104KA93D",
		SupplierPartNumber:     "81-GRM188R71H104KA3D",
		Description:            "CAP CER 0.1UF 50V X7R 0603",
		StockQuantity:          qty(100),
		UnitPrice:              price("0.0920"),
		Currency:               "EUR",
		Attributes:             map[string]string{supplierimport.FieldPackage: "0603"},
	}, job)
	require.NoError(t, err)

	assert.Equal(t, ActionCreated, result.Action)
	assert.Equal(t, "MOU-81-GRM188R71H104KA3D", result.Component.SKU)
	assert.Equal(t, "Ceramic Capacitors", result.Category)
	assert.Equal(t, "0603", result.Component.Package)
	assert.Equal(t, int64(100), components.byMPN["GRM188R71H104KA93D"].StockQuantity)

	require.Len(t, movements.items, 1)
	assert.Equal(t, supplierimport.MovementImportCreate, movements.items[0].Reason)
	assert.Equal(t, int64(100), movements.items[0].Quantity)
	require.NotNil(t, movements.items[0].InvoiceNumber)
	assert.Equal(t, "INV-42", *movements.items[0].InvoiceNumber)
}

func TestUpsert_UpdateIncrementsAndPreservesManagedFields(t *testing.T) {
	engine, components, movements := newTestEngine()
	ctx := context.Background()
	catID := int64(77)
	components.byMPN["LM358"] = &supplierimport.Component{
		ID: 9, ManufacturerPartNumber: "LM358", SKU: "OLD-1", Description: "Custom description",
		CategoryID: &catID, StockQuantity: 5, UnitPrice: price("0.50"), Notes: "keep me",
	}

	result, err := engine.Upsert(ctx, &supplierimport.NormalizedRow{
		ManufacturerPartNumber: "LM358",
		Description:            "IC OPAMP GP 2 CIRCUIT 8SOIC",
		Manufacturer:           "Texas Instruments",
		StockQuantity:          qty(10),
		UnitPrice:              price("0.42"),
		Currency:               "EUR",
	}, JobContext{JobID: "job-2", SupplierID: "digikey"})
	require.NoError(t, err)

	stored := components.byMPN["LM358"]
	assert.Equal(t, ActionUpdated, result.Action)
	assert.Equal(t, int64(15), stored.StockQuantity)
	assert.True(t, stored.UnitPrice.Equal(decimal.RequireFromString("0.42")))
	assert.Equal(t, "Custom description", stored.Description)
	assert.Equal(t, "keep me", stored.Notes)
	assert.Equal(t, "OLD-1", stored.SKU)
	assert.Equal(t, int64(77), *stored.CategoryID)
	assert.Equal(t, "Texas Instruments", stored.Manufacturer)

	require.Len(t, movements.items, 1)
	assert.Equal(t, supplierimport.MovementImportUpdate, movements.items[0].Reason)
	assert.Nil(t, movements.items[0].InvoiceNumber)
}

func TestUpsert_SkipWhenNothingToApply(t *testing.T) {
	engine, components, movements := newTestEngine()
	catID := int64(1)
	components.byMPN["BC547"] = &supplierimport.Component{
		ID: 1, ManufacturerPartNumber: "BC547", Description: "NPN", CategoryID: &catID,
		StockQuantity: 3, UnitPrice: price("0.10"),
	}

	tests := []struct {
		name string
		row  *supplierimport.NormalizedRow
	}{
		{"zero quantity", &supplierimport.NormalizedRow{ManufacturerPartNumber: "BC547", StockQuantity: qty(0), UnitPrice: price("0.2")}},
		{"missing price", &supplierimport.NormalizedRow{ManufacturerPartNumber: "BC547", StockQuantity: qty(4)}},
		{"negative price", &supplierimport.NormalizedRow{ManufacturerPartNumber: "BC547", StockQuantity: qty(4), UnitPrice: price("-1")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Upsert(context.Background(), tt.row, JobContext{JobID: "j"})
			require.NoError(t, err)
			assert.Equal(t, ActionSkipped, result.Action)
			assert.NotEmpty(t, result.Reason)
		})
	}

	assert.Equal(t, int64(3), components.byMPN["BC547"].StockQuantity)
	assert.Empty(t, movements.items)
}

func TestUpsert_IncompleteRecordIsBackfilled(t *testing.T) {
	engine, components, _ := newTestEngine()
	components.byMPN["1N4148"] = &supplierimport.Component{ID: 3, ManufacturerPartNumber: "1N4148"}

	result, err := engine.Upsert(context.Background(), &supplierimport.NormalizedRow{
		ManufacturerPartNumber: "1N4148",
		Description:            "DIODE GEN PURP 100V 200MA",
		CategoryCandidate:      "Diodes",
	}, JobContext{JobID: "j", SupplierID: "farnell"})
	require.NoError(t, err)

	assert.Equal(t, ActionUpdated, result.Action)
	stored := components.byMPN["1N4148"]
	assert.Equal(t, "DIODE GEN PURP 100V 200MA", stored.Description)
	require.NotNil(t, stored.CategoryID)
	assert.Equal(t, "Diodes", result.Category)
	assert.Equal(t, "FAR-1N4148", stored.SKU)
}

// TestUpsert_ReimportNeverDuplicates повторный импорт одной выгрузки не создает дублей
func TestUpsert_ReimportNeverDuplicates(t *testing.T) {
	gofakeit.Seed(42)
	engine, components, movements := newTestEngine()
	ctx := context.Background()

	const n = 50
	rows := make([]*supplierimport.NormalizedRow, 0, n)
	seen := make(map[string]bool)
	for len(rows) < n {
		mpn := fmt.Sprintf("%s-%d", gofakeit.LetterN(4), gofakeit.Number(100, 99999))
		if seen[mpn] {
			continue
		}
		seen[mpn] = true
		rows = append(rows, &supplierimport.NormalizedRow{
			ManufacturerPartNumber: mpn,
			Description:            gofakeit.ProductName(),
			Manufacturer:           gofakeit.Company(),
			StockQuantity:          qty(int64(gofakeit.Number(1, 500))),
			UnitPrice:              price(fmt.Sprintf("%.2f", gofakeit.Price(0.01, 50))),
			Currency:               "EUR",
		})
	}

	run := func() map[UpsertAction]int {
		counts := make(map[UpsertAction]int)
		for _, row := range rows {
			result, err := engine.Upsert(ctx, row, JobContext{JobID: "job", SupplierID: "acme"})
			require.NoError(t, err)
			counts[result.Action]++
		}
		return counts
	}

	first := run()
	assert.Equal(t, n, first[ActionCreated])

	for i := 0; i < 2; i++ {
		again := run()
		assert.Equal(t, 0, again[ActionCreated])
		assert.Equal(t, n, again[ActionUpdated]+again[ActionSkipped])
	}

	assert.Len(t, components.byMPN, n)
	assert.Len(t, movements.items, 3*n)
}

func TestUpsert_CreateConflictFallsBackToUpdate(t *testing.T) {
	engine, components, movements := newTestEngine()
	catID := int64(1)
	components.byMPN["NE555DR"] = &supplierimport.Component{
		ID: 4, ManufacturerPartNumber: "NE555DR", Description: "IC TIMER", CategoryID: &catID,
		StockQuantity: 10, UnitPrice: price("0.25"),
	}
	components.nextID = 4
	// параллельная задача создала MPN между поиском и вставкой
	components.stale = map[string]int{"NE555DR": 2}

	result, err := engine.Upsert(context.Background(), &supplierimport.NormalizedRow{
		ManufacturerPartNumber: "NE555DR",
		Description:            "IC OSC SINGLE TIMER 100KHZ 8-SOIC",
		StockQuantity:          qty(5),
		UnitPrice:              price("0.24"),
		Currency:               "EUR",
	}, JobContext{JobID: "job-b", SupplierID: "mouser"})
	require.NoError(t, err)

	assert.Equal(t, ActionUpdated, result.Action)
	assert.Equal(t, int64(15), components.byMPN["NE555DR"].StockQuantity)
	assert.Len(t, components.byMPN, 1)
	require.Len(t, movements.items, 1)
	assert.Equal(t, supplierimport.MovementImportUpdate, movements.items[0].Reason)
	assert.Equal(t, int64(5), movements.items[0].Quantity)
}
