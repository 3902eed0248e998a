package importer

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/database"
	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

// storeCategories создает категорию с именем из строки или одну общую
type storeCategories struct {
	store *database.CategoryStore
}

func (s storeCategories) Classify(ctx context.Context, _, _ string) (*supplierimport.Category, error) {
	return s.store.Create(ctx, "General Components")
}

func (s storeCategories) ResolveName(ctx context.Context, name string) (*supplierimport.Category, error) {
	return s.store.Create(ctx, name)
}

func setupInventory(t *testing.T) *database.InventoryDB {
	t.Helper()
	db, err := database.NewInventoryDB(filepath.Join(t.TempDir(), "inventory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newSQLiteEngine(db *database.InventoryDB) *UpsertEngine {
	return NewUpsertEngine(db.Components(), db.Movements(), storeCategories{store: db.Categories()}).WithTransactor(db)
}

func TestUpsert_ConcurrentImportsKeepEveryIncrement(t *testing.T) {
	db := setupInventory(t)
	ctx := context.Background()
	job := JobContext{JobID: "job-a", SupplierID: "mouser"}

	seed, err := newSQLiteEngine(db).Upsert(ctx, &supplierimport.NormalizedRow{
		ManufacturerPartNumber: "LM358DR",
		Description:            "IC OPAMP GP 2 CIRCUIT 8SOIC",
		StockQuantity:          qty(10),
		UnitPrice:              price("0.40"),
		Currency:               "EUR",
	}, job)
	require.NoError(t, err)
	require.Equal(t, ActionCreated, seed.Action)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine := newSQLiteEngine(db)
			_, err := engine.Upsert(ctx, &supplierimport.NormalizedRow{
				ManufacturerPartNumber: "LM358DR",
				StockQuantity:          qty(5),
				UnitPrice:              price("0.42"),
				Currency:               "EUR",
			}, job)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := db.Components().FindByMPN(ctx, "LM358DR")
	require.NoError(t, err)
	assert.Equal(t, int64(10+workers*5), stored.StockQuantity)

	movements, err := db.Movements().ListByJob(ctx, "job-a")
	require.NoError(t, err)
	assert.Len(t, movements, workers+1)
}

func TestUpsert_StaleSnapshotsDoNotOverwriteStock(t *testing.T) {
	db := setupInventory(t)
	ctx := context.Background()
	store := db.Components()

	c := &supplierimport.Component{ManufacturerPartNumber: "BC547B", StockQuantity: 10}
	require.NoError(t, store.Create(ctx, c))

	// обе задачи прочитали остаток 10 до записи
	first, err := store.GetByID(ctx, c.ID)
	require.NoError(t, err)
	second, err := store.GetByID(ctx, c.ID)
	require.NoError(t, err)

	_, err = store.ApplyImport(ctx, first.ID, supplierimport.ImportChange{StockDelta: 5})
	require.NoError(t, err)
	updated, err := store.ApplyImport(ctx, second.ID, supplierimport.ImportChange{StockDelta: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(20), updated.StockQuantity)
}

type brokenMovements struct{}

func (brokenMovements) Append(context.Context, *supplierimport.InventoryMovement) error {
	return errors.New("movement log unavailable")
}

func (brokenMovements) ListByJob(context.Context, string) ([]supplierimport.InventoryMovement, error) {
	return nil, nil
}

// brokenMovementsTx выполняет запись в настоящей транзакции, но журнал движений отказывает
type brokenMovementsTx struct {
	db *database.InventoryDB
}

func (b brokenMovementsTx) WithinTx(ctx context.Context, fn func(supplierimport.ComponentRepository, supplierimport.MovementRepository) error) error {
	return b.db.WithinTx(ctx, func(components supplierimport.ComponentRepository, _ supplierimport.MovementRepository) error {
		return fn(components, brokenMovements{})
	})
}

func TestUpsert_MovementFailureRollsBackComponentWrite(t *testing.T) {
	db := setupInventory(t)
	ctx := context.Background()
	healthy := newSQLiteEngine(db)
	broken := NewUpsertEngine(db.Components(), db.Movements(), storeCategories{store: db.Categories()}).
		WithTransactor(brokenMovementsTx{db: db})
	job := JobContext{JobID: "job-c", SupplierID: "farnell"}

	tests := []struct {
		name      string
		seed      bool
		wantStock int64
	}{
		{name: "create", seed: false},
		{name: "update", seed: true, wantStock: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mpn := "CRCW0603-" + tt.name
			if tt.seed {
				_, err := healthy.Upsert(ctx, &supplierimport.NormalizedRow{
					ManufacturerPartNumber: mpn, Description: "RES SMD 10K 1% 0603",
					StockQuantity: qty(7), UnitPrice: price("0.02"), Currency: "EUR",
				}, job)
				require.NoError(t, err)
			}

			_, err := broken.Upsert(ctx, &supplierimport.NormalizedRow{
				ManufacturerPartNumber: mpn, Description: "RES SMD 10K 1% 0603",
				StockQuantity: qty(100), UnitPrice: price("0.03"), Currency: "EUR",
			}, job)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "movement log unavailable")

			stored, err := db.Components().FindByMPN(ctx, mpn)
			if !tt.seed {
				assert.ErrorIs(t, err, supplierimport.ErrComponentNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStock, stored.StockQuantity)
			assert.True(t, stored.UnitPrice.Equal(decimal.RequireFromString("0.02")))
		})
	}
}
