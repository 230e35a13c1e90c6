package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domdevice "github.com/pivend/vend/internal/domain/device"
	dominventory "github.com/pivend/vend/internal/domain/inventory"
	domsale "github.com/pivend/vend/internal/domain/sale"
	domtelemetry "github.com/pivend/vend/internal/domain/telemetry"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "vending.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestInventoryRoundTrip(t *testing.T) {
	store := openTestStore(t)
	repo := store.Inventory()
	ctx := context.Background()

	product, err := dominventory.NewProduct("p1", "Cola", "A1", decimal.NewFromFloat(2.50), 5, true)
	require.NoError(t, err)
	event := dominventory.NewStockChangeEvent("e1", "p1", 5, dominventory.ReasonInitialStock)
	require.NoError(t, repo.Create(ctx, product, event))

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Cola", got.Name)
	assert.True(t, got.Price.Equal(decimal.NewFromFloat(2.50)))
	assert.Equal(t, 5, got.Quantity)
	assert.True(t, got.Active)

	bySlot, err := repo.GetBySlot(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "p1", bySlot.ID)

	events, err := repo.Events(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, dominventory.ReasonInitialStock, events[0].Reason)
}

func TestInventorySlotUniqueness(t *testing.T) {
	store := openTestStore(t)
	repo := store.Inventory()
	ctx := context.Background()

	first, err := dominventory.NewProduct("p1", "Cola", "A1", decimal.NewFromFloat(2.50), 5, true)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, first, nil))

	second, err := dominventory.NewProduct("p2", "Chips", "A1", decimal.NewFromFloat(1.80), 3, true)
	require.NoError(t, err)
	err = repo.Create(ctx, second, nil)
	require.ErrorIs(t, err, dominventory.ErrSlotTaken)
}

func TestInventoryUpdateIsTransactionalWithEvent(t *testing.T) {
	store := openTestStore(t)
	repo := store.Inventory()
	ctx := context.Background()

	product, err := dominventory.NewProduct("p1", "Cola", "A1", decimal.NewFromFloat(2.50), 5, true)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, product, nil))

	require.NoError(t, product.Apply(-2))
	event := dominventory.NewStockChangeEvent("e1", "p1", -2, dominventory.ReasonSale)
	require.NoError(t, repo.Update(ctx, product, event))

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Quantity)

	events, err := repo.Events(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, -2, events[0].Delta)
}

func TestInventoryUpdateUnknownProduct(t *testing.T) {
	store := openTestStore(t)
	repo := store.Inventory()

	ghost, err := dominventory.NewProduct("ghost", "Nope", "Z9", decimal.NewFromInt(1), 1, true)
	require.NoError(t, err)
	err = repo.Update(context.Background(), ghost, nil)
	require.ErrorIs(t, err, dominventory.ErrNotFound)
}

func TestSaleLedgerRoundTrip(t *testing.T) {
	store := openTestStore(t)
	repo := store.Sales()
	ctx := context.Background()

	sale := domsale.NewFailed("s1", "p1", 2, decimal.NewFromFloat(5.00), "card", domsale.ReasonInsufficientStock)
	require.NoError(t, repo.Record(ctx, sale))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domsale.StatusFailed, got.Status)
	assert.Equal(t, domsale.ReasonInsufficientStock, got.FailureReason)
	assert.True(t, got.TotalPrice.Equal(decimal.NewFromFloat(5.00)))

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, domsale.ErrNotFound)

	listed, err := repo.ListSince(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestSaleListSinceWithSubSecondTimestamps(t *testing.T) {
	store := openTestStore(t)
	repo := store.Sales()
	ctx := context.Background()

	// .5s formats shorter than .55s under a trimming layout, which would sort
	// the later sale before the earlier one in the TEXT column.
	early := domsale.NewSuccess("s-early", "p1", 1, decimal.NewFromFloat(2.50), "cash")
	early.CreatedAt = time.Date(2026, 8, 28, 10, 0, 0, 500_000_000, time.UTC)
	late := domsale.NewSuccess("s-late", "p1", 1, decimal.NewFromFloat(2.50), "cash")
	late.CreatedAt = time.Date(2026, 8, 28, 10, 0, 0, 550_000_000, time.UTC)

	require.NoError(t, repo.Record(ctx, late))
	require.NoError(t, repo.Record(ctx, early))

	listed, err := repo.ListSince(ctx, early.CreatedAt)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "s-early", listed[0].ID)
	assert.Equal(t, "s-late", listed[1].ID)

	listed, err = repo.ListSince(ctx, late.CreatedAt)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "s-late", listed[0].ID)
}

func TestTelemetryLatestIsChronological(t *testing.T) {
	store := openTestStore(t)
	repo := store.Telemetry()
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, id := range []string{"r1", "r2", "r3"} {
		reading := &domtelemetry.Reading{
			ID:           id,
			TemperatureC: 4.2,
			Humidity:     38.5,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Append(ctx, reading))
	}

	latest, err := repo.Latest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "r2", latest[0].ID)
	assert.Equal(t, "r3", latest[1].ID)
}

func TestDeviceStateDefaultsToLocked(t *testing.T) {
	store := openTestStore(t)
	repo := store.Device()
	ctx := context.Background()

	state, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.True(t, state.DoorLocked)

	require.NoError(t, repo.Save(ctx, &domdevice.State{DoorLocked: false, UpdatedAt: time.Now().UTC()}))

	state, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.False(t, state.DoorLocked)
}
