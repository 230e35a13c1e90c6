package inventory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dombus "github.com/pivend/vend/internal/domain/bus"
	domain "github.com/pivend/vend/internal/domain/inventory"
	"github.com/pivend/vend/internal/infrastructure/memory"
)

type seqIDGen struct{ n atomic.Int64 }

func (g *seqIDGen) NewID() string {
	return fmt.Sprintf("id-%d", g.n.Add(1))
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []dombus.Event
}

func (p *capturingPublisher) Publish(_ context.Context, e dombus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func newTestService() (*Service, *memory.InventoryRepository, *capturingPublisher) {
	repo := memory.NewInventoryRepository()
	pub := &capturingPublisher{}
	return NewService(repo, &seqIDGen{}, pub, nil), repo, pub
}

func TestCreateProductRecordsInitialStock(t *testing.T) {
	svc, _, pub := newTestService()
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:     "Cola",
		SlotCode: "a1",
		Price:    decimal.NewFromFloat(2.50),
		Quantity: 10,
		Active:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, "A1", product.SlotCode)

	events, err := svc.StockHistory(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.ReasonInitialStock, events[0].Reason)
	assert.Equal(t, 10, events[0].Delta)

	require.Len(t, pub.events, 1)
	changed, ok := pub.events[0].(domain.StockChangedEvent)
	require.True(t, ok)
	assert.Equal(t, 10, changed.Remaining)
}

func TestCreateProductZeroQuantityHasNoEvent(t *testing.T) {
	svc, _, _ := newTestService()

	product, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:     "Water",
		SlotCode: "B2",
		Price:    decimal.NewFromFloat(1.25),
		Quantity: 0,
		Active:   true,
	})
	require.NoError(t, err)

	events, err := svc.StockHistory(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCreateProductRejectsDuplicateSlot(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{
		Name: "Cola", SlotCode: "A1", Price: decimal.NewFromFloat(2.50), Quantity: 1, Active: true,
	})
	require.NoError(t, err)

	_, err = svc.CreateProduct(ctx, CreateProductInput{
		Name: "Chips", SlotCode: "a1", Price: decimal.NewFromFloat(1.80), Quantity: 1, Active: true,
	})
	require.ErrorIs(t, err, domain.ErrSlotTaken)
}

func TestUpdateProductQuantityPatchEmitsManualAdjustment(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		Name: "Cola", SlotCode: "A1", Price: decimal.NewFromFloat(2.50), Quantity: 4, Active: true,
	})
	require.NoError(t, err)

	qty := 10
	updated, err := svc.UpdateProduct(ctx, product.ID, UpdateProductInput{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 10, updated.Quantity)

	events, err := svc.StockHistory(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.ReasonManualAdjustment, events[1].Reason)
	assert.Equal(t, 6, events[1].Delta)
}

func TestUpdateProductSameQuantityIsANoOpOnTheLedger(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		Name: "Cola", SlotCode: "A1", Price: decimal.NewFromFloat(2.50), Quantity: 4, Active: true,
	})
	require.NoError(t, err)

	qty := 4
	_, err = svc.UpdateProduct(ctx, product.ID, UpdateProductInput{Quantity: &qty})
	require.NoError(t, err)

	events, err := svc.StockHistory(ctx, product.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestAdjustQuantityValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		Name: "Cola", SlotCode: "A1", Price: decimal.NewFromFloat(2.50), Quantity: 4, Active: true,
	})
	require.NoError(t, err)

	_, err = svc.AdjustQuantity(ctx, product.ID, 0, "restock")
	require.ErrorIs(t, err, ErrZeroDelta)

	_, err = svc.AdjustQuantity(ctx, product.ID, 1, "  ")
	require.ErrorIs(t, err, ErrReasonRequired)

	_, err = svc.AdjustQuantity(ctx, product.ID, -5, "shrinkage")
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	got, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Quantity, "a refused adjustment must leave quantity untouched")
}

func TestConcurrentAdjustmentsKeepLedgerConsistent(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		Name: "Cola", SlotCode: "A1", Price: decimal.NewFromFloat(2.50), Quantity: 0, Active: true,
	})
	require.NoError(t, err)

	const workers = 16
	const perWorker = 50

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, err := svc.AdjustQuantity(ctx, product.ID, 1, "restock")
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	got, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, workers*perWorker, got.Quantity)

	replayed, err := svc.ReplayQuantity(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Quantity, replayed, "quantity on hand must equal the replayed ledger")
}

func TestReplayQuantityMatchesQuantityOnHand(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		Name: "Cola", SlotCode: "A1", Price: decimal.NewFromFloat(2.50), Quantity: 7, Active: true,
	})
	require.NoError(t, err)

	_, err = svc.AdjustQuantity(ctx, product.ID, -3, domain.ReasonSale)
	require.NoError(t, err)
	_, err = svc.AdjustQuantity(ctx, product.ID, 3, domain.ReasonSaleRollback)
	require.NoError(t, err)
	_, err = svc.AdjustQuantity(ctx, product.ID, -2, domain.ReasonSale)
	require.NoError(t, err)

	replayed, err := svc.ReplayQuantity(ctx, product.ID)
	require.NoError(t, err)

	got, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Quantity, replayed)
	assert.Equal(t, 5, replayed)
}
