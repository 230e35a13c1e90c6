package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dominventory "github.com/pivend/vend/internal/domain/inventory"
	domsale "github.com/pivend/vend/internal/domain/sale"
	infrabus "github.com/pivend/vend/internal/infrastructure/bus"
	"github.com/pivend/vend/internal/infrastructure/observability/telemetryprovider"
	"github.com/pivend/vend/internal/observability"
)

type countingCounter struct {
	mu     sync.Mutex
	total  float64
	labels []observability.Label
}

func (c *countingCounter) Add(d float64, labels ...observability.Label) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total += d
	c.labels = labels
}

func (c *countingCounter) Bind(labels ...observability.Label) observability.BoundCounter {
	return boundCountingCounter{c: c, labels: labels}
}

func (c *countingCounter) value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

type boundCountingCounter struct {
	c      *countingCounter
	labels []observability.Label
}

func (b boundCountingCounter) Add(d float64) { b.c.Add(d, b.labels...) }

func newTestWorker(threshold int) (*Worker, *infrabus.Bus, *countingCounter, *countingCounter) {
	warnings := &countingCounter{}
	recorded := &countingCounter{}
	tel := telemetryprovider.New(nil, nil, map[observability.MetricKey]observability.Counter{
		observability.MStockLevelWarnings: warnings,
		observability.MSalesRecorded:      recorded,
	}, nil)

	b := infrabus.New(nil)
	return New(b, threshold, tel), b, warnings, recorded
}

func eventually(t *testing.T, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestLowStockWarning(t *testing.T) {
	worker, b, warnings, _ := newTestWorker(2)
	worker.Start()
	b.Start(context.Background())
	defer b.Stop(context.Background())

	require.NoError(t, b.Publish(context.Background(), dominventory.StockChangedEvent{
		ProductID: "p1", SlotCode: "A1", Delta: -1, Remaining: 1, Reason: dominventory.ReasonSale,
	}))
	eventually(t, func() bool { return warnings.value() == 1 })
}

func TestNoWarningAboveThreshold(t *testing.T) {
	worker, b, warnings, recorded := newTestWorker(2)
	worker.Start()
	b.Start(context.Background())
	defer b.Stop(context.Background())

	require.NoError(t, b.Publish(context.Background(), dominventory.StockChangedEvent{
		ProductID: "p1", SlotCode: "A1", Delta: -1, Remaining: 5, Reason: dominventory.ReasonSale,
	}))
	// Restocks never warn, even at low remaining levels.
	require.NoError(t, b.Publish(context.Background(), dominventory.StockChangedEvent{
		ProductID: "p1", SlotCode: "A1", Delta: 4, Remaining: 1, Reason: dominventory.ReasonManualAdjustment,
	}))

	require.NoError(t, b.Publish(context.Background(), domsale.RecordedEvent{
		SaleID: "s1", ProductID: "p1", Status: domsale.StatusSuccess,
	}))
	eventually(t, func() bool { return recorded.value() == 1 })

	assert.Equal(t, float64(0), warnings.value())
}

func TestSaleRecordedCounts(t *testing.T) {
	worker, b, _, recorded := newTestWorker(2)
	worker.Start()
	b.Start(context.Background())
	defer b.Stop(context.Background())

	require.NoError(t, b.Publish(context.Background(), domsale.RecordedEvent{
		SaleID: "s1", ProductID: "p1", Status: domsale.StatusSuccess,
	}))
	require.NoError(t, b.Publish(context.Background(), domsale.RecordedEvent{
		SaleID: "s2", ProductID: "p1", Status: domsale.StatusFailed, Reason: domsale.ReasonInsufficientStock,
	}))
	eventually(t, func() bool { return recorded.value() == 2 })
}
