package monitor

import (
	"context"

	dombus "github.com/pivend/vend/internal/domain/bus"
	dominventory "github.com/pivend/vend/internal/domain/inventory"
	domsale "github.com/pivend/vend/internal/domain/sale"
	"github.com/pivend/vend/internal/observability"
	"github.com/pivend/vend/internal/observability/logctx"
)

const componentMonitor = "stock_monitor"

// Worker watches ledger and sale events to surface operational signals:
// low-stock warnings and sale outcome counters.
type Worker struct {
	subscriber        dombus.Subscriber
	lowStockThreshold int
	log               observability.Logger

	stockWarnings observability.Counter // stock_level_warnings_total{slot_code}
	salesRecorded observability.Counter // sales_recorded_total{status}
}

func New(subscriber dombus.Subscriber, lowStockThreshold int, tel observability.Observability) *Worker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Worker{
		subscriber:        subscriber,
		lowStockThreshold: lowStockThreshold,
		log:               tel.Logger().With(observability.F("component", componentMonitor)),
		stockWarnings:     tel.Metrics().Counter(observability.MStockLevelWarnings),
		salesRecorded:     tel.Metrics().Counter(observability.MSalesRecorded),
	}
}

func (w *Worker) Start() {
	w.subscriber.Subscribe(dominventory.StockChangedEvent{}.EventName(), w.handleStockChanged)
	w.subscriber.Subscribe(domsale.RecordedEvent{}.EventName(), w.handleSaleRecorded)
}

func (w *Worker) handleStockChanged(ctx context.Context, e dombus.Event) error {
	evt, ok := e.(dominventory.StockChangedEvent)
	if !ok {
		return nil
	}

	if evt.Delta < 0 && evt.Remaining <= w.lowStockThreshold {
		logctx.FromOr(ctx, w.log).Warn("stock_low",
			observability.F("product_id", evt.ProductID),
			observability.F("slot_code", evt.SlotCode),
			observability.F("remaining", evt.Remaining),
		)
		w.stockWarnings.Add(1, observability.L("slot_code", evt.SlotCode))
	}
	return nil
}

func (w *Worker) handleSaleRecorded(ctx context.Context, e dombus.Event) error {
	evt, ok := e.(domsale.RecordedEvent)
	if !ok {
		return nil
	}

	w.salesRecorded.Add(1, observability.L("status", string(evt.Status)))
	logctx.FromOr(ctx, w.log).Info("sale_recorded",
		observability.F("sale_id", evt.SaleID),
		observability.F("product_id", evt.ProductID),
		observability.F("status", string(evt.Status)),
		observability.F("reason", evt.Reason),
	)
	return nil
}
