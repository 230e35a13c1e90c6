package inventory

import "time"

// Well-known stock change reasons. Admin adjustments may carry free-text
// reasons beyond this set.
const (
	ReasonInitialStock     = "initial_stock"
	ReasonManualAdjustment = "manual_adjustment"
	ReasonSale             = "sale"
	ReasonSaleRollback     = "sale_rollback"
)

// StockChangeEvent is an immutable ledger entry. For any product the sum of
// deltas, starting from creation, equals its current quantity-on-hand.
type StockChangeEvent struct {
	ID         string
	ProductID  string
	Delta      int
	Reason     string
	OccurredAt time.Time
}

func NewStockChangeEvent(id, productID string, delta int, reason string) *StockChangeEvent {
	return &StockChangeEvent{
		ID:         id,
		ProductID:  productID,
		Delta:      delta,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}

// StockChangedEvent is the domain event published after a ledger mutation.
type StockChangedEvent struct {
	ProductID  string
	SlotCode   string
	Delta      int
	Remaining  int
	Reason     string
	OccurredAt time.Time
}

func (StockChangedEvent) EventName() string { return "inventory.stock_changed" }

func NewStockChangedEvent(p *Product, delta int, reason string) StockChangedEvent {
	return StockChangedEvent{
		ProductID:  p.ID,
		SlotCode:   p.SlotCode,
		Delta:      delta,
		Remaining:  p.Quantity,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}
