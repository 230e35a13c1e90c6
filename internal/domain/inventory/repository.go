package inventory

import "context"

// Repository persists products and their stock-change history. Implementations
// must apply a product mutation and its event as one atomic unit: a quantity
// change without its event, or vice versa, must be impossible on any failure
// path.
type Repository interface {
	Create(ctx context.Context, product *Product, event *StockChangeEvent) error
	Get(ctx context.Context, id string) (*Product, error)
	GetBySlot(ctx context.Context, slotCode string) (*Product, error)
	List(ctx context.Context, activeOnly bool) ([]*Product, error)
	Update(ctx context.Context, product *Product, event *StockChangeEvent) error
	Events(ctx context.Context, productID string) ([]*StockChangeEvent, error)
}
