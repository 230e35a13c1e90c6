package memory

import (
	"context"
	"sort"
	"sync"

	domain "github.com/pivend/vend/internal/domain/inventory"
)

// InventoryRepository keeps products and their stock-change history in memory.
// A product mutation and its event are applied under one lock, so partial
// application is not observable.
type InventoryRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
	slots    map[string]string // slot code -> product id
	events   map[string][]*domain.StockChangeEvent
}

func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{
		products: make(map[string]*domain.Product),
		slots:    make(map[string]string),
		events:   make(map[string][]*domain.StockChangeEvent),
	}
}

func (r *InventoryRepository) Create(ctx context.Context, product *domain.Product, event *domain.StockChangeEvent) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.slots[product.SlotCode]; exists {
		return domain.ErrSlotTaken
	}

	r.products[product.ID] = product.Clone()
	r.slots[product.SlotCode] = product.ID
	if event != nil {
		r.events[product.ID] = append(r.events[product.ID], cloneEvent(event))
	}
	return nil
}

func (r *InventoryRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return product.Clone(), nil
}

func (r *InventoryRepository) GetBySlot(ctx context.Context, slotCode string) (*domain.Product, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.slots[domain.NormalizeSlot(slotCode)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.products[id].Clone(), nil
}

func (r *InventoryRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Product, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Product, 0, len(r.products))
	for _, product := range r.products {
		if activeOnly && !product.Active {
			continue
		}
		out = append(out, product.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotCode < out[j].SlotCode })
	return out, nil
}

func (r *InventoryRepository) Update(ctx context.Context, product *domain.Product, event *domain.StockChangeEvent) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.products[product.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if current.SlotCode != product.SlotCode {
		if _, exists := r.slots[product.SlotCode]; exists {
			return domain.ErrSlotTaken
		}
		delete(r.slots, current.SlotCode)
		r.slots[product.SlotCode] = product.ID
	}

	r.products[product.ID] = product.Clone()
	if event != nil {
		r.events[product.ID] = append(r.events[product.ID], cloneEvent(event))
	}
	return nil
}

func (r *InventoryRepository) Events(ctx context.Context, productID string) ([]*domain.StockChangeEvent, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.events[productID]
	out := make([]*domain.StockChangeEvent, 0, len(events))
	for _, e := range events {
		out = append(out, cloneEvent(e))
	}
	return out, nil
}

func cloneEvent(e *domain.StockChangeEvent) *domain.StockChangeEvent {
	if e == nil {
		return nil
	}
	clone := *e
	return &clone
}
