package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	dombus "github.com/pivend/vend/internal/domain/bus"
	domain "github.com/pivend/vend/internal/domain/inventory"
	"github.com/pivend/vend/internal/observability"
	"github.com/pivend/vend/internal/observability/logctx"
)

const componentInventoryService = "inventory_service"

var (
	ErrZeroDelta      = errors.New("inventory: adjustment delta must not be zero")
	ErrReasonRequired = errors.New("inventory: adjustment reason is required")
)

// Service is the inventory ledger: every quantity mutation goes through it and
// leaves a StockChangeEvent behind.
type Service struct {
	repo      domain.Repository
	idGen     IDGenerator
	publisher dombus.Publisher
	log       observability.Logger

	// Serializes the read-modify-write window of every ledger mutation per
	// product, so a concurrent adjustment cannot write an absolute quantity
	// computed from a stale read.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewService(repo domain.Repository, idGen IDGenerator, publisher dombus.Publisher, logger observability.Logger) *Service {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		repo:      repo,
		idGen:     idGen,
		publisher: publisher,
		log:       logger.With(observability.F("component", componentInventoryService)),
		locks:     make(map[string]*sync.Mutex),
	}
}

func (s *Service) productLock(productID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	mu, ok := s.locks[productID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[productID] = mu
	}
	return mu
}

type CreateProductInput struct {
	Name     string
	SlotCode string
	Price    decimal.Decimal
	Quantity int
	Active   bool
}

func (s *Service) CreateProduct(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	logger := logctx.FromOr(ctx, s.log)

	product, err := domain.NewProduct(s.idGen.NewID(), input.Name, input.SlotCode, input.Price, input.Quantity, input.Active)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetBySlot(ctx, product.SlotCode); err == nil {
		return nil, domain.ErrSlotTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("inventory: slot lookup: %w", err)
	}

	var event *domain.StockChangeEvent
	if product.Quantity > 0 {
		event = domain.NewStockChangeEvent(s.idGen.NewID(), product.ID, product.Quantity, domain.ReasonInitialStock)
	}

	if err := s.repo.Create(ctx, product, event); err != nil {
		logger.Error("product_create_failed",
			observability.F("slot_code", product.SlotCode),
			observability.F("error", err.Error()),
		)
		return nil, fmt.Errorf("inventory: create: %w", err)
	}

	if event != nil {
		s.publish(ctx, domain.NewStockChangedEvent(product, event.Delta, event.Reason))
	}

	logger.Info("product_created",
		observability.F("product_id", product.ID),
		observability.F("slot_code", product.SlotCode),
		observability.F("quantity", product.Quantity),
	)
	return product, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if id == "" {
		return nil, domain.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, activeOnly bool) ([]*domain.Product, error) {
	return s.repo.List(ctx, activeOnly)
}

type UpdateProductInput struct {
	Name     *string
	Price    *decimal.Decimal
	Active   *bool
	Quantity *int
}

// UpdateProduct patches product attributes. A quantity patch is recorded as a
// manual adjustment for the difference.
func (s *Service) UpdateProduct(ctx context.Context, id string, input UpdateProductInput) (*domain.Product, error) {
	mu := s.productLock(id)
	mu.Lock()
	defer mu.Unlock()

	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, domain.ErrInvalidName
		}
		product.Name = *input.Name
	}
	if input.Price != nil {
		if !input.Price.IsPositive() {
			return nil, domain.ErrInvalidPrice
		}
		product.Price = *input.Price
	}
	if input.Active != nil {
		product.Active = *input.Active
	}

	var event *domain.StockChangeEvent
	if input.Quantity != nil {
		if *input.Quantity < 0 {
			return nil, domain.ErrInvalidQuantity
		}
		if diff := *input.Quantity - product.Quantity; diff != 0 {
			if err := product.Apply(diff); err != nil {
				return nil, err
			}
			event = domain.NewStockChangeEvent(s.idGen.NewID(), product.ID, diff, domain.ReasonManualAdjustment)
		}
	}

	if err := s.repo.Update(ctx, product, event); err != nil {
		return nil, fmt.Errorf("inventory: update: %w", err)
	}

	if event != nil {
		s.publish(ctx, domain.NewStockChangedEvent(product, event.Delta, event.Reason))
	}
	return product, nil
}

// AdjustQuantity applies delta to a product and appends the matching ledger
// event in one atomic unit. The non-negativity re-check lives in
// Product.Apply; for reason "sale" a violation means the coordinator's
// serialization failed and is escalated by the caller.
func (s *Service) AdjustQuantity(ctx context.Context, id string, delta int, reason string) (*domain.Product, error) {
	if delta == 0 {
		return nil, ErrZeroDelta
	}
	if strings.TrimSpace(reason) == "" {
		return nil, ErrReasonRequired
	}

	mu := s.productLock(id)
	mu.Lock()
	defer mu.Unlock()

	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := product.Apply(delta); err != nil {
		return nil, err
	}

	event := domain.NewStockChangeEvent(s.idGen.NewID(), product.ID, delta, reason)
	if err := s.repo.Update(ctx, product, event); err != nil {
		return nil, fmt.Errorf("inventory: adjust: %w", err)
	}

	s.publish(ctx, domain.NewStockChangedEvent(product, delta, reason))
	return product, nil
}

func (s *Service) StockHistory(ctx context.Context, productID string) ([]*domain.StockChangeEvent, error) {
	if _, err := s.repo.Get(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.Events(ctx, productID)
}

// ReplayQuantity sums all stock-change deltas for a product. For a consistent
// ledger the result equals the product's quantity-on-hand.
func (s *Service) ReplayQuantity(ctx context.Context, productID string) (int, error) {
	events, err := s.StockHistory(ctx, productID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, e := range events {
		total += e.Delta
	}
	return total, nil
}

func (s *Service) publish(ctx context.Context, e dombus.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		logctx.FromOr(ctx, s.log).Warn("stock_event_publish_failed",
			observability.F("error", err.Error()),
		)
	}
}
