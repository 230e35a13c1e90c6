package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/pivend/vend/internal/domain/sale"
)

// SaleRepository is an append-only in-memory sale ledger.
type SaleRepository struct {
	mu    sync.RWMutex
	byID  map[string]*domain.Sale
	sales []*domain.Sale
}

func NewSaleRepository() *SaleRepository {
	return &SaleRepository{
		byID: make(map[string]*domain.Sale),
	}
}

func (r *SaleRepository) Record(ctx context.Context, s *domain.Sale) error {
	_ = ctx
	if s == nil || s.ID == "" {
		return fmt.Errorf("sale repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[s.ID]; exists {
		return fmt.Errorf("sale repository: duplicate id %s", s.ID)
	}

	clone := s.Clone()
	r.byID[clone.ID] = clone
	r.sales = append(r.sales, clone)
	return nil
}

func (r *SaleRepository) Get(ctx context.Context, id string) (*domain.Sale, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.Clone(), nil
}

func (r *SaleRepository) ListSince(ctx context.Context, since time.Time) ([]*domain.Sale, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Sale, 0, len(r.sales))
	for _, s := range r.sales {
		if s.CreatedAt.Before(since) {
			continue
		}
		out = append(out, s.Clone())
	}
	return out, nil
}
