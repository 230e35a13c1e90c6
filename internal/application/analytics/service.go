package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	dominventory "github.com/pivend/vend/internal/domain/inventory"
	domsale "github.com/pivend/vend/internal/domain/sale"
	domtelemetry "github.com/pivend/vend/internal/domain/telemetry"
)

// Service is the read side over the sale ledger, inventory, and telemetry log.
// No transactional complexity lives here.
type Service struct {
	sales    domsale.Repository
	products dominventory.Repository
	readings domtelemetry.Repository
}

func NewService(sales domsale.Repository, products dominventory.Repository, readings domtelemetry.Repository) *Service {
	return &Service{
		sales:    sales,
		products: products,
		readings: readings,
	}
}

type TopProduct struct {
	ProductID string
	Name      string
	Units     int
}

type SalesSummary struct {
	TotalSales    int
	TotalRevenue  decimal.Decimal
	AverageTicket decimal.Decimal
	TopProducts   []TopProduct
}

const topProductLimit = 5

// SalesSummary aggregates successful sales over a trailing window of days.
// The average ticket is rounded to the currency minor unit.
func (s *Service) SalesSummary(ctx context.Context, days int) (*SalesSummary, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)

	sales, err := s.sales.ListSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("analytics: list sales: %w", err)
	}

	summary := &SalesSummary{
		TotalRevenue:  decimal.Zero,
		AverageTicket: decimal.Zero,
	}
	units := make(map[string]int)

	for _, sl := range sales {
		if sl.Status != domsale.StatusSuccess {
			continue
		}
		summary.TotalSales++
		summary.TotalRevenue = summary.TotalRevenue.Add(sl.TotalPrice)
		units[sl.ProductID] += sl.Quantity
	}

	if summary.TotalSales > 0 {
		summary.AverageTicket = summary.TotalRevenue.
			Div(decimal.NewFromInt(int64(summary.TotalSales))).
			Round(2)
	}

	top := make([]TopProduct, 0, len(units))
	for productID, sold := range units {
		entry := TopProduct{ProductID: productID, Units: sold}
		if product, err := s.products.Get(ctx, productID); err == nil {
			entry.Name = product.Name
		}
		top = append(top, entry)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Units != top[j].Units {
			return top[i].Units > top[j].Units
		}
		return top[i].Name < top[j].Name
	})
	if len(top) > topProductLimit {
		top = top[:topProductLimit]
	}
	summary.TopProducts = top

	return summary, nil
}

type TurnoverItem struct {
	ProductID      string
	Name           string
	SlotCode       string
	QuantityOnHand int
	SoldLastPeriod int
	LastUpdated    time.Time
}

type InventoryTurnover struct {
	AsOf     time.Time
	Products []TurnoverItem
}

// InventoryTurnover reports on-hand versus sold-in-window for every active
// product.
func (s *Service) InventoryTurnover(ctx context.Context, days int) (*InventoryTurnover, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)

	sales, err := s.sales.ListSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("analytics: list sales: %w", err)
	}
	sold := make(map[string]int)
	for _, sl := range sales {
		if sl.Status != domsale.StatusSuccess {
			continue
		}
		sold[sl.ProductID] += sl.Quantity
	}

	products, err := s.products.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("analytics: list products: %w", err)
	}

	result := &InventoryTurnover{
		AsOf:     time.Now().UTC(),
		Products: make([]TurnoverItem, 0, len(products)),
	}
	for _, p := range products {
		result.Products = append(result.Products, TurnoverItem{
			ProductID:      p.ID,
			Name:           p.Name,
			SlotCode:       p.SlotCode,
			QuantityOnHand: p.Quantity,
			SoldLastPeriod: sold[p.ID],
			LastUpdated:    p.UpdatedAt,
		})
	}
	return result, nil
}

// TelemetryTrend returns chronological readings for a trailing window of
// hours, assuming roughly two captures per hour.
func (s *Service) TelemetryTrend(ctx context.Context, hours int) ([]*domtelemetry.Reading, error) {
	if hours <= 0 {
		hours = 24
	}
	limit := hours * 2
	if limit < 1 {
		limit = 1
	}
	return s.readings.Latest(ctx, limit)
}
