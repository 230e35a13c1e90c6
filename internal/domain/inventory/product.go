package inventory

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("inventory: product not found")
	ErrSlotTaken         = errors.New("inventory: slot code already in use")
	ErrInvalidName       = errors.New("inventory: name is required")
	ErrInvalidSlot       = errors.New("inventory: slot code is required")
	ErrInvalidPrice      = errors.New("inventory: price must be greater than zero")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be zero or greater")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
)

// Product is a sellable slot. Quantity is only mutated through ledger
// operations that also append a StockChangeEvent.
type Product struct {
	ID        string
	Name      string
	SlotCode  string
	Price     decimal.Decimal
	Quantity  int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeSlot maps a slot code to its canonical, case-insensitive form.
func NormalizeSlot(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func NewProduct(id, name, slotCode string, price decimal.Decimal, quantity int, active bool) (*Product, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidName
	}
	slot := NormalizeSlot(slotCode)
	if slot == "" {
		return nil, ErrInvalidSlot
	}
	if !price.IsPositive() {
		return nil, ErrInvalidPrice
	}
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	now := time.Now().UTC()
	return &Product{
		ID:        id,
		Name:      name,
		SlotCode:  slot,
		Price:     price,
		Quantity:  quantity,
		Active:    active,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Apply adjusts quantity-on-hand by delta. A result below zero is refused,
// leaving the product untouched.
func (p *Product) Apply(delta int) error {
	next := p.Quantity + delta
	if next < 0 {
		return ErrInsufficientStock
	}
	p.Quantity = next
	p.touch()
	return nil
}

func (p *Product) Clone() *Product {
	clone := *p
	return &clone
}

func (p *Product) touch() {
	p.UpdatedAt = time.Now().UTC()
}
