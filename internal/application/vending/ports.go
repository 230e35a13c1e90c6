package vending

import (
	"context"

	"github.com/pivend/vend/internal/domain/inventory"
)

// IDGenerator produces sale identities.
type IDGenerator interface {
	NewID() string
}

// Ledger is the slice of the inventory ledger the coordinator depends on.
type Ledger interface {
	GetProduct(ctx context.Context, id string) (*inventory.Product, error)
	AdjustQuantity(ctx context.Context, id string, delta int, reason string) (*inventory.Product, error)
}
