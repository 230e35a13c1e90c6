package sale

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("sale: not found")

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Failure reasons for outcomes decided by the coordinator itself. Payment and
// hardware rejections carry the collaborator's reason verbatim.
const (
	ReasonProductUnavailable = "Product unavailable"
	ReasonInsufficientStock  = "Insufficient stock"
	ReasonInternalError      = "Internal error"
)

// Sale is the immutable record of one transaction attempt, success or failed.
type Sale struct {
	ID            string
	ProductID     string
	Quantity      int
	TotalPrice    decimal.Decimal
	PaymentMethod string
	Status        Status
	FailureReason string
	CreatedAt     time.Time
}

func NewSuccess(id, productID string, quantity int, totalPrice decimal.Decimal, method string) *Sale {
	return &Sale{
		ID:            id,
		ProductID:     productID,
		Quantity:      quantity,
		TotalPrice:    totalPrice,
		PaymentMethod: method,
		Status:        StatusSuccess,
		CreatedAt:     time.Now().UTC(),
	}
}

func NewFailed(id, productID string, quantity int, totalPrice decimal.Decimal, method, reason string) *Sale {
	return &Sale{
		ID:            id,
		ProductID:     productID,
		Quantity:      quantity,
		TotalPrice:    totalPrice,
		PaymentMethod: method,
		Status:        StatusFailed,
		FailureReason: reason,
		CreatedAt:     time.Now().UTC(),
	}
}

func (s *Sale) Clone() *Sale {
	clone := *s
	return &clone
}
