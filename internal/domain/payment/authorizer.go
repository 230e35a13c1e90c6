package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RejectionError is a business-level rejection, not a fault. The coordinator
// converts it into a failed sale rather than propagating it.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string { return e.Reason }

// Authorizer decides whether a payment covers a purchase. Pure, no side effects.
type Authorizer interface {
	Authorize(ctx context.Context, totalCost, amountPaid decimal.Decimal, method string) error
}

// StaticAuthorizer accepts any payment that covers the total cost and uses a
// known method. It stands in for a real gateway integration.
type StaticAuthorizer struct {
	methods map[string]struct{}
}

func NewStaticAuthorizer() *StaticAuthorizer {
	return &StaticAuthorizer{
		methods: map[string]struct{}{
			"cash":   {},
			"card":   {},
			"mobile": {},
		},
	}
}

func (a *StaticAuthorizer) Authorize(_ context.Context, totalCost, amountPaid decimal.Decimal, method string) error {
	if amountPaid.LessThan(totalCost) {
		return &RejectionError{Reason: "Insufficient funds"}
	}
	if _, ok := a.methods[strings.ToLower(method)]; !ok {
		return &RejectionError{Reason: fmt.Sprintf("Unsupported payment method: %s", method)}
	}
	return nil
}
