package payment

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticAuthorizer(t *testing.T) {
	auth := NewStaticAuthorizer()
	ctx := context.Background()
	total := decimal.NewFromFloat(5.00)

	t.Run("accepts covered payment", func(t *testing.T) {
		assert.NoError(t, auth.Authorize(ctx, total, decimal.NewFromInt(10), "card"))
		assert.NoError(t, auth.Authorize(ctx, total, total, "CASH"), "method match is case-insensitive")
	})

	t.Run("rejects short payment", func(t *testing.T) {
		err := auth.Authorize(ctx, total, decimal.NewFromFloat(4.99), "card")
		var rejection *RejectionError
		require.ErrorAs(t, err, &rejection)
		assert.Equal(t, "Insufficient funds", rejection.Reason)
	})

	t.Run("rejects unknown method", func(t *testing.T) {
		err := auth.Authorize(ctx, total, decimal.NewFromInt(10), "bitcoin")
		var rejection *RejectionError
		require.ErrorAs(t, err, &rejection)
		assert.Equal(t, "Unsupported payment method: bitcoin", rejection.Reason)
	})
}
