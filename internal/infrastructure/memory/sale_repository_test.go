package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/pivend/vend/internal/domain/sale"
)

func TestSaleRepositoryAppendOnly(t *testing.T) {
	repo := NewSaleRepository()
	ctx := context.Background()

	sale := domain.NewSuccess("s1", "p1", 1, decimal.NewFromFloat(2.50), "card")
	require.NoError(t, repo.Record(ctx, sale))

	err := repo.Record(ctx, sale)
	require.Error(t, err, "a sale id can only be recorded once")

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, got.Status)
}

func TestSaleRepositoryGetUnknown(t *testing.T) {
	repo := NewSaleRepository()

	_, err := repo.Get(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaleRepositoryListSince(t *testing.T) {
	repo := NewSaleRepository()
	ctx := context.Background()

	old := domain.NewFailed("s1", "p1", 1, decimal.NewFromFloat(2.50), "cash", domain.ReasonInsufficientStock)
	old.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, repo.Record(ctx, old))
	require.NoError(t, repo.Record(ctx, domain.NewSuccess("s2", "p1", 1, decimal.NewFromFloat(2.50), "card")))

	recent, err := repo.ListSince(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "s2", recent[0].ID)

	all, err := repo.ListSince(ctx, time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
