package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

func seedSale(t *testing.T, repo domain.SaleRepository, id string) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), domain.Sale{
		ID:          id,
		CashierName: "alice",
		TotalPrice:  decimal.RequireFromString("6.00"),
		SaleDate:    time.Now().UTC(),
		Items: []domain.SaleItem{
			{Barcode: "111", Name: "milk", Quantity: 2, SalePrice: decimal.RequireFromString("2.50")},
		},
	}))
}

func TestSaleRepository_CancelTransition(t *testing.T) {
	repo := NewSaleRepository()
	ctx := context.Background()
	seedSale(t, repo, "sale-1")

	require.NoError(t, repo.Cancel(ctx, "sale-1"))

	sale, err := repo.Get(ctx, "sale-1")
	require.NoError(t, err)
	assert.True(t, sale.IsCancelled)

	assert.ErrorIs(t, repo.Cancel(ctx, "sale-1"), domain.ErrSaleAlreadyCancelled)
	assert.ErrorIs(t, repo.Cancel(ctx, "missing"), domain.ErrSaleNotFound)
}

func TestSaleRepository_CancelConcurrent(t *testing.T) {
	repo := NewSaleRepository()
	ctx := context.Background()
	seedSale(t, repo, "sale-1")

	const cancellers = 16
	errs := make(chan error, cancellers)
	var wg sync.WaitGroup
	for i := 0; i < cancellers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Cancel(ctx, "sale-1")
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, domain.ErrSaleAlreadyCancelled)
		}
	}
	assert.Equal(t, 1, succeeded)
}
