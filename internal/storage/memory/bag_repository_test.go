package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

func testBag(id string) domain.Bag {
	return domain.Bag{
		ID: id,
		Items: []domain.BagItem{
			{Barcode: "123", Name: "milk", Quantity: 1, UnitPrice: decimal.RequireFromString("2.50")},
		},
		TotalPrice: decimal.RequireFromString("2.50"),
		CreatedAt:  time.Now().UTC(),
	}
}

func TestBagRepository_SaveAndGet(t *testing.T) {
	repo := NewBagRepository()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testBag("bag-1"), time.Minute))

	got, err := repo.Get(ctx, "bag-1")
	require.NoError(t, err)
	assert.Equal(t, "bag-1", got.ID)
	assert.Len(t, got.Items, 1)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrBagNotFound)
}

func TestBagRepository_GetAfterTTLExpiry(t *testing.T) {
	repo := NewBagRepository().(*bagRepositoryInMemory)
	ctx := context.Background()

	current := time.Now().UTC()
	repo.now = func() time.Time { return current }

	require.NoError(t, repo.Save(ctx, testBag("bag-1"), 30*time.Minute))

	// До истечения TTL корзина доступна.
	_, err := repo.Get(ctx, "bag-1")
	require.NoError(t, err)

	current = current.Add(30*time.Minute + time.Second)
	_, err = repo.Get(ctx, "bag-1")
	assert.ErrorIs(t, err, domain.ErrBagNotFound)
}

func TestBagRepository_SaveRefreshesTTL(t *testing.T) {
	repo := NewBagRepository().(*bagRepositoryInMemory)
	ctx := context.Background()

	current := time.Now().UTC()
	repo.now = func() time.Time { return current }

	require.NoError(t, repo.Save(ctx, testBag("bag-1"), time.Minute))

	current = current.Add(50 * time.Second)
	require.NoError(t, repo.Save(ctx, testBag("bag-1"), time.Minute))

	// Без обновления TTL корзина была бы мертва через 60 секунд от первого Save.
	current = current.Add(30 * time.Second)
	_, err := repo.Get(ctx, "bag-1")
	assert.NoError(t, err)
}

func TestBagRepository_ListPagination(t *testing.T) {
	repo := NewBagRepository()
	ctx := context.Background()

	for _, id := range []string{"bag-1", "bag-2", "bag-3"} {
		require.NoError(t, repo.Save(ctx, testBag(id), time.Minute))
	}

	page, total, err := repo.List(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 2)

	page, total, err = repo.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 1)

	page, total, err = repo.List(ctx, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Empty(t, page)
}

func TestBagRepository_DeleteExpired(t *testing.T) {
	repo := NewBagRepository().(*bagRepositoryInMemory)
	ctx := context.Background()

	current := time.Now().UTC()
	repo.now = func() time.Time { return current }

	require.NoError(t, repo.Save(ctx, testBag("old"), time.Minute))
	current = current.Add(2 * time.Minute)
	require.NoError(t, repo.Save(ctx, testBag("fresh"), time.Minute))

	removed, err := repo.DeleteExpired(current, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = repo.Get(ctx, "fresh")
	assert.NoError(t, err)
}

func TestBagRepository_SaveStoresCopy(t *testing.T) {
	repo := NewBagRepository()
	ctx := context.Background()

	bag := testBag("bag-1")
	require.NoError(t, repo.Save(ctx, bag, time.Minute))

	// Мутация исходного слайса не должна протекать в хранилище.
	bag.Items[0].Quantity = 99

	got, err := repo.Get(ctx, "bag-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Items[0].Quantity)
}
