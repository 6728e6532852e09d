package bag

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/storage/memory"
)

type catalogStub struct {
	products map[string]domain.Product
}

func (c *catalogStub) GetByBarcode(_ context.Context, barcode string) (domain.Product, error) {
	product, ok := c.products[barcode]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

func (c *catalogStub) AdjustStock(_ context.Context, _ string, _ int) error {
	return nil
}

func newFixture() (Service, *catalogStub, domain.CampaignRepository) {
	catalog := &catalogStub{products: map[string]domain.Product{
		"123": {Barcode: "123", Name: "milk", Price: decimal.RequireFromString("2.50"), Stock: 10},
		"456": {Barcode: "456", Name: "bread", Price: decimal.RequireFromString("1.25"), Stock: 3},
		"789": {Barcode: "789", Name: "ghost", Price: decimal.RequireFromString("9.99"), Stock: 5, Deleted: true},
	}}
	campaigns := memory.NewCampaignRepository()
	svc := NewService(memory.NewBagRepository(), campaigns, catalog, 30*time.Minute, nil)
	return svc, catalog, campaigns
}

func activeCampaign(id string, discountType domain.DiscountType, value string) domain.Campaign {
	now := time.Now().UTC()
	return domain.Campaign{
		ID:            id,
		Name:          "test campaign",
		StartDate:     now.Add(-time.Hour),
		EndDate:       now.Add(time.Hour),
		DiscountType:  discountType,
		DiscountValue: decimal.RequireFromString(value),
		CreatedAt:     now,
	}
}

func TestAddItem_CreatesBagOnEmptyID(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	bag, err := svc.AddItem(ctx, "", "123", 2)
	require.NoError(t, err)
	assert.NotEmpty(t, bag.ID)
	require.Len(t, bag.Items, 1)
	assert.Equal(t, 2, bag.Items[0].Quantity)
	assert.True(t, bag.TotalPrice.Equal(decimal.RequireFromString("5.00")), bag.TotalPrice.String())
}

func TestAddItem_MergesExistingLine(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	bag, err := svc.AddItem(ctx, "", "123", 2)
	require.NoError(t, err)

	bag, err = svc.AddItem(ctx, bag.ID, "123", 3)
	require.NoError(t, err)
	require.Len(t, bag.Items, 1)
	assert.Equal(t, 5, bag.Items[0].Quantity)
	assert.True(t, bag.TotalPrice.Equal(decimal.RequireFromString("12.50")))
}

func TestAddItem_RejectsOverStock(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	bag, err := svc.AddItem(ctx, "", "456", 2)
	require.NoError(t, err)

	// В корзине уже 2 из 3 на складе, ещё 2 не влезают.
	_, err = svc.AddItem(ctx, bag.ID, "456", 2)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestAddItem_Validation(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "", "", 1)
	assert.ErrorIs(t, err, domain.ErrBarcodeRequired)

	_, err = svc.AddItem(ctx, "", "123", 0)
	assert.ErrorIs(t, err, domain.ErrItemQuantityInvalid)

	_, err = svc.AddItem(ctx, "", "missing", 1)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	// Удалённый из каталога товар неотличим от отсутствующего.
	_, err = svc.AddItem(ctx, "", "789", 1)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestRemoveItem_DecrementsAndRemoves(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	bag, err := svc.AddItem(ctx, "", "123", 5)
	require.NoError(t, err)

	bag, err = svc.RemoveItem(ctx, bag.ID, "123", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, bag.Items[0].Quantity)
	assert.True(t, bag.TotalPrice.Equal(decimal.RequireFromString("7.50")))

	bag, err = svc.RemoveItem(ctx, bag.ID, "123", 3)
	require.NoError(t, err)
	assert.Empty(t, bag.Items)
	assert.True(t, bag.TotalPrice.IsZero())
}

func TestRemoveItem_Errors(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	bag, err := svc.AddItem(ctx, "", "123", 2)
	require.NoError(t, err)

	_, err = svc.RemoveItem(ctx, bag.ID, "456", 1)
	assert.ErrorIs(t, err, domain.ErrBagItemNotFound)

	_, err = svc.RemoveItem(ctx, bag.ID, "123", 3)
	assert.ErrorIs(t, err, domain.ErrQuantityExceedsHeld)

	_, err = svc.RemoveItem(ctx, "missing", "123", 1)
	assert.ErrorIs(t, err, domain.ErrBagNotFound)
}

func TestApplyCampaign_RecalculatesDiscount(t *testing.T) {
	svc, _, campaigns := newFixture()
	ctx := context.Background()

	require.NoError(t, campaigns.Create(ctx, activeCampaign("c-1", domain.DiscountTypePercentage, "10")))

	bag, err := svc.AddItem(ctx, "", "123", 4) // 10.00
	require.NoError(t, err)

	bag, err = svc.ApplyCampaign(ctx, bag.ID, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "c-1", bag.CampaignID)
	assert.True(t, bag.DiscountedPrice.Equal(decimal.RequireFromString("9.00")), bag.DiscountedPrice.String())

	// Скидка пересчитывается после изменения состава корзины.
	bag, err = svc.AddItem(ctx, bag.ID, "123", 4) // 20.00
	require.NoError(t, err)
	assert.True(t, bag.DiscountedPrice.Equal(decimal.RequireFromString("18.00")), bag.DiscountedPrice.String())
}

func TestApplyCampaign_InactiveAndMissing(t *testing.T) {
	svc, _, campaigns := newFixture()
	ctx := context.Background()

	expired := activeCampaign("c-old", domain.DiscountTypePercentage, "10")
	expired.StartDate = time.Now().UTC().Add(-48 * time.Hour)
	expired.EndDate = time.Now().UTC().Add(-24 * time.Hour)
	require.NoError(t, campaigns.Create(ctx, expired))

	bag, err := svc.AddItem(ctx, "", "123", 1)
	require.NoError(t, err)

	_, err = svc.ApplyCampaign(ctx, bag.ID, "c-old")
	assert.ErrorIs(t, err, domain.ErrCampaignInactive)

	_, err = svc.ApplyCampaign(ctx, bag.ID, "missing")
	assert.ErrorIs(t, err, domain.ErrCampaignNotFound)
}

func TestApplyCampaign_SnapshotSurvivesCampaignDeletion(t *testing.T) {
	svc, _, campaigns := newFixture()
	ctx := context.Background()

	require.NoError(t, campaigns.Create(ctx, activeCampaign("c-1", domain.DiscountTypeFixedAmount, "3")))

	bag, err := svc.AddItem(ctx, "", "123", 4) // 10.00
	require.NoError(t, err)
	bag, err = svc.ApplyCampaign(ctx, bag.ID, "c-1")
	require.NoError(t, err)

	require.NoError(t, campaigns.Delete(ctx, "c-1"))

	// Удаление кампании не трогает уже снятый в корзину снимок.
	bag, err = svc.Get(ctx, bag.ID)
	require.NoError(t, err)
	assert.Equal(t, "c-1", bag.CampaignID)
	assert.True(t, bag.DiscountedPrice.Equal(decimal.RequireFromString("7.00")))
}

func TestRemoveCampaign(t *testing.T) {
	svc, _, campaigns := newFixture()
	ctx := context.Background()

	require.NoError(t, campaigns.Create(ctx, activeCampaign("c-1", domain.DiscountTypePercentage, "50")))

	bag, err := svc.AddItem(ctx, "", "123", 2)
	require.NoError(t, err)

	_, err = svc.RemoveCampaign(ctx, bag.ID)
	assert.ErrorIs(t, err, domain.ErrCampaignNotAttached)

	bag, err = svc.ApplyCampaign(ctx, bag.ID, "c-1")
	require.NoError(t, err)

	bag, err = svc.RemoveCampaign(ctx, bag.ID)
	require.NoError(t, err)
	assert.False(t, bag.HasCampaign())
	assert.True(t, bag.DiscountedPrice.IsZero())
}

func TestClear(t *testing.T) {
	svc, _, campaigns := newFixture()
	ctx := context.Background()

	require.NoError(t, campaigns.Create(ctx, activeCampaign("c-1", domain.DiscountTypePercentage, "10")))

	bag, err := svc.AddItem(ctx, "", "123", 2)
	require.NoError(t, err)
	bag, err = svc.ApplyCampaign(ctx, bag.ID, "c-1")
	require.NoError(t, err)

	bag, err = svc.Clear(ctx, bag.ID)
	require.NoError(t, err)
	assert.True(t, bag.IsEmpty())
	assert.False(t, bag.HasCampaign())
	assert.True(t, bag.TotalPrice.IsZero())
}

func TestList_Pagination(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.AddItem(ctx, "", "123", 1)
		require.NoError(t, err)
	}

	page, total, err := svc.List(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 2)

	page, total, err = svc.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 1)

	_, _, err = svc.List(ctx, 0, 2)
	assert.ErrorIs(t, err, domain.ErrPaginationInvalid)

	_, _, err = svc.List(ctx, 1, 0)
	assert.ErrorIs(t, err, domain.ErrPaginationInvalid)
}
