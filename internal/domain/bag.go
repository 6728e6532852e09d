package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BagItem представляет одну позицию корзины.
type BagItem struct {
	// Barcode — штрихкод товара, внешний идентификатор из каталога.
	Barcode string
	// Name — название товара на момент добавления.
	Name string
	// Quantity — количество единиц товара.
	Quantity int
	// UnitPrice — цена за единицу на момент добавления.
	UnitPrice decimal.Decimal
}

// Bag агрегирует состояние корзины до оформления продажи.
type Bag struct {
	ID    string
	Items []BagItem
	// TotalPrice — сумма unitPrice*quantity по всем позициям.
	TotalPrice decimal.Decimal
	// Снимок применённой кампании; пустой CampaignID означает отсутствие скидки.
	CampaignID    string
	CampaignName  string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	// DiscountedPrice заполнена только при применённой кампании.
	DiscountedPrice decimal.Decimal
	// ExpiresAt — момент истечения TTL корзины; обновляется при каждой мутации.
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasCampaign сообщает, применена ли к корзине кампания.
func (b *Bag) HasCampaign() bool {
	return b.CampaignID != ""
}

// IsEmpty сообщает, пуста ли корзина.
func (b *Bag) IsEmpty() bool {
	return len(b.Items) == 0
}

// FindItem возвращает индекс позиции с данным штрихкодом или -1.
func (b *Bag) FindItem(barcode string) int {
	for i, item := range b.Items {
		if item.Barcode == barcode {
			return i
		}
	}
	return -1
}

// ClearCampaign сбрасывает снимок кампании и рассчитанную скидку.
func (b *Bag) ClearCampaign() {
	b.CampaignID = ""
	b.CampaignName = ""
	b.DiscountType = ""
	b.DiscountValue = decimal.Zero
	b.DiscountedPrice = decimal.Zero
}

// ValidateInvariants проверяет базовые инварианты корзины и возвращает список замечаний.
func (b *Bag) ValidateInvariants() []error {
	var errs []error

	calc := decimal.Zero
	for _, item := range b.Items {
		if item.Quantity <= 0 {
			errs = append(errs, ErrItemQuantityInvalid)
		}
		if item.UnitPrice.IsNegative() {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc = calc.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if !calc.Equal(b.TotalPrice) {
		errs = append(errs, ErrTotalMismatch)
	}

	if b.HasCampaign() {
		if b.DiscountedPrice.IsNegative() || b.DiscountedPrice.GreaterThan(b.TotalPrice) {
			errs = append(errs, ErrDiscountOutOfRange)
		}
	}

	return errs
}
