package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType описывает вид скидки кампании.
type DiscountType string

const (
	// DiscountTypePercentage — скидка в процентах от суммы корзины.
	DiscountTypePercentage DiscountType = "PERCENTAGE"
	// DiscountTypeFixedAmount — фиксированная скидка, не больше суммы корзины.
	DiscountTypeFixedAmount DiscountType = "FIXED_AMOUNT"
)

// Valid сообщает, известен ли данный вид скидки.
func (t DiscountType) Valid() bool {
	return t == DiscountTypePercentage || t == DiscountTypeFixedAmount
}

// Campaign представляет ограниченную по времени скидочную кампанию.
type Campaign struct {
	ID            string
	Name          string
	StartDate     time.Time
	EndDate       time.Time
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	// Deleted — мягкое удаление; удалённая кампания никогда не активна.
	Deleted   bool
	CreatedAt time.Time
}

// IsActiveAt сообщает, действует ли кампания в указанный момент.
func (c *Campaign) IsActiveAt(now time.Time) bool {
	if c.Deleted {
		return false
	}
	return !now.Before(c.StartDate) && !now.After(c.EndDate)
}

// ValidateInvariants проверяет корректность параметров кампании.
func (c *Campaign) ValidateInvariants() []error {
	var errs []error

	if c.Name == "" {
		errs = append(errs, ErrCampaignNameRequired)
	}
	if !c.DiscountType.Valid() {
		errs = append(errs, ErrDiscountTypeInvalid)
	}
	if c.DiscountValue.IsNegative() {
		errs = append(errs, ErrDiscountValueInvalid)
	}
	if c.EndDate.Before(c.StartDate) {
		errs = append(errs, ErrCampaignDateRangeInvalid)
	}

	return errs
}
