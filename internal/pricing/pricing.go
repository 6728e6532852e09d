// Package pricing содержит чистые функции расчёта суммы корзины и скидок.
// Режимы округления выбраны так, чтобы скидка никогда не занижалась
// из-за округления вверх: фактор процента округляется half-down до пяти
// знаков, сумма скидки усекается вниз до двух знаков.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Total возвращает сумму unitPrice*quantity по всем позициям.
func Total(items []domain.BagItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// ApplyDiscount рассчитывает цену со скидкой для данной суммы.
// Результат всегда в диапазоне [0, totalPrice].
func ApplyDiscount(totalPrice decimal.Decimal, discountType domain.DiscountType, discountValue decimal.Decimal) decimal.Decimal {
	var discountAmount decimal.Decimal

	switch discountType {
	case domain.DiscountTypePercentage:
		factor := roundHalfDown(discountValue.Div(hundred), 5)
		discountAmount = totalPrice.Mul(factor).RoundDown(2)
	case domain.DiscountTypeFixedAmount:
		discountAmount = decimal.Min(discountValue, totalPrice)
	default:
		return totalPrice
	}

	discounted := totalPrice.Sub(discountAmount)
	if discounted.IsNegative() {
		return decimal.Zero
	}
	return discounted
}

// roundHalfDown округляет неотрицательное значение до places знаков,
// разрешая ничью (ровно половина младшего разряда) вниз.
func roundHalfDown(d decimal.Decimal, places int32) decimal.Decimal {
	shifted := d.Shift(places)
	floor := shifted.Floor()
	frac := shifted.Sub(floor)
	if frac.GreaterThan(decimal.New(5, -1)) {
		floor = floor.Add(decimal.New(1, 0))
	}
	return floor.Shift(-places)
}
