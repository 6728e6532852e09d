package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod описывает способ оплаты продажи.
type PaymentMethod string

const (
	PaymentMethodCash       PaymentMethod = "CASH"
	PaymentMethodCreditCard PaymentMethod = "CREDIT_CARD"
)

// Valid сообщает, известен ли данный способ оплаты.
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCash || m == PaymentMethodCreditCard
}

// SaleItem представляет одну позицию завершённой продажи.
type SaleItem struct {
	Barcode  string
	Name     string
	Quantity int
	// SalePrice — цена за единицу, зафиксированная на момент продажи.
	SalePrice decimal.Decimal
}

// Sale представляет неизменяемую запись завершённой продажи.
// Единственный допустимый переход состояния — одноразовая отмена (IsCancelled false→true).
type Sale struct {
	ID          string
	CashierName string
	TotalPrice  decimal.Decimal
	// DiscountedPrice заполнена только если была применена кампания.
	DiscountedPrice decimal.Decimal
	CampaignID      string
	CampaignName    string
	DiscountType    DiscountType
	DiscountValue   decimal.Decimal
	AmountReceived  decimal.Decimal
	Change          decimal.Decimal
	PaymentMethod   PaymentMethod
	SaleDate        time.Time
	IsCancelled     bool
	Items           []SaleItem
}

// HasCampaign сообщает, была ли к продаже применена кампания.
func (s *Sale) HasCampaign() bool {
	return s.CampaignID != ""
}

// PriceToPay возвращает сумму к оплате: цена со скидкой при кампании, иначе полная.
func (s *Sale) PriceToPay() decimal.Decimal {
	if s.HasCampaign() {
		return s.DiscountedPrice
	}
	return s.TotalPrice
}

// Cancel выполняет одноразовый переход в отменённое состояние.
func (s *Sale) Cancel() error {
	if s.IsCancelled {
		return ErrSaleAlreadyCancelled
	}
	s.IsCancelled = true
	return nil
}

// ParseCashierName извлекает имя кассира из идентификационного токена
// формата "<prefix>-<name>". Токен без разделителя считается некорректным.
func ParseCashierName(token string) (string, error) {
	parts := strings.Split(token, "-")
	if len(parts) < 2 || parts[1] == "" {
		return "", ErrCashierTokenInvalid
	}
	return parts[1], nil
}

// SaleFilter задаёт критерии выборки продаж для отчётов и листинга.
type SaleFilter struct {
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	CashierName string    `json:"cashierName,omitempty"`
}

// Validate проверяет корректность диапазона дат фильтра.
func (f SaleFilter) Validate() error {
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return ErrDateRangeInvalid
	}
	return nil
}
