package kafka

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

// Topics шины сообщений.
const (
	// TopicStockUpdates — по одному сообщению на позицию продажи (дельта со знаком).
	TopicStockUpdates = "pos.stock.updates"
	// TopicReceiptRequests — запросы на генерацию PDF-чека.
	TopicReceiptRequests = "pos.receipt.requests"
	// TopicSaleEvents — корреляционные события "<saleId>.<requestId>".
	TopicSaleEvents = "pos.sale.events"
	// TopicReportRequests — запросы на генерацию сводного отчёта по продажам.
	TopicReportRequests = "pos.report.requests"
)

// StockUpdateMessage переносит изменение остатка товара.
// Отрицательная дельта — продажа, положительная — компенсация при отмене.
type StockUpdateMessage struct {
	Barcode    string `json:"barcode"`
	StockDelta int    `json:"stockDelta"`
	RetryCount int    `json:"retryCount"`
}

// SaleSnapshot — снимок продажи, переносимый в сообщении чека.
type SaleSnapshot struct {
	ID              string          `json:"id"`
	CashierName     string          `json:"cashierName"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	DiscountedPrice decimal.Decimal `json:"discountedPrice"`
	CampaignID      string          `json:"campaignId,omitempty"`
	CampaignName    string          `json:"campaignName,omitempty"`
	AmountReceived  decimal.Decimal `json:"amountReceived"`
	Change          decimal.Decimal `json:"change"`
	PaymentMethod   string          `json:"paymentMethod"`
	SaleDate        time.Time       `json:"saleDate"`
	Items           []SaleItemSnapshot `json:"items"`
}

// SaleItemSnapshot — позиция продажи в снимке.
type SaleItemSnapshot struct {
	Barcode   string          `json:"barcode"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	SalePrice decimal.Decimal `json:"salePrice"`
}

// ReceiptMessage — запрос на генерацию чека, коррелируемый по RequestID.
type ReceiptMessage struct {
	RequestID  string       `json:"requestId"`
	Sale       SaleSnapshot `json:"sale"`
	RetryCount int          `json:"retryCount"`
}

// ReportMessage — запрос на генерацию сводного отчёта с отправкой на почту.
type ReportMessage struct {
	Email      string            `json:"email"`
	Criteria   domain.SaleFilter `json:"criteria"`
	RetryCount int               `json:"retryCount"`
}

// NewSaleSnapshot строит снимок продажи для сообщения чека.
func NewSaleSnapshot(sale domain.Sale) SaleSnapshot {
	items := make([]SaleItemSnapshot, 0, len(sale.Items))
	for _, item := range sale.Items {
		items = append(items, SaleItemSnapshot{
			Barcode:   item.Barcode,
			Name:      item.Name,
			Quantity:  item.Quantity,
			SalePrice: item.SalePrice,
		})
	}

	return SaleSnapshot{
		ID:              sale.ID,
		CashierName:     sale.CashierName,
		TotalPrice:      sale.TotalPrice,
		DiscountedPrice: sale.DiscountedPrice,
		CampaignID:      sale.CampaignID,
		CampaignName:    sale.CampaignName,
		AmountReceived:  sale.AmountReceived,
		Change:          sale.Change,
		PaymentMethod:   string(sale.PaymentMethod),
		SaleDate:        sale.SaleDate,
		Items:           items,
	}
}

// ToSale восстанавливает доменную продажу из снимка (для рендеринга чека).
func (s SaleSnapshot) ToSale() domain.Sale {
	items := make([]domain.SaleItem, 0, len(s.Items))
	for _, item := range s.Items {
		items = append(items, domain.SaleItem{
			Barcode:   item.Barcode,
			Name:      item.Name,
			Quantity:  item.Quantity,
			SalePrice: item.SalePrice,
		})
	}

	return domain.Sale{
		ID:              s.ID,
		CashierName:     s.CashierName,
		TotalPrice:      s.TotalPrice,
		DiscountedPrice: s.DiscountedPrice,
		CampaignID:      s.CampaignID,
		CampaignName:    s.CampaignName,
		AmountReceived:  s.AmountReceived,
		Change:          s.Change,
		PaymentMethod:   domain.PaymentMethod(s.PaymentMethod),
		SaleDate:        s.SaleDate,
		Items:           items,
	}
}

// FormatSaleEvent кодирует корреляционное событие "<saleId>.<requestId>".
func FormatSaleEvent(saleID, requestID string) string {
	return saleID + "." + requestID
}

// ParseSaleEvent декодирует корреляционное событие.
func ParseSaleEvent(payload string) (saleID, requestID string, err error) {
	parts := strings.SplitN(payload, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed sale event %q", payload)
	}
	return parts[0], parts[1], nil
}
