// Package sale реализует оформление продажи: валидация, расчёт оплаты,
// сохранение и разлёт сообщений по шине.
package sale

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/pos/internal/metrics"
)

// Orchestrator описывает операции жизненного цикла продажи.
type Orchestrator interface {
	// CompleteSale оформляет продажу по корзине и возвращает requestID чека.
	CompleteSale(ctx context.Context, bagID string, amountReceived decimal.Decimal, method domain.PaymentMethod, cashierToken string) (string, error)
	// CancelSale отменяет продажу и публикует компенсирующие изменения остатков.
	CancelSale(ctx context.Context, saleID string) error
	// GenerateReceiptByID запрашивает повторную генерацию чека для существующей продажи.
	GenerateReceiptByID(ctx context.Context, saleID string) (string, error)
	// GetSale возвращает продажу по идентификатору.
	GetSale(ctx context.Context, saleID string) (domain.Sale, error)
	// ListSales возвращает продажи по фильтру.
	ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error)
	// RequestReport ставит в очередь генерацию сводного отчёта с отправкой на почту.
	RequestReport(ctx context.Context, email string, filter domain.SaleFilter) error
}

type orchestrator struct {
	bags      domain.BagRepository
	sales     domain.SaleRepository
	publisher domain.MessagePublisher
	logger    *log.Entry
	metrics   *metrics.SaleMetrics
	now       func() time.Time
}

// NewOrchestrator создаёт рабочий экземпляр оркестратора продаж.
func NewOrchestrator(
	bags domain.BagRepository,
	sales domain.SaleRepository,
	publisher domain.MessagePublisher,
	logger *log.Entry,
) Orchestrator {
	if logger == nil {
		logger = log.New().WithField("component", "sale")
	}
	return &orchestrator{
		bags:      bags,
		sales:     sales,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics.NewSaleMetrics(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// NewOrchestratorWithoutMetrics создаёт оркестратор без метрик (для тестов).
func NewOrchestratorWithoutMetrics(
	bags domain.BagRepository,
	sales domain.SaleRepository,
	publisher domain.MessagePublisher,
	logger *log.Entry,
) Orchestrator {
	if logger == nil {
		logger = log.New().WithField("component", "sale")
	}
	return &orchestrator{
		bags:      bags,
		sales:     sales,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CompleteSale выполняет шаги VALIDATE → PRICE → PERSIST → PUBLISH.
// После сохранения продажи ошибки публикации не откатывают её: шина
// работает по модели at-least-once, потерянное сообщение обслуживается
// повторной генерацией чека.
func (o *orchestrator) CompleteSale(ctx context.Context, bagID string, amountReceived decimal.Decimal, method domain.PaymentMethod, cashierToken string) (string, error) {
	start := o.now()
	defer func() {
		if o.metrics != nil {
			o.metrics.RecordSaleDuration(time.Since(start))
		}
	}()

	requestID, err := o.completeSale(ctx, bagID, amountReceived, method, cashierToken)
	if err != nil && o.metrics != nil {
		o.metrics.RecordSaleFailed()
	}
	return requestID, err
}

func (o *orchestrator) completeSale(ctx context.Context, bagID string, amountReceived decimal.Decimal, method domain.PaymentMethod, cashierToken string) (string, error) {
	if !method.Valid() {
		return "", domain.ErrPaymentMethodInvalid
	}
	cashierName, err := domain.ParseCashierName(cashierToken)
	if err != nil {
		return "", err
	}

	bag, err := o.bags.Get(ctx, bagID)
	if err != nil {
		return "", err
	}
	if bag.IsEmpty() {
		return "", domain.ErrBagIsEmpty
	}

	priceToPay := bag.TotalPrice
	if bag.HasCampaign() {
		priceToPay = bag.DiscountedPrice
	}

	var change decimal.Decimal
	switch method {
	case domain.PaymentMethodCreditCard:
		// Карта списывает ровно сумму к оплате, сдачи не бывает.
		amountReceived = priceToPay
		change = decimal.Zero
	case domain.PaymentMethodCash:
		if amountReceived.LessThan(priceToPay) {
			return "", domain.ErrInsufficientPayment
		}
		change = amountReceived.Sub(priceToPay)
	}

	items := make([]domain.SaleItem, 0, len(bag.Items))
	for _, item := range bag.Items {
		items = append(items, domain.SaleItem{
			Barcode:   item.Barcode,
			Name:      item.Name,
			Quantity:  item.Quantity,
			SalePrice: item.UnitPrice,
		})
	}

	sale := domain.Sale{
		ID:              uuid.NewString(),
		CashierName:     cashierName,
		TotalPrice:      bag.TotalPrice,
		DiscountedPrice: bag.DiscountedPrice,
		CampaignID:      bag.CampaignID,
		CampaignName:    bag.CampaignName,
		DiscountType:    bag.DiscountType,
		DiscountValue:   bag.DiscountValue,
		AmountReceived:  amountReceived,
		Change:          change,
		PaymentMethod:   method,
		SaleDate:        o.now(),
		Items:           items,
	}

	if err := o.sales.Create(ctx, sale); err != nil {
		return "", fmt.Errorf("persist sale: %w", err)
	}

	o.publishStockDeltas(ctx, sale, -1)

	if err := o.bags.Delete(ctx, bagID); err != nil {
		o.logger.WithError(err).WithField("bag_id", bagID).Warn("delete bag after sale failed")
	}

	requestID := o.publishReceiptRequest(ctx, sale)
	o.publishSaleEvent(ctx, sale, requestID)

	if o.metrics != nil {
		amount, _ := sale.PriceToPay().Float64()
		o.metrics.RecordSaleCompleted(amount)
	}
	o.logger.WithFields(log.Fields{
		"sale_id":    sale.ID,
		"request_id": requestID,
		"cashier":    cashierName,
	}).Info("sale completed")

	return requestID, nil
}

func (o *orchestrator) CancelSale(ctx context.Context, saleID string) error {
	sale, err := o.sales.Get(ctx, saleID)
	if err != nil {
		return err
	}
	// Одноразовый переход выполняет хранилище: из конкурирующих отмен
	// проходит ровно одна, остальные получают ErrSaleAlreadyCancelled
	// и до публикации компенсации не доходят.
	if err := o.sales.Cancel(ctx, saleID); err != nil {
		return err
	}

	// Компенсация: возвращаем остатки положительными дельтами.
	o.publishStockDeltas(ctx, sale, 1)

	if o.metrics != nil {
		o.metrics.RecordSaleCancelled()
	}
	o.logger.WithField("sale_id", sale.ID).Info("sale cancelled")

	return nil
}

func (o *orchestrator) GenerateReceiptByID(ctx context.Context, saleID string) (string, error) {
	sale, err := o.sales.Get(ctx, saleID)
	if err != nil {
		return "", err
	}
	return o.publishReceiptRequest(ctx, sale), nil
}

func (o *orchestrator) GetSale(ctx context.Context, saleID string) (domain.Sale, error) {
	return o.sales.Get(ctx, saleID)
}

func (o *orchestrator) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return o.sales.List(ctx, filter)
}

func (o *orchestrator) RequestReport(ctx context.Context, email string, filter domain.SaleFilter) error {
	if err := filter.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(kafka.ReportMessage{Email: email, Criteria: filter})
	if err != nil {
		return fmt.Errorf("marshal report message: %w", err)
	}
	if err := o.publisher.Publish(ctx, kafka.TopicReportRequests, email, payload); err != nil {
		return fmt.Errorf("publish report request: %w", err)
	}
	if o.metrics != nil {
		o.metrics.RecordMessagePublished(kafka.TopicReportRequests)
	}

	return nil
}

// publishStockDeltas шлёт по одному сообщению на позицию продажи.
// sign -1 при продаже, +1 при отмене.
func (o *orchestrator) publishStockDeltas(ctx context.Context, sale domain.Sale, sign int) {
	for _, item := range sale.Items {
		msg := kafka.StockUpdateMessage{
			Barcode:    item.Barcode,
			StockDelta: sign * item.Quantity,
		}
		payload, err := json.Marshal(msg)
		if err != nil {
			o.logger.WithError(err).WithField("barcode", item.Barcode).Error("marshal stock update failed")
			continue
		}
		if err := o.publisher.Publish(ctx, kafka.TopicStockUpdates, item.Barcode, payload); err != nil {
			o.logger.WithError(err).WithFields(log.Fields{
				"sale_id": sale.ID,
				"barcode": item.Barcode,
			}).Error("publish stock update failed")
			continue
		}
		if o.metrics != nil {
			o.metrics.RecordMessagePublished(kafka.TopicStockUpdates)
		}
	}
}

// publishReceiptRequest публикует запрос на генерацию чека и возвращает
// свежий requestId. Корреляционное событие сюда не входит: повторная
// печать чека его не публикует, запись статуса нового requestId заводит
// сам консьюмер чека при обновлении.
func (o *orchestrator) publishReceiptRequest(ctx context.Context, sale domain.Sale) string {
	requestID := uuid.NewString()

	msg := kafka.ReceiptMessage{
		RequestID: requestID,
		Sale:      kafka.NewSaleSnapshot(sale),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		o.logger.WithError(err).WithField("sale_id", sale.ID).Error("marshal receipt message failed")
		return requestID
	}
	if err := o.publisher.Publish(ctx, kafka.TopicReceiptRequests, requestID, payload); err != nil {
		o.logger.WithError(err).WithFields(log.Fields{
			"sale_id":    sale.ID,
			"request_id": requestID,
		}).Error("publish receipt request failed")
	} else if o.metrics != nil {
		o.metrics.RecordMessagePublished(kafka.TopicReceiptRequests)
	}

	return requestID
}

// publishSaleEvent публикует корреляционное событие "<saleId>.<requestId>".
// Событие несёт пару, по которой трекер заводит запись статуса, поэтому
// гонка с консьюмером чека безопасна: статусные переходы монотонны и
// поздний Init терминальный статус не затирает.
func (o *orchestrator) publishSaleEvent(ctx context.Context, sale domain.Sale, requestID string) {
	event := kafka.FormatSaleEvent(sale.ID, requestID)
	if err := o.publisher.Publish(ctx, kafka.TopicSaleEvents, sale.ID, []byte(event)); err != nil {
		o.logger.WithError(err).WithFields(log.Fields{
			"sale_id":    sale.ID,
			"request_id": requestID,
		}).Error("publish sale event failed")
	} else if o.metrics != nil {
		o.metrics.RecordMessagePublished(kafka.TopicSaleEvents)
	}
}

var _ Orchestrator = (*orchestrator)(nil)
