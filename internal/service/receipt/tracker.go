// Package receipt реализует трекер статусов генерации чеков.
//
// Трекер кормят два независимых потока: корреляционные события продажи
// (заводят PENDING-запись) и консьюмер чеков (переводит запись в
// COMPLETED или FAILED). Порядок их прихода не гарантирован, поэтому
// переходы статусов монотонны: терминальный статус обратно в PENDING
// не откатывается, поздний Init лишь продлевает TTL записи.
package receipt

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/messaging/kafka"
)

// Tracker описывает операции над статусами чеков.
type Tracker interface {
	// Init заводит PENDING-запись для пары requestID/saleID.
	Init(ctx context.Context, requestID, saleID string) error
	// Update переводит запись в новый статус с полезной нагрузкой.
	Update(ctx context.Context, requestID, saleID string, status domain.ReceiptStatus, payload []byte) error
	// Get возвращает запись статуса или ErrReceiptRecordNotFound.
	Get(ctx context.Context, requestID string) (domain.ReceiptRecord, error)
	// HandleSaleEvent разбирает корреляционное событие и заводит запись.
	HandleSaleEvent(ctx context.Context, payload []byte) error
}

type tracker struct {
	records domain.ReceiptStatusRepository
	ttl     time.Duration
	logger  *log.Entry
}

// NewTracker создаёт рабочий экземпляр трекера.
func NewTracker(records domain.ReceiptStatusRepository, ttl time.Duration, logger *log.Entry) Tracker {
	if logger == nil {
		logger = log.New().WithField("component", "receipt")
	}
	return &tracker{
		records: records,
		ttl:     ttl,
		logger:  logger,
	}
}

func (t *tracker) Init(ctx context.Context, requestID, saleID string) error {
	existing, err := t.records.Get(ctx, requestID)
	switch {
	case err == nil:
		// Консьюмер чека успел раньше: терминальный статус не затираем,
		// только продлеваем жизнь записи.
		return t.records.Save(ctx, existing, t.ttl)
	case errors.Is(err, domain.ErrReceiptRecordNotFound):
		record := domain.ReceiptRecord{
			ID:     requestID,
			Status: domain.ReceiptStatusPending,
			SaleID: saleID,
		}
		return t.records.Save(ctx, record, t.ttl)
	default:
		return err
	}
}

func (t *tracker) Update(ctx context.Context, requestID, saleID string, status domain.ReceiptStatus, payload []byte) error {
	existing, err := t.records.Get(ctx, requestID)
	if err != nil && !errors.Is(err, domain.ErrReceiptRecordNotFound) {
		return err
	}
	if err == nil {
		// PENDING поверх терминального статуса не пишется.
		if existing.Status.Terminal() && !status.Terminal() {
			return t.records.Save(ctx, existing, t.ttl)
		}
		if saleID == "" {
			saleID = existing.SaleID
		}
	}

	record := domain.ReceiptRecord{
		ID:      requestID,
		Status:  status,
		SaleID:  saleID,
		Receipt: payload,
	}
	if err := t.records.Save(ctx, record, t.ttl); err != nil {
		return err
	}

	t.logger.WithFields(log.Fields{
		"request_id": requestID,
		"sale_id":    saleID,
		"status":     status,
	}).Debug("receipt status updated")

	return nil
}

func (t *tracker) Get(ctx context.Context, requestID string) (domain.ReceiptRecord, error) {
	return t.records.Get(ctx, requestID)
}

// HandleSaleEvent принимает событие "<saleId>.<requestId>" из топика продаж.
// Некорректное событие логируется и пропускается.
func (t *tracker) HandleSaleEvent(ctx context.Context, payload []byte) error {
	saleID, requestID, err := kafka.ParseSaleEvent(string(payload))
	if err != nil {
		t.logger.WithError(err).Warn("malformed sale event skipped")
		return nil
	}
	return t.Init(ctx, requestID, saleID)
}

var _ Tracker = (*tracker)(nil)
