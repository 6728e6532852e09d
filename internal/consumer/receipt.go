package consumer

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/pos/internal/messaging/retry"
	"github.com/vladislavdragonenkov/pos/internal/service/receipt"
)

// NewReceiptConsumer создаёт консьюмер запросов на генерацию чеков.
// Успешный рендер переводит запись трекера в COMPLETED, исчерпание
// попыток помечает её FAILED и уведомляет дежурный адрес, если он задан.
func NewReceiptConsumer(
	renderer domain.ReceiptRenderer,
	tracker receipt.Tracker,
	notifier domain.Notifier,
	alertEmail string,
	publisher domain.MessagePublisher,
	maxRetries int,
	retryDelay time.Duration,
	logger *log.Entry,
) *retry.Consumer[kafka.ReceiptMessage] {
	if logger == nil {
		logger = log.New().WithField("component", "receipt-consumer")
	}

	return retry.NewConsumer(retry.Config[kafka.ReceiptMessage]{
		Topic:     kafka.TopicReceiptRequests,
		Publisher: publisher,
		Handler: func(ctx context.Context, msg kafka.ReceiptMessage) error {
			payload, err := renderer.Render(msg.Sale.ToSale())
			if err != nil {
				return fmt.Errorf("render receipt: %w", err)
			}
			return tracker.Update(ctx, msg.RequestID, msg.Sale.ID, domain.ReceiptStatusCompleted, payload)
		},
		Attempts:    func(msg kafka.ReceiptMessage) int { return msg.RetryCount },
		WithAttempt: func(msg kafka.ReceiptMessage, attempt int) kafka.ReceiptMessage { msg.RetryCount = attempt; return msg },
		Key:         func(msg kafka.ReceiptMessage) string { return msg.RequestID },
		MaxRetries:  maxRetries,
		RetryDelay:  retryDelay,
		OnTerminal: func(ctx context.Context, msg kafka.ReceiptMessage) {
			if err := tracker.Update(ctx, msg.RequestID, msg.Sale.ID, domain.ReceiptStatusFailed, nil); err != nil {
				logger.WithError(err).WithField("request_id", msg.RequestID).Error("failed to mark receipt as failed")
			}
			if notifier == nil || alertEmail == "" {
				return
			}
			body := fmt.Sprintf("Receipt generation failed for sale %s (request %s).", msg.Sale.ID, msg.RequestID)
			if err := notifier.Send(alertEmail, "Receipt generation failed", body); err != nil {
				logger.WithError(err).Warn("failed to send receipt failure notification")
			}
		},
		Logger: logger,
	})
}
