// Package consumer собирает retry-консьюмеры трёх рабочих топиков:
// остатки склада, генерация чеков и сводные отчёты.
package consumer

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/pos/internal/messaging/retry"
)

// NewStockConsumer создаёт консьюмер изменений остатков склада.
// Каждое сообщение применяет дельту одной позиции к каталогу.
func NewStockConsumer(
	catalog domain.ProductCatalog,
	publisher domain.MessagePublisher,
	maxRetries int,
	retryDelay time.Duration,
	logger *log.Entry,
) *retry.Consumer[kafka.StockUpdateMessage] {
	if logger == nil {
		logger = log.New().WithField("component", "stock-consumer")
	}

	return retry.NewConsumer(retry.Config[kafka.StockUpdateMessage]{
		Topic:     kafka.TopicStockUpdates,
		Publisher: publisher,
		Handler: func(ctx context.Context, msg kafka.StockUpdateMessage) error {
			err := catalog.AdjustStock(ctx, msg.Barcode, msg.StockDelta)
			if errors.Is(err, domain.ErrProductNotFound) {
				// Повторять обновление несуществующего товара бессмысленно.
				logger.WithField("barcode", msg.Barcode).Warn("stock update for unknown product dropped")
				return nil
			}
			return err
		},
		Attempts:    func(msg kafka.StockUpdateMessage) int { return msg.RetryCount },
		WithAttempt: func(msg kafka.StockUpdateMessage, attempt int) kafka.StockUpdateMessage { msg.RetryCount = attempt; return msg },
		Key:         func(msg kafka.StockUpdateMessage) string { return msg.Barcode },
		MaxRetries:  maxRetries,
		RetryDelay:  retryDelay,
		OnTerminal: func(_ context.Context, msg kafka.StockUpdateMessage) {
			logger.WithFields(log.Fields{
				"barcode": msg.Barcode,
				"delta":   msg.StockDelta,
			}).Error("stock update lost after exhausting retries")
		},
		Logger: logger,
	})
}
