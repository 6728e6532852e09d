package consumer

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/pos/internal/messaging/retry"
)

const reportAttachmentName = "sales_report.xlsx"

// NewReportConsumer создаёт консьюмер запросов на сводный отчёт.
// Выборка продаж рендерится в xlsx и уходит вложением на почту заказчика.
func NewReportConsumer(
	sales domain.SaleRepository,
	renderer domain.ReportRenderer,
	notifier domain.Notifier,
	publisher domain.MessagePublisher,
	maxRetries int,
	retryDelay time.Duration,
	logger *log.Entry,
) *retry.Consumer[kafka.ReportMessage] {
	if logger == nil {
		logger = log.New().WithField("component", "report-consumer")
	}

	return retry.NewConsumer(retry.Config[kafka.ReportMessage]{
		Topic:     kafka.TopicReportRequests,
		Publisher: publisher,
		Handler: func(ctx context.Context, msg kafka.ReportMessage) error {
			selection, err := sales.List(ctx, msg.Criteria)
			if err != nil {
				return fmt.Errorf("list sales: %w", err)
			}
			payload, err := renderer.Render(selection)
			if err != nil {
				return fmt.Errorf("render report: %w", err)
			}
			body := fmt.Sprintf("Sales report for the requested period is attached (%d sales).", len(selection))
			if err := notifier.SendAttachment(msg.Email, "Sales report", body, reportAttachmentName, payload); err != nil {
				return fmt.Errorf("send report: %w", err)
			}
			return nil
		},
		Attempts:    func(msg kafka.ReportMessage) int { return msg.RetryCount },
		WithAttempt: func(msg kafka.ReportMessage, attempt int) kafka.ReportMessage { msg.RetryCount = attempt; return msg },
		Key:         func(msg kafka.ReportMessage) string { return msg.Email },
		MaxRetries:  maxRetries,
		RetryDelay:  retryDelay,
		OnTerminal: func(_ context.Context, msg kafka.ReportMessage) {
			if err := notifier.Send(msg.Email, "Sales report failed", "Report generation failed, please try again later."); err != nil {
				logger.WithError(err).WithField("email", msg.Email).Warn("failed to send report failure notification")
			}
		},
		Logger: logger,
	})
}
