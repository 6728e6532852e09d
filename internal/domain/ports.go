package domain

import "context"

// MessagePublisher публикует сообщение в шину. Доставка at-least-once,
// порядок между независимыми топиками не гарантируется.
type MessagePublisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
}

// ProductCatalog описывает синхронную границу с сервисом каталога товаров.
type ProductCatalog interface {
	// GetByBarcode возвращает товар или ErrProductNotFound.
	GetByBarcode(ctx context.Context, barcode string) (Product, error)
	// AdjustStock применяет дельту к остатку товара (компенсация — положительная дельта).
	AdjustStock(ctx context.Context, barcode string, delta int) error
}

// ReceiptRenderer превращает снимок продажи в байты PDF-чека.
type ReceiptRenderer interface {
	Render(sale Sale) ([]byte, error)
}

// ReportRenderer превращает выборку продаж в байты табличного отчёта.
type ReportRenderer interface {
	Render(sales []Sale) ([]byte, error)
}

// Notifier отправляет уведомления по электронной почте.
type Notifier interface {
	// Send отправляет текстовое письмо.
	Send(to, subject, body string) error
	// SendAttachment отправляет письмо с вложением.
	SendAttachment(to, subject, body, filename string, attachment []byte) error
}
