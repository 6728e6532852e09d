package domain

import (
	"context"
	"time"
)

// BagRepository описывает требования к хранилищу корзин с TTL.
type BagRepository interface {
	// Save сохраняет корзину (upsert) и заново выставляет её TTL.
	Save(ctx context.Context, bag Bag, ttl time.Duration) error
	// Get возвращает корзину по идентификатору или ErrBagNotFound,
	// если её нет или TTL истёк.
	Get(ctx context.Context, id string) (Bag, error)
	// List возвращает страницу корзин (offset/limit) и общее количество.
	List(ctx context.Context, offset, limit int) ([]Bag, int, error)
	// Delete удаляет корзину; отсутствие корзины ошибкой не считается.
	Delete(ctx context.Context, id string) error
}

// CampaignRepository описывает требования к хранилищу кампаний.
type CampaignRepository interface {
	// Create сохраняет новую кампанию.
	Create(ctx context.Context, campaign Campaign) error
	// Get возвращает кампанию по идентификатору или ErrCampaignNotFound.
	Get(ctx context.Context, id string) (Campaign, error)
	// List возвращает все кампании, включая удалённые.
	List(ctx context.Context) ([]Campaign, error)
	// Delete помечает кампанию удалённой (мягкое удаление).
	Delete(ctx context.Context, id string) error
}

// SaleRepository описывает требования к хранилищу продаж.
type SaleRepository interface {
	// Create сохраняет новую продажу вместе с позициями.
	Create(ctx context.Context, sale Sale) error
	// Get возвращает продажу по идентификатору или ErrSaleNotFound.
	Get(ctx context.Context, id string) (Sale, error)
	// List возвращает продажи по фильтру, отсортированные по дате.
	List(ctx context.Context, filter SaleFilter) ([]Sale, error)
	// Cancel атомарно помечает продажу отменённой. Возвращает
	// ErrSaleNotFound для неизвестной продажи и ErrSaleAlreadyCancelled
	// для повторной отмены; из конкурирующих вызовов проходит ровно один.
	Cancel(ctx context.Context, id string) error
}

// ReceiptStatusRepository описывает требования к TTL-хранилищу статусов чеков.
type ReceiptStatusRepository interface {
	// Save сохраняет запись (upsert) и заново выставляет её TTL.
	Save(ctx context.Context, record ReceiptRecord, ttl time.Duration) error
	// Get возвращает запись или ErrReceiptRecordNotFound после истечения TTL.
	Get(ctx context.Context, id string) (ReceiptRecord, error)
}
