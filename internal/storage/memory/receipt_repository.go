package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

// receiptRepositoryInMemory — in-memory реализация ReceiptStatusRepository
// с ленивой проверкой TTL на чтении.
type receiptRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.ReceiptRecord
	now   func() time.Time
}

// NewReceiptRepository возвращает in-memory реализацию ReceiptStatusRepository.
func NewReceiptRepository() domain.ReceiptStatusRepository {
	return &receiptRepositoryInMemory{
		items: make(map[string]domain.ReceiptRecord),
		now:   time.Now,
	}
}

// Save сохраняет копию записи и заново выставляет её TTL.
func (r *receiptRepositoryInMemory) Save(_ context.Context, record domain.ReceiptRecord, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	record.ExpiresAt = now.Add(ttl)
	record.UpdatedAt = now
	r.items[record.ID] = cloneReceiptRecord(record)
	return nil
}

// Get возвращает запись или ErrReceiptRecordNotFound после истечения TTL.
func (r *receiptRepositoryInMemory) Get(_ context.Context, id string) (domain.ReceiptRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.items[id]
	if !ok || !record.ExpiresAt.After(r.now()) {
		return domain.ReceiptRecord{}, domain.ErrReceiptRecordNotFound
	}
	return cloneReceiptRecord(record), nil
}

// DeleteExpired удаляет записи с истёкшим TTL, не больше limit за вызов.
func (r *receiptRepositoryInMemory) DeleteExpired(before time.Time, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, record := range r.items {
		if record.ExpiresAt.After(before) {
			continue
		}
		delete(r.items, id)
		removed++
		if limit > 0 && removed >= limit {
			break
		}
	}
	return removed, nil
}

func cloneReceiptRecord(src domain.ReceiptRecord) domain.ReceiptRecord {
	dst := src
	dst.Receipt = append([]byte(nil), src.Receipt...)
	return dst
}

var _ domain.ReceiptStatusRepository = (*receiptRepositoryInMemory)(nil)
