package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

const receiptKeyPrefix = "pos:receipt:"

type receiptRepositoryRedis struct {
	client *redis.Client
}

// NewReceiptRepository создаёт Redis-реализацию ReceiptStatusRepository.
func NewReceiptRepository(store *Store) domain.ReceiptStatusRepository {
	return &receiptRepositoryRedis{client: store.Client()}
}

func receiptKey(id string) string {
	return receiptKeyPrefix + id
}

// Save сериализует запись и выставляет ключу свежий TTL.
func (r *receiptRepositoryRedis) Save(ctx context.Context, record domain.ReceiptRecord, ttl time.Duration) error {
	now := time.Now().UTC()
	record.ExpiresAt = now.Add(ttl)
	record.UpdatedAt = now

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal receipt record: %w", err)
	}

	if err := r.client.Set(ctx, receiptKey(record.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("set receipt record: %w", err)
	}
	return nil
}

// Get возвращает запись или ErrReceiptRecordNotFound после истечения TTL.
func (r *receiptRepositoryRedis) Get(ctx context.Context, id string) (domain.ReceiptRecord, error) {
	payload, err := r.client.Get(ctx, receiptKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ReceiptRecord{}, domain.ErrReceiptRecordNotFound
	}
	if err != nil {
		return domain.ReceiptRecord{}, fmt.Errorf("get receipt record: %w", err)
	}

	var record domain.ReceiptRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return domain.ReceiptRecord{}, fmt.Errorf("unmarshal receipt record: %w", err)
	}
	return record, nil
}

var _ domain.ReceiptStatusRepository = (*receiptRepositoryRedis)(nil)
