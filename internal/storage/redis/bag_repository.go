package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

const bagKeyPrefix = "pos:bag:"

type bagRepositoryRedis struct {
	client *redis.Client
}

// NewBagRepository создаёт Redis-реализацию BagRepository.
// TTL корзины обслуживается самим Redis через срок жизни ключа.
func NewBagRepository(store *Store) domain.BagRepository {
	return &bagRepositoryRedis{client: store.Client()}
}

func bagKey(id string) string {
	return bagKeyPrefix + id
}

// Save сериализует корзину и выставляет ключу свежий TTL.
func (r *bagRepositoryRedis) Save(ctx context.Context, bag domain.Bag, ttl time.Duration) error {
	bag.ExpiresAt = time.Now().UTC().Add(ttl)

	payload, err := json.Marshal(bag)
	if err != nil {
		return fmt.Errorf("marshal bag: %w", err)
	}

	if err := r.client.Set(ctx, bagKey(bag.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("set bag: %w", err)
	}
	return nil
}

// Get возвращает корзину; истёкший ключ для Redis неотличим от отсутствующего.
func (r *bagRepositoryRedis) Get(ctx context.Context, id string) (domain.Bag, error) {
	payload, err := r.client.Get(ctx, bagKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Bag{}, domain.ErrBagNotFound
	}
	if err != nil {
		return domain.Bag{}, fmt.Errorf("get bag: %w", err)
	}

	var bag domain.Bag
	if err := json.Unmarshal(payload, &bag); err != nil {
		return domain.Bag{}, fmt.Errorf("unmarshal bag: %w", err)
	}
	return bag, nil
}

// List сканирует ключи корзин и возвращает страницу, отсортированную по времени создания.
func (r *bagRepositoryRedis) List(ctx context.Context, offset, limit int) ([]domain.Bag, int, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, bagKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan bags: %w", err)
	}

	bags := make([]domain.Bag, 0, len(keys))
	for _, key := range keys {
		payload, err := r.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			// Ключ истёк между SCAN и GET.
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("get bag %s: %w", key, err)
		}

		var bag domain.Bag
		if err := json.Unmarshal(payload, &bag); err != nil {
			return nil, 0, fmt.Errorf("unmarshal bag %s: %w", key, err)
		}
		bags = append(bags, bag)
	}

	sort.Slice(bags, func(i, j int) bool {
		if !bags[i].CreatedAt.Equal(bags[j].CreatedAt) {
			return bags[i].CreatedAt.Before(bags[j].CreatedAt)
		}
		return bags[i].ID < bags[j].ID
	})

	total := len(bags)
	if offset >= total {
		return []domain.Bag{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return bags[offset:end], total, nil
}

// Delete удаляет корзину; отсутствие ключа ошибкой не считается.
func (r *bagRepositoryRedis) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, bagKey(id)).Err(); err != nil {
		return fmt.Errorf("delete bag: %w", err)
	}
	return nil
}

var _ domain.BagRepository = (*bagRepositoryRedis)(nil)
