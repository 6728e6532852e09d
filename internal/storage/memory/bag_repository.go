package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

// bagRepositoryInMemory — in-memory реализация BagRepository с ленивой
// проверкой TTL на чтении; фоновая зачистка выполняется cleanup-воркером.
type bagRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Bag
	now   func() time.Time
}

// NewBagRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewBagRepository() domain.BagRepository {
	return &bagRepositoryInMemory{
		items: make(map[string]domain.Bag),
		now:   time.Now,
	}
}

// Save сохраняет копию корзины и заново выставляет её TTL.
func (r *bagRepositoryInMemory) Save(_ context.Context, bag domain.Bag, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bag.ExpiresAt = r.now().Add(ttl)
	r.items[bag.ID] = cloneBag(bag)
	return nil
}

// Get возвращает корзину или ErrBagNotFound, если её нет или TTL истёк.
func (r *bagRepositoryInMemory) Get(_ context.Context, id string) (domain.Bag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bag, ok := r.items[id]
	if !ok || !bag.ExpiresAt.After(r.now()) {
		return domain.Bag{}, domain.ErrBagNotFound
	}
	return cloneBag(bag), nil
}

// List возвращает страницу живых корзин и их общее количество.
func (r *bagRepositoryInMemory) List(_ context.Context, offset, limit int) ([]domain.Bag, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.now()
	alive := make([]domain.Bag, 0, len(r.items))
	for _, bag := range r.items {
		if bag.ExpiresAt.After(now) {
			alive = append(alive, cloneBag(bag))
		}
	}

	sort.Slice(alive, func(i, j int) bool {
		if !alive[i].CreatedAt.Equal(alive[j].CreatedAt) {
			return alive[i].CreatedAt.Before(alive[j].CreatedAt)
		}
		return alive[i].ID < alive[j].ID
	})

	total := len(alive)
	if offset >= total {
		return []domain.Bag{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return alive[offset:end], total, nil
}

// Delete удаляет корзину; отсутствие записи ошибкой не считается.
func (r *bagRepositoryInMemory) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, id)
	return nil
}

// DeleteExpired удаляет корзины с истёкшим TTL, не больше limit за вызов.
func (r *bagRepositoryInMemory) DeleteExpired(before time.Time, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, bag := range r.items {
		if bag.ExpiresAt.After(before) {
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

func cloneBag(src domain.Bag) domain.Bag {
	dst := src
	dst.Items = append([]domain.BagItem(nil), src.Items...)
	return dst
}

var _ domain.BagRepository = (*bagRepositoryInMemory)(nil)
