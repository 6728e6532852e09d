package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

type saleRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Sale
}

// NewSaleRepository возвращает in-memory реализацию SaleRepository.
func NewSaleRepository() domain.SaleRepository {
	return &saleRepositoryInMemory{
		items: make(map[string]domain.Sale),
	}
}

// Create сохраняет новую продажу вместе с позициями.
func (r *saleRepositoryInMemory) Create(_ context.Context, sale domain.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[sale.ID] = cloneSale(sale)
	return nil
}

// Get возвращает продажу или ErrSaleNotFound.
func (r *saleRepositoryInMemory) Get(_ context.Context, id string) (domain.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sale, ok := r.items[id]
	if !ok {
		return domain.Sale{}, domain.ErrSaleNotFound
	}
	return cloneSale(sale), nil
}

// List возвращает продажи по фильтру, отсортированные по дате продажи.
func (r *saleRepositoryInMemory) List(_ context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Sale, 0, len(r.items))
	for _, sale := range r.items {
		if !filter.From.IsZero() && sale.SaleDate.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && sale.SaleDate.After(filter.To) {
			continue
		}
		if filter.CashierName != "" && sale.CashierName != filter.CashierName {
			continue
		}
		result = append(result, cloneSale(sale))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].SaleDate.Equal(result[j].SaleDate) {
			return result[i].SaleDate.Before(result[j].SaleDate)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Cancel помечает продажу отменённой. Проверка и запись выполняются под
// одной блокировкой, поэтому из конкурирующих отмен проходит ровно одна.
func (r *saleRepositoryInMemory) Cancel(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sale, ok := r.items[id]
	if !ok {
		return domain.ErrSaleNotFound
	}
	if err := sale.Cancel(); err != nil {
		return err
	}
	r.items[id] = sale
	return nil
}

func cloneSale(src domain.Sale) domain.Sale {
	dst := src
	dst.Items = append([]domain.SaleItem(nil), src.Items...)
	return dst
}

var _ domain.SaleRepository = (*saleRepositoryInMemory)(nil)
