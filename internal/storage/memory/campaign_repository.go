package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

type campaignRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Campaign
}

// NewCampaignRepository возвращает in-memory реализацию CampaignRepository.
func NewCampaignRepository() domain.CampaignRepository {
	return &campaignRepositoryInMemory{
		items: make(map[string]domain.Campaign),
	}
}

// Create сохраняет новую кампанию.
func (r *campaignRepositoryInMemory) Create(_ context.Context, campaign domain.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[campaign.ID] = campaign
	return nil
}

// Get возвращает кампанию или ErrCampaignNotFound.
func (r *campaignRepositoryInMemory) Get(_ context.Context, id string) (domain.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	campaign, ok := r.items[id]
	if !ok {
		return domain.Campaign{}, domain.ErrCampaignNotFound
	}
	return campaign, nil
}

// List возвращает все кампании, включая помеченные удалёнными.
func (r *campaignRepositoryInMemory) List(_ context.Context) ([]domain.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Campaign, 0, len(r.items))
	for _, campaign := range r.items {
		result = append(result, campaign)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Delete помечает кампанию удалённой.
func (r *campaignRepositoryInMemory) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	campaign, ok := r.items[id]
	if !ok {
		return domain.ErrCampaignNotFound
	}
	campaign.Deleted = true
	r.items[id] = campaign
	return nil
}

var _ domain.CampaignRepository = (*campaignRepositoryInMemory)(nil)
