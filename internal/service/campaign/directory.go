// Package campaign реализует справочник скидочных кампаний.
package campaign

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

// Directory описывает операции над справочником кампаний.
type Directory interface {
	// Create валидирует и сохраняет новую кампанию.
	Create(ctx context.Context, campaign domain.Campaign) (domain.Campaign, error)
	// Get возвращает кампанию по идентификатору.
	Get(ctx context.Context, id string) (domain.Campaign, error)
	// List возвращает все неудалённые кампании.
	List(ctx context.Context) ([]domain.Campaign, error)
	// Delete мягко удаляет кампанию.
	Delete(ctx context.Context, id string) error
}

type directory struct {
	campaigns domain.CampaignRepository
	logger    *log.Entry
	now       func() time.Time
}

// NewDirectory создаёт рабочий экземпляр справочника.
func NewDirectory(campaigns domain.CampaignRepository, logger *log.Entry) Directory {
	if logger == nil {
		logger = log.New().WithField("component", "campaign")
	}
	return &directory{
		campaigns: campaigns,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (d *directory) Create(ctx context.Context, campaign domain.Campaign) (domain.Campaign, error) {
	if errs := campaign.ValidateInvariants(); len(errs) > 0 {
		return domain.Campaign{}, errors.Join(errs...)
	}

	campaign.ID = uuid.NewString()
	campaign.CreatedAt = d.now()
	campaign.Deleted = false

	if err := d.campaigns.Create(ctx, campaign); err != nil {
		return domain.Campaign{}, err
	}

	d.logger.WithFields(log.Fields{
		"campaign_id": campaign.ID,
		"name":        campaign.Name,
	}).Info("campaign created")

	return campaign, nil
}

func (d *directory) Get(ctx context.Context, id string) (domain.Campaign, error) {
	return d.campaigns.Get(ctx, id)
}

func (d *directory) List(ctx context.Context) ([]domain.Campaign, error) {
	all, err := d.campaigns.List(ctx)
	if err != nil {
		return nil, err
	}

	// Мягко удалённые кампании наружу не отдаются.
	result := make([]domain.Campaign, 0, len(all))
	for _, campaign := range all {
		if campaign.Deleted {
			continue
		}
		result = append(result, campaign)
	}
	return result, nil
}

func (d *directory) Delete(ctx context.Context, id string) error {
	if err := d.campaigns.Delete(ctx, id); err != nil {
		return err
	}
	d.logger.WithField("campaign_id", id).Info("campaign deleted")
	return nil
}

var _ Directory = (*directory)(nil)
