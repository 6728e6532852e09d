// Package bag реализует операции над корзиной: позиции, кампании, пересчёт цены.
package bag

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/pricing"
)

// Service описывает операции корзины.
type Service interface {
	// AddItem добавляет товар в корзину. Пустой bagID создаёт новую корзину.
	AddItem(ctx context.Context, bagID, barcode string, quantity int) (domain.Bag, error)
	// RemoveItem снимает quantity единиц товара; снятие полного количества удаляет позицию.
	RemoveItem(ctx context.Context, bagID, barcode string, quantity int) (domain.Bag, error)
	// Clear опустошает корзину и сбрасывает кампанию.
	Clear(ctx context.Context, bagID string) (domain.Bag, error)
	// ApplyCampaign прикладывает активную кампанию и пересчитывает цену со скидкой.
	ApplyCampaign(ctx context.Context, bagID, campaignID string) (domain.Bag, error)
	// RemoveCampaign снимает кампанию с корзины.
	RemoveCampaign(ctx context.Context, bagID string) (domain.Bag, error)
	// Get возвращает корзину по идентификатору.
	Get(ctx context.Context, bagID string) (domain.Bag, error)
	// List возвращает страницу корзин. Нумерация страниц с единицы.
	List(ctx context.Context, page, size int) ([]domain.Bag, int, error)
}

type service struct {
	bags      domain.BagRepository
	campaigns domain.CampaignRepository
	catalog   domain.ProductCatalog
	ttl       time.Duration
	logger    *log.Entry
	now       func() time.Time
}

// NewService создаёт рабочий экземпляр сервиса корзин.
func NewService(
	bags domain.BagRepository,
	campaigns domain.CampaignRepository,
	catalog domain.ProductCatalog,
	ttl time.Duration,
	logger *log.Entry,
) Service {
	if logger == nil {
		logger = log.New().WithField("component", "bag")
	}
	return &service{
		bags:      bags,
		campaigns: campaigns,
		catalog:   catalog,
		ttl:       ttl,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) AddItem(ctx context.Context, bagID, barcode string, quantity int) (domain.Bag, error) {
	if barcode == "" {
		return domain.Bag{}, domain.ErrBarcodeRequired
	}
	if quantity <= 0 {
		return domain.Bag{}, domain.ErrItemQuantityInvalid
	}

	bag, err := s.loadOrCreate(ctx, bagID)
	if err != nil {
		return domain.Bag{}, err
	}

	product, err := s.catalog.GetByBarcode(ctx, barcode)
	if err != nil {
		return domain.Bag{}, err
	}
	if product.Deleted {
		return domain.Bag{}, domain.ErrProductNotFound
	}

	held := 0
	idx := bag.FindItem(barcode)
	if idx >= 0 {
		held = bag.Items[idx].Quantity
	}
	if held+quantity > product.Stock {
		return domain.Bag{}, domain.ErrInsufficientStock
	}

	if idx >= 0 {
		bag.Items[idx].Quantity += quantity
	} else {
		bag.Items = append(bag.Items, domain.BagItem{
			Barcode:   product.Barcode,
			Name:      product.Name,
			Quantity:  quantity,
			UnitPrice: product.Price,
		})
	}

	s.recalculate(&bag)
	if err := s.store(ctx, &bag); err != nil {
		return domain.Bag{}, err
	}

	s.logger.WithFields(log.Fields{
		"bag_id":   bag.ID,
		"barcode":  barcode,
		"quantity": quantity,
	}).Debug("item added to bag")

	return bag, nil
}

func (s *service) RemoveItem(ctx context.Context, bagID, barcode string, quantity int) (domain.Bag, error) {
	if barcode == "" {
		return domain.Bag{}, domain.ErrBarcodeRequired
	}
	if quantity <= 0 {
		return domain.Bag{}, domain.ErrItemQuantityInvalid
	}

	bag, err := s.bags.Get(ctx, bagID)
	if err != nil {
		return domain.Bag{}, err
	}

	idx := bag.FindItem(barcode)
	if idx < 0 {
		return domain.Bag{}, domain.ErrBagItemNotFound
	}
	if quantity > bag.Items[idx].Quantity {
		return domain.Bag{}, domain.ErrQuantityExceedsHeld
	}

	if quantity == bag.Items[idx].Quantity {
		bag.Items = append(bag.Items[:idx], bag.Items[idx+1:]...)
	} else {
		bag.Items[idx].Quantity -= quantity
	}

	s.recalculate(&bag)
	if err := s.store(ctx, &bag); err != nil {
		return domain.Bag{}, err
	}

	return bag, nil
}

func (s *service) Clear(ctx context.Context, bagID string) (domain.Bag, error) {
	bag, err := s.bags.Get(ctx, bagID)
	if err != nil {
		return domain.Bag{}, err
	}

	bag.Items = nil
	bag.ClearCampaign()
	s.recalculate(&bag)
	if err := s.store(ctx, &bag); err != nil {
		return domain.Bag{}, err
	}

	return bag, nil
}

func (s *service) ApplyCampaign(ctx context.Context, bagID, campaignID string) (domain.Bag, error) {
	bag, err := s.bags.Get(ctx, bagID)
	if err != nil {
		return domain.Bag{}, err
	}

	campaign, err := s.campaigns.Get(ctx, campaignID)
	if err != nil {
		return domain.Bag{}, err
	}
	if !campaign.IsActiveAt(s.now()) {
		return domain.Bag{}, domain.ErrCampaignInactive
	}

	// Снимок кампании фиксируется в корзине: дальнейшие правки или удаление
	// кампании на уже применённую скидку не влияют.
	bag.CampaignID = campaign.ID
	bag.CampaignName = campaign.Name
	bag.DiscountType = campaign.DiscountType
	bag.DiscountValue = campaign.DiscountValue

	s.recalculate(&bag)
	if err := s.store(ctx, &bag); err != nil {
		return domain.Bag{}, err
	}

	s.logger.WithFields(log.Fields{
		"bag_id":      bag.ID,
		"campaign_id": campaign.ID,
	}).Debug("campaign applied to bag")

	return bag, nil
}

func (s *service) RemoveCampaign(ctx context.Context, bagID string) (domain.Bag, error) {
	bag, err := s.bags.Get(ctx, bagID)
	if err != nil {
		return domain.Bag{}, err
	}
	if !bag.HasCampaign() {
		return domain.Bag{}, domain.ErrCampaignNotAttached
	}

	bag.ClearCampaign()
	s.recalculate(&bag)
	if err := s.store(ctx, &bag); err != nil {
		return domain.Bag{}, err
	}

	return bag, nil
}

func (s *service) Get(ctx context.Context, bagID string) (domain.Bag, error) {
	return s.bags.Get(ctx, bagID)
}

func (s *service) List(ctx context.Context, page, size int) ([]domain.Bag, int, error) {
	if page < 1 || size < 1 {
		return nil, 0, domain.ErrPaginationInvalid
	}
	return s.bags.List(ctx, (page-1)*size, size)
}

func (s *service) loadOrCreate(ctx context.Context, bagID string) (domain.Bag, error) {
	if bagID == "" {
		now := s.now()
		return domain.Bag{
			ID:        uuid.NewString(),
			CreatedAt: now,
			UpdatedAt: now,
		}, nil
	}
	return s.bags.Get(ctx, bagID)
}

// recalculate пересчитывает сумму корзины и, при наличии кампании, цену со скидкой.
func (s *service) recalculate(bag *domain.Bag) {
	bag.TotalPrice = pricing.Total(bag.Items)
	if bag.HasCampaign() {
		bag.DiscountedPrice = pricing.ApplyDiscount(bag.TotalPrice, bag.DiscountType, bag.DiscountValue)
	}
	bag.UpdatedAt = s.now()
}

// store сохраняет корзину со свежим TTL. Каждая мутация продлевает жизнь корзины.
func (s *service) store(ctx context.Context, bag *domain.Bag) error {
	bag.ExpiresAt = s.now().Add(s.ttl)
	return s.bags.Save(ctx, *bag, s.ttl)
}

var _ Service = (*service)(nil)
