package items

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/tenant"
)

// Service carries item-master business rules. All reads and writes are bound
// to the caller's tenant scope.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func orgID(ctx context.Context) (int64, bool) {
	scope := tenant.ScopeFromContext(ctx)
	if scope == nil || !scope.Valid() {
		return 0, false
	}
	return scope.OrganizationID, true
}

func (s *Service) ListItems(ctx context.Context) ([]Item, error) {
	id, ok := orgID(ctx)
	if !ok {
		return nil, nil
	}
	return s.repo.ListItems(ctx, id)
}

func (s *Service) GetItem(ctx context.Context, id int64) (Item, error) {
	it, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if visible := tenant.FilterByOrganization(tenant.ScopeFromContext(ctx), []Item{it}); len(visible) == 0 {
		return Item{}, ErrNotFound
	}
	return it, nil
}

// ItemInput is the validated payload for item create and update.
type ItemInput struct {
	SKU         string          `json:"sku" validate:"required,min=2,max=40"`
	Name        string          `json:"name" validate:"required,min=2,max=120"`
	Description string          `json:"description" validate:"max=2000"`
	ItemGroupID int64           `json:"item_group_id" validate:"required,gt=0"`
	CategoryID  int64           `json:"category_id" validate:"required,gt=0"`
	UOM         string          `json:"uom" validate:"required,max=10"`
	HSNCode     string          `json:"hsn_code" validate:"max=10"`
	GSTRate     decimal.Decimal `json:"gst_rate"`
}

func (s *Service) CreateItem(ctx context.Context, in ItemInput) (Item, error) {
	id, ok := orgID(ctx)
	if !ok {
		return Item{}, ErrNotFound
	}
	it, err := s.repo.CreateItem(ctx, Item{
		OrganizationID: id,
		SKU:            strings.ToUpper(strings.TrimSpace(in.SKU)),
		Name:           strings.TrimSpace(in.Name),
		Description:    in.Description,
		ItemGroupID:    in.ItemGroupID,
		CategoryID:     in.CategoryID,
		UOM:            in.UOM,
		HSNCode:        in.HSNCode,
		GSTRate:        in.GSTRate,
		Status:         StatusActive,
	})
	if err != nil {
		return Item{}, err
	}
	s.logger.Info("item created", "sku", it.SKU, "organization", it.OrganizationID)
	return it, nil
}

func (s *Service) UpdateItem(ctx context.Context, id int64, in ItemInput) (Item, error) {
	existing, err := s.GetItem(ctx, id)
	if err != nil {
		return Item{}, err
	}
	existing.Name = strings.TrimSpace(in.Name)
	existing.Description = in.Description
	existing.ItemGroupID = in.ItemGroupID
	existing.CategoryID = in.CategoryID
	existing.UOM = in.UOM
	existing.HSNCode = in.HSNCode
	existing.GSTRate = in.GSTRate
	return s.repo.UpdateItem(ctx, existing)
}

func (s *Service) Deactivate(ctx context.Context, id int64) (Item, error) {
	existing, err := s.GetItem(ctx, id)
	if err != nil {
		return Item{}, err
	}
	existing.Status = StatusInactive
	return s.repo.UpdateItem(ctx, existing)
}

func (s *Service) ListGroups(ctx context.Context) ([]ItemGroup, error) {
	id, ok := orgID(ctx)
	if !ok {
		return nil, nil
	}
	return s.repo.ListGroups(ctx, id)
}

func (s *Service) CreateGroup(ctx context.Context, name string) (ItemGroup, error) {
	id, ok := orgID(ctx)
	if !ok {
		return ItemGroup{}, ErrNotFound
	}
	return s.repo.CreateGroup(ctx, ItemGroup{OrganizationID: id, Name: strings.TrimSpace(name)})
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	id, ok := orgID(ctx)
	if !ok {
		return nil, nil
	}
	return s.repo.ListCategories(ctx, id)
}

func (s *Service) CreateCategory(ctx context.Context, groupID int64, name string) (Category, error) {
	id, ok := orgID(ctx)
	if !ok {
		return Category{}, ErrNotFound
	}
	return s.repo.CreateCategory(ctx, Category{OrganizationID: id, ItemGroupID: groupID, Name: strings.TrimSpace(name)})
}

func (s *Service) ListChannels(ctx context.Context) ([]SalesChannel, error) {
	id, ok := orgID(ctx)
	if !ok {
		return nil, nil
	}
	return s.repo.ListChannels(ctx, id)
}

func (s *Service) CreateChannel(ctx context.Context, name string) (SalesChannel, error) {
	id, ok := orgID(ctx)
	if !ok {
		return SalesChannel{}, ErrNotFound
	}
	return s.repo.CreateChannel(ctx, SalesChannel{OrganizationID: id, Name: strings.TrimSpace(name)})
}

func (s *Service) ListCosts(ctx context.Context, itemID int64) ([]ItemCost, error) {
	if _, err := s.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.ListCosts(ctx, itemID)
}

// SetCost records the purchase cost of an item from one supplier. A second
// call for the same pair overwrites the first.
func (s *Service) SetCost(ctx context.Context, c ItemCost) (ItemCost, error) {
	if _, err := s.GetItem(ctx, c.ItemID); err != nil {
		return ItemCost{}, err
	}
	return s.repo.UpsertCost(ctx, c)
}

func (s *Service) ListPrices(ctx context.Context, itemID int64) ([]ItemPrice, error) {
	if _, err := s.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.ListPrices(ctx, itemID)
}

// SetPrice records the selling price of an item on one sales channel.
func (s *Service) SetPrice(ctx context.Context, p ItemPrice) (ItemPrice, error) {
	if _, err := s.GetItem(ctx, p.ItemID); err != nil {
		return ItemPrice{}, err
	}
	return s.repo.UpsertPrice(ctx, p)
}
