package items

import (
	"context"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/tenant"
)

type memoryItemRepo struct {
	nextID int64
	items  map[int64]Item
	costs  map[int64][]ItemCost
	prices map[int64][]ItemPrice
}

func newMemoryItemRepo() *memoryItemRepo {
	return &memoryItemRepo{
		nextID: 1,
		items:  make(map[int64]Item),
		costs:  make(map[int64][]ItemCost),
		prices: make(map[int64][]ItemPrice),
	}
}

func (m *memoryItemRepo) ListItems(_ context.Context, organizationID int64) ([]Item, error) {
	var out []Item
	for _, it := range m.items {
		if it.OrganizationID == organizationID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memoryItemRepo) GetItem(_ context.Context, id int64) (Item, error) {
	it, ok := m.items[id]
	if !ok {
		return Item{}, ErrNotFound
	}
	return it, nil
}

func (m *memoryItemRepo) CreateItem(_ context.Context, item Item) (Item, error) {
	for _, existing := range m.items {
		if existing.OrganizationID == item.OrganizationID && existing.SKU == item.SKU {
			return Item{}, ErrDuplicateSKU
		}
	}
	item.ID = m.nextID
	m.nextID++
	m.items[item.ID] = item
	return item, nil
}

func (m *memoryItemRepo) UpdateItem(_ context.Context, item Item) (Item, error) {
	if _, ok := m.items[item.ID]; !ok {
		return Item{}, ErrNotFound
	}
	m.items[item.ID] = item
	return item, nil
}

func (m *memoryItemRepo) ListGroups(context.Context, int64) ([]ItemGroup, error) { return nil, nil }
func (m *memoryItemRepo) CreateGroup(_ context.Context, g ItemGroup) (ItemGroup, error) {
	g.ID = m.nextID
	m.nextID++
	return g, nil
}
func (m *memoryItemRepo) ListCategories(context.Context, int64) ([]Category, error) { return nil, nil }
func (m *memoryItemRepo) CreateCategory(_ context.Context, c Category) (Category, error) {
	c.ID = m.nextID
	m.nextID++
	return c, nil
}
func (m *memoryItemRepo) ListChannels(context.Context, int64) ([]SalesChannel, error) {
	return nil, nil
}
func (m *memoryItemRepo) CreateChannel(_ context.Context, c SalesChannel) (SalesChannel, error) {
	c.ID = m.nextID
	m.nextID++
	return c, nil
}

func (m *memoryItemRepo) ListCosts(_ context.Context, itemID int64) ([]ItemCost, error) {
	return m.costs[itemID], nil
}

func (m *memoryItemRepo) UpsertCost(_ context.Context, c ItemCost) (ItemCost, error) {
	rows := m.costs[c.ItemID]
	for i, existing := range rows {
		if existing.SupplierOrgID == c.SupplierOrgID {
			c.ID = existing.ID
			rows[i] = c
			return c, nil
		}
	}
	c.ID = m.nextID
	m.nextID++
	m.costs[c.ItemID] = append(rows, c)
	return c, nil
}

func (m *memoryItemRepo) ListPrices(_ context.Context, itemID int64) ([]ItemPrice, error) {
	return m.prices[itemID], nil
}

func (m *memoryItemRepo) UpsertPrice(_ context.Context, p ItemPrice) (ItemPrice, error) {
	rows := m.prices[p.ItemID]
	for i, existing := range rows {
		if existing.SalesChannelID == p.SalesChannelID {
			p.ID = existing.ID
			rows[i] = p
			return p, nil
		}
	}
	p.ID = m.nextID
	m.nextID++
	m.prices[p.ItemID] = append(rows, p)
	return p, nil
}

func scopedCtx(orgID int64) context.Context {
	return tenant.ContextWithScope(context.Background(), &tenant.Scope{OrganizationID: orgID})
}

func newTestService(repo RepositoryPort) *Service {
	return NewService(repo, slog.New(slog.DiscardHandler))
}

func TestCreateItemNormalizesSKU(t *testing.T) {
	svc := newTestService(newMemoryItemRepo())
	it, err := svc.CreateItem(scopedCtx(1), ItemInput{
		SKU: " wd-40 ", Name: "Lubricant", ItemGroupID: 1, CategoryID: 1, UOM: "EA",
	})
	require.NoError(t, err)
	require.Equal(t, "WD-40", it.SKU)
	require.Equal(t, StatusActive, it.Status)
}

func TestCreateItemDuplicateSKUWithinOrg(t *testing.T) {
	svc := newTestService(newMemoryItemRepo())
	in := ItemInput{SKU: "WD-40", Name: "Lubricant", ItemGroupID: 1, CategoryID: 1, UOM: "EA"}

	_, err := svc.CreateItem(scopedCtx(1), in)
	require.NoError(t, err)
	_, err = svc.CreateItem(scopedCtx(1), in)
	require.ErrorIs(t, err, ErrDuplicateSKU)

	// A different organization may reuse the SKU.
	_, err = svc.CreateItem(scopedCtx(2), in)
	require.NoError(t, err)
}

func TestGetItemScopedToTenant(t *testing.T) {
	svc := newTestService(newMemoryItemRepo())
	it, err := svc.CreateItem(scopedCtx(1), ItemInput{SKU: "A1", Name: "Widget", ItemGroupID: 1, CategoryID: 1, UOM: "EA"})
	require.NoError(t, err)

	_, err = svc.GetItem(scopedCtx(2), it.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSetCostOverwritesPerSupplier(t *testing.T) {
	svc := newTestService(newMemoryItemRepo())
	it, err := svc.CreateItem(scopedCtx(1), ItemInput{SKU: "A1", Name: "Widget", ItemGroupID: 1, CategoryID: 1, UOM: "EA"})
	require.NoError(t, err)

	_, err = svc.SetCost(scopedCtx(1), ItemCost{ItemID: it.ID, SupplierOrgID: 5, Cost: decimal.NewFromInt(10), Currency: "INR"})
	require.NoError(t, err)
	_, err = svc.SetCost(scopedCtx(1), ItemCost{ItemID: it.ID, SupplierOrgID: 5, Cost: decimal.NewFromInt(12), Currency: "INR"})
	require.NoError(t, err)
	_, err = svc.SetCost(scopedCtx(1), ItemCost{ItemID: it.ID, SupplierOrgID: 6, Cost: decimal.NewFromInt(9), Currency: "INR"})
	require.NoError(t, err)

	costs, err := svc.ListCosts(scopedCtx(1), it.ID)
	require.NoError(t, err)
	require.Len(t, costs, 2)
	for _, c := range costs {
		if c.SupplierOrgID == 5 {
			require.True(t, c.Cost.Equal(decimal.NewFromInt(12)))
		}
	}
}
