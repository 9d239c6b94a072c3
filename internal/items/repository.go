package items

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort abstracts item-master storage.
type RepositoryPort interface {
	ListItems(ctx context.Context, organizationID int64) ([]Item, error)
	GetItem(ctx context.Context, id int64) (Item, error)
	CreateItem(ctx context.Context, item Item) (Item, error)
	UpdateItem(ctx context.Context, item Item) (Item, error)

	ListGroups(ctx context.Context, organizationID int64) ([]ItemGroup, error)
	CreateGroup(ctx context.Context, g ItemGroup) (ItemGroup, error)
	ListCategories(ctx context.Context, organizationID int64) ([]Category, error)
	CreateCategory(ctx context.Context, c Category) (Category, error)
	ListChannels(ctx context.Context, organizationID int64) ([]SalesChannel, error)
	CreateChannel(ctx context.Context, c SalesChannel) (SalesChannel, error)

	ListCosts(ctx context.Context, itemID int64) ([]ItemCost, error)
	UpsertCost(ctx context.Context, c ItemCost) (ItemCost, error)
	ListPrices(ctx context.Context, itemID int64) ([]ItemPrice, error)
	UpsertPrice(ctx context.Context, p ItemPrice) (ItemPrice, error)
}

// PGRepository is the postgres-backed implementation of RepositoryPort.
// items carries a unique constraint on (organization_id, sku), item_costs on
// (item_id, supplier_org_id) and item_prices on (item_id, sales_channel_id).
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const itemColumns = `id, organization_id, sku, name, description, item_group_id, category_id, uom, hsn_code, gst_rate, status, created_at, updated_at`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.OrganizationID, &it.SKU, &it.Name, &it.Description,
		&it.ItemGroupID, &it.CategoryID, &it.UOM, &it.HSNCode, &it.GSTRate,
		&it.Status, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}

func (r *PGRepository) ListItems(ctx context.Context, organizationID int64) ([]Item, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+itemColumns+` FROM items WHERE organization_id=$1 ORDER BY sku`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("items: list: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("items: scan: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *PGRepository) GetItem(ctx context.Context, id int64) (Item, error) {
	it, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("items: get: %w", err)
	}
	return it, nil
}

func (r *PGRepository) CreateItem(ctx context.Context, item Item) (Item, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO items (organization_id, sku, name, description, item_group_id, category_id, uom, hsn_code, gst_rate, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+itemColumns,
		item.OrganizationID, item.SKU, item.Name, item.Description,
		item.ItemGroupID, item.CategoryID, item.UOM, item.HSNCode, item.GSTRate, item.Status)
	created, err := scanItem(row)
	if isUniqueViolation(err) {
		return Item{}, ErrDuplicateSKU
	}
	if err != nil {
		return Item{}, fmt.Errorf("items: create: %w", err)
	}
	return created, nil
}

func (r *PGRepository) UpdateItem(ctx context.Context, item Item) (Item, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE items
		SET name=$2, description=$3, item_group_id=$4, category_id=$5, uom=$6, hsn_code=$7, gst_rate=$8, status=$9, updated_at=now()
		WHERE id=$1
		RETURNING `+itemColumns,
		item.ID, item.Name, item.Description, item.ItemGroupID, item.CategoryID,
		item.UOM, item.HSNCode, item.GSTRate, item.Status)
	updated, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("items: update: %w", err)
	}
	return updated, nil
}

func (r *PGRepository) ListGroups(ctx context.Context, organizationID int64) ([]ItemGroup, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, organization_id, name FROM item_groups WHERE organization_id=$1 ORDER BY name`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("items: list groups: %w", err)
	}
	defer rows.Close()

	var out []ItemGroup
	for rows.Next() {
		var g ItemGroup
		if err := rows.Scan(&g.ID, &g.OrganizationID, &g.Name); err != nil {
			return nil, fmt.Errorf("items: scan group: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *PGRepository) CreateGroup(ctx context.Context, g ItemGroup) (ItemGroup, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO item_groups (organization_id, name) VALUES ($1, $2) RETURNING id`,
		g.OrganizationID, g.Name).Scan(&g.ID)
	if err != nil {
		return ItemGroup{}, fmt.Errorf("items: create group: %w", err)
	}
	return g, nil
}

func (r *PGRepository) ListCategories(ctx context.Context, organizationID int64) ([]Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, organization_id, item_group_id, name FROM categories WHERE organization_id=$1 ORDER BY name`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("items: list categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.OrganizationID, &c.ItemGroupID, &c.Name); err != nil {
			return nil, fmt.Errorf("items: scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PGRepository) CreateCategory(ctx context.Context, c Category) (Category, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO categories (organization_id, item_group_id, name) VALUES ($1, $2, $3) RETURNING id`,
		c.OrganizationID, c.ItemGroupID, c.Name).Scan(&c.ID)
	if err != nil {
		return Category{}, fmt.Errorf("items: create category: %w", err)
	}
	return c, nil
}

func (r *PGRepository) ListChannels(ctx context.Context, organizationID int64) ([]SalesChannel, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, organization_id, name FROM sales_channels WHERE organization_id=$1 ORDER BY name`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("items: list channels: %w", err)
	}
	defer rows.Close()

	var out []SalesChannel
	for rows.Next() {
		var c SalesChannel
		if err := rows.Scan(&c.ID, &c.OrganizationID, &c.Name); err != nil {
			return nil, fmt.Errorf("items: scan channel: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PGRepository) CreateChannel(ctx context.Context, c SalesChannel) (SalesChannel, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO sales_channels (organization_id, name) VALUES ($1, $2) RETURNING id`,
		c.OrganizationID, c.Name).Scan(&c.ID)
	if err != nil {
		return SalesChannel{}, fmt.Errorf("items: create channel: %w", err)
	}
	return c, nil
}

func (r *PGRepository) ListCosts(ctx context.Context, itemID int64) ([]ItemCost, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, item_id, supplier_org_id, cost, currency, effective_from
		FROM item_costs WHERE item_id=$1 ORDER BY supplier_org_id`, itemID)
	if err != nil {
		return nil, fmt.Errorf("items: list costs: %w", err)
	}
	defer rows.Close()

	var out []ItemCost
	for rows.Next() {
		var c ItemCost
		if err := rows.Scan(&c.ID, &c.ItemID, &c.SupplierOrgID, &c.Cost, &c.Currency, &c.EffectiveFrom); err != nil {
			return nil, fmt.Errorf("items: scan cost: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PGRepository) UpsertCost(ctx context.Context, c ItemCost) (ItemCost, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO item_costs (item_id, supplier_org_id, cost, currency, effective_from)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (item_id, supplier_org_id)
		DO UPDATE SET cost=EXCLUDED.cost, currency=EXCLUDED.currency, effective_from=EXCLUDED.effective_from
		RETURNING id`,
		c.ItemID, c.SupplierOrgID, c.Cost, c.Currency, c.EffectiveFrom).Scan(&c.ID)
	if err != nil {
		return ItemCost{}, fmt.Errorf("items: upsert cost: %w", err)
	}
	return c, nil
}

func (r *PGRepository) ListPrices(ctx context.Context, itemID int64) ([]ItemPrice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, item_id, sales_channel_id, price, currency, effective_from
		FROM item_prices WHERE item_id=$1 ORDER BY sales_channel_id`, itemID)
	if err != nil {
		return nil, fmt.Errorf("items: list prices: %w", err)
	}
	defer rows.Close()

	var out []ItemPrice
	for rows.Next() {
		var p ItemPrice
		if err := rows.Scan(&p.ID, &p.ItemID, &p.SalesChannelID, &p.Price, &p.Currency, &p.EffectiveFrom); err != nil {
			return nil, fmt.Errorf("items: scan price: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGRepository) UpsertPrice(ctx context.Context, p ItemPrice) (ItemPrice, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO item_prices (item_id, sales_channel_id, price, currency, effective_from)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (item_id, sales_channel_id)
		DO UPDATE SET price=EXCLUDED.price, currency=EXCLUDED.currency, effective_from=EXCLUDED.effective_from
		RETURNING id`,
		p.ItemID, p.SalesChannelID, p.Price, p.Currency, p.EffectiveFrom).Scan(&p.ID)
	if err != nil {
		return ItemPrice{}, fmt.Errorf("items: upsert price: %w", err)
	}
	return p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
