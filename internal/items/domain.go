// Package items holds the item master: items, their grouping dimensions, and
// the per-supplier cost and per-channel price records.
package items

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates item lifecycle values.
type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

// ItemGroup is a coarse grouping dimension owned by an organization.
type ItemGroup struct {
	ID             int64  `json:"id"`
	OrganizationID int64  `json:"organization_id"`
	Name           string `json:"name"`
}

// Category is a finer grouping inside an item group.
type Category struct {
	ID             int64  `json:"id"`
	OrganizationID int64  `json:"organization_id"`
	ItemGroupID    int64  `json:"item_group_id"`
	Name           string `json:"name"`
}

// SalesChannel is a selling outlet (web store, marketplace, wholesale desk).
type SalesChannel struct {
	ID             int64  `json:"id"`
	OrganizationID int64  `json:"organization_id"`
	Name           string `json:"name"`
}

// Item is a sellable/stockable SKU owned by an organization.
type Item struct {
	ID             int64           `json:"id"`
	OrganizationID int64           `json:"organization_id"`
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	ItemGroupID    int64           `json:"item_group_id"`
	CategoryID     int64           `json:"category_id"`
	UOM            string          `json:"uom"`
	HSNCode        string          `json:"hsn_code"`
	GSTRate        decimal.Decimal `json:"gst_rate"`
	Status         Status          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TenantOrganization implements tenant.Scoped.
func (i Item) TenantOrganization() (int64, string) {
	return i.OrganizationID, ""
}

// ItemCost is the purchase cost of an item from a specific supplier
// organization. One row per (item, supplier).
type ItemCost struct {
	ID            int64           `json:"id"`
	ItemID        int64           `json:"item_id"`
	SupplierOrgID int64           `json:"supplier_org_id"`
	Cost          decimal.Decimal `json:"cost"`
	Currency      string          `json:"currency"`
	EffectiveFrom time.Time       `json:"effective_from"`
}

// ItemPrice is the selling price of an item on a specific sales channel.
// One row per (item, channel).
type ItemPrice struct {
	ID             int64           `json:"id"`
	ItemID         int64           `json:"item_id"`
	SalesChannelID int64           `json:"sales_channel_id"`
	Price          decimal.Decimal `json:"price"`
	Currency       string          `json:"currency"`
	EffectiveFrom  time.Time       `json:"effective_from"`
}

var (
	// ErrNotFound indicates a missing item-master record.
	ErrNotFound = errors.New("items: not found")
	// ErrDuplicateSKU indicates a SKU collision within the organization.
	ErrDuplicateSKU = errors.New("items: sku already exists")
	// ErrDuplicateRate indicates a second cost or price row for the same pair.
	ErrDuplicateRate = errors.New("items: rate already exists")
)
