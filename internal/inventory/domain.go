// Package inventory tracks on-hand stock per division and item, and the
// transfers that move stock between divisions.
package inventory

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// TransferStatus enumerates the transfer lifecycle.
type TransferStatus string

const (
	TransferInitiated TransferStatus = "Transfer initiated"
	TransferConfirmed TransferStatus = "Transfer confirmed"
)

// Stock is the on-hand quantity of one item in one division.
type Stock struct {
	ID             int64           `json:"id"`
	OrganizationID int64           `json:"organization_id"`
	DivisionID     int64           `json:"division_id"`
	ItemID         int64           `json:"item_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TenantOrganization implements tenant.Scoped.
func (s Stock) TenantOrganization() (int64, string) {
	return s.OrganizationID, ""
}

// TransferLine is one item/quantity pair on a transfer.
type TransferLine struct {
	ID         int64           `json:"id"`
	TransferID int64           `json:"transfer_id"`
	ItemID     int64           `json:"item_id"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// Transfer moves stock from one division to another. While initiated, only
// the tracking number may change; confirmation applies the stock movement and
// freezes the record.
type Transfer struct {
	ID             int64          `json:"id"`
	OrganizationID int64          `json:"organization_id"`
	Number         string         `json:"number"`
	FromDivisionID int64          `json:"from_division_id"`
	ToDivisionID   int64          `json:"to_division_id"`
	Status         TransferStatus `json:"status"`
	TrackingNumber string         `json:"tracking_number"`
	Lines          []TransferLine `json:"lines"`
	InitiatedBy    int64          `json:"initiated_by"`
	ConfirmedBy    int64          `json:"confirmed_by,omitempty"`
	InitiatedAt    time.Time      `json:"initiated_at"`
	ConfirmedAt    *time.Time     `json:"confirmed_at,omitempty"`
}

// TenantOrganization implements tenant.Scoped.
func (t Transfer) TenantOrganization() (int64, string) {
	return t.OrganizationID, ""
}

// StockSummary aggregates quantities across divisions for one item.
type StockSummary struct {
	ItemID        int64           `json:"item_id"`
	SKU           string          `json:"sku"`
	ItemName      string          `json:"item_name"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	Divisions     int             `json:"divisions"`
}

var (
	// ErrNotFound indicates a missing stock or transfer record.
	ErrNotFound = errors.New("inventory: not found")
	// ErrImmutable indicates an edit on a field that is frozen for the
	// transfer's current status.
	ErrImmutable = errors.New("inventory: only the tracking number may change on an initiated transfer")
	// ErrAlreadyConfirmed indicates a repeated confirmation.
	ErrAlreadyConfirmed = errors.New("inventory: transfer already confirmed")
	// ErrInsufficientStock indicates the source division cannot cover a line.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrSameDivision indicates a transfer from a division to itself.
	ErrSameDivision = errors.New("inventory: source and destination divisions must differ")
	// ErrNoLines indicates a transfer without lines.
	ErrNoLines = errors.New("inventory: transfer needs at least one line")
)
