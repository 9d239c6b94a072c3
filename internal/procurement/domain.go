// Package procurement manages purchase orders from creation through receipt.
package procurement

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates the purchase order lifecycle. Orders move Created →
// Approved → Partially Received → Received; cancellation is only possible
// before approval.
type Status string

const (
	StatusCreated           Status = "Created"
	StatusApproved          Status = "Approved"
	StatusPartiallyReceived Status = "Partially Received"
	StatusReceived          Status = "Received"
	StatusCancelled         Status = "Cancelled"
)

// Line is one ordered item with its GST breakdown. Tax splits into central,
// state and integrated components depending on whether supplier and buyer
// share a state.
type Line struct {
	ID         int64           `json:"id"`
	OrderID    int64           `json:"order_id"`
	ItemID     int64           `json:"item_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Received   decimal.Decimal `json:"received"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	GSTRate    decimal.Decimal `json:"gst_rate"`
	CGSTAmount decimal.Decimal `json:"cgst_amount"`
	SGSTAmount decimal.Decimal `json:"sgst_amount"`
	IGSTAmount decimal.Decimal `json:"igst_amount"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

// Subtotal is quantity times unit price before tax.
func (l Line) Subtotal() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// Order is a purchase order from the buying organization to a supplier.
type Order struct {
	ID             int64           `json:"id"`
	OrganizationID int64           `json:"organization_id"`
	SupplierOrgID  int64           `json:"supplier_org_id"`
	DivisionID     int64           `json:"division_id"`
	Number         string          `json:"number"`
	Status         Status          `json:"status"`
	Interstate     bool            `json:"interstate"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxTotal       decimal.Decimal `json:"tax_total"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	Lines          []Line          `json:"lines"`
	CreatedBy      int64           `json:"created_by"`
	ApprovedBy     int64           `json:"approved_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TenantOrganization implements tenant.Scoped.
func (o Order) TenantOrganization() (int64, string) {
	return o.OrganizationID, ""
}

// ReceiptLine is one received quantity against an order line.
type ReceiptLine struct {
	LineID   int64           `json:"line_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

var (
	// ErrNotFound indicates a missing purchase order.
	ErrNotFound = errors.New("procurement: not found")
	// ErrInvalidTransition indicates a lifecycle move the state machine forbids.
	ErrInvalidTransition = errors.New("procurement: invalid status transition")
	// ErrNotCancellable indicates a cancel on an order past the Created state.
	ErrNotCancellable = errors.New("procurement: only created orders can be cancelled")
	// ErrOverReceipt indicates a receipt above the ordered quantity.
	ErrOverReceipt = errors.New("procurement: received quantity exceeds ordered quantity")
	// ErrNoLines indicates an order without lines.
	ErrNoLines = errors.New("procurement: order needs at least one line")
)

// computeTax fills the tax split for a line. Interstate purchases carry IGST;
// intrastate purchases split the rate evenly between CGST and SGST.
func computeTax(line *Line, interstate bool) {
	taxable := line.Subtotal()
	tax := taxable.Mul(line.GSTRate).Div(decimal.NewFromInt(100))
	if interstate {
		line.IGSTAmount = tax
		line.CGSTAmount = decimal.Zero
		line.SGSTAmount = decimal.Zero
	} else {
		half := tax.Div(decimal.NewFromInt(2))
		line.CGSTAmount = half
		line.SGSTAmount = tax.Sub(half)
		line.IGSTAmount = decimal.Zero
	}
	line.LineTotal = taxable.Add(tax)
}
