package invoices

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the invoice lifecycle state.
type Status string

const (
	StatusDraft    Status = "Draft"
	StatusApproved Status = "Approved"
	StatusPaid     Status = "Paid"
)

// Line is one billed item on an invoice.
type Line struct {
	ID         int64           `json:"id"`
	InvoiceID  int64           `json:"invoice_id"`
	ItemID     int64           `json:"item_id"`
	Quantity   decimal.Decimal `json:"quantity"`
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

// Invoice is issued by the remitting organization to the billed one.
type Invoice struct {
	ID             int64           `json:"id"`
	OrganizationID int64           `json:"organization_id"`
	BillToOrgID    int64           `json:"bill_to_org_id"`
	Number         string          `json:"number"`
	Status         Status          `json:"status"`
	Interstate     bool            `json:"interstate"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxTotal       decimal.Decimal `json:"tax_total"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	Lines          []Line          `json:"lines"`
	CreatedBy      int64           `json:"created_by"`
	ApprovedBy     int64           `json:"approved_by,omitempty"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TenantOrganization implements tenant.Scoped.
func (i Invoice) TenantOrganization() (int64, string) {
	return i.OrganizationID, ""
}

var (
	// ErrNotFound indicates a missing invoice.
	ErrNotFound = errors.New("invoices: not found")
	// ErrInvalidTransition indicates a lifecycle move the state machine forbids.
	ErrInvalidTransition = errors.New("invoices: invalid status transition")
	// ErrNoLines indicates an invoice without lines.
	ErrNoLines = errors.New("invoices: invoice needs at least one line")
	// ErrNotDraft indicates an edit against an approved or paid invoice.
	ErrNotDraft = errors.New("invoices: only draft invoices can be edited")
)

// computeTax fills the tax split for a line. Interstate sales carry IGST;
// intrastate sales split the rate evenly between CGST and SGST.
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
