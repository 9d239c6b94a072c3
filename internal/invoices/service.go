package invoices

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/accounting"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/tenant"
)

// Service carries invoice business rules.
type Service struct {
	repo   RepositoryPort
	events accounting.Publisher
	logger *slog.Logger
	audit  shared.AuditRecorder
}

func NewService(repo RepositoryPort, events accounting.Publisher, logger *slog.Logger) *Service {
	return &Service{repo: repo, events: events, logger: logger}
}

// WithAudit turns on audit trail writes for invoice approvals.
func (s *Service) WithAudit(rec shared.AuditRecorder) *Service {
	s.audit = rec
	return s
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, inv Invoice) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "invoice",
		EntityID: strconv.FormatInt(inv.ID, 10),
		Meta:     map[string]any{"number": inv.Number},
		At:       time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error("audit write failed", slog.Any("error", err))
	}
}

func orgID(ctx context.Context) (int64, bool) {
	scope := tenant.ScopeFromContext(ctx)
	if scope == nil || !scope.Valid() {
		return 0, false
	}
	return scope.OrganizationID, true
}

func (s *Service) List(ctx context.Context) ([]Invoice, error) {
	id, ok := orgID(ctx)
	if !ok {
		return nil, nil
	}
	return s.repo.List(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if visible := tenant.FilterByOrganization(tenant.ScopeFromContext(ctx), []Invoice{inv}); len(visible) == 0 {
		return Invoice{}, ErrNotFound
	}
	return inv, nil
}

// CreateInput is the validated payload for Create.
type CreateInput struct {
	BillToOrgID int64       `json:"bill_to_org_id" validate:"required,gt=0"`
	Interstate  bool        `json:"interstate"`
	Lines       []LineInput `json:"lines" validate:"required,min=1,dive"`
}

// LineInput is one requested invoice line.
type LineInput struct {
	ItemID    int64  `json:"item_id" validate:"required,gt=0"`
	Quantity  string `json:"quantity" validate:"required"`
	UnitPrice string `json:"unit_price" validate:"required"`
	GSTRate   string `json:"gst_rate"`
}

func total(lines []Line, interstate bool) (subtotal, taxTotal decimal.Decimal) {
	subtotal, taxTotal = decimal.Zero, decimal.Zero
	for i := range lines {
		computeTax(&lines[i], interstate)
		subtotal = subtotal.Add(lines[i].Subtotal())
		taxTotal = taxTotal.Add(lines[i].CGSTAmount).Add(lines[i].SGSTAmount).Add(lines[i].IGSTAmount)
	}
	return subtotal, taxTotal
}

// Create opens a draft invoice with the GST breakdown computed per line.
func (s *Service) Create(ctx context.Context, userID int64, in CreateInput, lines []Line) (Invoice, error) {
	id, ok := orgID(ctx)
	if !ok {
		return Invoice{}, ErrNotFound
	}
	if len(lines) == 0 {
		return Invoice{}, ErrNoLines
	}

	subtotal, taxTotal := total(lines, in.Interstate)
	inv, err := s.repo.Create(ctx, Invoice{
		OrganizationID: id,
		BillToOrgID:    in.BillToOrgID,
		Number:         invoiceNumber(),
		Status:         StatusDraft,
		Interstate:     in.Interstate,
		Subtotal:       subtotal,
		TaxTotal:       taxTotal,
		GrandTotal:     subtotal.Add(taxTotal),
		Lines:          lines,
		CreatedBy:      userID,
	})
	if err != nil {
		return Invoice{}, err
	}
	s.logger.Info("invoice created", "number", inv.Number, "bill_to", inv.BillToOrgID)
	return inv, nil
}

// UpdateLines replaces the line set of a draft invoice and recomputes totals.
func (s *Service) UpdateLines(ctx context.Context, id int64, lines []Line) (Invoice, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if inv.Status != StatusDraft {
		return Invoice{}, ErrNotDraft
	}
	if len(lines) == 0 {
		return Invoice{}, ErrNoLines
	}
	subtotal, taxTotal := total(lines, inv.Interstate)
	if err := s.repo.ReplaceLines(ctx, id, lines, subtotal, taxTotal, subtotal.Add(taxTotal)); err != nil {
		return Invoice{}, err
	}
	return s.Get(ctx, id)
}

// Approve moves a draft invoice to approved and publishes the business event
// the accounting rules listen for.
func (s *Service) Approve(ctx context.Context, id, userID int64) (Invoice, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if inv.Status != StatusDraft {
		return Invoice{}, ErrInvalidTransition
	}
	if len(inv.Lines) == 0 {
		return Invoice{}, ErrNoLines
	}
	if err := s.repo.SetStatus(ctx, id, StatusApproved, userID, nil); err != nil {
		return Invoice{}, err
	}
	s.publish(ctx, "invoice.approved", inv)
	s.recordAudit(ctx, userID, "invoice.approved", inv)
	s.logger.Info("invoice approved", "number", inv.Number, "by", userID)
	return s.Get(ctx, id)
}

// RecordPayment settles an approved invoice and publishes payment.processed.
func (s *Service) RecordPayment(ctx context.Context, id, userID int64) (Invoice, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if inv.Status != StatusApproved {
		return Invoice{}, ErrInvalidTransition
	}
	now := time.Now().UTC()
	if err := s.repo.SetStatus(ctx, id, StatusPaid, userID, &now); err != nil {
		return Invoice{}, err
	}
	s.publish(ctx, "payment.processed", inv)
	s.recordAudit(ctx, userID, "payment.processed", inv)
	s.logger.Info("invoice paid", "number", inv.Number, "by", userID)
	return s.Get(ctx, id)
}

func (s *Service) publish(ctx context.Context, eventType string, inv Invoice) {
	event := accounting.Event{
		Type:              eventType,
		OrganizationID:    inv.OrganizationID,
		CounterpartyOrgID: inv.BillToOrgID,
		SourceType:        "invoice",
		SourceID:          inv.ID,
		OccurredAt:        time.Now().UTC(),
		Amounts: map[string]decimal.Decimal{
			"goods_value": inv.Subtotal,
			"tax":         inv.TaxTotal,
			"total":       inv.GrandTotal,
		},
		Attributes: map[string]string{
			"number":     inv.Number,
			"interstate": fmt.Sprintf("%t", inv.Interstate),
		},
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Error("publish "+eventType, slog.Any("error", err), slog.String("number", inv.Number))
	}
}

func invoiceNumber() string {
	return fmt.Sprintf("INV-%d", time.Now().UTC().UnixNano())
}
