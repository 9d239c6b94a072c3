package procurement

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

// StockAdjuster is the slice of the inventory module the receive flow needs.
type StockAdjuster interface {
	AdjustStock(ctx context.Context, organizationID, divisionID, itemID int64, delta decimal.Decimal) error
}

// Service carries purchase order business rules.
type Service struct {
	repo   RepositoryPort
	stock  StockAdjuster
	events accounting.Publisher
	logger *slog.Logger
	audit  shared.AuditRecorder
}

func NewService(repo RepositoryPort, stock StockAdjuster, events accounting.Publisher, logger *slog.Logger) *Service {
	return &Service{repo: repo, stock: stock, events: events, logger: logger}
}

// WithAudit turns on audit trail writes for order approvals.
func (s *Service) WithAudit(rec shared.AuditRecorder) *Service {
	s.audit = rec
	return s
}

func orgID(ctx context.Context) (int64, bool) {
	scope := tenant.ScopeFromContext(ctx)
	if scope == nil || !scope.Valid() {
		return 0, false
	}
	return scope.OrganizationID, true
}

func (s *Service) List(ctx context.Context) ([]Order, error) {
	id, ok := orgID(ctx)
	if !ok {
		return nil, nil
	}
	return s.repo.List(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if visible := tenant.FilterByOrganization(tenant.ScopeFromContext(ctx), []Order{o}); len(visible) == 0 {
		return Order{}, ErrNotFound
	}
	return o, nil
}

// CreateInput is the validated payload for Create.
type CreateInput struct {
	SupplierOrgID int64       `json:"supplier_org_id" validate:"required,gt=0"`
	DivisionID    int64       `json:"division_id" validate:"required,gt=0"`
	Interstate    bool        `json:"interstate"`
	Lines         []LineInput `json:"lines" validate:"required,min=1,dive"`
}

// LineInput is one requested order line.
type LineInput struct {
	ItemID    int64  `json:"item_id" validate:"required,gt=0"`
	Quantity  string `json:"quantity" validate:"required"`
	UnitPrice string `json:"unit_price" validate:"required"`
	GSTRate   string `json:"gst_rate"`
}

// Create opens a purchase order in the Created state with the GST breakdown
// computed per line.
func (s *Service) Create(ctx context.Context, userID int64, in CreateInput, lines []Line) (Order, error) {
	id, ok := orgID(ctx)
	if !ok {
		return Order{}, ErrNotFound
	}
	if len(lines) == 0 {
		return Order{}, ErrNoLines
	}

	subtotal, taxTotal := decimal.Zero, decimal.Zero
	for i := range lines {
		computeTax(&lines[i], in.Interstate)
		subtotal = subtotal.Add(lines[i].Subtotal())
		taxTotal = taxTotal.Add(lines[i].CGSTAmount).Add(lines[i].SGSTAmount).Add(lines[i].IGSTAmount)
	}

	o, err := s.repo.Create(ctx, Order{
		OrganizationID: id,
		SupplierOrgID:  in.SupplierOrgID,
		DivisionID:     in.DivisionID,
		Number:         orderNumber(),
		Status:         StatusCreated,
		Interstate:     in.Interstate,
		Subtotal:       subtotal,
		TaxTotal:       taxTotal,
		GrandTotal:     subtotal.Add(taxTotal),
		Lines:          lines,
		CreatedBy:      userID,
	})
	if err != nil {
		return Order{}, err
	}
	s.logger.Info("purchase order created", "number", o.Number, "supplier", o.SupplierOrgID)
	return o, nil
}

// Approve moves a created order to approved.
func (s *Service) Approve(ctx context.Context, id, userID int64) (Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if o.Status != StatusCreated {
		return Order{}, ErrInvalidTransition
	}
	if err := s.repo.SetStatus(ctx, id, StatusApproved, userID); err != nil {
		return Order{}, err
	}
	event := accounting.Event{
		Type:              "purchase_order.approved",
		OrganizationID:    o.OrganizationID,
		CounterpartyOrgID: o.SupplierOrgID,
		SourceType:        "purchase_order",
		SourceID:          o.ID,
		OccurredAt:        time.Now().UTC(),
		Amounts: map[string]decimal.Decimal{
			"goods_value": o.Subtotal,
			"tax":         o.TaxTotal,
			"total":       o.GrandTotal,
		},
		Attributes: map[string]string{"number": o.Number},
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Error("publish purchase_order.approved", slog.Any("error", err), slog.String("number", o.Number))
	}
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  userID,
			Action:   "purchase_order.approved",
			Entity:   "purchase_order",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"number": o.Number},
			At:       time.Now().UTC(),
		})
		if err != nil {
			s.logger.Error("audit write failed", slog.Any("error", err))
		}
	}
	return s.Get(ctx, id)
}

// Cancel voids an order. Only orders still in Created may be cancelled.
func (s *Service) Cancel(ctx context.Context, id, userID int64) (Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if o.Status != StatusCreated {
		return Order{}, ErrNotCancellable
	}
	if err := s.repo.SetStatus(ctx, id, StatusCancelled, userID); err != nil {
		return Order{}, err
	}
	return s.Get(ctx, id)
}

// Receive books received quantities against an approved order, posts the
// stock into the order's division and publishes the accounting event. The
// order lands in Partially Received or Received depending on coverage.
func (s *Service) Receive(ctx context.Context, id, userID int64, receipts []ReceiptLine) (Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if o.Status != StatusApproved && o.Status != StatusPartiallyReceived {
		return Order{}, ErrInvalidTransition
	}
	if len(receipts) == 0 {
		return Order{}, ErrNoLines
	}

	byLine := make(map[int64]Line, len(o.Lines))
	for _, line := range o.Lines {
		byLine[line.ID] = line
	}
	receivedValue := decimal.Zero
	receivedTax := decimal.Zero
	fullyReceived := true
	incomingTotal := make(map[int64]decimal.Decimal, len(receipts))
	for _, receipt := range receipts {
		line, ok := byLine[receipt.LineID]
		if !ok {
			return Order{}, fmt.Errorf("%w: line %d", ErrNotFound, receipt.LineID)
		}
		if !receipt.Quantity.IsPositive() {
			return Order{}, fmt.Errorf("%w: line %d quantity must be positive", ErrOverReceipt, receipt.LineID)
		}
		if line.Received.Add(receipt.Quantity).GreaterThan(line.Quantity) {
			return Order{}, ErrOverReceipt
		}
		ratio := receipt.Quantity.Div(line.Quantity)
		receivedValue = receivedValue.Add(line.Subtotal().Mul(ratio))
		receivedTax = receivedTax.Add(line.CGSTAmount.Add(line.SGSTAmount).Add(line.IGSTAmount).Mul(ratio))
		incomingTotal[receipt.LineID] = receipt.Quantity
	}
	for _, line := range o.Lines {
		total := line.Received.Add(incomingTotal[line.ID])
		if total.LessThan(line.Quantity) {
			fullyReceived = false
		}
	}

	status := StatusPartiallyReceived
	if fullyReceived {
		status = StatusReceived
	}
	if err := s.repo.ApplyReceipt(ctx, id, receipts, status); err != nil {
		return Order{}, err
	}

	for _, receipt := range receipts {
		line := byLine[receipt.LineID]
		if err := s.stock.AdjustStock(ctx, o.OrganizationID, o.DivisionID, line.ItemID, receipt.Quantity); err != nil {
			return Order{}, err
		}
	}

	occurredAt := time.Now().UTC()
	event := accounting.Event{
		Type:              "purchase_order.received",
		OrganizationID:    o.OrganizationID,
		CounterpartyOrgID: o.SupplierOrgID,
		SourceType:        "purchase_order",
		SourceID:          o.ID,
		// Each receipt must book separately; the occurrence keeps
		// successive partial receipts from colliding on the source link.
		Occurrence: occurredAt.UnixNano(),
		OccurredAt: occurredAt,
		Amounts: map[string]decimal.Decimal{
			"goods_value": receivedValue,
			"tax":         receivedTax,
			"total":       receivedValue.Add(receivedTax),
		},
		Attributes: map[string]string{
			"number":     o.Number,
			"interstate": fmt.Sprintf("%t", o.Interstate),
		},
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Error("publish purchase_order.received", slog.Any("error", err), slog.String("number", o.Number))
	}

	s.logger.Info("goods received", "number", o.Number, "status", status, "by", userID)
	return s.Get(ctx, id)
}

func orderNumber() string {
	return fmt.Sprintf("PO-%d", time.Now().UTC().UnixNano())
}
