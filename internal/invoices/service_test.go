package invoices

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/accounting"
	"github.com/meridian-erp/meridian-erp/internal/tenant"
)

type memoryInvoiceRepo struct {
	nextID   int64
	invoices map[int64]*Invoice
}

func newMemoryInvoiceRepo() *memoryInvoiceRepo {
	return &memoryInvoiceRepo{nextID: 1, invoices: make(map[int64]*Invoice)}
}

func (m *memoryInvoiceRepo) List(_ context.Context, organizationID int64) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		if inv.OrganizationID == organizationID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (m *memoryInvoiceRepo) Get(_ context.Context, id int64) (Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, ErrNotFound
	}
	return *inv, nil
}

func (m *memoryInvoiceRepo) Create(_ context.Context, inv Invoice) (Invoice, error) {
	inv.ID = m.nextID
	m.nextID++
	for i := range inv.Lines {
		inv.Lines[i].ID = m.nextID
		m.nextID++
		inv.Lines[i].InvoiceID = inv.ID
	}
	m.invoices[inv.ID] = &inv
	return inv, nil
}

func (m *memoryInvoiceRepo) ReplaceLines(_ context.Context, id int64, lines []Line, subtotal, taxTotal, grandTotal decimal.Decimal) error {
	inv, ok := m.invoices[id]
	if !ok {
		return ErrNotFound
	}
	if inv.Status != StatusDraft {
		return ErrNotDraft
	}
	for i := range lines {
		lines[i].ID = m.nextID
		m.nextID++
		lines[i].InvoiceID = id
	}
	inv.Lines = lines
	inv.Subtotal = subtotal
	inv.TaxTotal = taxTotal
	inv.GrandTotal = grandTotal
	return nil
}

func (m *memoryInvoiceRepo) SetStatus(_ context.Context, id int64, status Status, userID int64, paidAt *time.Time) error {
	inv, ok := m.invoices[id]
	if !ok {
		return ErrNotFound
	}
	inv.Status = status
	if status == StatusApproved {
		inv.ApprovedBy = userID
	}
	if paidAt != nil {
		inv.PaidAt = paidAt
	}
	return nil
}

type fakePublisher struct {
	events []accounting.Event
}

func (f *fakePublisher) Publish(_ context.Context, event accounting.Event) error {
	f.events = append(f.events, event)
	return nil
}

func scopedCtx(orgID int64) context.Context {
	return tenant.ContextWithScope(context.Background(), &tenant.Scope{OrganizationID: orgID})
}

func newTestService() (*Service, *memoryInvoiceRepo, *fakePublisher) {
	repo := newMemoryInvoiceRepo()
	pub := &fakePublisher{}
	return NewService(repo, pub, slog.New(slog.DiscardHandler)), repo, pub
}

func createInvoice(t *testing.T, svc *Service) Invoice {
	t.Helper()
	lines := []Line{
		{ItemID: 3, Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(500), GSTRate: decimal.NewFromInt(18)},
	}
	inv, err := svc.Create(scopedCtx(1), 9, CreateInput{BillToOrgID: 4, Interstate: false}, lines)
	require.NoError(t, err)
	return inv
}

func TestCreateComputesTotals(t *testing.T) {
	svc, _, _ := newTestService()

	inv := createInvoice(t, svc)
	require.Equal(t, StatusDraft, inv.Status)
	require.True(t, inv.Subtotal.Equal(decimal.NewFromInt(1000)))
	require.True(t, inv.TaxTotal.Equal(decimal.NewFromInt(180)))
	require.True(t, inv.GrandTotal.Equal(decimal.NewFromInt(1180)))
	require.True(t, inv.Lines[0].CGSTAmount.Equal(decimal.NewFromInt(90)))
	require.True(t, inv.Lines[0].SGSTAmount.Equal(decimal.NewFromInt(90)))
}

func TestUpdateLinesOnlyWhileDraft(t *testing.T) {
	svc, _, _ := newTestService()
	inv := createInvoice(t, svc)

	updated, err := svc.UpdateLines(scopedCtx(1), inv.ID, []Line{
		{ItemID: 3, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(500), GSTRate: decimal.NewFromInt(18)},
	})
	require.NoError(t, err)
	require.True(t, updated.Subtotal.Equal(decimal.NewFromInt(500)))
	require.True(t, updated.GrandTotal.Equal(decimal.NewFromInt(590)))

	_, err = svc.Approve(scopedCtx(1), inv.ID, 9)
	require.NoError(t, err)

	_, err = svc.UpdateLines(scopedCtx(1), inv.ID, []Line{
		{ItemID: 3, Quantity: decimal.NewFromInt(5), UnitPrice: decimal.NewFromInt(500)},
	})
	require.ErrorIs(t, err, ErrNotDraft)
}

func TestApprovePublishesEvent(t *testing.T) {
	svc, _, pub := newTestService()
	inv := createInvoice(t, svc)

	approved, err := svc.Approve(scopedCtx(1), inv.ID, 9)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.Equal(t, int64(9), approved.ApprovedBy)

	require.Len(t, pub.events, 1)
	event := pub.events[0]
	require.Equal(t, "invoice.approved", event.Type)
	require.Equal(t, int64(1), event.OrganizationID)
	require.Equal(t, int64(4), event.CounterpartyOrgID)
	require.Equal(t, "invoice", event.SourceType)
	require.True(t, event.Amounts["total"].Equal(decimal.NewFromInt(1180)))

	_, err = svc.Approve(scopedCtx(1), inv.ID, 9)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRecordPaymentRequiresApproved(t *testing.T) {
	svc, _, pub := newTestService()
	inv := createInvoice(t, svc)

	_, err := svc.RecordPayment(scopedCtx(1), inv.ID, 9)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Approve(scopedCtx(1), inv.ID, 9)
	require.NoError(t, err)

	paid, err := svc.RecordPayment(scopedCtx(1), inv.ID, 9)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	require.Len(t, pub.events, 2)
	require.Equal(t, "payment.processed", pub.events[1].Type)

	_, err = svc.RecordPayment(scopedCtx(1), inv.ID, 9)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestInvoiceHiddenFromOtherTenants(t *testing.T) {
	svc, _, _ := newTestService()
	inv := createInvoice(t, svc)

	_, err := svc.Get(scopedCtx(2), inv.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
