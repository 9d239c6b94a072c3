package procurement

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/accounting"
	"github.com/meridian-erp/meridian-erp/internal/tenant"
)

type memoryPORepo struct {
	nextID int64
	orders map[int64]*Order
}

func newMemoryPORepo() *memoryPORepo {
	return &memoryPORepo{nextID: 1, orders: make(map[int64]*Order)}
}

func (m *memoryPORepo) List(_ context.Context, organizationID int64) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		if o.OrganizationID == organizationID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memoryPORepo) Get(_ context.Context, id int64) (Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return *o, nil
}

func (m *memoryPORepo) Create(_ context.Context, o Order) (Order, error) {
	o.ID = m.nextID
	m.nextID++
	for i := range o.Lines {
		o.Lines[i].ID = m.nextID
		m.nextID++
		o.Lines[i].OrderID = o.ID
	}
	m.orders[o.ID] = &o
	return o, nil
}

func (m *memoryPORepo) SetStatus(_ context.Context, id int64, status Status, userID int64) error {
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	if status == StatusApproved {
		o.ApprovedBy = userID
	}
	return nil
}

func (m *memoryPORepo) ApplyReceipt(_ context.Context, id int64, lines []ReceiptLine, status Status) error {
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	for _, rl := range lines {
		for i := range o.Lines {
			if o.Lines[i].ID != rl.LineID {
				continue
			}
			if o.Lines[i].Received.Add(rl.Quantity).GreaterThan(o.Lines[i].Quantity) {
				return ErrOverReceipt
			}
			o.Lines[i].Received = o.Lines[i].Received.Add(rl.Quantity)
		}
	}
	o.Status = status
	return nil
}

type fakeStock struct {
	adjustments map[string]decimal.Decimal
}

func newFakeStock() *fakeStock {
	return &fakeStock{adjustments: make(map[string]decimal.Decimal)}
}

func (f *fakeStock) AdjustStock(_ context.Context, organizationID, divisionID, itemID int64, delta decimal.Decimal) error {
	key := fmt.Sprintf("%d/%d/%d", organizationID, divisionID, itemID)
	f.adjustments[key] = f.adjustments[key].Add(delta)
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

func newTestService() (*Service, *memoryPORepo, *fakeStock, *fakePublisher) {
	repo := newMemoryPORepo()
	stock := newFakeStock()
	pub := &fakePublisher{}
	svc := NewService(repo, stock, pub, slog.New(slog.DiscardHandler))
	return svc, repo, stock, pub
}

func createOrder(t *testing.T, svc *Service, interstate bool) Order {
	t.Helper()
	lines := []Line{
		{ItemID: 7, Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(100), GSTRate: decimal.NewFromInt(18)},
		{ItemID: 8, Quantity: decimal.NewFromInt(4), UnitPrice: decimal.NewFromInt(50), GSTRate: decimal.NewFromInt(12)},
	}
	o, err := svc.Create(scopedCtx(1), 99, CreateInput{SupplierOrgID: 2, DivisionID: 11, Interstate: interstate}, lines)
	require.NoError(t, err)
	return o
}

func TestCreateComputesGSTTotals(t *testing.T) {
	svc, _, _, _ := newTestService()

	o := createOrder(t, svc, false)
	require.Equal(t, StatusCreated, o.Status)
	require.True(t, o.Subtotal.Equal(decimal.NewFromInt(1200)), "subtotal %s", o.Subtotal)
	require.True(t, o.TaxTotal.Equal(decimal.NewFromInt(204)), "tax %s", o.TaxTotal)
	require.True(t, o.GrandTotal.Equal(decimal.NewFromInt(1404)), "grand %s", o.GrandTotal)

	first := o.Lines[0]
	require.True(t, first.CGSTAmount.Equal(decimal.NewFromInt(90)))
	require.True(t, first.SGSTAmount.Equal(decimal.NewFromInt(90)))
	require.True(t, first.IGSTAmount.IsZero())
}

func TestCreateInterstateUsesIGST(t *testing.T) {
	svc, _, _, _ := newTestService()

	o := createOrder(t, svc, true)
	first := o.Lines[0]
	require.True(t, first.IGSTAmount.Equal(decimal.NewFromInt(180)))
	require.True(t, first.CGSTAmount.IsZero())
	require.True(t, first.SGSTAmount.IsZero())
}

func TestApproveOnlyFromCreated(t *testing.T) {
	svc, _, _, _ := newTestService()
	o := createOrder(t, svc, false)

	approved, err := svc.Approve(scopedCtx(1), o.ID, 50)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.Equal(t, int64(50), approved.ApprovedBy)

	_, err = svc.Approve(scopedCtx(1), o.ID, 50)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelOnlyFromCreated(t *testing.T) {
	svc, _, _, _ := newTestService()
	o := createOrder(t, svc, false)

	cancelled, err := svc.Cancel(scopedCtx(1), o.ID, 50)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)

	other := createOrder(t, svc, false)
	_, err = svc.Approve(scopedCtx(1), other.ID, 50)
	require.NoError(t, err)
	_, err = svc.Cancel(scopedCtx(1), other.ID, 50)
	require.ErrorIs(t, err, ErrNotCancellable)
}

func TestReceiveRequiresApprovedOrder(t *testing.T) {
	svc, _, _, _ := newTestService()
	o := createOrder(t, svc, false)

	_, err := svc.Receive(scopedCtx(1), o.ID, 50, []ReceiptLine{{LineID: o.Lines[0].ID, Quantity: decimal.NewFromInt(1)}})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReceivePartialThenFull(t *testing.T) {
	svc, _, stock, _ := newTestService()
	o := createOrder(t, svc, false)
	_, err := svc.Approve(scopedCtx(1), o.ID, 50)
	require.NoError(t, err)

	partial, err := svc.Receive(scopedCtx(1), o.ID, 50, []ReceiptLine{
		{LineID: o.Lines[0].ID, Quantity: decimal.NewFromInt(6)},
		{LineID: o.Lines[1].ID, Quantity: decimal.NewFromInt(4)},
	})
	require.NoError(t, err)
	require.Equal(t, StatusPartiallyReceived, partial.Status)

	full, err := svc.Receive(scopedCtx(1), o.ID, 50, []ReceiptLine{
		{LineID: o.Lines[0].ID, Quantity: decimal.NewFromInt(4)},
	})
	require.NoError(t, err)
	require.Equal(t, StatusReceived, full.Status)

	require.True(t, stock.adjustments["1/11/7"].Equal(decimal.NewFromInt(10)))
	require.True(t, stock.adjustments["1/11/8"].Equal(decimal.NewFromInt(4)))
}

func TestReceiveRejectsOverReceipt(t *testing.T) {
	svc, repo, _, _ := newTestService()
	o := createOrder(t, svc, false)
	_, err := svc.Approve(scopedCtx(1), o.ID, 50)
	require.NoError(t, err)

	_, err = svc.Receive(scopedCtx(1), o.ID, 50, []ReceiptLine{
		{LineID: o.Lines[0].ID, Quantity: decimal.NewFromInt(11)},
	})
	require.ErrorIs(t, err, ErrOverReceipt)

	stored, err := repo.Get(context.Background(), o.ID)
	require.NoError(t, err)
	require.True(t, stored.Lines[0].Received.IsZero())
}

func TestReceivePublishesProportionalEvent(t *testing.T) {
	svc, _, _, pub := newTestService()
	o := createOrder(t, svc, false)
	_, err := svc.Approve(scopedCtx(1), o.ID, 50)
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	require.Equal(t, "purchase_order.approved", pub.events[0].Type)
	pub.events = nil

	_, err = svc.Receive(scopedCtx(1), o.ID, 50, []ReceiptLine{
		{LineID: o.Lines[0].ID, Quantity: decimal.NewFromInt(5)},
	})
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	event := pub.events[0]
	require.Equal(t, "purchase_order.received", event.Type)
	require.Equal(t, int64(1), event.OrganizationID)
	require.Equal(t, int64(2), event.CounterpartyOrgID)
	require.Equal(t, "purchase_order", event.SourceType)
	require.True(t, event.Amounts["goods_value"].Equal(decimal.NewFromInt(500)), "goods %s", event.Amounts["goods_value"])
	require.True(t, event.Amounts["tax"].Equal(decimal.NewFromInt(90)), "tax %s", event.Amounts["tax"])
	require.True(t, event.Amounts["total"].Equal(decimal.NewFromInt(590)))
	require.Equal(t, o.Number, event.Attributes["number"])
}

func TestOrderHiddenFromOtherTenants(t *testing.T) {
	svc, _, _, _ := newTestService()
	o := createOrder(t, svc, false)

	_, err := svc.Get(scopedCtx(2), o.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
