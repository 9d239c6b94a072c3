package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/tenant"
)

type memoryInventoryRepo struct {
	nextID    int64
	stock     map[string]Stock // key: division/item
	transfers map[int64]Transfer
}

func newMemoryInventoryRepo() *memoryInventoryRepo {
	return &memoryInventoryRepo{
		nextID:    1,
		stock:     make(map[string]Stock),
		transfers: make(map[int64]Transfer),
	}
}

func stockKey(divisionID, itemID int64) string {
	return fmt.Sprintf("%d/%d", divisionID, itemID)
}

func (m *memoryInventoryRepo) ListStock(_ context.Context, organizationID, divisionID int64) ([]Stock, error) {
	var out []Stock
	for _, s := range m.stock {
		if s.OrganizationID == organizationID && (divisionID == 0 || s.DivisionID == divisionID) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryInventoryRepo) StockSummary(_ context.Context, organizationID int64) ([]StockSummary, error) {
	totals := make(map[int64]*StockSummary)
	for _, s := range m.stock {
		if s.OrganizationID != organizationID {
			continue
		}
		sum, ok := totals[s.ItemID]
		if !ok {
			sum = &StockSummary{ItemID: s.ItemID, TotalQuantity: decimal.Zero}
			totals[s.ItemID] = sum
		}
		sum.TotalQuantity = sum.TotalQuantity.Add(s.Quantity)
		sum.Divisions++
	}
	var out []StockSummary
	for _, sum := range totals {
		out = append(out, *sum)
	}
	return out, nil
}

func (m *memoryInventoryRepo) AdjustStock(_ context.Context, organizationID, divisionID, itemID int64, delta decimal.Decimal) (Stock, error) {
	key := stockKey(divisionID, itemID)
	s, ok := m.stock[key]
	if !ok {
		s = Stock{ID: m.nextID, OrganizationID: organizationID, DivisionID: divisionID, ItemID: itemID, Quantity: decimal.Zero}
		m.nextID++
	}
	s.Quantity = s.Quantity.Add(delta)
	m.stock[key] = s
	return s, nil
}

func (m *memoryInventoryRepo) ListTransfers(_ context.Context, organizationID int64) ([]Transfer, error) {
	var out []Transfer
	for _, t := range m.transfers {
		if t.OrganizationID == organizationID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memoryInventoryRepo) GetTransfer(_ context.Context, id int64) (Transfer, error) {
	t, ok := m.transfers[id]
	if !ok {
		return Transfer{}, ErrNotFound
	}
	return t, nil
}

func (m *memoryInventoryRepo) CreateTransfer(_ context.Context, t Transfer) (Transfer, error) {
	t.ID = m.nextID
	m.nextID++
	t.Status = TransferInitiated
	t.InitiatedAt = time.Now().UTC()
	m.transfers[t.ID] = t
	return t, nil
}

func (m *memoryInventoryRepo) UpdateTracking(_ context.Context, id int64, trackingNumber string) (Transfer, error) {
	t, ok := m.transfers[id]
	if !ok || t.Status != TransferInitiated {
		return Transfer{}, ErrNotFound
	}
	t.TrackingNumber = trackingNumber
	m.transfers[id] = t
	return t, nil
}

func (m *memoryInventoryRepo) ConfirmTransfer(_ context.Context, id, userID int64) (Transfer, error) {
	t, ok := m.transfers[id]
	if !ok {
		return Transfer{}, ErrNotFound
	}
	if t.Status == TransferConfirmed {
		return Transfer{}, ErrAlreadyConfirmed
	}
	for _, line := range t.Lines {
		from := m.stock[stockKey(t.FromDivisionID, line.ItemID)]
		if from.Quantity.LessThan(line.Quantity) {
			return Transfer{}, ErrInsufficientStock
		}
		from.Quantity = from.Quantity.Sub(line.Quantity)
		m.stock[stockKey(t.FromDivisionID, line.ItemID)] = from

		to, ok := m.stock[stockKey(t.ToDivisionID, line.ItemID)]
		if !ok {
			to = Stock{OrganizationID: t.OrganizationID, DivisionID: t.ToDivisionID, ItemID: line.ItemID, Quantity: decimal.Zero}
		}
		to.Quantity = to.Quantity.Add(line.Quantity)
		m.stock[stockKey(t.ToDivisionID, line.ItemID)] = to
	}
	t.Status = TransferConfirmed
	t.ConfirmedBy = userID
	now := time.Now().UTC()
	t.ConfirmedAt = &now
	m.transfers[id] = t
	return t, nil
}

func scopedCtx(orgID int64) context.Context {
	return tenant.ContextWithScope(context.Background(), &tenant.Scope{OrganizationID: orgID})
}

func newTestService(repo RepositoryPort) *Service {
	return NewService(repo, slog.New(slog.DiscardHandler))
}

func initiated(t *testing.T, svc *Service) Transfer {
	t.Helper()
	tr, err := svc.InitiateTransfer(scopedCtx(1), 42, InitiateTransferInput{
		FromDivisionID: 10,
		ToDivisionID:   11,
		TrackingNumber: "TRK-1",
	}, []TransferLine{{ItemID: 100, Quantity: decimal.NewFromInt(5)}})
	require.NoError(t, err)
	require.Equal(t, TransferInitiated, tr.Status)
	return tr
}

func TestInitiateTransferRejectsSameDivision(t *testing.T) {
	svc := newTestService(newMemoryInventoryRepo())
	_, err := svc.InitiateTransfer(scopedCtx(1), 42, InitiateTransferInput{
		FromDivisionID: 10, ToDivisionID: 10,
	}, []TransferLine{{ItemID: 100, Quantity: decimal.NewFromInt(1)}})
	require.ErrorIs(t, err, ErrSameDivision)
}

func TestUpdateTransferAllowsTrackingNumber(t *testing.T) {
	repo := newMemoryInventoryRepo()
	svc := newTestService(repo)
	tr := initiated(t, svc)

	updated, err := svc.UpdateTransfer(scopedCtx(1), tr.ID, Transfer{TrackingNumber: "TRK-2"})
	require.NoError(t, err)
	require.Equal(t, "TRK-2", updated.TrackingNumber)
	require.Equal(t, TransferInitiated, updated.Status)
}

func TestUpdateTransferRejectsOtherFields(t *testing.T) {
	repo := newMemoryInventoryRepo()
	svc := newTestService(repo)
	tr := initiated(t, svc)

	_, err := svc.UpdateTransfer(scopedCtx(1), tr.ID, Transfer{ToDivisionID: 99, TrackingNumber: "TRK-2"})
	require.ErrorIs(t, err, ErrImmutable)

	_, err = svc.UpdateTransfer(scopedCtx(1), tr.ID, Transfer{
		TrackingNumber: "TRK-2",
		Lines:          []TransferLine{{ItemID: 100, Quantity: decimal.NewFromInt(50)}},
	})
	require.ErrorIs(t, err, ErrImmutable)
}

func TestUpdateTransferRejectsAfterConfirmation(t *testing.T) {
	repo := newMemoryInventoryRepo()
	svc := newTestService(repo)
	tr := initiated(t, svc)

	_, err := repo.AdjustStock(context.Background(), 1, 10, 100, decimal.NewFromInt(5))
	require.NoError(t, err)
	_, err = svc.ConfirmTransfer(scopedCtx(1), tr.ID, 42)
	require.NoError(t, err)

	_, err = svc.UpdateTransfer(scopedCtx(1), tr.ID, Transfer{TrackingNumber: "TRK-2"})
	require.ErrorIs(t, err, ErrAlreadyConfirmed)
}

func TestConfirmTransferMovesStock(t *testing.T) {
	repo := newMemoryInventoryRepo()
	svc := newTestService(repo)
	tr := initiated(t, svc)

	_, err := repo.AdjustStock(context.Background(), 1, 10, 100, decimal.NewFromInt(8))
	require.NoError(t, err)

	confirmed, err := svc.ConfirmTransfer(scopedCtx(1), tr.ID, 42)
	require.NoError(t, err)
	require.Equal(t, TransferConfirmed, confirmed.Status)

	require.True(t, repo.stock[stockKey(10, 100)].Quantity.Equal(decimal.NewFromInt(3)))
	require.True(t, repo.stock[stockKey(11, 100)].Quantity.Equal(decimal.NewFromInt(5)))

	// Confirming twice is rejected and stock does not move again.
	_, err = svc.ConfirmTransfer(scopedCtx(1), tr.ID, 42)
	require.ErrorIs(t, err, ErrAlreadyConfirmed)
	require.True(t, repo.stock[stockKey(10, 100)].Quantity.Equal(decimal.NewFromInt(3)))
}

func TestConfirmTransferInsufficientStock(t *testing.T) {
	repo := newMemoryInventoryRepo()
	svc := newTestService(repo)
	tr := initiated(t, svc)

	_, err := repo.AdjustStock(context.Background(), 1, 10, 100, decimal.NewFromInt(2))
	require.NoError(t, err)

	_, err = svc.ConfirmTransfer(scopedCtx(1), tr.ID, 42)
	require.ErrorIs(t, err, ErrInsufficientStock)
}

func TestTransfersScopedToTenant(t *testing.T) {
	repo := newMemoryInventoryRepo()
	svc := newTestService(repo)
	tr := initiated(t, svc)

	_, err := svc.GetTransfer(scopedCtx(2), tr.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
