package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/tenant"
)

// Service carries stock and transfer business rules.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func orgID(ctx context.Context) (int64, bool) {
	scope := tenant.ScopeFromContext(ctx)
	if scope == nil || !scope.Valid() {
		return 0, false
	}
	return scope.OrganizationID, true
}

// AdjustStock applies a signed delta to the stock row of an item in a
// division, creating the row when it does not exist yet. Goods receipt uses
// this to book received quantities.
func (s *Service) AdjustStock(ctx context.Context, organizationID, divisionID, itemID int64, delta decimal.Decimal) error {
	_, err := s.repo.AdjustStock(ctx, organizationID, divisionID, itemID, delta)
	return err
}

func (s *Service) ListStock(ctx context.Context, divisionID int64) ([]Stock, error) {
	id, ok := orgID(ctx)
	if !ok {
		return nil, nil
	}
	return s.repo.ListStock(ctx, id, divisionID)
}

func (s *Service) StockSummary(ctx context.Context) ([]StockSummary, error) {
	id, ok := orgID(ctx)
	if !ok {
		return nil, nil
	}
	return s.repo.StockSummary(ctx, id)
}

func (s *Service) ListTransfers(ctx context.Context) ([]Transfer, error) {
	id, ok := orgID(ctx)
	if !ok {
		return nil, nil
	}
	return s.repo.ListTransfers(ctx, id)
}

func (s *Service) GetTransfer(ctx context.Context, id int64) (Transfer, error) {
	t, err := s.repo.GetTransfer(ctx, id)
	if err != nil {
		return Transfer{}, err
	}
	if visible := tenant.FilterByOrganization(tenant.ScopeFromContext(ctx), []Transfer{t}); len(visible) == 0 {
		return Transfer{}, ErrNotFound
	}
	return t, nil
}

// InitiateTransferInput is the validated payload for InitiateTransfer.
type InitiateTransferInput struct {
	FromDivisionID int64               `json:"from_division_id" validate:"required,gt=0"`
	ToDivisionID   int64               `json:"to_division_id" validate:"required,gt=0"`
	TrackingNumber string              `json:"tracking_number" validate:"max=60"`
	Lines          []TransferLineInput `json:"lines" validate:"required,min=1,dive"`
}

// TransferLineInput is one requested line.
type TransferLineInput struct {
	ItemID   int64  `json:"item_id" validate:"required,gt=0"`
	Quantity string `json:"quantity" validate:"required"`
}

// InitiateTransfer opens a transfer in the initiated state. Stock does not
// move until confirmation.
func (s *Service) InitiateTransfer(ctx context.Context, userID int64, in InitiateTransferInput, lines []TransferLine) (Transfer, error) {
	id, ok := orgID(ctx)
	if !ok {
		return Transfer{}, ErrNotFound
	}
	if in.FromDivisionID == in.ToDivisionID {
		return Transfer{}, ErrSameDivision
	}
	if len(lines) == 0 {
		return Transfer{}, ErrNoLines
	}
	t, err := s.repo.CreateTransfer(ctx, Transfer{
		OrganizationID: id,
		Number:         transferNumber(),
		FromDivisionID: in.FromDivisionID,
		ToDivisionID:   in.ToDivisionID,
		TrackingNumber: strings.TrimSpace(in.TrackingNumber),
		Lines:          lines,
		InitiatedBy:    userID,
	})
	if err != nil {
		return Transfer{}, err
	}
	s.logger.Info("transfer initiated", "number", t.Number, "organization", t.OrganizationID)
	return t, nil
}

// UpdateTransfer applies an edit to an initiated transfer. Only the tracking
// number may change; any other difference from the stored record is rejected.
func (s *Service) UpdateTransfer(ctx context.Context, id int64, patch Transfer) (Transfer, error) {
	current, err := s.GetTransfer(ctx, id)
	if err != nil {
		return Transfer{}, err
	}
	if current.Status != TransferInitiated {
		return Transfer{}, ErrAlreadyConfirmed
	}
	if err := onlyTrackingChanged(current, patch); err != nil {
		return Transfer{}, err
	}
	return s.repo.UpdateTracking(ctx, id, strings.TrimSpace(patch.TrackingNumber))
}

// onlyTrackingChanged verifies the patch leaves every frozen field untouched.
// Zero values in the patch count as "unchanged" so partial payloads pass.
func onlyTrackingChanged(current, patch Transfer) error {
	if patch.FromDivisionID != 0 && patch.FromDivisionID != current.FromDivisionID {
		return ErrImmutable
	}
	if patch.ToDivisionID != 0 && patch.ToDivisionID != current.ToDivisionID {
		return ErrImmutable
	}
	if patch.Number != "" && patch.Number != current.Number {
		return ErrImmutable
	}
	if patch.Status != "" && patch.Status != current.Status {
		return ErrImmutable
	}
	if len(patch.Lines) != 0 {
		if len(patch.Lines) != len(current.Lines) {
			return ErrImmutable
		}
		for i, line := range patch.Lines {
			if line.ItemID != current.Lines[i].ItemID || !line.Quantity.Equal(current.Lines[i].Quantity) {
				return ErrImmutable
			}
		}
	}
	return nil
}

// ConfirmTransfer finalizes the transfer and moves stock between divisions in
// a single transaction.
func (s *Service) ConfirmTransfer(ctx context.Context, id, userID int64) (Transfer, error) {
	if _, err := s.GetTransfer(ctx, id); err != nil {
		return Transfer{}, err
	}
	t, err := s.repo.ConfirmTransfer(ctx, id, userID)
	if err != nil {
		return Transfer{}, err
	}
	s.logger.Info("transfer confirmed", "number", t.Number, "by", userID)
	return t, nil
}

func transferNumber() string {
	return fmt.Sprintf("TRF-%d", time.Now().UTC().UnixNano())
}
