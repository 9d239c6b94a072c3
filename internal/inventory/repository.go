package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// RepositoryPort abstracts stock and transfer storage. ConfirmTransfer runs
// the status flip and every stock movement in a single transaction.
type RepositoryPort interface {
	ListStock(ctx context.Context, organizationID int64, divisionID int64) ([]Stock, error)
	StockSummary(ctx context.Context, organizationID int64) ([]StockSummary, error)
	AdjustStock(ctx context.Context, organizationID, divisionID, itemID int64, delta decimal.Decimal) (Stock, error)

	ListTransfers(ctx context.Context, organizationID int64) ([]Transfer, error)
	GetTransfer(ctx context.Context, id int64) (Transfer, error)
	CreateTransfer(ctx context.Context, t Transfer) (Transfer, error)
	UpdateTracking(ctx context.Context, id int64, trackingNumber string) (Transfer, error)
	ConfirmTransfer(ctx context.Context, id int64, userID int64) (Transfer, error)
}

// PGRepository is the postgres-backed implementation of RepositoryPort.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) ListStock(ctx context.Context, organizationID, divisionID int64) ([]Stock, error) {
	query := `SELECT id, organization_id, division_id, item_id, quantity, updated_at
		FROM inventory_stock WHERE organization_id=$1`
	args := []any{organizationID}
	if divisionID != 0 {
		query += ` AND division_id=$2`
		args = append(args, divisionID)
	}
	rows, err := r.pool.Query(ctx, query+` ORDER BY division_id, item_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("inventory: list stock: %w", err)
	}
	defer rows.Close()

	var out []Stock
	for rows.Next() {
		var s Stock
		if err := rows.Scan(&s.ID, &s.OrganizationID, &s.DivisionID, &s.ItemID, &s.Quantity, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("inventory: scan stock: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PGRepository) StockSummary(ctx context.Context, organizationID int64) ([]StockSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.item_id, i.sku, i.name, COALESCE(SUM(s.quantity), 0), COUNT(DISTINCT s.division_id)
		FROM inventory_stock s
		JOIN items i ON i.id = s.item_id
		WHERE s.organization_id=$1
		GROUP BY s.item_id, i.sku, i.name
		ORDER BY i.sku`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("inventory: stock summary: %w", err)
	}
	defer rows.Close()

	var out []StockSummary
	for rows.Next() {
		var s StockSummary
		if err := rows.Scan(&s.ItemID, &s.SKU, &s.ItemName, &s.TotalQuantity, &s.Divisions); err != nil {
			return nil, fmt.Errorf("inventory: scan summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PGRepository) AdjustStock(ctx context.Context, organizationID, divisionID, itemID int64, delta decimal.Decimal) (Stock, error) {
	var s Stock
	err := r.pool.QueryRow(ctx, `
		INSERT INTO inventory_stock (organization_id, division_id, item_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (division_id, item_id)
		DO UPDATE SET quantity = inventory_stock.quantity + EXCLUDED.quantity, updated_at = now()
		RETURNING id, organization_id, division_id, item_id, quantity, updated_at`,
		organizationID, divisionID, itemID, delta).
		Scan(&s.ID, &s.OrganizationID, &s.DivisionID, &s.ItemID, &s.Quantity, &s.UpdatedAt)
	if err != nil {
		return Stock{}, fmt.Errorf("inventory: adjust stock: %w", err)
	}
	return s, nil
}

const transferColumns = `id, organization_id, number, from_division_id, to_division_id, status, tracking_number, initiated_by, COALESCE(confirmed_by, 0), initiated_at, confirmed_at`

func scanTransfer(row pgx.Row) (Transfer, error) {
	var t Transfer
	err := row.Scan(&t.ID, &t.OrganizationID, &t.Number, &t.FromDivisionID, &t.ToDivisionID,
		&t.Status, &t.TrackingNumber, &t.InitiatedBy, &t.ConfirmedBy, &t.InitiatedAt, &t.ConfirmedAt)
	return t, err
}

func (r *PGRepository) ListTransfers(ctx context.Context, organizationID int64) ([]Transfer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+transferColumns+` FROM inventory_transfers WHERE organization_id=$1 ORDER BY initiated_at DESC`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("inventory: list transfers: %w", err)
	}
	defer rows.Close()

	var out []Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("inventory: scan transfer: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PGRepository) GetTransfer(ctx context.Context, id int64) (Transfer, error) {
	t, err := scanTransfer(r.pool.QueryRow(ctx,
		`SELECT `+transferColumns+` FROM inventory_transfers WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Transfer{}, ErrNotFound
	}
	if err != nil {
		return Transfer{}, fmt.Errorf("inventory: get transfer: %w", err)
	}
	t.Lines, err = r.listLines(ctx, t.ID)
	return t, err
}

func (r *PGRepository) listLines(ctx context.Context, transferID int64) ([]TransferLine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, transfer_id, item_id, quantity
		FROM inventory_transfer_lines WHERE transfer_id=$1 ORDER BY id`, transferID)
	if err != nil {
		return nil, fmt.Errorf("inventory: list lines: %w", err)
	}
	defer rows.Close()

	var out []TransferLine
	for rows.Next() {
		var l TransferLine
		if err := rows.Scan(&l.ID, &l.TransferID, &l.ItemID, &l.Quantity); err != nil {
			return nil, fmt.Errorf("inventory: scan line: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PGRepository) CreateTransfer(ctx context.Context, t Transfer) (Transfer, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO inventory_transfers (organization_id, number, from_division_id, to_division_id, status, tracking_number, initiated_by, initiated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, initiated_at`,
			t.OrganizationID, t.Number, t.FromDivisionID, t.ToDivisionID,
			TransferInitiated, t.TrackingNumber, t.InitiatedBy, time.Now().UTC()).
			Scan(&t.ID, &t.InitiatedAt)
		if err != nil {
			return fmt.Errorf("inventory: insert transfer: %w", err)
		}
		for i := range t.Lines {
			t.Lines[i].TransferID = t.ID
			err := tx.QueryRow(ctx, `
				INSERT INTO inventory_transfer_lines (transfer_id, item_id, quantity)
				VALUES ($1, $2, $3) RETURNING id`,
				t.ID, t.Lines[i].ItemID, t.Lines[i].Quantity).Scan(&t.Lines[i].ID)
			if err != nil {
				return fmt.Errorf("inventory: insert line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Transfer{}, err
	}
	t.Status = TransferInitiated
	return t, nil
}

func (r *PGRepository) UpdateTracking(ctx context.Context, id int64, trackingNumber string) (Transfer, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE inventory_transfers SET tracking_number=$2
		WHERE id=$1 AND status=$3`,
		id, trackingNumber, TransferInitiated)
	if err != nil {
		return Transfer{}, fmt.Errorf("inventory: update tracking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Transfer{}, ErrNotFound
	}
	return r.GetTransfer(ctx, id)
}

// ConfirmTransfer flips the status and moves every line's quantity from the
// source to the destination division atomically. Each source decrement checks
// availability inside the same transaction.
func (r *PGRepository) ConfirmTransfer(ctx context.Context, id, userID int64) (Transfer, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var t Transfer
		err := tx.QueryRow(ctx,
			`SELECT `+transferColumns+` FROM inventory_transfers WHERE id=$1 FOR UPDATE`, id).
			Scan(&t.ID, &t.OrganizationID, &t.Number, &t.FromDivisionID, &t.ToDivisionID,
				&t.Status, &t.TrackingNumber, &t.InitiatedBy, &t.ConfirmedBy, &t.InitiatedAt, &t.ConfirmedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("inventory: lock transfer: %w", err)
		}
		if t.Status == TransferConfirmed {
			return ErrAlreadyConfirmed
		}

		lines, err := r.listLinesTx(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, line := range lines {
			tag, err := tx.Exec(ctx, `
				UPDATE inventory_stock SET quantity = quantity - $4, updated_at = now()
				WHERE organization_id=$1 AND division_id=$2 AND item_id=$3 AND quantity >= $4`,
				t.OrganizationID, t.FromDivisionID, line.ItemID, line.Quantity)
			if err != nil {
				return fmt.Errorf("inventory: decrement stock: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return ErrInsufficientStock
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO inventory_stock (organization_id, division_id, item_id, quantity)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (division_id, item_id)
				DO UPDATE SET quantity = inventory_stock.quantity + EXCLUDED.quantity, updated_at = now()`,
				t.OrganizationID, t.ToDivisionID, line.ItemID, line.Quantity)
			if err != nil {
				return fmt.Errorf("inventory: increment stock: %w", err)
			}
		}

		_, err = tx.Exec(ctx, `
			UPDATE inventory_transfers SET status=$2, confirmed_by=$3, confirmed_at=now()
			WHERE id=$1`,
			id, TransferConfirmed, userID)
		if err != nil {
			return fmt.Errorf("inventory: confirm transfer: %w", err)
		}
		return nil
	})
	if err != nil {
		return Transfer{}, err
	}
	return r.GetTransfer(ctx, id)
}

func (r *PGRepository) listLinesTx(ctx context.Context, tx pgx.Tx, transferID int64) ([]TransferLine, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, transfer_id, item_id, quantity
		FROM inventory_transfer_lines WHERE transfer_id=$1 ORDER BY id`, transferID)
	if err != nil {
		return nil, fmt.Errorf("inventory: list lines: %w", err)
	}
	defer rows.Close()

	var out []TransferLine
	for rows.Next() {
		var l TransferLine
		if err := rows.Scan(&l.ID, &l.TransferID, &l.ItemID, &l.Quantity); err != nil {
			return nil, fmt.Errorf("inventory: scan line: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
