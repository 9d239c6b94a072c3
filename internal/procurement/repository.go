package procurement

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// RepositoryPort abstracts purchase order storage.
type RepositoryPort interface {
	List(ctx context.Context, organizationID int64) ([]Order, error)
	Get(ctx context.Context, id int64) (Order, error)
	Create(ctx context.Context, o Order) (Order, error)
	SetStatus(ctx context.Context, id int64, status Status, userID int64) error
	ApplyReceipt(ctx context.Context, id int64, lines []ReceiptLine, status Status) error
}

// PGRepository is the postgres-backed implementation of RepositoryPort.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const orderColumns = `id, organization_id, supplier_org_id, division_id, number, status, interstate, subtotal, tax_total, grand_total, created_by, COALESCE(approved_by, 0), created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrganizationID, &o.SupplierOrgID, &o.DivisionID, &o.Number,
		&o.Status, &o.Interstate, &o.Subtotal, &o.TaxTotal, &o.GrandTotal,
		&o.CreatedBy, &o.ApprovedBy, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (r *PGRepository) List(ctx context.Context, organizationID int64) ([]Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM purchase_orders WHERE organization_id=$1 ORDER BY created_at DESC`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("procurement: list orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("procurement: scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PGRepository) Get(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM purchase_orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("procurement: get order: %w", err)
	}
	o.Lines, err = r.listLines(ctx, o.ID)
	return o, err
}

func (r *PGRepository) listLines(ctx context.Context, orderID int64) ([]Line, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, item_id, quantity, received, unit_price, gst_rate, cgst_amount, sgst_amount, igst_amount, line_total
		FROM purchase_order_lines WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("procurement: list lines: %w", err)
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ItemID, &l.Quantity, &l.Received, &l.UnitPrice,
			&l.GSTRate, &l.CGSTAmount, &l.SGSTAmount, &l.IGSTAmount, &l.LineTotal); err != nil {
			return nil, fmt.Errorf("procurement: scan line: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PGRepository) Create(ctx context.Context, o Order) (Order, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO purchase_orders (organization_id, supplier_org_id, division_id, number, status, interstate, subtotal, tax_total, grand_total, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id, created_at, updated_at`,
			o.OrganizationID, o.SupplierOrgID, o.DivisionID, o.Number, o.Status,
			o.Interstate, o.Subtotal, o.TaxTotal, o.GrandTotal, o.CreatedBy).
			Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return fmt.Errorf("procurement: insert order: %w", err)
		}
		for i := range o.Lines {
			o.Lines[i].OrderID = o.ID
			err := tx.QueryRow(ctx, `
				INSERT INTO purchase_order_lines (order_id, item_id, quantity, received, unit_price, gst_rate, cgst_amount, sgst_amount, igst_amount, line_total)
				VALUES ($1, $2, $3, 0, $4, $5, $6, $7, $8, $9)
				RETURNING id`,
				o.ID, o.Lines[i].ItemID, o.Lines[i].Quantity, o.Lines[i].UnitPrice,
				o.Lines[i].GSTRate, o.Lines[i].CGSTAmount, o.Lines[i].SGSTAmount,
				o.Lines[i].IGSTAmount, o.Lines[i].LineTotal).
				Scan(&o.Lines[i].ID)
			if err != nil {
				return fmt.Errorf("procurement: insert line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *PGRepository) SetStatus(ctx context.Context, id int64, status Status, userID int64) error {
	var approvedBy any
	if status == StatusApproved {
		approvedBy = userID
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE purchase_orders
		SET status=$2, approved_by=COALESCE($3, approved_by), updated_at=now()
		WHERE id=$1`,
		id, status, approvedBy)
	if err != nil {
		return fmt.Errorf("procurement: set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyReceipt bumps received quantities and flips the status in a single
// transaction.
func (r *PGRepository) ApplyReceipt(ctx context.Context, id int64, lines []ReceiptLine, status Status) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, line := range lines {
			tag, err := tx.Exec(ctx, `
				UPDATE purchase_order_lines
				SET received = received + $3
				WHERE id=$1 AND order_id=$2 AND received + $3 <= quantity`,
				line.LineID, id, line.Quantity)
			if err != nil {
				return fmt.Errorf("procurement: apply receipt line: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return ErrOverReceipt
			}
		}
		tag, err := tx.Exec(ctx, `UPDATE purchase_orders SET status=$2, updated_at=now() WHERE id=$1`, id, status)
		if err != nil {
			return fmt.Errorf("procurement: update order status: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}
