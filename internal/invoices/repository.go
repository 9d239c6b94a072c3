package invoices

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

// RepositoryPort abstracts invoice storage.
type RepositoryPort interface {
	List(ctx context.Context, organizationID int64) ([]Invoice, error)
	Get(ctx context.Context, id int64) (Invoice, error)
	Create(ctx context.Context, inv Invoice) (Invoice, error)
	ReplaceLines(ctx context.Context, id int64, lines []Line, subtotal, taxTotal, grandTotal decimal.Decimal) error
	SetStatus(ctx context.Context, id int64, status Status, userID int64, paidAt *time.Time) error
}

// PGRepository is the postgres-backed implementation of RepositoryPort.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const invoiceColumns = `id, organization_id, bill_to_org_id, number, status, interstate, subtotal, tax_total, grand_total, created_by, COALESCE(approved_by, 0), paid_at, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.OrganizationID, &inv.BillToOrgID, &inv.Number,
		&inv.Status, &inv.Interstate, &inv.Subtotal, &inv.TaxTotal, &inv.GrandTotal,
		&inv.CreatedBy, &inv.ApprovedBy, &inv.PaidAt, &inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

func (r *PGRepository) List(ctx context.Context, organizationID int64) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE organization_id=$1 ORDER BY created_at DESC`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("invoices: list: %w", err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("invoices: scan: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *PGRepository) Get(ctx context.Context, id int64) (Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrNotFound
	}
	if err != nil {
		return Invoice{}, fmt.Errorf("invoices: get: %w", err)
	}
	inv.Lines, err = r.listLines(ctx, inv.ID)
	return inv, err
}

func (r *PGRepository) listLines(ctx context.Context, invoiceID int64) ([]Line, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, invoice_id, item_id, quantity, unit_price, gst_rate, cgst_amount, sgst_amount, igst_amount, line_total
		FROM invoice_lines WHERE invoice_id=$1 ORDER BY id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("invoices: list lines: %w", err)
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.ItemID, &l.Quantity, &l.UnitPrice,
			&l.GSTRate, &l.CGSTAmount, &l.SGSTAmount, &l.IGSTAmount, &l.LineTotal); err != nil {
			return nil, fmt.Errorf("invoices: scan line: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PGRepository) Create(ctx context.Context, inv Invoice) (Invoice, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO invoices (organization_id, bill_to_org_id, number, status, interstate, subtotal, tax_total, grand_total, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at, updated_at`,
			inv.OrganizationID, inv.BillToOrgID, inv.Number, inv.Status,
			inv.Interstate, inv.Subtotal, inv.TaxTotal, inv.GrandTotal, inv.CreatedBy).
			Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
		if err != nil {
			return fmt.Errorf("invoices: insert: %w", err)
		}
		return insertLines(ctx, tx, inv.ID, inv.Lines)
	})
	if err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

func insertLines(ctx context.Context, tx pgx.Tx, invoiceID int64, lines []Line) error {
	for i := range lines {
		lines[i].InvoiceID = invoiceID
		err := tx.QueryRow(ctx, `
			INSERT INTO invoice_lines (invoice_id, item_id, quantity, unit_price, gst_rate, cgst_amount, sgst_amount, igst_amount, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id`,
			invoiceID, lines[i].ItemID, lines[i].Quantity, lines[i].UnitPrice,
			lines[i].GSTRate, lines[i].CGSTAmount, lines[i].SGSTAmount,
			lines[i].IGSTAmount, lines[i].LineTotal).
			Scan(&lines[i].ID)
		if err != nil {
			return fmt.Errorf("invoices: insert line: %w", err)
		}
	}
	return nil
}

// ReplaceLines swaps the full line set and totals while the invoice is a
// draft.
func (r *PGRepository) ReplaceLines(ctx context.Context, id int64, lines []Line, subtotal, taxTotal, grandTotal decimal.Decimal) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE invoices SET subtotal=$2, tax_total=$3, grand_total=$4, updated_at=now()
			WHERE id=$1 AND status=$5`,
			id, subtotal, taxTotal, grandTotal, StatusDraft)
		if err != nil {
			return fmt.Errorf("invoices: update totals: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotDraft
		}
		if _, err := tx.Exec(ctx, `DELETE FROM invoice_lines WHERE invoice_id=$1`, id); err != nil {
			return fmt.Errorf("invoices: delete lines: %w", err)
		}
		return insertLines(ctx, tx, id, lines)
	})
}

func (r *PGRepository) SetStatus(ctx context.Context, id int64, status Status, userID int64, paidAt *time.Time) error {
	var approvedBy any
	if status == StatusApproved {
		approvedBy = userID
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE invoices
		SET status=$2, approved_by=COALESCE($3, approved_by), paid_at=COALESCE($4, paid_at), updated_at=now()
		WHERE id=$1`,
		id, status, approvedBy, paidAt)
	if err != nil {
		return fmt.Errorf("invoices: set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
