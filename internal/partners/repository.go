package partners

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort abstracts partnership storage.
type RepositoryPort interface {
	ListByOwner(ctx context.Context, ownerOrgID int64) ([]Partnership, error)
	Get(ctx context.Context, id int64) (Partnership, error)
	Create(ctx context.Context, ownerOrgID, partnerOrgID int64) (Partnership, error)
	SetStatus(ctx context.Context, id int64, status Status) (Partnership, error)
}

// PGRepository is the postgres-backed implementation of RepositoryPort.
// partnerships carries a unique constraint on (owner_org_id, partner_org_id).
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const partnershipSelect = `
	SELECT p.id, p.owner_org_id, owner.code, p.partner_org_id, partner.code,
	       partner.name, partner.type, p.status, p.created_at, p.updated_at
	FROM partnerships p
	JOIN organizations owner ON owner.id = p.owner_org_id
	JOIN organizations partner ON partner.id = p.partner_org_id`

func scanPartnership(row pgx.Row) (Partnership, error) {
	var p Partnership
	err := row.Scan(&p.ID, &p.OwnerOrgID, &p.OwnerOrgCode, &p.PartnerOrgID, &p.PartnerOrgCode,
		&p.PartnerName, &p.PartnerType, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *PGRepository) ListByOwner(ctx context.Context, ownerOrgID int64) ([]Partnership, error) {
	rows, err := r.pool.Query(ctx, partnershipSelect+` WHERE p.owner_org_id=$1 ORDER BY partner.code`, ownerOrgID)
	if err != nil {
		return nil, fmt.Errorf("partners: list: %w", err)
	}
	defer rows.Close()

	var out []Partnership
	for rows.Next() {
		p, err := scanPartnership(rows)
		if err != nil {
			return nil, fmt.Errorf("partners: scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGRepository) Get(ctx context.Context, id int64) (Partnership, error) {
	p, err := scanPartnership(r.pool.QueryRow(ctx, partnershipSelect+` WHERE p.id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Partnership{}, ErrNotFound
	}
	if err != nil {
		return Partnership{}, fmt.Errorf("partners: get: %w", err)
	}
	return p, nil
}

func (r *PGRepository) Create(ctx context.Context, ownerOrgID, partnerOrgID int64) (Partnership, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO partnerships (owner_org_id, partner_org_id, status)
		VALUES ($1, $2, $3)
		RETURNING id`,
		ownerOrgID, partnerOrgID, StatusActive).Scan(&id)
	if isUniqueViolation(err) {
		return Partnership{}, ErrDuplicate
	}
	if err != nil {
		return Partnership{}, fmt.Errorf("partners: create: %w", err)
	}
	return r.Get(ctx, id)
}

func (r *PGRepository) SetStatus(ctx context.Context, id int64, status Status) (Partnership, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE partnerships SET status=$2, updated_at=now() WHERE id=$1`, id, status)
	if err != nil {
		return Partnership{}, fmt.Errorf("partners: set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Partnership{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
