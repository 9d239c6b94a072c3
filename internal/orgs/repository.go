package orgs

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort abstracts organization and division storage.
type RepositoryPort interface {
	ListOrganizations(ctx context.Context) ([]Organization, error)
	GetOrganization(ctx context.Context, id int64) (Organization, error)
	GetOrganizationByCode(ctx context.Context, code string) (Organization, error)
	CreateOrganization(ctx context.Context, org Organization) (Organization, error)
	UpdateOrganization(ctx context.Context, org Organization) (Organization, error)
	DeleteOrganization(ctx context.Context, id int64) error

	ListDivisions(ctx context.Context, organizationID int64) ([]Division, error)
	GetDivision(ctx context.Context, id int64) (Division, error)
	CreateDivision(ctx context.Context, div Division) (Division, error)
	UpdateDivision(ctx context.Context, div Division) (Division, error)

	ReplaceContacts(ctx context.Context, organizationID int64, contacts []Contact) error
	ReplaceReferences(ctx context.Context, organizationID int64, refs []Reference) error

	CreateUser(ctx context.Context, email, name, passwordHash string, organizationID int64) (int64, error)
	FindUserIDByEmail(ctx context.Context, email string) (int64, error)
	DeleteUser(ctx context.Context, id int64) error
}

// PGRepository is the postgres-backed implementation of RepositoryPort.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const orgColumns = `id, code, name, alias, type, status, created_at, updated_at`

func scanOrganization(row pgx.Row) (Organization, error) {
	var o Organization
	err := row.Scan(&o.ID, &o.Code, &o.Name, &o.Alias, &o.Type, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (r *PGRepository) ListOrganizations(ctx context.Context) ([]Organization, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orgColumns+` FROM organizations ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("orgs: list organizations: %w", err)
	}
	defer rows.Close()

	var out []Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("orgs: scan organization: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PGRepository) GetOrganization(ctx context.Context, id int64) (Organization, error) {
	o, err := scanOrganization(r.pool.QueryRow(ctx,
		`SELECT `+orgColumns+` FROM organizations WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Organization{}, ErrNotFound
	}
	if err != nil {
		return Organization{}, fmt.Errorf("orgs: get organization: %w", err)
	}
	o.Contacts, err = r.listContacts(ctx, o.ID)
	if err != nil {
		return Organization{}, err
	}
	o.References, err = r.listReferences(ctx, o.ID)
	if err != nil {
		return Organization{}, err
	}
	return o, nil
}

func (r *PGRepository) GetOrganizationByCode(ctx context.Context, code string) (Organization, error) {
	o, err := scanOrganization(r.pool.QueryRow(ctx,
		`SELECT `+orgColumns+` FROM organizations WHERE code=$1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return Organization{}, ErrNotFound
	}
	if err != nil {
		return Organization{}, fmt.Errorf("orgs: get organization by code: %w", err)
	}
	return o, nil
}

func (r *PGRepository) CreateOrganization(ctx context.Context, org Organization) (Organization, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO organizations (code, name, alias, type, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+orgColumns,
		org.Code, org.Name, org.Alias, org.Type, org.Status)
	created, err := scanOrganization(row)
	if isUniqueViolation(err) {
		return Organization{}, ErrDuplicateCode
	}
	if err != nil {
		return Organization{}, fmt.Errorf("orgs: create organization: %w", err)
	}
	return created, nil
}

func (r *PGRepository) UpdateOrganization(ctx context.Context, org Organization) (Organization, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE organizations
		SET name=$2, alias=$3, type=$4, status=$5, updated_at=now()
		WHERE id=$1
		RETURNING `+orgColumns,
		org.ID, org.Name, org.Alias, org.Type, org.Status)
	updated, err := scanOrganization(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Organization{}, ErrNotFound
	}
	if err != nil {
		return Organization{}, fmt.Errorf("orgs: update organization: %w", err)
	}
	return updated, nil
}

func (r *PGRepository) DeleteOrganization(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM organizations WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("orgs: delete organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const divisionColumns = `id, organization_id, code, name, status, created_at, updated_at`

func scanDivision(row pgx.Row) (Division, error) {
	var d Division
	err := row.Scan(&d.ID, &d.OrganizationID, &d.Code, &d.Name, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (r *PGRepository) ListDivisions(ctx context.Context, organizationID int64) ([]Division, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+divisionColumns+` FROM divisions WHERE organization_id=$1 ORDER BY code`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("orgs: list divisions: %w", err)
	}
	defer rows.Close()

	var out []Division
	for rows.Next() {
		d, err := scanDivision(rows)
		if err != nil {
			return nil, fmt.Errorf("orgs: scan division: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PGRepository) GetDivision(ctx context.Context, id int64) (Division, error) {
	d, err := scanDivision(r.pool.QueryRow(ctx,
		`SELECT `+divisionColumns+` FROM divisions WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Division{}, ErrNotFound
	}
	if err != nil {
		return Division{}, fmt.Errorf("orgs: get division: %w", err)
	}
	return d, nil
}

func (r *PGRepository) CreateDivision(ctx context.Context, div Division) (Division, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO divisions (organization_id, code, name, status)
		VALUES ($1, $2, $3, $4)
		RETURNING `+divisionColumns,
		div.OrganizationID, div.Code, div.Name, div.Status)
	created, err := scanDivision(row)
	if isUniqueViolation(err) {
		return Division{}, ErrDuplicateCode
	}
	if err != nil {
		return Division{}, fmt.Errorf("orgs: create division: %w", err)
	}
	return created, nil
}

func (r *PGRepository) UpdateDivision(ctx context.Context, div Division) (Division, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE divisions
		SET name=$2, status=$3, updated_at=now()
		WHERE id=$1
		RETURNING `+divisionColumns,
		div.ID, div.Name, div.Status)
	updated, err := scanDivision(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Division{}, ErrNotFound
	}
	if err != nil {
		return Division{}, fmt.Errorf("orgs: update division: %w", err)
	}
	return updated, nil
}

func (r *PGRepository) listContacts(ctx context.Context, organizationID int64) ([]Contact, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, email, phone, address, city, state, state_code, postal, country
		FROM organization_contacts WHERE organization_id=$1 ORDER BY id`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("orgs: list contacts: %w", err)
	}
	defer rows.Close()

	var out []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.City, &c.State, &c.StateCode, &c.Postal, &c.Country); err != nil {
			return nil, fmt.Errorf("orgs: scan contact: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PGRepository) ReplaceContacts(ctx context.Context, organizationID int64, contacts []Contact) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM organization_contacts WHERE organization_id=$1`, organizationID); err != nil {
		return fmt.Errorf("orgs: clear contacts: %w", err)
	}
	for _, c := range contacts {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO organization_contacts (organization_id, name, email, phone, address, city, state, state_code, postal, country)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			organizationID, c.Name, c.Email, c.Phone, c.Address, c.City, c.State, c.StateCode, c.Postal, c.Country)
		if err != nil {
			return fmt.Errorf("orgs: insert contact: %w", err)
		}
	}
	return nil
}

func (r *PGRepository) listReferences(ctx context.Context, organizationID int64) ([]Reference, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, type, value
		FROM organization_references WHERE organization_id=$1 ORDER BY id`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("orgs: list references: %w", err)
	}
	defer rows.Close()

	var out []Reference
	for rows.Next() {
		var ref Reference
		if err := rows.Scan(&ref.ID, &ref.Type, &ref.Value); err != nil {
			return nil, fmt.Errorf("orgs: scan reference: %w", err)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func (r *PGRepository) ReplaceReferences(ctx context.Context, organizationID int64, refs []Reference) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM organization_references WHERE organization_id=$1`, organizationID); err != nil {
		return fmt.Errorf("orgs: clear references: %w", err)
	}
	for _, ref := range refs {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO organization_references (organization_id, type, value)
			VALUES ($1, $2, $3)`,
			organizationID, ref.Type, ref.Value)
		if err != nil {
			return fmt.Errorf("orgs: insert reference: %w", err)
		}
	}
	return nil
}

func (r *PGRepository) CreateUser(ctx context.Context, email, name, passwordHash string, organizationID int64) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash, organization_id, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id`,
		email, name, passwordHash, organizationID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("orgs: create user: %w", err)
	}
	return id, nil
}

func (r *PGRepository) FindUserIDByEmail(ctx context.Context, email string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT id FROM users WHERE email=$1`, email).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("orgs: find user: %w", err)
	}
	return id, nil
}

func (r *PGRepository) DeleteUser(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id); err != nil {
		return fmt.Errorf("orgs: delete user: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
