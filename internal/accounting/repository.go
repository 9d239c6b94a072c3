package accounting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// RepositoryPort abstracts accounting storage.
type RepositoryPort interface {
	ListAccounts(ctx context.Context, organizationID int64) ([]Account, error)
	GetAccount(ctx context.Context, id int64) (Account, error)
	CreateAccount(ctx context.Context, a Account) (Account, error)

	ListJournals(ctx context.Context, organizationID int64) ([]Journal, error)
	GetJournal(ctx context.Context, id int64) (Journal, error)
	CreateJournal(ctx context.Context, j Journal) (Journal, error)
	SetJournalStatus(ctx context.Context, id int64, status JournalStatus, userID int64) error

	ListRules(ctx context.Context, organizationID int64, eventType string) ([]Rule, error)
	GetRule(ctx context.Context, id int64) (Rule, error)
	CreateRule(ctx context.Context, r Rule) (Rule, error)
	UpdateRule(ctx context.Context, r Rule) (Rule, error)
	DeleteRule(ctx context.Context, id int64) error

	ListSubledger(ctx context.Context, organizationID int64, status SubledgerStatus) ([]SubledgerEntry, error)
	CreateSubledgerEntry(ctx context.Context, e SubledgerEntry) (SubledgerEntry, error)
	SettleSubledgerEntry(ctx context.Context, id int64) (SubledgerEntry, error)
	DeleteSubledgerByOrganization(ctx context.Context, organizationID int64) error

	LedgerBalances(ctx context.Context, organizationID int64) ([]LedgerBalance, error)
	OutstandingBalances(ctx context.Context, organizationID int64) ([]OutstandingBalance, error)
	UnbalancedJournals(ctx context.Context) ([]int64, error)
}

// PGRepository is the postgres-backed implementation of RepositoryPort.
// journals carries a partial unique index on (source_type, source_id) for
// posted source-linked journals, which makes event replays idempotent.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) ListAccounts(ctx context.Context, organizationID int64) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, organization_id, code, name, type, active, created_at
		FROM accounts WHERE organization_id=$1 ORDER BY code`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("accounting: list accounts: %w", err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.OrganizationID, &a.Code, &a.Name, &a.Type, &a.Active, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("accounting: scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PGRepository) GetAccount(ctx context.Context, id int64) (Account, error) {
	var a Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, organization_id, code, name, type, active, created_at
		FROM accounts WHERE id=$1`, id).
		Scan(&a.ID, &a.OrganizationID, &a.Code, &a.Name, &a.Type, &a.Active, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("accounting: get account: %w", err)
	}
	return a, nil
}

func (r *PGRepository) CreateAccount(ctx context.Context, a Account) (Account, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (organization_id, code, name, type, active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, created_at`,
		a.OrganizationID, a.Code, a.Name, a.Type).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return Account{}, fmt.Errorf("accounting: create account: %w", err)
	}
	a.Active = true
	return a, nil
}

const journalColumns = `id, organization_id, number, date, description, status, COALESCE(source_type, ''), COALESCE(source_id, 0), COALESCE(counterparty_org_id, 0), COALESCE(reversal_of, 0), COALESCE(posted_by, 0), posted_at, created_at`

func scanJournal(row pgx.Row) (Journal, error) {
	var j Journal
	err := row.Scan(&j.ID, &j.OrganizationID, &j.Number, &j.Date, &j.Description, &j.Status,
		&j.SourceType, &j.SourceID, &j.CounterpartyID, &j.ReversalOf, &j.PostedBy, &j.PostedAt, &j.CreatedAt)
	return j, err
}

func (r *PGRepository) ListJournals(ctx context.Context, organizationID int64) ([]Journal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+journalColumns+` FROM journals WHERE organization_id=$1 ORDER BY date DESC, id DESC`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("accounting: list journals: %w", err)
	}
	defer rows.Close()

	var out []Journal
	for rows.Next() {
		j, err := scanJournal(rows)
		if err != nil {
			return nil, fmt.Errorf("accounting: scan journal: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *PGRepository) GetJournal(ctx context.Context, id int64) (Journal, error) {
	j, err := scanJournal(r.pool.QueryRow(ctx, `SELECT `+journalColumns+` FROM journals WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Journal{}, ErrNotFound
	}
	if err != nil {
		return Journal{}, fmt.Errorf("accounting: get journal: %w", err)
	}
	j.Lines, err = r.listLines(ctx, j.ID)
	return j, err
}

func (r *PGRepository) listLines(ctx context.Context, journalID int64) ([]JournalLine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, journal_id, account_id, debit, credit, COALESCE(memo, '')
		FROM journal_lines WHERE journal_id=$1 ORDER BY id`, journalID)
	if err != nil {
		return nil, fmt.Errorf("accounting: list lines: %w", err)
	}
	defer rows.Close()

	var out []JournalLine
	for rows.Next() {
		var l JournalLine
		if err := rows.Scan(&l.ID, &l.JournalID, &l.AccountID, &l.Debit, &l.Credit, &l.Memo); err != nil {
			return nil, fmt.Errorf("accounting: scan line: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PGRepository) CreateJournal(ctx context.Context, j Journal) (Journal, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var sourceType any
		var sourceID any
		if j.SourceType != "" {
			sourceType, sourceID = j.SourceType, j.SourceID
		}
		var reversalOf any
		if j.ReversalOf != 0 {
			reversalOf = j.ReversalOf
		}
		var counterparty any
		if j.CounterpartyID != 0 {
			counterparty = j.CounterpartyID
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO journals (organization_id, number, date, description, status, source_type, source_id, counterparty_org_id, reversal_of)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at`,
			j.OrganizationID, j.Number, j.Date, j.Description, j.Status, sourceType, sourceID, counterparty, reversalOf).
			Scan(&j.ID, &j.CreatedAt)
		if isUniqueViolation(err) {
			return ErrDuplicateSource
		}
		if err != nil {
			return fmt.Errorf("accounting: insert journal: %w", err)
		}
		for i := range j.Lines {
			j.Lines[i].JournalID = j.ID
			err := tx.QueryRow(ctx, `
				INSERT INTO journal_lines (journal_id, account_id, debit, credit, memo)
				VALUES ($1, $2, $3, $4, $5) RETURNING id`,
				j.ID, j.Lines[i].AccountID, j.Lines[i].Debit, j.Lines[i].Credit, j.Lines[i].Memo).
				Scan(&j.Lines[i].ID)
			if err != nil {
				return fmt.Errorf("accounting: insert line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Journal{}, err
	}
	return j, nil
}

func (r *PGRepository) SetJournalStatus(ctx context.Context, id int64, status JournalStatus, userID int64) error {
	var postedBy any
	var postedAt any
	if status == JournalPosted {
		postedBy, postedAt = userID, time.Now().UTC()
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE journals SET status=$2,
			posted_by = COALESCE($3, posted_by),
			posted_at = COALESCE($4, posted_at)
		WHERE id=$1`,
		id, status, postedBy, postedAt)
	if err != nil {
		return fmt.Errorf("accounting: set journal status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) ListRules(ctx context.Context, organizationID int64, eventType string) ([]Rule, error) {
	query := `
		SELECT id, organization_id, name, event_type, combine, debit_account_id, credit_account_id,
		       amount_field, COALESCE(subledger_side, ''), priority, active, created_at
		FROM accounting_rules WHERE organization_id=$1`
	args := []any{organizationID}
	if eventType != "" {
		query += ` AND event_type=$2`
		args = append(args, eventType)
	}
	rows, err := r.pool.Query(ctx, query+` ORDER BY priority, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("accounting: list rules: %w", err)
	}
	defer rows.Close()

	var out []Rule
	for rows.Next() {
		var rule Rule
		if err := rows.Scan(&rule.ID, &rule.OrganizationID, &rule.Name, &rule.EventType, &rule.Combine,
			&rule.DebitAccountID, &rule.CreditAccountID, &rule.AmountField, &rule.SubledgerSide,
			&rule.Priority, &rule.Active, &rule.CreatedAt); err != nil {
			return nil, fmt.Errorf("accounting: scan rule: %w", err)
		}
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		criteria, err := r.listCriteria(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Criteria = criteria
	}
	return out, nil
}

func (r *PGRepository) listCriteria(ctx context.Context, ruleID int64) ([]Criterion, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, field, operator, value
		FROM accounting_rule_criteria WHERE rule_id=$1 ORDER BY id`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("accounting: list criteria: %w", err)
	}
	defer rows.Close()

	var out []Criterion
	for rows.Next() {
		var c Criterion
		if err := rows.Scan(&c.ID, &c.Field, &c.Operator, &c.Value); err != nil {
			return nil, fmt.Errorf("accounting: scan criterion: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PGRepository) GetRule(ctx context.Context, id int64) (Rule, error) {
	var rule Rule
	err := r.pool.QueryRow(ctx, `
		SELECT id, organization_id, name, event_type, combine, debit_account_id, credit_account_id,
		       amount_field, COALESCE(subledger_side, ''), priority, active, created_at
		FROM accounting_rules WHERE id=$1`, id).
		Scan(&rule.ID, &rule.OrganizationID, &rule.Name, &rule.EventType, &rule.Combine,
			&rule.DebitAccountID, &rule.CreditAccountID, &rule.AmountField, &rule.SubledgerSide,
			&rule.Priority, &rule.Active, &rule.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rule{}, ErrNotFound
	}
	if err != nil {
		return Rule{}, fmt.Errorf("accounting: get rule: %w", err)
	}
	rule.Criteria, err = r.listCriteria(ctx, rule.ID)
	return rule, err
}

func (r *PGRepository) CreateRule(ctx context.Context, rule Rule) (Rule, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO accounting_rules (organization_id, name, event_type, combine, debit_account_id, credit_account_id, amount_field, subledger_side, priority, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id, created_at`,
			rule.OrganizationID, rule.Name, rule.EventType, rule.Combine,
			rule.DebitAccountID, rule.CreditAccountID, rule.AmountField,
			rule.SubledgerSide, rule.Priority, rule.Active).
			Scan(&rule.ID, &rule.CreatedAt)
		if err != nil {
			return fmt.Errorf("accounting: insert rule: %w", err)
		}
		for i := range rule.Criteria {
			err := tx.QueryRow(ctx, `
				INSERT INTO accounting_rule_criteria (rule_id, field, operator, value)
				VALUES ($1, $2, $3, $4) RETURNING id`,
				rule.ID, rule.Criteria[i].Field, rule.Criteria[i].Operator, rule.Criteria[i].Value).
				Scan(&rule.Criteria[i].ID)
			if err != nil {
				return fmt.Errorf("accounting: insert criterion: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Rule{}, err
	}
	return rule, nil
}

func (r *PGRepository) UpdateRule(ctx context.Context, rule Rule) (Rule, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE accounting_rules
			SET name=$2, event_type=$3, combine=$4, debit_account_id=$5, credit_account_id=$6,
			    amount_field=$7, subledger_side=$8, priority=$9, active=$10
			WHERE id=$1`,
			rule.ID, rule.Name, rule.EventType, rule.Combine, rule.DebitAccountID,
			rule.CreditAccountID, rule.AmountField, rule.SubledgerSide, rule.Priority, rule.Active)
		if err != nil {
			return fmt.Errorf("accounting: update rule: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM accounting_rule_criteria WHERE rule_id=$1`, rule.ID); err != nil {
			return fmt.Errorf("accounting: clear criteria: %w", err)
		}
		for i := range rule.Criteria {
			err := tx.QueryRow(ctx, `
				INSERT INTO accounting_rule_criteria (rule_id, field, operator, value)
				VALUES ($1, $2, $3, $4) RETURNING id`,
				rule.ID, rule.Criteria[i].Field, rule.Criteria[i].Operator, rule.Criteria[i].Value).
				Scan(&rule.Criteria[i].ID)
			if err != nil {
				return fmt.Errorf("accounting: insert criterion: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Rule{}, err
	}
	return rule, nil
}

func (r *PGRepository) DeleteRule(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM accounting_rules WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("accounting: delete rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) ListSubledger(ctx context.Context, organizationID int64, status SubledgerStatus) ([]SubledgerEntry, error) {
	query := `
		SELECT id, organization_id, counterparty_org_id, journal_id, account_id, amount, status, settled_at, created_at
		FROM subledger_entries WHERE organization_id=$1`
	args := []any{organizationID}
	if status != "" {
		query += ` AND status=$2`
		args = append(args, status)
	}
	rows, err := r.pool.Query(ctx, query+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("accounting: list subledger: %w", err)
	}
	defer rows.Close()

	var out []SubledgerEntry
	for rows.Next() {
		var e SubledgerEntry
		if err := rows.Scan(&e.ID, &e.OrganizationID, &e.CounterpartyOrgID, &e.JournalID,
			&e.AccountID, &e.Amount, &e.Status, &e.SettledAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("accounting: scan subledger: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PGRepository) CreateSubledgerEntry(ctx context.Context, e SubledgerEntry) (SubledgerEntry, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO subledger_entries (organization_id, counterparty_org_id, journal_id, account_id, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		e.OrganizationID, e.CounterpartyOrgID, e.JournalID, e.AccountID, e.Amount, e.Status).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return SubledgerEntry{}, fmt.Errorf("accounting: create subledger entry: %w", err)
	}
	return e, nil
}

func (r *PGRepository) SettleSubledgerEntry(ctx context.Context, id int64) (SubledgerEntry, error) {
	var e SubledgerEntry
	err := r.pool.QueryRow(ctx, `
		UPDATE subledger_entries SET status=$2, settled_at=now()
		WHERE id=$1
		RETURNING id, organization_id, counterparty_org_id, journal_id, account_id, amount, status, settled_at, created_at`,
		id, SubledgerSettled).
		Scan(&e.ID, &e.OrganizationID, &e.CounterpartyOrgID, &e.JournalID,
			&e.AccountID, &e.Amount, &e.Status, &e.SettledAt, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SubledgerEntry{}, ErrNotFound
	}
	if err != nil {
		return SubledgerEntry{}, fmt.Errorf("accounting: settle subledger entry: %w", err)
	}
	return e, nil
}

func (r *PGRepository) DeleteSubledgerByOrganization(ctx context.Context, organizationID int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM subledger_entries WHERE organization_id=$1`, organizationID); err != nil {
		return fmt.Errorf("accounting: clear subledger: %w", err)
	}
	return nil
}

func (r *PGRepository) LedgerBalances(ctx context.Context, organizationID int64) ([]LedgerBalance, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.code, a.name,
		       COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
		FROM accounts a
		LEFT JOIN journal_lines l ON l.account_id = a.id
		LEFT JOIN journals j ON j.id = l.journal_id AND j.status = $2
		WHERE a.organization_id=$1
		GROUP BY a.id, a.code, a.name
		ORDER BY a.code`, organizationID, JournalPosted)
	if err != nil {
		return nil, fmt.Errorf("accounting: ledger balances: %w", err)
	}
	defer rows.Close()

	var out []LedgerBalance
	for rows.Next() {
		var b LedgerBalance
		if err := rows.Scan(&b.AccountID, &b.AccountCode, &b.AccountName, &b.Debit, &b.Credit); err != nil {
			return nil, fmt.Errorf("accounting: scan balance: %w", err)
		}
		b.Balance = b.Debit.Sub(b.Credit)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PGRepository) OutstandingBalances(ctx context.Context, organizationID int64) ([]OutstandingBalance, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.counterparty_org_id, o.code,
		       COALESCE(SUM(CASE WHEN s.amount > 0 THEN s.amount ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN s.amount < 0 THEN -s.amount ELSE 0 END), 0)
		FROM subledger_entries s
		JOIN organizations o ON o.id = s.counterparty_org_id
		WHERE s.organization_id=$1 AND s.status=$2
		GROUP BY s.counterparty_org_id, o.code
		ORDER BY o.code`, organizationID, SubledgerOpen)
	if err != nil {
		return nil, fmt.Errorf("accounting: outstanding balances: %w", err)
	}
	defer rows.Close()

	var out []OutstandingBalance
	for rows.Next() {
		var b OutstandingBalance
		if err := rows.Scan(&b.CounterpartyOrgID, &b.CounterpartyOrgCode, &b.Receivable, &b.Payable); err != nil {
			return nil, fmt.Errorf("accounting: scan outstanding: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UnbalancedJournals returns the ids of posted journals whose line sums do
// not cancel out. The integrity job alerts on any result.
func (r *PGRepository) UnbalancedJournals(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT j.id
		FROM journals j
		JOIN journal_lines l ON l.journal_id = j.id
		WHERE j.status=$1
		GROUP BY j.id
		HAVING SUM(l.debit) <> SUM(l.credit)`, JournalPosted)
	if err != nil {
		return nil, fmt.Errorf("accounting: unbalanced journals: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("accounting: scan journal id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
