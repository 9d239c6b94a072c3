// Package accounting holds the chart of accounts, journals, the rule engine
// that turns operational events into journal entries, the subledger and the
// general ledger views.
package accounting

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies chart-of-accounts entries.
type AccountType string

const (
	AccountAsset     AccountType = "Asset"
	AccountLiability AccountType = "Liability"
	AccountEquity    AccountType = "Equity"
	AccountIncome    AccountType = "Income"
	AccountExpense   AccountType = "Expense"
)

// Account is one chart-of-accounts entry owned by an organization.
type Account struct {
	ID             int64       `json:"id"`
	OrganizationID int64       `json:"organization_id"`
	Code           string      `json:"code"`
	Name           string      `json:"name"`
	Type           AccountType `json:"type"`
	Active         bool        `json:"active"`
	CreatedAt      time.Time   `json:"created_at"`
}

// TenantOrganization implements tenant.Scoped.
func (a Account) TenantOrganization() (int64, string) {
	return a.OrganizationID, ""
}

// JournalStatus enumerates the journal lifecycle.
type JournalStatus string

const (
	JournalDraft    JournalStatus = "Draft"
	JournalPosted   JournalStatus = "Posted"
	JournalReversed JournalStatus = "Reversed"
)

// JournalLine is one debit or credit on a journal.
type JournalLine struct {
	ID        int64           `json:"id"`
	JournalID int64           `json:"journal_id"`
	AccountID int64           `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Memo      string          `json:"memo,omitempty"`
}

// Journal is a double-entry journal. SourceType and SourceID link it to the
// operational record that produced it; the pair is unique so replayed events
// cannot post twice.
type Journal struct {
	ID             int64         `json:"id"`
	OrganizationID int64         `json:"organization_id"`
	Number         string        `json:"number"`
	Date           time.Time     `json:"date"`
	Description    string        `json:"description"`
	Status         JournalStatus `json:"status"`
	SourceType     string        `json:"source_type,omitempty"`
	SourceID       int64         `json:"source_id,omitempty"`
	CounterpartyID int64         `json:"counterparty_org_id,omitempty"`
	ReversalOf     int64         `json:"reversal_of,omitempty"`
	Lines          []JournalLine `json:"lines"`
	PostedBy       int64         `json:"posted_by,omitempty"`
	PostedAt       *time.Time    `json:"posted_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// TenantOrganization implements tenant.Scoped.
func (j Journal) TenantOrganization() (int64, string) {
	return j.OrganizationID, ""
}

// Totals returns the debit and credit sums across all lines.
func (j Journal) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, line := range j.Lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit, credit
}

// SubledgerStatus enumerates open-item states.
type SubledgerStatus string

const (
	SubledgerOpen    SubledgerStatus = "Open"
	SubledgerSettled SubledgerStatus = "Settled"
)

// SubledgerEntry is an open-item record against a counterparty organization.
type SubledgerEntry struct {
	ID                int64           `json:"id"`
	OrganizationID    int64           `json:"organization_id"`
	CounterpartyOrgID int64           `json:"counterparty_org_id"`
	JournalID         int64           `json:"journal_id"`
	AccountID         int64           `json:"account_id"`
	Amount            decimal.Decimal `json:"amount"`
	Status            SubledgerStatus `json:"status"`
	SettledAt         *time.Time      `json:"settled_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// LedgerBalance is an aggregated general-ledger row per account.
type LedgerBalance struct {
	AccountID   int64           `json:"account_id"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}

// OutstandingBalance aggregates open subledger amounts per counterparty,
// split into amounts the organization owes (bill-to) and amounts owed to it
// (remit-to).
type OutstandingBalance struct {
	CounterpartyOrgID   int64           `json:"counterparty_org_id"`
	CounterpartyOrgCode string          `json:"counterparty_org_code"`
	Receivable          decimal.Decimal `json:"receivable"`
	Payable             decimal.Decimal `json:"payable"`
}

var (
	// ErrNotFound indicates a missing accounting record.
	ErrNotFound = errors.New("accounting: not found")
	// ErrUnbalanced indicates a journal whose debits and credits differ.
	ErrUnbalanced = errors.New("accounting: journal debits and credits must balance")
	// ErrInvalidStatus indicates an operation on a journal in the wrong state.
	ErrInvalidStatus = errors.New("accounting: invalid journal status for operation")
	// ErrDuplicateSource indicates a journal already exists for the source link.
	ErrDuplicateSource = errors.New("accounting: journal already posted for source")
	// ErrNoLines indicates a journal without lines.
	ErrNoLines = errors.New("accounting: journal needs at least one line")
)
