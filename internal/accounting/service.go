package accounting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/tenant"
)

// Service carries the accounting business rules.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
	audit  shared.AuditRecorder
}

func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// WithAudit turns on audit trail writes for financial mutations.
func (s *Service) WithAudit(rec shared.AuditRecorder) *Service {
	s.audit = rec
	return s
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, entity string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
		At:       time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error("audit write failed", slog.String("action", action), slog.Any("error", err))
	}
}

func actorID(ctx context.Context) int64 {
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		return 0
	}
	id, _ := strconv.ParseInt(strings.TrimSpace(sess.User()), 10, 64)
	return id
}

func orgID(ctx context.Context) (int64, bool) {
	scope := tenant.ScopeFromContext(ctx)
	if scope == nil || !scope.Valid() {
		return 0, false
	}
	return scope.OrganizationID, true
}

func (s *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	id, ok := orgID(ctx)
	if !ok {
		return nil, nil
	}
	return s.repo.ListAccounts(ctx, id)
}

// AccountInput is the validated payload for CreateAccount.
type AccountInput struct {
	Code string      `json:"code" validate:"required,min=2,max=20"`
	Name string      `json:"name" validate:"required,min=2,max=120"`
	Type AccountType `json:"type" validate:"required,oneof=Asset Liability Equity Income Expense"`
}

func (s *Service) CreateAccount(ctx context.Context, in AccountInput) (Account, error) {
	id, ok := orgID(ctx)
	if !ok {
		return Account{}, ErrNotFound
	}
	return s.repo.CreateAccount(ctx, Account{
		OrganizationID: id,
		Code:           in.Code,
		Name:           in.Name,
		Type:           in.Type,
	})
}

func (s *Service) ListJournals(ctx context.Context) ([]Journal, error) {
	id, ok := orgID(ctx)
	if !ok {
		return nil, nil
	}
	return s.repo.ListJournals(ctx, id)
}

func (s *Service) GetJournal(ctx context.Context, id int64) (Journal, error) {
	j, err := s.repo.GetJournal(ctx, id)
	if err != nil {
		return Journal{}, err
	}
	if visible := tenant.FilterByOrganization(tenant.ScopeFromContext(ctx), []Journal{j}); len(visible) == 0 {
		return Journal{}, ErrNotFound
	}
	return j, nil
}

// CreateDraft records a journal in the draft state. Drafts may be unbalanced;
// the balance invariant is enforced at posting time.
func (s *Service) CreateDraft(ctx context.Context, description string, date time.Time, lines []JournalLine) (Journal, error) {
	id, ok := orgID(ctx)
	if !ok {
		return Journal{}, ErrNotFound
	}
	if len(lines) == 0 {
		return Journal{}, ErrNoLines
	}
	return s.repo.CreateJournal(ctx, Journal{
		OrganizationID: id,
		Number:         journalNumber(),
		Date:           date,
		Description:    description,
		Status:         JournalDraft,
		Lines:          lines,
	})
}

// Post moves a draft journal to posted. Debits and credits must cancel out
// exactly; any difference rejects the whole journal.
func (s *Service) Post(ctx context.Context, id, userID int64) (Journal, error) {
	j, err := s.GetJournal(ctx, id)
	if err != nil {
		return Journal{}, err
	}
	if j.Status != JournalDraft {
		return Journal{}, ErrInvalidStatus
	}
	debit, credit := j.Totals()
	if !debit.Equal(credit) {
		return Journal{}, fmt.Errorf("%w: debit %s, credit %s", ErrUnbalanced, debit, credit)
	}
	if err := s.repo.SetJournalStatus(ctx, id, JournalPosted, userID); err != nil {
		return Journal{}, err
	}
	s.recordAudit(ctx, userID, "journal.posted", "journal", id, map[string]any{"number": j.Number})
	s.logger.Info("journal posted", "number", j.Number, "by", userID)
	return s.GetJournal(ctx, id)
}

// Reverse posts a mirror journal and marks the original reversed. Only posted
// journals can be reversed.
func (s *Service) Reverse(ctx context.Context, id, userID int64) (Journal, error) {
	original, err := s.GetJournal(ctx, id)
	if err != nil {
		return Journal{}, err
	}
	if original.Status != JournalPosted {
		return Journal{}, ErrInvalidStatus
	}

	mirror := make([]JournalLine, 0, len(original.Lines))
	for _, line := range original.Lines {
		mirror = append(mirror, JournalLine{
			AccountID: line.AccountID,
			Debit:     line.Credit,
			Credit:    line.Debit,
			Memo:      line.Memo,
		})
	}
	reversal, err := s.repo.CreateJournal(ctx, Journal{
		OrganizationID: original.OrganizationID,
		Number:         journalNumber(),
		Date:           time.Now().UTC(),
		Description:    "Reversal of " + original.Number,
		Status:         JournalDraft,
		ReversalOf:     original.ID,
		Lines:          mirror,
	})
	if err != nil {
		return Journal{}, err
	}
	if err := s.repo.SetJournalStatus(ctx, reversal.ID, JournalPosted, userID); err != nil {
		return Journal{}, err
	}
	if err := s.repo.SetJournalStatus(ctx, original.ID, JournalReversed, userID); err != nil {
		return Journal{}, err
	}
	s.recordAudit(ctx, userID, "journal.reversed", "journal", original.ID, map[string]any{"number": original.Number, "reversal": reversal.Number})
	s.logger.Info("journal reversed", "number", original.Number, "reversal", reversal.Number)
	return s.GetJournal(ctx, reversal.ID)
}

func (s *Service) ListRules(ctx context.Context) ([]Rule, error) {
	id, ok := orgID(ctx)
	if !ok {
		return nil, nil
	}
	return s.repo.ListRules(ctx, id, "")
}

func (s *Service) GetRule(ctx context.Context, id int64) (Rule, error) {
	rule, err := s.repo.GetRule(ctx, id)
	if err != nil {
		return Rule{}, err
	}
	if visible := tenant.FilterByOrganization(tenant.ScopeFromContext(ctx), []Rule{rule}); len(visible) == 0 {
		return Rule{}, ErrNotFound
	}
	return rule, nil
}

func (s *Service) CreateRule(ctx context.Context, rule Rule) (Rule, error) {
	id, ok := orgID(ctx)
	if !ok {
		return Rule{}, ErrNotFound
	}
	rule.OrganizationID = id
	if rule.Combine == "" {
		rule.Combine = CombineAll
	}
	created, err := s.repo.CreateRule(ctx, rule)
	if err != nil {
		return Rule{}, err
	}
	s.recordAudit(ctx, actorID(ctx), "rule.created", "accounting_rule", created.ID, map[string]any{"name": created.Name})
	return created, nil
}

func (s *Service) UpdateRule(ctx context.Context, rule Rule) (Rule, error) {
	existing, err := s.GetRule(ctx, rule.ID)
	if err != nil {
		return Rule{}, err
	}
	rule.OrganizationID = existing.OrganizationID
	if rule.Combine == "" {
		rule.Combine = CombineAll
	}
	updated, err := s.repo.UpdateRule(ctx, rule)
	if err != nil {
		return Rule{}, err
	}
	s.recordAudit(ctx, actorID(ctx), "rule.updated", "accounting_rule", updated.ID, map[string]any{"name": updated.Name})
	return updated, nil
}

func (s *Service) DeleteRule(ctx context.Context, id int64) error {
	if _, err := s.GetRule(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteRule(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID(ctx), "rule.deleted", "accounting_rule", id, nil)
	return nil
}

// ProcessEvent runs the organization's rules against an operational event and
// posts one journal per matched rule. Rules that fail to evaluate are logged
// and skipped; a replayed event is absorbed by the source-link uniqueness.
func (s *Service) ProcessEvent(ctx context.Context, event Event) error {
	rules, err := s.repo.ListRules(ctx, event.OrganizationID, event.Type)
	if err != nil {
		return err
	}
	instructions, failures := Evaluate(rules, event)
	for _, failure := range failures {
		s.logger.Warn("accounting rule skipped", "rule", failure.Name, "error", failure.Err)
	}

	for i, instruction := range instructions {
		journal, err := s.repo.CreateJournal(ctx, Journal{
			OrganizationID: event.OrganizationID,
			Number:         journalNumber(),
			Date:           event.OccurredAt,
			Description:    fmt.Sprintf("%s (%s)", instruction.Rule.Name, event.Type),
			Status:         JournalDraft,
			SourceType:     sourceLink(event, instruction.Rule.ID),
			SourceID:       event.SourceID,
			CounterpartyID: event.CounterpartyOrgID,
			Lines: []JournalLine{
				{AccountID: instruction.Rule.DebitAccountID, Debit: instruction.Amount, Credit: decimal.Zero},
				{AccountID: instruction.Rule.CreditAccountID, Debit: decimal.Zero, Credit: instruction.Amount},
			},
		})
		if errors.Is(err, ErrDuplicateSource) {
			s.logger.Info("accounting event already booked",
				"event", event.Type, "source", event.SourceID, "rule", instruction.Rule.Name)
			continue
		}
		if err != nil {
			return fmt.Errorf("accounting: book event %s (rule %d of %d): %w", event.Type, i+1, len(instructions), err)
		}
		if err := s.repo.SetJournalStatus(ctx, journal.ID, JournalPosted, 0); err != nil {
			return err
		}
		if instruction.Rule.SubledgerSide != "" && event.CounterpartyOrgID != 0 {
			amount := instruction.Amount
			if instruction.Rule.SubledgerSide == "payable" {
				amount = amount.Neg()
			}
			accountID := instruction.Rule.DebitAccountID
			if instruction.Rule.SubledgerSide == "payable" {
				accountID = instruction.Rule.CreditAccountID
			}
			_, err := s.repo.CreateSubledgerEntry(ctx, SubledgerEntry{
				OrganizationID:    event.OrganizationID,
				CounterpartyOrgID: event.CounterpartyOrgID,
				JournalID:         journal.ID,
				AccountID:         accountID,
				Amount:            amount,
				Status:            SubledgerOpen,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) ListSubledger(ctx context.Context, status SubledgerStatus) ([]SubledgerEntry, error) {
	id, ok := orgID(ctx)
	if !ok {
		return nil, nil
	}
	return s.repo.ListSubledger(ctx, id, status)
}

func (s *Service) SettleSubledgerEntry(ctx context.Context, id int64) (SubledgerEntry, error) {
	orgID, ok := orgID(ctx)
	if !ok {
		return SubledgerEntry{}, ErrNotFound
	}
	entries, err := s.repo.ListSubledger(ctx, orgID, "")
	if err != nil {
		return SubledgerEntry{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return s.repo.SettleSubledgerEntry(ctx, id)
		}
	}
	return SubledgerEntry{}, ErrNotFound
}

func (s *Service) LedgerBalances(ctx context.Context) ([]LedgerBalance, error) {
	id, ok := orgID(ctx)
	if !ok {
		return nil, nil
	}
	return s.repo.LedgerBalances(ctx, id)
}

func (s *Service) OutstandingBalances(ctx context.Context) ([]OutstandingBalance, error) {
	id, ok := orgID(ctx)
	if !ok {
		return nil, nil
	}
	return s.repo.OutstandingBalances(ctx, id)
}

// UnbalancedJournals returns posted journals whose lines no longer cancel
// out. A healthy ledger returns an empty slice.
func (s *Service) UnbalancedJournals(ctx context.Context) ([]int64, error) {
	return s.repo.UnbalancedJournals(ctx)
}

// RebuildSubledger drops and reconstructs an organization's subledger from
// its posted event journals. Settlement state is lost; entries come back
// Open.
func (s *Service) RebuildSubledger(ctx context.Context, organizationID int64) error {
	rules, err := s.repo.ListRules(ctx, organizationID, "")
	if err != nil {
		return err
	}
	byID := make(map[int64]Rule, len(rules))
	for _, rule := range rules {
		byID[rule.ID] = rule
	}

	journals, err := s.repo.ListJournals(ctx, organizationID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteSubledgerByOrganization(ctx, organizationID); err != nil {
		return err
	}

	rebuilt := 0
	for _, j := range journals {
		if j.Status != JournalPosted || j.CounterpartyID == 0 {
			continue
		}
		hash := strings.LastIndexByte(j.SourceType, '#')
		if hash < 0 {
			continue
		}
		ruleID, err := strconv.ParseInt(j.SourceType[hash+1:], 10, 64)
		if err != nil {
			continue
		}
		rule, ok := byID[ruleID]
		if !ok || rule.SubledgerSide == "" {
			continue
		}

		full, err := s.repo.GetJournal(ctx, j.ID)
		if err != nil {
			return err
		}
		amount, _ := full.Totals()
		accountID := rule.DebitAccountID
		if rule.SubledgerSide == "payable" {
			amount = amount.Neg()
			accountID = rule.CreditAccountID
		}
		_, err = s.repo.CreateSubledgerEntry(ctx, SubledgerEntry{
			OrganizationID:    organizationID,
			CounterpartyOrgID: j.CounterpartyID,
			JournalID:         j.ID,
			AccountID:         accountID,
			Amount:            amount,
			Status:            SubledgerOpen,
		})
		if err != nil {
			return err
		}
		rebuilt++
	}
	s.logger.Info("subledger rebuilt", "organization", organizationID, "entries", rebuilt)
	return nil
}

// sourceLink builds the unique source reference a booked event journal
// carries. The rule ID always terminates the link after '#' so the subledger
// rebuild can recover it.
func sourceLink(event Event, ruleID int64) string {
	if event.Occurrence != 0 {
		return fmt.Sprintf("%s/%s@%d#%d", event.SourceType, event.Type, event.Occurrence, ruleID)
	}
	return fmt.Sprintf("%s/%s#%d", event.SourceType, event.Type, ruleID)
}

func journalNumber() string {
	return fmt.Sprintf("JRN-%d", time.Now().UTC().UnixNano())
}
