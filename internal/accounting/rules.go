package accounting

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Combinator joins a rule's criteria.
type Combinator string

const (
	CombineAll Combinator = "AND"
	CombineAny Combinator = "OR"
)

// Operator compares an event attribute with a criterion value.
type Operator string

const (
	OpEquals      Operator = "eq"
	OpNotEquals   Operator = "neq"
	OpGreaterThan Operator = "gt"
	OpLessThan    Operator = "lt"
	OpAtLeast     Operator = "gte"
	OpAtMost      Operator = "lte"
	OpContains    Operator = "contains"
)

// Criterion is one condition inside a rule. Field names an event attribute
// or, for numeric operators, an event amount.
type Criterion struct {
	ID       int64    `json:"id"`
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
}

// Rule maps an operational event onto a balanced pair of journal lines.
// AmountField names the event amount to book; SubledgerSide, when set, also
// opens a subledger item against the event counterparty.
type Rule struct {
	ID              int64       `json:"id"`
	OrganizationID  int64       `json:"organization_id"`
	Name            string      `json:"name"`
	EventType       string      `json:"event_type"`
	Combine         Combinator  `json:"combine"`
	Criteria        []Criterion `json:"criteria"`
	DebitAccountID  int64       `json:"debit_account_id"`
	CreditAccountID int64       `json:"credit_account_id"`
	AmountField     string      `json:"amount_field"`
	SubledgerSide   string      `json:"subledger_side,omitempty"`
	Priority        int         `json:"priority"`
	Active          bool        `json:"active"`
	CreatedAt       time.Time   `json:"created_at"`
}

// TenantOrganization implements tenant.Scoped.
func (r Rule) TenantOrganization() (int64, string) {
	return r.OrganizationID, ""
}

// Event is an operational fact handed to the rule engine. Amounts carry the
// bookable figures; Attributes carry everything criteria can match on.
type Event struct {
	Type              string                     `json:"type"`
	OrganizationID    int64                      `json:"organization_id"`
	CounterpartyOrgID int64                      `json:"counterparty_org_id,omitempty"`
	SourceType        string                     `json:"source_type"`
	SourceID          int64                      `json:"source_id"`
	// Occurrence disambiguates repeated events against the same source,
	// such as successive partial receipts of one purchase order. Zero
	// means the source can only ever fire the event once.
	Occurrence int64                      `json:"occurrence,omitempty"`
	OccurredAt time.Time                  `json:"occurred_at"`
	Amounts    map[string]decimal.Decimal `json:"amounts"`
	Attributes map[string]string          `json:"attributes,omitempty"`
}

// Instruction is one booking produced by a matched rule.
type Instruction struct {
	Rule   Rule
	Amount decimal.Decimal
}

// RuleError records a rule that could not be evaluated. Evaluation of the
// remaining rules continues.
type RuleError struct {
	RuleID int64
	Name   string
	Err    error
}

func (e RuleError) Error() string {
	return fmt.Sprintf("rule %q (%d): %v", e.Name, e.RuleID, e.Err)
}

// Evaluate runs every active rule for the event's type and returns the
// bookings of the rules that matched. A rule that fails to evaluate is
// reported in the second return value and does not affect the others.
func Evaluate(rules []Rule, event Event) ([]Instruction, []RuleError) {
	var matched []Instruction
	var failures []RuleError
	for _, rule := range rules {
		if !rule.Active || rule.EventType != event.Type {
			continue
		}
		ok, err := rule.matches(event)
		if err != nil {
			failures = append(failures, RuleError{RuleID: rule.ID, Name: rule.Name, Err: err})
			continue
		}
		if !ok {
			continue
		}
		amount, ok := event.Amounts[rule.AmountField]
		if !ok {
			failures = append(failures, RuleError{RuleID: rule.ID, Name: rule.Name,
				Err: fmt.Errorf("event has no amount %q", rule.AmountField)})
			continue
		}
		if amount.IsNegative() {
			failures = append(failures, RuleError{RuleID: rule.ID, Name: rule.Name,
				Err: fmt.Errorf("amount %q is negative: %s", rule.AmountField, amount)})
			continue
		}
		if amount.IsZero() {
			continue
		}
		matched = append(matched, Instruction{Rule: rule, Amount: amount})
	}
	return matched, failures
}

func (r Rule) matches(event Event) (bool, error) {
	if len(r.Criteria) == 0 {
		return true, nil
	}
	combine := r.Combine
	if combine == "" {
		combine = CombineAll
	}
	for _, criterion := range r.Criteria {
		ok, err := criterion.evaluate(event)
		if err != nil {
			return false, err
		}
		if combine == CombineAll && !ok {
			return false, nil
		}
		if combine == CombineAny && ok {
			return true, nil
		}
	}
	return combine == CombineAll, nil
}

func (c Criterion) evaluate(event Event) (bool, error) {
	switch c.Operator {
	case OpEquals, OpNotEquals, OpContains:
		actual, ok := event.Attributes[c.Field]
		if !ok {
			if amount, isAmount := event.Amounts[c.Field]; isAmount {
				actual = amount.String()
			}
		}
		switch c.Operator {
		case OpEquals:
			return strings.EqualFold(actual, c.Value), nil
		case OpNotEquals:
			return !strings.EqualFold(actual, c.Value), nil
		default:
			return strings.Contains(strings.ToLower(actual), strings.ToLower(c.Value)), nil
		}
	case OpGreaterThan, OpLessThan, OpAtLeast, OpAtMost:
		actual, err := c.numericField(event)
		if err != nil {
			return false, err
		}
		threshold, err := decimal.NewFromString(c.Value)
		if err != nil {
			return false, fmt.Errorf("criterion value %q is not numeric", c.Value)
		}
		switch c.Operator {
		case OpGreaterThan:
			return actual.GreaterThan(threshold), nil
		case OpLessThan:
			return actual.LessThan(threshold), nil
		case OpAtLeast:
			return actual.GreaterThanOrEqual(threshold), nil
		default:
			return actual.LessThanOrEqual(threshold), nil
		}
	default:
		return false, fmt.Errorf("unknown operator %q", c.Operator)
	}
}

func (c Criterion) numericField(event Event) (decimal.Decimal, error) {
	if amount, ok := event.Amounts[c.Field]; ok {
		return amount, nil
	}
	if raw, ok := event.Attributes[c.Field]; ok {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("attribute %q is not numeric", c.Field)
		}
		return value, nil
	}
	return decimal.Zero, fmt.Errorf("event has no field %q", c.Field)
}
