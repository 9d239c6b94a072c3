package accounting

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func grnEvent(total int64) Event {
	return Event{
		Type:           "goods.received",
		OrganizationID: 1,
		SourceType:     "purchase_order",
		SourceID:       77,
		OccurredAt:     time.Now().UTC(),
		Amounts: map[string]decimal.Decimal{
			"total": decimal.NewFromInt(total),
			"tax":   decimal.NewFromInt(total / 10),
		},
		Attributes: map[string]string{
			"supplier_type": "Supplier",
			"channel":       "wholesale desk",
		},
	}
}

func TestEvaluateMatchesRuleWithoutCriteria(t *testing.T) {
	rules := []Rule{{
		ID: 1, Name: "Inventory on receipt", EventType: "goods.received",
		DebitAccountID: 10, CreditAccountID: 20, AmountField: "total", Active: true,
	}}
	matched, failures := Evaluate(rules, grnEvent(500))
	require.Empty(t, failures)
	require.Len(t, matched, 1)
	require.True(t, matched[0].Amount.Equal(decimal.NewFromInt(500)))
}

func TestEvaluateSkipsInactiveAndOtherEvents(t *testing.T) {
	rules := []Rule{
		{ID: 1, EventType: "goods.received", AmountField: "total", Active: false},
		{ID: 2, EventType: "invoice.approved", AmountField: "total", Active: true},
	}
	matched, failures := Evaluate(rules, grnEvent(500))
	require.Empty(t, failures)
	require.Empty(t, matched)
}

func TestEvaluateAndCombinator(t *testing.T) {
	rule := Rule{
		ID: 1, Name: "Large supplier receipts", EventType: "goods.received",
		Combine: CombineAll, AmountField: "total", Active: true,
		Criteria: []Criterion{
			{Field: "supplier_type", Operator: OpEquals, Value: "supplier"},
			{Field: "total", Operator: OpAtLeast, Value: "400"},
		},
	}
	matched, failures := Evaluate([]Rule{rule}, grnEvent(500))
	require.Empty(t, failures)
	require.Len(t, matched, 1)

	matched, failures = Evaluate([]Rule{rule}, grnEvent(300))
	require.Empty(t, failures)
	require.Empty(t, matched)
}

func TestEvaluateOrCombinator(t *testing.T) {
	rule := Rule{
		ID: 1, EventType: "goods.received", Combine: CombineAny,
		AmountField: "total", Active: true,
		Criteria: []Criterion{
			{Field: "supplier_type", Operator: OpEquals, Value: "Retailer"},
			{Field: "channel", Operator: OpContains, Value: "wholesale"},
		},
	}
	matched, failures := Evaluate([]Rule{rule}, grnEvent(500))
	require.Empty(t, failures)
	require.Len(t, matched, 1)
}

func TestEvaluateIsolatesRuleFailures(t *testing.T) {
	rules := []Rule{
		{
			ID: 1, Name: "broken operator", EventType: "goods.received",
			AmountField: "total", Active: true,
			Criteria: []Criterion{{Field: "total", Operator: "between", Value: "1"}},
		},
		{
			ID: 2, Name: "missing amount", EventType: "goods.received",
			AmountField: "freight", Active: true,
		},
		{
			ID: 3, Name: "healthy", EventType: "goods.received",
			AmountField: "total", Active: true,
		},
	}
	matched, failures := Evaluate(rules, grnEvent(500))
	require.Len(t, failures, 2)
	require.Len(t, matched, 1)
	require.Equal(t, int64(3), matched[0].Rule.ID)
}

func TestEvaluateSkipsZeroAmounts(t *testing.T) {
	rules := []Rule{{
		ID: 1, EventType: "goods.received", AmountField: "tax", Active: true,
	}}
	event := grnEvent(500)
	event.Amounts["tax"] = decimal.Zero
	matched, failures := Evaluate(rules, event)
	require.Empty(t, failures)
	require.Empty(t, matched)
}

func TestEvaluateRejectsNegativeAmounts(t *testing.T) {
	rules := []Rule{
		{ID: 1, Name: "credit memo total", EventType: "goods.received", AmountField: "total", Active: true},
		{ID: 2, Name: "tax line", EventType: "goods.received", AmountField: "tax", Active: true},
	}
	event := grnEvent(500)
	event.Amounts["total"] = decimal.NewFromInt(-250)
	matched, failures := Evaluate(rules, event)
	require.Len(t, failures, 1)
	require.Equal(t, int64(1), failures[0].RuleID)
	require.ErrorContains(t, failures[0], "negative")
	require.Len(t, matched, 1)
	require.Equal(t, int64(2), matched[0].Rule.ID)
}

func TestCriterionNumericAttributeComparison(t *testing.T) {
	event := grnEvent(500)
	event.Attributes["line_count"] = "12"

	ok, err := Criterion{Field: "line_count", Operator: OpGreaterThan, Value: "10"}.evaluate(event)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = Criterion{Field: "supplier_type", Operator: OpGreaterThan, Value: "10"}.evaluate(event)
	require.Error(t, err)
}
