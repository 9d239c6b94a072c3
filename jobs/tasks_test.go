package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/accounting"
)

type fakeLedger struct {
	events     []accounting.Event
	rebuilt    []int64
	unbalanced []int64
}

func (f *fakeLedger) ProcessEvent(_ context.Context, event accounting.Event) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeLedger) UnbalancedJournals(context.Context) ([]int64, error) {
	return f.unbalanced, nil
}

func (f *fakeLedger) RebuildSubledger(_ context.Context, organizationID int64) error {
	f.rebuilt = append(f.rebuilt, organizationID)
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestAccountingEventRoundTrip(t *testing.T) {
	event := accounting.Event{
		Type:           "invoice.approved",
		OrganizationID: 1,
		SourceType:     "invoice",
		SourceID:       42,
		Amounts:        map[string]decimal.Decimal{"total": decimal.NewFromInt(1180)},
	}
	task, err := NewAccountingEventTask(event)
	require.NoError(t, err)

	ledger := &fakeLedger{}
	err = HandleAccountingEvent(ledger, discard())(context.Background(), task)
	require.NoError(t, err)

	require.Len(t, ledger.events, 1)
	got := ledger.events[0]
	require.Equal(t, "invoice.approved", got.Type)
	require.Equal(t, int64(42), got.SourceID)
	require.True(t, got.Amounts["total"].Equal(decimal.NewFromInt(1180)))
}

func TestAccountingEventSkipsBadPayload(t *testing.T) {
	task := asynq.NewTask(TaskAccountingEvent, []byte("not json"))

	err := HandleAccountingEvent(&fakeLedger{}, discard())(context.Background(), task)
	require.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestSubledgerRebuildRequiresOrganization(t *testing.T) {
	ledger := &fakeLedger{}
	handler := HandleSubledgerRebuild(ledger, discard())

	task, err := NewSubledgerRebuildTask(SubledgerRebuildPayload{OrganizationID: 7})
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), task))
	require.Equal(t, []int64{7}, ledger.rebuilt)

	task, err = NewSubledgerRebuildTask(SubledgerRebuildPayload{})
	require.NoError(t, err)
	err = handler(context.Background(), task)
	require.True(t, errors.Is(err, asynq.SkipRetry))
	require.Len(t, ledger.rebuilt, 1)
}

func TestGLIntegrityReportsDrift(t *testing.T) {
	ledger := &fakeLedger{unbalanced: []int64{3, 9}}

	err := HandleGLIntegrity(ledger, discard())(context.Background(), NewGLIntegrityTask())
	require.NoError(t, err)
}
