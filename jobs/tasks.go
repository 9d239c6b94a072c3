package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/accounting"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAccountingEvent books a business event into the ledger.
	TaskAccountingEvent = "accounting:event"
	// TaskGLIntegrity scans posted journals for balance drift.
	TaskGLIntegrity = "accounting:gl_integrity"
	// TaskSubledgerRebuild reconstructs one organization's subledger.
	TaskSubledgerRebuild = "accounting:subledger_rebuild"
)

// Ledger is the slice of the accounting service the worker needs.
type Ledger interface {
	ProcessEvent(ctx context.Context, event accounting.Event) error
	UnbalancedJournals(ctx context.Context) ([]int64, error)
	RebuildSubledger(ctx context.Context, organizationID int64) error
}

// NewAccountingEventTask wraps a business event for the queue.
func NewAccountingEventTask(event accounting.Event) (*asynq.Task, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAccountingEvent, data), nil
}

// NewGLIntegrityTask builds the cron integrity scan task.
func NewGLIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskGLIntegrity, nil)
}

// SubledgerRebuildPayload names the organization to rebuild.
type SubledgerRebuildPayload struct {
	OrganizationID int64 `json:"organization_id"`
}

// NewSubledgerRebuildTask wraps a rebuild request for the queue.
func NewSubledgerRebuildTask(payload SubledgerRebuildPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSubledgerRebuild, data), nil
}

// HandleAccountingEvent books the queued event. Replays of an already booked
// event succeed without posting twice, so asynq retries stay safe.
func HandleAccountingEvent(ledger Ledger, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var event accounting.Event
		if err := json.Unmarshal(t.Payload(), &event); err != nil {
			logger.Error("accounting event payload unreadable", slog.Any("error", err))
			return asynq.SkipRetry
		}
		return ledger.ProcessEvent(ctx, event)
	}
}

// HandleGLIntegrity logs every posted journal whose debits and credits have
// drifted apart.
func HandleGLIntegrity(ledger Ledger, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		ids, err := ledger.UnbalancedJournals(ctx)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			logger.Info("general ledger integrity ok")
			return nil
		}
		logger.Error("unbalanced posted journals detected", slog.Any("journal_ids", ids))
		return nil
	}
}

// HandleSubledgerRebuild reconstructs the subledger for one organization.
func HandleSubledgerRebuild(ledger Ledger, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SubledgerRebuildPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			logger.Error("subledger rebuild payload unreadable", slog.Any("error", err))
			return asynq.SkipRetry
		}
		if payload.OrganizationID <= 0 {
			return asynq.SkipRetry
		}
		return ledger.RebuildSubledger(ctx, payload.OrganizationID)
	}
}
