package shared

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// UnitOfWork runs a sequence of remote calls that cannot share a database
// transaction, compensating completed steps in reverse order when a later
// step fails. Compensation failures are logged and collected; the original
// step error is always the one returned.
type UnitOfWork struct {
	logger *slog.Logger
	steps  []completedStep
}

type completedStep struct {
	name       string
	compensate func(context.Context) error
}

// NewUnitOfWork constructs a UnitOfWork.
func NewUnitOfWork(logger *slog.Logger) *UnitOfWork {
	return &UnitOfWork{logger: logger}
}

// Run executes the step and, on success, registers its compensation for use
// if a later step fails. A nil compensate marks the step irreversible.
func (u *UnitOfWork) Run(ctx context.Context, name string, step func(context.Context) error, compensate func(context.Context) error) error {
	if err := step(ctx); err != nil {
		u.rollback(ctx)
		return fmt.Errorf("%s: %w", name, err)
	}
	u.steps = append(u.steps, completedStep{name: name, compensate: compensate})
	return nil
}

// Rollback compensates every completed step and returns err unchanged. It is
// for failures that happen between Run calls, outside any single step.
func (u *UnitOfWork) Rollback(ctx context.Context, err error) error {
	u.rollback(ctx)
	return err
}

func (u *UnitOfWork) rollback(ctx context.Context) {
	var errs []error
	for i := len(u.steps) - 1; i >= 0; i-- {
		step := u.steps[i]
		if step.compensate == nil {
			continue
		}
		if err := step.compensate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("compensate %s: %w", step.name, err))
			if u.logger != nil {
				u.logger.Error("unit of work compensation failed", slog.String("step", step.name), slog.Any("error", err))
			}
		}
	}
	u.steps = nil
	if len(errs) > 0 && u.logger != nil {
		u.logger.Error("unit of work left partial state", slog.Any("error", errors.Join(errs...)))
	}
}
