package accounting

import "context"

// Publisher hands operational events to the accounting pipeline. The
// production implementation enqueues a background task; tests process the
// event inline.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// InlinePublisher processes events synchronously against a Service. Used in
// tests and in setups without a task queue.
type InlinePublisher struct {
	Service *Service
}

func (p InlinePublisher) Publish(ctx context.Context, event Event) error {
	return p.Service.ProcessEvent(ctx, event)
}
