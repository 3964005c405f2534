package audit

import (
	"context"
	"log/slog"
)

// Publisher forwards persisted events to an external sink.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Worker consumes audit events from the service inbox, persists them, and
// optionally forwards them to a publisher. Sink failures are logged and the
// loop continues; one poisoned event must not stop the audit trail.
type Worker struct {
	store     Store
	publisher Publisher
	inbox     <-chan Event
	logger    *slog.Logger
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithPublisher forwards each persisted event to an external sink.
func WithPublisher(p Publisher) WorkerOption {
	return func(w *Worker) { w.publisher = p }
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{store: store, inbox: inbox, logger: logger}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			w.handle(ctx, event)
		}
	}
}

func (w *Worker) handle(ctx context.Context, event Event) {
	if err := w.store.Append(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "audit append failed",
			"event_id", event.ID, "action", event.Action, "error", err)
	}
	if w.publisher == nil {
		return
	}
	if err := w.publisher.Publish(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "audit publish failed",
			"event_id", event.ID, "action", event.Action, "error", err)
	}
}
