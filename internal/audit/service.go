package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
)

const defaultInboxSize = 256

// Service is the emission surface handed to domain code. Emit is
// non-blocking: events are queued for the worker, and when the inbox is full
// the event is dropped and logged rather than stalling a moderation action.
type Service struct {
	inbox  chan Event
	logger *slog.Logger
	clock  func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithInboxSize overrides the queue depth.
func WithInboxSize(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.inbox = make(chan Event, n)
		}
	}
}

// WithClock sets the timestamp source for testability.
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewService(logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		inbox:  make(chan Event, defaultInboxSize),
		logger: logger,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Emit queues one audit event.
func (s *Service) Emit(ctx context.Context, action string, actor domain.UserID, subject string, detail map[string]string) {
	event := Event{
		ID:        uuid.NewString(),
		Timestamp: s.clock(),
		Action:    action,
		Actor:     actor,
		Subject:   subject,
		Detail:    detail,
	}
	select {
	case s.inbox <- event:
	default:
		s.logger.WarnContext(ctx, "audit inbox full, dropping event",
			"action", action, "subject", subject)
	}
}

// Inbox exposes the queue for the worker.
func (s *Service) Inbox() <-chan Event { return s.inbox }
