// Package audit records moderation actions for later review. Domain code
// emits events through a channel-fed service so the hot path never blocks on
// a sink.
package audit

import (
	"context"
	"time"

	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
)

// Event is emitted from domain logic to capture key moderation actions.
// Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Action    string            `json:"action"`
	Actor     domain.UserID     `json:"actor"`
	Subject   string            `json:"subject"`
	Detail    map[string]string `json:"detail,omitempty"`
}

// Store is an append-only audit sink with query support.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
