// Package notify is the outbound messaging boundary. The court core fans
// events out through a Notifier; delivery failures are always per-recipient
// and never propagate into state changes.
package notify

import (
	"context"

	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
)

// Message is a renderable notification. Fields carry structured payload the
// chat gateway may format into an embed; Body is the plain-text fallback.
type Message struct {
	Subject string
	Body    string
	Fields  map[string]string
}

// Notifier delivers messages to users and broadcast channels. Either call may
// fail for a single recipient (closed DMs, missing channel); callers are
// expected to log and continue.
type Notifier interface {
	SendDM(ctx context.Context, user domain.UserID, msg Message) error
	Publish(ctx context.Context, channel string, msg Message) error
}
