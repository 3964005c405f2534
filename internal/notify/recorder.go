package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
)

// LogNotifier writes every notification to the structured log. It stands in
// for the chat gateway in development runs.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendDM(ctx context.Context, user domain.UserID, msg Message) error {
	n.logger.InfoContext(ctx, "notify dm", "user_id", user, "subject", msg.Subject, "body", msg.Body)
	return nil
}

func (n *LogNotifier) Publish(ctx context.Context, channel string, msg Message) error {
	n.logger.InfoContext(ctx, "notify channel", "channel", channel, "subject", msg.Subject, "body", msg.Body)
	return nil
}

// Recorder captures deliveries for assertions and can simulate per-recipient
// failures.
type Recorder struct {
	mu       sync.Mutex
	DMs      map[domain.UserID][]Message
	Channels map[string][]Message
	FailFor  map[domain.UserID]error
}

func NewRecorder() *Recorder {
	return &Recorder{
		DMs:      make(map[domain.UserID][]Message),
		Channels: make(map[string][]Message),
		FailFor:  make(map[domain.UserID]error),
	}
}

func (r *Recorder) SendDM(_ context.Context, user domain.UserID, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.FailFor[user]; ok {
		return err
	}
	r.DMs[user] = append(r.DMs[user], msg)
	return nil
}

func (r *Recorder) Publish(_ context.Context, channel string, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Channels[channel] = append(r.Channels[channel], msg)
	return nil
}

// DMCount reports deliveries to one user.
func (r *Recorder) DMCount(user domain.UserID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.DMs[user])
}
