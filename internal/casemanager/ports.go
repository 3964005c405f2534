package casemanager

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/CthulhuOnIce/Stasi-sub000/internal/blob"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/directory"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/docstore"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/notify"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/platform/metrics"
	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
)

// Clock supplies the current time so tick and expiry logic is testable.
type Clock func() time.Time

// WarrantIssuer is the warden's intake surface. A Prison penalty delegates
// here; the issuer must create the prisoner record implicitly when none
// exists.
type WarrantIssuer interface {
	NewWarrant(ctx context.Context, user domain.UserID, category, description string, author domain.UserID, lenSeconds int64) (domain.WarrantID, error)
}

// AuditEmitter receives structured moderation audit events. Emission is best
// effort from the core's perspective; the audit worker owns durability.
type AuditEmitter interface {
	Emit(ctx context.Context, action string, actor domain.UserID, subject string, detail map[string]string)
}

// Deps carries the collaborators every case shares. The manager owns one Deps
// value and hands a pointer to each case it creates or rehydrates; cases never
// reach for ambient state.
type Deps struct {
	Store     docstore.Store
	Blobs     blob.Store
	Directory directory.Directory
	Notifier  notify.Notifier
	Warden    WarrantIssuer
	Audit     AuditEmitter
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Clock     Clock
	RNG       *rand.Rand
	Policy    Policy

	// Disqualified reports whether the user is plaintiff or defense of any
	// active case. Provided by the manager, which owns the registry scan.
	Disqualified func(user domain.UserID) bool
}
