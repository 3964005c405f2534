// Package directory is the user-directory boundary: resolving platform user
// IDs to display names, membership facts, and role mutation. The production
// implementation sits on the chat gateway (out of scope); the in-memory guild
// backs tests and development.
package directory

import (
	"context"
	"time"

	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
	dErrors "github.com/CthulhuOnIce/Stasi-sub000/pkg/domain-errors"
)

// ErrNotFound signals a departed or unknown member. Callers on read paths
// must tolerate it without failing the surrounding operation.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "member not found")

// Member is the directory's view of a guild member.
type Member struct {
	ID            domain.UserID
	DisplayName   string
	Roles         []string
	LastActive    time.Time
	MessageCount  int
	JuryBanned    bool
	Administrator bool
	CanBanMembers bool
}

// HasRole reports whether the member holds the given role ID.
func (m Member) HasRole(role string) bool {
	for _, r := range m.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Directory resolves members and mutates platform-level state on them.
type Directory interface {
	Member(ctx context.Context, id domain.UserID) (Member, error)
	Members(ctx context.Context) ([]Member, error)
	// DisplayName resolves a name, falling back to the raw ID for departed
	// members. Never fails.
	DisplayName(ctx context.Context, id domain.UserID) string
	// Ban removes the user from the community at platform level.
	Ban(ctx context.Context, id domain.UserID, reason string) error
	// ReplaceRoles swaps the member's full role set. Used by the warden to
	// apply and lift mutes.
	ReplaceRoles(ctx context.Context, id domain.UserID, roles []string) error
}
