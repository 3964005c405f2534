// Package viewstate remembers which case each user is currently looking at,
// so command shorthand ("vote yes" without naming a case) survives restarts.
package viewstate

import (
	"context"

	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
)

// Store maps a user to their currently-viewed case. A zero CaseID clears the
// mapping.
type Store interface {
	Set(ctx context.Context, user domain.UserID, caseID domain.CaseID) error
	Get(ctx context.Context, user domain.UserID) (domain.CaseID, error)
}
