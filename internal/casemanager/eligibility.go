package casemanager

import (
	"context"

	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
	dErrors "github.com/CthulhuOnIce/Stasi-sub000/pkg/domain-errors"
)

// eligibleJurorsLocked scans the directory for jury candidates: recently
// active members with an established message history, excluding anyone
// already attached to this case, disqualified as a party to any active case,
// jury-banned, holding moderation powers, or holding a disqualifying role.
func (c *Case) eligibleJurorsLocked(ctx context.Context) ([]domain.UserID, error) {
	members, err := c.deps.Directory.Members(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list guild members")
	}

	cutoff := c.deps.Clock().Add(-c.deps.Policy.ActivityWindow)
	attached := make(map[domain.UserID]bool, len(c.JuryPool)+len(c.JuryInvites)+2)
	for _, u := range c.JuryPool {
		attached[u] = true
	}
	for _, u := range c.JuryInvites {
		attached[u] = true
	}
	attached[c.Plaintiff] = true
	attached[c.Defense] = true

	var eligible []domain.UserID
	for _, m := range members {
		if attached[m.ID] {
			continue
		}
		if m.LastActive.Before(cutoff) || m.MessageCount <= c.deps.Policy.MinMessages {
			continue
		}
		if m.JuryBanned || m.Administrator || m.CanBanMembers {
			continue
		}
		if c.hasDisqualifyingRole(m.Roles) {
			continue
		}
		if c.deps.Disqualified != nil && c.deps.Disqualified(m.ID) {
			continue
		}
		eligible = append(eligible, m.ID)
	}
	return eligible, nil
}

func (c *Case) hasDisqualifyingRole(roles []string) bool {
	for _, dq := range c.deps.Policy.DisqualifyingRoles {
		for _, r := range roles {
			if r == dq {
				return true
			}
		}
	}
	return false
}
