package warden

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/CthulhuOnIce/Stasi-sub000/internal/directory"
	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
)

// Warrant is one independent mute order. Warrants serialize: at most one has
// a non-nil Expires (is "active") at a time; the next eligible warrant
// activates only after the current one is removed.
type Warrant struct {
	ID          domain.WarrantID `json:"id"`
	Category    string           `json:"category"`
	Description string           `json:"description"`
	Author      domain.UserID    `json:"author"`
	Created     time.Time        `json:"created"`
	Started     *time.Time       `json:"started,omitempty"`
	Expires     *time.Time       `json:"expires,omitempty"`

	// LenSeconds is the sentence duration. -1 denotes a stay: the warrant
	// keeps the prisoner muted but never starts a countdown, so it holds
	// until explicitly removed.
	LenSeconds int64 `json:"len_seconds"`

	Frozen    bool `json:"frozen"`
	NoEnforce bool `json:"no_enforce"`
}

// Active reports whether this warrant's clock is running.
func (w *Warrant) Active() bool { return w.Expires != nil }

// Enforced reports whether this warrant currently demands a mute.
func (w *Warrant) Enforced() bool { return !w.Frozen && !w.NoEnforce }

// stay warrants never activate a countdown.
func (w *Warrant) stay() bool { return w.LenSeconds < 0 }

// Prisoner reconciles all warrants against one user into a single mute
// state. Booked means the role snapshot was taken and the mute role applied.
type Prisoner struct {
	mu   sync.Mutex
	deps *deps

	// archived marks a record whose discharge has been decided. Set under
	// mu and never cleared; callers that find it set must fetch a fresh
	// record from the registry instead of mutating this one.
	archived bool

	UserID    domain.UserID `json:"user_id"`
	Warrants  []*Warrant    `json:"warrants"`
	Roles     []string      `json:"roles"`
	Booked    bool          `json:"booked"`
	Committed time.Time     `json:"committed"`
}

func (p *Prisoner) attach(d *deps) { p.deps = d }

// heartBeatLocked runs the reconciliation algorithm. Returns true when the
// prisoner is fully discharged (no warrants, no held role snapshot) and
// should be archived by the warden.
func (p *Prisoner) heartBeatLocked(ctx context.Context) (archive bool) {
	now := p.deps.clock()

	// 1. Drop expired warrants.
	kept := p.Warrants[:0]
	for _, w := range p.Warrants {
		if w.Expires != nil && now.After(*w.Expires) {
			p.deps.logger.InfoContext(ctx, "warrant expired", "user_id", p.UserID, "warrant_id", w.ID)
			if p.deps.metrics != nil {
				p.deps.metrics.WarrantsReleased.Inc()
			}
			continue
		}
		kept = append(kept, w)
	}
	p.Warrants = kept

	// 2. Activate the next eligible warrant if none is running.
	if !p.anyActiveLocked() {
		for _, w := range p.Warrants {
			if w.Enforced() && !w.stay() {
				started := now
				expires := now.Add(time.Duration(w.LenSeconds) * time.Second)
				w.Started = &started
				w.Expires = &expires
				break
			}
		}
	}

	// 3. Reconcile the mute state against the enforced warrant set.
	shouldMute := false
	for _, w := range p.Warrants {
		if w.Enforced() {
			shouldMute = true
			break
		}
	}
	if shouldMute && !p.Booked {
		p.bookLocked(ctx, now)
	} else if !shouldMute && p.Booked {
		p.releaseLocked(ctx)
	}

	// 4. Discharged prisoners are archived by the warden.
	if len(p.Warrants) == 0 && !p.Booked {
		p.archived = true
	}
	return p.archived
}

func (p *Prisoner) anyActiveLocked() bool {
	for _, w := range p.Warrants {
		if w.Active() {
			return true
		}
	}
	return false
}

// bookLocked snapshots the user's roles and swaps in the mute role. Departed
// members cannot be booked; the warrant set stays intact for their return.
func (p *Prisoner) bookLocked(ctx context.Context, now time.Time) {
	member, err := p.deps.directory.Member(ctx, p.UserID)
	if err != nil {
		if !errors.Is(err, directory.ErrNotFound) {
			p.deps.logger.ErrorContext(ctx, "prisoner booking lookup failed", "user_id", p.UserID, "error", err)
		}
		return
	}
	roles := append([]string(nil), member.Roles...)
	if err := p.deps.directory.ReplaceRoles(ctx, p.UserID, []string{p.deps.muteRole}); err != nil {
		p.deps.logger.ErrorContext(ctx, "prisoner booking failed", "user_id", p.UserID, "error", err)
		return
	}
	p.Roles = roles
	p.Booked = true
	p.Committed = now
	if p.deps.metrics != nil {
		p.deps.metrics.PrisonersBooked.Inc()
	}
	p.deps.logger.InfoContext(ctx, "prisoner booked", "user_id", p.UserID, "warrants", len(p.Warrants))
}

// releaseLocked restores the snapshotted roles and clears the snapshot.
func (p *Prisoner) releaseLocked(ctx context.Context) {
	if err := p.deps.directory.ReplaceRoles(ctx, p.UserID, p.Roles); err != nil {
		if !errors.Is(err, directory.ErrNotFound) {
			p.deps.logger.ErrorContext(ctx, "prisoner release failed", "user_id", p.UserID, "error", err)
			return
		}
		// Departed members forfeit the snapshot; nothing to restore.
	}
	p.Roles = nil
	p.Booked = false
	if p.deps.metrics != nil {
		p.deps.metrics.PrisonersBooked.Dec()
	}
	p.deps.logger.InfoContext(ctx, "prisoner released", "user_id", p.UserID)
}
