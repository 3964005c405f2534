package casemanager

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/CthulhuOnIce/Stasi-sub000/internal/notify"
	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
)

// Event kinds recorded in a case's append-only log.
const (
	EventCaseFiled        = "case_filed"
	EventCaseBody         = "case_body"
	EventCaseClosed       = "case_closed"
	EventJurorJoin        = "juror_join"
	EventJurorLeave       = "juror_leave"
	EventJuryInvite       = "jury_invite"
	EventMotionProposed   = "motion_proposed"
	EventMotionUpForVote  = "motion_up_for_vote"
	EventMotionCancelled  = "motion_vote_cancelled"
	EventMotionResolved   = "motion_resolved"
	EventVoteCast         = "vote_cast"
	EventStatementFiled   = "personal_statement"
	EventOfficialOrder    = "official_order"
	EventOfficialStmt     = "official_statement"
	EventEvidenceFiled    = "evidence_filed"
	EventEvidenceSealed   = "evidence_sealed"
	EventPenaltyAdjusted  = "penalty_adjusted"
	EventPenaltyExecuted  = "penalty_executed"
	EventPleaDealOffered  = "plea_deal_offered"
	EventPleaDealAccepted = "plea_deal_accepted"
	EventPleaDealDeclined = "plea_deal_declined"
	EventPleaDealExpired  = "plea_deal_expired"
)

// Event is one entry in the case's append-only log. Payload carries enough
// structure to reconstruct the triggering action for audit.
type Event struct {
	Kind    string         `json:"kind"`
	At      time.Time      `json:"at"`
	Actor   domain.UserID  `json:"actor,omitempty"`
	Summary string         `json:"summary"`
	Payload map[string]any `json:"payload,omitempty"`
}

// appendEventLocked records an event. Caller holds the case lock.
func (c *Case) appendEventLocked(kind string, actor domain.UserID, summary string, payload map[string]any) Event {
	ev := Event{
		Kind:    kind,
		At:      c.deps.Clock(),
		Actor:   actor,
		Summary: summary,
		Payload: payload,
	}
	c.EventLog = append(c.EventLog, ev)
	return ev
}

// Audience selects which of the four fan-out targets receive an announcement.
type Audience struct {
	Jury      bool
	Defense   bool
	Plaintiff bool
	News      bool
}

// AudienceAll fans out to every target.
var AudienceAll = Audience{Jury: true, Defense: true, Plaintiff: true, News: true}

// announceLocked fans an event out to the selected audiences. Each delivery
// is independent: a closed DM or missing channel is logged and skipped, never
// propagated. Caller holds the case lock; deliveries read only immutable
// copies of case state.
func (c *Case) announceLocked(ctx context.Context, ev Event, aud Audience) {
	msg := notify.Message{
		Subject: "Case " + c.ID.String() + ": " + c.Title,
		Body:    ev.Summary,
		Fields:  map[string]string{"event": ev.Kind},
	}

	recipients := make([]domain.UserID, 0, len(c.JuryPool)+2)
	if aud.Jury {
		recipients = append(recipients, c.JuryPool...)
	}
	if aud.Defense {
		recipients = append(recipients, c.Defense)
	}
	if aud.Plaintiff {
		recipients = append(recipients, c.Plaintiff)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, user := range recipients {
		g.Go(func() error {
			if err := c.deps.Notifier.SendDM(gctx, user, msg); err != nil {
				c.deps.Logger.WarnContext(gctx, "announce delivery failed",
					"case_id", c.ID, "user_id", user, "event", ev.Kind, "error", err)
			}
			return nil
		})
	}
	if aud.News {
		g.Go(func() error {
			if err := c.deps.Notifier.Publish(gctx, c.deps.Policy.NewsChannel, msg); err != nil {
				c.deps.Logger.WarnContext(gctx, "announce publish failed",
					"case_id", c.ID, "channel", c.deps.Policy.NewsChannel, "event", ev.Kind, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// recordAndAnnounceLocked is the common append-then-fan-out step.
func (c *Case) recordAndAnnounceLocked(ctx context.Context, kind string, actor domain.UserID, summary string, payload map[string]any, aud Audience) {
	ev := c.appendEventLocked(kind, actor, summary, payload)
	c.announceLocked(ctx, ev, aud)
}
