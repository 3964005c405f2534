package casemanager

import (
	"context"
	"fmt"
	"time"

	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
	dErrors "github.com/CthulhuOnIce/Stasi-sub000/pkg/domain-errors"
)

// findMotionLocked resolves a motion ID within the queue, nil if absent.
func (c *Case) findMotionLocked(id domain.MotionID) *Motion {
	for _, m := range c.MotionQueue {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// removeMotionLocked deletes a motion from the queue by ID.
func (c *Case) removeMotionLocked(id domain.MotionID) {
	for i, m := range c.MotionQueue {
		if m.ID == id {
			c.MotionQueue = append(c.MotionQueue[:i], c.MotionQueue[i+1:]...)
			return
		}
	}
}

// insertMotionLocked places a motion at the given queue position.
func (c *Case) insertMotionLocked(m *Motion, at int) {
	if at < 0 {
		at = 0
	}
	if at > len(c.MotionQueue) {
		at = len(c.MotionQueue)
	}
	c.MotionQueue = append(c.MotionQueue, nil)
	copy(c.MotionQueue[at+1:], c.MotionQueue[at:])
	c.MotionQueue[at] = m
}

// FileMotion enqueues a new motion. Rush and batch-vote motions perform their
// construction-time queue surgery here; every motion gets a proposed event,
// and the heartbeat runs inline so a motion landing at the head of an idle
// queue goes up for vote immediately.
func (c *Case) FileMotion(ctx context.Context, author domain.UserID, body MotionBody) (*Motion, error) {
	c.lock()
	defer c.unlock()

	if c.Stage == StageClosed {
		return nil, dErrors.New(dErrors.CodeBadRequest, "this case is closed")
	}
	if !c.IsParty(author) && !c.isJurorLocked(author) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only parties and seated jurors may file motions")
	}

	// Construction-time validation runs before a motion number is consumed.
	batchInsertAt := len(c.MotionQueue)
	switch b := body.(type) {
	case *RushBody:
		if c.findMotionLocked(b.TargetID) == nil {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "motion not found: %s", b.TargetID)
		}
	case *BatchVoteBody:
		for _, id := range append(append([]domain.MotionID{}, b.Pass...), b.Deny...) {
			target := c.findMotionLocked(id)
			if target == nil {
				return nil, dErrors.Newf(dErrors.CodeNotFound, "motion not found: %s", id)
			}
			for i, queued := range c.MotionQueue {
				if queued == target && i < batchInsertAt {
					batchInsertAt = i
				}
			}
		}
	}

	c.MotionCounter++
	m := &Motion{
		ID:      domain.NewMotionID(c.ID, c.MotionCounter),
		Author:  author,
		Created: c.deps.Clock(),
		Body:    body,
	}

	switch body.(type) {
	case *RushBody:
		for _, other := range c.MotionQueue {
			c.cancelVotingLocked(ctx, other, "rush motion filed")
		}
		c.insertMotionLocked(m, 0)
	case *BatchVoteBody:
		if batchInsertAt < len(c.MotionQueue) {
			c.cancelVotingLocked(ctx, c.MotionQueue[batchInsertAt], "superseded by batch vote")
		}
		c.insertMotionLocked(m, batchInsertAt)
	default:
		c.MotionQueue = append(c.MotionQueue, m)
	}

	if c.deps.Metrics != nil {
		c.deps.Metrics.MotionsFiled.WithLabelValues(string(body.Kind())).Inc()
	}
	c.recordAndAnnounceLocked(ctx, EventMotionProposed, author, body.Describe(), map[string]any{
		"motion_id": m.ID.String(),
		"kind":      string(body.Kind()),
	}, AudienceAll)

	c.heartBeatLocked(ctx)
	if err := c.saveLocked(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// CastVote records a juror's vote on the motion in consideration. A zero
// motion ID means "whatever is up for vote"; a non-zero ID must match the
// queue head, so votes cannot land on the wrong motion after a rush reorders
// the queue. The heartbeat runs inline so a completed tally closes the
// motion immediately.
func (c *Case) CastVote(ctx context.Context, voter domain.UserID, motionID domain.MotionID, inFavor bool) error {
	c.lock()
	defer c.unlock()

	if !c.isJurorLocked(voter) {
		return dErrors.New(dErrors.CodeForbidden, "only seated jurors may vote")
	}
	if len(c.MotionQueue) == 0 || !c.MotionQueue[0].InConsideration() {
		return dErrors.New(dErrors.CodeBadRequest, "no motion is currently up for vote")
	}
	head := c.MotionQueue[0]
	if !motionID.IsZero() && motionID != head.ID {
		return dErrors.Newf(dErrors.CodeConflict, "motion %s is not up for vote", motionID)
	}
	if err := head.Votes.Cast(voter, inFavor); err != nil {
		return err
	}
	if c.deps.Metrics != nil {
		c.deps.Metrics.VotesCast.Inc()
	}
	c.appendEventLocked(EventVoteCast, voter, "A vote has been cast.", map[string]any{
		"motion_id": head.ID.String(),
		"yes":       len(head.Votes.Yes),
		"no":        len(head.Votes.No),
	})

	c.heartBeatLocked(ctx)
	return c.saveLocked(ctx)
}

// startVotingLocked promotes the queue head to "in consideration".
func (c *Case) startVotingLocked(ctx context.Context, m *Motion) {
	expiry := c.deps.Clock().Add(c.deps.Policy.VoteWindow)
	m.Expiry = &expiry
	m.Votes = Votes{}
	c.recordAndAnnounceLocked(ctx, EventMotionUpForVote, m.Author,
		"Now up for vote: "+m.Body.Describe(), map[string]any{
			"motion_id": m.ID.String(),
			"expires":   expiry.Format(time.RFC3339),
		}, Audience{Jury: true})
}

// cancelVotingLocked aborts an in-progress vote: votes and expiry cleared,
// motion stays queued. A no-op for motions that are not up for vote.
func (c *Case) cancelVotingLocked(ctx context.Context, m *Motion, reason string) {
	if !m.InConsideration() && m.Votes.Total() == 0 {
		return
	}
	m.Expiry = nil
	m.Votes = Votes{}
	c.recordAndAnnounceLocked(ctx, EventMotionCancelled, "",
		fmt.Sprintf("Voting on %s cancelled: %s", m.ID, reason), map[string]any{
			"motion_id": m.ID.String(),
			"reason":    reason,
		}, Audience{Jury: true})
}

// readyToCloseLocked reports whether the motion's vote can resolve: a full
// tally across the current pool, or the voting window has lapsed.
func (c *Case) readyToCloseLocked(m *Motion, now time.Time) bool {
	if m.Votes.Total() >= len(c.JuryPool) {
		return true
	}
	return m.Expiry != nil && now.After(*m.Expiry)
}

// closeMotionLocked resolves the motion in consideration: a strict Yes
// majority executes it, anything else fails it. Either way the motion leaves
// the queue and a resolved event records the tallies.
func (c *Case) closeMotionLocked(ctx context.Context, m *Motion) {
	passed := m.Votes.Passed()
	yes, no := len(m.Votes.Yes), len(m.Votes.No)
	m.Expiry = nil

	outcome := "failed"
	payload := map[string]any{
		"motion_id": m.ID.String(),
		"kind":      string(m.Body.Kind()),
		"yes":       yes,
		"no":        no,
	}
	if passed {
		outcome = "passed"
		if err := m.Body.execute(ctx, c, m); err != nil {
			c.deps.Logger.ErrorContext(ctx, "motion execution failed",
				"case_id", c.ID, "motion_id", m.ID, "error", err)
			payload["execution_error"] = err.Error()
		}
	}
	payload["outcome"] = outcome

	m.Votes = Votes{}
	c.removeMotionLocked(m.ID)
	if c.deps.Metrics != nil {
		c.deps.Metrics.MotionsResolved.WithLabelValues(string(m.Body.Kind()), outcome).Inc()
	}
	c.recordAndAnnounceLocked(ctx, EventMotionResolved,
		m.Author, fmt.Sprintf("Motion %s %s (%d-%d).", m.ID, outcome, yes, no), payload, AudienceAll)
}

// forceCloseLocked resolves a motion outside the normal vote, on behalf of a
// batch vote: executed if execute is true, otherwise discarded.
func (c *Case) forceCloseLocked(ctx context.Context, m *Motion, execute bool, via string) {
	m.Expiry = nil
	m.Votes = Votes{}

	outcome := "denied"
	payload := map[string]any{
		"motion_id": m.ID.String(),
		"kind":      string(m.Body.Kind()),
		"via":       via,
	}
	if execute {
		outcome = "passed"
		if err := m.Body.execute(ctx, c, m); err != nil {
			c.deps.Logger.ErrorContext(ctx, "motion execution failed",
				"case_id", c.ID, "motion_id", m.ID, "error", err)
			payload["execution_error"] = err.Error()
		}
	}
	payload["outcome"] = outcome

	c.removeMotionLocked(m.ID)
	if c.deps.Metrics != nil {
		c.deps.Metrics.MotionsResolved.WithLabelValues(string(m.Body.Kind()), outcome).Inc()
	}
	c.recordAndAnnounceLocked(ctx, EventMotionResolved,
		m.Author, fmt.Sprintf("Motion %s %s (%s).", m.ID, outcome, via), payload, AudienceAll)
}
