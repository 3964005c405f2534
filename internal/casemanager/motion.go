package casemanager

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
	dErrors "github.com/CthulhuOnIce/Stasi-sub000/pkg/domain-errors"
)

// MotionKind tags the closed set of motion variants.
type MotionKind string

const (
	MotionStatement     MotionKind = "statement"
	MotionOrder         MotionKind = "order"
	MotionRush          MotionKind = "rush"
	MotionBatchVote     MotionKind = "batch_vote"
	MotionAdjustPenalty MotionKind = "adjust_penalty"
)

// Votes tracks the yes/no tallies of the motion in consideration. A voter
// appears in at most one side; second votes are rejected.
type Votes struct {
	Yes []domain.UserID `json:"yes"`
	No  []domain.UserID `json:"no"`
}

func (v *Votes) Has(voter domain.UserID) bool {
	for _, u := range v.Yes {
		if u == voter {
			return true
		}
	}
	for _, u := range v.No {
		if u == voter {
			return true
		}
	}
	return false
}

func (v *Votes) Cast(voter domain.UserID, inFavor bool) error {
	if v.Has(voter) {
		return dErrors.New(dErrors.CodeConflict, "you have already voted on this motion")
	}
	if inFavor {
		v.Yes = append(v.Yes, voter)
	} else {
		v.No = append(v.No, voter)
	}
	return nil
}

func (v Votes) Total() int { return len(v.Yes) + len(v.No) }

// Passed requires a strict majority of Yes over No; a tie fails.
func (v Votes) Passed() bool { return len(v.Yes) > len(v.No) }

// MotionBody is a motion variant's payload plus its execute side effect.
// execute runs with the case lock held, only after the motion passed (or is
// pass-listed by a batch vote).
type MotionBody interface {
	Kind() MotionKind
	Describe() string
	execute(ctx context.Context, c *Case, m *Motion) error
}

// Motion is one proposal in a case's queue. The head of the queue is the only
// motion that may be in consideration (Expiry non-nil); votes are empty
// whenever a motion is not up for vote.
type Motion struct {
	ID      domain.MotionID
	Author  domain.UserID
	Created time.Time
	Votes   Votes
	Expiry  *time.Time
	Body    MotionBody
}

// InConsideration reports whether the motion is currently up for vote.
func (m *Motion) InConsideration() bool { return m.Expiry != nil }

// motionBodyDecoders is the explicit tag-to-constructor table used when
// loading motions from storage.
var motionBodyDecoders = map[MotionKind]func() MotionBody{
	MotionStatement:     func() MotionBody { return &StatementBody{} },
	MotionOrder:         func() MotionBody { return &OrderBody{} },
	MotionRush:          func() MotionBody { return &RushBody{} },
	MotionBatchVote:     func() MotionBody { return &BatchVoteBody{} },
	MotionAdjustPenalty: func() MotionBody { return &AdjustPenaltyBody{} },
}

// DecodeMotionBody builds a motion body from its kind tag and raw payload.
// Transport adapters use this to accept kind-tagged filings.
func DecodeMotionBody(kind MotionKind, data []byte) (MotionBody, error) {
	decode, ok := motionBodyDecoders[kind]
	if !ok {
		return nil, fmt.Errorf("unknown motion kind %q", kind)
	}
	body := decode()
	if len(data) > 0 {
		if err := json.Unmarshal(data, body); err != nil {
			return nil, fmt.Errorf("decode motion body %s: %w", kind, err)
		}
	}
	return body, nil
}

type motionEnvelope struct {
	ID      domain.MotionID `json:"id"`
	Author  domain.UserID   `json:"author"`
	Created time.Time       `json:"created"`
	Votes   Votes           `json:"votes"`
	Expiry  *time.Time      `json:"expiry,omitempty"`
	Kind    MotionKind      `json:"kind"`
	Body    json.RawMessage `json:"body"`
}

func (m *Motion) MarshalJSON() ([]byte, error) {
	body, err := json.Marshal(m.Body)
	if err != nil {
		return nil, fmt.Errorf("encode motion body %s: %w", m.Body.Kind(), err)
	}
	return json.Marshal(motionEnvelope{
		ID:      m.ID,
		Author:  m.Author,
		Created: m.Created,
		Votes:   m.Votes,
		Expiry:  m.Expiry,
		Kind:    m.Body.Kind(),
		Body:    body,
	})
}

func (m *Motion) UnmarshalJSON(data []byte) error {
	var env motionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	decode, ok := motionBodyDecoders[env.Kind]
	if !ok {
		return fmt.Errorf("unknown motion kind %q", env.Kind)
	}
	body := decode()
	if err := json.Unmarshal(env.Body, body); err != nil {
		return fmt.Errorf("decode motion body %s: %w", env.Kind, err)
	}
	m.ID = env.ID
	m.Author = env.Author
	m.Created = env.Created
	m.Votes = env.Votes
	m.Expiry = env.Expiry
	m.Body = body
	return nil
}

// StatementBody places an official case statement on record.
type StatementBody struct {
	Text string `json:"text"`
}

func (b *StatementBody) Kind() MotionKind { return MotionStatement }
func (b *StatementBody) Describe() string { return "Official statement: " + b.Text }

func (b *StatementBody) execute(ctx context.Context, c *Case, m *Motion) error {
	c.recordAndAnnounceLocked(ctx, EventOfficialStmt, m.Author, b.Text, map[string]any{
		"motion_id": m.ID.String(),
	}, AudienceAll)
	return nil
}

// OrderBody issues a binding order naming a target and a directive.
// Enforcement is social; the court records and announces it.
type OrderBody struct {
	Target    domain.UserID `json:"target"`
	Directive string        `json:"directive"`
}

func (b *OrderBody) Kind() MotionKind { return MotionOrder }
func (b *OrderBody) Describe() string {
	return fmt.Sprintf("Order binding %s: %s", b.Target, b.Directive)
}

func (b *OrderBody) execute(ctx context.Context, c *Case, m *Motion) error {
	c.recordAndAnnounceLocked(ctx, EventOfficialOrder, m.Author, b.Describe(), map[string]any{
		"motion_id": m.ID.String(),
		"target":    b.Target.String(),
		"directive": b.Directive,
	}, AudienceAll)
	return nil
}

// RushBody reprioritizes an existing queued motion to the front of the queue
// and forces an immediate vote on it.
type RushBody struct {
	TargetID domain.MotionID `json:"target_id"`
}

func (b *RushBody) Kind() MotionKind { return MotionRush }
func (b *RushBody) Describe() string { return fmt.Sprintf("Rush motion %s to the front", b.TargetID) }

func (b *RushBody) execute(ctx context.Context, c *Case, m *Motion) error {
	target := c.findMotionLocked(b.TargetID)
	if target == nil {
		return dErrors.Newf(dErrors.CodeNotFound, "motion not found: %s", b.TargetID)
	}
	for _, other := range c.MotionQueue {
		if other != m && other != target {
			c.cancelVotingLocked(ctx, other, "rush passed for "+b.TargetID.String())
		}
	}
	// Reinsert the rushed motion directly behind this one; when this motion
	// is removed on close, the rushed motion sits at the head of the queue.
	c.removeMotionLocked(target.ID)
	at := 0
	for i, queued := range c.MotionQueue {
		if queued == m {
			at = i + 1
			break
		}
	}
	c.insertMotionLocked(target, at)
	return nil
}

// BatchVoteBody resolves a block of queued motions in one vote: the pass list
// is executed and closed, the deny list closed without execution. IDs that
// disappear between filing and execution are reported, not fatal.
type BatchVoteBody struct {
	Pass     []domain.MotionID `json:"pass"`
	Deny     []domain.MotionID `json:"deny"`
	NotFound []domain.MotionID `json:"not_found,omitempty"`
}

func (b *BatchVoteBody) Kind() MotionKind { return MotionBatchVote }
func (b *BatchVoteBody) Describe() string {
	return fmt.Sprintf("Batch vote: pass %d, deny %d motions", len(b.Pass), len(b.Deny))
}

func (b *BatchVoteBody) execute(ctx context.Context, c *Case, m *Motion) error {
	b.NotFound = nil
	for _, id := range b.Pass {
		target := c.findMotionLocked(id)
		if target == nil {
			b.NotFound = append(b.NotFound, id)
			continue
		}
		c.forceCloseLocked(ctx, target, true, "passed via batch vote "+m.ID.String())
	}
	for _, id := range b.Deny {
		target := c.findMotionLocked(id)
		if target == nil {
			b.NotFound = append(b.NotFound, id)
			continue
		}
		c.forceCloseLocked(ctx, target, false, "denied via batch vote "+m.ID.String())
	}
	return nil
}

// AdjustPenaltyBody atomically replaces the case's penalty set.
type AdjustPenaltyBody struct {
	Penalties PenaltySet `json:"penalties"`
}

func (b *AdjustPenaltyBody) Kind() MotionKind { return MotionAdjustPenalty }
func (b *AdjustPenaltyBody) Describe() string {
	return "Adjust penalties to: " + b.Penalties.Describe()
}

func (b *AdjustPenaltyBody) execute(ctx context.Context, c *Case, m *Motion) error {
	before := c.Penalties.Describe()
	c.Penalties = b.Penalties
	c.recordAndAnnounceLocked(ctx, EventPenaltyAdjusted, m.Author,
		fmt.Sprintf("Penalties adjusted from [%s] to [%s]", before, c.Penalties.Describe()),
		map[string]any{
			"motion_id": m.ID.String(),
			"before":    before,
			"after":     c.Penalties.Describe(),
		}, AudienceAll)
	return nil
}
