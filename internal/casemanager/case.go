// Package casemanager implements the court core: the case aggregate and its
// stage state machine, the motion queue and voting protocol, jury selection,
// penalties, and evidence. All mutation of one case is serialized by the
// case's own mutex; tick re-evaluation and command handlers never interleave
// on the same aggregate.
package casemanager

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/CthulhuOnIce/Stasi-sub000/internal/directory"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/docstore"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/notify"
	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
	dErrors "github.com/CthulhuOnIce/Stasi-sub000/pkg/domain-errors"
)

// Stage is the case lifecycle state.
type Stage int

const (
	StageJurySelection Stage = 1
	StageArgumentation Stage = 2
	StageClosed        Stage = 3
)

// Status display strings.
const (
	StatusJurySelection = "Jury Selection"
	StatusArgumentation = "Argumentation and Deliberation"
)

// Statement is a party's personal statement, outside the motion system.
type Statement struct {
	Author domain.UserID `json:"author"`
	At     time.Time     `json:"at"`
	Text   string        `json:"text"`
}

// ChatMessage is one entry in the juror deliberation log.
type ChatMessage struct {
	Author domain.UserID `json:"author"`
	At     time.Time     `json:"at"`
	Text   string        `json:"text"`
}

// PleaDeal is a pending penalty swap offered to the defense.
type PleaDeal struct {
	Penalties PenaltySet `json:"penalties"`
	Expires   *time.Time `json:"expires,omitempty"`
}

// Case is the aggregate root for one filed dispute. Exported fields are the
// persisted document; deps and the mutex are attached by the manager on
// creation or rehydration.
type Case struct {
	mu   sync.Mutex
	deps *Deps

	ID          domain.CaseID `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      string        `json:"status"`
	Stage       Stage         `json:"stage"`
	Created     time.Time     `json:"created"`
	Plaintiff   domain.UserID `json:"plaintiff"`
	Defense     domain.UserID `json:"defense"`

	EventLog        []Event                  `json:"event_log"`
	MotionQueue     []*Motion                `json:"motion_queue"`
	MotionCounter   int                      `json:"motion_counter"`
	JuryPool        []domain.UserID          `json:"jury_pool_ids"`
	JuryInvites     []domain.UserID          `json:"jury_invites"`
	Statements      []Statement              `json:"personal_statements"`
	Evidence        []*Evidence              `json:"evidence"`
	EvidenceCounter int                      `json:"evidence_counter"`
	Penalties       PenaltySet               `json:"penalties"`
	PleaDeal        *PleaDeal                `json:"plea_deal,omitempty"`
	KnownUsers      map[domain.UserID]string `json:"known_users"`
	Anonymization   map[domain.UserID]string `json:"anonymization"`
	JurorChat       []ChatMessage            `json:"juror_chat_log"`
	NoTick          bool                     `json:"no_tick"`
}

func (c *Case) lock()   { c.mu.Lock() }
func (c *Case) unlock() { c.mu.Unlock() }

// attach wires runtime collaborators into a freshly created or rehydrated
// case document.
func (c *Case) attach(deps *Deps) {
	c.deps = deps
}

// saveLocked persists the case document. Persistence failures propagate to
// the caller of the mutating operation; no retry policy is applied here.
func (c *Case) saveLocked(ctx context.Context) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode case document")
	}
	if err := c.deps.Store.Save(ctx, docstore.CollectionCases, c.ID.String(), doc); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "persist case document")
	}
	return nil
}

// Tick is the scheduler entry point.
func (c *Case) Tick(ctx context.Context) error {
	return c.HeartBeat(ctx)
}

// HeartBeat advances the stage state machine one step and persists the case.
func (c *Case) HeartBeat(ctx context.Context) error {
	c.lock()
	defer c.unlock()
	c.heartBeatLocked(ctx)
	return c.saveLocked(ctx)
}

// heartBeatLocked is the stage state machine. It is also invoked inline after
// state-changing events (vote cast, juror join/leave) so stage transitions do
// not wait for the next scheduled tick.
func (c *Case) heartBeatLocked(ctx context.Context) {
	if c.NoTick || c.Stage == StageClosed {
		return
	}
	now := c.deps.Clock()

	if c.PleaDeal != nil && c.PleaDeal.Expires != nil && now.After(*c.PleaDeal.Expires) {
		c.PleaDeal = nil
		c.recordAndAnnounceLocked(ctx, EventPleaDealExpired, "", "The plea deal offer has expired.", nil,
			Audience{Defense: true, Plaintiff: true})
	}

	c.pruneDepartedJurorsLocked(ctx)

	if len(c.JuryPool) < c.deps.Policy.JuryFloor {
		if c.Stage > StageJurySelection {
			c.Stage = StageJurySelection
			c.Status = StatusJurySelection
			for _, m := range c.MotionQueue {
				c.cancelVotingLocked(ctx, m, "insufficient jurors")
			}
		}
		c.sendInvitesLocked(ctx)
		return
	}

	if c.Stage == StageJurySelection {
		c.Stage = StageArgumentation
		c.Status = StatusArgumentation
		c.recordAndAnnounceLocked(ctx, EventCaseBody, "",
			"The jury is seated. The case enters argumentation.", nil, AudienceAll)
	}

	if c.Stage == StageArgumentation && len(c.MotionQueue) > 0 {
		head := c.MotionQueue[0]
		if !head.InConsideration() {
			c.startVotingLocked(ctx, head)
		} else if c.readyToCloseLocked(head, now) {
			c.closeMotionLocked(ctx, head)
			if len(c.MotionQueue) > 0 {
				c.startVotingLocked(ctx, c.MotionQueue[0])
			}
		}
	}
}

// pruneDepartedJurorsLocked drops jurors who left the guild.
func (c *Case) pruneDepartedJurorsLocked(ctx context.Context) {
	var kept []domain.UserID
	var pruned []domain.UserID
	for _, juror := range c.JuryPool {
		if _, err := c.deps.Directory.Member(ctx, juror); err != nil {
			if errors.Is(err, directory.ErrNotFound) {
				pruned = append(pruned, juror)
				continue
			}
			c.deps.Logger.WarnContext(ctx, "juror lookup failed", "case_id", c.ID, "user_id", juror, "error", err)
		}
		kept = append(kept, juror)
	}
	if len(pruned) == 0 {
		return
	}
	c.JuryPool = kept
	ids := make([]string, len(pruned))
	for i, u := range pruned {
		ids[i] = u.String()
	}
	c.recordAndAnnounceLocked(ctx, EventJurorLeave, "",
		"Jurors removed after leaving the community.", map[string]any{"juror_ids": ids},
		Audience{Jury: true})
}

// sendInvitesLocked invites a random 2-3 eligible users to jury duty.
func (c *Case) sendInvitesLocked(ctx context.Context) {
	eligible, err := c.eligibleJurorsLocked(ctx)
	if err != nil {
		c.deps.Logger.ErrorContext(ctx, "juror eligibility scan failed", "case_id", c.ID, "error", err)
		return
	}
	if len(eligible) == 0 {
		return
	}

	span := c.deps.Policy.MaxInvites - c.deps.Policy.MinInvites + 1
	count := c.deps.Policy.MinInvites + c.deps.RNG.Intn(span)
	if count > len(eligible) {
		count = len(eligible)
	}
	c.deps.RNG.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})
	invited := eligible[:count]

	msg := c.inviteMessage()
	ids := make([]string, 0, len(invited))
	for _, user := range invited {
		c.JuryInvites = append(c.JuryInvites, user)
		ids = append(ids, user.String())
		if err := c.deps.Notifier.SendDM(ctx, user, msg); err != nil {
			c.deps.Logger.WarnContext(ctx, "jury invite delivery failed",
				"case_id", c.ID, "user_id", user, "error", err)
		}
		if c.deps.Metrics != nil {
			c.deps.Metrics.JuryInvitesSent.Inc()
		}
	}
	c.appendEventLocked(EventJuryInvite, "", "Jury invitations sent.", map[string]any{"invitee_ids": ids})
}

// JoinJury seats an invited user as a juror. Seating may immediately advance
// the case to argumentation, so the heartbeat runs inline.
func (c *Case) JoinJury(ctx context.Context, user domain.UserID) error {
	c.lock()
	defer c.unlock()

	if c.Stage == StageClosed {
		return dErrors.New(dErrors.CodeBadRequest, "this case is closed")
	}
	if c.isJurorLocked(user) {
		return dErrors.New(dErrors.CodeConflict, "you are already seated on this jury")
	}
	if user == c.Plaintiff || user == c.Defense || (c.deps.Disqualified != nil && c.deps.Disqualified(user)) {
		return dErrors.New(dErrors.CodeForbidden, "parties to an active case cannot serve as jurors")
	}
	if !removeID(&c.JuryInvites, user) {
		return dErrors.New(dErrors.CodeForbidden, "you have not been invited to this jury")
	}

	c.JuryPool = append(c.JuryPool, user)
	c.KnownUsers[user] = c.deps.Directory.DisplayName(ctx, user)
	if c.deps.Metrics != nil {
		c.deps.Metrics.JurorsSeated.Inc()
	}
	c.recordAndAnnounceLocked(ctx, EventJurorJoin, user, "A juror has joined the pool.", map[string]any{
		"pool_size": len(c.JuryPool),
	}, Audience{Jury: true})

	c.heartBeatLocked(ctx)
	return c.saveLocked(ctx)
}

// LeaveJury removes a seated juror. Dropping below the jury floor triggers an
// immediate re-evaluation rather than waiting for the next scheduled tick.
func (c *Case) LeaveJury(ctx context.Context, user domain.UserID) error {
	c.lock()
	defer c.unlock()

	if c.Stage == StageClosed {
		return dErrors.New(dErrors.CodeBadRequest, "this case is closed")
	}
	if !removeID(&c.JuryPool, user) {
		return dErrors.New(dErrors.CodeNotFound, "you are not seated on this jury")
	}
	c.recordAndAnnounceLocked(ctx, EventJurorLeave, user, "A juror has left the pool.", map[string]any{
		"pool_size": len(c.JuryPool),
	}, Audience{Jury: true})

	c.heartBeatLocked(ctx)
	return c.saveLocked(ctx)
}

// DeclineJuryInvite removes a pending invitation.
func (c *Case) DeclineJuryInvite(ctx context.Context, user domain.UserID) error {
	c.lock()
	defer c.unlock()
	if c.Stage == StageClosed {
		return dErrors.New(dErrors.CodeBadRequest, "this case is closed")
	}
	if !removeID(&c.JuryInvites, user) {
		return dErrors.New(dErrors.CodeNotFound, "you have no pending invitation to this case")
	}
	return c.saveLocked(ctx)
}

func (c *Case) isJurorLocked(user domain.UserID) bool {
	for _, j := range c.JuryPool {
		if j == user {
			return true
		}
	}
	return false
}

// IsJuror reports whether the user is currently seated.
func (c *Case) IsJuror(user domain.UserID) bool {
	c.lock()
	defer c.unlock()
	return c.isJurorLocked(user)
}

// IsParty reports whether the user is plaintiff or defense.
func (c *Case) IsParty(user domain.UserID) bool {
	return user == c.Plaintiff || user == c.Defense
}

func (c *Case) roleOfLocked(user domain.UserID) domain.SubmitterRole {
	switch {
	case user == c.Plaintiff:
		return domain.RolePlaintiff
	case user == c.Defense:
		return domain.RoleDefense
	case c.isJurorLocked(user):
		return domain.RoleJuror
	default:
		return domain.RoleNeither
	}
}

// executePunishmentsLocked runs every penalty on the case. Individual
// failures are logged and do not stop the remaining penalties; the joined
// error is returned for the caller's audit trail.
func (c *Case) executePunishmentsLocked(ctx context.Context) error {
	var errs []error
	for _, p := range c.Penalties {
		if err := p.Execute(ctx, c); err != nil {
			c.deps.Logger.ErrorContext(ctx, "penalty execution failed",
				"case_id", c.ID, "penalty", p.Kind(), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OfferPleaDeal sets a pending penalty swap. Only the plaintiff may offer.
func (c *Case) OfferPleaDeal(ctx context.Context, actor domain.UserID, penalties PenaltySet, expires *time.Time) error {
	c.lock()
	defer c.unlock()
	if actor != c.Plaintiff {
		return dErrors.New(dErrors.CodeForbidden, "only the plaintiff may offer a plea deal")
	}
	if c.Stage == StageClosed {
		return dErrors.New(dErrors.CodeBadRequest, "this case is closed")
	}
	c.PleaDeal = &PleaDeal{Penalties: penalties, Expires: expires}
	c.recordAndAnnounceLocked(ctx, EventPleaDealOffered, actor,
		"A plea deal has been offered: "+penalties.Describe(), map[string]any{
			"penalties": penalties.Describe(),
		}, Audience{Defense: true, Plaintiff: true})
	return c.saveLocked(ctx)
}

// AcceptPleaDeal swaps the offered penalties into the active set.
func (c *Case) AcceptPleaDeal(ctx context.Context, actor domain.UserID) error {
	c.lock()
	defer c.unlock()
	if actor != c.Defense {
		return dErrors.New(dErrors.CodeForbidden, "only the defense may accept a plea deal")
	}
	if c.Stage == StageClosed {
		return dErrors.New(dErrors.CodeBadRequest, "this case is closed")
	}
	if c.PleaDeal == nil {
		return dErrors.New(dErrors.CodeBadRequest, "there is no plea deal on offer")
	}
	before := c.Penalties.Describe()
	c.Penalties = c.PleaDeal.Penalties
	c.PleaDeal = nil
	c.recordAndAnnounceLocked(ctx, EventPleaDealAccepted, actor,
		"The plea deal has been accepted.", map[string]any{
			"before": before,
			"after":  c.Penalties.Describe(),
		}, AudienceAll)
	return c.saveLocked(ctx)
}

// DeclinePleaDeal clears the pending offer.
func (c *Case) DeclinePleaDeal(ctx context.Context, actor domain.UserID) error {
	c.lock()
	defer c.unlock()
	if actor != c.Defense {
		return dErrors.New(dErrors.CodeForbidden, "only the defense may decline a plea deal")
	}
	if c.Stage == StageClosed {
		return dErrors.New(dErrors.CodeBadRequest, "this case is closed")
	}
	if c.PleaDeal == nil {
		return dErrors.New(dErrors.CodeBadRequest, "there is no plea deal on offer")
	}
	c.PleaDeal = nil
	c.recordAndAnnounceLocked(ctx, EventPleaDealDeclined, actor,
		"The plea deal has been declined.", nil, Audience{Defense: true, Plaintiff: true})
	return c.saveLocked(ctx)
}

// AddStatement files a personal statement from a party.
func (c *Case) AddStatement(ctx context.Context, author domain.UserID, text string) error {
	c.lock()
	defer c.unlock()
	if c.Stage == StageClosed {
		return dErrors.New(dErrors.CodeBadRequest, "this case is closed")
	}
	if !c.IsParty(author) {
		return dErrors.New(dErrors.CodeForbidden, "only parties to the case may file personal statements")
	}
	c.Statements = append(c.Statements, Statement{Author: author, At: c.deps.Clock(), Text: text})
	c.recordAndAnnounceLocked(ctx, EventStatementFiled, author, "A personal statement has been filed.", nil, AudienceAll)
	return c.saveLocked(ctx)
}

// AddJurorChat appends to the juror deliberation log.
func (c *Case) AddJurorChat(ctx context.Context, author domain.UserID, text string) error {
	c.lock()
	defer c.unlock()
	if c.Stage == StageClosed {
		return dErrors.New(dErrors.CodeBadRequest, "this case is closed")
	}
	if !c.isJurorLocked(author) {
		return dErrors.New(dErrors.CodeForbidden, "only seated jurors may use the deliberation log")
	}
	c.JurorChat = append(c.JurorChat, ChatMessage{Author: author, At: c.deps.Clock(), Text: text})
	return c.saveLocked(ctx)
}

func (c *Case) inviteMessage() notify.Message {
	return notify.Message{
		Subject: "Jury duty invitation",
		Body:    "You have been selected for jury duty in case " + c.ID.String() + ": " + c.Title,
		Fields:  map[string]string{"case_id": c.ID.String()},
	}
}

// removeID deletes the first occurrence of user from the slice, reporting
// whether it was present.
func removeID(ids *[]domain.UserID, user domain.UserID) bool {
	for i, id := range *ids {
		if id == user {
			*ids = append((*ids)[:i], (*ids)[i+1:]...)
			return true
		}
	}
	return false
}
