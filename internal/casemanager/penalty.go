package casemanager

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	dErrors "github.com/CthulhuOnIce/Stasi-sub000/pkg/domain-errors"
)

// PenaltyKind tags the closed set of sanction variants.
type PenaltyKind string

const (
	PenaltyWarning      PenaltyKind = "warning"
	PenaltyPermanentBan PenaltyKind = "permanent_ban"
	PenaltyPrison       PenaltyKind = "prison"
)

// Penalty is a sanction descriptor. Execute is the only side-effecting entry
// point and is never called implicitly: a case (or an adjust-penalty motion
// swapping the set) must invoke it explicitly at verdict time. Callers must
// not execute the same logical sanction twice.
//
// Execute is called with the owning case's lock held.
type Penalty interface {
	Kind() PenaltyKind
	Describe() string
	Execute(ctx context.Context, c *Case) error
}

// Warning appends an administrative note to the defendant's record. No role
// or membership change.
type Warning struct {
	Note string `json:"note"`
}

func (w *Warning) Kind() PenaltyKind { return PenaltyWarning }
func (w *Warning) Describe() string  { return fmt.Sprintf("Warning: %s", w.Note) }

func (w *Warning) Execute(ctx context.Context, c *Case) error {
	c.appendEventLocked(EventPenaltyExecuted, c.Plaintiff, fmt.Sprintf("Formal warning issued to the defense: %s", w.Note), map[string]any{
		"penalty": string(PenaltyWarning),
		"note":    w.Note,
	})
	if c.deps.Audit != nil {
		c.deps.Audit.Emit(ctx, "penalty.warning", c.Plaintiff, c.Defense.String(), map[string]string{"case_id": c.ID.String(), "note": w.Note})
	}
	return nil
}

// PermanentBan removes the defense from the community at platform level.
type PermanentBan struct {
	Note string `json:"note"`
}

func (b *PermanentBan) Kind() PenaltyKind { return PenaltyPermanentBan }
func (b *PermanentBan) Describe() string  { return fmt.Sprintf("Permanent Ban: %s", b.Note) }

func (b *PermanentBan) Execute(ctx context.Context, c *Case) error {
	reason := fmt.Sprintf("case %s verdict: %s", c.ID, b.Note)
	if err := c.deps.Directory.Ban(ctx, c.Defense, reason); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "execute permanent ban")
	}
	c.appendEventLocked(EventPenaltyExecuted, c.Plaintiff, "Defense permanently banned by verdict.", map[string]any{
		"penalty": string(PenaltyPermanentBan),
		"note":    b.Note,
	})
	if c.deps.Audit != nil {
		c.deps.Audit.Emit(ctx, "penalty.ban", c.Plaintiff, c.Defense.String(), map[string]string{"case_id": c.ID.String(), "reason": reason})
	}
	return nil
}

// Prison delegates to the warden: a new warrant against the defense for the
// configured duration. Seconds <= 0 denotes an indefinite sentence.
type Prison struct {
	Seconds int64 `json:"seconds"`
}

func (p *Prison) Kind() PenaltyKind { return PenaltyPrison }

func (p *Prison) Describe() string {
	if p.Seconds <= 0 {
		return "Prison: indefinite"
	}
	return fmt.Sprintf("Prison: %s", time.Duration(p.Seconds)*time.Second)
}

func (p *Prison) Execute(ctx context.Context, c *Case) error {
	seconds := p.Seconds
	if seconds <= 0 {
		seconds = -1 // indefinite sentences become stay warrants
	}
	warrantID, err := c.deps.Warden.NewWarrant(ctx, c.Defense, "case",
		fmt.Sprintf("sentence from case %s", c.ID), c.Plaintiff, seconds)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "execute prison sentence")
	}
	c.appendEventLocked(EventPenaltyExecuted, c.Plaintiff, fmt.Sprintf("Defense imprisoned: %s", p.Describe()), map[string]any{
		"penalty":    string(PenaltyPrison),
		"seconds":    p.Seconds,
		"warrant_id": warrantID.String(),
	})
	if c.deps.Audit != nil {
		c.deps.Audit.Emit(ctx, "penalty.prison", c.Plaintiff, c.Defense.String(), map[string]string{
			"case_id":    c.ID.String(),
			"warrant_id": warrantID.String(),
		})
	}
	return nil
}

// penaltyDecoders is the explicit tag-to-constructor table used when loading
// penalty sets from storage. Adding a variant means adding a row here.
var penaltyDecoders = map[PenaltyKind]func() Penalty{
	PenaltyWarning:      func() Penalty { return &Warning{} },
	PenaltyPermanentBan: func() Penalty { return &PermanentBan{} },
	PenaltyPrison:       func() Penalty { return &Prison{} },
}

type penaltyEnvelope struct {
	Kind    PenaltyKind     `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// PenaltySet is the serializable collection of sanctions on a case or inside
// an adjust-penalty motion.
type PenaltySet []Penalty

// Describe renders the set for event payloads and announcements.
func (ps PenaltySet) Describe() string {
	if len(ps) == 0 {
		return "none"
	}
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.Describe()
	}
	return strings.Join(parts, "; ")
}

func (ps PenaltySet) MarshalJSON() ([]byte, error) {
	envelopes := make([]penaltyEnvelope, len(ps))
	for i, p := range ps {
		payload, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encode penalty %s: %w", p.Kind(), err)
		}
		envelopes[i] = penaltyEnvelope{Kind: p.Kind(), Payload: payload}
	}
	return json.Marshal(envelopes)
}

func (ps *PenaltySet) UnmarshalJSON(data []byte) error {
	var envelopes []penaltyEnvelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return err
	}
	out := make(PenaltySet, 0, len(envelopes))
	for _, env := range envelopes {
		decode, ok := penaltyDecoders[env.Kind]
		if !ok {
			return fmt.Errorf("unknown penalty kind %q", env.Kind)
		}
		p := decode()
		if err := json.Unmarshal(env.Payload, p); err != nil {
			return fmt.Errorf("decode penalty %s: %w", env.Kind, err)
		}
		out = append(out, p)
	}
	*ps = out
	return nil
}
