package casemanager

import (
	"time"

	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
)

// CaseView is the read model served to one viewer. Party identities are
// replaced by their anonymized labels unless the viewer is a party, a juror,
// or an administrator.
type CaseView struct {
	ID          domain.CaseID `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      string        `json:"status"`
	Stage       Stage         `json:"stage"`
	Created     time.Time     `json:"created"`
	Plaintiff   string        `json:"plaintiff"`
	Defense     string        `json:"defense"`

	Jurors     []domain.UserID `json:"jurors"`
	Motions    []*Motion       `json:"motions"`
	Events     []Event         `json:"events"`
	Statements []Statement     `json:"personal_statements"`
	Evidence   []Evidence      `json:"evidence"`
	Penalties  string          `json:"penalties"`
	PleaDeal   *PleaDeal       `json:"plea_deal,omitempty"`
	JurorChat  []ChatMessage   `json:"juror_chat_log,omitempty"`
}

// View renders the case for one viewer. Privileged viewers see real party
// IDs and the juror chat; everyone else gets the anonymized labels.
func (c *Case) View(viewer domain.UserID, admin bool) CaseView {
	c.lock()
	defer c.unlock()

	privileged := admin || c.isJurorLocked(viewer) || viewer == c.Plaintiff || viewer == c.Defense

	v := CaseView{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Status:      c.Status,
		Stage:       c.Stage,
		Created:     c.Created,
		Plaintiff:   c.partyLabelLocked(c.Plaintiff, privileged),
		Defense:     c.partyLabelLocked(c.Defense, privileged),
		Jurors:      append([]domain.UserID(nil), c.JuryPool...),
		Motions:     append([]*Motion(nil), c.MotionQueue...),
		Events:      append([]Event(nil), c.EventLog...),
		Statements:  append([]Statement(nil), c.Statements...),
		Penalties:   c.Penalties.Describe(),
		PleaDeal:    c.PleaDeal,
	}
	for _, ev := range c.Evidence {
		if ev.Sealed() && !privileged {
			continue
		}
		v.Evidence = append(v.Evidence, *ev)
	}
	if privileged {
		v.JurorChat = append([]ChatMessage(nil), c.JurorChat...)
	}
	return v
}

func (c *Case) partyLabelLocked(party domain.UserID, privileged bool) string {
	if privileged {
		return party.String()
	}
	if label, ok := c.Anonymization[party]; ok {
		return label
	}
	return party.String()
}
