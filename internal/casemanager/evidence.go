package casemanager

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
	dErrors "github.com/CthulhuOnIce/Stasi-sub000/pkg/domain-errors"
)

// Seal marks a piece of evidence as withheld. Sealed evidence is visible only
// to the case's parties and seated jurors.
type Seal struct {
	ID          string        `json:"id"`
	Description string        `json:"description"`
	Author      domain.UserID `json:"author"`
	Created     time.Time     `json:"created"`
}

// Evidence is an attachment on a case. Immutable once filed, except for seals
// and certification.
type Evidence struct {
	ID        domain.EvidenceID    `json:"id"`
	Filename  string               `json:"filename"`
	BlobID    string               `json:"blob_id"`
	Submitter domain.UserID        `json:"submitter"`
	Role      domain.SubmitterRole `json:"role"`
	Created   time.Time            `json:"created"`
	Seals     []Seal               `json:"seals,omitempty"`
	Certified bool                 `json:"certified"`
}

// Sealed reports whether any seal restricts this evidence.
func (e *Evidence) Sealed() bool { return len(e.Seals) > 0 }

// SubmitEvidence stores the attachment in the blob store and files it on the
// case, tagged by the submitter's role at filing time.
func (c *Case) SubmitEvidence(ctx context.Context, submitter domain.UserID, filename string, data []byte) (*Evidence, error) {
	c.lock()
	defer c.unlock()

	if c.Stage == StageClosed {
		return nil, dErrors.New(dErrors.CodeBadRequest, "this case is closed")
	}

	blobID, err := c.deps.Blobs.Put(ctx, filename, data)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store evidence attachment")
	}

	c.EvidenceCounter++
	ev := &Evidence{
		ID:        domain.NewEvidenceID(c.ID, c.roleOfLocked(submitter), c.EvidenceCounter),
		Filename:  filename,
		BlobID:    blobID,
		Submitter: submitter,
		Role:      c.roleOfLocked(submitter),
		Created:   c.deps.Clock(),
	}
	c.Evidence = append(c.Evidence, ev)

	c.recordAndAnnounceLocked(ctx, EventEvidenceFiled, submitter,
		"Evidence filed: "+filename, map[string]any{
			"evidence_id": ev.ID.String(),
			"filename":    filename,
		}, AudienceAll)

	if err := c.saveLocked(ctx); err != nil {
		return nil, err
	}
	return ev, nil
}

// SealEvidence restricts a piece of evidence. Only parties and jurors of the
// case may place seals.
func (c *Case) SealEvidence(ctx context.Context, actor domain.UserID, id domain.EvidenceID, description string) error {
	c.lock()
	defer c.unlock()

	if c.Stage == StageClosed {
		return dErrors.New(dErrors.CodeBadRequest, "this case is closed")
	}
	if !c.IsParty(actor) && !c.isJurorLocked(actor) {
		return dErrors.New(dErrors.CodeForbidden, "only parties and seated jurors may seal evidence")
	}
	ev := c.findEvidenceLocked(id)
	if ev == nil {
		return dErrors.Newf(dErrors.CodeNotFound, "evidence not found: %s", id)
	}
	ev.Seals = append(ev.Seals, Seal{
		ID:          uuid.NewString(),
		Description: description,
		Author:      actor,
		Created:     c.deps.Clock(),
	})
	c.appendEventLocked(EventEvidenceSealed, actor, "Evidence sealed.", map[string]any{
		"evidence_id": id.String(),
		"description": description,
	})
	return c.saveLocked(ctx)
}

// CertifyEvidence marks evidence as certified. Restricted to parties.
func (c *Case) CertifyEvidence(ctx context.Context, actor domain.UserID, id domain.EvidenceID) error {
	c.lock()
	defer c.unlock()

	if c.Stage == StageClosed {
		return dErrors.New(dErrors.CodeBadRequest, "this case is closed")
	}
	if !c.IsParty(actor) {
		return dErrors.New(dErrors.CodeForbidden, "only parties may certify evidence")
	}
	ev := c.findEvidenceLocked(id)
	if ev == nil {
		return dErrors.Newf(dErrors.CodeNotFound, "evidence not found: %s", id)
	}
	ev.Certified = true
	return c.saveLocked(ctx)
}

// ListEvidence returns the evidence visible to the viewer: sealed items are
// omitted for anyone who is not a party or seated juror. Missing items never
// fail a listing.
func (c *Case) ListEvidence(viewer domain.UserID) []Evidence {
	c.lock()
	defer c.unlock()

	privileged := c.IsParty(viewer) || c.isJurorLocked(viewer)
	out := make([]Evidence, 0, len(c.Evidence))
	for _, ev := range c.Evidence {
		if ev.Sealed() && !privileged {
			continue
		}
		out = append(out, *ev)
	}
	return out
}

func (c *Case) findEvidenceLocked(id domain.EvidenceID) *Evidence {
	for _, ev := range c.Evidence {
		if ev.ID == id {
			return ev
		}
	}
	return nil
}

// deleteEvidenceBlobsLocked removes stored attachments on case close. Blob
// deletion failures are logged, not fatal: the case teardown proceeds.
func (c *Case) deleteEvidenceBlobsLocked(ctx context.Context) {
	for _, ev := range c.Evidence {
		if err := c.deps.Blobs.Delete(ctx, ev.BlobID); err != nil {
			c.deps.Logger.WarnContext(ctx, "evidence blob delete failed",
				"case_id", c.ID, "evidence_id", ev.ID, "error", err)
		}
	}
}
