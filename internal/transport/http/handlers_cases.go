package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/CthulhuOnIce/Stasi-sub000/internal/casemanager"
	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
	dErrors "github.com/CthulhuOnIce/Stasi-sub000/pkg/domain-errors"
	"github.com/CthulhuOnIce/Stasi-sub000/pkg/httputil"
)

func (h *Handler) loadCase(r *http.Request) (*casemanager.Case, error) {
	return h.manager.Get(domain.CaseID(chi.URLParam(r, "caseID")))
}

type fileCaseRequest struct {
	Defense     domain.UserID          `json:"defense"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Penalties   casemanager.PenaltySet `json:"penalties"`
}

func (h *Handler) handleFileCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := httputil.Decode[fileCaseRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.manager.FileCase(ctx, GetUserID(ctx), req.Defense, req.Title, req.Description, req.Penalties)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c.View(GetUserID(ctx), IsAdmin(ctx)))
}

func (h *Handler) handleListCases(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	views := []casemanager.CaseView{}
	for _, c := range h.manager.List() {
		views = append(views, c.View(GetUserID(ctx), IsAdmin(ctx)))
	}
	httputil.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) handleGetCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.loadCase(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c.View(GetUserID(ctx), IsAdmin(ctx)))
}

type closeCaseRequest struct {
	Guilty  bool   `json:"guilty"`
	Verdict string `json:"verdict"`
}

func (h *Handler) handleCloseCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := httputil.Decode[closeCaseRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	caseID := domain.CaseID(chi.URLParam(r, "caseID"))
	if err := h.manager.CloseCase(ctx, caseID, req.Guilty, req.Verdict); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "case closed via command surface",
		"case_id", caseID, "guilty", req.Guilty, "actor", GetUserID(ctx))
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

type fileMotionRequest struct {
	Kind casemanager.MotionKind `json:"kind"`
	Body json.RawMessage        `json:"body"`
}

func (h *Handler) handleFileMotion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.loadCase(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[fileMotionRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	body, err := casemanager.DecodeMotionBody(req.Kind, req.Body)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid motion body"))
		return
	}
	m, err := c.FileMotion(ctx, GetUserID(ctx), body)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, m)
}

type castVoteRequest struct {
	InFavor bool `json:"in_favor"`
}

func (h *Handler) handleCastVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.loadCase(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[castVoteRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	motionID := domain.MotionID(chi.URLParam(r, "motionID"))
	if err := c.CastVote(ctx, GetUserID(ctx), motionID, req.InFavor); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (h *Handler) handleJoinJury(w http.ResponseWriter, r *http.Request) {
	h.juryAction(w, r, (*casemanager.Case).JoinJury)
}

func (h *Handler) handleLeaveJury(w http.ResponseWriter, r *http.Request) {
	h.juryAction(w, r, (*casemanager.Case).LeaveJury)
}

func (h *Handler) handleDeclineInvite(w http.ResponseWriter, r *http.Request) {
	h.juryAction(w, r, (*casemanager.Case).DeclineJuryInvite)
}

func (h *Handler) juryAction(w http.ResponseWriter, r *http.Request, action func(*casemanager.Case, context.Context, domain.UserID) error) {
	ctx := r.Context()
	c, err := h.loadCase(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := action(c, ctx, GetUserID(ctx)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type submitEvidenceRequest struct {
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
}

func (h *Handler) handleSubmitEvidence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.loadCase(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[submitEvidenceRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Filename == "" || len(req.Data) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "filename and data are required"))
		return
	}
	ev, err := c.SubmitEvidence(ctx, GetUserID(ctx), req.Filename, req.Data)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ev)
}

func (h *Handler) handleListEvidence(w http.ResponseWriter, r *http.Request) {
	c, err := h.loadCase(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c.ListEvidence(GetUserID(r.Context())))
}

type sealEvidenceRequest struct {
	Description string `json:"description"`
}

func (h *Handler) handleSealEvidence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.loadCase(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[sealEvidenceRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	evidenceID := domain.EvidenceID(chi.URLParam(r, "evidenceID"))
	if err := c.SealEvidence(ctx, GetUserID(ctx), evidenceID, req.Description); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "sealed"})
}

func (h *Handler) handleCertifyEvidence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.loadCase(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	evidenceID := domain.EvidenceID(chi.URLParam(r, "evidenceID"))
	if err := c.CertifyEvidence(ctx, GetUserID(ctx), evidenceID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "certified"})
}

type offerPleaRequest struct {
	Penalties casemanager.PenaltySet `json:"penalties"`
	Expires   *time.Time             `json:"expires,omitempty"`
}

func (h *Handler) handleOfferPlea(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.loadCase(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[offerPleaRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := c.OfferPleaDeal(ctx, GetUserID(ctx), req.Penalties, req.Expires); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "offered"})
}

func (h *Handler) handleAcceptPlea(w http.ResponseWriter, r *http.Request) {
	h.pleaAction(w, r, (*casemanager.Case).AcceptPleaDeal)
}

func (h *Handler) handleDeclinePlea(w http.ResponseWriter, r *http.Request) {
	h.pleaAction(w, r, (*casemanager.Case).DeclinePleaDeal)
}

func (h *Handler) pleaAction(w http.ResponseWriter, r *http.Request, action func(*casemanager.Case, context.Context, domain.UserID) error) {
	ctx := r.Context()
	c, err := h.loadCase(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := action(c, ctx, GetUserID(ctx)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type textRequest struct {
	Text string `json:"text"`
}

func (h *Handler) handleAddStatement(w http.ResponseWriter, r *http.Request) {
	h.textAction(w, r, (*casemanager.Case).AddStatement)
}

func (h *Handler) handleJurorChat(w http.ResponseWriter, r *http.Request) {
	h.textAction(w, r, (*casemanager.Case).AddJurorChat)
}

func (h *Handler) textAction(w http.ResponseWriter, r *http.Request, action func(*casemanager.Case, context.Context, domain.UserID, string) error) {
	ctx := r.Context()
	c, err := h.loadCase(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[textRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Text == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "text is required"))
		return
	}
	if err := action(c, ctx, GetUserID(ctx), req.Text); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
