package httptransport

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
	"github.com/CthulhuOnIce/Stasi-sub000/pkg/httputil"
)

func (h *Handler) handleListPrisoners(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.warden.Prisoners())
}

func (h *Handler) handleGetPrisoner(w http.ResponseWriter, r *http.Request) {
	p, err := h.warden.Prisoner(domain.UserID(chi.URLParam(r, "userID")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

type newWarrantRequest struct {
	User        domain.UserID `json:"user"`
	Category    string        `json:"category"`
	Description string        `json:"description"`
	LenSeconds  int64         `json:"len_seconds"`
}

func (h *Handler) handleNewWarrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := httputil.Decode[newWarrantRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, err := h.warden.NewWarrant(ctx, req.User, req.Category, req.Description, GetUserID(ctx), req.LenSeconds)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"warrant_id": id.String()})
}

func (h *Handler) handleReleaseWarrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	warrantID := domain.WarrantID(chi.URLParam(r, "warrantID"))
	if err := h.warden.Release(ctx, warrantID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "warrant released via command surface",
		"warrant_id", warrantID, "actor", GetUserID(ctx))
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "released"})
}

func (h *Handler) handleFreezeWarrant(w http.ResponseWriter, r *http.Request) {
	h.warrantFlag(w, r, func(ctx context.Context, id domain.WarrantID) error {
		return h.warden.Freeze(ctx, id, true)
	})
}

func (h *Handler) handleUnfreezeWarrant(w http.ResponseWriter, r *http.Request) {
	h.warrantFlag(w, r, func(ctx context.Context, id domain.WarrantID) error {
		return h.warden.Freeze(ctx, id, false)
	})
}

func (h *Handler) handleDeactivateWarrant(w http.ResponseWriter, r *http.Request) {
	h.warrantFlag(w, r, func(ctx context.Context, id domain.WarrantID) error {
		return h.warden.SetEnforce(ctx, id, false)
	})
}

func (h *Handler) handleActivateWarrant(w http.ResponseWriter, r *http.Request) {
	h.warrantFlag(w, r, func(ctx context.Context, id domain.WarrantID) error {
		return h.warden.SetEnforce(ctx, id, true)
	})
}

func (h *Handler) warrantFlag(w http.ResponseWriter, r *http.Request, apply func(context.Context, domain.WarrantID) error) {
	if err := apply(r.Context(), domain.WarrantID(chi.URLParam(r, "warrantID"))); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
