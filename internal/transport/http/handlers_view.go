package httptransport

import (
	"net/http"

	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
	dErrors "github.com/CthulhuOnIce/Stasi-sub000/pkg/domain-errors"
	"github.com/CthulhuOnIce/Stasi-sub000/pkg/httputil"
)

type setViewRequest struct {
	CaseID domain.CaseID `json:"case_id"`
}

// handleSetView remembers which case the caller is working in. A zero case
// ID clears the state.
func (h *Handler) handleSetView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := httputil.Decode[setViewRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !req.CaseID.IsZero() {
		if _, err := h.manager.Get(req.CaseID); err != nil {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeNotFound, "case not found: %s", req.CaseID))
			return
		}
	}
	if err := h.views.Set(ctx, GetUserID(ctx), req.CaseID); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "persist viewer state"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"case_id": req.CaseID.String()})
}

func (h *Handler) handleGetView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, err := h.views.Get(ctx, GetUserID(ctx))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "read viewer state"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"case_id": caseID.String()})
}
