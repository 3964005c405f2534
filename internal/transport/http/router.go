// Package httptransport is the thin HTTP command surface. Handlers decode,
// delegate to the domain services, and encode; no court semantics live here.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CthulhuOnIce/Stasi-sub000/internal/casemanager"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/viewstate"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/warden"
	"github.com/CthulhuOnIce/Stasi-sub000/pkg/httputil"
)

// Handler wires the command surface to the domain services.
type Handler struct {
	manager   *casemanager.Manager
	warden    *warden.Warden
	views     viewstate.Store
	validator TokenValidator
	logger    *slog.Logger
}

func NewHandler(
	manager *casemanager.Manager,
	wrd *warden.Warden,
	views viewstate.Store,
	validator TokenValidator,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		manager:   manager,
		warden:    wrd,
		views:     views,
		validator: validator,
		logger:    logger,
	}
}

// NewRouter mounts all endpoints.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(Tracing)
	r.Use(RequestLogger(h.logger))

	r.Get("/healthz", h.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.validator, h.logger))

		r.Route("/cases", func(r chi.Router) {
			r.Post("/", h.handleFileCase)
			r.Get("/", h.handleListCases)
			r.Get("/{caseID}", h.handleGetCase)
			r.With(RequireAdmin).Post("/{caseID}/close", h.handleCloseCase)

			r.Post("/{caseID}/motions", h.handleFileMotion)
			r.Post("/{caseID}/motions/{motionID}/vote", h.handleCastVote)

			r.Post("/{caseID}/jury/join", h.handleJoinJury)
			r.Post("/{caseID}/jury/leave", h.handleLeaveJury)
			r.Post("/{caseID}/jury/decline", h.handleDeclineInvite)

			r.Post("/{caseID}/evidence", h.handleSubmitEvidence)
			r.Get("/{caseID}/evidence", h.handleListEvidence)
			r.Post("/{caseID}/evidence/{evidenceID}/seal", h.handleSealEvidence)
			r.Post("/{caseID}/evidence/{evidenceID}/certify", h.handleCertifyEvidence)

			r.Post("/{caseID}/plea", h.handleOfferPlea)
			r.Post("/{caseID}/plea/accept", h.handleAcceptPlea)
			r.Post("/{caseID}/plea/decline", h.handleDeclinePlea)

			r.Post("/{caseID}/statements", h.handleAddStatement)
			r.Post("/{caseID}/chat", h.handleJurorChat)
		})

		r.Route("/warden", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/prisoners", h.handleListPrisoners)
			r.Get("/prisoners/{userID}", h.handleGetPrisoner)
			r.Post("/warrants", h.handleNewWarrant)
			r.Delete("/warrants/{warrantID}", h.handleReleaseWarrant)
			r.Post("/warrants/{warrantID}/freeze", h.handleFreezeWarrant)
			r.Post("/warrants/{warrantID}/unfreeze", h.handleUnfreezeWarrant)
			r.Post("/warrants/{warrantID}/deactivate", h.handleDeactivateWarrant)
			r.Post("/warrants/{warrantID}/activate", h.handleActivateWarrant)
		})

		r.Put("/view", h.handleSetView)
		r.Get("/view", h.handleGetView)
	})

	return r
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
