package httptransport_test

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"github.com/CthulhuOnIce/Stasi-sub000/internal/blob"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/casemanager"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/directory"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/docstore"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/jwttoken"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/notify"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/platform/metrics"
	httptransport "github.com/CthulhuOnIce/Stasi-sub000/internal/transport/http"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/viewstate"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/warden"
	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
	"github.com/CthulhuOnIce/Stasi-sub000/pkg/testutil"
)

const (
	plaintiffID = domain.UserID("plaintiff-1")
	defenseID   = domain.UserID("defense-1")
	adminID     = domain.UserID("admin-1")
)

type HandlerSuite struct {
	suite.Suite
	manager *casemanager.Manager
	warden  *warden.Warden
	dir     *directory.Memory
	tokens  *jwttoken.Service
	router  http.Handler
	ctx     context.Context
}

func (s *HandlerSuite) SetupTest() {
	s.ctx = context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := docstore.NewMemory()
	s.dir = directory.NewMemory()

	for _, id := range []domain.UserID{plaintiffID, defenseID, adminID} {
		s.dir.Upsert(directory.Member{ID: id, DisplayName: id.String(), Roles: []string{"citizen"}, MessageCount: 500, LastActive: time.Now()})
	}

	wrd, err := warden.New(store, s.dir, "muted", logger)
	s.Require().NoError(err)
	s.warden = wrd

	manager, err := casemanager.NewManager(casemanager.Deps{
		Store:     store,
		Blobs:     blob.NewMemory(),
		Directory: s.dir,
		Notifier:  notify.NewRecorder(),
		Warden:    wrd,
		Logger:    logger,
		Metrics:   metrics.NewWith(prometheus.NewRegistry()),
		Clock:     time.Now,
		RNG:       rand.New(rand.NewSource(3)),
		Policy:    casemanager.DefaultPolicy(),
	})
	s.Require().NoError(err)
	s.manager = manager

	s.tokens = jwttoken.NewService("handler-test-key", "court")
	handler := httptransport.NewHandler(manager, wrd, viewstate.NewMemory(), s.tokens, logger)
	s.router = httptransport.NewRouter(handler)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) token(user domain.UserID, admin bool) string {
	token, err := s.tokens.GenerateAccessToken(user, admin, time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *HandlerSuite) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return testutil.DoRequest(s.router, req)
}

func (s *HandlerSuite) fileCase() domain.CaseID {
	rr := s.do(http.MethodPost, "/cases", map[string]any{
		"defense":     defenseID,
		"title":       "Defamation",
		"description": "d",
		"penalties":   []map[string]any{{"kind": "warning", "payload": map[string]string{"note": "n"}}},
	}, s.token(plaintiffID, false))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	view := testutil.UnmarshalResponse[casemanager.CaseView](s.T(), rr)
	return view.ID
}

func (s *HandlerSuite) TestHealthzIsOpen() {
	rr := s.do(http.MethodGet, "/healthz", nil, "")
	s.Equal(http.StatusOK, rr.Code)
}

func (s *HandlerSuite) TestAuthRequired() {
	s.Run("missing token", func() {
		rr := s.do(http.MethodGet, "/cases", nil, "")
		s.Equal(http.StatusUnauthorized, rr.Code)
		s.JSONEq(`{"error":"unauthorized","error_description":"missing or invalid Authorization header"}`, rr.Body.String())
	})

	s.Run("garbage token", func() {
		rr := s.do(http.MethodGet, "/cases", nil, "not-a-token")
		s.Equal(http.StatusUnauthorized, rr.Code)
	})

	s.Run("expired token", func() {
		expired, err := s.tokens.GenerateAccessToken(plaintiffID, false, -time.Minute)
		s.Require().NoError(err)
		rr := s.do(http.MethodGet, "/cases", nil, expired)
		s.Equal(http.StatusUnauthorized, rr.Code)
	})
}

func (s *HandlerSuite) TestFileAndViewCase() {
	caseID := s.fileCase()

	s.Run("parties see real identities", func() {
		rr := s.do(http.MethodGet, "/cases/"+caseID.String(), nil, s.token(defenseID, false))
		s.Require().Equal(http.StatusOK, rr.Code)
		view := testutil.UnmarshalResponse[casemanager.CaseView](s.T(), rr)
		s.Equal(plaintiffID.String(), view.Plaintiff)
	})

	s.Run("outsiders see anonymized labels", func() {
		rr := s.do(http.MethodGet, "/cases/"+caseID.String(), nil, s.token("bystander", false))
		s.Require().Equal(http.StatusOK, rr.Code)
		view := testutil.UnmarshalResponse[casemanager.CaseView](s.T(), rr)
		s.Equal("The Plaintiff", view.Plaintiff)
		s.Equal("The Defense", view.Defense)
	})

	s.Run("admins see through anonymization", func() {
		rr := s.do(http.MethodGet, "/cases/"+caseID.String(), nil, s.token(adminID, true))
		s.Require().Equal(http.StatusOK, rr.Code)
		view := testutil.UnmarshalResponse[casemanager.CaseView](s.T(), rr)
		s.Equal(plaintiffID.String(), view.Plaintiff)
	})

	s.Run("listing returns the case", func() {
		rr := s.do(http.MethodGet, "/cases", nil, s.token(plaintiffID, false))
		s.Require().Equal(http.StatusOK, rr.Code)
		views := testutil.UnmarshalResponse[[]casemanager.CaseView](s.T(), rr)
		s.Len(*views, 1)
	})

	s.Run("unknown case is a 404 envelope", func() {
		rr := s.do(http.MethodGet, "/cases/2026-01-01-QQQQ", nil, s.token(plaintiffID, false))
		s.Equal(http.StatusNotFound, rr.Code)
		s.Contains(rr.Body.String(), `"error":"not_found"`)
	})
}

func (s *HandlerSuite) TestFileCaseValidationSurfaces() {
	rr := s.do(http.MethodPost, "/cases", map[string]any{
		"defense":   plaintiffID,
		"title":     "Self",
		"penalties": []map[string]any{{"kind": "warning", "payload": map[string]string{"note": "n"}}},
	}, s.token(plaintiffID, false))
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *HandlerSuite) TestFileMotion() {
	caseID := s.fileCase()

	s.Run("unknown motion kind", func() {
		rr := s.do(http.MethodPost, "/cases/"+caseID.String()+"/motions", map[string]any{
			"kind": "telex",
			"body": map[string]string{},
		}, s.token(plaintiffID, false))
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("statement motion files", func() {
		rr := s.do(http.MethodPost, "/cases/"+caseID.String()+"/motions", map[string]any{
			"kind": "statement",
			"body": map[string]string{"text": "on the record"},
		}, s.token(plaintiffID, false))
		s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	})

	s.Run("outsiders are rejected", func() {
		rr := s.do(http.MethodPost, "/cases/"+caseID.String()+"/motions", map[string]any{
			"kind": "statement",
			"body": map[string]string{"text": "x"},
		}, s.token("bystander", false))
		s.Equal(http.StatusForbidden, rr.Code)
	})
}

func (s *HandlerSuite) TestCloseCaseIsAdminOnly() {
	caseID := s.fileCase()

	rr := s.do(http.MethodPost, "/cases/"+caseID.String()+"/close", map[string]any{
		"guilty": false, "verdict": "Not Guilty",
	}, s.token(plaintiffID, false))
	s.Equal(http.StatusForbidden, rr.Code)

	rr = s.do(http.MethodPost, "/cases/"+caseID.String()+"/close", map[string]any{
		"guilty": false, "verdict": "Not Guilty",
	}, s.token(adminID, true))
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	s.Empty(s.manager.List())
}

func (s *HandlerSuite) TestWardenRoutes() {
	admin := s.token(adminID, true)

	s.Run("non-admins are rejected", func() {
		rr := s.do(http.MethodGet, "/warden/prisoners", nil, s.token(plaintiffID, false))
		s.Equal(http.StatusForbidden, rr.Code)
	})

	var warrantID string
	s.Run("issuing a warrant books the prisoner", func() {
		rr := s.do(http.MethodPost, "/warden/warrants", map[string]any{
			"user":        defenseID,
			"category":    "mod",
			"description": "spamming",
			"len_seconds": 3600,
		}, admin)
		s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
		warrantID = (*testutil.UnmarshalResponse[map[string]string](s.T(), rr))["warrant_id"]
		s.Require().NotEmpty(warrantID)

		rr = s.do(http.MethodGet, "/warden/prisoners/"+defenseID.String(), nil, admin)
		s.Require().Equal(http.StatusOK, rr.Code)
		prisoner := testutil.UnmarshalResponse[warden.Prisoner](s.T(), rr)
		s.True(prisoner.Booked)
	})

	s.Run("freeze and release round-trip", func() {
		rr := s.do(http.MethodPost, "/warden/warrants/"+warrantID+"/freeze", nil, admin)
		s.Require().Equal(http.StatusOK, rr.Code)

		rr = s.do(http.MethodDelete, "/warden/warrants/"+warrantID, nil, admin)
		s.Require().Equal(http.StatusOK, rr.Code)

		rr = s.do(http.MethodGet, "/warden/prisoners/"+defenseID.String(), nil, admin)
		s.Equal(http.StatusNotFound, rr.Code)
	})

	s.Run("releasing an unknown warrant is a 404", func() {
		rr := s.do(http.MethodDelete, "/warden/warrants/missing", nil, admin)
		s.Equal(http.StatusNotFound, rr.Code)
	})
}

func (s *HandlerSuite) TestViewState() {
	caseID := s.fileCase()
	token := s.token(plaintiffID, false)

	s.Run("setting an unknown case fails", func() {
		rr := s.do(http.MethodPut, "/view", map[string]string{"case_id": "2026-01-01-QQQQ"}, token)
		s.Equal(http.StatusNotFound, rr.Code)
	})

	s.Run("set and get round-trip", func() {
		rr := s.do(http.MethodPut, "/view", map[string]string{"case_id": caseID.String()}, token)
		s.Require().Equal(http.StatusOK, rr.Code)

		rr = s.do(http.MethodGet, "/view", nil, token)
		s.Require().Equal(http.StatusOK, rr.Code)
		s.Equal(caseID.String(), (*testutil.UnmarshalResponse[map[string]string](s.T(), rr))["case_id"])
	})

	s.Run("a zero case ID clears the view", func() {
		rr := s.do(http.MethodPut, "/view", map[string]string{"case_id": ""}, token)
		s.Require().Equal(http.StatusOK, rr.Code)

		rr = s.do(http.MethodGet, "/view", nil, token)
		s.Equal("", (*testutil.UnmarshalResponse[map[string]string](s.T(), rr))["case_id"])
	})
}
