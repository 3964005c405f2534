package httputil_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	dErrors "github.com/CthulhuOnIce/Stasi-sub000/pkg/domain-errors"
	"github.com/CthulhuOnIce/Stasi-sub000/pkg/httputil"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	httputil.WriteJSON(rec, http.StatusCreated, map[string]string{"id": "abc"})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"id":"abc"}`, rec.Body.String())
}

func TestWriteError(t *testing.T) {
	t.Run("coded errors carry a description", func(t *testing.T) {
		rec := httptest.NewRecorder()
		httputil.WriteError(rec, dErrors.New(dErrors.CodeForbidden, "only parties may certify evidence"))

		require.Equal(t, http.StatusForbidden, rec.Code)
		require.JSONEq(t, `{"error":"forbidden","error_description":"only parties may certify evidence"}`, rec.Body.String())
	})

	t.Run("internal errors omit the description", func(t *testing.T) {
		rec := httptest.NewRecorder()
		httputil.WriteError(rec, dErrors.Wrap(errors.New("pq: connection reset"), dErrors.CodeInternal, "persist case document"))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.JSONEq(t, `{"error":"internal"}`, rec.Body.String())
	})

	t.Run("uncoded errors map to internal", func(t *testing.T) {
		rec := httptest.NewRecorder()
		httputil.WriteError(rec, errors.New("surprise"))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.JSONEq(t, `{"error":"internal"}`, rec.Body.String())
	})
}

func TestDecode(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
	}

	t.Run("valid body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"Defamation"}`))
		body, err := httputil.Decode[payload](r)
		require.NoError(t, err)
		require.Equal(t, "Defamation", body.Title)
	})

	t.Run("malformed body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":`))
		_, err := httputil.Decode[payload](r)
		require.Error(t, err)
		require.Equal(t, dErrors.CodeBadRequest, dErrors.CodeOf(err))
	})
}

func TestWriteErrorEnvelopeShape(t *testing.T) {
	rec := httptest.NewRecorder()
	httputil.WriteError(rec, dErrors.Newf(dErrors.CodeNotFound, "case not found: %s", "2026-01-01-QQQQ"))

	var envelope map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, "not_found", envelope["error"])
	require.Contains(t, envelope["error_description"], "2026-01-01-QQQQ")
}
