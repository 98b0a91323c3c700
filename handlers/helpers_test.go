package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futsal-hq/match-tracker/services"
)

func TestMapServiceErrorToHTTP(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"match not found", services.ErrMatchNotFound, http.StatusNotFound},
		{"team not found", services.ErrTeamNotFound, http.StatusNotFound},
		{"team name conflict", services.ErrTeamNameConflict, http.StatusConflict},
		{"illegal transition", services.ErrIllegalTransition, http.StatusConflict},
		{"match not live", services.ErrMatchNotLive, http.StatusConflict},
		{"no more halves", services.ErrNoMoreHalves, http.StatusConflict},
		{"halftime window closed", services.ErrHalftimeWindowClosed, http.StatusConflict},
		{"invalid lineup size", services.ErrInvalidLineupSize, http.StatusUnprocessableEntity},
		{"foreign player", services.ErrForeignPlayer, http.StatusUnprocessableEntity},
		{"player not on field", services.ErrPlayerNotOnField, http.StatusUnprocessableEntity},
		{"unbalanced substitution", services.ErrUnbalancedSubstitution, http.StatusUnprocessableEntity},
		{"validation failed", services.ErrValidationFailed, http.StatusBadRequest},
		{"event time in future", services.ErrEventTimeInFuture, http.StatusBadRequest},
		{"invalid credentials", services.ErrAuthInvalidCredentials, http.StatusUnauthorized},
		{"unknown error", assert.AnError, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)

			mapServiceErrorToHTTP(rec, req, tc.err)

			assert.Equal(t, tc.want, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func requestWithURLParam(param, value string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(param, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestGetIDFromURL(t *testing.T) {
	t.Run("valid id", func(t *testing.T) {
		id, err := getIDFromURL(requestWithURLParam("matchID", "15"), "matchID")
		require.NoError(t, err)
		assert.Equal(t, 15, id)
	})

	t.Run("missing param", func(t *testing.T) {
		_, err := getIDFromURL(requestWithURLParam("matchID", "15"), "teamID")
		assert.Error(t, err)
	})

	t.Run("not a number", func(t *testing.T) {
		_, err := getIDFromURL(requestWithURLParam("matchID", "abc"), "matchID")
		assert.Error(t, err)
	})

	t.Run("zero and negative ids", func(t *testing.T) {
		for _, v := range []string{"0", "-3"} {
			_, err := getIDFromURL(requestWithURLParam("matchID", v), "matchID")
			assert.Error(t, err, "value %s", v)
		}
	})
}

func TestReadJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	t.Run("valid body", func(t *testing.T) {
		var dst payload
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok"}`))
		require.NoError(t, readJSON(httptest.NewRecorder(), req, &dst))
		assert.Equal(t, "ok", dst.Name)
	})

	t.Run("unknown field", func(t *testing.T) {
		var dst payload
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok","extra":1}`))
		err := readJSON(httptest.NewRecorder(), req, &dst)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown key")
	})

	t.Run("empty body", func(t *testing.T) {
		var dst payload
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		assert.Error(t, readJSON(httptest.NewRecorder(), req, &dst))
	})

	t.Run("multiple JSON values", func(t *testing.T) {
		var dst payload
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}{"name":"b"}`))
		assert.Error(t, readJSON(httptest.NewRecorder(), req, &dst))
	})
}
