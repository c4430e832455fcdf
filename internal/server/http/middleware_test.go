package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/and161185/stockfolio/internal/errs"
)

func TestWithUserID_And_UserIDFromCtx(t *testing.T) {
	t.Parallel()

	id, ok := UserIDFromCtx(context.Background())
	require.False(t, ok)
	require.Equal(t, uuid.Nil, id)

	want := uuid.Must(uuid.NewV4())
	got, ok := UserIDFromCtx(WithUserID(context.Background(), want))
	require.True(t, ok)
	require.Equal(t, want, got)

	bad := context.WithValue(context.Background(), userIDKey, "not-uuid")
	_, ok = UserIDFromCtx(bad)
	require.False(t, ok, "wrong typed value")
}

func TestBearerToken(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   []string
		want string
		ok   bool
	}{
		{nil, "", false},
		{[]string{"Bearer abc"}, "abc", true},
		{[]string{"  bearer   abc  "}, "abc", true},
		{[]string{"Basic Zm9vOmJhcg==", "Bearer xyz"}, "xyz", true},
		{[]string{"Bearer "}, "", false},
		{[]string{"Token abc"}, "", false},
	}
	for _, tt := range tests {
		got, ok := bearerToken(tt.in)
		assert.Equal(t, tt.ok, ok, "%q", tt.in)
		assert.Equal(t, tt.want, got, "%q", tt.in)
	}
}

type authFunc func(string) (uuid.UUID, error)

func (f authFunc) Authenticate(tok string) (uuid.UUID, error) { return f(tok) }

func TestRequireBearer(t *testing.T) {
	t.Parallel()
	want := uuid.Must(uuid.NewV4())
	mw := RequireBearer(authFunc(func(tok string) (uuid.UUID, error) {
		if tok != "good" {
			return uuid.Nil, errs.ErrUnauthorized
		}
		return want, nil
	}))
	var seen uuid.UUID
	h := mw(func(c echo.Context) error {
		seen, _ = UserIDFromCtx(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	})

	e := echo.New()
	run := func(header string) error {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set(echo.HeaderAuthorization, header)
		}
		return h(e.NewContext(req, httptest.NewRecorder()))
	}

	require.ErrorIs(t, run(""), errs.ErrUnauthorized)
	require.ErrorIs(t, run("Bearer bad"), errs.ErrUnauthorized)
	require.Equal(t, uuid.Nil, seen)
	require.NoError(t, run("Bearer good"))
	require.Equal(t, want, seen)
}

func TestRecover_CatchesPanic(t *testing.T) {
	t.Parallel()
	h := Recover(zaptest.NewLogger(t))(func(echo.Context) error { panic("kaboom") })
	e := echo.New()
	err := h(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder()))
	require.ErrorContains(t, err, "kaboom")
	code, msg := statusOf(err)
	require.Equal(t, http.StatusInternalServerError, code)
	require.Equal(t, "internal", msg)
}

func TestLogging_RecordsRenderedStatus(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)
	e := echo.New()
	e.HTTPErrorHandler = errorHandler(log)

	h := Logging(log)(func(echo.Context) error { return errs.ErrRateLimited })
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/client/account/login", nil)
	req.Header.Set(headerRequestID, "rid-1")
	require.NoError(t, h(e.NewContext(req, rec)))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	entries := logs.FilterMessage("http").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.EqualValues(t, http.StatusTooManyRequests, fields["status"])
	require.Equal(t, "/api/client/account/login", fields["path"])
	require.Equal(t, "rid-1", fields["request_id"])
}

func TestStatusOf(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		code int
	}{
		{errs.ErrUnauthorized, http.StatusUnauthorized},
		{errs.ErrRateLimited, http.StatusTooManyRequests},
		{errs.ErrAlreadyExists, http.StatusConflict},
		{errs.ErrNotFound, http.StatusNotFound},
		{errs.ErrExpired, http.StatusBadRequest},
		{errs.ErrInvalidInput, http.StatusBadRequest},
		{echo.NewHTTPError(http.StatusMethodNotAllowed, "nope"), http.StatusMethodNotAllowed},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		code, msg := statusOf(tt.err)
		assert.Equal(t, tt.code, code, "%v", tt.err)
		assert.NotEmpty(t, msg)
	}
}
