package httpserver

import (
	"net/http"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestAccount_RegisterLoginRefreshRevoke(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	reg := env.register(t, "alice")
	require.NotEmpty(t, reg.AccessToken)
	require.NotEmpty(t, reg.RefreshToken)
	require.Equal(t, "alice", reg.Username)
	require.Equal(t, "alice@example.com", reg.Email)

	code, body := env.call(t, http.MethodPost, "/account/login", "", map[string]string{"username": "alice", "password": "correct horse"})
	require.Equal(t, http.StatusOK, code)
	refresh := gjson.GetBytes(body, "refreshToken").String()
	require.NotEmpty(t, refresh)

	code, body = env.call(t, http.MethodPost, "/account/refresh-token", "", map[string]string{"refreshToken": refresh})
	require.Equal(t, http.StatusOK, code)
	rotated := gjson.GetBytes(body, "refreshToken").String()
	require.NotEqual(t, refresh, rotated)
	require.Equal(t, "alice", gjson.GetBytes(body, "username").String())

	code, body = env.call(t, http.MethodPost, "/account/refresh-token", "", map[string]string{"refreshToken": refresh})
	require.Equal(t, http.StatusUnauthorized, code, "old refresh token is rotated out")
	require.Equal(t, "unauthorized", gjson.GetBytes(body, "message").String())

	code, _ = env.call(t, http.MethodPost, "/account/revoke-token", "", map[string]string{"refreshToken": rotated})
	require.Equal(t, http.StatusNoContent, code)
	code, _ = env.call(t, http.MethodPost, "/account/refresh-token", "", map[string]string{"refreshToken": rotated})
	require.Equal(t, http.StatusUnauthorized, code)
}

func TestAccount_ValidationBody(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	code, body := env.call(t, http.MethodPost, "/account/register", "", map[string]string{"email": "nope", "username": "bob", "password": "short"})
	require.Equal(t, http.StatusBadRequest, code)
	errs := gjson.GetBytes(body, "errors")
	require.True(t, errs.Get("Email").IsArray(), string(body))
	require.True(t, errs.Get("Password").IsArray(), string(body))
	require.False(t, errs.Get("Username").Exists())

	code, body = env.call(t, http.MethodPost, "/account/login", "", nil)
	require.Equal(t, http.StatusBadRequest, code)
	require.True(t, gjson.GetBytes(body, "errors.Username").Exists())
}

func TestAccount_DuplicateAndMalformed(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.register(t, "carol")

	code, body := env.call(t, http.MethodPost, "/account/register", "", map[string]string{
		"email": "carol@example.com", "username": "carol2", "password": "correct horse",
	})
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, "already exists", gjson.GetBytes(body, "message").String())

	req, err := http.NewRequest(http.MethodPost, env.srv.URL+BasePath+"/account/login", stringsReader("{not json"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := env.srv.Client().Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAccount_LoginLockout(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.register(t, "dave")

	wrong := map[string]string{"username": "dave", "password": "wrong password"}
	for i := 0; i < testPolicy.MaxFails-1; i++ {
		code, _ := env.call(t, http.MethodPost, "/account/login", "", wrong)
		require.Equal(t, http.StatusUnauthorized, code)
	}
	code, _ := env.call(t, http.MethodPost, "/account/login", "", wrong)
	require.Equal(t, http.StatusTooManyRequests, code)

	code, _ = env.call(t, http.MethodPost, "/account/login", "", map[string]string{"username": "dave", "password": "correct horse"})
	require.Equal(t, http.StatusTooManyRequests, code, "locked even with the right password")
}

func TestAccount_PasswordReset(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	reg := env.register(t, "erin")

	code, _ := env.call(t, http.MethodPost, "/account/forgot-password", "", map[string]string{"email": "erin@example.com"})
	require.Equal(t, http.StatusNoContent, code)
	tok := env.mail.last()
	require.NotEmpty(t, tok)

	code, body := env.call(t, http.MethodPost, "/account/reset-password", "", map[string]string{
		"email": "erin@example.com", "token": "bogus", "newPassword": "brand new pass",
	})
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, gjson.GetBytes(body, "message").String(), "expired")

	code, _ = env.call(t, http.MethodPost, "/account/reset-password", "", map[string]string{
		"email": "erin@example.com", "token": tok, "newPassword": "brand new pass",
	})
	require.Equal(t, http.StatusNoContent, code)

	code, _ = env.call(t, http.MethodPost, "/account/login", "", map[string]string{"username": "erin", "password": "brand new pass"})
	require.Equal(t, http.StatusOK, code)
	code, _ = env.call(t, http.MethodPost, "/account/refresh-token", "", map[string]string{"refreshToken": reg.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, code, "reset signs out old sessions")
}

func TestWatchlist_RequiresBearer(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	for _, bearer := range []string{"", "garbage"} {
		code, body := env.call(t, http.MethodGet, "/watchlist", bearer, nil)
		require.Equal(t, http.StatusUnauthorized, code)
		require.Equal(t, "unauthorized", gjson.GetBytes(body, "message").String())
	}
}

func TestWatchlist_CRUD(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	tok := env.register(t, "frank").AccessToken

	code, body := env.call(t, http.MethodGet, "/watchlist", tok, nil)
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `[]`, string(body))

	code, body = env.call(t, http.MethodPost, "/watchlist", tok, map[string]any{"symbol": "nvda", "targetPrice": 150.5, "priority": 2})
	require.Equal(t, http.StatusCreated, code, string(body))
	require.Equal(t, "NVDA", gjson.GetBytes(body, "symbol").String())
	require.Equal(t, 150.5, gjson.GetBytes(body, "targetPrice").Float(), "money is a JSON number")
	id := gjson.GetBytes(body, "id").String()

	code, _ = env.call(t, http.MethodPost, "/watchlist", tok, map[string]any{"symbol": "NVDA"})
	require.Equal(t, http.StatusConflict, code)

	code, body = env.call(t, http.MethodPost, "/watchlist", tok, map[string]any{"symbol": "NV-DA"})
	require.Equal(t, http.StatusBadRequest, code)
	require.True(t, gjson.GetBytes(body, "errors.Symbol").Exists(), string(body))

	other := env.register(t, "grace").AccessToken
	code, _ = env.call(t, http.MethodDelete, "/watchlist/"+id, other, nil)
	require.Equal(t, http.StatusNotFound, code, "items are per user")

	code, body = env.call(t, http.MethodGet, "/watchlist", tok, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, int64(1), gjson.GetBytes(body, "#").Int())

	code, _ = env.call(t, http.MethodDelete, "/watchlist/"+id, tok, nil)
	require.Equal(t, http.StatusNoContent, code)
	code, _ = env.call(t, http.MethodDelete, "/watchlist/"+uuid.Must(uuid.NewV4()).String(), tok, nil)
	require.Equal(t, http.StatusNotFound, code)
	code, _ = env.call(t, http.MethodDelete, "/watchlist/not-a-uuid", tok, nil)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	code, body := env.call(t, http.MethodGet, "/nope", "", nil)
	require.Equal(t, http.StatusNotFound, code)
	require.NotEmpty(t, gjson.GetBytes(body, "message").String())
}
