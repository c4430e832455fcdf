package httpserver

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/stockfolio/internal/limiter"
	"github.com/and161185/stockfolio/internal/model"
	"github.com/and161185/stockfolio/internal/repository/kv"
	"github.com/and161185/stockfolio/internal/repository/memory"
	"github.com/and161185/stockfolio/internal/service"
)

type captureSender struct {
	mu    sync.Mutex
	token string
}

func (c *captureSender) SendReset(_ context.Context, _ model.User, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	return nil
}

func (c *captureSender) last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

var testPolicy = limiter.Policy{Window: time.Minute, MaxFails: 3, BlockFor: time.Minute}

type testEnv struct {
	srv  *httptest.Server
	mail *captureSender
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	mail := &captureSender{}
	auth := service.NewAuthService(
		memory.NewUsers(),
		memory.NewRefreshTokens(),
		kv.NewMemoryResetTokens(),
		limiter.NewMemory(testPolicy),
		mail,
		service.TokenConfig{SignKey: []byte("test-key")},
	)
	s := New(auth, service.NewWatchlistService(memory.NewWatchlist()), zaptest.NewLogger(t))
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return testEnv{srv: srv, mail: mail}
}

// call sends a JSON request and returns the status and raw body.
func (e testEnv) call(t *testing.T, method, path, bearer string, body any) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+BasePath+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func (e testEnv) register(t *testing.T, username string) model.AccountResponse {
	t.Helper()
	code, body := e.call(t, http.MethodPost, "/account/register", "", map[string]string{
		"email":    username + "@example.com",
		"username": username,
		"password": "correct horse",
	})
	require.Equal(t, http.StatusOK, code, string(body))
	var out model.AccountResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func stringsReader(s string) io.Reader { return bytes.NewReader([]byte(s)) }
