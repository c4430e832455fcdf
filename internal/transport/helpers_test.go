package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/stockfolio/internal/model"
)

// fakeAPI is a minimal portfolio API: /account/refresh-token rotates pairs
// and /data requires the current access token.
type fakeAPI struct {
	t   *testing.T
	srv *httptest.Server

	mu      sync.Mutex
	access  string
	refresh map[string]bool // refresh token -> still valid
	gen     int
	user    *model.UserProfile

	refreshCalls atomic.Int32
	dataCalls    atomic.Int32
	unauthorized atomic.Int32
	revoked      []string

	// holdRefresh, when set, delays the refresh answer until it is closed.
	holdRefresh chan struct{}
}

func newFakeAPI(t *testing.T, access, refresh string) *fakeAPI {
	t.Helper()
	f := &fakeAPI{t: t, access: access, refresh: map[string]bool{refresh: true}}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /account/refresh-token", f.handleRefresh)
	mux.HandleFunc("POST /account/revoke-token", f.handleRevoke)
	mux.HandleFunc("GET /data", f.handleData)
	mux.HandleFunc("GET /always-401", func(w http.ResponseWriter, _ *http.Request) {
		f.dataCalls.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "nope"})
	})
	mux.HandleFunc("GET /boom", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "database on fire"})
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) config() Config {
	return Config{BaseURL: f.srv.URL, Timeout: 5 * time.Second}
}

func (f *fakeAPI) current() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access
}

// expireRefresh revokes every refresh token the server knows.
func (f *fakeAPI) expireRefresh() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k := range f.refresh {
		f.refresh[k] = false
	}
}

func (f *fakeAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f.refreshCalls.Add(1)
	var body RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad body"})
		return
	}
	if f.holdRefresh != nil {
		<-f.holdRefresh
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.refresh[body.RefreshToken] {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid refresh token"})
		return
	}
	f.refresh[body.RefreshToken] = false
	f.gen++
	f.access = "A" + string(rune('1'+f.gen))
	next := "R" + string(rune('1'+f.gen))
	f.refresh[next] = true

	out := model.AccountResponse{AccessToken: f.access, RefreshToken: next}
	if f.user != nil {
		out.Username, out.Email = f.user.Username, f.user.Email
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *fakeAPI) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	f.revoked = append(f.revoked, body["refreshToken"])
	f.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeAPI) handleData(w http.ResponseWriter, r *http.Request) {
	f.dataCalls.Add(1)
	got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if got == "" || got != f.current() {
		f.unauthorized.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": got, "requestId": r.Header.Get("X-Request-ID")})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fakeBinding stands in for the session manager.
type fakeBinding struct {
	mu      sync.Mutex
	access  string
	refresh string
	user    *model.UserProfile
	updates int
	used    []string
	expired []error
}

var _ SessionBinding = (*fakeBinding)(nil)

func (b *fakeBinding) AccessToken() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.access
}

func (b *fakeBinding) RefreshToken() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refresh
}

func (b *fakeBinding) UpdateTokens(used, access, refresh string, user *model.UserProfile) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.used = append(b.used, used)
	b.access, b.refresh = access, refresh
	if user != nil {
		b.user = user
	}
	b.updates++
}

func (b *fakeBinding) Expire(used string, cause error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.used = append(b.used, used)
	b.access, b.refresh, b.user = "", "", nil
	b.expired = append(b.expired, cause)
}

func (b *fakeBinding) expiredCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.expired)
}

// wire builds the authorized client stack around api and b.
func wire(t *testing.T, api *fakeAPI, b *fakeBinding) (*Client, *Coordinator) {
	t.Helper()
	log := zaptest.NewLogger(t)
	coord := NewCoordinator(NewAccountAPI(api.config(), log), log)
	t.Cleanup(coord.Bind(b))
	return NewClient(api.config(), b.AccessToken, coord, log), coord
}
