// Package session owns the authenticated identity of the running client:
// it rehydrates it from the credential store, changes it on login, logout
// and refresh, mirrors every change to the store and tells observers.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/stockfolio/internal/credstore"
	"github.com/and161185/stockfolio/internal/logger"
	"github.com/and161185/stockfolio/internal/model"
	"github.com/and161185/stockfolio/internal/tokenclock"
	"github.com/and161185/stockfolio/internal/transport"
)

// ErrClosed is returned by operations on a closed manager.
var ErrClosed = errors.New("session closed")

// storeTimeout bounds store I/O triggered from the refresh path, which has no caller context.
const storeTimeout = 5 * time.Second

// Account is the subset of *transport.AccountAPI the session needs.
type Account interface {
	Login(ctx context.Context, username, password string) (model.AccountResponse, error)
	Register(ctx context.Context, email, username, password string) (model.AccountResponse, error)
	Revoke(ctx context.Context, refreshToken string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, token, newPassword string) error
}

// Coordinator is satisfied by *transport.Coordinator.
type Coordinator interface {
	Bind(b transport.SessionBinding) (unbind func())
	Refresh(ctx context.Context, stale string) (string, error)
}

type Option func(*Manager)

func WithLogger(l *zap.Logger) Option { return func(m *Manager) { m.log = logger.OrNop(l) } }

// WithClockOptions tunes the proactive refresh clock.
func WithClockOptions(opts ...tokenclock.Option) Option {
	return func(m *Manager) { m.clockOpts = append(m.clockOpts, opts...) }
}

// WithoutClock disables proactive refresh; tokens are then only refreshed on 401.
func WithoutClock() Option { return func(m *Manager) { m.noClock = true } }

// Manager is the single in-memory session. It is safe for concurrent use.
//
// The coordinator reads tokens while holding its own lock, so Bind and the
// unbind func are never called with m.mu held.
type Manager struct {
	store     credstore.Store
	account   Account
	coord     Coordinator
	log       *zap.Logger
	clockOpts []tokenclock.Option
	noClock   bool

	root   context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	sess      model.Session
	ready     bool
	closed    bool
	notified  bool // Expired already published for this session
	stopClock context.CancelFunc
	unbind    func()

	obsMu     sync.Mutex
	observers map[int]func(Event)
	nextObs   int
}

var _ transport.SessionBinding = (*Manager)(nil)

// New returns an empty, not yet ready manager. coord may be nil, in which
// case nothing refreshes tokens.
func New(store credstore.Store, account Account, coord Coordinator, opts ...Option) *Manager {
	root, cancel := context.WithCancel(context.Background())
	m := &Manager{
		store:     store,
		account:   account,
		coord:     coord,
		log:       zap.NewNop(),
		root:      root,
		cancel:    cancel,
		observers: map[int]func(Event){},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Open binds the manager to the coordinator and rehydrates the session from
// the store. A stored session is adopted only when the access token, the
// refresh token and the user are all present. Subsequent calls do nothing.
func (m *Manager) Open(ctx context.Context) error {
	m.mu.RLock()
	closed, ready := m.closed, m.ready
	m.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if ready {
		return nil
	}

	var unbind func()
	if m.coord != nil {
		unbind = m.coord.Bind(m)
	}
	snap := m.store.Read(ctx)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		if unbind != nil {
			unbind()
		}
		return ErrClosed
	}
	defer m.mu.Unlock()
	if m.ready {
		return nil
	}
	m.unbind = unbind
	if sess, ok := snap.Session(); ok {
		m.sess = sess
		m.startClockLocked()
		m.log.Debug("session restored", zap.String("user", sess.User.Username))
	} else if !snap.Empty() {
		m.log.Info("incomplete stored session ignored")
	}
	m.ready = true
	return nil
}

// Ready reports whether Open has completed.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

func (m *Manager) Login(ctx context.Context, username, password string) (model.Session, error) {
	resp, err := m.account.Login(ctx, username, password)
	if err != nil {
		return model.Session{}, err
	}
	return m.establish(ctx, resp, &model.UserProfile{Username: username})
}

// Register creates the account and logs it in.
func (m *Manager) Register(ctx context.Context, email, username, password string) (model.Session, error) {
	resp, err := m.account.Register(ctx, email, username, password)
	if err != nil {
		return model.Session{}, err
	}
	return m.establish(ctx, resp, &model.UserProfile{Username: username, Email: email})
}

// establish replaces the session with the issued pair. The store is written
// first; if that fails the previous session stays in place.
func (m *Manager) establish(ctx context.Context, resp model.AccountResponse, fallback *model.UserProfile) (model.Session, error) {
	user := resp.Profile()
	if user == nil {
		user = fallback
		if resp.Username != "" {
			user.Username = resp.Username
		}
		if resp.Email != "" {
			user.Email = resp.Email
		}
	}
	sess := model.Session{User: user, AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return model.Session{}, ErrClosed
	}
	if err := m.store.Write(ctx, snapshotOf(sess)); err != nil {
		m.mu.Unlock()
		return model.Session{}, fmt.Errorf("persist session: %w", err)
	}
	m.sess = sess
	m.notified = false
	m.startClockLocked()
	m.mu.Unlock()

	m.log.Info("logged in", zap.String("user", user.Username))
	m.publish(Event{Kind: LoggedIn, User: user})
	return sess, nil
}

// Logout revokes the refresh token on a best-effort basis and then always
// clears the session. Only a failure to clear the store is returned.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.RLock()
	refresh := m.sess.RefreshToken
	m.mu.RUnlock()

	if refresh != "" {
		if err := m.account.Revoke(ctx, refresh); err != nil {
			m.log.Warn("revoke on logout failed", zap.Error(err))
		}
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	err := m.store.Clear(ctx)
	m.sess = model.Session{}
	m.notified = true
	m.stopClockLocked()
	m.mu.Unlock()

	m.publish(Event{Kind: LoggedOut})
	if err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// UpdateTokens installs the pair obtained by exchanging used. A pair that
// arrives after the session it belongs to ended (logout, expiry or a new
// login during the exchange) is dropped.
func (m *Manager) UpdateTokens(used, access, refresh string, user *model.UserProfile) {
	m.mu.Lock()
	if m.closed || !m.sess.Authenticated() || m.sess.RefreshToken != used {
		m.mu.Unlock()
		m.log.Debug("refreshed tokens dropped, session changed")
		return
	}
	next := m.sess
	next.AccessToken, next.RefreshToken = access, refresh
	if user != nil {
		next.User = user
	}
	ctx, cancel := context.WithTimeout(m.root, storeTimeout)
	if err := m.store.Write(ctx, snapshotOf(next)); err != nil {
		// The old refresh token is already rotated out server-side, so
		// memory must move on even if the mirror lags.
		m.log.Warn("persist refreshed tokens failed", zap.Error(err))
	}
	cancel()
	m.sess = next
	m.mu.Unlock()

	m.log.Debug("tokens refreshed")
	m.publish(Event{Kind: Refreshed, User: next.User})
}

// Expire ends the session holding used after its refresh failed. Observers
// get a single Expired event per session no matter how many requests failed.
// A session established since the refresh started is kept.
func (m *Manager) Expire(used string, cause error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if m.sess.RefreshToken != used {
		m.mu.Unlock()
		m.log.Debug("late refresh failure ignored, session changed", zap.Error(cause))
		return
	}
	ctx, cancel := context.WithTimeout(m.root, storeTimeout)
	if err := m.store.Clear(ctx); err != nil {
		m.log.Warn("clear credentials on expiry failed", zap.Error(err))
	}
	cancel()
	m.sess = model.Session{}
	m.stopClockLocked()
	notify := !m.notified
	m.notified = true
	m.mu.Unlock()

	if notify {
		m.log.Info("session expired", zap.Error(cause))
		m.publish(Event{Kind: Expired, Cause: cause})
	}
}

// AccessToken is the TokenProvider of the authorized client.
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sess.AccessToken
}

func (m *Manager) RefreshToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sess.RefreshToken
}

func (m *Manager) IsLoggedIn() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sess.User != nil
}

// Current returns a copy of the session.
func (m *Manager) Current() model.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.sess
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	return m.account.ForgotPassword(ctx, email)
}

func (m *Manager) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	return m.account.ResetPassword(ctx, email, token, newPassword)
}

// Subscribe registers fn for session events. fn runs on the goroutine that
// caused the change and must not block.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	if m.observers == nil {
		return func() {}
	}
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	return func() {
		m.obsMu.Lock()
		delete(m.observers, id)
		m.obsMu.Unlock()
	}
}

// Close detaches from the coordinator, stops the clock and drops observers.
// The session in the store is left as is.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.stopClockLocked()
	unbind := m.unbind
	m.unbind = nil
	m.mu.Unlock()

	if unbind != nil {
		unbind()
	}
	m.obsMu.Lock()
	m.observers = nil
	m.obsMu.Unlock()
	m.cancel()
}

func (m *Manager) publish(e Event) {
	m.obsMu.Lock()
	fns := make([]func(Event), 0, len(m.observers))
	for _, fn := range m.observers {
		fns = append(fns, fn)
	}
	m.obsMu.Unlock()
	for _, fn := range fns {
		fn(e)
	}
}

// startClockLocked (re)starts proactive refresh. Caller holds m.mu.
func (m *Manager) startClockLocked() {
	m.stopClockLocked()
	if m.noClock || m.coord == nil {
		return
	}
	ctx, cancel := context.WithCancel(m.root)
	m.stopClock = cancel
	opts := append([]tokenclock.Option{tokenclock.WithLogger(m.log)}, m.clockOpts...)
	go tokenclock.New(m.AccessToken, m.coord, opts...).Run(ctx)
}

func (m *Manager) stopClockLocked() {
	if m.stopClock != nil {
		m.stopClock()
		m.stopClock = nil
	}
}

func snapshotOf(s model.Session) credstore.Snapshot {
	return credstore.Snapshot{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken, User: s.User}
}
