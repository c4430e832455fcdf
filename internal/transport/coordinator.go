package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/and161185/stockfolio/internal/errs"
	"github.com/and161185/stockfolio/internal/logger"
	"github.com/and161185/stockfolio/internal/model"
)

// SessionBinding is the live session the coordinator refreshes on behalf of.
type SessionBinding interface {
	AccessToken() string
	RefreshToken() string
	// UpdateTokens persists and publishes a successful exchange of the
	// refresh token used. user may be nil. The pair is dropped when the
	// session no longer holds used.
	UpdateTokens(used, access, refresh string, user *model.UserProfile)
	// Expire ends the session holding used because no valid token can be
	// obtained from it. A newer session is left alone.
	Expire(used string, cause error)
}

// TokenExchanger trades a refresh token for a new pair.
type TokenExchanger interface {
	Refresh(ctx context.Context, refreshToken string) (model.AccountResponse, error)
}

type flight struct {
	done    chan struct{}
	token   string
	err     error
	waiters int
}

// Coordinator serializes refresh-token exchanges: whatever the number of
// concurrent callers, at most one exchange is in flight and every caller
// that arrives meanwhile waits for its outcome.
type Coordinator struct {
	exchanger TokenExchanger
	log       *zap.Logger

	mu       sync.Mutex
	binding  SessionBinding
	inflight *flight

	exchanges atomic.Int64
}

func NewCoordinator(exchanger TokenExchanger, log *zap.Logger) *Coordinator {
	return &Coordinator{exchanger: exchanger, log: logger.OrNop(log)}
}

// Bind attaches the session; the returned func detaches it again if it is
// still the bound one.
func (c *Coordinator) Bind(b SessionBinding) (unbind func()) {
	c.mu.Lock()
	c.binding = b
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		if c.binding == b {
			c.binding = nil
		}
		c.mu.Unlock()
	}
}

// Exchanges reports how many refresh calls reached the exchanger.
func (c *Coordinator) Exchanges() int64 { return c.exchanges.Load() }

// Refreshing reports whether an exchange is in flight.
func (c *Coordinator) Refreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight != nil
}

// pending counts the callers waiting on the in-flight exchange, its starter included.
func (c *Coordinator) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight == nil {
		return 0
	}
	return c.inflight.waiters + 1
}

// Refresh returns an access token newer than stale.
//
// If the session already holds a different token than stale, that token is
// returned without contacting the server. Otherwise the caller starts an
// exchange or joins the one in flight. On failure every waiter receives an
// error wrapping errs.ErrRefreshFailed (or errs.ErrNoRefreshToken) and the
// session is expired once. A caller whose ctx ends stops waiting; the
// exchange itself continues for the others.
func (c *Coordinator) Refresh(ctx context.Context, stale string) (string, error) {
	c.mu.Lock()
	b := c.binding
	if b == nil {
		c.mu.Unlock()
		return "", errs.ErrNoSession
	}
	f := c.inflight
	if f == nil {
		if cur := b.AccessToken(); cur != "" && cur != stale {
			c.mu.Unlock()
			return cur, nil
		}
		f = &flight{done: make(chan struct{})}
		c.inflight = f
		refresh := b.RefreshToken()
		c.mu.Unlock()
		go c.exchange(context.WithoutCancel(ctx), b, refresh, f)
	} else {
		f.waiters++
		c.mu.Unlock()
	}

	select {
	case <-f.done:
		return f.token, f.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Coordinator) exchange(ctx context.Context, b SessionBinding, refresh string, f *flight) {
	defer func() {
		c.mu.Lock()
		c.inflight = nil
		waiters := f.waiters
		c.mu.Unlock()
		close(f.done)
		c.log.Debug("refresh settled", zap.Int("waiters", waiters), zap.Bool("ok", f.err == nil))
	}()

	if refresh == "" {
		f.err = errs.ErrNoRefreshToken
		c.log.Info("no refresh token, ending session")
		b.Expire(refresh, f.err)
		return
	}

	c.exchanges.Add(1)
	resp, err := c.exchanger.Refresh(ctx, refresh)
	if err == nil && (resp.AccessToken == "" || resp.RefreshToken == "") {
		err = errors.New("incomplete token pair")
	}
	if err != nil {
		f.err = fmt.Errorf("%w: %w", errs.ErrRefreshFailed, err)
		c.log.Warn("token refresh failed, ending session", zap.Error(err))
		b.Expire(refresh, f.err)
		return
	}

	b.UpdateTokens(refresh, resp.AccessToken, resp.RefreshToken, resp.Profile())
	f.token = resp.AccessToken
}
