// Package tokenclock refreshes the access token shortly before it expires,
// so that long idle sessions do not hit a 401 on their next request.
package tokenclock

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/stockfolio/internal/logger"
	"github.com/and161185/stockfolio/internal/tokenclaims"
)

const (
	DefaultPeriod = 30 * time.Second
	DefaultSkew   = 30 * time.Second
)

// Source returns the current access token, "" when logged out.
type Source func() string

// Refresher is satisfied by *transport.Coordinator.
type Refresher interface {
	Refresh(ctx context.Context, stale string) (string, error)
}

type Clock struct {
	src    Source
	ref    Refresher
	period time.Duration
	skew   time.Duration
	now    func() time.Time
	log    *zap.Logger
}

type Option func(*Clock)

func WithPeriod(d time.Duration) Option { return func(c *Clock) { c.period = d } }

func WithSkew(d time.Duration) Option { return func(c *Clock) { c.skew = d } }

func WithNow(now func() time.Time) Option { return func(c *Clock) { c.now = now } }

func WithLogger(l *zap.Logger) Option { return func(c *Clock) { c.log = logger.OrNop(l) } }

func New(src Source, ref Refresher, opts ...Option) *Clock {
	c := &Clock{
		src:    src,
		ref:    ref,
		period: DefaultPeriod,
		skew:   DefaultSkew,
		now:    time.Now,
		log:    zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Check refreshes if the current token expires within the skew or cannot be
// decoded. It reports whether a refresh was attempted.
func (c *Clock) Check(ctx context.Context) bool {
	tok := c.src()
	if tok == "" {
		return false
	}
	claims, err := tokenclaims.TryDecode(tok)
	switch {
	case err != nil:
		c.log.Debug("undecodable access token, refreshing", zap.Error(err))
	case !claims.ExpiresWithin(c.now(), c.skew):
		return false
	default:
		c.log.Debug("access token near expiry, refreshing", zap.Time("exp", claims.ExpiresAt))
	}

	if _, err := c.ref.Refresh(ctx, tok); err != nil && !errors.Is(err, context.Canceled) {
		c.log.Warn("proactive refresh failed", zap.Error(err))
	}
	return true
}

// Run checks immediately and then every period until ctx is done.
func (c *Clock) Run(ctx context.Context) {
	t := time.NewTicker(c.period)
	defer t.Stop()

	c.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Check(ctx)
		}
	}
}
