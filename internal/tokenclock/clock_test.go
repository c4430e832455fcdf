package tokenclock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func token(t *testing.T, exp time.Time) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}

type fakeRefresher struct {
	mu    sync.Mutex
	stale []string
	err   error
}

func (f *fakeRefresher) Refresh(_ context.Context, stale string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stale = append(f.stale, stale)
	return "next", f.err
}

func (f *fakeRefresher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stale)
}

func newClock(t *testing.T, tok string, ref Refresher, opts ...Option) *Clock {
	opts = append([]Option{WithNow(func() time.Time { return epoch }), WithLogger(zaptest.NewLogger(t))}, opts...)
	return New(func() string { return tok }, ref, opts...)
}

func TestCheck(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		tok     func(t *testing.T) string
		refresh bool
	}{
		{"logged out", func(*testing.T) string { return "" }, false},
		// P5: far from expiry never refreshes.
		{"ten minutes left", func(t *testing.T) string { return token(t, epoch.Add(10*time.Minute)) }, false},
		{"31 seconds left", func(t *testing.T) string { return token(t, epoch.Add(31*time.Second)) }, false},
		{"exactly skew", func(t *testing.T) string { return token(t, epoch.Add(30*time.Second)) }, true},
		{"20 seconds left", func(t *testing.T) string { return token(t, epoch.Add(20*time.Second)) }, true},
		{"already expired", func(t *testing.T) string { return token(t, epoch.Add(-time.Hour)) }, true},
		{"malformed fails open", func(*testing.T) string { return "not.a.jwt" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ref := &fakeRefresher{}
			tok := tt.tok(t)
			c := newClock(t, tok, ref)

			require.Equal(t, tt.refresh, c.Check(context.Background()))
			if tt.refresh {
				require.Equal(t, []string{tok}, ref.stale, "the clock passes the token it inspected")
			} else {
				require.Zero(t, ref.calls())
			}
		})
	}
}

func TestCheck_CustomSkew(t *testing.T) {
	t.Parallel()
	ref := &fakeRefresher{}
	c := newClock(t, token(t, epoch.Add(90*time.Second)), ref, WithSkew(2*time.Minute))
	require.True(t, c.Check(context.Background()))
}

func TestCheck_RefreshErrorIsSwallowed(t *testing.T) {
	t.Parallel()
	ref := &fakeRefresher{err: errors.New("boom")}
	c := newClock(t, token(t, epoch), ref)
	require.True(t, c.Check(context.Background()))
}

func TestRun_TicksUntilCancelled(t *testing.T) {
	t.Parallel()
	ref := &fakeRefresher{}
	c := newClock(t, token(t, epoch), ref, WithPeriod(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return ref.calls() >= 3 }, 5*time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	n := ref.calls()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, n, ref.calls(), "no checks after cancel")
}

func TestRun_ImmediateCheck(t *testing.T) {
	t.Parallel()
	ref := &fakeRefresher{}
	c := newClock(t, token(t, epoch), ref, WithPeriod(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	require.Eventually(t, func() bool { return ref.calls() == 1 }, 5*time.Second, time.Millisecond)
}
