package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/stockfolio/internal/limiter"
	"github.com/and161185/stockfolio/internal/repository/kv"
	"github.com/and161185/stockfolio/internal/repository/memory"
)

func TestParseFlags(t *testing.T) {
	t.Setenv("STOCKFOLIO_JWT_KEY", "")

	_, err := parseFlags(nil)
	require.ErrorContains(t, err, "jwt")

	_, err = parseFlags([]string{"-jwt-key", "k", "-tls-cert", "c.pem"})
	require.ErrorContains(t, err, "tls-key")

	f, err := parseFlags([]string{"-jwt-key", "k", "-access-ttl", "1m", "-addr", ":9000"})
	require.NoError(t, err)
	require.Equal(t, time.Minute, f.accessTTL)
	require.Equal(t, ":9000", f.addr)
	require.Empty(t, f.dsn)
}

func TestParseFlags_KeyFromEnv(t *testing.T) {
	t.Setenv("STOCKFOLIO_JWT_KEY", "from-env")
	f, err := parseFlags(nil)
	require.NoError(t, err)
	require.Equal(t, "from-env", f.jwtKey)
}

func TestOpenStores_InMemory(t *testing.T) {
	st, err := openStores(context.Background(), flags{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer st.close()

	require.IsType(t, &memory.Users{}, st.users)
	require.IsType(t, &memory.RefreshTokens{}, st.refresh)
	require.IsType(t, &memory.Watchlist{}, st.watch)
	require.IsType(t, &kv.MemoryResetTokens{}, st.resets)
	require.IsType(t, &limiter.Memory{}, st.lim)
}
