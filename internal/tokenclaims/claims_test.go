package tokenclaims

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/stockfolio/internal/errs"
)

func sign(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return s
}

func TestTryDecode_OK(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(5 * time.Minute).Truncate(time.Second)
	tok := sign(t, jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(exp)})

	c, err := TryDecode(tok)
	require.NoError(t, err)
	require.Equal(t, "u1", c.Subject)
	require.True(t, c.ExpiresAt.Equal(exp))
}

func TestTryDecode_ExpiredTokenStillDecodes(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(-time.Hour)
	c, err := TryDecode(sign(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}))
	require.NoError(t, err)
	require.True(t, c.ExpiresWithin(time.Now(), 0))
}

func TestTryDecode_Malformed(t *testing.T) {
	t.Parallel()

	for _, tok := range []string{"", "abc", "a.b.c", "A1"} {
		_, err := TryDecode(tok)
		require.ErrorIs(t, err, errs.ErrMalformedToken, tok)
	}

	_, err := TryDecode(sign(t, jwt.RegisteredClaims{Subject: "no-exp"}))
	require.ErrorIs(t, err, errs.ErrMalformedToken)
}

func TestClaims_ExpiresWithin(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	c := Claims{ExpiresAt: now.Add(30 * time.Second)}
	require.True(t, c.ExpiresWithin(now, 30*time.Second))
	require.False(t, c.ExpiresWithin(now, 29*time.Second))
	require.False(t, Claims{ExpiresAt: now.Add(time.Minute)}.ExpiresWithin(now, 30*time.Second))
}
