// Package tokenclaims decodes the expiry of access tokens on the client side.
//
// The client never holds the signing key, so the signature is not verified:
// the claims are only used to decide when to refresh.
package tokenclaims

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/stockfolio/internal/errs"
)

// Claims is the subset of access-token claims the client relies on.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// TryDecode parses the token payload. Any token that is not a JWT or carries
// no exp claim yields errs.ErrMalformedToken.
func TryDecode(token string) (Claims, error) {
	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &rc); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", errs.ErrMalformedToken, err)
	}
	if rc.ExpiresAt == nil {
		return Claims{}, fmt.Errorf("%w: no exp claim", errs.ErrMalformedToken)
	}
	return Claims{Subject: rc.Subject, ExpiresAt: rc.ExpiresAt.Time}, nil
}

// ExpiresWithin reports whether the token is expired or expires within d of now.
func (c Claims) ExpiresWithin(now time.Time, d time.Duration) bool {
	return c.ExpiresAt.Sub(now) <= d
}
