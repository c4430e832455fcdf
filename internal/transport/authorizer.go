package transport

import (
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/gofrs/uuid/v5"
)

const (
	headerAuthorization = "Authorization"
	headerRequestID     = "X-Request-ID"
	bearerPrefix        = "Bearer "
)

// TokenProvider returns the access token to attach, or "" for none.
// It is called once per outgoing request, so it must reflect the latest
// in-memory session rather than storage.
type TokenProvider func() string

// Authorize returns a request middleware that sets the bearer header from
// tokens. A request that already carries an Authorization header (a replay
// after refresh) is left untouched. It never fails the request.
func Authorize(tokens TokenProvider) resty.RequestMiddleware {
	return func(_ *resty.Client, r *resty.Request) error {
		if tokens == nil || r.Header.Get(headerAuthorization) != "" {
			return nil
		}
		if tok := tokens(); tok != "" {
			r.SetHeader(headerAuthorization, bearerPrefix+tok)
		}
		return nil
	}
}

// tagRequest gives every request a correlation id.
func tagRequest(_ *resty.Client, r *resty.Request) error {
	if r.Header.Get(headerRequestID) != "" {
		return nil
	}
	if id, err := uuid.NewV4(); err == nil {
		r.SetHeader(headerRequestID, id.String())
	}
	return nil
}

// sentToken returns the bearer token a request went out with.
func sentToken(r *resty.Request) string {
	if r == nil {
		return ""
	}
	return strings.TrimPrefix(r.Header.Get(headerAuthorization), bearerPrefix)
}
