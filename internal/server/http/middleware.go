package httpserver

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/and161185/stockfolio/internal/errs"
)

const headerRequestID = "X-Request-ID"

// Logging logs one line per request. The error, if any, is rendered first so
// the logged status is the one the client sees.
func Logging(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			req := c.Request()
			// no bodies, no headers: only metadata
			log.Info("http",
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("dur", time.Since(start)),
				zap.String("remote", c.RealIP()),
				zap.String("request_id", req.Header.Get(headerRequestID)),
			)
			return nil
		}
	}
}

// Recover turns a handler panic into a 500.
func Recover(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic",
						zap.Any("reason", r),
						zap.ByteString("stack", debug.Stack()),
						zap.String("path", c.Request().URL.Path),
					)
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(c)
		}
	}
}

// Authenticator verifies an access token.
type Authenticator interface {
	Authenticate(accessToken string) (uuid.UUID, error)
}

// RequireBearer rejects requests without a valid "Authorization: Bearer"
// token and stores the subject in the request context.
func RequireBearer(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tok, ok := bearerToken(c.Request().Header.Values(echo.HeaderAuthorization))
			if !ok {
				return errs.ErrUnauthorized
			}
			id, err := auth.Authenticate(tok)
			if err != nil {
				return err
			}
			req := c.Request()
			c.SetRequest(req.WithContext(WithUserID(req.Context(), id)))
			return next(c)
		}
	}
}

func bearerToken(values []string) (string, bool) {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			if t := strings.TrimSpace(v[7:]); t != "" {
				return t, true
			}
		}
	}
	return "", false
}
