package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/and161185/stockfolio/internal/convert"
	"github.com/and161185/stockfolio/internal/errs"
	"github.com/and161185/stockfolio/internal/validate"
)

// statusOf maps an error to its HTTP status and public message.
func statusOf(err error) (int, string) {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		if msg, ok := he.Message.(string); ok {
			return he.Code, msg
		}
		return he.Code, http.StatusText(he.Code)
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests, "too many failed attempts, try again later"
	case errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict, "already exists"
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, errs.ErrExpired):
		return http.StatusBadRequest, "reset token is invalid or expired"
	case errors.Is(err, errs.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// errorHandler renders validation failures as {"errors": {...}} and
// everything else as {"message": "..."}.
func errorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var verr *validate.Error
		if errors.As(err, &verr) {
			_ = c.JSON(http.StatusBadRequest, convert.ToValidationBody(verr.ByField()))
			return
		}
		code, msg := statusOf(err)
		if code >= http.StatusInternalServerError {
			log.Error("request failed", zap.String("path", c.Request().URL.Path), zap.Error(err))
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, convert.MessageBody{Message: msg})
	}
}
