// Package httpserver exposes the account and watchlist HTTP API.
package httpserver

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gofrs/uuid/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/and161185/stockfolio/internal/convert"
	"github.com/and161185/stockfolio/internal/errs"
	"github.com/and161185/stockfolio/internal/logger"
	"github.com/and161185/stockfolio/internal/model"
	"github.com/and161185/stockfolio/internal/service"
	"github.com/and161185/stockfolio/internal/validate"
)

// BasePath prefixes every route.
const BasePath = "/api/client"

// Server wires services into echo handlers.
type Server struct {
	e     *echo.Echo
	auth  service.AuthService
	watch service.WatchlistService
	log   *zap.Logger
}

// New constructs the HTTP server with injected services.
func New(auth service.AuthService, watch service.WatchlistService, log *zap.Logger) *Server {
	log = logger.OrNop(log)
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}
	e.HTTPErrorHandler = errorHandler(log)
	e.Use(Logging(log), Recover(log))

	s := &Server{e: e, auth: auth, watch: watch, log: log}

	api := e.Group(BasePath)
	acc := api.Group("/account")
	acc.POST("/register", s.register)
	acc.POST("/login", s.login)
	acc.POST("/refresh-token", s.refresh)
	acc.POST("/revoke-token", s.revoke)
	acc.POST("/forgot-password", s.forgotPassword)
	acc.POST("/reset-password", s.resetPassword)

	wl := api.Group("/watchlist", RequireBearer(auth))
	wl.GET("", s.listWatchlist)
	wl.POST("", s.addWatchlist)
	wl.DELETE("/:id", s.removeWatchlist)

	return s
}

// Handler returns the root handler for http.Server.
func (s *Server) Handler() http.Handler { return s.e }

// bindValid decodes the JSON body into dst and validates it.
func bindValid(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}

// --- Account ---

func (s *Server) register(c echo.Context) error {
	var req convert.RegisterRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	tok, u, err := s.auth.Register(c.Request().Context(), req.Email, req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convert.ToAccountResponse(tok, u))
}

func (s *Server) login(c echo.Context) error {
	var req convert.LoginRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	tok, u, err := s.auth.LoginWithIP(c.Request().Context(), req.Username, req.Password, c.RealIP())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convert.ToAccountResponse(tok, u))
}

func (s *Server) refresh(c echo.Context) error {
	var req convert.TokenRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	tok, u, err := s.auth.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convert.ToAccountResponse(tok, u))
}

func (s *Server) revoke(c echo.Context) error {
	var req convert.TokenRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	if err := s.auth.Revoke(c.Request().Context(), req.RefreshToken); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) forgotPassword(c echo.Context) error {
	var req convert.ForgotPasswordRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	if err := s.auth.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) resetPassword(c echo.Context) error {
	var req convert.ResetPasswordRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	if err := s.auth.ResetPassword(c.Request().Context(), req.Email, req.Token, req.NewPassword); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// --- Watchlist ---

func userID(c echo.Context) (uuid.UUID, error) {
	id, ok := UserIDFromCtx(c.Request().Context())
	if !ok {
		return uuid.Nil, errs.ErrUnauthorized
	}
	return id, nil
}

func (s *Server) listWatchlist(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	items, err := s.watch.List(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (s *Server) addWatchlist(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req model.NewWatchlistItem
	if err := c.Bind(&req); err != nil {
		return err
	}
	it, err := s.watch.Add(c.Request().Context(), uid, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, it)
}

func (s *Server) removeWatchlist(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "bad id")
	}
	if err := s.watch.Remove(c.Request().Context(), uid, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// jsonSerializer plugs goccy/go-json into echo.
type jsonSerializer struct{}

func (jsonSerializer) Serialize(c echo.Context, i any, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (jsonSerializer) Deserialize(c echo.Context, i any) error {
	err := json.NewDecoder(c.Request().Body).Decode(i)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed JSON body").SetInternal(err)
	}
	return nil
}
