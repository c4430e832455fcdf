package transport

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/stockfolio/internal/logger"
	"github.com/and161185/stockfolio/internal/model"
	"github.com/and161185/stockfolio/internal/validate"
)

// Account endpoint paths, relative to the API base URL.
const (
	PathLogin          = "/account/login"
	PathRegister       = "/account/register"
	PathRefresh        = "/account/refresh-token"
	PathRevoke         = "/account/revoke-token"
	PathForgotPassword = "/account/forgot-password"
	PathResetPassword  = "/account/reset-password"
)

// LoginRequest is the body of POST /account/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the body of POST /account/register.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the body of refresh-token and revoke-token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

var errIncompletePair = errors.New("server returned an incomplete token pair")

// AccountAPI talks to the account endpoints on a client with no authorizer
// and no 401 interception, so a failed refresh can never recurse.
type AccountAPI struct {
	endpoint
}

var _ TokenExchanger = (*AccountAPI)(nil)

func NewAccountAPI(cfg Config, log *zap.Logger) *AccountAPI {
	return &AccountAPI{endpoint{http: newResty(cfg), log: logger.OrNop(log)}}
}

func (a *AccountAPI) post(ctx context.Context, path string, body, out any) error {
	if err := validate.Struct(body); err != nil {
		return err
	}
	resp, err := a.send(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func (a *AccountAPI) tokens(ctx context.Context, path string, body any) (model.AccountResponse, error) {
	var out model.AccountResponse
	if err := a.post(ctx, path, body, &out); err != nil {
		return model.AccountResponse{}, err
	}
	if out.AccessToken == "" || out.RefreshToken == "" {
		return model.AccountResponse{}, errIncompletePair
	}
	return out, nil
}

func (a *AccountAPI) Login(ctx context.Context, username, password string) (model.AccountResponse, error) {
	return a.tokens(ctx, PathLogin, LoginRequest{Username: username, Password: password})
}

func (a *AccountAPI) Register(ctx context.Context, email, username, password string) (model.AccountResponse, error) {
	return a.tokens(ctx, PathRegister, RegisterRequest{Email: email, Username: username, Password: password})
}

// Refresh exchanges refreshToken for a new pair. The old refresh token is
// rotated out by the server.
func (a *AccountAPI) Refresh(ctx context.Context, refreshToken string) (model.AccountResponse, error) {
	return a.tokens(ctx, PathRefresh, RefreshRequest{RefreshToken: refreshToken})
}

func (a *AccountAPI) Revoke(ctx context.Context, refreshToken string) error {
	return a.post(ctx, PathRevoke, RefreshRequest{RefreshToken: refreshToken}, nil)
}

func (a *AccountAPI) ForgotPassword(ctx context.Context, email string) error {
	return a.post(ctx, PathForgotPassword, ForgotPasswordRequest{Email: email}, nil)
}

func (a *AccountAPI) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	return a.post(ctx, PathResetPassword, ResetPasswordRequest{Email: email, Token: token, NewPassword: newPassword}, nil)
}
