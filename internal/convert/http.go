// Package convert maps HTTP request and response bodies to domain values.
package convert

import (
	"strings"

	"github.com/and161185/stockfolio/internal/model"
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
	Password string `json:"password" validate:"required,min=8"`
}

// TokenRequest is the body of refresh-token and revoke-token.
type TokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

// ToAccountResponse builds the login/register/refresh body.
func ToAccountResponse(tok model.Tokens, u model.User) model.AccountResponse {
	return model.AccountResponse{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Username:     u.Username,
		Email:        u.Email,
	}
}

// MessageBody is the body of every non-validation error.
type MessageBody struct {
	Message string `json:"message"`
}

// ValidationBody is the body of a 400 with per-field messages.
type ValidationBody struct {
	Title  string              `json:"title"`
	Errors map[string][]string `json:"errors"`
}

// ToValidationBody keys field messages by field name with the first letter
// upper-cased, the way the API reports them.
func ToValidationBody(byField map[string][]string) ValidationBody {
	out := make(map[string][]string, len(byField))
	for f, msgs := range byField {
		key := f
		if f != "" {
			key = strings.ToUpper(f[:1]) + f[1:]
		}
		out[key] = append(out[key], msgs...)
	}
	return ValidationBody{Title: "One or more validation errors occurred.", Errors: out}
}
