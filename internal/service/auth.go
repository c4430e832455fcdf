// Package service contains application services for accounts and watchlists.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/stockfolio/internal/crypto"
	"github.com/and161185/stockfolio/internal/errs"
	"github.com/and161185/stockfolio/internal/limiter"
	"github.com/and161185/stockfolio/internal/logger"
	"github.com/and161185/stockfolio/internal/model"
	"github.com/and161185/stockfolio/internal/repository"
)

// AuthService defines the account operations.
type AuthService interface {
	// Register creates a new user and signs them in.
	Register(ctx context.Context, email, username, password string) (model.Tokens, model.User, error)
	// LoginWithIP applies rate-limiting and authenticates the user.
	LoginWithIP(ctx context.Context, username, password, ip string) (model.Tokens, model.User, error)
	// Refresh exchanges a refresh token for a new pair; the old one is revoked.
	Refresh(ctx context.Context, refreshToken string) (model.Tokens, model.User, error)
	// Revoke invalidates a refresh token. Unknown tokens are ignored.
	Revoke(ctx context.Context, refreshToken string) error
	// ForgotPassword issues a reset token if the email is known.
	ForgotPassword(ctx context.Context, email string) error
	// ResetPassword sets a new password and signs the user out everywhere.
	ResetPassword(ctx context.Context, email, token, newPassword string) error
	// Authenticate verifies an access token and returns its subject.
	Authenticate(accessToken string) (uuid.UUID, error)
}

// ResetSender delivers a password reset token to its owner.
type ResetSender interface {
	SendReset(ctx context.Context, u model.User, token string) error
}

// LogResetSender writes reset tokens to the server log.
type LogResetSender struct{ Log *zap.Logger }

func (s LogResetSender) SendReset(_ context.Context, u model.User, token string) error {
	logger.OrNop(s.Log).Info("password reset requested",
		zap.String("user", u.Username),
		zap.String("email", u.Email),
		zap.String("reset_token", token),
	)
	return nil
}

// TokenConfig holds signing and lifetime settings.
type TokenConfig struct {
	SignKey    []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
}

// Default token lifetimes.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
	DefaultResetTTL   = time.Hour
)

func (c TokenConfig) withDefaults() TokenConfig {
	if c.AccessTTL <= 0 {
		c.AccessTTL = DefaultAccessTTL
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = DefaultRefreshTTL
	}
	if c.ResetTTL <= 0 {
		c.ResetTTL = DefaultResetTTL
	}
	return c
}

type AuthServiceImpl struct {
	users   repository.UserRepository
	refresh repository.RefreshTokenRepository
	resets  repository.ResetTokenStore
	lim     limiter.Limiter
	sender  ResetSender
	cfg     TokenConfig
	now     func() time.Time
}

var _ AuthService = (*AuthServiceImpl)(nil)

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(
	users repository.UserRepository,
	refresh repository.RefreshTokenRepository,
	resets repository.ResetTokenStore,
	lim limiter.Limiter,
	sender ResetSender,
	cfg TokenConfig,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		users:   users,
		refresh: refresh,
		resets:  resets,
		lim:     lim,
		sender:  sender,
		cfg:     cfg.withDefaults(),
		now:     time.Now,
	}
}

func normEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Register creates a new user record with a per-user salt.
func (s *AuthServiceImpl) Register(ctx context.Context, email, username, password string) (model.Tokens, model.User, error) {
	email, username = normEmail(email), strings.TrimSpace(username)
	if email == "" || username == "" || password == "" {
		return model.Tokens{}, model.User{}, fmt.Errorf("%w: empty email/username/password", errs.ErrInvalidInput)
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	hash, salt, err := pkgcrypto.NewPasswordHash(password)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	u := model.User{
		ID:        uid,
		Username:  username,
		Email:     email,
		PwdHash:   hash,
		SaltAuth:  salt,
		CreatedAt: s.now(),
	}
	if err := s.users.Create(ctx, &u); err != nil {
		return model.Tokens{}, model.User{}, err
	}
	tok, err := s.issueTokens(ctx, u.ID)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return tok, u, nil
}

// LoginWithIP authenticates with rate limiting by (username, ip).
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, username, password, ip string) (model.Tokens, model.User, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, username, ipHash)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	if !allowed {
		return model.Tokens{}, model.User{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil || !pkgcrypto.VerifyPassword([]byte(password), u.SaltAuth, u.PwdHash) {
		if blocked, _, ferr := s.lim.Failure(ctx, username, ipHash); ferr == nil && blocked {
			return model.Tokens{}, model.User{}, errs.ErrRateLimited
		}
		// unknown user and wrong password look the same
		return model.Tokens{}, model.User{}, errs.ErrUnauthorized
	}

	_ = s.lim.Success(ctx, username, ipHash)

	tok, err := s.issueTokens(ctx, u.ID)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return tok, *u, nil
}

// Refresh rotates the refresh token. Unknown, revoked and expired tokens are
// all errs.ErrUnauthorized.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (model.Tokens, model.User, error) {
	if refreshToken == "" {
		return model.Tokens{}, model.User{}, errs.ErrUnauthorized
	}
	now := s.now()
	next, nextHash, err := pkgcrypto.NewOpaqueToken()
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	owner, err := s.refresh.Rotate(ctx, pkgcrypto.HashToken(refreshToken), model.RefreshToken{
		Hash:      nextHash,
		ExpiresAt: now.Add(s.cfg.RefreshTTL),
		CreatedAt: now,
	}, now)
	if errors.Is(err, errs.ErrNotFound) || errors.Is(err, errs.ErrExpired) {
		return model.Tokens{}, model.User{}, errs.ErrUnauthorized
	}
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	u, err := s.users.GetByID(ctx, owner)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	access, exp, err := s.issueAccessToken(owner)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return model.Tokens{AccessToken: access, RefreshToken: next, ExpiresAt: exp}, *u, nil
}

func (s *AuthServiceImpl) Revoke(ctx context.Context, refreshToken string) error {
	err := s.refresh.Revoke(ctx, pkgcrypto.HashToken(refreshToken), s.now())
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	return err
}

// ForgotPassword reports success for unknown emails too.
func (s *AuthServiceImpl) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, normEmail(email))
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	tok, hash, err := pkgcrypto.NewOpaqueToken()
	if err != nil {
		return err
	}
	if err := s.resets.Put(ctx, hash, u.ID, s.cfg.ResetTTL); err != nil {
		return err
	}
	return s.sender.SendReset(ctx, *u, tok)
}

// ResetPassword redeems a reset token issued for email. A missing, used or
// foreign token is errs.ErrExpired.
func (s *AuthServiceImpl) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: empty password", errs.ErrInvalidInput)
	}
	owner, err := s.resets.Take(ctx, pkgcrypto.HashToken(token))
	if errors.Is(err, errs.ErrNotFound) {
		return errs.ErrExpired
	}
	if err != nil {
		return err
	}
	u, err := s.users.GetByID(ctx, owner)
	if err != nil {
		return err
	}
	if u.Email != normEmail(email) {
		return errs.ErrExpired
	}
	hash, salt, err := pkgcrypto.NewPasswordHash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash, salt); err != nil {
		return err
	}
	_, err = s.refresh.RevokeAllForUser(ctx, u.ID, s.now())
	return err
}

// Authenticate accepts only HS256 tokens signed with our key.
func (s *AuthServiceImpl) Authenticate(accessToken string) (uuid.UUID, error) {
	tok, err := jwt.ParseWithClaims(accessToken, &jwt.RegisteredClaims{},
		func(*jwt.Token) (any, error) { return s.cfg.SignKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", errs.ErrUnauthorized, err)
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", errs.ErrUnauthorized, err)
	}
	id, err := uuid.FromString(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", errs.ErrUnauthorized)
	}
	return id, nil
}

func (s *AuthServiceImpl) issueTokens(ctx context.Context, userID uuid.UUID) (model.Tokens, error) {
	access, exp, err := s.issueAccessToken(userID)
	if err != nil {
		return model.Tokens{}, err
	}
	refresh, hash, err := pkgcrypto.NewOpaqueToken()
	if err != nil {
		return model.Tokens{}, err
	}
	now := s.now()
	err = s.refresh.Create(ctx, model.RefreshToken{
		Hash:      hash,
		UserID:    userID,
		ExpiresAt: now.Add(s.cfg.RefreshTTL),
		CreatedAt: now,
	})
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}

// issueAccessToken creates a signed HS256 JWT for the given subject.
func (s *AuthServiceImpl) issueAccessToken(userID uuid.UUID) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.cfg.AccessTTL)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.cfg.SignKey)
	return signed, exp, err
}
