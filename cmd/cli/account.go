package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/and161185/stockfolio/internal/tokenclaims"
)

func newLoginCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long: `Sign in with username and password. The password is prompted
when --password is omitted.

Examples:
  pf login -u alice
  echo "$PASS" | pf login -u alice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" {
				return errors.New("--username is required")
			}
			pw, err := a.passwordFlag(password, "Password")
			if err != nil {
				return err
			}
			m, err := a.session(cmd.Context(), false)
			if err != nil {
				return err
			}
			sess, err := m.Login(cmd.Context(), username, pw)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			a.printf("logged in as %s\n", sess.User.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var email, username, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" || username == "" {
				return errors.New("--email and --username are required")
			}
			pw, err := a.passwordFlag(password, "Choose a password")
			if err != nil {
				return err
			}
			m, err := a.session(cmd.Context(), false)
			if err != nil {
				return err
			}
			sess, err := m.Register(cmd.Context(), email, username, pw)
			if err != nil {
				return fmt.Errorf("register failed: %w", err)
			}
			a.printf("registered and logged in as %s\n", sess.User.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "email")
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the refresh token and forget the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.session(cmd.Context(), false)
			if err != nil {
				return err
			}
			if !m.IsLoggedIn() {
				a.printf("not logged in\n")
				return nil
			}
			if err := m.Logout(cmd.Context()); err != nil {
				return err
			}
			a.printf("logged out\n")
			return nil
		},
	}
}

type whoami struct {
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	AccessExpires  *time.Time `json:"accessExpiresAt,omitempty"`
	AccessExpired  bool       `json:"accessExpired"`
	RefreshPresent bool       `json:"refreshTokenPresent"`
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.session(cmd.Context(), false)
			if err != nil {
				return err
			}
			if !m.IsLoggedIn() {
				return errNotLoggedIn
			}
			sess := m.Current()
			out := whoami{
				Username:       sess.User.Username,
				Email:          sess.User.Email,
				RefreshPresent: sess.RefreshToken != "",
				AccessExpired:  true,
			}
			if c, err := tokenclaims.TryDecode(sess.AccessToken); err == nil {
				exp := c.ExpiresAt.UTC()
				out.AccessExpires = &exp
				out.AccessExpired = !time.Now().Before(exp)
			}
			return a.printJSON(out)
		},
	}
}

func newForgotPasswordCmd(a *app) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a password reset token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			m, err := a.session(cmd.Context(), false)
			if err != nil {
				return err
			}
			if err := m.ForgotPassword(cmd.Context(), email); err != nil {
				return err
			}
			a.printf("if the account exists, a reset token is on its way\n")
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func newResetPasswordCmd(a *app) *cobra.Command {
	var email, token, password string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with a reset token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" || token == "" {
				return errors.New("--email and --token are required")
			}
			pw, err := a.passwordFlag(password, "New password")
			if err != nil {
				return err
			}
			m, err := a.session(cmd.Context(), false)
			if err != nil {
				return err
			}
			if err := m.ResetPassword(cmd.Context(), email, token, pw); err != nil {
				return err
			}
			a.printf("password changed, please log in\n")
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&token, "token", "t", "", "reset token")
	cmd.Flags().StringVarP(&password, "password", "p", "", "new password (prompted when omitted)")
	return cmd
}

func newRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new pair now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.session(cmd.Context(), false)
			if err != nil {
				return err
			}
			if !m.IsLoggedIn() {
				return errNotLoggedIn
			}
			access, err := a.coord.Refresh(cmd.Context(), m.AccessToken())
			if err != nil {
				return err
			}
			if c, err := tokenclaims.TryDecode(access); err == nil {
				a.printf("refreshed, access token valid until %s\n", c.ExpiresAt.UTC().Format(time.RFC3339))
				return nil
			}
			a.printf("refreshed\n")
			return nil
		},
	}
}
