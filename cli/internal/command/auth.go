package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/itchan-dev/echobox/cli/internal/tokenstore"
	"github.com/itchan-dev/echobox/shared/admin"
	"github.com/itchan-dev/echobox/shared/api"
	"github.com/itchan-dev/echobox/shared/jwt"
	"github.com/itchan-dev/echobox/shared/utils"
)

var ErrNotLoggedIn = errors.New("admin session required, run `echobox login` first")

func (a *app) newLoginCommand() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as the admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			req := api.LoginRequest{Username: strings.TrimSpace(username), Password: password}
			if err := utils.Validate(req); err != nil {
				return errors.New("username and password are required")
			}
			if err := admin.NewAuthenticator(cfg.AdminUsername(), cfg.AdminPasswordHash()).Check(req.Username, req.Password); err != nil {
				return err
			}

			token, session, err := jwt.New(cfg.JwtKey(), cfg.SessionTTL()).NewToken(req.Username)
			if err != nil {
				return err
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Save(tokenstore.Entry{Token: token, Username: session.Username, ExpiresAt: session.ExpiresAt}); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s until %s.\n", session.Username, session.ExpiresAt.Local().Format(timeLayout))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Admin username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Admin password")
	return cmd
}

func (a *app) newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored admin session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Clear(); err != nil {
				return fmt.Errorf("clear session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

// requireSession returns the stored admin session after verifying its
// signature and expiry. Expired sessions are removed.
func (a *app) requireSession() (*jwt.Session, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	entry, err := store.Load()
	if errors.Is(err, tokenstore.ErrNoSession) {
		return nil, ErrNotLoggedIn
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if entry.Expired(a.now()) {
		_ = store.Clear()
		return nil, fmt.Errorf("session expired: %w", ErrNotLoggedIn)
	}
	session, err := jwt.New(cfg.JwtKey(), cfg.SessionTTL()).DecodeToken(entry.Token)
	if err != nil {
		_ = store.Clear()
		return nil, fmt.Errorf("session rejected: %w", ErrNotLoggedIn)
	}
	return session, nil
}
