package cli

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/lasselehtinen/elvis/pkg/elvis"
)

// newLoginCmd creates a new login command
func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in with the configured credentials",
		Long: `Log in to the Elvis server with the configured username and password.
The session token and cookies are saved to the state file and reused by
every other command until logout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			s, err := c.Login(cmd.Context())
			if err != nil {
				return err
			}
			st := NewState(c.Config().APIEndpointURI, c.Config().Username, s)
			if err := st.WriteState(stateFile); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Logged in as "+st.User, map[string]any{
				"loginSuccess": true,
				"user":         st.User,
				"server":       st.Server,
			})
			return nil
		},
	}
}

// newLogoutCmd creates a new logout command
func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the saved session",
		Long:  "End the saved session on the server and remove the state file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, s, err := connect()
			if err != nil {
				if errors.Is(err, ErrNotLoggedIn) {
					printSuccess(cmd.OutOrStdout(), "Not logged in", map[string]any{"logoutSuccess": false})
					return nil
				}
				return err
			}
			done, err := c.Logout(cmd.Context(), s)
			// the local session is useless either way
			if rmErr := RemoveState(stateFile); rmErr != nil && err == nil {
				err = rmErr
			}
			if err != nil && !sessionExpired(err) {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Logged out", map[string]any{"logoutSuccess": done})
			return nil
		},
	}
}

// sessionExpired reports a call rejected because the server no longer knows
// the session.
func sessionExpired(err error) bool {
	var apiErr *elvis.RemoteAPIError
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized
}

// newProfileCmd creates a new profile command
func newProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the profile of the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, s, err := connect()
			if err != nil {
				return err
			}
			rsp, err := c.Profile(cmd.Context(), s)
			if err != nil {
				return err
			}
			if outputFormat != "text" {
				return printResponse(cmd.OutOrStdout(), rsp)
			}
			var p elvis.Profile
			if err := rsp.Decode(&p); err != nil {
				return err
			}
			printYAML(cmd.OutOrStdout(), p)
			return nil
		},
	}
}
