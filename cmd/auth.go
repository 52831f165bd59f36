package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/inoreader-mcp/internal/auth"
	"github.com/teemow/inoreader-mcp/internal/logging"
	"github.com/teemow/inoreader-mcp/internal/secrets"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage Inoreader authentication",
		Long: `Manage the OAuth token used to call the Inoreader API.

The token pair is kept in the system keyring when one is available, otherwise
in a file readable only by the current user. Set INOREADER_NO_KEYRING=1 to
force the file backend.`,
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthLogoutCmd())
	cmd.AddCommand(newAuthStatusCmd())
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var (
		noBrowser bool
		timeout   time.Duration
		debug     bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize inoreader-mcp with your Inoreader account",
		Long: `Run the OAuth authorization code flow.

A temporary listener on 127.0.0.1 receives the redirect from Inoreader. The
redirect URL registered for your OAuth application must be
http://localhost:<port>/oauth/callback, where <port> is INOREADER_REDIRECT_PORT
(default 8765).

Requires INOREADER_CLIENT_ID and INOREADER_CLIENT_SECRET.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			provider, err := newCLITokenProvider(cmd.ErrOrStderr(), debug)
			if err != nil {
				return err
			}

			if err := provider.Login(ctx, auth.LoginOptions{
				NoBrowser: noBrowser,
				Timeout:   timeout,
				Output:    cmd.ErrOrStderr(),
			}); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Authenticated. Token stored in %s.\n", provider.Store().Name())
			return nil
		},
	}

	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Print the authorization URL instead of opening a browser")
	cmd.Flags().DurationVar(&timeout, "timeout", auth.DefaultLoginTimeout, "How long to wait for the authorization to complete")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := newCLITokenProvider(cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			if err := provider.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where the access token comes from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := newCLITokenProvider(cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			status, err := provider.Status()
			if err != nil {
				return err
			}
			printAuthStatus(cmd.OutOrStdout(), status)
			if !status.Authenticated() {
				return auth.ErrNotAuthenticated
			}
			return nil
		},
	}
}

// newCLITokenProvider builds a token provider for the auth subcommands,
// logging to w in text format.
func newCLITokenProvider(w io.Writer, debug bool) (*auth.TokenProvider, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(w, logging.Options{Debug: debug})
	store := secrets.NewStore(cfg.TokenDir, logger)
	return auth.NewTokenProvider(cfg, store, auth.WithLogger(logger)), nil
}

func printAuthStatus(w io.Writer, status *auth.Status) {
	if !status.Authenticated() {
		fmt.Fprintf(w, "Not authenticated (backend: %s).\n", status.Backend)
		fmt.Fprintln(w, "Run 'inoreader-mcp auth login' or set "+auth.EnvAccessToken+".")
		return
	}

	switch status.Source {
	case auth.SourceEnv:
		fmt.Fprintf(w, "Authenticated via %s.\n", auth.EnvAccessToken)
		return
	default:
		fmt.Fprintf(w, "Authenticated (backend: %s).\n", status.Backend)
	}

	if status.ExpiresAt.IsZero() {
		fmt.Fprintln(w, "Expires: unknown")
	} else if status.Expired() {
		fmt.Fprintf(w, "Expired: %s\n", status.ExpiresAt.Format(time.RFC3339))
	} else {
		fmt.Fprintf(w, "Expires: %s\n", status.ExpiresAt.Format(time.RFC3339))
	}

	if status.HasRefreshToken {
		fmt.Fprintln(w, "Refresh token: present")
	} else {
		fmt.Fprintln(w, "Refresh token: missing")
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
