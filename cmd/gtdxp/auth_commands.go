package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/gtdxp-os/internal/auth"
	"github.com/nhle/gtdxp-os/internal/callback"
	"github.com/nhle/gtdxp-os/internal/credential"
	"github.com/nhle/gtdxp-os/internal/session"
	"github.com/nhle/gtdxp-os/internal/ui"
)

func newAuthCommand(ctx *commandContext) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Account and session utilities",
	}

	authCmd.AddCommand(newAuthConfirmCommand(ctx))
	authCmd.AddCommand(newAuthWhoamiCommand(ctx))
	authCmd.AddCommand(newAuthSignOutCommand(ctx))
	authCmd.AddCommand(newAuthSetKeyCommand(ctx))

	return authCmd
}

func newAuthConfirmCommand(ctx *commandContext) *cobra.Command {
	var emlPath string

	cmd := &cobra.Command{
		Use:   "confirm [link]",
		Short: "Redeem a confirmation or sign-in link and sign in",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			link, err := confirmLink(args, emlPath)
			if err != nil {
				return err
			}
			received, err := callback.FromLink(link)
			if err != nil {
				return err
			}
			if received.Callback.Type == auth.OTPRecovery {
				return fmt.Errorf("password reset links need a new password; open it with `gtdxp --link '%s'`", link)
			}

			mgr, err := ctx.requireAuth()
			if err != nil {
				return err
			}

			reqCtx, cancel := context.WithTimeout(cmd.Context(), ui.RequestTimeout)
			defer cancel()
			s, err := mgr.Provider().VerifyOTP(reqCtx, received.Callback.TokenHash, received.Callback.Type)
			if err != nil {
				return errors.New(auth.Message(err, "Verification failed"))
			}
			if err := mgr.Set(s); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Email confirmed")
			if email := mgr.Email(); email != "" {
				fmt.Fprintf(out, "Signed in as %s\n", email)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&emlPath, "eml", "", "Read the link from a saved confirmation email (.eml)")
	return cmd
}

func confirmLink(args []string, emlPath string) (string, error) {
	switch {
	case len(args) == 1 && emlPath != "":
		return "", errors.New("pass either a link or --eml, not both")
	case len(args) == 1:
		return args[0], nil
	case emlPath != "":
		f, err := os.Open(emlPath)
		if err != nil {
			return "", fmt.Errorf("open email: %w", err)
		}
		defer f.Close()
		return auth.LinkFromEmail(f)
	default:
		return "", errors.New("a link or --eml is required")
	}
}

func newAuthWhoamiCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := ctx.requireAuth()
			if err != nil {
				return err
			}

			reqCtx, cancel := context.WithTimeout(cmd.Context(), ui.RequestTimeout)
			defer cancel()
			if _, err := mgr.Restore(reqCtx); err != nil {
				if errors.Is(err, session.ErrNotSignedIn) {
					fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
					return nil
				}
				return err
			}
			user, err := mgr.Validate(reqCtx)
			if err != nil {
				return errors.New(auth.Message(err, "Failed to load user"))
			}

			expires := "unknown"
			if s := mgr.Current(); s != nil && !s.Expiry().IsZero() {
				expires = s.Expiry().Local().Format(time.DateTime)
			}
			rows := [][]string{
				{"Email", user.Email},
				{"User ID", user.ID},
				{"Session expires", expires},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
}

func newAuthSignOutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out and forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := ctx.requireAuth()
			if err != nil {
				return err
			}

			reqCtx, cancel := context.WithTimeout(cmd.Context(), ui.RequestTimeout)
			defer cancel()
			if _, err := mgr.Restore(reqCtx); err != nil {
				if errors.Is(err, session.ErrNotSignedIn) {
					fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
					return nil
				}
				return err
			}
			if err := mgr.SignOut(reqCtx); err != nil {
				// The local session is gone either way.
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", auth.Message(err, "provider sign out failed"))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newAuthSetKeyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set-key [anon-key]",
		Short: "Store the provider's anon key in the system keyring",
		Long:  "Store the provider's anon key in the system keyring. Without an argument the key is read from stdin.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read key: %w", err)
				}
				key = line
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return errors.New("anon key is empty")
			}

			v, err := ctx.ensureVault()
			if err != nil {
				return err
			}
			if err := v.Set(credential.KeyAnonKey, key); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Anon key saved to keyring")
			return nil
		},
	}
}
