package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/saythanks/saythanks/internal/server/services"
	"github.com/spf13/cobra"
)

func newInboxCommand(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Register and configure inboxes",
	}
	cmd.AddCommand(
		newInboxRegisterCommand(r),
		newInboxShowCommand(r),
		newInboxEmailCommand(r),
		newInboxToggleCommand(r, "enable", "Accept notes for the inbox", Inboxes.EnableAccount),
		newInboxToggleCommand(r, "disable", "Stop accepting notes for the inbox", Inboxes.DisableAccount),
		newInboxToggleCommand(r, "enable-email", "Email new notes to the owner", Inboxes.EnableEmail),
		newInboxToggleCommand(r, "disable-email", "Stop emailing new notes", Inboxes.DisableEmail),
	)
	return cmd
}

func newInboxRegisterCommand(r *runner) *cobra.Command {
	var accountID, email, token string

	cmd := &cobra.Command{
		Use:   "register <slug>",
		Short: "Link a slug to an identity provider account",
		Long: `Registers <slug> for an account, given either --account (and optionally
--email) or a signed --token whose subject names the account.
Registering a taken slug, or an account that already has an inbox, reports
the existing inbox instead of failing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (accountID == "") == (token == "") {
				return errors.New("exactly one of --account or --token is required")
			}
			slug := args[0]

			return r.run(cmd, func(ctx context.Context, b Backend) error {
				var (
					res services.RegisterResult
					err error
				)
				if token != "" {
					res, err = b.Inboxes().RegisterWithToken(ctx, slug, token)
				} else {
					res, err = b.Inboxes().Register(ctx, slug, accountID, email)
				}
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if res.Created() {
					fmt.Fprintf(out, "registered %s\n", res.Inbox.Slug)
				} else {
					fmt.Fprintf(out, "already registered: %s (account %s)\n", res.Inbox.Slug, res.Inbox.AuthID)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "identity provider account id")
	cmd.Flags().StringVar(&email, "email", "", "contact address to store")
	cmd.Flags().StringVar(&token, "token", "", "signed ID token (HS256)")
	return cmd
}

func newInboxShowCommand(r *runner) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <slug>",
		Short: "Print the stored inbox record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, b Backend) error {
				inbox, err := b.Inboxes().Get(ctx, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), inbox)
				}
				return writeInbox(cmd.OutOrStdout(), inbox)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func newInboxEmailCommand(r *runner) *cobra.Command {
	var resolved bool

	cmd := &cobra.Command{
		Use:   "email <slug>",
		Short: "Print the owner's email address",
		Long: `Prints the address stored at registration, or with --resolved the
address currently held by the identity provider.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, b Backend) error {
				get := b.Inboxes().GetEmail
				if resolved {
					get = b.Inboxes().ResolvedEmail
				}
				email, err := get(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), email)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&resolved, "resolved", false, "ask the identity provider")
	return cmd
}

func newInboxToggleCommand(r *runner, use, short string,
	apply func(Inboxes, context.Context, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <slug>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, b Backend) error {
				if err := apply(b.Inboxes(), ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], use)
				return nil
			})
		},
	}
}
