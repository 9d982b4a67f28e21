package cli

import (
	"context"

	"github.com/saythanks/saythanks/internal/server"
	"github.com/saythanks/saythanks/internal/server/config"
	"github.com/spf13/cobra"
)

type runner struct {
	open Opener
}

// NewRootCommand assembles the saythanks command tree. open is called once
// per command invocation, after configuration is resolved.
func NewRootCommand(open Opener) *cobra.Command {
	r := &runner{open: open}

	cmd := &cobra.Command{
		Use:   "saythanks",
		Short: "Operate SayThanks inboxes and notes",
		Long: `saythanks manages inboxes and the thank-you notes sent to them.
Configuration comes from defaults, a .env file and SAYTHANKS_* variables,
an optional JSON file (-c) and finally flags.`,
		SilenceUsage: true,
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newMigrateCommand(r),
		newInboxCommand(r),
		newNotesCommand(r),
	)
	return cmd
}

// run resolves configuration, opens a backend for the duration of fn and
// closes it afterwards. adjust may tweak the configuration before opening.
func (r *runner) run(cmd *cobra.Command, fn func(ctx context.Context, b Backend) error,
	adjust ...func(*config.Config)) (err error) {
	cfg, err := config.LoadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	for _, a := range adjust {
		a(cfg)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := server.WithSignals(parent)
	defer cancel()

	b, err := r.open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := b.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(ctx, b)
}
