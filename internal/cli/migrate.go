package cli

import (
	"context"
	"fmt"

	"github.com/saythanks/saythanks/internal/server/config"
	"github.com/spf13/cobra"
)

func newMigrateCommand(r *runner) *cobra.Command {
	var target int64

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, b Backend) error {
				if err := b.Migrate(ctx, target); err != nil {
					return err
				}
				v, err := b.SchemaVersion(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", v)
				return nil
			}, func(c *config.Config) { c.MigrateOnStart = false })
		},
	}
	cmd.Flags().Int64Var(&target, "to", 0, "stop at this version (0 = latest)")
	return cmd
}
