package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleftly/cleftly/internal/app"
	"github.com/cleftly/cleftly/internal/errmsg"
)

func (r *root) pluginsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "plugins",
		Aliases: []string{"plugin"},
		Short:   "List, enable or disable plugins",
		Args:    cobra.NoArgs,
		RunE:    r.listPlugins,
	}
	cmd.AddCommand(
		&cobra.Command{Use: "list", Short: "List plugins", Args: cobra.NoArgs, RunE: r.listPlugins},
		&cobra.Command{
			Use:   "enable <id>",
			Short: "Enable a plugin; it must load successfully",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
					if err := a.EnablePlugin(ctx, args[0]); err != nil {
						return fail(errmsg.OpPluginEnable, args[0], err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Enabled %s\n", args[0])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "disable <id>",
			Short: "Disable a plugin",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
					if err := a.DisablePlugin(ctx, args[0]); err != nil {
						return fail(errmsg.OpPluginDisable, args[0], err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Disabled %s\n", args[0])
					return nil
				})
			},
		},
	)
	return cmd
}

func (r *root) listPlugins(cmd *cobra.Command, _ []string) error {
	return r.withApp(cmd, func(_ context.Context, a *app.App) error {
		infos := a.PluginList()
		rows := make([][]string, len(infos))
		for i, info := range infos {
			kind := "external"
			if info.Builtin {
				kind = "built-in"
			}
			enabled := ""
			if info.Enabled {
				enabled = "yes"
			}
			rows[i] = []string{info.Descriptor.ID, info.Descriptor.Name, info.Descriptor.Version, kind, enabled}
		}
		printTable(cmd.OutOrStdout(), []string{"ID", "NAME", "VERSION", "KIND", "ENABLED"}, rows)
		return nil
	})
}
