package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cleftly/cleftly/internal/app"
	"github.com/cleftly/cleftly/internal/errmsg"
)

func (r *root) playlistsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "playlists",
		Aliases: []string{"playlist", "pl"},
		Short:   "Manage playlists",
		Args:    cobra.NoArgs,
		RunE:    r.listPlaylists,
	}
	cmd.AddCommand(
		&cobra.Command{Use: "list", Short: "List playlists", Args: cobra.NoArgs, RunE: r.listPlaylists},
		r.showPlaylistCommand(),
		&cobra.Command{
			Use:   "create <name>",
			Short: "Create an empty playlist",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
					pl, err := a.Playlists.Create(ctx, args[0])
					if err != nil {
						return fail(errmsg.OpPlaylistCreate, args[0], err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), pl.ID)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "rename <id> <name>",
			Short: "Rename a playlist",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
					return fail(errmsg.OpPlaylistRename, args[0], a.Playlists.Rename(ctx, args[0], args[1]))
				})
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a playlist",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
					return fail(errmsg.OpPlaylistDelete, args[0], a.Playlists.Delete(ctx, args[0]))
				})
			},
		},
		&cobra.Command{
			Use:   "add <id> <track-id>...",
			Short: "Append tracks to a playlist",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
					return fail(errmsg.OpPlaylistAddTrack, args[0], a.Playlists.Append(ctx, args[0], args[1:]...))
				})
			},
		},
		&cobra.Command{
			Use:   "remove <id> <position>...",
			Short: "Remove entries by position, counting from 1",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				positions, err := parsePositions(args[1:])
				if err != nil {
					return err
				}
				return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
					return fail(errmsg.OpPlaylistRemove, args[0], a.Playlists.RemoveAt(ctx, args[0], positions...))
				})
			},
		},
		r.movePlaylistCommand(),
		r.exportPlaylistCommand(),
		r.importPlaylistCommand(),
	)
	return cmd
}

func (r *root) listPlaylists(cmd *cobra.Command, _ []string) error {
	return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
		lists, err := a.Playlists.List(ctx)
		if err != nil {
			return fail(errmsg.OpPlaylistLoad, "", err)
		}
		rows := make([][]string, len(lists))
		for i, pl := range lists {
			rows[i] = []string{pl.ID, pl.Name, strconv.Itoa(len(pl.TrackIDs)), ago(&pl.UpdatedAt)}
		}
		printTable(cmd.OutOrStdout(), []string{"ID", "NAME", "TRACKS", "UPDATED"}, rows)
		return nil
	})
}

func (r *root) showPlaylistCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a playlist's tracks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				pl, err := a.Playlists.Get(ctx, args[0])
				if err != nil {
					return fail(errmsg.OpPlaylistLoad, args[0], err)
				}
				resolved, err := a.Resolver.Playlist(ctx, pl, true)
				if err != nil {
					return fail(errmsg.OpPlaylistLoad, pl.Name, err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (%s)\n", pl.Name, count(len(pl.TrackIDs), "track"))
				rows := make([][]string, len(resolved.Tracks))
				for i, t := range resolved.Tracks {
					pos := strconv.Itoa(i + 1)
					if t == nil {
						rows[i] = []string{pos, "(missing)", "", "", pl.TrackIDs[i]}
						continue
					}
					rows[i] = []string{pos, t.Title, t.Artist.Name, clock(t.Duration), t.ID}
				}
				printTable(out, []string{"#", "TITLE", "ARTIST", "TIME", "ID"}, rows)
				return nil
			})
		},
	}
}

func (r *root) movePlaylistCommand() *cobra.Command {
	var by int
	cmd := &cobra.Command{
		Use:   "move <id> <position>...",
		Short: "Move entries up (negative --by) or down",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			positions, err := parsePositions(args[1:])
			if err != nil {
				return err
			}
			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				moved, err := a.Playlists.Move(ctx, args[0], positions, by)
				if err != nil {
					return fail(errmsg.OpPlaylistMove, args[0], err)
				}
				for _, p := range moved {
					fmt.Fprintln(cmd.OutOrStdout(), p+1)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&by, "by", 1, "positions to move by")
	return cmd
}

func (r *root) exportPlaylistCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export [id]",
		Short: "Export one playlist, or all of them, as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(ctx context.Context, a *app.App) (err error) {
				w := cmd.OutOrStdout()
				if output != "" && output != "-" {
					f, err := os.Create(output)
					if err != nil {
						return fail(errmsg.OpPlaylistExport, output, err)
					}
					defer func() {
						if cerr := f.Close(); err == nil {
							err = fail(errmsg.OpPlaylistExport, output, cerr)
						}
					}()
					w = f
				}
				if len(args) == 0 {
					return fail(errmsg.OpPlaylistExport, "", a.Playlists.ExportAll(ctx, w))
				}
				return fail(errmsg.OpPlaylistExport, args[0], a.Playlists.Export(ctx, args[0], w))
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

func (r *root) importPlaylistCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Import playlists exported as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fail(errmsg.OpPlaylistImport, args[0], err)
				}
				defer f.Close()
				in = f
			}
			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				created, err := a.Playlists.Import(ctx, in)
				if err != nil {
					return fail(errmsg.OpPlaylistImport, args[0], err)
				}
				for _, pl := range created {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s (%s)\n", pl.ID, pl.Name, count(len(pl.TrackIDs), "track"))
				}
				return nil
			})
		},
	}
}

func (r *root) favoriteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <track-id>",
		Short: "Add a track to favorites, or remove it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				t, err := a.Track(ctx, args[0])
				if err != nil {
					return fail(errmsg.OpFavoriteToggle, args[0], err)
				}
				on, err := a.Playlists.ToggleFavorite(ctx, t.ID)
				if err != nil {
					return fail(errmsg.OpFavoriteToggle, t.Title, err)
				}
				if on {
					fmt.Fprintf(cmd.OutOrStdout(), "Added %s to favorites\n", t.Title)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from favorites\n", t.Title)
				}
				return nil
			})
		},
	}
}

// parsePositions turns 1-based arguments into 0-based positions.
func parsePositions(args []string) ([]int, error) {
	out := make([]int, len(args))
	for i, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid position %q", arg)
		}
		out[i] = n - 1
	}
	return out, nil
}
