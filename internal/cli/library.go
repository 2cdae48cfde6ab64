package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cleftly/cleftly/internal/app"
	"github.com/cleftly/cleftly/internal/errmsg"
	"github.com/cleftly/cleftly/internal/library"
	"github.com/cleftly/cleftly/internal/store"
	"github.com/cleftly/cleftly/internal/ui/scanprogress"
)

func (r *root) scanCommand() *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the music directories and update the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if len(a.Config.MusicDirectories) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No music directories configured. Add one with 'cleftly sources add <dir>'.")
					return nil
				}
				var (
					stats *library.ScanStats
					err   error
				)
				if plain {
					stats, err = scanPlain(ctx, cmd, a)
				} else {
					stats, err = scanprogress.Run(ctx, a.Scan, scanprogress.Options{
						Input:         cmd.InOrStdin(),
						Output:        cmd.OutOrStdout(),
						CaptureStderr: true,
					})
				}
				if err != nil {
					return fail(errmsg.OpLibraryScan, "", err)
				}
				if plain {
					fmt.Fprintln(cmd.OutOrStdout(), scanprogress.Report(stats, scanprogress.DefaultMaxExamples, 80))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print phases as lines instead of the progress view")
	return cmd
}

// scanPlain prints one line per phase.
func scanPlain(ctx context.Context, cmd *cobra.Command, a *app.App) (*library.ScanStats, error) {
	progress := make(chan library.ScanProgress, 16)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		phase := ""
		for p := range progress {
			if p.Phase != phase && p.Phase != library.PhaseDone {
				phase = p.Phase
				fmt.Fprintf(cmd.OutOrStdout(), "%s...\n", phase)
			}
		}
	}()
	stats, err := a.Scan(ctx, progress)
	<-printed
	return stats, err
}

func (r *root) watchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Rescan whenever files change under the music directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Watching %s. Press Ctrl+C to stop.\n", strings.Join(a.Config.MusicDirectories, ", "))
				err := a.Watch(ctx, func(stats *library.ScanStats, err error) {
					if err == nil && stats.Changed() {
						fmt.Fprintln(out, scanprogress.Summary(stats))
					}
				})
				return fail(errmsg.OpLibraryWatch, "", err)
			})
		},
	}
}

func (r *root) sourcesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List the music directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(_ context.Context, a *app.App) error {
				for _, dir := range a.Config.MusicDirectories {
					fmt.Fprintln(cmd.OutOrStdout(), dir)
				}
				return nil
			})
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <dir>...",
		Short: "Add music directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(_ context.Context, a *app.App) error {
				for _, dir := range args {
					added, err := a.AddMusicDirectory(dir)
					if err != nil {
						return fail(errmsg.OpSourceAdd, dir, err)
					}
					if !added {
						fmt.Fprintf(cmd.OutOrStdout(), "%s is already a music directory\n", dir)
					}
				}
				return nil
			})
		},
	})
	return cmd
}

func (r *root) tracksCommand() *cobra.Command {
	var artist string
	cmd := &cobra.Command{
		Use:   "tracks",
		Short: "List tracks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				var (
					tracks []store.Track
					err    error
				)
				if artist != "" {
					tracks, err = a.Store.TracksByArtist(ctx, artist)
				} else {
					tracks, err = a.Store.Tracks(ctx)
				}
				if err != nil {
					return fail(errmsg.OpLibraryLoad, "", err)
				}
				resolved, err := a.Resolver.Tracks(ctx, tracks)
				if err != nil {
					return fail(errmsg.OpLibraryLoad, "", err)
				}

				rows := make([][]string, len(resolved))
				for i, t := range resolved {
					rows[i] = []string{t.ID, t.Title, t.Artist.Name, t.Album.Name, clock(t.Duration), ago(t.LastPlayedAt)}
				}
				printTable(cmd.OutOrStdout(), []string{"ID", "TITLE", "ARTIST", "ALBUM", "TIME", "PLAYED"}, rows)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&artist, "artist", "", "only tracks by this artist id")
	return cmd
}

func (r *root) albumsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "albums",
		Short: "List albums",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				albums, err := a.Store.Albums(ctx)
				if err != nil {
					return fail(errmsg.OpLibraryLoad, "", err)
				}
				rows := make([][]string, 0, len(albums))
				for _, al := range albums {
					resolved, err := a.Resolver.Album(ctx, al)
					if err != nil {
						return fail(errmsg.OpAlbumLoad, al.Name, err)
					}
					year := ""
					if al.Year > 0 {
						year = strconv.Itoa(al.Year)
					}
					rows = append(rows, []string{al.ID, al.Name, resolved.Artist.Name, year, strconv.Itoa(len(resolved.Tracks))})
				}
				printTable(cmd.OutOrStdout(), []string{"ID", "ALBUM", "ARTIST", "YEAR", "TRACKS"}, rows)
				return nil
			})
		},
	}
}

func (r *root) albumCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "album <id>",
		Short: "Show an album and its tracks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				al, err := a.Album(ctx, args[0])
				if err != nil {
					return fail(errmsg.OpAlbumLoad, args[0], err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s by %s", al.Name, al.Artist.Name)
				if al.Year > 0 {
					fmt.Fprintf(out, " (%d)", al.Year)
				}
				fmt.Fprintln(out)
				if len(al.Genres) > 0 {
					fmt.Fprintln(out, strings.Join(al.Genres, ", "))
				}

				var total float64
				rows := make([][]string, len(al.Tracks))
				for i, t := range al.Tracks {
					total += t.Duration
					rows[i] = []string{trackNumber(t), t.Title, clock(t.Duration), t.ID}
				}
				printTable(out, []string{"#", "TITLE", "TIME", "ID"}, rows)
				fmt.Fprintf(out, "%s, %s\n", count(len(al.Tracks), "track"), clock(total))
				return nil
			})
		},
	}
}

func trackNumber(t store.Track) string {
	switch {
	case t.TrackNum == 0:
		return ""
	case t.TotalDiscs > 1 || t.DiscNum > 1:
		return fmt.Sprintf("%d-%02d", t.DiscNum, t.TrackNum)
	}
	return strconv.Itoa(t.TrackNum)
}

func (r *root) artistsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "artists",
		Short: "List artists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				artists, err := a.Store.Artists(ctx)
				if err != nil {
					return fail(errmsg.OpLibraryLoad, "", err)
				}
				rows := make([][]string, len(artists))
				for i, ar := range artists {
					rows[i] = []string{ar.ID, ar.Name, strings.Join(ar.Genres, ", ")}
				}
				printTable(cmd.OutOrStdout(), []string{"ID", "ARTIST", "GENRES"}, rows)
				return nil
			})
		},
	}
}
