package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cleftly/cleftly/internal/app"
	"github.com/cleftly/cleftly/internal/errmsg"
	"github.com/cleftly/cleftly/internal/events"
	"github.com/cleftly/cleftly/internal/session"
)

func (r *root) playCommand() *cobra.Command {
	var (
		req      app.PlayRequest
		playlist bool
		factor   float64
		tick     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "play <track-id | playlist-id>",
		Short: "Play without audio output, driving plugins as real playback would",
		Long: "Play runs a session whose position advances with the clock. Plugins\n" +
			"see track changes, now playing and scrobbles as they would with sound.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				if err := a.StartPlugins(ctx); err != nil {
					a.Log.Warn("some plugins failed to load", zap.Error(err))
				}

				out := cmd.OutOrStdout()
				unsub := events.On(a.Bus, events.OnTrackChange, func(_ context.Context, audio session.Audio) error {
					t := audio.Track
					fmt.Fprintf(out, "▶ %s - %s [%s]\n", t.Artist.Name, t.Title, clock(audio.Duration))
					return nil
				})
				defer unsub()

				var err error
				if playlist {
					err = a.PlayPlaylist(ctx, args[0], req.Shuffle)
				} else {
					err = a.Play(ctx, args[0], req)
				}
				if err != nil {
					return fail(errmsg.OpPlaybackStart, args[0], err)
				}

				err = session.RunClock(ctx, a.Session, tick, factor)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&req.Album, "album", false, "queue the track's album")
	cmd.Flags().StringVar(&req.Playlist, "in-playlist", "", "queue this playlist around the track")
	cmd.Flags().BoolVar(&playlist, "playlist", false, "the argument is a playlist id")
	cmd.Flags().BoolVar(&req.Shuffle, "shuffle", false, "shuffle the queue")
	cmd.Flags().Float64Var(&factor, "speedup", 1, "advance the clock this many times faster")
	cmd.Flags().DurationVar(&tick, "tick", time.Second, "position update interval")
	return cmd
}
