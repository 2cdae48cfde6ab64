package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cleftly/cleftly/internal/app"
	"github.com/cleftly/cleftly/internal/config"
	"github.com/cleftly/cleftly/internal/errmsg"
	"github.com/cleftly/cleftly/internal/lastfm"
	"github.com/cleftly/cleftly/internal/plugin"
	lastfmplugin "github.com/cleftly/cleftly/internal/plugins/lastfm"
)

const authTimeout = 5 * time.Minute

var errNoLastfmKeys = errors.New("set [lastfm] api_key and api_secret in the config file first")

func (r *root) lastfmCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lastfm",
		Short: "Last.fm scrobbling",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "login",
			Short: "Authorize scrobbling in the browser",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
					return fail(errmsg.OpLastfmAuth, "", login(ctx, cmd, a))
				})
			},
		},
		&cobra.Command{
			Use:   "logout",
			Short: "Forget the Last.fm session",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return r.withApp(cmd, func(_ context.Context, a *app.App) error {
					return fail(errmsg.OpLastfmAuth, "", lastfmplugin.SaveSession(lastfmConfig(a), "", ""))
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the Last.fm login and queued scrobbles",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return r.withApp(cmd, func(_ context.Context, a *app.App) error {
					c, err := lastfmplugin.LoadConfig(lastfmConfig(a))
					if err != nil {
						return fail(errmsg.OpConfigLoad, lastfmplugin.ID, err)
					}
					out := cmd.OutOrStdout()
					if c.SessionKey == "" {
						fmt.Fprintln(out, "Not logged in")
					} else {
						fmt.Fprintf(out, "Logged in as %s\n", c.Username)
					}
					fmt.Fprintf(out, "Scrobbling %s, %s queued\n", onOff(c.Enabled && a.Config.PluginEnabled(lastfmplugin.ID)), count(len(c.Pending), "scrobble"))
					return nil
				})
			},
		},
	)
	return cmd
}

func login(ctx context.Context, cmd *cobra.Command, a *app.App) error {
	if !a.Config.HasLastfmConfig() {
		return errNoLastfmKeys
	}
	client := lastfm.NewClient(a.Config.Lastfm.APIKey, a.Config.Lastfm.APISecret, "")

	cb, err := lastfm.ListenCallback(lastfm.DefaultCallbackAddr)
	if err != nil {
		return err
	}
	defer cb.Close()

	token, err := client.Token()
	if err != nil {
		return err
	}
	url := client.AuthURL(token, cb.URL())
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Open this page to allow scrobbling:\n  %s\n", url)
	if err := lastfm.OpenURL(ctx, url); err != nil {
		a.Log.Debug("open browser", zap.Error(err))
	}

	if token, err = cb.Wait(ctx, authTimeout); err != nil {
		return err
	}
	sess, err := client.Login(token)
	if err != nil {
		return err
	}
	if err := lastfmplugin.SaveSession(lastfmConfig(a), sess.User, sess.Key); err != nil {
		return err
	}
	if err := a.EnablePlugin(ctx, lastfmplugin.ID); err != nil {
		return err
	}
	fmt.Fprintf(out, "Logged in as %s\n", sess.User)
	return nil
}

func lastfmConfig(a *app.App) *plugin.ScopedConfig {
	return plugin.OpenConfig(config.PluginConfigDir(a.ConfigPath), lastfmplugin.ID, a.Log)
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
