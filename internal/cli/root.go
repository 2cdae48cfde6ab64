// Package cli is the cleftly command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cleftly/cleftly/internal/app"
	"github.com/cleftly/cleftly/internal/errmsg"
)

// opError renders a failed command for the user.
type opError struct {
	op      errmsg.Op
	subject string
	err     error
}

func (e *opError) Error() string { return errmsg.FormatWith(e.op, e.subject, e.err) }
func (e *opError) Unwrap() error { return e.err }

func fail(op errmsg.Op, subject string, err error) error {
	if err == nil {
		return nil
	}
	return &opError{op: op, subject: subject, err: err}
}

type root struct {
	base app.Options

	configPath string
	dbPath     string
}

// NewRootCommand builds the command tree. base supplies the application
// options the --config and --db flags override.
func NewRootCommand(base app.Options) *cobra.Command {
	r := &root{base: base}
	cmd := &cobra.Command{
		Use:           "cleftly",
		Short:         "A music library, player and plugin host",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&r.configPath, "config", "", "config file (default $CLEFTLY_CONFIG or the XDG config dir)")
	cmd.PersistentFlags().StringVar(&r.dbPath, "db", "", "library database")

	cmd.AddCommand(
		r.scanCommand(),
		r.watchCommand(),
		r.sourcesCommand(),
		r.tracksCommand(),
		r.albumsCommand(),
		r.albumCommand(),
		r.artistsCommand(),
		r.playlistsCommand(),
		r.favoriteCommand(),
		r.pluginsCommand(),
		r.playCommand(),
		r.lastfmCommand(),
	)
	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, base app.Options, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand(base)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return 130
		}
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

// withApp opens the application for the duration of fn.
func (r *root) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	opts := r.base
	if r.configPath != "" {
		opts.ConfigPath = r.configPath
	}
	if r.dbPath != "" {
		opts.DBPath = r.dbPath
	}
	if opts.Console == nil {
		opts.Console = cmd.ErrOrStderr()
	}

	ctx := cmd.Context()
	a, err := app.Open(ctx, opts)
	if err != nil {
		return fail(errmsg.OpInitialize, "", err)
	}
	err = fn(ctx, a)
	return errors.Join(err, a.Close(context.WithoutCancel(ctx)))
}
