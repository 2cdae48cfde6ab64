// Package builtin is the static registry of plugins linked into the binary.
package builtin

import (
	"github.com/cleftly/cleftly/internal/plugin"
	"github.com/cleftly/cleftly/internal/plugins/lastfm"
	"github.com/cleftly/cleftly/internal/plugins/lyrics"
	"github.com/cleftly/cleftly/internal/plugins/mpris"
	"github.com/cleftly/cleftly/internal/plugins/notify"
)

// DefaultEnabled is the plugin list of a fresh install.
var DefaultEnabled = []string{mpris.ID}

// Deps are the host services built-in plugins are constructed with.
type Deps struct {
	Lastfm     lastfm.Credentials
	Lyrics     lyrics.Finder
	LyricsSave bool
}

// Registry returns the factory of every built-in plugin.
func Registry(deps Deps) []plugin.Factory {
	return []plugin.Factory{
		lastfm.Factory(deps.Lastfm, nil),
		lyrics.Factory(deps.Lyrics, deps.LyricsSave),
		mpris.Factory(nil),
		notify.Factory(nil),
	}
}
