// Package lyrics is the built-in lyrics provider plugin.
package lyrics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cleftly/cleftly/internal/events"
	lyricsrc "github.com/cleftly/cleftly/internal/lyrics"
	"github.com/cleftly/cleftly/internal/plugin"
	"github.com/cleftly/cleftly/internal/session"
)

// ID is the plugin id.
const ID = "com.cleftly.lyrics"

// Finder looks lyrics up for a track.
type Finder interface {
	Fetch(ctx context.Context, track lyricsrc.TrackInfo) (*lyricsrc.Result, error)
}

// Config is the plugin's config document.
type Config struct {
	// SaveSidecar writes fetched lyrics next to the audio file.
	SaveSidecar bool `json:"save_sidecar"`
}

// Descriptor describes the plugin.
var Descriptor = plugin.Descriptor{
	ID:          ID,
	Name:        "Lyrics",
	Author:      "Cleftly",
	Version:     "1.0.0",
	Description: "Load lyrics from sidecar files or lrclib.net.",
	License:     "MIT",
	Features:    []string{"lyrics"},
	ConfigSettings: map[string]plugin.Setting{
		"save_sidecar": {Name: "Save lyrics", Description: "Store downloaded lyrics next to the audio file", Type: plugin.SettingBool},
	},
}

var credits = map[string]string{
	lyricsrc.OriginLocal:  "Loaded from a local file",
	lyricsrc.OriginCache:  "Lyrics provided by lrclib.net",
	lyricsrc.OriginLRCLib: "Lyrics provided by lrclib.net",
}

// Factory returns the plugin factory. saveDefault seeds save_sidecar on
// first load.
func Factory(finder Finder, saveDefault bool) plugin.Factory {
	return plugin.Factory{
		Descriptor: Descriptor,
		New: func(api *plugin.API) (plugin.Plugin, error) {
			return New(api, finder, saveDefault), nil
		},
	}
}

// Plugin answers lyrics requests.
type Plugin struct {
	*plugin.Base
	finder Finder
	cfg    Config
}

// New starts the plugin on api.
func New(api *plugin.API, finder Finder, saveDefault bool) *Plugin {
	p := &Plugin{Base: plugin.NewBase(api), finder: finder, cfg: Config{SaveSidecar: saveDefault}}
	p.Start(p.migrate, func() {
		p.Subscribe(events.OnLyricsRequested, events.Typed(p.load))
	})
	return p
}

func (p *Plugin) migrate() error {
	cfg := p.cfg
	if err := p.API.Config.Get(&cfg); err != nil {
		return err
	}
	p.cfg = cfg
	return p.API.Config.Save(cfg)
}

func (p *Plugin) load(ctx context.Context, audio session.Audio) error {
	t := audio.Track
	res, err := p.finder.Fetch(ctx, lyricsrc.TrackInfo{
		Path:     t.Location,
		Artist:   t.Artist.Name,
		Title:    t.Title,
		Album:    t.Album.Name,
		Duration: time.Duration(t.Duration * float64(time.Second)),
	})
	if err != nil {
		return err
	}
	if res == nil {
		p.API.Log.Debug("no lyrics found", zap.String("track", t.ID))
		return nil
	}

	if p.cfg.SaveSidecar && res.Origin != lyricsrc.OriginLocal && t.Location != "" {
		if err := lyricsrc.SaveSidecar(t.Location, *res); err != nil {
			p.API.Log.Warn("save lyrics", zap.String("path", t.Location), zap.Error(err))
		}
	}

	p.API.Events.Publish(ctx, events.OnLyricsLoaded, session.LyricsLoaded{
		AudioID: audio.ID,
		TrackID: t.ID,
		Lyrics: session.Lyrics{
			Format:  res.Format,
			Text:    res.Text,
			Source:  res.Origin,
			Credits: credits[res.Origin],
		},
	})
	return nil
}

// Destroy releases the plugin's subscriptions.
func (p *Plugin) Destroy(ctx context.Context) error {
	return p.Release(ctx)
}
