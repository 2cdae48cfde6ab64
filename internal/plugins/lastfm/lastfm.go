// Package lastfm is the built-in scrobbling plugin.
package lastfm

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cleftly/cleftly/internal/events"
	"github.com/cleftly/cleftly/internal/friendly"
	lastfmapi "github.com/cleftly/cleftly/internal/lastfm"
	"github.com/cleftly/cleftly/internal/plugin"
	"github.com/cleftly/cleftly/internal/session"
)

// ID is the plugin id.
const ID = "com.cleftly.lastfm"

// ErrNoCredentials is returned when no API key is configured.
var ErrNoCredentials = errors.New("lastfm: api key and secret not configured")

// Config is the plugin's config document.
type Config struct {
	Enabled    bool                `json:"enabled"`
	NowPlaying bool                `json:"now_playing"`
	Username   string              `json:"username,omitempty"`
	SessionKey string              `json:"session_key,omitempty"`
	Pending    []lastfmapi.Pending `json:"pending,omitempty"`
}

// Defaults is the config a fresh install starts with.
func Defaults() Config {
	return Config{Enabled: true, NowPlaying: true}
}

// Credentials are the application's Last.fm API keys.
type Credentials struct {
	APIKey    string
	APISecret string
}

// NewClient builds the Last.fm client for a session key.
type NewClient func(sessionKey string) lastfmapi.Scrobbler

// Descriptor describes the plugin.
var Descriptor = plugin.Descriptor{
	ID:          ID,
	Name:        "Last.fm",
	Author:      "Cleftly",
	Version:     "1.0.0",
	Description: "Scrobble played tracks to Last.fm.",
	License:     "MIT",
	Features:    []string{"scrobble", "now-playing"},
	ConfigSettings: map[string]plugin.Setting{
		"enabled":     {Name: "Scrobbling", Description: "Send finished plays to Last.fm", Type: plugin.SettingBool},
		"now_playing": {Name: "Now playing", Description: "Show the current track on your profile", Type: plugin.SettingBool},
		"username":    {Name: "Username", Type: plugin.SettingHidden},
		"session_key": {Name: "Session key", Type: plugin.SettingHidden},
		"pending":     {Name: "Pending scrobbles", Type: plugin.SettingHidden},
	},
}

// Factory returns the plugin factory. When newClient is nil a real client
// is built from creds.
func Factory(creds Credentials, newClient NewClient) plugin.Factory {
	if newClient == nil {
		newClient = func(key string) lastfmapi.Scrobbler {
			return lastfmapi.NewClient(creds.APIKey, creds.APISecret, key)
		}
	}
	return plugin.Factory{
		Descriptor: Descriptor,
		New: func(api *plugin.API) (plugin.Plugin, error) {
			if creds.APIKey == "" || creds.APISecret == "" {
				return nil, ErrNoCredentials
			}
			return New(api, newClient), nil
		},
	}
}

// Plugin scrobbles plays and keeps failed scrobbles for a later retry.
type Plugin struct {
	*plugin.Base
	newClient NewClient
	log       *zap.Logger

	mu     sync.Mutex
	cfg    Config
	client lastfmapi.Scrobbler
}

// New starts the plugin on api.
func New(api *plugin.API, newClient NewClient) *Plugin {
	p := &Plugin{
		Base:      plugin.NewBase(api),
		newClient: newClient,
		log:       api.Log,
		cfg:       Defaults(),
	}
	p.Start(p.migrate, func() {
		p.Subscribe(events.OnTrackPlay, events.Typed(p.nowPlaying))
		p.Subscribe(events.OnScrobble, events.Typed(p.scrobble))
	})
	return p
}

func (p *Plugin) migrate() error {
	cfg := Defaults()
	if err := p.API.Config.Get(&cfg); err != nil {
		return err
	}

	p.mu.Lock()
	p.cfg = cfg
	p.client = p.newClient(cfg.SessionKey)
	p.mu.Unlock()

	return p.API.Config.Save(cfg)
}

func (p *Plugin) nowPlaying(_ context.Context, audio session.Audio) error {
	p.mu.Lock()
	cfg, client := p.cfg, p.client
	p.mu.Unlock()

	if !cfg.Enabled || !cfg.NowPlaying || client == nil || !client.Authenticated() {
		return nil
	}
	err := client.NowPlaying(Play(audio.Track, audio.PlayedAt))
	if errors.Is(err, lastfmapi.ErrIncomplete) {
		return nil
	}
	return err
}

func (p *Plugin) scrobble(_ context.Context, s session.Scrobble) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.cfg.Enabled || p.client == nil || !p.client.Authenticated() {
		return nil
	}

	remaining, sent := lastfmapi.Retry(p.client, p.cfg.Pending)
	if sent > 0 {
		p.log.Info("sent pending scrobbles", zap.Int("count", sent))
	}
	p.cfg.Pending = remaining

	play := Play(s.Track, s.PlayedAt)
	switch err := p.client.Scrobble(play); {
	case errors.Is(err, lastfmapi.ErrIncomplete):
		p.log.Debug("not scrobbling untagged track", zap.String("track", s.Track.ID))
	case err != nil:
		p.log.Warn("scrobble failed, queued for retry",
			zap.String("track", play.Title), zap.Error(err))
		p.cfg.Pending = lastfmapi.Enqueue(p.cfg.Pending, play, err)
	}
	return p.API.Config.Save(p.cfg)
}

// Pending returns the scrobbles waiting for a retry.
func (p *Plugin) Pending() []lastfmapi.Pending {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]lastfmapi.Pending(nil), p.cfg.Pending...)
}

// Destroy releases the plugin's subscriptions.
func (p *Plugin) Destroy(ctx context.Context) error {
	return p.Release(ctx)
}

// Play converts a library track that started at playedAt.
func Play(t friendly.Track, playedAt time.Time) lastfmapi.Play {
	return lastfmapi.Play{
		Artist:      t.Artist.Name,
		Title:       t.Title,
		Album:       t.Album.Name,
		TrackNumber: t.TrackNum,
		Duration:    time.Duration(t.Duration * float64(time.Second)),
		StartedAt:   playedAt,
	}
}

// SaveSession stores a login in the plugin's config document.
func SaveSession(cfg *plugin.ScopedConfig, username, sessionKey string) error {
	c := Defaults()
	if err := cfg.Get(&c); err != nil {
		return err
	}
	c.Username = username
	c.SessionKey = sessionKey
	return cfg.Save(c)
}

// LoadConfig reads the plugin's config document.
func LoadConfig(cfg *plugin.ScopedConfig) (Config, error) {
	c := Defaults()
	err := cfg.Get(&c)
	return c, err
}
