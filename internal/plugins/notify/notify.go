// Package notify is the built-in "now playing" notification plugin.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/cleftly/cleftly/internal/events"
	notifybus "github.com/cleftly/cleftly/internal/notify"
	"github.com/cleftly/cleftly/internal/plugin"
	"github.com/cleftly/cleftly/internal/session"
)

// ID is the plugin id.
const ID = "com.cleftly.notify"

// Config is the plugin's config document.
type Config struct {
	// Timeout in milliseconds; -1 leaves it to the notification server.
	Timeout int32 `json:"timeout"`
}

// Descriptor describes the plugin.
var Descriptor = plugin.Descriptor{
	ID:          ID,
	Name:        "Notifications",
	Author:      "Cleftly",
	Version:     "1.0.0",
	Description: "Show a desktop notification when the track changes.",
	License:     "MIT",
	Features:    []string{"notifications"},
	ConfigSettings: map[string]plugin.Setting{
		"timeout": {Name: "Timeout", Description: "How long notifications stay visible, in milliseconds", Type: plugin.SettingNumber},
	},
}

// Factory returns the plugin factory. A nil newNotifier uses D-Bus.
func Factory(newNotifier func() (notifybus.Notifier, error)) plugin.Factory {
	if newNotifier == nil {
		newNotifier = notifybus.New
	}
	return plugin.Factory{
		Descriptor: Descriptor,
		New: func(api *plugin.API) (plugin.Plugin, error) {
			n, err := newNotifier()
			if err != nil {
				return nil, err
			}
			return New(api, n), nil
		},
	}
}

// Plugin replaces one notification per session as tracks change.
type Plugin struct {
	*plugin.Base
	notifier notifybus.Notifier
	cfg      Config

	mu   sync.Mutex
	last uint32
}

// New starts the plugin on api.
func New(api *plugin.API, n notifybus.Notifier) *Plugin {
	p := &Plugin{Base: plugin.NewBase(api), notifier: n, cfg: Config{Timeout: 5000}}
	p.Start(p.migrate, func() {
		p.Subscribe(events.OnTrackChange, events.Typed(p.trackChanged))
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

func (p *Plugin) trackChanged(ctx context.Context, audio session.Audio) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	expire := time.Duration(p.cfg.Timeout) * time.Millisecond
	id, err := p.notifier.Send(ctx, notifybus.ForTrack(audio.Track, p.last, expire))
	if err != nil {
		return err
	}
	if id != 0 {
		p.last = id
	}
	return nil
}

// Destroy releases the subscriptions and closes the last notification.
func (p *Plugin) Destroy(ctx context.Context) error {
	err := p.Release(ctx)

	p.mu.Lock()
	last := p.last
	p.mu.Unlock()
	if last != 0 {
		_ = p.notifier.Dismiss(ctx, last)
	}
	return err
}
