// Package mpris is the built-in plugin publishing the session over MPRIS.
package mpris

import (
	"context"
	"errors"

	"github.com/cleftly/cleftly/internal/events"
	mprisbus "github.com/cleftly/cleftly/internal/mpris"
	"github.com/cleftly/cleftly/internal/plugin"
	"github.com/cleftly/cleftly/internal/session"
)

// ID is the plugin id.
const ID = "com.cleftly.mpris"

// Adapter is the D-Bus side of the plugin.
type Adapter interface {
	TrackChanged() error
	PlayerChanged() error
	Close() error
}

// NewAdapter connects an adapter to state, sending controls through send.
type NewAdapter func(state session.StateReader, send mprisbus.Send) (Adapter, error)

// Descriptor describes the plugin.
var Descriptor = plugin.Descriptor{
	ID:          ID,
	Name:        "MPRIS",
	Author:      "Cleftly",
	Version:     "1.0.0",
	Description: "Media keys and desktop player controls over D-Bus.",
	License:     "MIT",
	Features:    []string{"media-controls"},
}

// Factory returns the plugin factory. A nil newAdapter uses the D-Bus adapter.
func Factory(newAdapter NewAdapter) plugin.Factory {
	if newAdapter == nil {
		newAdapter = func(state session.StateReader, send mprisbus.Send) (Adapter, error) {
			return mprisbus.New(state, send)
		}
	}
	return plugin.Factory{
		Descriptor: Descriptor,
		New: func(api *plugin.API) (plugin.Plugin, error) {
			return New(api, newAdapter)
		},
	}
}

// Plugin forwards session changes to MPRIS and MPRIS controls to the
// session as player commands.
type Plugin struct {
	*plugin.Base
	adapter Adapter
}

// New connects the adapter and subscribes to session changes.
func New(api *plugin.API, newAdapter NewAdapter) (*Plugin, error) {
	if api.State == nil {
		return nil, errors.New("mpris: no session state")
	}
	p := &Plugin{Base: plugin.NewBase(api)}

	a, err := newAdapter(api.State, p.send)
	if err != nil {
		return nil, err
	}
	p.adapter = a

	p.Start(nil, func() {
		p.Subscribe(events.OnTrackChange, func(context.Context, any) error {
			return p.adapter.TrackChanged()
		})
		p.Subscribe(events.OnPlayerChange, func(context.Context, any) error {
			return p.adapter.PlayerChanged()
		})
	})
	return p, nil
}

func (p *Plugin) send(cmd session.Command) error {
	p.API.Events.Publish(context.Background(), events.OnPlayerCommand, cmd)
	return nil
}

// Destroy releases the subscriptions and closes the adapter.
func (p *Plugin) Destroy(ctx context.Context) error {
	return errors.Join(p.Release(ctx), p.adapter.Close())
}
