// Package plugin loads, runs and tears down player extensions.
//
// A plugin only sees its API: its own config document, the event bus and a
// read-only view of the playback session. Built-in plugins link in through a
// static registry of factories; external plugins are executables speaking
// JSON lines over stdio and converge on the same contract.
package plugin

import (
	"context"

	"go.uber.org/zap"

	"github.com/cleftly/cleftly/internal/session"
)

// API is the capability surface handed to a plugin at construction.
type API struct {
	ID     string
	Config *ScopedConfig
	Events *ScopedEvents
	State  session.StateReader
	Log    *zap.Logger
}

// Plugin is a running plugin instance.
type Plugin interface {
	// Destroy is the teardown hook. It should release the plugin's subscriptions.
	Destroy(ctx context.Context) error
}

// Factory builds a plugin. New may start asynchronous setup and return
// before it completes.
type Factory struct {
	Descriptor Descriptor
	New        func(api *API) (Plugin, error)
}

// describer is implemented by plugins whose descriptor is only known once
// they run, such as external plugins.
type describer interface {
	Descriptor() Descriptor
}
