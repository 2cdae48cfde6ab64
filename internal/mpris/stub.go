//go:build !linux

package mpris

import "github.com/cleftly/cleftly/internal/session"

// Send delivers a command to the player.
type Send func(cmd session.Command) error

// Adapter is a no-op on non-Linux platforms.
type Adapter struct{}

// New returns a no-op adapter on non-Linux platforms.
func New(session.StateReader, Send) (*Adapter, error) {
	return &Adapter{}, nil
}

// TrackChanged is a no-op on non-Linux platforms.
func (a *Adapter) TrackChanged() error { return nil }

// PlayerChanged is a no-op on non-Linux platforms.
func (a *Adapter) PlayerChanged() error { return nil }

// Close is a no-op on non-Linux platforms.
func (a *Adapter) Close() error { return nil }
