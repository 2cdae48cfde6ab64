package session

import (
	"context"
	"net/url"
	"path/filepath"
)

// Backend names accepted in configuration.
const (
	BackendNative = "native"
	BackendWeb    = "web"
)

// Backend renders audio. Decoding lives outside this module; the controller
// only drives it.
type Backend interface {
	Play(ctx context.Context, src string) error
	Pause() error
	Resume() error
	Stop() error
	SetVolume(volume float64) error
	SetSpeed(speed float64) error
}

// NullBackend accepts every command and produces no sound.
type NullBackend struct{}

var _ Backend = NullBackend{}

func (NullBackend) Play(context.Context, string) error { return nil }
func (NullBackend) Pause() error                       { return nil }
func (NullBackend) Resume() error                      { return nil }
func (NullBackend) Stop() error                        { return nil }
func (NullBackend) SetVolume(float64) error            { return nil }
func (NullBackend) SetSpeed(float64) error             { return nil }

// sourceFor returns what the named backend expects to open for a file.
func sourceFor(backend, location string) string {
	if backend == BackendWeb {
		abs, err := filepath.Abs(location)
		if err != nil {
			abs = location
		}
		return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	}
	return location
}
