//go:build linux

// Package mpris exposes the playback session on the session bus as an
// MPRIS media player.
package mpris

import (
	"errors"
	"net/url"
	"path/filepath"

	"github.com/godbus/dbus/v5"
	mprisevents "github.com/quarckster/go-mpris-server/pkg/events"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/cleftly/cleftly/internal/friendly"
	"github.com/cleftly/cleftly/internal/session"
)

// Send delivers a command to the player.
type Send func(cmd session.Command) error

// Adapter connects the session to MPRIS over D-Bus.
type Adapter struct {
	server *server.Server
	events *mprisevents.EventHandler
}

// New creates and starts an adapter reading state and sending commands through send.
func New(state session.StateReader, send Send) (*Adapter, error) {
	if state == nil {
		return nil, errors.New("mpris: no session state")
	}
	a := &Adapter{}
	a.server = server.NewServer("cleftly", &rootAdapter{}, &playerAdapter{state: state, send: send})
	a.events = mprisevents.NewEventHandler(a.server)

	go func() {
		_ = a.server.Listen()
	}()

	return a, nil
}

// TrackChanged signals new metadata to MPRIS clients.
func (a *Adapter) TrackChanged() error {
	return a.events.Player.OnTitle()
}

// PlayerChanged signals new playback status, volume and options.
func (a *Adapter) PlayerChanged() error {
	if err := a.events.Player.OnPlayPause(); err != nil {
		return err
	}
	if err := a.events.Player.OnVolume(); err != nil {
		return err
	}
	return a.events.Player.OnOptions()
}

// Close stops the adapter and releases D-Bus resources.
func (a *Adapter) Close() error {
	return a.server.Stop()
}

type rootAdapter struct{}

func (r *rootAdapter) Raise() error { return nil }

func (r *rootAdapter) Quit() error { return nil }

func (r *rootAdapter) CanQuit() (bool, error) { return false, nil }

func (r *rootAdapter) CanRaise() (bool, error) { return false, nil }

func (r *rootAdapter) HasTrackList() (bool, error) { return false, nil }

func (r *rootAdapter) Identity() (string, error) { return "Cleftly", nil }

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"file"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/flac", "audio/ogg", "audio/mp4", "audio/wav", "audio/opus"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter and its optional
// loop and shuffle interfaces.
type playerAdapter struct {
	state session.StateReader
	send  Send
}

func (p *playerAdapter) do(action string) error {
	return p.send(session.Command{Action: action})
}

func (p *playerAdapter) Next() error      { return p.do(session.ActionNext) }
func (p *playerAdapter) Previous() error  { return p.do(session.ActionPrevious) }
func (p *playerAdapter) Pause() error     { return p.do(session.ActionPause) }
func (p *playerAdapter) PlayPause() error { return p.do(session.ActionToggle) }
func (p *playerAdapter) Stop() error      { return p.do(session.ActionStop) }
func (p *playerAdapter) Play() error      { return p.do(session.ActionPlay) }

// Seeking needs a backend that can seek; the session has none.
func (p *playerAdapter) Seek(types.Microseconds) error { return nil }

func (p *playerAdapter) SetPosition(string, types.Microseconds) error { return nil }

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(string) error { return nil }

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	return playbackStatus(p.state.Audio() != nil, p.state.Player().Paused), nil
}

func playbackStatus(playing, paused bool) types.PlaybackStatus {
	switch {
	case !playing:
		return types.PlaybackStatusStopped
	case paused:
		return types.PlaybackStatusPaused
	default:
		return types.PlaybackStatusPlaying
	}
}

func (p *playerAdapter) Rate() (float64, error) {
	return p.state.Player().Speed, nil
}

func (p *playerAdapter) SetRate(rate float64) error {
	return p.send(session.Command{Action: session.ActionSpeed, Value: rate})
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	audio := p.state.Audio()
	if audio == nil {
		return types.Metadata{}, nil
	}
	return metadata(audio), nil
}

func metadata(audio *session.Audio) types.Metadata {
	t := audio.Track
	meta := types.Metadata{
		TrackId:     dbus.ObjectPath(trackObjectPath(t.ID)),
		Length:      types.Microseconds(audio.Duration * 1e6),
		Title:       t.Title,
		Artist:      []string{t.Artist.Name},
		Album:       t.Album.Name,
		TrackNumber: t.TrackNum,
	}
	if art := artURL(t); art != "" {
		meta.ArtUrl = art
	}
	return meta
}

func artURL(t friendly.Track) string {
	path := t.ArtPath()
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

func (p *playerAdapter) Volume() (float64, error) {
	pl := p.state.Player()
	if pl.Muted {
		return 0, nil
	}
	return pl.Volume, nil
}

func (p *playerAdapter) SetVolume(v float64) error {
	return p.send(session.Command{Action: session.ActionVolume, Value: v})
}

func (p *playerAdapter) Position() (int64, error) {
	audio := p.state.Audio()
	if audio == nil {
		return 0, nil
	}
	return int64(audio.CurrentTime * 1e6), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) { return 0.25, nil }

func (p *playerAdapter) MaximumRate() (float64, error) { return 4, nil }

func (p *playerAdapter) CanGoNext() (bool, error) {
	q := p.state.Queue()
	return q.Index+1 < len(q.Tracks) || p.state.Player().Repeat == session.RepeatAll, nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return len(p.state.Queue().Tracks) > 0, nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	return len(p.state.Queue().Tracks) > 0, nil
}

func (p *playerAdapter) CanPause() (bool, error) { return true, nil }

func (p *playerAdapter) CanSeek() (bool, error) { return false, nil }

func (p *playerAdapter) CanControl() (bool, error) { return true, nil }

// LoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) LoopStatus() (types.LoopStatus, error) {
	return loopStatus(p.state.Player().Repeat), nil
}

func loopStatus(mode session.RepeatMode) types.LoopStatus {
	switch mode {
	case session.RepeatOne:
		return types.LoopStatusTrack
	case session.RepeatAll:
		return types.LoopStatusPlaylist
	default:
		return types.LoopStatusNone
	}
}

// SetLoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) SetLoopStatus(status types.LoopStatus) error {
	mode := session.RepeatOff
	switch status {
	case types.LoopStatusTrack:
		mode = session.RepeatOne
	case types.LoopStatusPlaylist:
		mode = session.RepeatAll
	case types.LoopStatusNone:
	}
	return p.send(session.Command{Action: session.ActionRepeat, Repeat: mode.String()})
}

// Shuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) Shuffle() (bool, error) {
	return p.state.Player().Shuffle, nil
}

// SetShuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) SetShuffle(shuffle bool) error {
	return p.send(session.Command{Action: session.ActionShuffle, Enabled: shuffle})
}

// trackObjectPath turns a track id (hex) into a D-Bus object path.
func trackObjectPath(id string) string {
	if id == "" {
		return "/org/mpris/MediaPlayer2/TrackList/NoTrack"
	}
	return "/org/cleftly/track/" + id
}
