package app

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/cleftly/cleftly/internal/friendly"
	"github.com/cleftly/cleftly/internal/session"
)

// ErrEmptyQueue is returned when there is nothing to play.
var ErrEmptyQueue = errors.New("nothing to play")

// ErrNotInPlaylist is returned when a track is played from a playlist that
// does not hold it.
var ErrNotInPlaylist = errors.New("track is not in the playlist")

// PlayRequest picks the queue a track is played from.
type PlayRequest struct {
	// Album queues the track's whole album.
	Album bool
	// Playlist queues a playlist's tracks; the track must be one of them.
	Playlist string
	Shuffle  bool
}

// Play starts trackID with the queue req describes.
func (a *App) Play(ctx context.Context, trackID string, req PlayRequest) error {
	track, err := a.Track(ctx, trackID)
	if err != nil {
		return err
	}

	var queue []friendly.Track
	switch {
	case req.Playlist != "":
		if queue, err = a.playlistQueue(ctx, req.Playlist); err != nil {
			return err
		}
		if !slices.ContainsFunc(queue, func(t friendly.Track) bool { return t.ID == trackID }) {
			return fmt.Errorf("%s in %s: %w", trackID, req.Playlist, ErrNotInPlaylist)
		}
	case req.Album:
		al, err := a.Album(ctx, track.AlbumID)
		if err != nil {
			return err
		}
		if queue, err = a.Resolver.Tracks(ctx, al.Tracks); err != nil {
			return err
		}
	}
	return a.Session.PlayTrack(ctx, track, session.PlayOptions{Queue: queue, Shuffle: req.Shuffle})
}

// PlayPlaylist plays a playlist from its first track. With shuffle the rest
// of the playlist follows in random order.
func (a *App) PlayPlaylist(ctx context.Context, id string, shuffle bool) error {
	queue, err := a.playlistQueue(ctx, id)
	if err != nil {
		return err
	}
	if len(queue) == 0 {
		return ErrEmptyQueue
	}
	first := 0
	if err := a.Session.PlayTrack(ctx, queue[0], session.PlayOptions{Queue: queue, Index: &first}); err != nil {
		return err
	}
	if shuffle {
		a.Session.SetShuffle(ctx, true)
	}
	return nil
}

func (a *App) playlistQueue(ctx context.Context, id string) ([]friendly.Track, error) {
	pl, err := a.Playlists.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("playlist %s: %w", id, err)
	}
	resolved, err := a.Resolver.Playlist(ctx, pl, false)
	if err != nil {
		return nil, err
	}
	queue := make([]friendly.Track, 0, len(resolved.Tracks))
	for _, t := range resolved.Tracks {
		queue = append(queue, *t)
	}
	return queue, nil
}
