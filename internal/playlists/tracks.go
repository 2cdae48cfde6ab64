package playlists

import (
	"context"
	"slices"

	"github.com/cleftly/cleftly/internal/store"
)

// Append adds track ids to the end of a playlist. Ids may repeat.
func (p *Playlists) Append(ctx context.Context, id string, trackIDs ...string) error {
	if len(trackIDs) == 0 {
		return nil
	}
	return p.update(ctx, id, func(pl *store.Playlist) error {
		pl.TrackIDs = append(pl.TrackIDs, trackIDs...)
		return nil
	})
}

// RemoveAt removes the entries at the given positions.
func (p *Playlists) RemoveAt(ctx context.Context, id string, positions ...int) error {
	if len(positions) == 0 {
		return nil
	}
	return p.update(ctx, id, func(pl *store.Playlist) error {
		drop := make(map[int]bool, len(positions))
		for _, pos := range positions {
			if pos < 0 || pos >= len(pl.TrackIDs) {
				return ErrPosition
			}
			drop[pos] = true
		}
		kept := make([]string, 0, len(pl.TrackIDs)-len(drop))
		for i, trackID := range pl.TrackIDs {
			if !drop[i] {
				kept = append(kept, trackID)
			}
		}
		pl.TrackIDs = kept
		return nil
	})
}

// Move shifts the entries at positions by delta, keeping their relative
// order. The shift stops at either end of the list. It returns the new
// positions in the order given.
func (p *Playlists) Move(ctx context.Context, id string, positions []int, delta int) ([]int, error) {
	result := positions
	err := p.update(ctx, id, func(pl *store.Playlist) error {
		b := newBlock(positions)
		if !b.within(len(pl.TrackIDs)) {
			return ErrPosition
		}
		if delta = b.clamp(delta, len(pl.TrackIDs)); delta == 0 {
			return nil
		}
		pl.TrackIDs = b.shift(pl.TrackIDs, delta)
		result = offset(positions, delta)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Contains reports whether trackID is in the playlist.
func (p *Playlists) Contains(ctx context.Context, id, trackID string) (bool, error) {
	pl, err := p.store.Playlist(ctx, id)
	if err != nil {
		return false, err
	}
	return slices.Contains(pl.TrackIDs, trackID), nil
}
