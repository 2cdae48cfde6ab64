package playlists

import (
	"context"
	"slices"

	"github.com/cleftly/cleftly/internal/store"
)

// IsFavorite checks if a track is in the Favorites playlist.
func (p *Playlists) IsFavorite(ctx context.Context, trackID string) (bool, error) {
	return p.Contains(ctx, FavoritesID, trackID)
}

// ToggleFavorite adds a track to Favorites if not there, removes every
// occurrence if already favorited. Returns the new favorite status.
func (p *Playlists) ToggleFavorite(ctx context.Context, trackID string) (bool, error) {
	var now bool
	err := p.update(ctx, FavoritesID, func(pl *store.Playlist) error {
		if slices.Contains(pl.TrackIDs, trackID) {
			pl.TrackIDs = slices.DeleteFunc(pl.TrackIDs, func(id string) bool { return id == trackID })
			return nil
		}
		pl.TrackIDs = append(pl.TrackIDs, trackID)
		now = true
		return nil
	})
	return now, err
}

// FavoriteTrackIDs returns all track IDs in Favorites as a set.
func (p *Playlists) FavoriteTrackIDs(ctx context.Context) (map[string]bool, error) {
	pl, err := p.store.Playlist(ctx, FavoritesID)
	if err != nil {
		return nil, err
	}
	favorites := make(map[string]bool, len(pl.TrackIDs))
	for _, id := range pl.TrackIDs {
		favorites[id] = true
	}
	return favorites, nil
}
