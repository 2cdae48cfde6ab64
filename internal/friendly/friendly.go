// Package friendly joins catalog rows into the denormalized views the player,
// the CLI and plugins consume. Views are computed on demand and never stored.
package friendly

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cleftly/cleftly/internal/store"
	"github.com/cleftly/cleftly/internal/tags"
)

// ErrReferentialIntegrity matches every IntegrityError.
var ErrReferentialIntegrity = errors.New("referential integrity violated")

// IntegrityError reports a row referencing one that does not exist.
type IntegrityError struct {
	Entity   string // "artist" or "album"
	ID       string
	Referrer string // e.g. "track 1f3a..."
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s not found: %s (referenced by %s)", e.Entity, e.ID, e.Referrer)
}

// Is makes errors.Is(err, ErrReferentialIntegrity) hold.
func (e *IntegrityError) Is(target error) bool { return target == ErrReferentialIntegrity }

// Track is a track with its artist and album.
type Track struct {
	store.Track
	Artist store.Artist `json:"artist"`
	Album  store.Album  `json:"album"`
}

// Album is an album with its artist and tracks.
type Album struct {
	store.Album
	Artist store.Artist  `json:"artist"`
	Tracks []store.Track `json:"tracks"`
}

// Playlist is a playlist with its tracks resolved in stored order.
// In strict mode a missing track is a nil entry at its position.
type Playlist struct {
	store.Playlist
	Tracks []*Track `json:"tracks"`
}

// Catalog is the lookup surface the resolver needs.
type Catalog interface {
	Artist(ctx context.Context, id string) (store.Artist, error)
	Album(ctx context.Context, id string) (store.Album, error)
	TracksByAlbum(ctx context.Context, albumID string) ([]store.Track, error)
	TracksByIDs(ctx context.Context, ids []string) (map[string]store.Track, error)
}

// Resolver builds friendly views.
type Resolver struct {
	catalog Catalog
}

// NewResolver creates a Resolver over c.
func NewResolver(c Catalog) *Resolver {
	return &Resolver{catalog: c}
}

// Track joins t with its artist and album. A missing artist or album is an IntegrityError.
func (r *Resolver) Track(ctx context.Context, t store.Track) (Track, error) {
	referrer := "track " + t.ID

	artist, err := r.artist(ctx, t.ArtistID, referrer)
	if err != nil {
		return Track{}, err
	}
	album, err := r.catalog.Album(ctx, t.AlbumID)
	if errors.Is(err, store.ErrNotFound) {
		return Track{}, &IntegrityError{Entity: "album", ID: t.AlbumID, Referrer: referrer}
	}
	if err != nil {
		return Track{}, fmt.Errorf("load album %s: %w", t.AlbumID, err)
	}

	return Track{Track: t, Artist: artist, Album: album}, nil
}

// Tracks resolves each track, stopping at the first failure.
func (r *Resolver) Tracks(ctx context.Context, tracks []store.Track) ([]Track, error) {
	out := make([]Track, 0, len(tracks))
	for _, t := range tracks {
		ft, err := r.Track(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, ft)
	}
	return out, nil
}

// Album joins a with its artist and its tracks in disc/track order.
func (r *Resolver) Album(ctx context.Context, a store.Album) (Album, error) {
	artist, err := r.artist(ctx, a.ArtistID, "album "+a.ID)
	if err != nil {
		return Album{}, err
	}
	tracks, err := r.catalog.TracksByAlbum(ctx, a.ID)
	if err != nil {
		return Album{}, fmt.Errorf("load tracks of album %s: %w", a.ID, err)
	}
	if tracks == nil {
		tracks = []store.Track{}
	}
	return Album{Album: a, Artist: artist, Tracks: tracks}, nil
}

// Playlist resolves p's track ids in order. Missing tracks are dropped, or
// kept as nil placeholders when strict is set, so positions line up with
// p.TrackIDs.
func (r *Resolver) Playlist(ctx context.Context, p store.Playlist, strict bool) (Playlist, error) {
	found, err := r.catalog.TracksByIDs(ctx, p.TrackIDs)
	if err != nil {
		return Playlist{}, fmt.Errorf("load tracks of playlist %s: %w", p.ID, err)
	}

	// repeated ids resolve once but each position gets its own copy
	resolved := make(map[string]Track, len(found))
	out := make([]*Track, 0, len(p.TrackIDs))
	for _, id := range p.TrackIDs {
		t, ok := found[id]
		if !ok {
			if strict {
				out = append(out, nil)
			}
			continue
		}
		ft, ok := resolved[id]
		if !ok {
			if ft, err = r.Track(ctx, t); err != nil {
				return Playlist{}, err
			}
			resolved[id] = ft
		}
		out = append(out, &ft)
	}

	return Playlist{Playlist: p, Tracks: out}, nil
}

func (r *Resolver) artist(ctx context.Context, id, referrer string) (store.Artist, error) {
	artist, err := r.catalog.Artist(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.Artist{}, &IntegrityError{Entity: "artist", ID: id, Referrer: referrer}
	}
	if err != nil {
		return store.Artist{}, fmt.Errorf("load artist %s: %w", id, err)
	}
	return artist, nil
}

// ArtPath returns the best cover image for the track: its own art, its
// album's, or an image beside the file.
func (t Track) ArtPath() string {
	switch {
	case t.Track.AlbumArt != "":
		return t.Track.AlbumArt
	case t.Album.AlbumArt != "":
		return t.Album.AlbumArt
	case t.Location != "":
		return tags.FolderArt(filepath.Dir(t.Location))
	}
	return ""
}
