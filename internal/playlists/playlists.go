// Package playlists manages user playlists and the reserved Favorites list.
package playlists

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cleftly/cleftly/internal/store"
)

const (
	// FavoritesID is the reserved id of the Favorites playlist.
	FavoritesID = "favorites"
	// FavoritesName is its display name.
	FavoritesName = "Favorites"
)

var (
	// ErrReserved is returned when renaming or deleting Favorites.
	ErrReserved = errors.New("playlist is reserved")
	// ErrEmptyName is returned for blank playlist names.
	ErrEmptyName = errors.New("playlist name is empty")
	// ErrPosition is returned for out-of-range track positions.
	ErrPosition = errors.New("position out of range")
)

// Playlists provides playlist operations over the store.
type Playlists struct {
	store *store.Store
	now   func() time.Time
}

// New creates a new Playlists instance.
func New(s *store.Store) *Playlists {
	return &Playlists{store: s, now: time.Now}
}

// EnsureFavorites creates the Favorites playlist when it is missing.
func (p *Playlists) EnsureFavorites(ctx context.Context) error {
	return p.store.WithTx(ctx, func(t *store.Tables) error {
		_, err := t.Playlist(ctx, FavoritesID)
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		now := p.now()
		return t.AddPlaylist(ctx, store.Playlist{
			ID:        FavoritesID,
			Name:      FavoritesName,
			TrackIDs:  []string{},
			CreatedAt: now,
			UpdatedAt: now,
		})
	})
}

// Create creates an empty playlist.
func (p *Playlists) Create(ctx context.Context, name string) (store.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Playlist{}, ErrEmptyName
	}
	now := p.now()
	pl := store.Playlist{
		ID:        uuid.NewString(),
		Name:      name,
		TrackIDs:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.store.AddPlaylist(ctx, pl); err != nil {
		return store.Playlist{}, fmt.Errorf("create playlist: %w", err)
	}
	return pl, nil
}

// Rename renames a playlist.
func (p *Playlists) Rename(ctx context.Context, id, name string) error {
	if id == FavoritesID {
		return ErrReserved
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	return p.update(ctx, id, func(pl *store.Playlist) error {
		pl.Name = name
		return nil
	})
}

// Delete deletes a playlist and all its entries.
func (p *Playlists) Delete(ctx context.Context, id string) error {
	if id == FavoritesID {
		return ErrReserved
	}
	return p.store.WithTx(ctx, func(t *store.Tables) error {
		if _, err := t.Playlist(ctx, id); err != nil {
			return err
		}
		return t.DeletePlaylist(ctx, id)
	})
}

// List returns all playlists, most recently updated first.
func (p *Playlists) List(ctx context.Context) ([]store.Playlist, error) {
	return p.store.Playlists(ctx)
}

// Get returns a playlist by its ID.
func (p *Playlists) Get(ctx context.Context, id string) (store.Playlist, error) {
	return p.store.Playlist(ctx, id)
}

// update loads a playlist, applies fn and writes it back in one transaction.
func (p *Playlists) update(ctx context.Context, id string, fn func(pl *store.Playlist) error) error {
	return p.store.WithTx(ctx, func(t *store.Tables) error {
		pl, err := t.Playlist(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(&pl); err != nil {
			return err
		}
		pl.UpdatedAt = p.now()
		return t.UpdatePlaylist(ctx, pl)
	})
}
