package playlists

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/cleftly/cleftly/internal/friendly"
	"github.com/cleftly/cleftly/internal/identity"
	"github.com/cleftly/cleftly/internal/store"
)

// Export is the portable form of a playlist.
type Export struct {
	Name      string        `json:"name"`
	CreatedAt time.Time     `json:"createdAt,omitzero"`
	UpdatedAt time.Time     `json:"updatedAt,omitzero"`
	Tracks    []ExportTrack `json:"tracks"`
}

// ExportTrack identifies a track by id and by name, so it can be matched
// again in a library where the id is unknown.
type ExportTrack struct {
	ID     string `json:"id,omitempty"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
}

// trackID returns the track id, derived from the names when none was exported.
func (t ExportTrack) trackID() string {
	if t.ID != "" {
		return t.ID
	}
	artistID := identity.Artist(t.Artist)
	return identity.Track(t.Title, artistID, identity.Album(t.Album, artistID))
}

func (p *Playlists) export(ctx context.Context, pl store.Playlist) (Export, error) {
	resolved, err := friendly.NewResolver(p.store).Playlist(ctx, pl, true)
	if err != nil {
		return Export{}, err
	}
	out := Export{
		Name:      pl.Name,
		CreatedAt: pl.CreatedAt,
		UpdatedAt: pl.UpdatedAt,
		Tracks:    make([]ExportTrack, 0, len(resolved.Tracks)),
	}
	for i, t := range resolved.Tracks {
		if t == nil {
			// Dangling entries keep their id.
			out.Tracks = append(out.Tracks, ExportTrack{ID: pl.TrackIDs[i]})
			continue
		}
		out.Tracks = append(out.Tracks, ExportTrack{
			ID:     t.ID,
			Title:  t.Title,
			Artist: t.Artist.Name,
			Album:  t.Album.Name,
		})
	}
	return out, nil
}

// Export writes playlist id to w as indented JSON.
func (p *Playlists) Export(ctx context.Context, id string, w io.Writer) error {
	pl, err := p.store.Playlist(ctx, id)
	if err != nil {
		return err
	}
	e, err := p.export(ctx, pl)
	if err != nil {
		return err
	}
	return encode(w, e)
}

// ExportAll writes every playlist to w as a JSON array.
func (p *Playlists) ExportAll(ctx context.Context, w io.Writer) error {
	all, err := p.store.Playlists(ctx)
	if err != nil {
		return err
	}
	out := make([]Export, 0, len(all))
	for _, pl := range all {
		e, err := p.export(ctx, pl)
		if err != nil {
			return err
		}
		out = append(out, e)
	}
	return encode(w, out)
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Import reads one exported playlist, or an array of them, from r and adds
// each under a new id.
func (p *Playlists) Import(ctx context.Context, r io.Reader) ([]store.Playlist, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read playlist: %w", err)
	}

	var exports []Export
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &exports)
	} else {
		var one Export
		err = json.Unmarshal(data, &one)
		exports = []Export{one}
	}
	if err != nil {
		return nil, fmt.Errorf("decode playlist: %w", err)
	}

	now := p.now()
	imported := make([]store.Playlist, 0, len(exports))
	err = p.store.WithTx(ctx, func(t *store.Tables) error {
		for _, e := range exports {
			if e.Name == "" {
				return ErrEmptyName
			}
			pl := store.Playlist{
				ID:        uuid.NewString(),
				Name:      e.Name,
				TrackIDs:  make([]string, 0, len(e.Tracks)),
				CreatedAt: e.CreatedAt,
				UpdatedAt: e.UpdatedAt,
			}
			if pl.CreatedAt.IsZero() {
				pl.CreatedAt = now
			}
			if pl.UpdatedAt.IsZero() {
				pl.UpdatedAt = now
			}
			for _, tr := range e.Tracks {
				pl.TrackIDs = append(pl.TrackIDs, tr.trackID())
			}
			if err := t.AddPlaylist(ctx, pl); err != nil {
				return err
			}
			imported = append(imported, pl)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return imported, nil
}
