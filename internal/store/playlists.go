package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

func (t *Tables) playlistTrackIDs(ctx context.Context, id string) ([]string, error) {
	rows, err := t.q.QueryContext(ctx, `
		SELECT track_id FROM playlist_tracks WHERE playlist_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var trackID string
		if err := rows.Scan(&trackID); err != nil {
			return nil, err
		}
		ids = append(ids, trackID)
	}
	return ids, rows.Err()
}

func (t *Tables) writePlaylistTracks(ctx context.Context, id string, trackIDs []string) error {
	if _, err := t.q.ExecContext(ctx, `DELETE FROM playlist_tracks WHERE playlist_id = ?`, id); err != nil {
		return err
	}
	for pos, trackID := range trackIDs {
		_, err := t.q.ExecContext(ctx, `
			INSERT INTO playlist_tracks (playlist_id, position, track_id) VALUES (?, ?, ?)
		`, id, pos, trackID)
		if err != nil {
			return err
		}
	}
	return nil
}

// Playlist returns the playlist with id and its ordered track ids, or ErrNotFound.
func (t *Tables) Playlist(ctx context.Context, id string) (Playlist, error) {
	var (
		p                    Playlist
		createdAt, updatedAt int64
	)
	err := t.q.QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at FROM playlists WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Playlist{}, ErrNotFound
	}
	if err != nil {
		return Playlist{}, err
	}
	p.CreatedAt = time.Unix(createdAt, 0)
	p.UpdatedAt = time.Unix(updatedAt, 0)

	p.TrackIDs, err = t.playlistTrackIDs(ctx, id)
	if err != nil {
		return Playlist{}, err
	}
	return p, nil
}

// Playlists returns every playlist, most recently updated first.
func (t *Tables) Playlists(ctx context.Context) ([]Playlist, error) {
	rows, err := t.q.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at FROM playlists
		ORDER BY updated_at DESC, name COLLATE NOCASE
	`)
	if err != nil {
		return nil, err
	}

	var out []Playlist
	for rows.Next() {
		var (
			p                    Playlist
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&p.ID, &p.Name, &createdAt, &updatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		p.CreatedAt = time.Unix(createdAt, 0)
		p.UpdatedAt = time.Unix(updatedAt, 0)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Close before issuing more queries: the store runs on one connection.
	rows.Close()

	for i := range out {
		ids, err := t.playlistTrackIDs(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].TrackIDs = ids
	}
	return out, nil
}

// AddPlaylist inserts a new playlist with its track ids.
func (t *Tables) AddPlaylist(ctx context.Context, p Playlist) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO playlists (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)
	`, p.ID, p.Name, p.CreatedAt.Unix(), p.UpdatedAt.Unix())
	if err != nil {
		return err
	}
	return t.writePlaylistTracks(ctx, p.ID, p.TrackIDs)
}

// UpdatePlaylist replaces the name, timestamps and track list of an existing playlist.
func (t *Tables) UpdatePlaylist(ctx context.Context, p Playlist) error {
	res, err := t.q.ExecContext(ctx, `
		UPDATE playlists SET name = ?, updated_at = ? WHERE id = ?
	`, p.Name, p.UpdatedAt.Unix(), p.ID)
	if err != nil {
		return err
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	return t.writePlaylistTracks(ctx, p.ID, p.TrackIDs)
}

// DeletePlaylist removes a playlist and its entries.
func (t *Tables) DeletePlaylist(ctx context.Context, id string) error {
	if _, err := t.q.ExecContext(ctx, `DELETE FROM playlist_tracks WHERE playlist_id = ?`, id); err != nil {
		return err
	}
	_, err := t.q.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id)
	return err
}
