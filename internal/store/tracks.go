package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cleftly/cleftly/internal/db"
)

const trackColumns = `id, location, type, title, artist_id, album_id, album_art, animated_album_art,
	genres, duration, track_num, total_tracks, disc_num, total_discs, created_at, last_played_at`

const trackOrder = `ORDER BY disc_num, track_num, title COLLATE NOCASE`

func scanTrack(row rowScanner) (Track, error) {
	var (
		tr         Track
		art, anim  sql.NullString
		genres     string
		createdAt  int64
		lastPlayed sql.NullInt64
	)
	err := row.Scan(
		&tr.ID, &tr.Location, &tr.Type, &tr.Title, &tr.ArtistID, &tr.AlbumID,
		&art, &anim, &genres, &tr.Duration,
		&tr.TrackNum, &tr.TotalTracks, &tr.DiscNum, &tr.TotalDiscs,
		&createdAt, &lastPlayed,
	)
	if err != nil {
		return Track{}, err
	}
	tr.AlbumArt = db.NullStringValue(art)
	tr.AnimatedAlbumArt = db.NullStringValue(anim)
	tr.Genres = decodeGenres(genres)
	tr.CreatedAt = time.Unix(createdAt, 0)
	tr.LastPlayedAt = db.NullUnixToPtr(lastPlayed)
	return tr, nil
}

func trackArgs(tr Track) []any {
	return []any{
		tr.ID, tr.Location, tr.Type, tr.Title, tr.ArtistID, tr.AlbumID,
		db.NullString(tr.AlbumArt), db.NullString(tr.AnimatedAlbumArt),
		encodeGenres(tr.Genres), tr.Duration,
		tr.TrackNum, tr.TotalTracks, tr.DiscNum, tr.TotalDiscs,
		tr.CreatedAt.Unix(), db.PtrToNullUnix(tr.LastPlayedAt),
	}
}

const insertTrack = `INSERT INTO tracks (` + trackColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (t *Tables) queryTracks(ctx context.Context, query string, args ...any) ([]Track, error) {
	rows, err := t.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Track
	for rows.Next() {
		tr, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

// Track returns the track with id, or ErrNotFound.
func (t *Tables) Track(ctx context.Context, id string) (Track, error) {
	row := t.q.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM tracks WHERE id = ?`, id)
	tr, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Track{}, ErrNotFound
	}
	return tr, err
}

// Tracks returns every track.
func (t *Tables) Tracks(ctx context.Context) ([]Track, error) {
	return t.queryTracks(ctx, `SELECT `+trackColumns+` FROM tracks ORDER BY location`)
}

// TracksByAlbum returns an album's tracks in disc/track order.
func (t *Tables) TracksByAlbum(ctx context.Context, albumID string) ([]Track, error) {
	return t.queryTracks(ctx, `SELECT `+trackColumns+` FROM tracks WHERE album_id = ? `+trackOrder, albumID)
}

// TracksByArtist returns every track credited to an artist.
func (t *Tables) TracksByArtist(ctx context.Context, artistID string) ([]Track, error) {
	return t.queryTracks(ctx, `
		SELECT `+trackColumns+` FROM tracks WHERE artist_id = ?
		ORDER BY album_id, disc_num, track_num
	`, artistID)
}

// TrackByLocation returns the track stored at path, or ErrNotFound.
func (t *Tables) TrackByLocation(ctx context.Context, path string) (Track, error) {
	row := t.q.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM tracks WHERE location = ?`, path)
	tr, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Track{}, ErrNotFound
	}
	return tr, err
}

// TracksByIDs returns the tracks that exist among ids, keyed by id.
// Missing ids are absent from the map.
func (t *Tables) TracksByIDs(ctx context.Context, ids []string) (map[string]Track, error) {
	out := make(map[string]Track, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	tracks, err := t.queryTracks(ctx,
		`SELECT `+trackColumns+` FROM tracks WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, err
	}
	for _, tr := range tracks {
		out[tr.ID] = tr
	}
	return out, nil
}

// AddTrack inserts a new track. Adding an existing id fails.
func (t *Tables) AddTrack(ctx context.Context, tr Track) error {
	_, err := t.q.ExecContext(ctx, insertTrack, trackArgs(tr)...)
	return err
}

// BulkAddTracks inserts tracks, leaving rows that already exist untouched.
func (t *Tables) BulkAddTracks(ctx context.Context, tracks []Track) error {
	for _, tr := range tracks {
		if _, err := t.q.ExecContext(ctx, insertTrack+` ON CONFLICT(id) DO NOTHING`, trackArgs(tr)...); err != nil {
			return err
		}
	}
	return nil
}

// UpdateTrack overwrites an existing track's metadata. CreatedAt is kept.
func (t *Tables) UpdateTrack(ctx context.Context, tr Track) error {
	res, err := t.q.ExecContext(ctx, `
		UPDATE tracks SET
			location = ?, type = ?, title = ?, artist_id = ?, album_id = ?,
			album_art = ?, animated_album_art = ?, genres = ?, duration = ?,
			track_num = ?, total_tracks = ?, disc_num = ?, total_discs = ?,
			last_played_at = ?
		WHERE id = ?
	`,
		tr.Location, tr.Type, tr.Title, tr.ArtistID, tr.AlbumID,
		db.NullString(tr.AlbumArt), db.NullString(tr.AnimatedAlbumArt),
		encodeGenres(tr.Genres), tr.Duration,
		tr.TrackNum, tr.TotalTracks, tr.DiscNum, tr.TotalDiscs,
		db.PtrToNullUnix(tr.LastPlayedAt), tr.ID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// TouchTrack records that a track was played at the given time.
func (t *Tables) TouchTrack(ctx context.Context, id string, at time.Time) error {
	res, err := t.q.ExecContext(ctx, `UPDATE tracks SET last_played_at = ? WHERE id = ?`, at.Unix(), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// RelocateTrack points an existing track at a new file.
func (t *Tables) RelocateTrack(ctx context.Context, id, location string) error {
	res, err := t.q.ExecContext(ctx, `UPDATE tracks SET location = ? WHERE id = ?`, location, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// DeleteTrack removes a track by id. Playlist entries referencing it are kept.
func (t *Tables) DeleteTrack(ctx context.Context, id string) error {
	_, err := t.q.ExecContext(ctx, `DELETE FROM tracks WHERE id = ?`, id)
	return err
}
