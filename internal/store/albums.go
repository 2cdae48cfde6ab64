package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cleftly/cleftly/internal/db"
)

const albumColumns = `id, name, artist_id, genres, album_art, animated_album_art, year, created_at`

func scanAlbum(row rowScanner) (Album, error) {
	var (
		a         Album
		genres    string
		art, anim sql.NullString
		createdAt int64
	)
	if err := row.Scan(&a.ID, &a.Name, &a.ArtistID, &genres, &art, &anim, &a.Year, &createdAt); err != nil {
		return Album{}, err
	}
	a.Genres = decodeGenres(genres)
	a.AlbumArt = db.NullStringValue(art)
	a.AnimatedAlbumArt = db.NullStringValue(anim)
	a.CreatedAt = time.Unix(createdAt, 0)
	return a, nil
}

func albumArgs(a Album) []any {
	return []any{
		a.ID, a.Name, a.ArtistID, encodeGenres(a.Genres),
		db.NullString(a.AlbumArt), db.NullString(a.AnimatedAlbumArt),
		a.Year, a.CreatedAt.Unix(),
	}
}

func (t *Tables) queryAlbums(ctx context.Context, query string, args ...any) ([]Album, error) {
	rows, err := t.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Album
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Album returns the album with id, or ErrNotFound.
func (t *Tables) Album(ctx context.Context, id string) (Album, error) {
	row := t.q.QueryRowContext(ctx, `SELECT `+albumColumns+` FROM albums WHERE id = ?`, id)
	a, err := scanAlbum(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Album{}, ErrNotFound
	}
	return a, err
}

// Albums returns every album ordered by name.
func (t *Tables) Albums(ctx context.Context) ([]Album, error) {
	return t.queryAlbums(ctx, `SELECT `+albumColumns+` FROM albums ORDER BY name COLLATE NOCASE`)
}

// AlbumsByArtist returns the albums of one artist, newest release first.
func (t *Tables) AlbumsByArtist(ctx context.Context, artistID string) ([]Album, error) {
	return t.queryAlbums(ctx, `
		SELECT `+albumColumns+` FROM albums WHERE artist_id = ?
		ORDER BY year DESC, name COLLATE NOCASE
	`, artistID)
}

// AddAlbum inserts a new album. Adding an existing id fails.
func (t *Tables) AddAlbum(ctx context.Context, a Album) error {
	_, err := t.q.ExecContext(ctx,
		`INSERT INTO albums (`+albumColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		albumArgs(a)...)
	return err
}

// BulkAddAlbums inserts albums, leaving rows that already exist untouched.
func (t *Tables) BulkAddAlbums(ctx context.Context, albums []Album) error {
	for _, a := range albums {
		_, err := t.q.ExecContext(ctx, `
			INSERT INTO albums (`+albumColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, albumArgs(a)...)
		if err != nil {
			return err
		}
	}
	return nil
}

// UpdateAlbum overwrites the mutable fields of an existing album.
func (t *Tables) UpdateAlbum(ctx context.Context, a Album) error {
	res, err := t.q.ExecContext(ctx, `
		UPDATE albums
		SET name = ?, genres = ?, album_art = ?, animated_album_art = ?, year = ?
		WHERE id = ?
	`, a.Name, encodeGenres(a.Genres), db.NullString(a.AlbumArt),
		db.NullString(a.AnimatedAlbumArt), a.Year, a.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// DeleteAlbum removes an album by id.
func (t *Tables) DeleteAlbum(ctx context.Context, id string) error {
	_, err := t.q.ExecContext(ctx, `DELETE FROM albums WHERE id = ?`, id)
	return err
}

// DeleteEmptyAlbums removes albums with no tracks and returns how many were removed.
func (t *Tables) DeleteEmptyAlbums(ctx context.Context) (int64, error) {
	res, err := t.q.ExecContext(ctx, `
		DELETE FROM albums WHERE id NOT IN (SELECT DISTINCT album_id FROM tracks)
	`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteOrphanArtists removes artists referenced by no track and no album.
func (t *Tables) DeleteOrphanArtists(ctx context.Context) (int64, error) {
	res, err := t.q.ExecContext(ctx, `
		DELETE FROM artists
		WHERE id NOT IN (SELECT DISTINCT artist_id FROM tracks)
		  AND id NOT IN (SELECT DISTINCT artist_id FROM albums)
	`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
