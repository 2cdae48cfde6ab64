package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const artistColumns = `id, name, genres, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtist(row rowScanner) (Artist, error) {
	var (
		a         Artist
		genres    string
		createdAt int64
	)
	if err := row.Scan(&a.ID, &a.Name, &genres, &createdAt); err != nil {
		return Artist{}, err
	}
	a.Genres = decodeGenres(genres)
	a.CreatedAt = time.Unix(createdAt, 0)
	return a, nil
}

// Artist returns the artist with id, or ErrNotFound.
func (t *Tables) Artist(ctx context.Context, id string) (Artist, error) {
	row := t.q.QueryRowContext(ctx, `SELECT `+artistColumns+` FROM artists WHERE id = ?`, id)
	a, err := scanArtist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Artist{}, ErrNotFound
	}
	return a, err
}

// Artists returns every artist ordered by name.
func (t *Tables) Artists(ctx context.Context) ([]Artist, error) {
	rows, err := t.q.QueryContext(ctx, `SELECT `+artistColumns+` FROM artists ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Artist
	for rows.Next() {
		a, err := scanArtist(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AddArtist inserts a new artist. Adding an existing id fails.
func (t *Tables) AddArtist(ctx context.Context, a Artist) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO artists (`+artistColumns+`) VALUES (?, ?, ?, ?)
	`, a.ID, a.Name, encodeGenres(a.Genres), a.CreatedAt.Unix())
	return err
}

// BulkAddArtists inserts artists, leaving rows that already exist untouched.
func (t *Tables) BulkAddArtists(ctx context.Context, artists []Artist) error {
	for _, a := range artists {
		_, err := t.q.ExecContext(ctx, `
			INSERT INTO artists (`+artistColumns+`) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, a.ID, a.Name, encodeGenres(a.Genres), a.CreatedAt.Unix())
		if err != nil {
			return err
		}
	}
	return nil
}

// UpdateArtist overwrites the mutable fields of an existing artist.
func (t *Tables) UpdateArtist(ctx context.Context, a Artist) error {
	res, err := t.q.ExecContext(ctx, `
		UPDATE artists SET name = ?, genres = ? WHERE id = ?
	`, a.Name, encodeGenres(a.Genres), a.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// DeleteArtist removes an artist by id.
func (t *Tables) DeleteArtist(ctx context.Context, id string) error {
	_, err := t.q.ExecContext(ctx, `DELETE FROM artists WHERE id = ?`, id)
	return err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
