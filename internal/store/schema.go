package store

import (
	"database/sql"
)

const currentSchemaVersion = 2

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS artists (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			genres TEXT NOT NULL DEFAULT '[]',
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS albums (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			artist_id TEXT NOT NULL,
			genres TEXT NOT NULL DEFAULT '[]',
			album_art TEXT,
			animated_album_art TEXT,
			year INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_albums_artist ON albums(artist_id);

		CREATE TABLE IF NOT EXISTS tracks (
			id TEXT PRIMARY KEY,
			location TEXT NOT NULL,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			artist_id TEXT NOT NULL,
			album_id TEXT NOT NULL,
			album_art TEXT,
			animated_album_art TEXT,
			genres TEXT NOT NULL DEFAULT '[]',
			duration REAL NOT NULL DEFAULT 0,
			track_num INTEGER NOT NULL DEFAULT 1,
			total_tracks INTEGER NOT NULL DEFAULT 1,
			disc_num INTEGER NOT NULL DEFAULT 1,
			total_discs INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL,
			last_played_at INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_tracks_album ON tracks(album_id);
		CREATE INDEX IF NOT EXISTS idx_tracks_artist ON tracks(artist_id);
		CREATE INDEX IF NOT EXISTS idx_tracks_location ON tracks(location);

		CREATE TABLE IF NOT EXISTS playlists (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS playlist_tracks (
			playlist_id TEXT NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			track_id TEXT NOT NULL,
			PRIMARY KEY (playlist_id, position)
		);

		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, currentSchemaVersion)
	if err != nil {
		return err
	}

	// Migrations: columns added after version 1.
	_, _ = db.Exec(`ALTER TABLE albums ADD COLUMN animated_album_art TEXT`)
	_, _ = db.Exec(`ALTER TABLE tracks ADD COLUMN animated_album_art TEXT`)

	return nil
}
