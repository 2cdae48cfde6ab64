package store

import "time"

// Artist is a performer, created the first time a scan encounters its name.
type Artist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Genres    []string  `json:"genres"`
	CreatedAt time.Time `json:"createdAt"`
}

// Album groups tracks under one artist. Its id is derived from (name, artist id).
type Album struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	ArtistID         string    `json:"artistId"`
	Genres           []string  `json:"genres"`
	AlbumArt         string    `json:"albumArt,omitempty"`
	AnimatedAlbumArt string    `json:"animatedAlbumArt,omitempty"`
	Year             int       `json:"year,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Track is one audio file in the library.
type Track struct {
	ID               string     `json:"id"`
	Location         string     `json:"location"`
	Type             string     `json:"type"`
	Title            string     `json:"title"`
	ArtistID         string     `json:"artistId"`
	AlbumID          string     `json:"albumId"`
	AlbumArt         string     `json:"albumArt,omitempty"`
	AnimatedAlbumArt string     `json:"animatedAlbumArt,omitempty"`
	Genres           []string   `json:"genres"`
	Duration         float64    `json:"duration"`
	TrackNum         int        `json:"trackNum"`
	TotalTracks      int        `json:"totalTracks"`
	DiscNum          int        `json:"discNum"`
	TotalDiscs       int        `json:"totalDiscs"`
	CreatedAt        time.Time  `json:"createdAt"`
	LastPlayedAt     *time.Time `json:"lastPlayedAt,omitempty"`
}

// Playlist is an ordered list of track ids. Ids may repeat and may dangle.
type Playlist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TrackIDs  []string  `json:"trackIds"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
