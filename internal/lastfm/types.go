package lastfm

import "time"

// Play is one listen as Last.fm records it.
type Play struct {
	Artist      string        `json:"artist"`
	Title       string        `json:"title"`
	Album       string        `json:"album,omitempty"`
	AlbumArtist string        `json:"albumArtist,omitempty"`
	TrackNumber int           `json:"trackNumber,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	StartedAt   time.Time     `json:"startedAt"`
}

// Pending is a scrobble that failed and waits for a retry.
type Pending struct {
	Play
	Attempts  int    `json:"attempts"`
	LastError string `json:"lastError,omitempty"`
}

// Session is the result of a completed web login.
type Session struct {
	User string
	Key  string
}
