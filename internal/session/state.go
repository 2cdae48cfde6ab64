package session

import (
	"slices"
	"strings"
	"time"

	"github.com/cleftly/cleftly/internal/friendly"
)

// RepeatMode defines the repeat behavior.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatOne
)

// String returns the repeat mode name.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOff:
		return "off"
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "unknown"
	}
}

// ParseRepeatMode parses "off", "all" or "one".
func ParseRepeatMode(s string) (RepeatMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return RepeatOff, true
	case "all":
		return RepeatAll, true
	case "one":
		return RepeatOne, true
	}
	return RepeatOff, false
}

// Lyrics attached to the current audio.
type Lyrics struct {
	Format  string `json:"type"` // "lrc" or "plain"
	Text    string `json:"lyrics"`
	Source  string `json:"source,omitempty"`
	Credits string `json:"credits,omitempty"`
}

// Audio is the state of the track being played.
type Audio struct {
	// ID identifies one play of a track; it changes on every PlayTrack.
	ID          string         `json:"id"`
	Track       friendly.Track `json:"track"`
	Src         string         `json:"src"`
	CurrentTime float64        `json:"currentTime"`
	Duration    float64        `json:"duration"`
	Scrobbled   bool           `json:"scrobbled"`
	PlayedAt    time.Time      `json:"playedAt"`
	Lyrics      *Lyrics        `json:"lyrics,omitempty"`
	Backend     string         `json:"backend"`
}

func (a *Audio) clone() *Audio {
	if a == nil {
		return nil
	}
	cp := *a
	if a.Lyrics != nil {
		l := *a.Lyrics
		cp.Lyrics = &l
	}
	return &cp
}

// Player holds output settings.
type Player struct {
	Muted   bool       `json:"muted"`
	Volume  float64    `json:"volume"`
	Paused  bool       `json:"paused"`
	Repeat  RepeatMode `json:"repeat"`
	Speed   float64    `json:"speed"`
	Shuffle bool       `json:"shuffle"`
}

// Queue is the play order. Unshuffled keeps the original order while shuffled.
type Queue struct {
	Tracks     []friendly.Track `json:"tracks"`
	Unshuffled []friendly.Track `json:"unshuffled,omitempty"`
	Index      int              `json:"index"`
}

func (q Queue) clone() Queue {
	return Queue{
		Tracks:     slices.Clone(q.Tracks),
		Unshuffled: slices.Clone(q.Unshuffled),
		Index:      q.Index,
	}
}

// Current returns the track at Index.
func (q Queue) Current() (friendly.Track, bool) {
	if q.Index < 0 || q.Index >= len(q.Tracks) {
		return friendly.Track{}, false
	}
	return q.Tracks[q.Index], true
}

// Snapshot is a consistent copy of the whole session.
type Snapshot struct {
	Audio  *Audio `json:"audio"`
	Player Player `json:"player"`
	Queue  Queue  `json:"queue"`
}

// Scrobble is published once a play qualifies for scrobbling.
type Scrobble struct {
	Track    friendly.Track `json:"track"`
	PlayedAt time.Time      `json:"playedAt"`
	Duration float64        `json:"duration"`
}

// LyricsLoaded is published by lyrics providers.
type LyricsLoaded struct {
	AudioID string `json:"audioId"`
	TrackID string `json:"trackId"`
	Lyrics  Lyrics `json:"lyrics"`
}

// Command actions.
const (
	ActionPlay     = "play"
	ActionPause    = "pause"
	ActionToggle   = "toggle"
	ActionStop     = "stop"
	ActionNext     = "next"
	ActionPrevious = "previous"
	ActionVolume   = "volume"
	ActionMute     = "mute"
	ActionShuffle  = "shuffle"
	ActionRepeat   = "repeat"
	ActionSpeed    = "speed"
)

// Command asks the controller to act. Value carries volume or speed, Enabled
// carries mute and shuffle, Repeat carries a repeat mode name.
type Command struct {
	Action  string  `json:"action"`
	Value   float64 `json:"value,omitempty"`
	Enabled bool    `json:"enabled,omitempty"`
	Repeat  string  `json:"repeat,omitempty"`
}
