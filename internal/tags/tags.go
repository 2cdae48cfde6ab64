// Package tags reads music file metadata for the library scanner.
// dhowden/tag is the primary reader; id3v2 and TagLib cover the files it rejects.
package tags

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// File extensions the library recognizes as audio.
const (
	ExtWAV  = ".wav"
	ExtWAVE = ".wave"
	ExtMP3  = ".mp3"
	ExtM4A  = ".m4a"
	ExtAAC  = ".aac"
	ExtOGG  = ".ogg"
	ExtOPUS = ".opus"
	ExtFLAC = ".flac"
	ExtWEBM = ".webm"
	ExtCAF  = ".caf"
)

var musicExtensions = map[string]struct{}{
	ExtWAV: {}, ExtWAVE: {}, ExtMP3: {}, ExtM4A: {}, ExtAAC: {},
	ExtOGG: {}, ExtOPUS: {}, ExtFLAC: {}, ExtWEBM: {}, ExtCAF: {},
}

// Tag is the metadata read from one file. Empty strings and zero numbers mean absent.
type Tag struct {
	Path        string
	Title       string
	Artist      string
	AlbumArtist string
	Album       string
	Genres      []string
	Year        int

	TrackNumber int
	TotalTracks int
	DiscNumber  int
	TotalDiscs  int

	Duration time.Duration
}

// IsMusicFile reports whether path has a supported audio extension.
// AppleDouble companions ("._name.mp3") are not music.
func IsMusicFile(path string) bool {
	if strings.HasPrefix(filepath.Base(path), "._") {
		return false
	}
	_, ok := musicExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// FileType returns the lower-case extension without its dot ("flac").
func FileType(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// SplitGenres splits a raw genre value on ';' and drops blanks and repeats.
func SplitGenres(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for part := range strings.SplitSeq(raw, ";") {
		g := strings.TrimSpace(part)
		if g == "" {
			continue
		}
		key := strings.ToLower(g)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, g)
	}
	return out
}

// parseNumberPair parses "N" or "N/M".
func parseNumberPair(s string) (num, total int) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0
	}
	before, after, found := strings.Cut(s, "/")
	num, _ = strconv.Atoi(strings.TrimSpace(before))
	if found {
		total, _ = strconv.Atoi(strings.TrimSpace(after))
	}
	return num, total
}

// parseYear takes the leading four digits of a date such as "1997-05-21".
func parseYear(s string) int {
	s = strings.TrimSpace(s)
	if len(s) > 4 {
		s = s[:4]
	}
	y, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return y
}

// taglibTags wraps a TagLib property map.
type taglibTags map[string][]string

// get returns the first value for any of the given keys.
func (t taglibTags) get(keys ...string) string {
	for _, key := range keys {
		if values, ok := t[key]; ok && len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

func (t taglibTags) getInt(keys ...string) int {
	n, _ := parseNumberPair(t.get(keys...))
	return n
}
